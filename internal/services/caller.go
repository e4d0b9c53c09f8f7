package services

import (
	"github.com/google/uuid"
	"github.com/smarttransit/bus-booking-backend/internal/apperrors"
)

// Caller is the validated identity a request acts as. It is always passed
// explicitly; services never read identity from ambient state.
type Caller struct {
	UserID uuid.UUID
	Email  string
	Roles  []string
}

// HasRole reports whether the caller holds role
func (c Caller) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the caller may act on any operator's resources
func (c Caller) IsAdmin() bool {
	return c.HasRole("admin")
}

// owns reports whether the caller may manage a resource of operatorID
func (c Caller) owns(operatorID uuid.UUID) bool {
	return operatorID == c.UserID || c.IsAdmin()
}

func (c Caller) requireIdentity() error {
	if c.UserID == uuid.Nil {
		return apperrors.Unauthenticated("authenticated caller required")
	}
	return nil
}

// RequestMeta is request metadata recorded in audit payloads
type RequestMeta struct {
	IP        string
	UserAgent string
	RequestID string
}
