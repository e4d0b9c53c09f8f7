package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  *Error
		want int
	}{
		{Validation(CodeMissingPrice, "missing price"), http.StatusBadRequest},
		{Unauthenticated("no token"), http.StatusUnauthorized},
		{Forbidden("not yours"), http.StatusForbidden},
		{NotFound(CodeTicketNotFound, "Ticket not found"), http.StatusNotFound},
		{VerificationFailed("declined"), http.StatusPaymentRequired},
		{Provider(CodeProviderUnreachable, "down", nil), http.StatusBadGateway},
		{Persistence(CodeOrderUpsertFailed, "db", nil), http.StatusInternalServerError},
		{MissingProviderKey(), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Code, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.HTTPStatus())
		})
	}
}

func TestKindHelpersSeeThroughWrapping(t *testing.T) {
	base := NotFound(CodeRouteNotFound, "route not found")
	wrapped := fmt.Errorf("resolve price: %w", base)

	assert.True(t, IsNotFound(wrapped))
	assert.True(t, HasCode(wrapped, CodeRouteNotFound))
	assert.False(t, IsValidation(wrapped))
	assert.False(t, IsNotFound(errors.New("plain")))
}

func TestErrorMessageIncludesCause(t *testing.T) {
	err := Persistence(CodeBookingCreateFailed, "failed to create booking", errors.New("connection reset"))
	assert.Equal(t, "failed to create booking: connection reset", err.Error())
	assert.ErrorContains(t, err, "connection reset")
}
