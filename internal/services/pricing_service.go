package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/bus-booking-backend/internal/apperrors"
	"github.com/smarttransit/bus-booking-backend/internal/database"
)

// PricingService resolves the amount to charge in minor currency units
type PricingService struct {
	routes RouteStore
	cache  PriceCache
	logger *logrus.Logger
}

// NewPricingService creates a PricingService. cache may be nil.
func NewPricingService(routes RouteStore, cache PriceCache, logger *logrus.Logger) *PricingService {
	return &PricingService{routes: routes, cache: cache, logger: logger}
}

// Resolve returns the route's price when routeID is set, otherwise amount.
// A route id takes precedence over an amount.
func (s *PricingService) Resolve(ctx context.Context, routeID *uuid.UUID, amount *int64) (int64, error) {
	if routeID != nil {
		return s.routePrice(ctx, *routeID)
	}
	if amount == nil {
		return 0, apperrors.Validation(apperrors.CodeMissingPrice, "either route_id or amount is required")
	}
	if *amount < 1 {
		return 0, apperrors.Validation(apperrors.CodeMissingPrice, "amount must be a positive integer in minor units")
	}
	return *amount, nil
}

func (s *PricingService) routePrice(ctx context.Context, routeID uuid.UUID) (int64, error) {
	log := s.logger.WithField("route_id", routeID)

	if s.cache != nil {
		price, ok, err := s.cache.Get(ctx, routeID)
		if err != nil {
			log.WithError(err).Warn("Price cache read failed, falling back to database")
		} else if ok {
			return price, nil
		}
	}

	price, err := s.routes.GetPrice(ctx, routeID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return 0, apperrors.NotFound(apperrors.CodeRouteNotFound, "route not found")
		}
		return 0, apperrors.Persistence(apperrors.CodePersistenceFailure, "failed to load route price", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, routeID, price); err != nil {
			log.WithError(err).Warn("Price cache write failed")
		}
	}
	return price, nil
}

// Invalidate drops a cached route price after the route changed
func (s *PricingService) Invalidate(ctx context.Context, routeID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, routeID); err != nil {
		s.logger.WithError(err).WithField("route_id", routeID).Warn("Price cache invalidation failed")
	}
}
