package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"carpool/internal/domain"
	"carpool/internal/observability"
	"carpool/internal/repository"
)

// RatingCache caches per-user rating summaries.
type RatingCache interface {
	GetUserRatings(ctx context.Context, userID string) (*domain.UserRatings, error)
	SetUserRatings(ctx context.Context, summary *domain.UserRatings) error
	InvalidateUserRatings(ctx context.Context, userIDs ...string) error
}

// ConfirmationService records pickup confirmations and closes trips once
// every participant confirmed.
type ConfirmationService struct {
	lifecycle           *Lifecycle
	confirmationRepo    repository.ConfirmationRepository
	cache               RatingCache
	notificationService *NotificationService
	logger              logrus.FieldLogger
}

// NewConfirmationService creates a new ConfirmationService.
func NewConfirmationService(
	lifecycle *Lifecycle,
	confirmationRepo repository.ConfirmationRepository,
	cache RatingCache,
	notificationService *NotificationService,
	logger logrus.FieldLogger,
) *ConfirmationService {
	return &ConfirmationService{
		lifecycle:           lifecycle,
		confirmationRepo:    confirmationRepo,
		cache:               cache,
		notificationService: notificationService,
		logger:              logger,
	}
}

// ConfirmRequest contains the parameters for a pickup confirmation.
type ConfirmRequest struct {
	TripID      string
	UserID      string
	Role        domain.Role
	IsConfirmed bool
}

// ConfirmResult is the outcome of a confirmation.
type ConfirmResult struct {
	Confirmation *domain.Confirmation
	Trip         *domain.Trip
	// TripCompleted is set when this confirmation closed the trip.
	TripCompleted bool
}

// Confirm records that the caller attests pickup on a trip.
func (s *ConfirmationService) Confirm(ctx context.Context, req ConfirmRequest) (*ConfirmResult, error) {
	if req.UserID == "" {
		return nil, ErrInvalidUserID
	}

	if !req.Role.Valid() {
		return nil, ErrInvalidRole
	}

	trip, err := s.lifecycle.load(ctx, req.TripID)
	if err != nil {
		return nil, err
	}

	if err := checkEligible(trip, req.UserID, req.Role); err != nil {
		return nil, err
	}

	c, err := s.record(ctx, trip.ID, req.UserID, req.Role, req.IsConfirmed)
	if err != nil {
		return nil, err
	}

	trip, closed, err := s.lifecycle.settle(ctx, trip.ID, req.UserID, req.Role, c.IsConfirmed)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"trip_id":      trip.ID,
		"user_id":      req.UserID,
		"role":         req.Role,
		"is_confirmed": req.IsConfirmed,
		"closed":       closed,
	}).Info("pickup confirmed")

	_ = s.notificationService.NotifyPickupConfirmed(ctx, trip, *c)
	if closed {
		_ = s.notificationService.NotifyTripCompleted(ctx, trip)
	}

	return &ConfirmResult{Confirmation: c, Trip: trip, TripCompleted: closed}, nil
}

// record inserts the confirmation. The Exists lookup only short-circuits
// the common case; the unique index decides races.
func (s *ConfirmationService) record(ctx context.Context, tripID, userID string, role domain.Role, isConfirmed bool) (*domain.Confirmation, error) {
	exists, err := s.confirmationRepo.Exists(ctx, tripID, userID, role)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrAlreadyConfirmed
	}

	c := &domain.Confirmation{
		ID:          uuid.New().String(),
		TripID:      tripID,
		UserID:      userID,
		Role:        role,
		IsConfirmed: isConfirmed,
		ConfirmedAt: s.lifecycle.Now(),
	}
	if err := s.confirmationRepo.Create(ctx, c); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrAlreadyConfirmed
		}
		return nil, err
	}
	observability.Confirmations.WithLabelValues(string(role)).Inc()

	if err := s.cache.InvalidateUserRatings(ctx, userID); err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Warn("failed to invalidate rating cache")
	}

	return c, nil
}

// checkEligible verifies the caller holds role on the trip.
func checkEligible(trip *domain.Trip, userID string, role domain.Role) error {
	switch role {
	case domain.RoleDriver:
		if trip.DriverID != userID {
			return ErrNotTripOwner
		}
	case domain.RolePassenger:
		if !trip.IsAcceptedPassenger(userID) {
			return ErrNotAcceptedPassenger
		}
	default:
		return ErrInvalidRole
	}
	return nil
}
