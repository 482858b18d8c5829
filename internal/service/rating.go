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

// RatingService records ratings between trip participants and maintains
// the rated user's average.
type RatingService struct {
	lifecycle           *Lifecycle
	ratingRepo          repository.RatingRepository
	confirmationRepo    repository.ConfirmationRepository
	userRepo            repository.UserRepository
	cache               RatingCache
	notificationService *NotificationService
	logger              logrus.FieldLogger
}

// NewRatingService creates a new RatingService.
func NewRatingService(
	lifecycle *Lifecycle,
	ratingRepo repository.RatingRepository,
	confirmationRepo repository.ConfirmationRepository,
	userRepo repository.UserRepository,
	cache RatingCache,
	notificationService *NotificationService,
	logger logrus.FieldLogger,
) *RatingService {
	return &RatingService{
		lifecycle:           lifecycle,
		ratingRepo:          ratingRepo,
		confirmationRepo:    confirmationRepo,
		userRepo:            userRepo,
		cache:               cache,
		notificationService: notificationService,
		logger:              logger,
	}
}

// RateRequest contains the parameters for rating a counterpart.
type RateRequest struct {
	TripID  string
	RaterID string
	// Role is the role of the rater. Passengers rate the driver; drivers
	// rate one accepted passenger named by TargetUserID.
	Role         domain.Role
	TargetUserID string
	Value        int
	// IsConfirmed also records the rater's pickup confirmation.
	IsConfirmed bool
}

// RateResult is the outcome of a rating.
type RateResult struct {
	Rating        *domain.Rating
	Average       float64
	Trip          *domain.Trip
	TripCompleted bool
}

// Rate stores a rating and refreshes the rated user's average.
func (s *RatingService) Rate(ctx context.Context, req RateRequest) (*RateResult, error) {
	if req.RaterID == "" {
		return nil, ErrInvalidUserID
	}

	if !req.Role.Valid() {
		return nil, ErrInvalidRole
	}

	if !domain.ValidRating(req.Value) {
		return nil, ErrInvalidRating
	}

	trip, err := s.lifecycle.load(ctx, req.TripID)
	if err != nil {
		return nil, err
	}

	if err := checkEligible(trip, req.RaterID, req.Role); err != nil {
		return nil, err
	}

	targetID, err := ratingTarget(trip, req)
	if err != nil {
		return nil, err
	}

	exists, err := s.ratingRepo.Exists(ctx, trip.ID, req.RaterID, req.Role)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrAlreadyRated
	}

	confirmed := false
	if req.IsConfirmed {
		confirmed, err = s.confirmQuietly(ctx, trip.ID, req.RaterID, req.Role)
		if err != nil {
			return nil, err
		}
	}

	rating, average, err := s.record(ctx, trip.ID, targetID, req)
	if err != nil {
		if confirmed {
			// The confirmation is committed even though the rating is not.
			s.settleConfirmation(ctx, trip.ID, req.RaterID, req.Role)
		}
		return nil, err
	}

	if err := s.cache.InvalidateUserRatings(ctx, targetID, req.RaterID); err != nil {
		s.logger.WithError(err).WithField("user_id", targetID).Warn("failed to invalidate rating cache")
	}

	trip, closed, err := s.lifecycle.settle(ctx, trip.ID, req.RaterID, req.Role, confirmed)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"trip_id": trip.ID,
		"from":    req.RaterID,
		"to":      targetID,
		"role":    req.Role,
		"rating":  req.Value,
		"average": average,
		"closed":  closed,
	}).Info("rating submitted")

	_ = s.notificationService.NotifyRatingSubmitted(ctx, trip, *rating, average)
	if closed {
		_ = s.notificationService.NotifyTripCompleted(ctx, trip)
	}

	return &RateResult{Rating: rating, Average: average, Trip: trip, TripCompleted: closed}, nil
}

// UserRatings returns the ratings a user received with per-role stats.
func (s *RatingService) UserRatings(ctx context.Context, userID string) (*domain.UserRatings, error) {
	if userID == "" {
		return nil, ErrInvalidUserID
	}

	cached, err := s.cache.GetUserRatings(ctx, userID)
	if err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Warn("rating cache read failed")
	}
	if cached != nil {
		return cached, nil
	}

	ratings, err := s.ratingRepo.ListReceived(ctx, userID)
	if err != nil {
		return nil, err
	}

	var fromPassengers, fromDrivers []domain.Rating
	for _, r := range ratings {
		if r.Role == domain.RolePassenger {
			fromPassengers = append(fromPassengers, r)
		} else {
			fromDrivers = append(fromDrivers, r)
		}
	}

	drove, err := s.confirmationRepo.CountConfirmed(ctx, userID, domain.RoleDriver)
	if err != nil {
		return nil, err
	}
	rode, err := s.confirmationRepo.CountConfirmed(ctx, userID, domain.RolePassenger)
	if err != nil {
		return nil, err
	}

	if ratings == nil {
		ratings = []domain.Rating{}
	}
	summary := &domain.UserRatings{
		UserID:  userID,
		Ratings: ratings,
		AsDriver: domain.RoleStats{
			Count:          len(fromPassengers),
			Average:        domain.Average(fromPassengers),
			ConfirmedTrips: drove,
		},
		AsPassenger: domain.RoleStats{
			Count:          len(fromDrivers),
			Average:        domain.Average(fromDrivers),
			ConfirmedTrips: rode,
		},
	}

	if err := s.cache.SetUserRatings(ctx, summary); err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Warn("rating cache write failed")
	}

	return summary, nil
}

// record stores the rating and writes the target's new average to their
// profile.
func (s *RatingService) record(ctx context.Context, tripID, targetID string, req RateRequest) (*domain.Rating, float64, error) {
	fromName, err := s.nameOf(ctx, req.RaterID)
	if err != nil {
		return nil, 0, err
	}
	toName, err := s.nameOf(ctx, targetID)
	if err != nil {
		return nil, 0, err
	}

	rating := &domain.Rating{
		ID:           uuid.New().String(),
		TripID:       tripID,
		FromUserID:   req.RaterID,
		FromUserName: fromName,
		ToUserID:     targetID,
		ToUserName:   toName,
		Value:        req.Value,
		Role:         req.Role,
		CreatedAt:    s.lifecycle.Now(),
	}
	if err := s.ratingRepo.Create(ctx, rating); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, 0, ErrAlreadyRated
		}
		return nil, 0, err
	}
	observability.Ratings.WithLabelValues(string(req.Role)).Inc()

	average, _, err := s.ratingRepo.Average(ctx, targetID, req.Role)
	if err != nil {
		return nil, 0, err
	}

	// The rated user acts in the counterpart role.
	err = s.userRepo.UpdateRating(ctx, targetID, req.Role.Counterpart(), average)
	if errors.Is(err, repository.ErrNotFound) {
		s.logger.WithField("user_id", targetID).Warn("rated user has no profile, average not stored")
	} else if err != nil {
		return nil, 0, err
	}

	return rating, average, nil
}

// settleConfirmation re-evaluates closure for a confirmation committed by a
// rating call that failed afterwards. Errors are logged; the caller already
// reports the rating failure.
func (s *RatingService) settleConfirmation(ctx context.Context, tripID, userID string, role domain.Role) {
	log := s.logger.WithFields(logrus.Fields{"trip_id": tripID, "user_id": userID, "role": role})

	if err := s.cache.InvalidateUserRatings(ctx, userID); err != nil {
		log.WithError(err).Warn("failed to invalidate rating cache")
	}

	trip, closed, err := s.lifecycle.settle(ctx, tripID, userID, role, true)
	if err != nil {
		log.WithError(err).Error("failed to settle trip after rating failure")
		return
	}
	if closed {
		log.Info("trip completed by confirmation")
		_ = s.notificationService.NotifyTripCompleted(ctx, trip)
	}
}

// confirmQuietly records a positive confirmation on the rating path. An
// existing confirmation is accepted; it reports whether one was inserted.
func (s *RatingService) confirmQuietly(ctx context.Context, tripID, userID string, role domain.Role) (bool, error) {
	c := &domain.Confirmation{
		ID:          uuid.New().String(),
		TripID:      tripID,
		UserID:      userID,
		Role:        role,
		IsConfirmed: true,
		ConfirmedAt: s.lifecycle.Now(),
	}
	err := s.confirmationRepo.Create(ctx, c)
	if errors.Is(err, repository.ErrDuplicate) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	observability.Confirmations.WithLabelValues(string(role)).Inc()
	return true, nil
}

func (s *RatingService) nameOf(ctx context.Context, userID string) (domain.PersonName, error) {
	profile, err := s.userRepo.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.PersonName{}, nil
	}
	if err != nil {
		return domain.PersonName{}, err
	}
	return profile.Name(), nil
}

// ratingTarget resolves who is being rated.
func ratingTarget(trip *domain.Trip, req RateRequest) (string, error) {
	if req.Role == domain.RolePassenger {
		return trip.DriverID, nil
	}

	if req.TargetUserID == "" {
		return "", ErrInvalidUserID
	}
	if req.TargetUserID == req.RaterID {
		return "", ErrSelfRating
	}
	if !trip.IsAcceptedPassenger(req.TargetUserID) {
		return "", ErrTargetNotPassenger
	}
	return req.TargetUserID, nil
}
