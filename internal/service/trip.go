package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"carpool/internal/domain"
	"carpool/internal/observability"
	"carpool/internal/repository"
)

// TripService handles trip offers: creation, search, edits and the
// per-user trip list.
type TripService struct {
	lifecycle           *Lifecycle
	tripRepo            repository.TripRepository
	confirmationRepo    repository.ConfirmationRepository
	ratingRepo          repository.RatingRepository
	notificationService *NotificationService
	logger              logrus.FieldLogger
}

// NewTripService creates a new TripService.
func NewTripService(
	lifecycle *Lifecycle,
	tripRepo repository.TripRepository,
	confirmationRepo repository.ConfirmationRepository,
	ratingRepo repository.RatingRepository,
	notificationService *NotificationService,
	logger logrus.FieldLogger,
) *TripService {
	return &TripService{
		lifecycle:           lifecycle,
		tripRepo:            tripRepo,
		confirmationRepo:    confirmationRepo,
		ratingRepo:          ratingRepo,
		notificationService: notificationService,
		logger:              logger,
	}
}

// CreateTripRequest contains the parameters for offering a trip.
type CreateTripRequest struct {
	DriverID    string
	Departure   string
	Arrival     string
	Date        string
	Time        string
	ArrivalTime string
	Distance    string
	Duration    string
	Vehicle     string
	Seats       int
}

// CreateTrip validates and stores a new active trip.
func (s *TripService) CreateTrip(ctx context.Context, req CreateTripRequest) (*domain.Trip, error) {
	if req.DriverID == "" {
		return nil, ErrInvalidUserID
	}

	if isBlank(req.Departure, req.Arrival, req.Date, req.Time, req.ArrivalTime, req.Distance, req.Duration) {
		return nil, ErrMissingFields
	}

	if req.Seats < 1 {
		return nil, ErrInvalidSeats
	}

	date, err := domain.ParseDate(req.Date)
	if err != nil {
		return nil, err
	}

	if _, err := time.Parse(domain.ClockLayout, req.Time); err != nil {
		return nil, ErrInvalidClock
	}
	if _, err := time.Parse(domain.ClockLayout, req.ArrivalTime); err != nil {
		return nil, ErrInvalidClock
	}

	now := s.lifecycle.Now()
	trip := &domain.Trip{
		ID:             uuid.New().String(),
		DriverID:       req.DriverID,
		Departure:      strings.TrimSpace(req.Departure),
		Arrival:        strings.TrimSpace(req.Arrival),
		Date:           date,
		Time:           req.Time,
		ArrivalTime:    req.ArrivalTime,
		Distance:       req.Distance,
		Duration:       req.Duration,
		Vehicle:        req.Vehicle,
		Seats:          req.Seats,
		AvailableSeats: req.Seats,
		Status:         domain.TripStatusActive,
		Requests:       []domain.TripRequest{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.tripRepo.Create(ctx, trip); err != nil {
		return nil, err
	}
	observability.TripsCreated.Inc()

	s.logger.WithFields(logrus.Fields{
		"trip_id":   trip.ID,
		"driver_id": trip.DriverID,
		"seats":     trip.Seats,
	}).Info("trip created")

	_ = s.notificationService.NotifyTripCreated(ctx, trip)

	return trip, nil
}

// ListTrips returns every trip, earliest departure first, with past-due
// trips lapsed.
func (s *TripService) ListTrips(ctx context.Context) ([]*domain.Trip, error) {
	trips, err := s.tripRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]*domain.Trip, 0, len(trips))
	for _, trip := range trips {
		result = append(result, s.lifecycle.observe(ctx, trip))
	}
	return result, nil
}

// SearchTripsRequest contains the search criteria.
type SearchTripsRequest struct {
	Departure string
	Arrival   string
	Date      string
	// UserID is the caller; their own trips and trips they already
	// requested are left out.
	UserID string
}

// SearchTrips returns active trips with free seats on a route and day.
func (s *TripService) SearchTrips(ctx context.Context, req SearchTripsRequest) ([]*domain.Trip, error) {
	if isBlank(req.Departure, req.Arrival, req.Date) {
		return nil, ErrMissingFields
	}

	date, err := domain.ParseDate(req.Date)
	if err != nil {
		return nil, err
	}
	start, end := domain.DayWindow(date)

	trips, err := s.tripRepo.Search(ctx, repository.TripSearch{
		Departure:     strings.TrimSpace(req.Departure),
		Arrival:       strings.TrimSpace(req.Arrival),
		DayStart:      start,
		DayEnd:        end,
		ExcludeUserID: req.UserID,
	})
	if err != nil {
		return nil, err
	}

	result := make([]*domain.Trip, 0, len(trips))
	for _, trip := range trips {
		trip = s.lifecycle.observe(ctx, trip)
		if trip.Status != domain.TripStatusActive {
			continue
		}
		result = append(result, trip)
	}
	return result, nil
}

// GetTrip retrieves a trip by ID.
func (s *TripService) GetTrip(ctx context.Context, tripID string) (*domain.Trip, error) {
	return s.lifecycle.load(ctx, tripID)
}

// UpdateTripRequest contains the parameters for editing a trip.
type UpdateTripRequest struct {
	TripID   string
	DriverID string
	Patch    domain.TripPatch
}

// UpdateTrip applies a driver's edit to their trip.
func (s *TripService) UpdateTrip(ctx context.Context, req UpdateTripRequest) (*domain.Trip, error) {
	if req.DriverID == "" {
		return nil, ErrInvalidUserID
	}

	trip, err := s.lifecycle.mutate(ctx, "update", req.TripID, func(trip *domain.Trip, _ time.Time) (bool, error) {
		if trip.DriverID != req.DriverID {
			return false, ErrNotTripOwner
		}
		if err := trip.ApplyPatch(req.Patch); err != nil {
			return false, err
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	_ = s.notificationService.NotifyTripUpdated(ctx, trip)

	return trip, nil
}

// DeleteTrip removes a driver's trip. Trips closed by confirmation or lapse
// are kept for the ledgers that reference them.
func (s *TripService) DeleteTrip(ctx context.Context, tripID, driverID string) error {
	if driverID == "" {
		return ErrInvalidUserID
	}

	trip, err := s.lifecycle.remove(ctx, tripID, func(trip *domain.Trip) error {
		if trip.DriverID != driverID {
			return ErrNotTripOwner
		}
		if trip.IsClosed() {
			return ErrTripClosed
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.WithField("trip_id", trip.ID).Info("trip deleted")
	_ = s.notificationService.NotifyTripDeleted(ctx, trip)

	return nil
}

// TripView is a trip as seen by one participant.
type TripView struct {
	Trip        *domain.Trip
	Role        domain.Role
	Status      domain.TripStatus
	NeedsRating bool
	// MyRequest is the viewer's request, for passengers.
	MyRequest *domain.TripRequest
}

// MyTrips lists the trips a user drives or has requested, newest first,
// flagging completed trips they still have to confirm and rate.
func (s *TripService) MyTrips(ctx context.Context, userID string) ([]TripView, error) {
	if userID == "" {
		return nil, ErrInvalidUserID
	}

	trips, err := s.tripRepo.ListByParticipant(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(trips) == 0 {
		return []TripView{}, nil
	}

	confirmations, err := s.confirmationRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	ratings, err := s.ratingRepo.ListGiven(ctx, userID)
	if err != nil {
		return nil, err
	}

	views := make([]TripView, 0, len(trips))
	for _, trip := range trips {
		trip = s.lifecycle.observe(ctx, trip)

		view := TripView{
			Trip:   trip,
			Role:   domain.RoleDriver,
			Status: trip.Status,
		}
		if trip.DriverID != userID {
			view.Role = domain.RolePassenger
			view.MyRequest = trip.RequestByPassenger(userID)
		}
		view.NeedsRating = domain.NeedsRating(trip, trip.Status, userID, confirmations, ratings)

		views = append(views, view)
	}
	return views, nil
}

func isBlank(values ...string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			return true
		}
	}
	return false
}
