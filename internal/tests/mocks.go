package tests

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"carpool/internal/domain"
	"carpool/internal/events"
	"carpool/internal/repository"
)

// ──────────────────────────────────────────────
// MOCK TRIP REPOSITORY
// ──────────────────────────────────────────────

// MockTripRepository is a mock implementation of TripRepository with the
// same version check as the real stores.
type MockTripRepository struct {
	mu    sync.RWMutex
	trips map[string]*domain.Trip

	// Counters for verification
	SaveCallCount    int32
	ConflictCount    int32
	DeleteCallCount  int32
	GetByIDCallCount int32

	// ForceConflicts makes the next N saves fail with ErrVersionConflict.
	ForceConflicts int32

	// BeforeSave runs inside Save before the version check, outside the
	// lock. Tests use it to slip in a concurrent writer.
	BeforeSave func(trip *domain.Trip)

	// Error injection
	CreateError error
	SaveError   error
}

// NewMockTripRepository creates a new mock trip repository.
func NewMockTripRepository() *MockTripRepository {
	return &MockTripRepository{
		trips: make(map[string]*domain.Trip),
	}
}

// AddTrip adds a trip to the mock repository.
func (m *MockTripRepository) AddTrip(trip *domain.Trip) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if trip.Version == 0 {
		trip.Version = 1
	}
	m.trips[trip.ID] = cloneTrip(trip)
}

func (m *MockTripRepository) Create(ctx context.Context, trip *domain.Trip) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.trips[trip.ID]; ok {
		return repository.ErrDuplicate
	}
	trip.Version = 1
	m.trips[trip.ID] = cloneTrip(trip)
	return nil
}

func (m *MockTripRepository) GetByID(ctx context.Context, id string) (*domain.Trip, error) {
	atomic.AddInt32(&m.GetByIDCallCount, 1)
	m.mu.RLock()
	defer m.mu.RUnlock()
	trip, ok := m.trips[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneTrip(trip), nil
}

func (m *MockTripRepository) List(ctx context.Context) ([]*domain.Trip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Trip, 0, len(m.trips))
	for _, t := range m.trips {
		result = append(result, cloneTrip(t))
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.Before(result[j].Date)
		}
		return result[i].Time < result[j].Time
	})
	return result, nil
}

func (m *MockTripRepository) Search(ctx context.Context, c repository.TripSearch) ([]*domain.Trip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Trip
	for _, t := range m.trips {
		if t.Departure != c.Departure || t.Arrival != c.Arrival {
			continue
		}
		if t.Date.Before(c.DayStart) || t.Date.After(c.DayEnd) {
			continue
		}
		if t.AvailableSeats <= 0 || t.Status != domain.TripStatusActive {
			continue
		}
		if c.ExcludeUserID != "" && (t.DriverID == c.ExcludeUserID || t.RequestByPassenger(c.ExcludeUserID) != nil) {
			continue
		}
		result = append(result, cloneTrip(t))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Time < result[j].Time })
	return result, nil
}

func (m *MockTripRepository) ListByParticipant(ctx context.Context, userID string) ([]*domain.Trip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Trip
	for _, t := range m.trips {
		if t.DriverID == userID || t.RequestByPassenger(userID) != nil {
			result = append(result, cloneTrip(t))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.After(result[j].Date) })
	return result, nil
}

func (m *MockTripRepository) Save(ctx context.Context, trip *domain.Trip) error {
	atomic.AddInt32(&m.SaveCallCount, 1)
	if m.SaveError != nil {
		return m.SaveError
	}
	if m.BeforeSave != nil {
		m.BeforeSave(trip)
	}
	if atomic.AddInt32(&m.ForceConflicts, -1) >= 0 {
		atomic.AddInt32(&m.ConflictCount, 1)
		return repository.ErrVersionConflict
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.trips[trip.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if stored.Version != trip.Version {
		atomic.AddInt32(&m.ConflictCount, 1)
		return repository.ErrVersionConflict
	}
	trip.Version++
	m.trips[trip.ID] = cloneTrip(trip)
	return nil
}

func (m *MockTripRepository) Delete(ctx context.Context, id string, version int64) error {
	atomic.AddInt32(&m.DeleteCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.trips[id]
	if !ok {
		return repository.ErrNotFound
	}
	if stored.Version != version {
		return repository.ErrVersionConflict
	}
	delete(m.trips, id)
	return nil
}

// GetTrip returns a copy of the stored trip for test assertions.
func (m *MockTripRepository) GetTrip(id string) *domain.Trip {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.trips[id]
	if !ok {
		return nil
	}
	return cloneTrip(t)
}

func cloneTrip(t *domain.Trip) *domain.Trip {
	c := *t
	c.Requests = append([]domain.TripRequest(nil), t.Requests...)
	return &c
}

// ──────────────────────────────────────────────
// MOCK CONFIRMATION REPOSITORY
// ──────────────────────────────────────────────

// MockConfirmationRepository is a mock confirmation ledger with the
// (trip, user, role) unique key.
type MockConfirmationRepository struct {
	mu            sync.RWMutex
	confirmations []domain.Confirmation

	// Counters for verification
	CreateCallCount int32

	// ExistsAlwaysFalse skips the advisory check, as when two writers
	// race past it.
	ExistsAlwaysFalse bool

	// Error injection
	CreateError error
}

// NewMockConfirmationRepository creates a new mock confirmation repository.
func NewMockConfirmationRepository() *MockConfirmationRepository {
	return &MockConfirmationRepository{}
}

func (m *MockConfirmationRepository) Create(ctx context.Context, c *domain.Confirmation) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.confirmations {
		if existing.TripID == c.TripID && existing.UserID == c.UserID && existing.Role == c.Role {
			return repository.ErrDuplicate
		}
	}
	m.confirmations = append(m.confirmations, *c)
	return nil
}

func (m *MockConfirmationRepository) Exists(ctx context.Context, tripID, userID string, role domain.Role) (bool, error) {
	if m.ExistsAlwaysFalse {
		return false, nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.confirmations {
		if c.TripID == tripID && c.UserID == userID && c.Role == role {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockConfirmationRepository) ListByTrip(ctx context.Context, tripID string) ([]domain.Confirmation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []domain.Confirmation
	for _, c := range m.confirmations {
		if c.TripID == tripID {
			result = append(result, c)
		}
	}
	return result, nil
}

func (m *MockConfirmationRepository) ListByUser(ctx context.Context, userID string) ([]domain.Confirmation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []domain.Confirmation
	for _, c := range m.confirmations {
		if c.UserID == userID {
			result = append(result, c)
		}
	}
	return result, nil
}

func (m *MockConfirmationRepository) CountConfirmed(ctx context.Context, userID string, role domain.Role) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, c := range m.confirmations {
		if c.UserID == userID && c.Role == role && c.IsConfirmed {
			n++
		}
	}
	return n, nil
}

// Count returns the number of stored confirmations.
func (m *MockConfirmationRepository) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.confirmations)
}

// ──────────────────────────────────────────────
// MOCK RATING REPOSITORY
// ──────────────────────────────────────────────

// MockRatingRepository is a mock rating ledger with the
// (trip, rater, role) unique key.
type MockRatingRepository struct {
	mu      sync.RWMutex
	ratings []domain.Rating

	// Counters for verification
	CreateCallCount int32

	// ExistsAlwaysFalse skips the advisory check.
	ExistsAlwaysFalse bool
}

// NewMockRatingRepository creates a new mock rating repository.
func NewMockRatingRepository() *MockRatingRepository {
	return &MockRatingRepository{}
}

// AddRating seeds a rating.
func (m *MockRatingRepository) AddRating(r domain.Rating) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ratings = append(m.ratings, r)
}

func (m *MockRatingRepository) Create(ctx context.Context, r *domain.Rating) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.ratings {
		if existing.TripID == r.TripID && existing.FromUserID == r.FromUserID && existing.Role == r.Role {
			return repository.ErrDuplicate
		}
	}
	m.ratings = append(m.ratings, *r)
	return nil
}

func (m *MockRatingRepository) Exists(ctx context.Context, tripID, fromUserID string, role domain.Role) (bool, error) {
	if m.ExistsAlwaysFalse {
		return false, nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.ratings {
		if r.TripID == tripID && r.FromUserID == fromUserID && r.Role == role {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockRatingRepository) ListReceived(ctx context.Context, toUserID string) ([]domain.Rating, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []domain.Rating
	for _, r := range m.ratings {
		if r.ToUserID == toUserID {
			result = append(result, r)
		}
	}
	return result, nil
}

func (m *MockRatingRepository) ListGiven(ctx context.Context, fromUserID string) ([]domain.Rating, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []domain.Rating
	for _, r := range m.ratings {
		if r.FromUserID == fromUserID {
			result = append(result, r)
		}
	}
	return result, nil
}

func (m *MockRatingRepository) Average(ctx context.Context, toUserID string, raterRole domain.Role) (float64, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var matched []domain.Rating
	for _, r := range m.ratings {
		if r.ToUserID == toUserID && r.Role == raterRole {
			matched = append(matched, r)
		}
	}
	return domain.Average(matched), len(matched), nil
}

// Count returns the number of stored ratings.
func (m *MockRatingRepository) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.ratings)
}

// ──────────────────────────────────────────────
// MOCK USER REPOSITORY
// ──────────────────────────────────────────────

// MockUserRepository is a mock implementation of UserRepository.
type MockUserRepository struct {
	mu    sync.RWMutex
	users map[string]*domain.UserProfile

	// Counters for verification
	UpdateRatingCallCount int32
}

// NewMockUserRepository creates a new mock user repository.
func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		users: make(map[string]*domain.UserProfile),
	}
}

// AddUser adds a profile to the mock repository.
func (m *MockUserRepository) AddUser(u *domain.UserProfile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*domain.UserProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *u
	return &copy, nil
}

func (m *MockUserRepository) UpdateRating(ctx context.Context, userID string, role domain.Role, average float64) error {
	atomic.AddInt32(&m.UpdateRatingCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	if role == domain.RoleDriver {
		u.DriverRating = average
	} else {
		u.PassengerRating = average
	}
	return nil
}

// GetUser returns a copy of the stored profile for test assertions.
func (m *MockUserRepository) GetUser(id string) *domain.UserProfile {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil
	}
	copy := *u
	return &copy
}

// ──────────────────────────────────────────────
// MOCK RATING CACHE
// ──────────────────────────────────────────────

// MockRatingCache is an in-memory rating summary cache.
type MockRatingCache struct {
	mu      sync.Mutex
	entries map[string]*domain.UserRatings

	// Counters for verification
	HitCount        int32
	InvalidateCount int32
}

// NewMockRatingCache creates a new mock rating cache.
func NewMockRatingCache() *MockRatingCache {
	return &MockRatingCache{entries: make(map[string]*domain.UserRatings)}
}

func (m *MockRatingCache) GetUserRatings(ctx context.Context, userID string) (*domain.UserRatings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.entries[userID]
	if !ok {
		return nil, nil
	}
	atomic.AddInt32(&m.HitCount, 1)
	return u, nil
}

func (m *MockRatingCache) SetUserRatings(ctx context.Context, summary *domain.UserRatings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[summary.UserID] = summary
	return nil
}

func (m *MockRatingCache) InvalidateUserRatings(ctx context.Context, userIDs ...string) error {
	atomic.AddInt32(&m.InvalidateCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range userIDs {
		delete(m.entries, id)
	}
	return nil
}

// ──────────────────────────────────────────────
// MOCK EVENT PUBLISHER
// ──────────────────────────────────────────────

// MockPublisher records published events.
type MockPublisher struct {
	mu     sync.Mutex
	events []events.Event

	// Error injection
	PublishError error
}

// NewMockPublisher creates a new mock publisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) Publish(ctx context.Context, evts ...events.Event) error {
	if m.PublishError != nil {
		return m.PublishError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, evts...)
	return nil
}

func (m *MockPublisher) Close() error { return nil }

// CountType returns how many events of typ were published.
func (m *MockPublisher) CountType(typ events.Type) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.events {
		if e.Type == typ {
			n++
		}
	}
	return n
}

// Ensure mocks implement interfaces.
var (
	_ repository.TripRepository         = (*MockTripRepository)(nil)
	_ repository.ConfirmationRepository = (*MockConfirmationRepository)(nil)
	_ repository.RatingRepository       = (*MockRatingRepository)(nil)
	_ repository.UserRepository         = (*MockUserRepository)(nil)
	_ events.Publisher                  = (*MockPublisher)(nil)
)
