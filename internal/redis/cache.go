package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"carpool/internal/domain"
)

// DefaultRatingsTTL bounds how stale a rating summary may get when an
// invalidation is lost.
const DefaultRatingsTTL = 5 * time.Minute

const ratingsCachePrefix = "cache:ratings:"

// CacheStore caches per-user rating summaries in Redis.
type CacheStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client *redis.Client, ttl time.Duration) *CacheStore {
	if ttl <= 0 {
		ttl = DefaultRatingsTTL
	}
	return &CacheStore{client: client, ttl: ttl}
}

type cachedName struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type cachedRating struct {
	ID           string     `json:"id"`
	TripID       string     `json:"trip_id"`
	FromUserID   string     `json:"from_user_id"`
	FromUserName cachedName `json:"from_user_name"`
	ToUserID     string     `json:"to_user_id"`
	ToUserName   cachedName `json:"to_user_name"`
	Rating       int        `json:"rating"`
	Role         string     `json:"role"`
	CreatedAt    time.Time  `json:"created_at"`
}

type cachedStats struct {
	Count          int     `json:"count"`
	Average        float64 `json:"average"`
	ConfirmedTrips int     `json:"confirmed_trips"`
}

// CachedUserRatings is the cached form of domain.UserRatings.
type CachedUserRatings struct {
	UserID      string         `json:"user_id"`
	Ratings     []cachedRating `json:"ratings"`
	AsDriver    cachedStats    `json:"as_driver"`
	AsPassenger cachedStats    `json:"as_passenger"`
}

// GetUserRatings retrieves a rating summary. A miss returns nil, nil.
func (s *CacheStore) GetUserRatings(ctx context.Context, userID string) (*domain.UserRatings, error) {
	data, err := s.client.Get(ctx, ratingsCachePrefix+userID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // Cache miss
		}
		return nil, err
	}

	var cached CachedUserRatings
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, err
	}
	return cached.toDomain(), nil
}

// SetUserRatings stores a rating summary.
func (s *CacheStore) SetUserRatings(ctx context.Context, summary *domain.UserRatings) error {
	data, err := json.Marshal(fromDomain(summary))
	if err != nil {
		return err
	}
	return s.client.Set(ctx, ratingsCachePrefix+summary.UserID, data, s.ttl).Err()
}

// InvalidateUserRatings drops the summaries of the given users.
func (s *CacheStore) InvalidateUserRatings(ctx context.Context, userIDs ...string) error {
	if len(userIDs) == 0 {
		return nil
	}

	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, ratingsCachePrefix+id)
	}
	return s.client.Del(ctx, keys...).Err()
}

func fromDomain(u *domain.UserRatings) CachedUserRatings {
	out := CachedUserRatings{
		UserID:      u.UserID,
		Ratings:     make([]cachedRating, 0, len(u.Ratings)),
		AsDriver:    cachedStats(u.AsDriver),
		AsPassenger: cachedStats(u.AsPassenger),
	}
	for _, r := range u.Ratings {
		out.Ratings = append(out.Ratings, cachedRating{
			ID:           r.ID,
			TripID:       r.TripID,
			FromUserID:   r.FromUserID,
			FromUserName: cachedName(r.FromUserName),
			ToUserID:     r.ToUserID,
			ToUserName:   cachedName(r.ToUserName),
			Rating:       r.Value,
			Role:         string(r.Role),
			CreatedAt:    r.CreatedAt,
		})
	}
	return out
}

func (c CachedUserRatings) toDomain() *domain.UserRatings {
	out := &domain.UserRatings{
		UserID:      c.UserID,
		Ratings:     make([]domain.Rating, 0, len(c.Ratings)),
		AsDriver:    domain.RoleStats(c.AsDriver),
		AsPassenger: domain.RoleStats(c.AsPassenger),
	}
	for _, r := range c.Ratings {
		out.Ratings = append(out.Ratings, domain.Rating{
			ID:           r.ID,
			TripID:       r.TripID,
			FromUserID:   r.FromUserID,
			FromUserName: domain.PersonName(r.FromUserName),
			ToUserID:     r.ToUserID,
			ToUserName:   domain.PersonName(r.ToUserName),
			Value:        r.Rating,
			Role:         domain.Role(r.Role),
			CreatedAt:    r.CreatedAt,
		})
	}
	return out
}
