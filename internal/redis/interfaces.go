package redis

import (
	"context"

	"carpool/internal/domain"
)

// RatingCacheInterface defines the rating summary cache operations.
type RatingCacheInterface interface {
	GetUserRatings(ctx context.Context, userID string) (*domain.UserRatings, error)
	SetUserRatings(ctx context.Context, summary *domain.UserRatings) error
	InvalidateUserRatings(ctx context.Context, userIDs ...string) error
}

// Ensure concrete types implement interfaces.
var _ RatingCacheInterface = (*CacheStore)(nil)
