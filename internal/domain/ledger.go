package domain

import "time"

// Role is the part a user plays on a trip.
type Role string

const (
	RoleDriver    Role = "driver"
	RolePassenger Role = "passenger"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleDriver || r == RolePassenger
}

// Counterpart returns the opposite role.
func (r Role) Counterpart() Role {
	if r == RoleDriver {
		return RolePassenger
	}
	return RoleDriver
}

// Confirmation records that one participant attested pickup. Unique per
// (TripID, UserID, Role); never updated.
type Confirmation struct {
	ID          string
	TripID      string
	UserID      string
	Role        Role
	IsConfirmed bool
	ConfirmedAt time.Time
}

// PersonName is a denormalized name snapshot.
type PersonName struct {
	FirstName string
	LastName  string
}

// Rating is one participant's score of their counterpart. Role is the role
// of the rater. Unique per (TripID, FromUserID, Role).
type Rating struct {
	ID           string
	TripID       string
	FromUserID   string
	FromUserName PersonName
	ToUserID     string
	ToUserName   PersonName
	Value        int
	Role         Role
	CreatedAt    time.Time
}

// Rating bounds.
const (
	MinRating = 1
	MaxRating = 5
)

// ValidRating reports whether v is an accepted score.
func ValidRating(v int) bool {
	return v >= MinRating && v <= MaxRating
}

// RoleStats summarizes the ratings a user received in one role.
type RoleStats struct {
	Count          int
	Average        float64
	ConfirmedTrips int
}

// Average returns the arithmetic mean of the values, or 0 when empty.
func Average(ratings []Rating) float64 {
	if len(ratings) == 0 {
		return 0
	}
	sum := 0
	for _, r := range ratings {
		sum += r.Value
	}
	return float64(sum) / float64(len(ratings))
}

// UserRatings is a user's received ratings with per-role summaries.
// AsDriver aggregates ratings given by passengers, AsPassenger those given
// by drivers.
type UserRatings struct {
	UserID      string
	Ratings     []Rating
	AsDriver    RoleStats
	AsPassenger RoleStats
}
