package domain

// UserProfile is the subset of the user record this service reads and
// writes. Accounts are owned elsewhere.
type UserProfile struct {
	ID              string
	FirstName       string
	LastName        string
	DriverRating    float64
	PassengerRating float64
}

// Name returns the profile's name snapshot.
func (u *UserProfile) Name() PersonName {
	if u == nil {
		return PersonName{}
	}
	return PersonName{FirstName: u.FirstName, LastName: u.LastName}
}

// Principal is the verified caller identity carried by the auth token.
type Principal struct {
	ID    string
	Email string
	Role  string
}
