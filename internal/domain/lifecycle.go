package domain

import "time"

// ArrivalAt returns the scheduled arrival instant of the trip in loc. An
// arrival clock earlier than the departure clock falls on the next day.
func (t *Trip) ArrivalAt(loc *time.Location) (time.Time, bool) {
	arr, err := time.Parse(ClockLayout, t.ArrivalTime)
	if err != nil {
		return time.Time{}, false
	}
	at := time.Date(t.Date.Year(), t.Date.Month(), t.Date.Day(), arr.Hour(), arr.Minute(), 0, 0, loc)

	if dep, err := time.Parse(ClockLayout, t.Time); err == nil {
		if arr.Hour()*60+arr.Minute() < dep.Hour()*60+dep.Minute() {
			at = at.AddDate(0, 0, 1)
		}
	}
	return at, true
}

// EffectiveStatus is the status a reader should see at now: an active trip
// past its scheduled arrival reads as completed.
func EffectiveStatus(t *Trip, now time.Time, loc *time.Location) TripStatus {
	if t.Status != TripStatusActive {
		return t.Status
	}
	if t.pastArrival(now, loc) {
		return TripStatusCompleted
	}
	return t.Status
}

// Lapse closes a trip whose scheduled arrival has passed. Active trips and
// trips that are only full both become completed with reason lapsed. It
// reports whether the trip changed.
func (t *Trip) Lapse(now time.Time, loc *time.Location) bool {
	if t.IsClosed() || !t.pastArrival(now, loc) {
		return false
	}
	t.Status = TripStatusCompleted
	t.CompletionReason = CompletionLapsed
	t.CompletedAt = &now
	return true
}

func (t *Trip) pastArrival(now time.Time, loc *time.Location) bool {
	at, ok := t.ArrivalAt(loc)
	return ok && now.After(at)
}

// CanClose reports whether every party has confirmed pickup: a positive
// driver confirmation exists and each accepted passenger has a positive
// passenger confirmation. Negative confirmations do not count.
func CanClose(driverID string, acceptedPassengerIDs []string, confirmations []Confirmation) bool {
	driverConfirmed := false
	confirmedPassengers := make(map[string]bool, len(confirmations))

	for _, c := range confirmations {
		if !c.IsConfirmed {
			continue
		}
		switch c.Role {
		case RoleDriver:
			if c.UserID == driverID {
				driverConfirmed = true
			}
		case RolePassenger:
			confirmedPassengers[c.UserID] = true
		}
	}

	if !driverConfirmed {
		return false
	}
	for _, id := range acceptedPassengerIDs {
		if !confirmedPassengers[id] {
			return false
		}
	}
	return true
}

// Close marks the trip completed by confirmation. A trip already completed
// for another reason keeps its original completion time.
func (t *Trip) Close(now time.Time) bool {
	if t.Status == TripStatusCompleted && t.CompletionReason == CompletionConfirmed {
		return false
	}
	t.Status = TripStatusCompleted
	t.CompletionReason = CompletionConfirmed
	if t.CompletedAt == nil {
		t.CompletedAt = &now
	}
	return true
}

// Reevaluate closes the trip when the confirmation ledger allows it.
func (t *Trip) Reevaluate(confirmations []Confirmation, now time.Time) bool {
	if !CanClose(t.DriverID, t.AcceptedPassengerIDs(), confirmations) {
		return false
	}
	return t.Close(now)
}

// MarkPickup stamps the request pickup fields for a new confirmation. A
// driver confirmation marks every accepted passenger as picked up; a
// passenger confirmation marks their own request.
func (t *Trip) MarkPickup(userID string, role Role, now time.Time) bool {
	changed := false
	for i := range t.Requests {
		r := &t.Requests[i]
		if r.Status != RequestStatusAccepted {
			continue
		}
		switch {
		case role == RoleDriver && !r.IsPickedUp:
			r.IsPickedUp = true
			r.PickedUpAt = &now
			changed = true
		case role == RolePassenger && r.PassengerID == userID && !r.PickupConfirmedByPassenger:
			r.PickupConfirmedByPassenger = true
			r.PickupConfirmedByPassengerAt = &now
			changed = true
		}
	}
	return changed
}

// RoleOn returns the role userID holds on the trip, if any. Drivers win
// over passengers; a pending or rejected request grants no role.
func (t *Trip) RoleOn(userID string) (Role, bool) {
	if t.DriverID == userID {
		return RoleDriver, true
	}
	if t.IsAcceptedPassenger(userID) {
		return RolePassenger, true
	}
	return "", false
}

// NeedsRating reports whether userID still owes the confirm-and-rate step on
// a completed trip. status is the effective status at read time.
func NeedsRating(t *Trip, status TripStatus, userID string, confirmations []Confirmation, ratings []Rating) bool {
	if status != TripStatusCompleted {
		return false
	}
	role, ok := t.RoleOn(userID)
	if !ok {
		return false
	}

	confirmed := false
	for _, c := range confirmations {
		if c.TripID == t.ID && c.UserID == userID && c.Role == role && c.IsConfirmed {
			confirmed = true
			break
		}
	}
	rated := false
	for _, r := range ratings {
		if r.TripID == t.ID && r.FromUserID == userID && r.Role == role {
			rated = true
			break
		}
	}
	return !(confirmed && rated)
}
