package domain

import "time"

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
)

// CanTransitionTo encodes the booking state machine. Confirmed -> Confirmed
// covers modification; nothing leaves Cancelled.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	switch s {
	case BookingStatusPending:
		return next == BookingStatusConfirmed
	case BookingStatusConfirmed:
		return next == BookingStatusConfirmed || next == BookingStatusCancelled
	default:
		return false
	}
}

type Booking struct {
	ID             int64
	Ref            string
	Status         BookingStatus
	UserID         int64
	FlightID       int64
	SeatID         string
	SeatClass      SeatClass
	Luggage        int
	Insured        bool
	DiscountFactor float64
	TotalPrice     float64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Rider carries the caller's identity explicitly into every lifecycle call.
type Rider struct {
	ID                   int64
	Guest                bool
	BirthDate            time.Time
	FirstBookingDiscount bool
}
