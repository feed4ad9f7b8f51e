package domain

import (
	"fmt"
	"time"
)

type FlightStatus string

const (
	FlightStatusScheduled FlightStatus = "SCHEDULED"
	FlightStatusBoarding  FlightStatus = "BOARDING"
	FlightStatusDeparted  FlightStatus = "DEPARTED"
)

// CanTransitionTo enforces the one-way Scheduled -> Boarding -> Departed order.
// Writing the same status again is allowed so sweeps stay idempotent.
func (s FlightStatus) CanTransitionTo(next FlightStatus) bool {
	if s == next {
		return true
	}
	switch s {
	case FlightStatusScheduled:
		return next == FlightStatusBoarding || next == FlightStatusDeparted
	case FlightStatusBoarding:
		return next == FlightStatusDeparted
	default:
		return false
	}
}

type Flight struct {
	ID          int64
	Airline     string
	AirplaneID  int64
	Origin      string
	Destination string
	Departure   time.Time
	Arrival     time.Time
	Status      FlightStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Airplane struct {
	ID         int64
	Name       string
	TotalSeats int
}

type SeatClass string

const (
	SeatClassStandard        SeatClass = "STANDARD"
	SeatClassStandardLegroom SeatClass = "STANDARD_LEGROOM"
	SeatClassPremium         SeatClass = "PREMIUM"
	SeatClassBusiness        SeatClass = "BUSINESS"
	SeatClassLuxury          SeatClass = "LUXURY"
)

// Seat is template data: one row per physical seat per airplane type.
type Seat struct {
	ID         string
	AirplaneID int64
	Row        int
	Position   string
	Class      SeatClass
	Fare       float64
}

// SeatID derives the template seat identifier from its physical placement,
// so repeated template loads always produce the same ids.
func SeatID(airplaneID int64, row int, position string) string {
	return fmt.Sprintf("%d-%d%s", airplaneID, row, position)
}

// FlightSeat is the mutable occupancy record, exactly one per (flight, seat).
type FlightSeat struct {
	FlightID int64
	SeatID   string
	Occupied bool
}

type Review struct {
	ID       int64
	UserID   int64
	FlightID int64
	Rating   int
	Comment  string
}
