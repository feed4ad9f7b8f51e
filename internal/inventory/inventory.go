package inventory

import (
	"context"
	"fmt"
	"log"

	"github.com/avelora/skybooking/internal/domain"
	"github.com/avelora/skybooking/internal/repository"
)

// SeatInventory owns per-flight seat occupancy: template-driven backfill,
// occupancy queries and the guarded acquire path.
type SeatInventory interface {
	Backfill(ctx context.Context, flightID, airplaneID int64) error
	BulkBackfill(ctx context.Context, pairs []BackfillPair) map[int64]error
	SetOccupancy(ctx context.Context, flightID int64, seatID string, occupied bool) error
	HasAnySeats(ctx context.Context, flightID int64) (bool, error)
	GetSeatMap(ctx context.Context, flightID int64) ([]repository.SeatMapEntry, error)
	TryAcquire(ctx context.Context, flightID int64, seatID string) error
}

type BackfillPair struct {
	FlightID   int64
	AirplaneID int64
}

type Manager struct {
	seats     repository.FlightSeatStore
	airplanes repository.AirplaneStore
}

func NewManager(seats repository.FlightSeatStore, airplanes repository.AirplaneStore) *Manager {
	return &Manager{seats: seats, airplanes: airplanes}
}

// Backfill creates one occupancy row per template seat for the flight. It is
// idempotent: a flight that already has seats is left untouched.
func (m *Manager) Backfill(ctx context.Context, flightID, airplaneID int64) error {
	exists, err := m.seats.HasAnySeatsForFlight(ctx, flightID)
	if err != nil {
		return fmt.Errorf("check flight seats: %w", err)
	}
	if exists {
		return nil
	}

	template, err := m.airplanes.GetSeatTemplate(ctx, airplaneID)
	if err != nil {
		return fmt.Errorf("load seat template for airplane %d: %w", airplaneID, err)
	}
	if len(template) == 0 {
		return fmt.Errorf("%w: airplane %d has no seat template", domain.ErrNotFound, airplaneID)
	}

	seatIDs := make([]string, 0, len(template))
	for _, seat := range template {
		seatIDs = append(seatIDs, seat.ID)
	}
	return m.seats.CreateFlightSeats(ctx, flightID, seatIDs)
}

// BulkBackfill runs Backfill for many flights in one pass. Each flight's seat
// set is independent, so one failure never aborts or corrupts the rest; the
// returned map carries the per-flight errors.
func (m *Manager) BulkBackfill(ctx context.Context, pairs []BackfillPair) map[int64]error {
	failures := make(map[int64]error)
	for _, pair := range pairs {
		if err := m.Backfill(ctx, pair.FlightID, pair.AirplaneID); err != nil {
			log.Printf("backfill flight %d: %v", pair.FlightID, err)
			failures[pair.FlightID] = err
		}
	}
	return failures
}

// SetOccupancy is the idempotent release/set path. It carries no conditional
// guard; writing the current value again is not an error.
func (m *Manager) SetOccupancy(ctx context.Context, flightID int64, seatID string, occupied bool) error {
	return m.seats.SetSeatOccupancy(ctx, flightID, seatID, occupied)
}

func (m *Manager) HasAnySeats(ctx context.Context, flightID int64) (bool, error) {
	return m.seats.HasAnySeatsForFlight(ctx, flightID)
}

// GetSeatMap returns the flight's seats ordered by row then position.
func (m *Manager) GetSeatMap(ctx context.Context, flightID int64) ([]repository.SeatMapEntry, error) {
	return m.seats.GetSeatsForFlight(ctx, flightID)
}

// TryAcquire marks the seat occupied through the store's single conditional
// update. A seat already taken surfaces domain.ErrSeatConflict, a missing one
// domain.ErrNotFound; concurrent winners are decided by the store, never here.
func (m *Manager) TryAcquire(ctx context.Context, flightID int64, seatID string) error {
	return m.seats.AcquireSeat(ctx, flightID, seatID)
}

var _ SeatInventory = (*Manager)(nil)
