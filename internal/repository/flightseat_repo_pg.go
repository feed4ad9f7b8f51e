package repository

import (
	"context"
	"fmt"

	"github.com/avelora/skybooking/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SeatMapEntry pairs a template seat with its occupancy on one flight.
type SeatMapEntry struct {
	Seat     domain.Seat
	Occupied bool
}

type FlightSeatStore interface {
	GetSeatsForFlight(ctx context.Context, flightID int64) ([]SeatMapEntry, error)
	HasAnySeatsForFlight(ctx context.Context, flightID int64) (bool, error)
	CreateFlightSeats(ctx context.Context, flightID int64, seatIDs []string) error
	SetSeatOccupancy(ctx context.Context, flightID int64, seatID string, occupied bool) error
	AcquireSeat(ctx context.Context, flightID int64, seatID string) error
	SeatExists(ctx context.Context, flightID int64, seatID string) (bool, error)
	DeleteByFlightID(ctx context.Context, flightID int64) error
	AvailableCountByClass(ctx context.Context, flightID int64) (map[domain.SeatClass]int, error)
}

type PGFlightSeatRepository struct {
	db *pgxpool.Pool
}

func NewFlightSeatRepository(db *pgxpool.Pool) FlightSeatStore {
	return &PGFlightSeatRepository{db: db}
}

func (r *PGFlightSeatRepository) GetSeatsForFlight(ctx context.Context, flightID int64) ([]SeatMapEntry, error) {
	rows, err := r.db.Query(ctx, `SELECT s.id, s.airplane_id, s.row_number, s.position, s.class, s.fare, fs.occupied
		FROM flight_seats fs
		JOIN seats s ON s.id = fs.seat_id
		WHERE fs.flight_id = $1
		ORDER BY s.row_number, s.position`, flightID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]SeatMapEntry, 0)
	for rows.Next() {
		var e SeatMapEntry
		if err := rows.Scan(&e.Seat.ID, &e.Seat.AirplaneID, &e.Seat.Row, &e.Seat.Position, &e.Seat.Class, &e.Seat.Fare, &e.Occupied); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *PGFlightSeatRepository) HasAnySeatsForFlight(ctx context.Context, flightID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM flight_seats WHERE flight_id=$1)`, flightID).Scan(&exists)
	return exists, err
}

// CreateFlightSeats inserts the whole occupancy set for one flight in a single
// statement. ON CONFLICT keeps redundant backfills from creating duplicates.
func (r *PGFlightSeatRepository) CreateFlightSeats(ctx context.Context, flightID int64, seatIDs []string) error {
	if len(seatIDs) == 0 {
		return nil
	}
	_, err := r.db.Exec(ctx, `INSERT INTO flight_seats (flight_id, seat_id, occupied)
		SELECT $1, unnest($2::text[]), false
		ON CONFLICT (flight_id, seat_id) DO NOTHING`, flightID, seatIDs)
	if err != nil {
		return fmt.Errorf("create flight seats: %w", err)
	}
	return nil
}

func (r *PGFlightSeatRepository) SetSeatOccupancy(ctx context.Context, flightID int64, seatID string, occupied bool) error {
	_, err := r.db.Exec(ctx, `UPDATE flight_seats SET occupied=$1 WHERE flight_id=$2 AND seat_id=$3`, occupied, flightID, seatID)
	return err
}

// AcquireSeat is the only guarded occupancy mutation: a single conditional
// update, so two concurrent acquires for the same seat can never both succeed.
func (r *PGFlightSeatRepository) AcquireSeat(ctx context.Context, flightID int64, seatID string) error {
	cmd, err := r.db.Exec(ctx, `UPDATE flight_seats SET occupied=true WHERE flight_id=$1 AND seat_id=$2 AND occupied=false`, flightID, seatID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() > 0 {
		return nil
	}

	exists, err := r.SeatExists(ctx, flightID, seatID)
	if err != nil {
		return err
	}
	if !exists {
		return domain.ErrNotFound
	}
	return domain.ErrSeatConflict
}

func (r *PGFlightSeatRepository) SeatExists(ctx context.Context, flightID int64, seatID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM flight_seats WHERE flight_id=$1 AND seat_id=$2)`, flightID, seatID).Scan(&exists)
	return exists, err
}

func (r *PGFlightSeatRepository) DeleteByFlightID(ctx context.Context, flightID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM flight_seats WHERE flight_id=$1`, flightID)
	return err
}

func (r *PGFlightSeatRepository) AvailableCountByClass(ctx context.Context, flightID int64) (map[domain.SeatClass]int, error) {
	rows, err := r.db.Query(ctx, `SELECT s.class, count(*)
		FROM flight_seats fs
		JOIN seats s ON s.id = fs.seat_id
		WHERE fs.flight_id = $1 AND fs.occupied = false
		GROUP BY s.class`, flightID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.SeatClass]int)
	for rows.Next() {
		var class domain.SeatClass
		var count int
		if err := rows.Scan(&class, &count); err != nil {
			return nil, err
		}
		counts[class] = count
	}
	return counts, rows.Err()
}

var _ FlightSeatStore = (*PGFlightSeatRepository)(nil)
