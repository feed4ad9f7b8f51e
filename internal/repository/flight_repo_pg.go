package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avelora/skybooking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type FlightStore interface {
	GetByID(ctx context.Context, id int64) (*domain.Flight, error)
	Insert(ctx context.Context, flight *domain.Flight) error
	Update(ctx context.Context, flight *domain.Flight) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context) ([]domain.Flight, error)
	GetPastFlights(ctx context.Context, before time.Time) ([]domain.Flight, error)
	GetUpcomingFlights(ctx context.Context, from, until time.Time) ([]domain.Flight, error)
	GetFiltered(ctx context.Context, origin, destination string, date time.Time, past bool) ([]domain.Flight, error)
	DeleteFlightsByIDs(ctx context.Context, ids []int64) error
	GetOldDepartedFlightIDs(ctx context.Context, cutoff time.Time) ([]int64, error)
	GetIDByDetails(ctx context.Context, airline, origin, destination string, departure time.Time) (int64, error)
	SetStatus(ctx context.Context, id int64, status domain.FlightStatus) error
}

type PGFlightRepository struct {
	db *pgxpool.Pool
}

func NewFlightRepository(db *pgxpool.Pool) FlightStore {
	return &PGFlightRepository{db: db}
}

const flightColumns = `id, airline, airplane_id, origin, destination, departure_time, arrival_time, status, created_at, updated_at`

func scanFlight(row pgx.Row) (*domain.Flight, error) {
	var f domain.Flight
	if err := row.Scan(&f.ID, &f.Airline, &f.AirplaneID, &f.Origin, &f.Destination, &f.Departure, &f.Arrival, &f.Status, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, err
	}
	return &f, nil
}

func collectFlights(rows pgx.Rows) ([]domain.Flight, error) {
	defer rows.Close()
	flights := make([]domain.Flight, 0)
	for rows.Next() {
		var f domain.Flight
		if err := rows.Scan(&f.ID, &f.Airline, &f.AirplaneID, &f.Origin, &f.Destination, &f.Departure, &f.Arrival, &f.Status, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, err
		}
		flights = append(flights, f)
	}
	return flights, rows.Err()
}

func (r *PGFlightRepository) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	row := r.db.QueryRow(ctx, `SELECT `+flightColumns+` FROM flights WHERE id=$1`, id)
	flight, err := scanFlight(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return flight, err
}

func (r *PGFlightRepository) Insert(ctx context.Context, flight *domain.Flight) error {
	return r.db.QueryRow(ctx, `INSERT INTO flights (airline, airplane_id, origin, destination, departure_time, arrival_time, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`,
		flight.Airline, flight.AirplaneID, flight.Origin, flight.Destination, flight.Departure, flight.Arrival, flight.Status).
		Scan(&flight.ID, &flight.CreatedAt, &flight.UpdatedAt)
}

func (r *PGFlightRepository) Update(ctx context.Context, flight *domain.Flight) error {
	cmd, err := r.db.Exec(ctx, `UPDATE flights SET airline=$1, airplane_id=$2, origin=$3, destination=$4, departure_time=$5, arrival_time=$6, status=$7, updated_at=now() WHERE id=$8`,
		flight.Airline, flight.AirplaneID, flight.Origin, flight.Destination, flight.Departure, flight.Arrival, flight.Status, flight.ID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PGFlightRepository) Delete(ctx context.Context, id int64) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM flights WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PGFlightRepository) List(ctx context.Context) ([]domain.Flight, error) {
	rows, err := r.db.Query(ctx, `SELECT `+flightColumns+` FROM flights ORDER BY departure_time`)
	if err != nil {
		return nil, err
	}
	return collectFlights(rows)
}

func (r *PGFlightRepository) GetPastFlights(ctx context.Context, before time.Time) ([]domain.Flight, error) {
	rows, err := r.db.Query(ctx, `SELECT `+flightColumns+` FROM flights WHERE departure_time < $1 ORDER BY departure_time`, before)
	if err != nil {
		return nil, err
	}
	return collectFlights(rows)
}

func (r *PGFlightRepository) GetUpcomingFlights(ctx context.Context, from, until time.Time) ([]domain.Flight, error) {
	rows, err := r.db.Query(ctx, `SELECT `+flightColumns+` FROM flights WHERE departure_time >= $1 AND departure_time <= $2 ORDER BY departure_time`, from, until)
	if err != nil {
		return nil, err
	}
	return collectFlights(rows)
}

func (r *PGFlightRepository) GetFiltered(ctx context.Context, origin, destination string, date time.Time, past bool) ([]domain.Flight, error) {
	query := `SELECT ` + flightColumns + ` FROM flights WHERE ($1 = '' OR origin = $1) AND ($2 = '' OR destination = $2)`
	args := []interface{}{origin, destination}

	if !date.IsZero() {
		query += ` AND departure_time >= $3 AND departure_time < $4`
		dayStart := date.Truncate(24 * time.Hour)
		args = append(args, dayStart, dayStart.Add(24*time.Hour))
	}
	if past {
		query += ` AND departure_time < now()`
	} else {
		query += ` AND departure_time >= now()`
	}
	query += ` ORDER BY departure_time`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectFlights(rows)
}

func (r *PGFlightRepository) DeleteFlightsByIDs(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.db.Exec(ctx, `DELETE FROM flights WHERE id = ANY($1)`, ids)
	return err
}

func (r *PGFlightRepository) GetOldDepartedFlightIDs(ctx context.Context, cutoff time.Time) ([]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT id FROM flights WHERE status=$1 AND departure_time < $2`, domain.FlightStatusDeparted, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *PGFlightRepository) GetIDByDetails(ctx context.Context, airline, origin, destination string, departure time.Time) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `SELECT id FROM flights WHERE airline=$1 AND origin=$2 AND destination=$3 AND departure_time=$4`,
		airline, origin, destination, departure).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, domain.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("lookup flight by details: %w", err)
	}
	return id, nil
}

func (r *PGFlightRepository) SetStatus(ctx context.Context, id int64, status domain.FlightStatus) error {
	_, err := r.db.Exec(ctx, `UPDATE flights SET status=$1, updated_at=now() WHERE id=$2`, status, id)
	return err
}

var _ FlightStore = (*PGFlightRepository)(nil)
