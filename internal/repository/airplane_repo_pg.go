package repository

import (
	"context"
	"errors"

	"github.com/avelora/skybooking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AirplaneStore interface {
	GetByID(ctx context.Context, id int64) (*domain.Airplane, error)
	List(ctx context.Context) ([]domain.Airplane, error)
	GetSeatTemplate(ctx context.Context, airplaneID int64) ([]domain.Seat, error)
}

type PGAirplaneRepository struct {
	db *pgxpool.Pool
}

func NewAirplaneRepository(db *pgxpool.Pool) AirplaneStore {
	return &PGAirplaneRepository{db: db}
}

func (r *PGAirplaneRepository) GetByID(ctx context.Context, id int64) (*domain.Airplane, error) {
	row := r.db.QueryRow(ctx, `SELECT id, name, total_seats FROM airplanes WHERE id=$1`, id)
	var a domain.Airplane
	if err := row.Scan(&a.ID, &a.Name, &a.TotalSeats); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *PGAirplaneRepository) List(ctx context.Context) ([]domain.Airplane, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, total_seats FROM airplanes ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	airplanes := make([]domain.Airplane, 0)
	for rows.Next() {
		var a domain.Airplane
		if err := rows.Scan(&a.ID, &a.Name, &a.TotalSeats); err != nil {
			return nil, err
		}
		airplanes = append(airplanes, a)
	}
	return airplanes, rows.Err()
}

func (r *PGAirplaneRepository) GetSeatTemplate(ctx context.Context, airplaneID int64) ([]domain.Seat, error) {
	rows, err := r.db.Query(ctx, `SELECT id, airplane_id, row_number, position, class, fare FROM seats WHERE airplane_id=$1 ORDER BY row_number, position`, airplaneID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seats := make([]domain.Seat, 0)
	for rows.Next() {
		var s domain.Seat
		if err := rows.Scan(&s.ID, &s.AirplaneID, &s.Row, &s.Position, &s.Class, &s.Fare); err != nil {
			return nil, err
		}
		seats = append(seats, s)
	}
	return seats, rows.Err()
}

var _ AirplaneStore = (*PGAirplaneRepository)(nil)
