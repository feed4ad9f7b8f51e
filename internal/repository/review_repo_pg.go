package repository

import (
	"context"

	"github.com/avelora/skybooking/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ReviewStore interface {
	Insert(ctx context.Context, review *domain.Review) error
	DeleteByFlightID(ctx context.Context, flightID int64) error
}

type PGReviewRepository struct {
	db *pgxpool.Pool
}

func NewReviewRepository(db *pgxpool.Pool) ReviewStore {
	return &PGReviewRepository{db: db}
}

func (r *PGReviewRepository) Insert(ctx context.Context, review *domain.Review) error {
	return r.db.QueryRow(ctx, `INSERT INTO reviews (user_id, flight_id, rating, comment)
		VALUES ($1, $2, $3, $4)
		RETURNING id`, review.UserID, review.FlightID, review.Rating, review.Comment).
		Scan(&review.ID)
}

func (r *PGReviewRepository) DeleteByFlightID(ctx context.Context, flightID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM reviews WHERE flight_id=$1`, flightID)
	return err
}

var _ ReviewStore = (*PGReviewRepository)(nil)
