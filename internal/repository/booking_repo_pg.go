package repository

import (
	"context"
	"errors"
	"time"

	"github.com/avelora/skybooking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserBooking joins a booking with its flight's departure time so lifecycle
// code can classify upcoming vs past without a second round trip.
type UserBooking struct {
	Booking   domain.Booking
	Departure time.Time
}

type BookingStore interface {
	Insert(ctx context.Context, booking *domain.Booking) error
	Update(ctx context.Context, booking *domain.Booking) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	GetByUser(ctx context.Context, userID int64) ([]UserBooking, error)
	GetAll(ctx context.Context) ([]domain.Booking, error)
	GetByFlightID(ctx context.Context, flightID int64) ([]domain.Booking, error)
	DeleteByFlightID(ctx context.Context, flightID int64) error
}

type PGBookingRepository struct {
	db *pgxpool.Pool
}

func NewBookingRepository(db *pgxpool.Pool) BookingStore {
	return &PGBookingRepository{db: db}
}

const bookingColumns = `id, ref, status, user_id, flight_id, seat_id, seat_class, luggage, insured, discount_factor, total_price, created_at, updated_at`

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var b domain.Booking
	if err := row.Scan(&b.ID, &b.Ref, &b.Status, &b.UserID, &b.FlightID, &b.SeatID, &b.SeatClass, &b.Luggage, &b.Insured, &b.DiscountFactor, &b.TotalPrice, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *PGBookingRepository) Insert(ctx context.Context, booking *domain.Booking) error {
	return r.db.QueryRow(ctx, `INSERT INTO bookings (ref, status, user_id, flight_id, seat_id, seat_class, luggage, insured, discount_factor, total_price)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`,
		booking.Ref, booking.Status, booking.UserID, booking.FlightID, booking.SeatID, booking.SeatClass, booking.Luggage, booking.Insured, booking.DiscountFactor, booking.TotalPrice).
		Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt)
}

func (r *PGBookingRepository) Update(ctx context.Context, booking *domain.Booking) error {
	cmd, err := r.db.Exec(ctx, `UPDATE bookings SET status=$1, seat_id=$2, seat_class=$3, luggage=$4, insured=$5, discount_factor=$6, total_price=$7, updated_at=now() WHERE id=$8`,
		booking.Status, booking.SeatID, booking.SeatClass, booking.Luggage, booking.Insured, booking.DiscountFactor, booking.TotalPrice, booking.ID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PGBookingRepository) Delete(ctx context.Context, id int64) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM bookings WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PGBookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	row := r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id=$1`, id)
	booking, err := scanBooking(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return booking, err
}

func (r *PGBookingRepository) GetByUser(ctx context.Context, userID int64) ([]UserBooking, error) {
	rows, err := r.db.Query(ctx, `SELECT b.id, b.ref, b.status, b.user_id, b.flight_id, b.seat_id, b.seat_class, b.luggage, b.insured, b.discount_factor, b.total_price, b.created_at, b.updated_at, f.departure_time
		FROM bookings b
		JOIN flights f ON f.id = b.flight_id
		WHERE b.user_id = $1
		ORDER BY f.departure_time`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := make([]UserBooking, 0)
	for rows.Next() {
		var ub UserBooking
		b := &ub.Booking
		if err := rows.Scan(&b.ID, &b.Ref, &b.Status, &b.UserID, &b.FlightID, &b.SeatID, &b.SeatClass, &b.Luggage, &b.Insured, &b.DiscountFactor, &b.TotalPrice, &b.CreatedAt, &b.UpdatedAt, &ub.Departure); err != nil {
			return nil, err
		}
		bookings = append(bookings, ub)
	}
	return bookings, rows.Err()
}

func (r *PGBookingRepository) GetAll(ctx context.Context) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, `SELECT `+bookingColumns+` FROM bookings ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

func (r *PGBookingRepository) GetByFlightID(ctx context.Context, flightID int64) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE flight_id=$1 ORDER BY id`, flightID)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

func (r *PGBookingRepository) DeleteByFlightID(ctx context.Context, flightID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM bookings WHERE flight_id=$1`, flightID)
	return err
}

func collectBookings(rows pgx.Rows) ([]domain.Booking, error) {
	defer rows.Close()
	bookings := make([]domain.Booking, 0)
	for rows.Next() {
		var b domain.Booking
		if err := rows.Scan(&b.ID, &b.Ref, &b.Status, &b.UserID, &b.FlightID, &b.SeatID, &b.SeatClass, &b.Luggage, &b.Insured, &b.DiscountFactor, &b.TotalPrice, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

var _ BookingStore = (*PGBookingRepository)(nil)
