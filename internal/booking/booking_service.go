package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/avelora/skybooking/internal/domain"
	"github.com/avelora/skybooking/internal/inventory"
	"github.com/avelora/skybooking/internal/kafka"
	"github.com/avelora/skybooking/internal/pricing"
	"github.com/avelora/skybooking/internal/repository"
	"github.com/google/uuid"
)

// CancellationFee is subtracted from uninsured cancellations, floored at zero.
const CancellationFee = 100.0

const (
	flightLockRetries = 3
	flightLockBackoff = 50 * time.Millisecond
)

type BookingUseCase interface {
	Build(ctx context.Context, rider domain.Rider, flight *domain.Flight, seat domain.Seat, coupon domain.Coupon, luggage int, insured bool) (*domain.Booking, error)
	Commit(ctx context.Context, booking *domain.Booking) error
	Create(ctx context.Context, input CreateInput) (*domain.Booking, error)
	Cancel(ctx context.Context, bookingID int64) (bool, bool, error)
	Modify(ctx context.Context, bookingID int64, rider domain.Rider, newSeatID string, newLuggage int) (bool, error)
	GetForUser(ctx context.Context, userID int64, upcoming bool) ([]domain.Booking, error)
	List(ctx context.Context) ([]domain.Booking, error)
	ListForFlight(ctx context.Context, flightID int64) ([]domain.Booking, error)
}

// Cache is the slice of the redis cache this service needs: short seat holds
// during the create window and the per-flight lock shared with the purge sweep.
type Cache interface {
	AcquireSeatHold(ctx context.Context, flightID int64, seatID string, ttl time.Duration) (bool, error)
	ReleaseSeatHold(ctx context.Context, flightID int64, seatID string) error
	AcquireFlightLock(ctx context.Context, flightID int64, ttl time.Duration) (bool, error)
	ReleaseFlightLock(ctx context.Context, flightID int64) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type Service struct {
	engine    *pricing.Engine
	inventory inventory.SeatInventory
	bookings  repository.BookingStore
	flights   repository.FlightStore
	cache     Cache
	producer  Producer
	topic     string
	holdTTL   time.Duration
	lockTTL   time.Duration
	now       func() time.Time
}

type CreateInput struct {
	Rider    domain.Rider
	FlightID int64
	SeatID   string
	Coupon   domain.Coupon
	Luggage  int
	Insured  bool
}

type ServiceOption func(*Service)

// WithClock substitutes the wall clock used for upcoming/past classification.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(
	engine *pricing.Engine,
	inv inventory.SeatInventory,
	bookings repository.BookingStore,
	flights repository.FlightStore,
	cache Cache,
	producer Producer,
	topic string,
	holdTTL, lockTTL time.Duration,
	opts ...ServiceOption,
) *Service {
	s := &Service{
		engine:    engine,
		inventory: inv,
		bookings:  bookings,
		flights:   flights,
		cache:     cache,
		producer:  producer,
		topic:     topic,
		holdTTL:   holdTTL,
		lockTTL:   lockTTL,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Build prices the booking and assembles a Pending record. It touches neither
// inventory nor persistence; the caller acquires the seat before committing.
func (s *Service) Build(ctx context.Context, rider domain.Rider, flight *domain.Flight, seat domain.Seat, coupon domain.Coupon, luggage int, insured bool) (*domain.Booking, error) {
	if flight == nil {
		return nil, fmt.Errorf("%w: flight is required", domain.ErrValidation)
	}

	quote, err := s.engine.ComputePrice(seat.Fare, luggage, insured, rider, coupon)
	if err != nil {
		return nil, err
	}

	return &domain.Booking{
		Ref:            uuid.NewString(),
		Status:         domain.BookingStatusPending,
		UserID:         rider.ID,
		FlightID:       flight.ID,
		SeatID:         seat.ID,
		SeatClass:      seat.Class,
		Luggage:        luggage,
		Insured:        insured,
		DiscountFactor: quote.DiscountFactor,
		TotalPrice:     quote.Total,
	}, nil
}

// Commit confirms a pending booking and persists it.
func (s *Service) Commit(ctx context.Context, booking *domain.Booking) error {
	if booking.Status != domain.BookingStatusPending {
		return fmt.Errorf("%w: cannot confirm booking in status %s", domain.ErrValidation, booking.Status)
	}

	booking.Status = domain.BookingStatusConfirmed
	if err := s.bookings.Insert(ctx, booking); err != nil {
		booking.Status = domain.BookingStatusPending
		return fmt.Errorf("insert booking: %w", err)
	}

	s.publish(ctx, "booking_confirmed", booking, false)
	return nil
}

// Create is the composed path used by the API layer: acquire the seat, build,
// commit. The redis hold narrows the window between concurrent attempts; the
// store's conditional update decides the winner.
func (s *Service) Create(ctx context.Context, input CreateInput) (*domain.Booking, error) {
	flight, err := s.flights.GetByID(ctx, input.FlightID)
	if err != nil {
		return nil, err
	}

	seat, err := s.seatOnFlight(ctx, input.FlightID, input.SeatID)
	if err != nil {
		return nil, err
	}

	held := false
	if s.cache != nil {
		ok, err := s.cache.AcquireSeatHold(ctx, input.FlightID, input.SeatID, s.holdTTL)
		if err != nil {
			return nil, fmt.Errorf("acquire seat hold: %w", err)
		}
		if !ok {
			return nil, domain.ErrSeatConflict
		}
		held = true
		defer func() {
			if held {
				_ = s.cache.ReleaseSeatHold(ctx, input.FlightID, input.SeatID)
			}
		}()
	}

	if err := s.inventory.TryAcquire(ctx, input.FlightID, input.SeatID); err != nil {
		return nil, err
	}

	booking, err := s.Build(ctx, input.Rider, flight, seat, input.Coupon, input.Luggage, input.Insured)
	if err != nil {
		s.releaseSeat(ctx, input.FlightID, input.SeatID)
		return nil, err
	}

	if err := s.Commit(ctx, booking); err != nil {
		s.releaseSeat(ctx, input.FlightID, input.SeatID)
		return nil, err
	}
	return booking, nil
}

// Cancel releases the seat and moves the booking to Cancelled. A missing
// booking yields (false, false, nil) with no mutation. Insured bookings cancel
// free with the price zeroed; uninsured ones pay a flat fee, floored at zero.
func (s *Service) Cancel(ctx context.Context, bookingID int64) (bool, bool, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, false, nil
	}
	if err != nil {
		return false, false, fmt.Errorf("load booking %d: %w", bookingID, err)
	}
	if !booking.Status.CanTransitionTo(domain.BookingStatusCancelled) {
		return false, false, nil
	}

	unlock, err := s.lockFlight(ctx, booking.FlightID)
	if err != nil {
		return false, false, err
	}
	defer unlock()

	if err := s.inventory.SetOccupancy(ctx, booking.FlightID, booking.SeatID, false); err != nil {
		return false, false, fmt.Errorf("release seat: %w", err)
	}

	free := booking.Insured
	if free {
		booking.TotalPrice = 0
	} else {
		booking.TotalPrice -= CancellationFee
		if booking.TotalPrice < 0 {
			booking.TotalPrice = 0
		}
	}
	booking.Status = domain.BookingStatusCancelled

	if err := s.bookings.Update(ctx, booking); err != nil {
		return false, false, fmt.Errorf("update booking %d: %w", bookingID, err)
	}

	s.publish(ctx, "booking_cancelled", booking, free)
	return true, free, nil
}

// Modify swaps the seat and luggage of a confirmed booking. The new seat is
// acquired before the old one is released, so a failed acquisition leaves the
// original occupancy intact. Coupons are single-use and never reapplied here.
func (s *Service) Modify(ctx context.Context, bookingID int64, rider domain.Rider, newSeatID string, newLuggage int) (bool, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load booking %d: %w", bookingID, err)
	}
	if booking.Status != domain.BookingStatusConfirmed {
		return false, nil
	}

	newSeat, err := s.seatOnFlight(ctx, booking.FlightID, newSeatID)
	if err != nil {
		return false, err
	}

	unlock, err := s.lockFlight(ctx, booking.FlightID)
	if err != nil {
		return false, err
	}
	defer unlock()

	oldSeatID := booking.SeatID
	seatChanged := newSeatID != oldSeatID
	if seatChanged {
		if err := s.inventory.TryAcquire(ctx, booking.FlightID, newSeatID); err != nil {
			return false, err
		}
	}

	quote, err := s.engine.ComputePrice(newSeat.Fare, newLuggage, booking.Insured, rider, domain.NoCoupon())
	if err != nil {
		if seatChanged {
			s.releaseSeat(ctx, booking.FlightID, newSeatID)
		}
		return false, err
	}

	booking.SeatID = newSeatID
	booking.SeatClass = newSeat.Class
	booking.Luggage = newLuggage
	booking.DiscountFactor = quote.DiscountFactor
	booking.TotalPrice = quote.Total

	if err := s.bookings.Update(ctx, booking); err != nil {
		if seatChanged {
			s.releaseSeat(ctx, booking.FlightID, newSeatID)
		}
		return false, fmt.Errorf("update booking %d: %w", bookingID, err)
	}

	if seatChanged {
		if err := s.inventory.SetOccupancy(ctx, booking.FlightID, oldSeatID, false); err != nil {
			log.Printf("release old seat %s on flight %d: %v", oldSeatID, booking.FlightID, err)
		}
	}

	s.publish(ctx, "booking_modified", booking, false)
	return true, nil
}

// GetForUser filters a user's bookings. Upcoming means the flight has not
// departed and the booking is not cancelled; a cancelled trip is never
// upcoming regardless of its flight date.
func (s *Service) GetForUser(ctx context.Context, userID int64, upcoming bool) ([]domain.Booking, error) {
	records, err := s.bookings.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	result := make([]domain.Booking, 0, len(records))
	for _, rec := range records {
		isUpcoming := !rec.Departure.Before(now) && rec.Booking.Status != domain.BookingStatusCancelled
		if isUpcoming == upcoming {
			result = append(result, rec.Booking)
		}
	}
	return result, nil
}

func (s *Service) List(ctx context.Context) ([]domain.Booking, error) {
	return s.bookings.GetAll(ctx)
}

func (s *Service) ListForFlight(ctx context.Context, flightID int64) ([]domain.Booking, error) {
	return s.bookings.GetByFlightID(ctx, flightID)
}

// seatOnFlight resolves a seat id against the flight's seat map, which also
// proves the FlightSeat row exists.
func (s *Service) seatOnFlight(ctx context.Context, flightID int64, seatID string) (domain.Seat, error) {
	entries, err := s.inventory.GetSeatMap(ctx, flightID)
	if err != nil {
		return domain.Seat{}, fmt.Errorf("load seat map for flight %d: %w", flightID, err)
	}
	for _, entry := range entries {
		if entry.Seat.ID == seatID {
			return entry.Seat, nil
		}
	}
	return domain.Seat{}, fmt.Errorf("%w: seat %s on flight %d", domain.ErrNotFound, seatID, flightID)
}

// lockFlight serializes seat mutations against the purge sweep. Contention is
// rare and short-lived, so a few quick retries cover it.
func (s *Service) lockFlight(ctx context.Context, flightID int64) (func(), error) {
	if s.cache == nil {
		return func() {}, nil
	}
	for attempt := 0; attempt < flightLockRetries; attempt++ {
		ok, err := s.cache.AcquireFlightLock(ctx, flightID, s.lockTTL)
		if err != nil {
			return nil, fmt.Errorf("acquire flight lock: %w", err)
		}
		if ok {
			return func() { _ = s.cache.ReleaseFlightLock(ctx, flightID) }, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(flightLockBackoff):
		}
	}
	return nil, fmt.Errorf("flight %d is locked for maintenance", flightID)
}

func (s *Service) releaseSeat(ctx context.Context, flightID int64, seatID string) {
	if err := s.inventory.SetOccupancy(ctx, flightID, seatID, false); err != nil {
		log.Printf("release seat %s on flight %d: %v", seatID, flightID, err)
	}
}

func (s *Service) publish(ctx context.Context, eventType string, booking *domain.Booking, freeCancelled bool) {
	if s.producer == nil || s.topic == "" {
		return
	}
	event := kafka.BookingEvent{
		Type:          eventType,
		Ref:           booking.Ref,
		UserID:        booking.UserID,
		FlightID:      booking.FlightID,
		SeatID:        booking.SeatID,
		Status:        string(booking.Status),
		TotalPrice:    booking.TotalPrice,
		FreeCancelled: freeCancelled,
	}
	if err := s.producer.Publish(ctx, s.topic, booking.Ref, event); err != nil {
		log.Printf("publish %s for booking %s: %v", eventType, booking.Ref, err)
	}
}

var _ BookingUseCase = (*Service)(nil)
