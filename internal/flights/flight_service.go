package flights

import (
	"context"
	"fmt"
	"time"

	"github.com/avelora/skybooking/internal/domain"
	"github.com/avelora/skybooking/internal/inventory"
	"github.com/avelora/skybooking/internal/repository"
)

type FlightUseCase interface {
	Create(ctx context.Context, flight *domain.Flight) error
	Delete(ctx context.Context, flightID int64) error
	List(ctx context.Context) ([]domain.Flight, error)
	Airplanes(ctx context.Context) ([]domain.Airplane, error)
	GetByID(ctx context.Context, id int64) (*domain.Flight, error)
	Filtered(ctx context.Context, origin, destination string, date time.Time, past bool) ([]domain.Flight, error)
	FindByDetails(ctx context.Context, airline, origin, destination string, departure time.Time) (int64, error)
	SeatCountByClass(ctx context.Context, flightID int64) (map[domain.SeatClass]int, error)
	SeatMap(ctx context.Context, flightID int64) ([]repository.SeatMapEntry, error)
	AddReview(ctx context.Context, review *domain.Review) error
}

// Cache holds the flight list between sweeps of reads; mutations invalidate it.
type Cache interface {
	GetFlights(ctx context.Context) ([]domain.Flight, error)
	SetFlights(ctx context.Context, flights []domain.Flight) error
	InvalidateFlights(ctx context.Context) error
}

type Service struct {
	flights   repository.FlightStore
	seats     repository.FlightSeatStore
	bookings  repository.BookingStore
	reviews   repository.ReviewStore
	airplanes repository.AirplaneStore
	inventory inventory.SeatInventory
	cache     Cache
}

func NewService(
	flights repository.FlightStore,
	seats repository.FlightSeatStore,
	bookings repository.BookingStore,
	reviews repository.ReviewStore,
	airplanes repository.AirplaneStore,
	inv inventory.SeatInventory,
	cache Cache,
) *Service {
	return &Service{
		flights:   flights,
		seats:     seats,
		bookings:  bookings,
		reviews:   reviews,
		airplanes: airplanes,
		inventory: inv,
		cache:     cache,
	}
}

// Create inserts a Scheduled flight and immediately backfills its seat
// occupancy rows from the airplane's template.
func (s *Service) Create(ctx context.Context, flight *domain.Flight) error {
	if flight.AirplaneID == 0 {
		return fmt.Errorf("%w: airplane is required", domain.ErrValidation)
	}
	if !flight.Departure.Before(flight.Arrival) {
		return fmt.Errorf("%w: arrival must be after departure", domain.ErrValidation)
	}
	if _, err := s.airplanes.GetByID(ctx, flight.AirplaneID); err != nil {
		return fmt.Errorf("airplane %d: %w", flight.AirplaneID, err)
	}

	flight.Status = domain.FlightStatusScheduled
	if err := s.flights.Insert(ctx, flight); err != nil {
		return fmt.Errorf("insert flight: %w", err)
	}

	if err := s.inventory.Backfill(ctx, flight.ID, flight.AirplaneID); err != nil {
		return fmt.Errorf("backfill flight %d: %w", flight.ID, err)
	}

	s.invalidate(ctx)
	return nil
}

// Delete removes a flight and its dependents: seats first, then bookings,
// then the flight itself.
func (s *Service) Delete(ctx context.Context, flightID int64) error {
	if err := s.seats.DeleteByFlightID(ctx, flightID); err != nil {
		return fmt.Errorf("delete flight seats: %w", err)
	}
	if err := s.bookings.DeleteByFlightID(ctx, flightID); err != nil {
		return fmt.Errorf("delete flight bookings: %w", err)
	}
	if err := s.flights.Delete(ctx, flightID); err != nil {
		return fmt.Errorf("delete flight %d: %w", flightID, err)
	}

	s.invalidate(ctx)
	return nil
}

func (s *Service) List(ctx context.Context) ([]domain.Flight, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetFlights(ctx); err == nil && cached != nil {
			return cached, nil
		}
	}

	flights, err := s.flights.List(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		_ = s.cache.SetFlights(ctx, flights)
	}
	return flights, nil
}

func (s *Service) Airplanes(ctx context.Context) ([]domain.Airplane, error) {
	return s.airplanes.List(ctx)
}

func (s *Service) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	return s.flights.GetByID(ctx, id)
}

func (s *Service) Filtered(ctx context.Context, origin, destination string, date time.Time, past bool) ([]domain.Flight, error) {
	return s.flights.GetFiltered(ctx, origin, destination, date, past)
}

func (s *Service) FindByDetails(ctx context.Context, airline, origin, destination string, departure time.Time) (int64, error) {
	return s.flights.GetIDByDetails(ctx, airline, origin, destination, departure)
}

func (s *Service) SeatCountByClass(ctx context.Context, flightID int64) (map[domain.SeatClass]int, error) {
	return s.seats.AvailableCountByClass(ctx, flightID)
}

// SeatMap returns the flight's seats with occupancy, ordered row then position.
func (s *Service) SeatMap(ctx context.Context, flightID int64) ([]repository.SeatMapEntry, error) {
	return s.inventory.GetSeatMap(ctx, flightID)
}

// AddReview persists a flight review. Ratings run 1 to 5.
func (s *Service) AddReview(ctx context.Context, review *domain.Review) error {
	if review.Rating < 1 || review.Rating > 5 {
		return fmt.Errorf("%w: rating must be between 1 and 5", domain.ErrValidation)
	}
	return s.reviews.Insert(ctx, review)
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache != nil {
		_ = s.cache.InvalidateFlights(ctx)
	}
}

var _ FlightUseCase = (*Service)(nil)
