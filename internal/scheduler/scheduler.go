package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/avelora/skybooking/internal/domain"
	"github.com/avelora/skybooking/internal/kafka"
	"github.com/avelora/skybooking/internal/repository"
)

// Cache is the purge-side half of the per-flight lock shared with booking
// mutations. A flight whose lock is held is skipped and retried next sweep.
type Cache interface {
	AcquireFlightLock(ctx context.Context, flightID int64, ttl time.Duration) (bool, error)
	ReleaseFlightLock(ctx context.Context, flightID int64) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

// Scheduler promotes flights through their status lifecycle and purges stale
// departed flights together with their dependent rows. Every sweep is
// idempotent: re-running with the same clock produces no extra side effects.
type Scheduler struct {
	flights        repository.FlightStore
	seats          repository.FlightSeatStore
	bookings       repository.BookingStore
	reviews        repository.ReviewStore
	cache          Cache
	producer       Producer
	topic          string
	boardingWindow time.Duration
	retention      time.Duration
	lockTTL        time.Duration
	now            func() time.Time
}

type Option func(*Scheduler)

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
	}
}

// WithProducer enables flight lifecycle events on the given topic.
func WithProducer(producer Producer, topic string) Option {
	return func(s *Scheduler) {
		s.producer = producer
		s.topic = topic
	}
}

func New(
	flights repository.FlightStore,
	seats repository.FlightSeatStore,
	bookings repository.BookingStore,
	reviews repository.ReviewStore,
	cache Cache,
	boardingWindow, retention, lockTTL time.Duration,
	opts ...Option,
) *Scheduler {
	s := &Scheduler{
		flights:        flights,
		seats:          seats,
		bookings:       bookings,
		reviews:        reviews,
		cache:          cache,
		boardingWindow: boardingWindow,
		retention:      retention,
		lockTTL:        lockTTL,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sweep runs the three passes in order: departures, purge, boarding.
func (s *Scheduler) Sweep(ctx context.Context) {
	if err := s.SweepDeparted(ctx); err != nil {
		log.Printf("departed sweep: %v", err)
	}
	if err := s.SweepPurge(ctx); err != nil {
		log.Printf("purge sweep: %v", err)
	}
	if err := s.SweepBoarding(ctx); err != nil {
		log.Printf("boarding sweep: %v", err)
	}
}

// SweepDeparted marks every flight whose departure has passed as Departed.
func (s *Scheduler) SweepDeparted(ctx context.Context) error {
	past, err := s.flights.GetPastFlights(ctx, s.now())
	if err != nil {
		return err
	}
	for _, flight := range past {
		if flight.Status == domain.FlightStatusDeparted {
			continue
		}
		if err := s.flights.SetStatus(ctx, flight.ID, domain.FlightStatusDeparted); err != nil {
			log.Printf("mark flight %d departed: %v", flight.ID, err)
			continue
		}
		s.publish(ctx, "flight_departed", flight.ID, domain.FlightStatusDeparted)
	}
	return nil
}

// SweepBoarding marks flights departing inside the boarding window.
func (s *Scheduler) SweepBoarding(ctx context.Context) error {
	now := s.now()
	upcoming, err := s.flights.GetUpcomingFlights(ctx, now, now.Add(s.boardingWindow))
	if err != nil {
		return err
	}
	for _, flight := range upcoming {
		if flight.Status != domain.FlightStatusScheduled {
			continue
		}
		if err := s.flights.SetStatus(ctx, flight.ID, domain.FlightStatusBoarding); err != nil {
			log.Printf("mark flight %d boarding: %v", flight.ID, err)
			continue
		}
		s.publish(ctx, "flight_boarding", flight.ID, domain.FlightStatusBoarding)
	}
	return nil
}

// SweepPurge deletes flights departed longer than the retention window ago,
// cascading through seats, bookings and reviews per flight before removing
// the flights themselves in bulk. A failing flight is logged and skipped so it
// never blocks the rest of the sweep.
func (s *Scheduler) SweepPurge(ctx context.Context) error {
	cutoff := s.now().Add(-s.retention)
	stale, err := s.flights.GetOldDepartedFlightIDs(ctx, cutoff)
	if err != nil {
		return err
	}

	purged := make([]int64, 0, len(stale))
	for _, flightID := range stale {
		if err := s.purgeFlight(ctx, flightID); err != nil {
			log.Printf("purge flight %d: %v", flightID, err)
			continue
		}
		purged = append(purged, flightID)
	}

	if len(purged) == 0 {
		return nil
	}
	if err := s.flights.DeleteFlightsByIDs(ctx, purged); err != nil {
		return err
	}
	for _, flightID := range purged {
		s.publish(ctx, "flight_purged", flightID, domain.FlightStatusDeparted)
	}
	log.Printf("purged %d flights", len(purged))
	return nil
}

func (s *Scheduler) purgeFlight(ctx context.Context, flightID int64) error {
	if s.cache != nil {
		ok, err := s.cache.AcquireFlightLock(ctx, flightID, s.lockTTL)
		if err != nil {
			return err
		}
		if !ok {
			return errFlightBusy
		}
		defer func() { _ = s.cache.ReleaseFlightLock(ctx, flightID) }()
	}

	if err := s.seats.DeleteByFlightID(ctx, flightID); err != nil {
		return err
	}
	if err := s.bookings.DeleteByFlightID(ctx, flightID); err != nil {
		return err
	}
	return s.reviews.DeleteByFlightID(ctx, flightID)
}

func (s *Scheduler) publish(ctx context.Context, eventType string, flightID int64, status domain.FlightStatus) {
	if s.producer == nil || s.topic == "" {
		return
	}
	event := kafka.FlightEvent{
		Type:     eventType,
		FlightID: flightID,
		Status:   string(status),
	}
	if err := s.producer.Publish(ctx, s.topic, fmt.Sprintf("flight-%d", flightID), event); err != nil {
		log.Printf("publish %s for flight %d: %v", eventType, flightID, err)
	}
}

var errFlightBusy = errors.New("flight is locked by an in-progress booking operation")
