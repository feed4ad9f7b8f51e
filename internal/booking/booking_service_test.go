package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/avelora/skybooking/internal/domain"
	"github.com/avelora/skybooking/internal/inventory"
	"github.com/avelora/skybooking/internal/pricing"
	"github.com/avelora/skybooking/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockSeatInventory struct {
	mock.Mock
}

func (m *MockSeatInventory) Backfill(ctx context.Context, flightID, airplaneID int64) error {
	args := m.Called(ctx, flightID, airplaneID)
	return args.Error(0)
}

func (m *MockSeatInventory) BulkBackfill(ctx context.Context, pairs []inventory.BackfillPair) map[int64]error {
	args := m.Called(ctx, pairs)
	return args.Get(0).(map[int64]error)
}

func (m *MockSeatInventory) SetOccupancy(ctx context.Context, flightID int64, seatID string, occupied bool) error {
	args := m.Called(ctx, flightID, seatID, occupied)
	return args.Error(0)
}

func (m *MockSeatInventory) HasAnySeats(ctx context.Context, flightID int64) (bool, error) {
	args := m.Called(ctx, flightID)
	return args.Bool(0), args.Error(1)
}

func (m *MockSeatInventory) GetSeatMap(ctx context.Context, flightID int64) ([]repository.SeatMapEntry, error) {
	args := m.Called(ctx, flightID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]repository.SeatMapEntry), args.Error(1)
}

func (m *MockSeatInventory) TryAcquire(ctx context.Context, flightID int64, seatID string) error {
	args := m.Called(ctx, flightID, seatID)
	return args.Error(0)
}

type MockBookingStore struct {
	mock.Mock
}

func (m *MockBookingStore) Insert(ctx context.Context, booking *domain.Booking) error {
	args := m.Called(ctx, booking)
	return args.Error(0)
}

func (m *MockBookingStore) Update(ctx context.Context, booking *domain.Booking) error {
	args := m.Called(ctx, booking)
	return args.Error(0)
}

func (m *MockBookingStore) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockBookingStore) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingStore) GetByUser(ctx context.Context, userID int64) ([]repository.UserBooking, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]repository.UserBooking), args.Error(1)
}

func (m *MockBookingStore) GetAll(ctx context.Context) ([]domain.Booking, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func (m *MockBookingStore) GetByFlightID(ctx context.Context, flightID int64) ([]domain.Booking, error) {
	args := m.Called(ctx, flightID)
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func (m *MockBookingStore) DeleteByFlightID(ctx context.Context, flightID int64) error {
	args := m.Called(ctx, flightID)
	return args.Error(0)
}

type MockFlightStore struct {
	mock.Mock
}

func (m *MockFlightStore) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Flight), args.Error(1)
}

func (m *MockFlightStore) Insert(ctx context.Context, flight *domain.Flight) error {
	args := m.Called(ctx, flight)
	return args.Error(0)
}

func (m *MockFlightStore) Update(ctx context.Context, flight *domain.Flight) error {
	args := m.Called(ctx, flight)
	return args.Error(0)
}

func (m *MockFlightStore) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockFlightStore) List(ctx context.Context) ([]domain.Flight, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Flight), args.Error(1)
}

func (m *MockFlightStore) GetPastFlights(ctx context.Context, before time.Time) ([]domain.Flight, error) {
	args := m.Called(ctx, before)
	return args.Get(0).([]domain.Flight), args.Error(1)
}

func (m *MockFlightStore) GetUpcomingFlights(ctx context.Context, from, until time.Time) ([]domain.Flight, error) {
	args := m.Called(ctx, from, until)
	return args.Get(0).([]domain.Flight), args.Error(1)
}

func (m *MockFlightStore) GetFiltered(ctx context.Context, origin, destination string, date time.Time, past bool) ([]domain.Flight, error) {
	args := m.Called(ctx, origin, destination, date, past)
	return args.Get(0).([]domain.Flight), args.Error(1)
}

func (m *MockFlightStore) DeleteFlightsByIDs(ctx context.Context, ids []int64) error {
	args := m.Called(ctx, ids)
	return args.Error(0)
}

func (m *MockFlightStore) GetOldDepartedFlightIDs(ctx context.Context, cutoff time.Time) ([]int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockFlightStore) GetIDByDetails(ctx context.Context, airline, origin, destination string, departure time.Time) (int64, error) {
	args := m.Called(ctx, airline, origin, destination, departure)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockFlightStore) SetStatus(ctx context.Context, id int64, status domain.FlightStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) AcquireSeatHold(ctx context.Context, flightID int64, seatID string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, flightID, seatID, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockCache) ReleaseSeatHold(ctx context.Context, flightID int64, seatID string) error {
	args := m.Called(ctx, flightID, seatID)
	return args.Error(0)
}

func (m *MockCache) AcquireFlightLock(ctx context.Context, flightID int64, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, flightID, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockCache) ReleaseFlightLock(ctx context.Context, flightID int64) error {
	args := m.Called(ctx, flightID)
	return args.Error(0)
}

type MockProducer struct {
	mock.Mock
}

func (m *MockProducer) Publish(ctx context.Context, topic, key string, value interface{}) error {
	args := m.Called(ctx, topic, key, value)
	return args.Error(0)
}

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type serviceMocks struct {
	inventory *MockSeatInventory
	bookings  *MockBookingStore
	flights   *MockFlightStore
	cache     *MockCache
	producer  *MockProducer
}

func newTestService() (*Service, *serviceMocks) {
	m := &serviceMocks{
		inventory: &MockSeatInventory{},
		bookings:  &MockBookingStore{},
		flights:   &MockFlightStore{},
		cache:     &MockCache{},
		producer:  &MockProducer{},
	}
	engine := pricing.NewEngine(pricing.WithClock(func() time.Time { return testNow }))
	svc := NewService(
		engine,
		m.inventory,
		m.bookings,
		m.flights,
		m.cache,
		m.producer,
		"booking_events",
		time.Minute,
		time.Minute,
		WithClock(func() time.Time { return testNow }),
	)
	return svc, m
}

func testFlight() *domain.Flight {
	return &domain.Flight{
		ID:          7,
		Airline:     "Avelora",
		AirplaneID:  2,
		Origin:      "AMS",
		Destination: "LIS",
		Departure:   testNow.Add(48 * time.Hour),
		Arrival:     testNow.Add(51 * time.Hour),
		Status:      domain.FlightStatusScheduled,
	}
}

func testSeat() domain.Seat {
	return domain.Seat{ID: "2-12C", AirplaneID: 2, Row: 12, Position: "C", Class: domain.SeatClassStandard, Fare: 100}
}

func seatMapFor(seats ...domain.Seat) []repository.SeatMapEntry {
	entries := make([]repository.SeatMapEntry, 0, len(seats))
	for _, s := range seats {
		entries = append(entries, repository.SeatMapEntry{Seat: s})
	}
	return entries
}

func TestService_Build_Pending(t *testing.T) {
	svc, m := newTestService()
	ctx := context.Background()

	rider := domain.Rider{ID: 11, Guest: true}
	b, err := svc.Build(ctx, rider, testFlight(), testSeat(), domain.NoCoupon(), 1, true)

	assert.NoError(t, err)
	assert.Equal(t, domain.BookingStatusPending, b.Status)
	assert.Equal(t, int64(7), b.FlightID)
	assert.Equal(t, "2-12C", b.SeatID)
	assert.Equal(t, 170.0, b.TotalPrice)
	assert.NotEmpty(t, b.Ref)

	// Build never touches inventory or persistence.
	m.inventory.AssertNotCalled(t, "TryAcquire")
	m.bookings.AssertNotCalled(t, "Insert")
}

func TestService_Create_Success(t *testing.T) {
	svc, m := newTestService()
	ctx := context.Background()

	flight := testFlight()
	seat := testSeat()

	m.flights.On("GetByID", ctx, flight.ID).Return(flight, nil).Once()
	m.inventory.On("GetSeatMap", ctx, flight.ID).Return(seatMapFor(seat), nil).Once()
	m.cache.On("AcquireSeatHold", ctx, flight.ID, seat.ID, time.Minute).Return(true, nil).Once()
	m.inventory.On("TryAcquire", ctx, flight.ID, seat.ID).Return(nil).Once()
	m.bookings.On("Insert", ctx, mock.AnythingOfType("*domain.Booking")).Return(nil).Once()
	m.producer.On("Publish", ctx, "booking_events", mock.Anything, mock.Anything).Return(nil).Once()
	m.cache.On("ReleaseSeatHold", ctx, flight.ID, seat.ID).Return(nil).Once()

	created, err := svc.Create(ctx, CreateInput{
		Rider:    domain.Rider{ID: 11, Guest: true},
		FlightID: flight.ID,
		SeatID:   seat.ID,
		Coupon:   domain.NoCoupon(),
		Luggage:  0,
		Insured:  false,
	})

	assert.NoError(t, err)
	assert.Equal(t, domain.BookingStatusConfirmed, created.Status)
	assert.Equal(t, 100.0, created.TotalPrice)

	m.inventory.AssertExpectations(t)
	m.bookings.AssertExpectations(t)
	m.cache.AssertExpectations(t)
	m.producer.AssertExpectations(t)
}

func TestService_Create_SeatConflict(t *testing.T) {
	svc, m := newTestService()
	ctx := context.Background()

	flight := testFlight()
	seat := testSeat()

	m.flights.On("GetByID", ctx, flight.ID).Return(flight, nil).Once()
	m.inventory.On("GetSeatMap", ctx, flight.ID).Return(seatMapFor(seat), nil).Once()
	m.cache.On("AcquireSeatHold", ctx, flight.ID, seat.ID, time.Minute).Return(true, nil).Once()
	m.inventory.On("TryAcquire", ctx, flight.ID, seat.ID).Return(domain.ErrSeatConflict).Once()
	m.cache.On("ReleaseSeatHold", ctx, flight.ID, seat.ID).Return(nil).Once()

	_, err := svc.Create(ctx, CreateInput{
		Rider:    domain.Rider{ID: 11, Guest: true},
		FlightID: flight.ID,
		SeatID:   seat.ID,
		Coupon:   domain.NoCoupon(),
	})

	assert.ErrorIs(t, err, domain.ErrSeatConflict)
	m.bookings.AssertNotCalled(t, "Insert")
	m.inventory.AssertNotCalled(t, "SetOccupancy")
	m.cache.AssertExpectations(t)
}

func TestService_Create_HoldContention(t *testing.T) {
	svc, m := newTestService()
	ctx := context.Background()

	flight := testFlight()
	seat := testSeat()

	m.flights.On("GetByID", ctx, flight.ID).Return(flight, nil).Once()
	m.inventory.On("GetSeatMap", ctx, flight.ID).Return(seatMapFor(seat), nil).Once()
	m.cache.On("AcquireSeatHold", ctx, flight.ID, seat.ID, time.Minute).Return(false, nil).Once()

	_, err := svc.Create(ctx, CreateInput{
		Rider:    domain.Rider{ID: 11, Guest: true},
		FlightID: flight.ID,
		SeatID:   seat.ID,
		Coupon:   domain.NoCoupon(),
	})

	assert.ErrorIs(t, err, domain.ErrSeatConflict)
	m.inventory.AssertNotCalled(t, "TryAcquire")
}

func TestService_Create_InsertFailureReleasesSeat(t *testing.T) {
	svc, m := newTestService()
	ctx := context.Background()

	flight := testFlight()
	seat := testSeat()
	storeErr := errors.New("connection reset")

	m.flights.On("GetByID", ctx, flight.ID).Return(flight, nil).Once()
	m.inventory.On("GetSeatMap", ctx, flight.ID).Return(seatMapFor(seat), nil).Once()
	m.cache.On("AcquireSeatHold", ctx, flight.ID, seat.ID, time.Minute).Return(true, nil).Once()
	m.inventory.On("TryAcquire", ctx, flight.ID, seat.ID).Return(nil).Once()
	m.bookings.On("Insert", ctx, mock.AnythingOfType("*domain.Booking")).Return(storeErr).Once()
	m.inventory.On("SetOccupancy", ctx, flight.ID, seat.ID, false).Return(nil).Once()
	m.cache.On("ReleaseSeatHold", ctx, flight.ID, seat.ID).Return(nil).Once()

	_, err := svc.Create(ctx, CreateInput{
		Rider:    domain.Rider{ID: 11, Guest: true},
		FlightID: flight.ID,
		SeatID:   seat.ID,
		Coupon:   domain.NoCoupon(),
	})

	assert.ErrorIs(t, err, storeErr)
	m.inventory.AssertExpectations(t)
}

func TestService_Cancel_NotFound(t *testing.T) {
	svc, m := newTestService()
	ctx := context.Background()

	m.bookings.On("GetByID", ctx, int64(404)).Return(nil, domain.ErrNotFound).Once()

	ok, free, err := svc.Cancel(ctx, 404)

	assert.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, free)
	m.inventory.AssertNotCalled(t, "SetOccupancy")
	m.bookings.AssertNotCalled(t, "Update")
}

func TestService_Cancel_AlreadyCancelled(t *testing.T) {
	svc, m := newTestService()
	ctx := context.Background()

	cancelled := &domain.Booking{ID: 5, Status: domain.BookingStatusCancelled, FlightID: 7, SeatID: "2-12C"}
	m.bookings.On("GetByID", ctx, int64(5)).Return(cancelled, nil).Once()

	ok, free, err := svc.Cancel(ctx, 5)

	assert.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, free)
	m.inventory.AssertNotCalled(t, "SetOccupancy")
}

func TestService_Cancel_RefundPolicy(t *testing.T) {
	testCases := []struct {
		name      string
		insured   bool
		price     float64
		wantPrice float64
		wantFree  bool
	}{
		{name: "insured cancels free", insured: true, price: 350, wantPrice: 0, wantFree: true},
		{name: "uninsured above fee", insured: false, price: 350, wantPrice: 250, wantFree: false},
		{name: "uninsured at fee", insured: false, price: 100, wantPrice: 0, wantFree: false},
		{name: "uninsured below fee", insured: false, price: 40, wantPrice: 0, wantFree: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			svc, m := newTestService()
			ctx := context.Background()

			b := &domain.Booking{
				ID:         9,
				Ref:        "ref-9",
				Status:     domain.BookingStatusConfirmed,
				FlightID:   7,
				SeatID:     "2-12C",
				Insured:    tc.insured,
				TotalPrice: tc.price,
			}

			m.bookings.On("GetByID", ctx, int64(9)).Return(b, nil).Once()
			m.cache.On("AcquireFlightLock", ctx, int64(7), time.Minute).Return(true, nil).Once()
			m.cache.On("ReleaseFlightLock", ctx, int64(7)).Return(nil).Once()
			m.inventory.On("SetOccupancy", ctx, int64(7), "2-12C", false).Return(nil).Once()
			m.bookings.On("Update", ctx, mock.AnythingOfType("*domain.Booking")).Return(nil).Once()
			m.producer.On("Publish", ctx, "booking_events", "ref-9", mock.Anything).Return(nil).Once()

			ok, free, err := svc.Cancel(ctx, 9)

			assert.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, tc.wantFree, free)
			assert.Equal(t, tc.wantPrice, b.TotalPrice)
			assert.Equal(t, domain.BookingStatusCancelled, b.Status)
			assert.Equal(t, tc.insured, b.Insured, "insurance flag preserved")

			m.bookings.AssertExpectations(t)
			m.inventory.AssertExpectations(t)
			m.cache.AssertExpectations(t)
		})
	}
}

func TestService_Modify_NotFound(t *testing.T) {
	svc, m := newTestService()
	ctx := context.Background()

	m.bookings.On("GetByID", ctx, int64(404)).Return(nil, domain.ErrNotFound).Once()

	ok, err := svc.Modify(ctx, 404, domain.Rider{ID: 11}, "2-14A", 1)

	assert.NoError(t, err)
	assert.False(t, ok)
	m.inventory.AssertNotCalled(t, "TryAcquire")
}

func TestService_Modify_Success(t *testing.T) {
	svc, m := newTestService()
	ctx := context.Background()

	oldSeat := testSeat()
	newSeat := domain.Seat{ID: "2-14A", AirplaneID: 2, Row: 14, Position: "A", Class: domain.SeatClassPremium, Fare: 220}
	b := &domain.Booking{
		ID:        9,
		Ref:       "ref-9",
		Status:    domain.BookingStatusConfirmed,
		UserID:    11,
		FlightID:  7,
		SeatID:    oldSeat.ID,
		SeatClass: oldSeat.Class,
		Luggage:   0,
		Insured:   true,
	}

	m.bookings.On("GetByID", ctx, int64(9)).Return(b, nil).Once()
	m.inventory.On("GetSeatMap", ctx, int64(7)).Return(seatMapFor(oldSeat, newSeat), nil).Once()
	m.cache.On("AcquireFlightLock", ctx, int64(7), time.Minute).Return(true, nil).Once()
	m.cache.On("ReleaseFlightLock", ctx, int64(7)).Return(nil).Once()
	m.inventory.On("TryAcquire", ctx, int64(7), newSeat.ID).Return(nil).Once()
	m.bookings.On("Update", ctx, mock.AnythingOfType("*domain.Booking")).Return(nil).Once()
	m.inventory.On("SetOccupancy", ctx, int64(7), oldSeat.ID, false).Return(nil).Once()
	m.producer.On("Publish", ctx, "booking_events", "ref-9", mock.Anything).Return(nil).Once()

	ok, err := svc.Modify(ctx, 9, domain.Rider{ID: 11, Guest: true}, newSeat.ID, 2)

	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, newSeat.ID, b.SeatID)
	assert.Equal(t, domain.SeatClassPremium, b.SeatClass)
	assert.Equal(t, 2, b.Luggage)
	// 220 fare + 20% insurance + 2x50 luggage, no coupon reapplied.
	assert.InDelta(t, 364.0, b.TotalPrice, 1e-9)

	m.inventory.AssertExpectations(t)
	m.bookings.AssertExpectations(t)
}

func TestService_Modify_NewSeatConflictKeepsOldSeat(t *testing.T) {
	svc, m := newTestService()
	ctx := context.Background()

	oldSeat := testSeat()
	newSeat := domain.Seat{ID: "2-14A", AirplaneID: 2, Row: 14, Position: "A", Class: domain.SeatClassPremium, Fare: 220}
	b := &domain.Booking{ID: 9, Status: domain.BookingStatusConfirmed, FlightID: 7, SeatID: oldSeat.ID}

	m.bookings.On("GetByID", ctx, int64(9)).Return(b, nil).Once()
	m.inventory.On("GetSeatMap", ctx, int64(7)).Return(seatMapFor(oldSeat, newSeat), nil).Once()
	m.cache.On("AcquireFlightLock", ctx, int64(7), time.Minute).Return(true, nil).Once()
	m.cache.On("ReleaseFlightLock", ctx, int64(7)).Return(nil).Once()
	m.inventory.On("TryAcquire", ctx, int64(7), newSeat.ID).Return(domain.ErrSeatConflict).Once()

	ok, err := svc.Modify(ctx, 9, domain.Rider{ID: 11}, newSeat.ID, 0)

	assert.ErrorIs(t, err, domain.ErrSeatConflict)
	assert.False(t, ok)
	// The old seat must never be released when the new acquisition fails.
	m.inventory.AssertNotCalled(t, "SetOccupancy")
	m.bookings.AssertNotCalled(t, "Update")
}

func TestService_Modify_SameSeatSkipsSwap(t *testing.T) {
	svc, m := newTestService()
	ctx := context.Background()

	seat := testSeat()
	b := &domain.Booking{ID: 9, Ref: "ref-9", Status: domain.BookingStatusConfirmed, FlightID: 7, SeatID: seat.ID, SeatClass: seat.Class}

	m.bookings.On("GetByID", ctx, int64(9)).Return(b, nil).Once()
	m.inventory.On("GetSeatMap", ctx, int64(7)).Return(seatMapFor(seat), nil).Once()
	m.cache.On("AcquireFlightLock", ctx, int64(7), time.Minute).Return(true, nil).Once()
	m.cache.On("ReleaseFlightLock", ctx, int64(7)).Return(nil).Once()
	m.bookings.On("Update", ctx, mock.AnythingOfType("*domain.Booking")).Return(nil).Once()
	m.producer.On("Publish", ctx, "booking_events", "ref-9", mock.Anything).Return(nil).Once()

	ok, err := svc.Modify(ctx, 9, domain.Rider{ID: 11, Guest: true}, seat.ID, 2)

	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, b.Luggage)
	m.inventory.AssertNotCalled(t, "TryAcquire")
	m.inventory.AssertNotCalled(t, "SetOccupancy")
}

func TestService_GetForUser_Classification(t *testing.T) {
	svc, m := newTestService()
	ctx := context.Background()

	records := []repository.UserBooking{
		{
			Booking:   domain.Booking{ID: 1, Status: domain.BookingStatusConfirmed},
			Departure: testNow.Add(24 * time.Hour),
		},
		{
			Booking:   domain.Booking{ID: 2, Status: domain.BookingStatusConfirmed},
			Departure: testNow.Add(-24 * time.Hour),
		},
		{
			// Cancelled with a future departure is still "past".
			Booking:   domain.Booking{ID: 3, Status: domain.BookingStatusCancelled},
			Departure: testNow.Add(24 * time.Hour),
		},
	}

	m.bookings.On("GetByUser", ctx, int64(11)).Return(records, nil).Twice()

	upcoming, err := svc.GetForUser(ctx, 11, true)
	assert.NoError(t, err)
	assert.Len(t, upcoming, 1)
	assert.Equal(t, int64(1), upcoming[0].ID)

	past, err := svc.GetForUser(ctx, 11, false)
	assert.NoError(t, err)
	assert.Len(t, past, 2)
	assert.Equal(t, int64(2), past[0].ID)
	assert.Equal(t, int64(3), past[1].ID)
}

func TestService_Commit_RejectsConfirmed(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	b := &domain.Booking{Status: domain.BookingStatusConfirmed}
	err := svc.Commit(ctx, b)

	assert.ErrorIs(t, err, domain.ErrValidation)
}
