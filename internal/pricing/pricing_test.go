package pricing

import (
	"testing"
	"time"

	"github.com/avelora/skybooking/internal/domain"
	"github.com/stretchr/testify/assert"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() func() time.Time {
	return func() time.Time { return testNow }
}

func TestEngine_ComputePrice_BaseScenario(t *testing.T) {
	engine := NewEngine(WithClock(fixedClock()))

	rider := domain.Rider{ID: 1, Guest: true}

	quote, err := engine.ComputePrice(100, 1, true, rider, domain.NoCoupon())

	assert.NoError(t, err)
	assert.Equal(t, 20.0, quote.InsuranceCost)
	assert.Equal(t, 1.0, quote.DiscountFactor)
	assert.Equal(t, 170.0, quote.Total)
}

func TestEngine_ComputePrice_LuggageMonotonic(t *testing.T) {
	engine := NewEngine(WithClock(fixedClock()))
	rider := domain.Rider{ID: 1, Guest: true}

	fares := []float64{0, 50, 100, 499.99}
	for _, fare := range fares {
		prev := -1.0
		for n := 0; n <= 2; n++ {
			quote, err := engine.ComputePrice(fare, n, false, rider, domain.NoCoupon())
			assert.NoError(t, err)
			assert.GreaterOrEqual(t, quote.Total, prev, "fare %.2f luggage %d", fare, n)
			prev = quote.Total
		}
	}
}

func TestEngine_ComputePrice_FlatMode(t *testing.T) {
	engine := NewFlatEngine(WithClock(fixedClock()))
	rider := domain.Rider{ID: 1, Guest: true}

	quote, err := engine.ComputePrice(100, 2, false, rider, domain.NoCoupon())

	assert.NoError(t, err)
	assert.Equal(t, 1100.0, quote.Total)
}

func TestEngine_ComputePrice_FirstBookingDiscount(t *testing.T) {
	engine := NewEngine(WithClock(fixedClock()))
	rider := domain.Rider{ID: 1, FirstBookingDiscount: true}

	quote, err := engine.ComputePrice(200, 0, false, rider, domain.NoCoupon())

	assert.NoError(t, err)
	assert.Equal(t, 0.9, quote.DiscountFactor)
	assert.InDelta(t, 180.0, quote.Total, 1e-9)
}

func TestEngine_ComputePrice_SeniorBoundary(t *testing.T) {
	engine := NewEngine(WithClock(fixedClock()))

	testCases := []struct {
		name       string
		birthDate  time.Time
		wantFactor float64
	}{
		{
			name:       "exactly 65 today",
			birthDate:  testNow.AddDate(-65, 0, 0),
			wantFactor: 0.8,
		},
		{
			name:       "64 years 364 days",
			birthDate:  testNow.AddDate(-65, 0, 1),
			wantFactor: 1.0,
		},
		{
			name:       "well past 65",
			birthDate:  testNow.AddDate(-80, 0, 0),
			wantFactor: 0.8,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rider := domain.Rider{ID: 2, BirthDate: tc.birthDate}
			quote, err := engine.ComputePrice(100, 0, false, rider, domain.NoCoupon())
			assert.NoError(t, err)
			assert.InDelta(t, tc.wantFactor, quote.DiscountFactor, 1e-9)
		})
	}
}

func TestEngine_ComputePrice_GuestNeverDiscounted(t *testing.T) {
	engine := NewEngine(WithClock(fixedClock()))

	rider := domain.Rider{
		ID:                   3,
		Guest:                true,
		BirthDate:            testNow.AddDate(-80, 0, 0),
		FirstBookingDiscount: true,
	}

	quote, err := engine.ComputePrice(100, 0, false, rider, domain.NoCoupon())

	assert.NoError(t, err)
	assert.Equal(t, 1.0, quote.DiscountFactor)
	assert.Equal(t, 100.0, quote.Total)
}

func TestEngine_ComputePrice_PercentCoupon(t *testing.T) {
	engine := NewEngine(WithClock(fixedClock()))
	rider := domain.Rider{ID: 1, Guest: true}

	quote, err := engine.ComputePrice(100, 0, false, rider, domain.PercentCoupon(25))

	assert.NoError(t, err)
	assert.InDelta(t, 0.75, quote.DiscountFactor, 1e-9)
	assert.InDelta(t, 75.0, quote.Total, 1e-9)
}

func TestEngine_ComputePrice_StackedDiscountsNotClamped(t *testing.T) {
	engine := NewEngine(WithClock(fixedClock()))

	rider := domain.Rider{
		ID:                   4,
		BirthDate:            testNow.AddDate(-70, 0, 0),
		FirstBookingDiscount: true,
	}

	// 1.0 - 0.10 - 0.20 - 0.90 = -0.20, no floor applied.
	quote, err := engine.ComputePrice(100, 0, false, rider, domain.PercentCoupon(90))

	assert.NoError(t, err)
	assert.InDelta(t, -0.2, quote.DiscountFactor, 1e-9)
	assert.InDelta(t, -20.0, quote.Total, 1e-9)
}

func TestEngine_ComputePrice_SpiceCoupon(t *testing.T) {
	engine := NewEngine(WithClock(fixedClock()))

	testCases := []struct {
		name  string
		rider domain.Rider
	}{
		{name: "guest", rider: domain.Rider{ID: 5, Guest: true}},
		{name: "senior with first booking", rider: domain.Rider{
			ID:                   6,
			BirthDate:            testNow.AddDate(-70, 0, 0),
			FirstBookingDiscount: true,
		}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			quote, err := engine.ComputePrice(100, 1, true, tc.rider, domain.SpiceCoupon())
			assert.NoError(t, err)

			base := 100.0 + 20.0 + 50.0
			assert.InDelta(t, -(base * quote.DiscountFactor), quote.Total, 1e-9)
			assert.LessOrEqual(t, quote.Total, 0.0)
		})
	}
}

func TestEngine_ComputePrice_ValidationErrors(t *testing.T) {
	engine := NewEngine(WithClock(fixedClock()))
	rider := domain.Rider{ID: 1, Guest: true}

	testCases := []struct {
		name    string
		fare    float64
		luggage int
		coupon  domain.Coupon
	}{
		{name: "negative fare", fare: -1, luggage: 0, coupon: domain.NoCoupon()},
		{name: "negative luggage", fare: 100, luggage: -1, coupon: domain.NoCoupon()},
		{name: "too much luggage", fare: 100, luggage: 3, coupon: domain.NoCoupon()},
		{name: "coupon over 100 percent", fare: 100, luggage: 0, coupon: domain.PercentCoupon(150)},
		{name: "negative coupon percent", fare: 100, luggage: 0, coupon: domain.PercentCoupon(-5)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := engine.ComputePrice(tc.fare, tc.luggage, false, rider, tc.coupon)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}
