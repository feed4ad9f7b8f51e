package pricing

import (
	"fmt"
	"time"

	"github.com/avelora/skybooking/internal/domain"
)

const (
	InsuranceRate = 0.20

	// Per-item luggage fee depends on the pricing mode the engine was built
	// with. The two fee schedules never mix inside one computation.
	PerSeatLuggageFee = 50.0
	FlatLuggageFee    = 500.0

	MaxLuggage = 2

	firstBookingDiscount = 0.10
	seniorDiscount       = 0.20
	seniorAgeYears       = 65
)

// Quote is the result of a single price computation.
type Quote struct {
	Total          float64
	DiscountFactor float64
	InsuranceCost  float64
}

// Engine computes final prices from a seat fare and rider options. It is pure:
// no I/O, deterministic given its inputs and clock.
type Engine struct {
	luggageFee float64
	now        func() time.Time
}

type Option func(*Engine)

// WithClock substitutes the wall clock used for age calculation.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine builds an engine in per-seat pricing mode.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{luggageFee: PerSeatLuggageFee, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewFlatEngine builds an engine in simplified flat-pricing mode.
func NewFlatEngine(opts ...Option) *Engine {
	e := NewEngine(opts...)
	e.luggageFee = FlatLuggageFee
	return e
}

// ComputePrice prices a booking attempt. The discount factor starts at 1.0 and
// is reduced additively; it is deliberately not floored, so stacked discounts
// can drive it below zero. A Spice coupon short-circuits all other coupon math
// and flips the sign of the total.
func (e *Engine) ComputePrice(fare float64, luggage int, insured bool, rider domain.Rider, coupon domain.Coupon) (Quote, error) {
	if fare < 0 {
		return Quote{}, fmt.Errorf("%w: fare must be non-negative", domain.ErrValidation)
	}
	if luggage < 0 || luggage > MaxLuggage {
		return Quote{}, fmt.Errorf("%w: luggage count must be between 0 and %d", domain.ErrValidation, MaxLuggage)
	}
	if !coupon.Valid() {
		return Quote{}, fmt.Errorf("%w: invalid coupon", domain.ErrValidation)
	}

	base := fare
	var insuranceCost float64
	if insured {
		insuranceCost = InsuranceRate * fare
		base += insuranceCost
	}
	base += e.luggageFee * float64(luggage)

	factor := 1.0
	if !rider.Guest {
		if rider.FirstBookingDiscount {
			factor -= firstBookingDiscount
		}
		if e.isSenior(rider) {
			factor -= seniorDiscount
		}
	}
	if coupon.Kind == domain.CouponPercentage {
		factor -= coupon.Percent / 100
	}

	total := base * factor
	if coupon.Kind == domain.CouponSpice {
		total = -(base * factor)
	}

	return Quote{Total: total, DiscountFactor: factor, InsuranceCost: insuranceCost}, nil
}

func (e *Engine) isSenior(rider domain.Rider) bool {
	if rider.BirthDate.IsZero() {
		return false
	}
	return !e.now().Before(rider.BirthDate.AddDate(seniorAgeYears, 0, 0))
}
