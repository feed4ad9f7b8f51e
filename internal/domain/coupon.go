package domain

type CouponKind string

const (
	CouponNone       CouponKind = "NONE"
	CouponPercentage CouponKind = "PERCENTAGE"
	CouponSpice      CouponKind = "SPICE"
)

// Coupon is supplied per booking attempt and never persisted.
type Coupon struct {
	Kind    CouponKind
	Percent float64
}

func NoCoupon() Coupon {
	return Coupon{Kind: CouponNone}
}

func PercentCoupon(pct float64) Coupon {
	return Coupon{Kind: CouponPercentage, Percent: pct}
}

// SpiceCoupon is a reserved code producing a deliberately negative price.
func SpiceCoupon() Coupon {
	return Coupon{Kind: CouponSpice}
}

func (c Coupon) Valid() bool {
	switch c.Kind {
	case CouponNone, CouponSpice:
		return true
	case CouponPercentage:
		return c.Percent >= 0 && c.Percent <= 100
	default:
		return false
	}
}
