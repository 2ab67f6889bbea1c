package pricing

// Case is the pricing path chosen from which inputs are known.
type Case int

const (
	// CaseInvalid: too few inputs to price.
	CaseInvalid Case = iota
	// CaseCalibrate: price, coupon structure and rate all known. The
	// theoretical price replaces the given one and the difference is reported
	// as PriceAdjustment.
	CaseCalibrate
	// CaseSolveRate: price and coupon structure known; yield and spread are solved.
	CaseSolveRate
	// CaseSolveCoupon: price and rate known; the coupon rate is solved.
	CaseSolveCoupon
	// CaseTheoretical: coupon structure and rate known; price follows directly.
	CaseTheoretical
)

func (c Case) String() string {
	switch c {
	case CaseCalibrate:
		return "calibrate"
	case CaseSolveRate:
		return "solve-rate"
	case CaseSolveCoupon:
		return "solve-coupon"
	case CaseTheoretical:
		return "theoretical"
	default:
		return "invalid"
	}
}

// Classify maps the three facts (price known, coupon structure known, rate
// known) onto a Case.
func Classify(in Inputs) Case {
	priceKnown := in.Price != nil
	couponKnown := in.CouponRate != nil || in.CouponsObserved
	rateKnown := in.Yield != nil || in.ZSpreadBps != nil

	switch {
	case priceKnown && couponKnown && rateKnown:
		return CaseCalibrate
	case priceKnown && couponKnown && !rateKnown:
		return CaseSolveRate
	case priceKnown && !couponKnown && rateKnown:
		return CaseSolveCoupon
	case !priceKnown && couponKnown && rateKnown:
		return CaseTheoretical
	default:
		return CaseInvalid
	}
}
