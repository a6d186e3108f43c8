package finance

import "github.com/shopspring/decimal"

// Commission scenarios. The scenario decides who keeps the coupon discount.
const (
	ScenarioNormal         = "normal"
	ScenarioPlatformCoupon = "platform_coupon"
	ScenarioTeacherCoupon  = "teacher_coupon"
)

// Split is the division of one payment's net amount between the platform
// and the course teacher.
//
// TeacherRevenue is the course teacher's share of the net amount.
// ExtraCommission carries the coupon discount in both coupon scenarios:
// with a teacher coupon it is credited to the coupon's beneficiary (usually
// but not necessarily the course teacher); with a platform coupon there is
// no beneficiary and the amount is bookkeeping only.
type Split struct {
	Scenario           string
	Rate               decimal.Decimal
	PlatformCommission decimal.Decimal
	TeacherRevenue     decimal.Decimal
	ExtraCommission    decimal.Decimal
}

// Total returns everything distributed by this split.
func (s Split) Total() decimal.Decimal {
	return s.PlatformCommission.Add(s.TeacherRevenue).Add(s.ExtraCommission)
}

// CalculateSplit divides net between platform and teacher.
//
// The platform base is net*rate/100 rounded to 2 decimal places; the
// teacher share is the exact remainder, so base + teacher == net always
// holds. The discount then moves whole into ExtraCommission:
//
//   - normal: no coupon, discount ignored.
//   - platform_coupon: the platform funded the discount; ExtraCommission
//     records it with no beneficiary.
//   - teacher_coupon: the teacher funded the discount and earns it back
//     through ExtraCommission.
//
// In both coupon scenarios Total() == net + discount: the discount is
// money the payer never sent, accounted to whoever gave it up.
func CalculateSplit(net, rate, discount decimal.Decimal, scenario string) (Split, error) {
	if net.IsNegative() || discount.IsNegative() {
		return Split{}, ErrInvalidAmount
	}
	if rate.IsNegative() || rate.GreaterThan(hundred) {
		return Split{}, ErrInvalidRate
	}

	base := net.Mul(rate).Div(hundred).Round(2)
	teacher := net.Sub(base)

	split := Split{
		Scenario:           scenario,
		Rate:               rate,
		PlatformCommission: base,
		TeacherRevenue:     teacher,
		ExtraCommission:    decimal.Zero,
	}

	switch scenario {
	case ScenarioPlatformCoupon, ScenarioTeacherCoupon:
		split.ExtraCommission = discount
	case ScenarioNormal:
		// discount, if any, stays with the payer's price reduction only
	default:
		return Split{}, ErrInvalidAmount
	}

	return split, nil
}

// ParseRate validates and parses a commission rate given as a string
// (configuration or API input). A malformed or out-of-range value returns
// ErrInvalidRate; it is never silently defaulted.
func ParseRate(raw string) (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, ErrInvalidRate
	}
	if rate.IsNegative() || rate.GreaterThan(hundred) {
		return decimal.Zero, ErrInvalidRate
	}
	return rate, nil
}
