package finance

import "github.com/shopspring/decimal"

// Gateway pricing: 2% transaction fee plus 18% GST charged on the fee.
var (
	gatewayFeeRate = decimal.RequireFromString("0.02")
	gstRate        = decimal.RequireFromString("0.18")
	hundred        = decimal.NewFromInt(100)
)

// FeeBreakdown is the frozen fee decomposition of one payment.
type FeeBreakdown struct {
	GrossAmount decimal.Decimal
	GatewayFee  decimal.Decimal
	GatewayTax  decimal.Decimal
	NetAmount   decimal.Decimal
}

// ComputeFees splits a gross payment amount into gateway fee, GST on that
// fee, and the net amount left for distribution.
//
// The fee is rounded to 2 decimal places first and the tax is computed on
// the rounded fee, matching how the gateway itself bills. Decimal rounding
// is half-up for the non-negative amounts accepted here.
func ComputeFees(gross decimal.Decimal) (FeeBreakdown, error) {
	if gross.IsNegative() {
		return FeeBreakdown{}, ErrInvalidAmount
	}

	fee := gross.Mul(gatewayFeeRate).Round(2)
	tax := fee.Mul(gstRate).Round(2)
	net := gross.Sub(fee).Sub(tax).Round(2)

	return FeeBreakdown{
		GrossAmount: gross.Round(2),
		GatewayFee:  fee,
		GatewayTax:  tax,
		NetAmount:   net,
	}, nil
}
