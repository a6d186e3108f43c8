package store

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCouponComputeDiscount(t *testing.T) {
	cap50 := d("50.00")

	tests := []struct {
		name   string
		coupon Coupon
		amount string
		want   string
	}{
		{
			name:   "percentage discount",
			coupon: Coupon{DiscountType: DiscountPercentage, DiscountValue: d("10")},
			amount: "1000.00",
			want:   "100.00",
		},
		{
			name:   "percentage rounds half up",
			coupon: Coupon{DiscountType: DiscountPercentage, DiscountValue: d("15")},
			amount: "99.99",
			want:   "15.00",
		},
		{
			name:   "percentage capped by max discount",
			coupon: Coupon{DiscountType: DiscountPercentage, DiscountValue: d("10"), MaxDiscountAmount: &cap50},
			amount: "1000.00",
			want:   "50.00",
		},
		{
			name:   "fixed discount",
			coupon: Coupon{DiscountType: DiscountFixed, DiscountValue: d("75.00")},
			amount: "1000.00",
			want:   "75.00",
		},
		{
			name:   "fixed discount clamped to amount",
			coupon: Coupon{DiscountType: DiscountFixed, DiscountValue: d("75.00")},
			amount: "40.00",
			want:   "40.00",
		},
		{
			name:   "fixed discount capped by max discount",
			coupon: Coupon{DiscountType: DiscountFixed, DiscountValue: d("75.00"), MaxDiscountAmount: &cap50},
			amount: "1000.00",
			want:   "50.00",
		},
		{
			name:   "unknown type gives zero",
			coupon: Coupon{DiscountType: "bogus", DiscountValue: d("75.00")},
			amount: "1000.00",
			want:   "0",
		},
		{
			name:   "negative amount gives zero",
			coupon: Coupon{DiscountType: DiscountFixed, DiscountValue: d("75.00")},
			amount: "-10.00",
			want:   "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.coupon.ComputeDiscount(d(tt.amount))
			if !got.Equal(d(tt.want)) {
				t.Errorf("ComputeDiscount(%s) = %s, want %s", tt.amount, got, tt.want)
			}
		})
	}
}

func TestTeacherCommissionRemainingBalance(t *testing.T) {
	ledger := TeacherCommission{TotalEarned: d("733.48"), TotalPaid: d("100.00")}
	if got := ledger.RemainingBalance(); !got.Equal(d("633.48")) {
		t.Errorf("RemainingBalance() = %s, want 633.48", got)
	}
}
