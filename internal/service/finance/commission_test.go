package finance

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestCalculateSplit(t *testing.T) {
	tests := []struct {
		name         string
		net          string
		rate         string
		discount     string
		scenario     string
		wantPlatform string
		wantTeacher  string
		wantExtra    string
		wantErr      error
	}{
		{
			name:         "normal sale",
			net:          "976.40",
			rate:         "30",
			discount:     "0",
			scenario:     ScenarioNormal,
			wantPlatform: "292.92",
			wantTeacher:  "683.48",
			wantExtra:    "0",
		},
		{
			name:         "platform coupon records discount without beneficiary",
			net:          "976.40",
			rate:         "30",
			discount:     "50.00",
			scenario:     ScenarioPlatformCoupon,
			wantPlatform: "292.92",
			wantTeacher:  "683.48",
			wantExtra:    "50.00",
		},
		{
			name:         "teacher coupon earns discount back",
			net:          "976.40",
			rate:         "30",
			discount:     "50.00",
			scenario:     ScenarioTeacherCoupon,
			wantPlatform: "292.92",
			wantTeacher:  "683.48",
			wantExtra:    "50.00",
		},
		{
			name:         "zero rate gives everything to teacher",
			net:          "976.40",
			rate:         "0",
			discount:     "0",
			scenario:     ScenarioNormal,
			wantPlatform: "0.00",
			wantTeacher:  "976.40",
			wantExtra:    "0",
		},
		{
			name:         "full rate gives everything to platform",
			net:          "976.40",
			rate:         "100",
			discount:     "0",
			scenario:     ScenarioNormal,
			wantPlatform: "976.40",
			wantTeacher:  "0.00",
			wantExtra:    "0",
		},
		{
			name:         "uneven rate still sums to net",
			net:          "99.99",
			rate:         "33.33",
			discount:     "0",
			scenario:     ScenarioNormal,
			wantPlatform: "33.33",
			wantTeacher:  "66.66",
			wantExtra:    "0",
		},
		{
			name:     "negative net rejected",
			net:      "-1.00",
			rate:     "30",
			discount: "0",
			scenario: ScenarioNormal,
			wantErr:  ErrInvalidAmount,
		},
		{
			name:     "negative discount rejected",
			net:      "100.00",
			rate:     "30",
			discount: "-5.00",
			scenario: ScenarioTeacherCoupon,
			wantErr:  ErrInvalidAmount,
		},
		{
			name:     "rate above 100 rejected",
			net:      "100.00",
			rate:     "101",
			discount: "0",
			scenario: ScenarioNormal,
			wantErr:  ErrInvalidRate,
		},
		{
			name:     "negative rate rejected",
			net:      "100.00",
			rate:     "-1",
			discount: "0",
			scenario: ScenarioNormal,
			wantErr:  ErrInvalidRate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CalculateSplit(d(tt.net), d(tt.rate), d(tt.discount), tt.scenario)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("CalculateSplit() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("CalculateSplit() unexpected error: %v", err)
			}

			if !got.PlatformCommission.Equal(d(tt.wantPlatform)) {
				t.Errorf("PlatformCommission = %s, want %s", got.PlatformCommission, tt.wantPlatform)
			}
			if !got.TeacherRevenue.Equal(d(tt.wantTeacher)) {
				t.Errorf("TeacherRevenue = %s, want %s", got.TeacherRevenue, tt.wantTeacher)
			}
			if !got.ExtraCommission.Equal(d(tt.wantExtra)) {
				t.Errorf("ExtraCommission = %s, want %s", got.ExtraCommission, tt.wantExtra)
			}

			// conservation: everything distributed equals net plus the
			// discount moved by the scenario
			wantTotal := d(tt.net)
			if tt.scenario != ScenarioNormal {
				wantTotal = wantTotal.Add(d(tt.discount))
			}
			if !got.Total().Equal(wantTotal) {
				t.Errorf("Total() = %s, want %s", got.Total(), wantTotal)
			}
		})
	}
}

func TestParseRate(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "integer rate", raw: "30", want: "30"},
		{name: "fractional rate", raw: "12.5", want: "12.5"},
		{name: "zero", raw: "0", want: "0"},
		{name: "hundred", raw: "100", want: "100"},
		{name: "empty", raw: "", wantErr: true},
		{name: "not a number", raw: "abc", wantErr: true},
		{name: "negative", raw: "-5", wantErr: true},
		{name: "above hundred", raw: "150", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRate(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRate(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, ErrInvalidRate) {
					t.Errorf("expected ErrInvalidRate, got %v", err)
				}
				return
			}
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("ParseRate(%q) = %s, want %s", tt.raw, got, tt.want)
			}
		})
	}
}
