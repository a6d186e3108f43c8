package codes

import (
	"strings"
	"testing"
)

func TestGenerateCouponCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code, err := GenerateCouponCode()
		if err != nil {
			t.Fatalf("GenerateCouponCode() error = %v", err)
		}
		if len(code) != CouponCodeLength {
			t.Fatalf("GenerateCouponCode() length = %d, want %d", len(code), CouponCodeLength)
		}
		for _, ch := range code {
			if !strings.ContainsRune(charsetCoupon, ch) {
				t.Fatalf("GenerateCouponCode() produced character %q outside charset", ch)
			}
		}
		if seen[code] {
			t.Fatalf("GenerateCouponCode() repeated code %s within 50 draws", code)
		}
		seen[code] = true
	}
}

func TestGenerateReceiptToken(t *testing.T) {
	token, err := GenerateReceiptToken()
	if err != nil {
		t.Fatalf("GenerateReceiptToken() error = %v", err)
	}
	if len(token) != ReceiptTokenByteLength*2 {
		t.Errorf("GenerateReceiptToken() length = %d, want %d", len(token), ReceiptTokenByteLength*2)
	}
}

func TestGenerateSecureTokenRejectsBadLength(t *testing.T) {
	if _, err := GenerateSecureToken(0); err != ErrInvalidLength {
		t.Errorf("GenerateSecureToken(0) error = %v, want ErrInvalidLength", err)
	}
}

func TestNormalizeCode(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  k7mpq2xw ", "K7MPQ2XW"},
		{"DIWALI25", "DIWALI25"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeCode(tt.in); got != tt.want {
			t.Errorf("NormalizeCode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatAndParseCode(t *testing.T) {
	formatted := FormatCode("K7MPQ2XW", 4)
	if formatted != "K7MP-Q2XW" {
		t.Errorf("FormatCode() = %q, want K7MP-Q2XW", formatted)
	}
	if got := ParseCode(formatted); got != "K7MPQ2XW" {
		t.Errorf("ParseCode(%q) = %q, want K7MPQ2XW", formatted, got)
	}
	// group size larger than code is a no-op
	if got := FormatCode("ABC", 4); got != "ABC" {
		t.Errorf("FormatCode(ABC, 4) = %q, want ABC", got)
	}
}
