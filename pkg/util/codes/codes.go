// Package codes generates and normalizes coupon codes and opaque tokens.
package codes

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

var ErrInvalidLength = errors.New("invalid code length")

const (
	// CouponCodeLength is the length of generated coupon codes
	CouponCodeLength = 8

	// ReceiptTokenByteLength is the number of random bytes for receipt
	// reference tokens (produces 32 hex chars)
	ReceiptTokenByteLength = 16

	// Uppercase alphanumeric excluding ambiguous characters (0/O, 1/I/L)
	charsetCoupon = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
)

// GenerateCouponCode creates a random coupon code.
// Format: 8 uppercase alphanumeric characters (e.g., "K7MPQ2XW").
func GenerateCouponCode() (string, error) {
	return generateFromCharset(CouponCodeLength, charsetCoupon)
}

// GenerateReceiptToken creates an opaque reference for payment receipts.
// Returns a 32-character hex string.
func GenerateReceiptToken() (string, error) {
	return GenerateSecureToken(ReceiptTokenByteLength)
}

// GenerateSecureToken creates a cryptographically secure hex token.
// byteLength specifies the number of random bytes (output will be 2x this length in hex).
func GenerateSecureToken(byteLength int) (string, error) {
	if byteLength < 1 {
		return "", ErrInvalidLength
	}

	b := make([]byte, byteLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	return hex.EncodeToString(b), nil
}

// GenerateCode creates a code of specified length from a given character set.
func GenerateCode(length int, charset string) (string, error) {
	if length < 1 {
		return "", ErrInvalidLength
	}
	if len(charset) == 0 {
		return "", errors.New("charset cannot be empty")
	}

	return generateFromCharset(length, charset)
}

// NormalizeCode normalizes a coupon code for comparison (uppercase, trim whitespace).
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// FormatCode formats a code with dashes for readability.
// e.g., "ABCD1234" -> "ABCD-1234" with groupSize=4
func FormatCode(code string, groupSize int) string {
	if groupSize < 1 || len(code) <= groupSize {
		return code
	}

	var parts []string
	for i := 0; i < len(code); i += groupSize {
		end := i + groupSize
		if end > len(code) {
			end = len(code)
		}
		parts = append(parts, code[i:end])
	}

	return strings.Join(parts, "-")
}

// ParseCode removes formatting (dashes, spaces) from a code.
func ParseCode(formatted string) string {
	code := strings.ReplaceAll(formatted, "-", "")
	code = strings.ReplaceAll(code, " ", "")
	return strings.ToUpper(strings.TrimSpace(code))
}

func generateFromCharset(length int, charset string) (string, error) {
	result := make([]byte, length)
	max := big.NewInt(int64(len(charset)))

	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate random character: %w", err)
		}
		result[i] = charset[n.Int64()]
	}

	return string(result), nil
}
