package crypto

import (
	"errors"
	"strings"
	"testing"
)

const testKeyHex = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func TestKeyFromHex(t *testing.T) {
	tests := []struct {
		name    string
		hexKey  string
		wantErr bool
	}{
		{name: "valid 32-byte key", hexKey: testKeyHex},
		{name: "too short", hexKey: "0001", wantErr: true},
		{name: "not hex", hexKey: strings.Repeat("zz", 32), wantErr: true},
		{name: "empty", hexKey: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := KeyFromHex(tt.hexKey)
			if (err != nil) != tt.wantErr {
				t.Fatalf("KeyFromHex() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && len(key) != 32 {
				t.Errorf("KeyFromHex() key length = %d, want 32", len(key))
			}
		})
	}
}

func TestEncryptDecrypt(t *testing.T) {
	key, err := KeyFromHex(testKeyHex)
	if err != nil {
		t.Fatalf("KeyFromHex() error = %v", err)
	}

	plaintext := `{"last4":"4242","network":"Visa"}`

	encoded, err := Encrypt(key, plaintext)
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	if encoded == plaintext {
		t.Fatal("Encrypt() returned plaintext")
	}

	// A second encryption uses a fresh nonce.
	encoded2, err := Encrypt(key, plaintext)
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	if encoded == encoded2 {
		t.Error("Encrypt() produced identical ciphertexts for the same plaintext")
	}

	got, err := Decrypt(key, encoded)
	if err != nil {
		t.Fatalf("Decrypt() error = %v", err)
	}
	if got != plaintext {
		t.Errorf("Decrypt() = %q, want %q", got, plaintext)
	}
}

func TestDecryptRejectsWrongKey(t *testing.T) {
	key, _ := KeyFromHex(testKeyHex)
	otherKey, _ := KeyFromHex(strings.Repeat("ff", 32))

	encoded, err := Encrypt(key, "HDFC-NEFT-2024-0042")
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}

	if _, err := Decrypt(otherKey, encoded); err == nil {
		t.Error("Decrypt() with wrong key succeeded")
	}
}

func TestDecryptRejectsShortCiphertext(t *testing.T) {
	key, _ := KeyFromHex(testKeyHex)

	_, err := Decrypt(key, "AAAA")
	if !errors.Is(err, ErrCiphertextTooShort) {
		t.Errorf("Decrypt() error = %v, want ErrCiphertextTooShort", err)
	}
}

func TestEncryptRejectsBadKey(t *testing.T) {
	if _, err := Encrypt([]byte("short"), "x"); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("Encrypt() error = %v, want ErrInvalidKey", err)
	}
}

func TestHashIsDeterministic(t *testing.T) {
	a := Hash("value")
	b := Hash("value")
	if a != b {
		t.Error("Hash() not deterministic")
	}
	if len(a) != 64 {
		t.Errorf("Hash() length = %d, want 64", len(a))
	}
	if a == Hash("other") {
		t.Error("Hash() collides on different inputs")
	}
}
