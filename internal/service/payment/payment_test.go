package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/dhwanilabs/dhwani_backend/config"
	razorpaypkg "github.com/dhwanilabs/dhwani_backend/pkg/razorpay"
)

const testWebhookSecret = "whsec_test"

func signBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func newWebhookService(t *testing.T) Service {
	t.Helper()
	rz := razorpaypkg.New(config.RazorpayConfig{
		KeyID:         "rzp_test_key",
		KeySecret:     "secret",
		WebhookSecret: testWebhookSecret,
	})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	// db and downstream services stay nil: these tests only exercise
	// paths that reject or ignore the delivery before any state access.
	return New(nil, rz, nil, nil, nil, &config.Config{}, nil, logger)
}

func TestHandleWebhookRejectsBadSignature(t *testing.T) {
	svc := newWebhookService(t)
	body := []byte(`{"event":"payment.captured"}`)

	err := svc.HandleWebhook(context.Background(), body, "deadbeef")
	if !errors.Is(err, ErrSignatureMismatch) {
		t.Fatalf("HandleWebhook() error = %v, want ErrSignatureMismatch", err)
	}

	// Signature for different content does not transfer.
	otherSig := signBody(testWebhookSecret, []byte(`{"event":"payment.failed"}`))
	err = svc.HandleWebhook(context.Background(), body, otherSig)
	if !errors.Is(err, ErrSignatureMismatch) {
		t.Fatalf("HandleWebhook() error = %v, want ErrSignatureMismatch", err)
	}
}

func TestHandleWebhookIgnoresNonCaptureEvents(t *testing.T) {
	svc := newWebhookService(t)

	events := []string{"payment.failed", "payment.authorized", "order.paid", "refund.processed"}
	for _, evt := range events {
		body := []byte(`{"event":"` + evt + `","payload":{"payment":{"entity":{"id":"pay_x","order_id":"order_x"}}}}`)
		sig := signBody(testWebhookSecret, body)

		if err := svc.HandleWebhook(context.Background(), body, sig); err != nil {
			t.Errorf("HandleWebhook(%s) error = %v, want nil (ignored)", evt, err)
		}
	}
}

func TestHandleWebhookRejectsMalformedBody(t *testing.T) {
	svc := newWebhookService(t)
	body := []byte(`not json`)
	sig := signBody(testWebhookSecret, body)

	if err := svc.HandleWebhook(context.Background(), body, sig); err == nil {
		t.Fatal("HandleWebhook() with malformed body succeeded")
	}
}
