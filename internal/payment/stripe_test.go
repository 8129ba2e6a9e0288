package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"
)

func signedHeader(secret string, ts time.Time, payload []byte) string {
	timestamp := strconv.FormatInt(ts.Unix(), 10)
	return fmt.Sprintf("t=%s,v1=%s", timestamp, computeSignature(secret, timestamp, payload))
}

func newTestGateway(secret string, now time.Time) *StripeGateway {
	g := NewStripeGateway("sk_test", secret)
	g.now = func() time.Time { return now }
	return g
}

func TestVerifyWebhook(t *testing.T) {
	now := time.Unix(1700000000, 0)
	g := newTestGateway("whsec_test", now)
	payload := []byte(`{"type":"payment_intent.succeeded","data":{"object":{"id":"pi_123"}}}`)

	event, err := g.VerifyWebhook(payload, signedHeader("whsec_test", now, payload))
	if err != nil {
		t.Fatalf("VerifyWebhook failed: %v", err)
	}
	if event.Kind != EventPaymentSucceeded || event.IntentID != "pi_123" {
		t.Fatalf("event = %+v", event)
	}
}

func TestVerifyWebhookRejections(t *testing.T) {
	now := time.Unix(1700000000, 0)
	payload := []byte(`{"type":"payment_intent.succeeded","data":{"object":{"id":"pi_123"}}}`)

	tests := []struct {
		name   string
		header string
	}{
		{"wrong secret", signedHeader("whsec_other", now, payload)},
		{"stale timestamp", signedHeader("whsec_test", now.Add(-6*time.Minute), payload)},
		{"future timestamp", signedHeader("whsec_test", now.Add(6*time.Minute), payload)},
		{"tampered payload", signedHeader("whsec_test", now, []byte(`{"type":"x"}`))},
		{"missing signature", "t=1700000000"},
		{"missing timestamp", "v1=deadbeef"},
		{"garbage", "not a header"},
		{"empty", ""},
	}

	g := newTestGateway("whsec_test", now)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := g.VerifyWebhook(payload, tt.header); !errors.Is(err, ErrVerificationFailed) {
				t.Fatalf("got %v, want ErrVerificationFailed", err)
			}
		})
	}
}

func TestVerifyWebhookWithinTolerance(t *testing.T) {
	now := time.Unix(1700000000, 0)
	g := newTestGateway("whsec_test", now)
	payload := []byte(`{"type":"payment_intent.succeeded","data":{"object":{"id":"pi_123"}}}`)

	header := signedHeader("whsec_test", now.Add(-4*time.Minute), payload)
	if _, err := g.VerifyWebhook(payload, header); err != nil {
		t.Fatalf("delivery 4 minutes old rejected: %v", err)
	}
}

func TestCreateIntent(t *testing.T) {
	var gotAuth, gotAmount, gotCurrency string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/payment_intents" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm failed: %v", err)
		}
		gotAuth = r.Header.Get("Authorization")
		gotAmount = r.PostForm.Get("amount")
		gotCurrency = r.PostForm.Get("currency")

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"pi_123","client_secret":"pi_123_secret"}`)
	}))
	defer server.Close()

	g := NewStripeGateway("sk_test", "whsec_test")
	g.baseURL = server.URL

	intent, err := g.CreateIntent(context.Background(), 50000, "usd", "Payment for task")
	if err != nil {
		t.Fatalf("CreateIntent failed: %v", err)
	}
	if intent.ID != "pi_123" || intent.ClientSecret != "pi_123_secret" {
		t.Fatalf("intent = %+v", intent)
	}
	if gotAuth != "Bearer sk_test" {
		t.Fatalf("authorization = %q", gotAuth)
	}
	if gotAmount != "50000" || gotCurrency != "usd" {
		t.Fatalf("amount=%q currency=%q", gotAmount, gotCurrency)
	}
}

func TestCreateIntentGatewayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"invalid key"}}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	g := NewStripeGateway("sk_bad", "whsec_test")
	g.baseURL = server.URL

	if _, err := g.CreateIntent(context.Background(), 50000, "usd", "x"); !errors.Is(err, ErrGatewayUnreachable) {
		t.Fatalf("got %v, want ErrGatewayUnreachable", err)
	}
}
