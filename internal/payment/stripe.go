package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	stripeBaseURL = "https://api.stripe.com"

	// signatureTolerance bounds how old a webhook timestamp may be,
	// limiting replay of captured deliveries.
	signatureTolerance = 5 * time.Minute
)

// StripeGateway implements Gateway against the Stripe HTTP API. Webhook
// verification follows the t=timestamp,v1=hmac signature scheme: the
// signed message is "<timestamp>.<raw body>" and the MAC is HMAC-SHA256
// keyed with the endpoint's webhook secret.
type StripeGateway struct {
	secretKey     string
	webhookSecret string
	baseURL       string
	client        *http.Client

	now func() time.Time
}

func NewStripeGateway(secretKey, webhookSecret string) *StripeGateway {
	return &StripeGateway{
		secretKey:     secretKey,
		webhookSecret: webhookSecret,
		baseURL:       stripeBaseURL,
		client:        &http.Client{Timeout: 15 * time.Second},
		now:           time.Now,
	}
}

type intentResponse struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
}

// CreateIntent requests a payment intent for the given minor-unit amount.
func (g *StripeGateway) CreateIntent(ctx context.Context, amountMinorUnits int64, currency, description string) (Intent, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(amountMinorUnits, 10))
	form.Set("currency", currency)
	form.Set("description", description)
	form.Set("automatic_payment_methods[enabled]", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.baseURL+"/v1/payment_intents", strings.NewReader(form.Encode()))
	if err != nil {
		return Intent{}, fmt.Errorf("failed to build intent request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.secretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.client.Do(req)
	if err != nil {
		return Intent{}, fmt.Errorf("%w: %v", ErrGatewayUnreachable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Intent{}, fmt.Errorf("%w: reading response: %v", ErrGatewayUnreachable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return Intent{}, fmt.Errorf("%w: gateway returned status %d", ErrGatewayUnreachable, resp.StatusCode)
	}

	var out intentResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return Intent{}, fmt.Errorf("%w: decoding response: %v", ErrGatewayUnreachable, err)
	}
	if out.ID == "" || out.ClientSecret == "" {
		return Intent{}, fmt.Errorf("%w: incomplete intent response", ErrGatewayUnreachable)
	}

	return Intent{ID: out.ID, ClientSecret: out.ClientSecret}, nil
}

type webhookEnvelope struct {
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID string `json:"id"`
		} `json:"object"`
	} `json:"data"`
}

// VerifyWebhook checks the signature header against the raw payload and,
// only if it verifies, parses the event. Any failure is
// ErrVerificationFailed; callers must not act on the payload in that case.
func (g *StripeGateway) VerifyWebhook(payload []byte, signatureHeader string) (Event, error) {
	timestamp, macs, err := parseSignatureHeader(signatureHeader)
	if err != nil {
		return Event{}, err
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return Event{}, fmt.Errorf("%w: bad timestamp", ErrVerificationFailed)
	}
	age := g.now().Sub(time.Unix(ts, 0))
	if age > signatureTolerance || age < -signatureTolerance {
		return Event{}, fmt.Errorf("%w: timestamp outside tolerance", ErrVerificationFailed)
	}

	expected := computeSignature(g.webhookSecret, timestamp, payload)
	verified := false
	for _, mac := range macs {
		if hmac.Equal([]byte(mac), []byte(expected)) {
			verified = true
			break
		}
	}
	if !verified {
		return Event{}, fmt.Errorf("%w: signature mismatch", ErrVerificationFailed)
	}

	var env webhookEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return Event{}, fmt.Errorf("%w: malformed payload", ErrVerificationFailed)
	}
	if env.Type == "" {
		return Event{}, fmt.Errorf("%w: payload missing event type", ErrVerificationFailed)
	}

	return Event{Kind: env.Type, IntentID: env.Data.Object.ID}, nil
}

// parseSignatureHeader extracts the timestamp and the v1 signatures from a
// header of the form "t=1699999999,v1=abcdef...,v1=012345...".
func parseSignatureHeader(header string) (timestamp string, macs []string, err error) {
	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch key {
		case "t":
			timestamp = value
		case "v1":
			macs = append(macs, value)
		}
	}

	if timestamp == "" || len(macs) == 0 {
		return "", nil, fmt.Errorf("%w: malformed signature header", ErrVerificationFailed)
	}
	return timestamp, macs, nil
}

func computeSignature(secret, timestamp string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
