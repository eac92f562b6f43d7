package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kasuri-atelier/storefront/internal/order"
)

// Mailer sends customer notifications. Delivery is fire-and-forget: a mail
// failure never rolls back the state change that triggered it.
type Mailer interface {
	CertificateIssued(ctx context.Context, o *order.Order, certificateID string) error
}

type apiMailer struct {
	endpoint string
	apiKey   string
	from     string
	client   *http.Client
}

// NewAPIMailer talks to a transactional-email HTTP API.
func NewAPIMailer(endpoint, apiKey, from string, timeout time.Duration) Mailer {
	return &apiMailer{
		endpoint: endpoint,
		apiKey:   apiKey,
		from:     from,
		client:   &http.Client{Timeout: timeout},
	}
}

type mailRequest struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
}

func (m *apiMailer) CertificateIssued(ctx context.Context, o *order.Order, certificateID string) error {
	body := mailRequest{
		From:    m.from,
		To:      o.ShippingAddress.Email,
		Subject: "Your provenance certificate is ready",
		Text: fmt.Sprintf(
			"Thank you for your order %s. Your certificate of provenance has been issued (certificate %s).",
			o.ID, certificateID,
		),
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("notify: failed to marshal mail request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("notify: failed to build mail request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("notify: mail request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("notify: mail API responded %d", resp.StatusCode)
	}
	return nil
}

type noopMailer struct{}

// NewNoopMailer returns a mailer that only logs. Used when no mail API is
// configured.
func NewNoopMailer() Mailer {
	return noopMailer{}
}

func (noopMailer) CertificateIssued(_ context.Context, o *order.Order, certificateID string) error {
	log.Debug().Stringer("order_id", o.ID).Str("certificate_id", certificateID).Msg("notify: no mail API configured, skipping notification")
	return nil
}
