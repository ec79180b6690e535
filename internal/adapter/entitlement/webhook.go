package entitlement

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// WebhookGranter posts grant requests to an external role service. The
// caller treats failures as a warning, never as a reason to undo the
// sale.
type WebhookGranter struct {
	url    string
	client *http.Client
}

func NewWebhookGranter(url string, timeout time.Duration) *WebhookGranter {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &WebhookGranter{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

type grantRequest struct {
	UserID         string `json:"user_id"`
	EntitlementKey string `json:"entitlement_key"`
}

func (g *WebhookGranter) Grant(ctx context.Context, userID, entitlementKey string) error {
	body, err := json.Marshal(grantRequest{UserID: userID, EntitlementKey: entitlementKey})
	if err != nil {
		return fmt.Errorf("encode grant: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build grant request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("post grant: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("grant rejected: status %d", resp.StatusCode)
	}
	return nil
}

// NoopGranter accepts every grant. Used when no webhook is configured.
type NoopGranter struct{}

func (NoopGranter) Grant(ctx context.Context, userID, entitlementKey string) error {
	return nil
}
