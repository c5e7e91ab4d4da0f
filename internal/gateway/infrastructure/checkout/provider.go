package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Provider creates hosted checkout sessions. The provider hosts the payment
// page; our only contact after creation is the success redirect carrying the
// order id.
type Provider struct {
	log        *slog.Logger
	http       *http.Client
	baseURL    string
	apiKey     string
	successURL string
	cancelURL  string
}

type Config struct {
	BaseURL    string
	APIKey     string
	SuccessURL string
	CancelURL  string
}

func NewProvider(log *slog.Logger, cfg Config, timeout time.Duration) *Provider {
	return &Provider{
		log:        log,
		http:       &http.Client{Timeout: timeout},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		successURL: cfg.SuccessURL,
		cancelURL:  cfg.CancelURL,
	}
}

func (p *Provider) CreateSession(ctx context.Context, orderID string, amountMinor int64, currency string) (string, string, error) {
	payload := map[string]any{
		"amount":      amountMinor,
		"currency":    currency,
		"reference":   orderID,
		"success_url": fmt.Sprintf("%s/%s", p.successURL, orderID),
		"cancel_url":  p.cancelURL,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", "", err
	}

	url := fmt.Sprintf("%s/v1/checkout/sessions", p.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.http.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", "", fmt.Errorf("checkout provider returned status %d", resp.StatusCode)
	}

	var out struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", "", err
	}
	p.log.Info("checkout session created", "order_id", orderID, "session_id", out.ID)
	return out.ID, out.URL, nil
}
