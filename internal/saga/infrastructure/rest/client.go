package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/shoply/payments-service/internal/saga/domain"
)

// Client is the uniform contract every downstream service is consumed
// through: bearer token, resource path, optional JSON body. A non-2xx status
// is a failure and the body is not parsed; a timeout counts as a failure of
// the same kind.
type Client struct {
	log     *slog.Logger
	http    *http.Client
	timeout time.Duration
}

func NewClient(log *slog.Logger, timeout time.Duration) *Client {
	return &Client{
		log:     log,
		http:    &http.Client{Timeout: timeout},
		timeout: timeout,
	}
}

func (c *Client) do(ctx context.Context, service, method, url, token string, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return &domain.UpstreamError{Service: service, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &domain.UpstreamError{Service: service, Status: resp.StatusCode}
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &domain.UpstreamError{Service: service, Err: err}
		}
	}
	return nil
}
