package mpesa

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/shoply/payments-service/internal/gateway/domain"
)

// Client drives the Daraja STK push flow: fetch an OAuth token, then ask the
// provider to prompt the customer's phone. The confirmation arrives later on
// the registered callback URL.
type Client struct {
	log            *slog.Logger
	http           *http.Client
	baseURL        string
	consumerKey    string
	consumerSecret string
	shortcode      string
	passkey        string
	callbackURL    string
}

type Config struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	Shortcode      string
	Passkey        string
	CallbackURL    string
}

func NewClient(log *slog.Logger, cfg Config, timeout time.Duration) *Client {
	return &Client{
		log:            log,
		http:           &http.Client{Timeout: timeout},
		baseURL:        cfg.BaseURL,
		consumerKey:    cfg.ConsumerKey,
		consumerSecret: cfg.ConsumerSecret,
		shortcode:      cfg.Shortcode,
		passkey:        cfg.Passkey,
		callbackURL:    cfg.CallbackURL,
	}
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	url := fmt.Sprintf("%s/oauth/v1/generate?grant_type=client_credentials", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.consumerKey, c.consumerSecret)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("daraja oauth returned status %d", resp.StatusCode)
	}

	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.AccessToken, nil
}

// credentials derives the per-request password Daraja expects.
func (c *Client) credentials() (timestamp, password string) {
	timestamp = time.Now().Format("20060102150405")
	password = base64.StdEncoding.EncodeToString([]byte(c.shortcode + c.passkey + timestamp))
	return timestamp, password
}

// Push initiates the STK prompt. Amount is whole currency units on the wire;
// the handler rejects amounts that are not a whole number of units.
func (c *Client) Push(ctx context.Context, phone string, amountMinor int64, orderID string) (string, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return "", err
	}

	timestamp, password := c.credentials()

	payload := map[string]any{
		"BusinessShortCode": c.shortcode,
		"Password":          password,
		"Timestamp":         timestamp,
		"TransactionType":   "CustomerPayBillOnline",
		"Amount":            amountMinor / 100,
		"PartyA":            phone,
		"PartyB":            c.shortcode,
		"PhoneNumber":       phone,
		"CallBackURL":       fmt.Sprintf("%s/api/v1/payments/stkPushCallback", c.callbackURL),
		"AccountReference":  "Shoply",
		"TransactionDesc":   fmt.Sprintf("Payment for order %s", orderID),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/mpesa/stkpush/v1/processrequest", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("daraja stkpush returned status %d", resp.StatusCode)
	}

	var out struct {
		CheckoutRequestID string `json:"CheckoutRequestID"`
		ResponseCode      string `json:"ResponseCode"`
		ResponseDesc      string `json:"ResponseDescription"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if out.ResponseCode != "0" {
		return "", fmt.Errorf("daraja stkpush rejected: %s", out.ResponseDesc)
	}
	c.log.Info("stk push initiated", "order_id", orderID, "checkout_request_id", out.CheckoutRequestID)
	return out.CheckoutRequestID, nil
}

// Status queries the outcome of an earlier push prompt. Useful when the
// customer claims they paid but the callback has not arrived.
func (c *Client) Status(ctx context.Context, checkoutRequestID string) (domain.STKStatus, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return domain.STKStatus{}, err
	}

	timestamp, password := c.credentials()
	payload := map[string]any{
		"BusinessShortCode": c.shortcode,
		"Password":          password,
		"Timestamp":         timestamp,
		"CheckoutRequestID": checkoutRequestID,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return domain.STKStatus{}, err
	}

	url := fmt.Sprintf("%s/mpesa/stkpushquery/v1/query", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return domain.STKStatus{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.STKStatus{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return domain.STKStatus{}, fmt.Errorf("daraja stkpushquery returned status %d", resp.StatusCode)
	}

	var out struct {
		ResultCode string `json:"ResultCode"`
		ResultDesc string `json:"ResultDesc"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return domain.STKStatus{}, err
	}
	return domain.STKStatus{ResultCode: out.ResultCode, ResultDesc: out.ResultDesc}, nil
}
