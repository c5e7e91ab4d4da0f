package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/shoply/payments-service/internal/gateway/domain"
)

// UserClient resolves bearer tokens against the user service, the same way
// every other service in the deployment authenticates callers.
type UserClient struct {
	log     *slog.Logger
	http    *http.Client
	baseURL string
}

func NewUserClient(log *slog.Logger, baseURL string, timeout time.Duration) *UserClient {
	return &UserClient{
		log:     log,
		http:    &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

func (u *UserClient) Me(ctx context.Context, token string) (domain.User, error) {
	url := fmt.Sprintf("%s/api/v1/users/getMe", u.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.User{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := u.http.Do(req)
	if err != nil {
		return domain.User{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.User{}, fmt.Errorf("user service returned status %d", resp.StatusCode)
	}

	var out struct {
		Data domain.User `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return domain.User{}, err
	}
	return out.Data, nil
}
