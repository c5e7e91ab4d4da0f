package rest

import (
	"context"
	"fmt"
	"net/http"
)

type CartClient struct {
	client  *Client
	baseURL string
}

func NewCartClient(client *Client, baseURL string) *CartClient {
	return &CartClient{client: client, baseURL: baseURL}
}

// Clear deletes every cart entry for the user. An uncleared cart after a
// successful charge risks the customer ordering twice.
func (c *CartClient) Clear(ctx context.Context, userID, token string) error {
	url := fmt.Sprintf("%s/api/v1/cart/%s", c.baseURL, userID)
	return c.client.do(ctx, "cart", http.MethodDelete, url, token, nil, nil)
}
