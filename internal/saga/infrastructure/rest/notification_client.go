package rest

import (
	"context"
	"fmt"
	"net/http"
)

type NotificationClient struct {
	client  *Client
	baseURL string
}

func NewNotificationClient(client *Client, baseURL string) *NotificationClient {
	return &NotificationClient{client: client, baseURL: baseURL}
}

// SendReceipt asks the notification service to dispatch the receipt email.
// Best-effort: the coordinator logs a failure instead of aborting.
func (n *NotificationClient) SendReceipt(ctx context.Context, orderID, token string) error {
	url := fmt.Sprintf("%s/api/v1/sendReceipt/%s", n.baseURL, orderID)
	return n.client.do(ctx, "notification", http.MethodGet, url, token, nil, nil)
}
