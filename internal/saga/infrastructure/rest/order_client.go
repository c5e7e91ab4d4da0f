package rest

import (
	"context"
	"fmt"
	"net/http"

	"github.com/shoply/payments-service/internal/saga/domain"
)

type OrderClient struct {
	client  *Client
	baseURL string
}

func NewOrderClient(client *Client, baseURL string) *OrderClient {
	return &OrderClient{client: client, baseURL: baseURL}
}

func (o *OrderClient) MarkPaid(ctx context.Context, orderID, token string) error {
	url := fmt.Sprintf("%s/api/v1/orders/%s", o.baseURL, orderID)
	body := map[string]string{"status": "paid"}
	return o.client.do(ctx, "order", http.MethodPatch, url, token, body, nil)
}

func (o *OrderClient) LineItems(ctx context.Context, orderID, token string) ([]domain.LineItem, error) {
	url := fmt.Sprintf("%s/api/v1/orders/%s", o.baseURL, orderID)
	var out struct {
		Data struct {
			Products []domain.LineItem `json:"products"`
		} `json:"data"`
	}
	if err := o.client.do(ctx, "order", http.MethodGet, url, token, nil, &out); err != nil {
		return nil, err
	}
	return out.Data.Products, nil
}
