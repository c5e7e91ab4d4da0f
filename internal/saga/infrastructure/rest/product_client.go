package rest

import (
	"context"
	"fmt"
	"net/http"
)

type ProductClient struct {
	client  *Client
	baseURL string
}

func NewProductClient(client *Client, baseURL string) *ProductClient {
	return &ProductClient{client: client, baseURL: baseURL}
}

// Stock fetches the product's current stock. It is read fresh at adjustment
// time, never cached from order creation.
func (p *ProductClient) Stock(ctx context.Context, productID, token string) (int, error) {
	url := fmt.Sprintf("%s/api/v1/products/%s", p.baseURL, productID)
	var out struct {
		Data struct {
			Stock int `json:"stock"`
		} `json:"data"`
	}
	if err := p.client.do(ctx, "product", http.MethodGet, url, token, nil, &out); err != nil {
		return 0, err
	}
	return out.Data.Stock, nil
}

func (p *ProductClient) SetStock(ctx context.Context, productID string, stock int, token string) error {
	url := fmt.Sprintf("%s/api/v1/products/%s", p.baseURL, productID)
	body := map[string]int{"stock": stock}
	return p.client.do(ctx, "product", http.MethodPatch, url, token, body, nil)
}
