package application

import "context"

type ProductClient interface {
	Stock(ctx context.Context, productID, token string) (int, error)
	SetStock(ctx context.Context, productID string, stock int, token string) error
}
