package application

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/shoply/payments-service/internal/inventory/domain"
	sagadomain "github.com/shoply/payments-service/internal/saga/domain"
)

// ErrInsufficientStock rejects a decrement that would drive stock negative.
var ErrInsufficientStock = errors.New("insufficient stock")

type Adjuster struct {
	log      *slog.Logger
	products ProductClient
}

func NewAdjuster(log *slog.Logger, products ProductClient) *Adjuster {
	return &Adjuster{log: log, products: products}
}

type itemState struct {
	item  sagadomain.LineItem
	stock int
	err   error
}

// Adjust decrements stock for every line item. All reads fan out
// concurrently, then all writes fan out concurrently; there is no ordering
// between items in either phase. Items whose stock read failed or whose
// current stock cannot cover the quantity are rejected before the write
// phase, so a decrement never goes below zero.
//
// Any failed subset is reported as *domain.PartialError naming exactly the
// failed product ids; stock for the succeeding products has already been
// written and is not rolled back.
func (a *Adjuster) Adjust(ctx context.Context, items []sagadomain.LineItem, token string) (domain.AdjustResult, error) {
	states := make([]itemState, len(items))
	for i, item := range items {
		states[i] = itemState{item: item}
	}

	var g errgroup.Group
	for i := range states {
		i := i
		g.Go(func() error {
			st := &states[i]
			st.stock, st.err = a.products.Stock(ctx, st.item.ProductID, token)
			return nil
		})
	}
	_ = g.Wait()

	for i := range states {
		st := &states[i]
		if st.err != nil {
			continue
		}
		if st.stock < st.item.Quantity {
			st.err = ErrInsufficientStock
		}
	}

	var w errgroup.Group
	for i := range states {
		if states[i].err != nil {
			continue
		}
		i := i
		w.Go(func() error {
			st := &states[i]
			st.err = a.products.SetStock(ctx, st.item.ProductID, st.stock-st.item.Quantity, token)
			return nil
		})
	}
	_ = w.Wait()

	var res domain.AdjustResult
	for i := range states {
		st := &states[i]
		if st.err != nil {
			a.log.Error("stock adjustment failed",
				"product_id", st.item.ProductID, "quantity", st.item.Quantity, "err", st.err)
			res.Failed = append(res.Failed, st.item.ProductID)
			continue
		}
		res.Adjusted = append(res.Adjusted, st.item.ProductID)
	}

	if len(res.Failed) > 0 {
		return res, &domain.PartialError{ProductIDs: res.Failed}
	}
	return res, nil
}
