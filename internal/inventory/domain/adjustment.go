package domain

import (
	"fmt"
	"strings"
)

// AdjustResult reports per-product outcomes of one stock adjustment pass.
// The write phase is not atomic across products: Adjusted stock has already
// changed state even when Failed is non-empty.
type AdjustResult struct {
	Adjusted []string
	Failed   []string
}

// PartialError names exactly the products whose stock could not be
// decremented. It is non-fatal to the rest of the saga but must surface.
type PartialError struct {
	ProductIDs []string
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("stock update failed for products: %s", strings.Join(e.ProductIDs, ", "))
}
