// Package stock is the authoritative ledger for quantity-on-hand.
// Every write to a sweet's quantity in the system goes through it.
package stock

import "context"

// Ledger exposes the atomic quantity operations. Concurrent Adjust
// calls on the same sweet serialize: two decrements that would jointly
// overdraw never both succeed.
type Ledger interface {
	// Adjust applies quantity += delta and returns the new quantity.
	// Fails with INSUFFICIENT_STOCK if the result would be negative,
	// NOT_FOUND if the sweet does not exist.
	Adjust(ctx context.Context, sweetID string, delta int) (int, error)

	// Read returns the current quantity.
	Read(ctx context.Context, sweetID string) (int, error)

	// Set overwrites the quantity (admin direct-set via catalog update).
	Set(ctx context.Context, sweetID string, quantity int) error
}
