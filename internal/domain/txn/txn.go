// Package txn defines the unit-of-work boundary used by domain services.
package txn

import "context"

// Transactor runs fn atomically. Repositories participating in the unit of
// work find the active transaction in the context passed to fn.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Nop runs fn directly, for stores that have no transactions.
type Nop struct{}

// InTx calls fn with ctx.
func (Nop) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
