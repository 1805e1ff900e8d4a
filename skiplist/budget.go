package skiplist

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

// Budget caps the work reader operations may do. One budget can be shared
// by every reader serving a query; it is checked each time a reader moves
// to a new block.
type Budget struct {
	maxBlocks  int64
	usedBlocks atomic.Int64

	deadline time.Time
	started  time.Time

	// exhausted holds the reason of the first limit hit; nil until then.
	exhausted atomic.Pointer[string]
}

// BudgetConfig configures a Budget. Zero fields are unlimited.
type BudgetConfig struct {
	// MaxBlocks limits the blocks visited across all readers.
	MaxBlocks int64
	// MaxDuration limits wall-clock time from NewBudget.
	MaxDuration time.Duration
}

// NewBudget starts a budget.
func NewBudget(cfg BudgetConfig) *Budget {
	b := &Budget{maxBlocks: cfg.MaxBlocks, started: time.Now()}
	if cfg.MaxDuration > 0 {
		b.deadline = b.started.Add(cfg.MaxDuration)
	}
	return b
}

type budgetKey struct{}

// WithBudget attaches a budget to a context.
func WithBudget(ctx context.Context, budget *Budget) context.Context {
	return context.WithValue(ctx, budgetKey{}, budget)
}

// BudgetFromContext returns the budget attached to ctx, or nil.
func BudgetFromContext(ctx context.Context) *Budget {
	if b, ok := ctx.Value(budgetKey{}).(*Budget); ok {
		return b
	}
	return nil
}

// enterBlock charges one block visit. A nil budget is unlimited.
func (b *Budget) enterBlock() error {
	if b == nil {
		return nil
	}
	if b.exhausted.Load() != nil {
		return b.err()
	}
	if !b.deadline.IsZero() && time.Now().After(b.deadline) {
		b.markExhausted("deadline")
		return b.err()
	}
	if b.maxBlocks > 0 && b.usedBlocks.Add(1) > b.maxBlocks {
		b.usedBlocks.Add(-1)
		b.markExhausted("blocks")
		return b.err()
	}
	return nil
}

func (b *Budget) err() error {
	return fmt.Errorf("%w: %s", ErrBudgetExhausted, b.ExhaustedReason())
}

func (b *Budget) markExhausted(reason string) {
	b.exhausted.CompareAndSwap(nil, &reason)
}

// IsExhausted reports whether any limit was hit.
func (b *Budget) IsExhausted() bool {
	return b != nil && b.exhausted.Load() != nil
}

// ExhaustedReason names the limit that was hit, or "".
func (b *Budget) ExhaustedReason() string {
	if b == nil {
		return ""
	}
	if r := b.exhausted.Load(); r != nil {
		return *r
	}
	return ""
}

// BlocksUsed returns the blocks charged so far.
func (b *Budget) BlocksUsed() int64 {
	if b == nil {
		return 0
	}
	return b.usedBlocks.Load()
}

// Elapsed returns the time since the budget started.
func (b *Budget) Elapsed() time.Duration {
	if b == nil {
		return 0
	}
	return time.Since(b.started)
}
