package cost

import (
	"context"
	"time"
)

// LedgerConfig holds the budget policy knobs.
type LedgerConfig struct {
	DailyBudgetUSD float64
	// OptionalPhaseFraction of the daily budget after which the optional
	// phase stops running (soft circuit breaker, default 0.75).
	OptionalPhaseFraction float64
	// PerDocumentCapUSD bounds one document's spend; a document whose running
	// cost would exceed it skips the optional phase.
	PerDocumentCapUSD float64
}

// DefaultLedgerConfig returns the standard policy.
func DefaultLedgerConfig() LedgerConfig {
	return LedgerConfig{
		DailyBudgetUSD:        50.0,
		OptionalPhaseFraction: 0.75,
		PerDocumentCapUSD:     0.50,
	}
}

// Ledger tracks cumulative spend and gates optional expensive work. It is a
// soft circuit breaker: exceeding the optional-phase fraction only disables
// the optional phase, already-committed baseline phases still run.
//
// Spend is recorded optimistically after each successful call; failed calls
// record nothing and there is no rollback.
type Ledger struct {
	store Store
	cfg   LedgerConfig
	now   func() time.Time
}

// NewLedger creates a ledger over the given store. A nil store falls back to
// an in-process MemoryStore, which is only safe for single-worker setups.
func NewLedger(store Store, cfg LedgerConfig) *Ledger {
	if store == nil {
		store = NewMemoryStore()
	}
	if cfg.OptionalPhaseFraction == 0 {
		cfg.OptionalPhaseFraction = 0.75
	}
	return &Ledger{store: store, cfg: cfg, now: time.Now}
}

// dailyKey returns the counter key for the current UTC day.
func (l *Ledger) dailyKey() string {
	return "budget:daily:" + l.now().UTC().Format("2006-01-02")
}

// RecordSpend adds amount to today's running total.
func (l *Ledger) RecordSpend(ctx context.Context, amountUSD float64) error {
	if amountUSD == 0 {
		return nil
	}
	_, err := l.store.AddSpend(ctx, l.dailyKey(), amountUSD)
	return err
}

// DailySpent returns today's cumulative spend.
func (l *Ledger) DailySpent(ctx context.Context) (float64, error) {
	return l.store.Spend(ctx, l.dailyKey())
}

// DailyRemaining returns the unspent portion of today's budget. It can go
// negative when concurrent workers overshoot slightly; callers treat any
// non-positive value as exhausted.
func (l *Ledger) DailyRemaining(ctx context.Context) (float64, error) {
	spent, err := l.DailySpent(ctx)
	if err != nil {
		return 0, err
	}
	return l.cfg.DailyBudgetUSD - spent, nil
}

// Exhausted reports the zero-budget state: the baseline paid phase may not
// start. The caller routes such documents to review with a budget-exhausted
// reason rather than treating this as an error.
func (l *Ledger) Exhausted(ctx context.Context) (bool, error) {
	remaining, err := l.DailyRemaining(ctx)
	if err != nil {
		return false, err
	}
	return remaining <= 0, nil
}

// ShouldRunOptionalPhase decides whether the optional, most expensive phase
// runs for a document. It is vetoed once daily spend crosses the configured
// fraction of the budget, or once this document's running cost plus the
// phase estimate would exceed the per-document cap.
func (l *Ledger) ShouldRunOptionalPhase(ctx context.Context, documentSpentUSD, phaseEstimateUSD float64) (bool, error) {
	spent, err := l.DailySpent(ctx)
	if err != nil {
		return false, err
	}
	if l.cfg.DailyBudgetUSD > 0 && spent >= l.cfg.DailyBudgetUSD*l.cfg.OptionalPhaseFraction {
		return false, nil
	}
	if l.cfg.PerDocumentCapUSD > 0 && documentSpentUSD+phaseEstimateUSD > l.cfg.PerDocumentCapUSD {
		return false, nil
	}
	return true, nil
}
