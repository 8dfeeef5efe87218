package cost

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLedger(cfg LedgerConfig) *Ledger {
	l := NewLedger(NewMemoryStore(), cfg)
	fixed := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return fixed }
	return l
}

func TestLedger_RunningTotalEqualsSumOfSpends(t *testing.T) {
	ctx := context.Background()
	l := testLedger(LedgerConfig{DailyBudgetUSD: 100})

	amounts := []float64{0.01, 0.25, 0.033, 1.5, 0.0001}
	var sum float64
	for _, a := range amounts {
		require.NoError(t, l.RecordSpend(ctx, a))
		sum += a
	}

	spent, err := l.DailySpent(ctx)
	require.NoError(t, err)
	assert.InDelta(t, sum, spent, 1e-9)
}

func TestLedger_NoDoubleCountingUnderConcurrentWriters(t *testing.T) {
	ctx := context.Background()
	l := testLedger(LedgerConfig{DailyBudgetUSD: 10_000})

	const writers = 32
	const spendsPerWriter = 100
	const amount = 0.01

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < spendsPerWriter; j++ {
				_ = l.RecordSpend(ctx, amount)
			}
		}()
	}
	wg.Wait()

	spent, err := l.DailySpent(ctx)
	require.NoError(t, err)
	assert.InDelta(t, writers*spendsPerWriter*amount, spent, 1e-6)
}

func TestLedger_DailyRemaining(t *testing.T) {
	ctx := context.Background()
	l := testLedger(LedgerConfig{DailyBudgetUSD: 10})

	require.NoError(t, l.RecordSpend(ctx, 4))

	remaining, err := l.DailyRemaining(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 6.0, remaining, 1e-9)
}

func TestLedger_ExhaustedAtZeroRemaining(t *testing.T) {
	ctx := context.Background()
	l := testLedger(LedgerConfig{DailyBudgetUSD: 5})

	exhausted, err := l.Exhausted(ctx)
	require.NoError(t, err)
	assert.False(t, exhausted)

	require.NoError(t, l.RecordSpend(ctx, 5))

	exhausted, err = l.Exhausted(ctx)
	require.NoError(t, err)
	assert.True(t, exhausted)
}

func TestShouldRunOptionalPhase_DailyFraction(t *testing.T) {
	ctx := context.Background()
	l := testLedger(LedgerConfig{DailyBudgetUSD: 10, OptionalPhaseFraction: 0.75, PerDocumentCapUSD: 100})

	ok, err := l.ShouldRunOptionalPhase(ctx, 0, 0.01)
	require.NoError(t, err)
	assert.True(t, ok)

	// 80% of daily budget spent: optional phase is disabled.
	require.NoError(t, l.RecordSpend(ctx, 8))

	ok, err = l.ShouldRunOptionalPhase(ctx, 0, 0.01)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestShouldRunOptionalPhase_PerDocumentCap(t *testing.T) {
	ctx := context.Background()
	l := testLedger(LedgerConfig{DailyBudgetUSD: 1000, OptionalPhaseFraction: 0.75, PerDocumentCapUSD: 0.50})

	// Document already spent 0.45, phase estimate 0.10 would break the cap.
	ok, err := l.ShouldRunOptionalPhase(ctx, 0.45, 0.10)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = l.ShouldRunOptionalPhase(ctx, 0.10, 0.10)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLedger_SpendIsPerDay(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	l := NewLedger(store, LedgerConfig{DailyBudgetUSD: 10})

	day1 := time.Date(2026, 8, 30, 23, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 8, 31, 1, 0, 0, 0, time.UTC)

	l.now = func() time.Time { return day1 }
	require.NoError(t, l.RecordSpend(ctx, 9))

	l.now = func() time.Time { return day2 }
	spent, err := l.DailySpent(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0.0, spent, "a new day starts a fresh total")
}

func TestLedger_ZeroSpendIsNoop(t *testing.T) {
	ctx := context.Background()
	l := testLedger(LedgerConfig{DailyBudgetUSD: 10})

	require.NoError(t, l.RecordSpend(ctx, 0))
	spent, err := l.DailySpent(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0.0, spent)
}
