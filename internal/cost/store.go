package cost

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Store is the ledger's backing counter. Implementations must make AddSpend
// atomic: the daily total is the only state shared across worker processes
// and double counting would overshoot the budget.
type Store interface {
	// AddSpend atomically adds amount to the counter for key and returns the
	// new total.
	AddSpend(ctx context.Context, key string, amount float64) (float64, error)
	// Spend returns the current total for key (zero if unset).
	Spend(ctx context.Context, key string) (float64, error)
}

// MemoryStore is a mutex-guarded in-process Store for single-worker runs
// and tests.
type MemoryStore struct {
	mu     sync.Mutex
	totals map[string]float64
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{totals: make(map[string]float64)}
}

// AddSpend atomically adds amount and returns the new total.
func (s *MemoryStore) AddSpend(_ context.Context, key string, amount float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totals[key] += amount
	return s.totals[key], nil
}

// Spend returns the current total for key.
func (s *MemoryStore) Spend(_ context.Context, key string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totals[key], nil
}

// RedisStore backs the ledger with Redis so concurrent worker processes share
// one running total. INCRBYFLOAT makes each update a single atomic operation.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore creates a Store over an existing Redis client.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

// AddSpend atomically adds amount and returns the new total.
func (s *RedisStore) AddSpend(ctx context.Context, key string, amount float64) (float64, error) {
	total, err := s.client.IncrByFloat(ctx, key, amount).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to record spend: %w", err)
	}
	return total, nil
}

// Spend returns the current total for key.
func (s *RedisStore) Spend(ctx context.Context, key string) (float64, error) {
	val, err := s.client.Get(ctx, key).Float64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read spend: %w", err)
	}
	return val, nil
}
