package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fixedClock(start time.Time) (*time.Time, func() time.Time) {
	now := start
	return &now, func() time.Time { return now }
}

func testLimiter() (*Limiter, *time.Time) {
	l := NewLimiter(Config{
		Enabled:       true,
		DefaultLimit:  5,
		DefaultWindow: time.Minute,
		Tiers:         DefaultTiers(),
	})
	now, clock := fixedClock(time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC))
	l.now = clock
	return l, now
}

func TestAllow_BurstThenRefused(t *testing.T) {
	l, _ := testLimiter()

	for i := 0; i < 2; i++ {
		assert.True(t, l.Allow("10.0.0.1", "POST", "/jobs"), "burst request %d", i)
	}
	assert.False(t, l.Allow("10.0.0.1", "POST", "/jobs"))
}

func TestAllow_RefillsOverTime(t *testing.T) {
	l, now := testLimiter()

	assert.True(t, l.Allow("10.0.0.1", "POST", "/jobs"))
	assert.True(t, l.Allow("10.0.0.1", "POST", "/jobs"))
	assert.False(t, l.Allow("10.0.0.1", "POST", "/jobs"))

	// 10/hour refills one token every six minutes.
	*now = now.Add(7 * time.Minute)
	assert.True(t, l.Allow("10.0.0.1", "POST", "/jobs"))
}

func TestAllow_ClientsAreIndependent(t *testing.T) {
	l, _ := testLimiter()

	assert.True(t, l.Allow("10.0.0.1", "POST", "/jobs"))
	assert.True(t, l.Allow("10.0.0.1", "POST", "/jobs"))
	assert.False(t, l.Allow("10.0.0.1", "POST", "/jobs"))
	assert.True(t, l.Allow("10.0.0.2", "POST", "/jobs"), "a different client has its own bucket")
}

func TestAllow_TiersAreIndependent(t *testing.T) {
	l, _ := testLimiter()

	assert.True(t, l.Allow("10.0.0.1", "POST", "/jobs"))
	assert.True(t, l.Allow("10.0.0.1", "POST", "/jobs"))
	assert.False(t, l.Allow("10.0.0.1", "POST", "/jobs"))
	assert.True(t, l.Allow("10.0.0.1", "GET", "/jobs/some-id"), "reads use the default tier")
	assert.True(t, l.Allow("10.0.0.1", "POST", "/review/x/approve"), "review mutations use their own tier")
}

func TestAllow_HealthNeverLimited(t *testing.T) {
	l, _ := testLimiter()
	for i := 0; i < 100; i++ {
		assert.True(t, l.Allow("10.0.0.1", "GET", "/health"))
	}
}

func TestAllow_DisabledPassesEverything(t *testing.T) {
	l := NewLimiter(Config{Enabled: false})
	for i := 0; i < 100; i++ {
		assert.True(t, l.Allow("10.0.0.1", "POST", "/jobs"))
	}
}
