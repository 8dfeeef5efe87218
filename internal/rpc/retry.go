package rpc

import (
	"errors"
	"time"
)

// Policy describes how calls failing with a given class are retried.
// MaxAttempts counts the first attempt, so MaxAttempts == 1 means no retry.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// PolicyFor returns the retry policy for a failure class. Overloaded backs
// off longer than Timeout because it is an explicit backpressure signal from
// the hub. Unauthorized and InvalidResponse never waste retry budget; Unknown
// gets a single defensive retry.
func PolicyFor(class Class) Policy {
	switch class {
	case ClassTimeout:
		return Policy{MaxAttempts: 3, BaseDelay: 500 * time.Millisecond, MaxDelay: 5 * time.Second}
	case ClassConnectionLost:
		return Policy{MaxAttempts: 3, BaseDelay: time.Second, MaxDelay: 10 * time.Second}
	case ClassOverloaded:
		return Policy{MaxAttempts: 3, BaseDelay: 5 * time.Second, MaxDelay: 30 * time.Second}
	case ClassUnknown:
		return Policy{MaxAttempts: 2, BaseDelay: time.Second, MaxDelay: time.Second}
	default: // unauthorized, invalid_response
		return Policy{MaxAttempts: 1}
	}
}

// Retryable reports whether a call that failed on the given 1-based attempt
// may be tried again. Protocol violations never retry even though they
// classify as Unknown: repeating a broken exchange cannot fix it.
func Retryable(err error, attempt int) bool {
	if errors.Is(err, ErrProtocolViolation) {
		return false
	}
	return attempt < PolicyFor(ClassOf(err)).MaxAttempts
}

// Delay returns the backoff before the given retry (attempt is 1-based and
// counts failed attempts so far). Doubles each time, capped at MaxDelay.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 || p.BaseDelay <= 0 {
		return 0
	}
	d := p.BaseDelay << (attempt - 1)
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}
