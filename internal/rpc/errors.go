// Package rpc provides the JSON-RPC client used to invoke remote extraction
// agents over a single persistent websocket connection to the agent hub.
package rpc

import (
	"context"
	"errors"
	"fmt"
)

// Class is the failure taxonomy for agent calls. Retry behavior is decided
// purely from the class (see PolicyFor).
type Class string

const (
	ClassTimeout         Class = "timeout"
	ClassConnectionLost  Class = "connection_lost"
	ClassInvalidResponse Class = "invalid_response"
	ClassUnauthorized    Class = "unauthorized"
	ClassOverloaded      Class = "overloaded"
	ClassUnknown         Class = "unknown"
)

// Hub-defined JSON-RPC error codes. Standard codes (-32700..-32600 range)
// indicate a malformed exchange and map to ClassInvalidResponse.
const (
	codeUnauthorized = -32001
	codeOverloaded   = -32002
)

// ErrProtocolViolation marks failures of the client's own invariants, such
// as a duplicate pending correlation id. They are never retried regardless
// of class: retrying cannot fix a broken exchange.
var ErrProtocolViolation = errors.New("rpc protocol violation")

// Error is a classified agent-call failure.
type Error struct {
	Class   Class
	Agent   string
	Tool    string
	Code    int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("rpc %s/%s failed (%s): %s", e.Agent, e.Tool, e.Class, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("rpc %s/%s failed (%s): %v", e.Agent, e.Tool, e.Class, e.Err)
	}
	return fmt.Sprintf("rpc %s/%s failed (%s)", e.Agent, e.Tool, e.Class)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ClassOf extracts the failure class from an error chain. Context deadline
// expiry counts as a timeout; anything unclassified is ClassUnknown.
func ClassOf(err error) Class {
	var rpcErr *Error
	if errors.As(err, &rpcErr) {
		return rpcErr.Class
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ClassTimeout
	}
	return ClassUnknown
}

// classifyCode maps a JSON-RPC error code from the hub to a failure class.
func classifyCode(code int) Class {
	switch code {
	case codeUnauthorized:
		return ClassUnauthorized
	case codeOverloaded:
		return ClassOverloaded
	case -32700, -32600, -32601, -32602, -32603:
		return ClassInvalidResponse
	default:
		return ClassUnknown
	}
}
