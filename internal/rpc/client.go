package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/jonathan/archive-enricher/internal/observability"
)

// wire structures for the hub's JSON-RPC 2.0 protocol.

type request struct {
	JSONRPC string       `json:"jsonrpc"`
	ID      string       `json:"id"`
	Method  string       `json:"method"`
	Params  invokeParams `json:"params"`
}

type invokeParams struct {
	AgentID   string         `json:"agent_id"`
	Tool      string         `json:"tool"`
	Arguments map[string]any `json:"arguments"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      string          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *responseError  `json:"error,omitempty"`
}

type responseError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

const methodInvokeTool = "invoke_tool"

// Options holds optional client configuration.
type Options struct {
	Token                string // bearer token sent on the websocket handshake
	MaxReconnectAttempts int
	Counters             *observability.RPCCounters
}

// Client maintains one logical websocket connection to the agent hub and
// multiplexes concurrent Invoke calls over it by correlation id. Responses
// may arrive in any order; each is dispatched to its waiting caller through
// a thread-safe pending-request table.
//
// The client is owned by one worker process and is safe for concurrent use.
type Client struct {
	url           string
	header        http.Header
	dialer        *websocket.Dialer
	maxReconnects int
	counters      *observability.RPCCounters

	connMu sync.Mutex // guards conn and dialing
	conn   *websocket.Conn

	writeMu sync.Mutex // serializes writes to the websocket

	pendingMu sync.Mutex
	pending   map[string]chan *response

	closeOnce sync.Once
	closed    chan struct{}
}

// New creates a client for the given ws:// or wss:// hub URL. The connection
// is established lazily on the first Invoke, or eagerly via Connect.
func New(hubURL string, opts *Options) *Client {
	if opts == nil {
		opts = &Options{}
	}
	header := http.Header{}
	if opts.Token != "" {
		header.Set("Authorization", "Bearer "+opts.Token)
	}
	maxReconnects := opts.MaxReconnectAttempts
	if maxReconnects == 0 {
		maxReconnects = 5
	}
	counters := opts.Counters
	if counters == nil {
		counters = observability.NewRPCCounters()
	}
	return &Client{
		url:           hubURL,
		header:        header,
		dialer:        websocket.DefaultDialer,
		maxReconnects: maxReconnects,
		counters:      counters,
		pending:       make(map[string]chan *response),
		closed:        make(chan struct{}),
	}
}

// Counters exposes the client's counters for the metrics endpoint.
func (c *Client) Counters() *observability.RPCCounters {
	return c.counters
}

// Connect establishes the websocket connection eagerly.
func (c *Client) Connect(ctx context.Context) error {
	_, err := c.ensureConnected(ctx)
	return err
}

// Close shuts the client down and fails all in-flight calls.
func (c *Client) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })

	c.connMu.Lock()
	conn := c.conn
	c.conn = nil
	c.connMu.Unlock()

	c.failPending(&Error{Class: ClassConnectionLost, Message: "client closed"})

	if conn != nil {
		return conn.Close()
	}
	return nil
}

// Invoke calls a tool on a remote agent and waits for its result. The timeout
// bounds one attempt; it is supplied by the caller because call complexity
// varies per tool. Retries happen here according to the failure class policy.
func (c *Client) Invoke(ctx context.Context, agentID, tool string, args map[string]any, timeout time.Duration) (json.RawMessage, error) {
	attempt := 0
	for {
		attempt++
		result, err := c.invokeOnce(ctx, agentID, tool, args, timeout)
		if err == nil {
			c.counters.Successes.Add(1)
			return result, nil
		}

		class := ClassOf(err)
		c.counters.RecordFailure(string(class))

		if !Retryable(err, attempt) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, err
		}

		delay := PolicyFor(class).Delay(attempt)
		log.Printf("[rpc] %s/%s attempt %d failed (%s), retrying in %v", agentID, tool, attempt, class, delay)
		select {
		case <-ctx.Done():
			return nil, err
		case <-c.closed:
			return nil, err
		case <-time.After(delay):
		}
	}
}

// invokeOnce performs a single request/response exchange.
func (c *Client) invokeOnce(ctx context.Context, agentID, tool string, args map[string]any, timeout time.Duration) (json.RawMessage, error) {
	c.counters.Attempts.Add(1)

	conn, err := c.ensureConnected(ctx)
	if err != nil {
		return nil, &Error{Class: ClassConnectionLost, Agent: agentID, Tool: tool, Err: err}
	}

	id := uuid.NewString()
	ch, err := c.register(id)
	if err != nil {
		// Duplicate pending id: surface as Unknown but carry the violation
		// sentinel so Invoke fails it without a retry.
		log.Printf("[rpc] protocol violation: %v", err)
		return nil, &Error{Class: ClassUnknown, Agent: agentID, Tool: tool, Err: err}
	}
	defer c.unregister(id)

	payload, err := json.Marshal(request{
		JSONRPC: "2.0",
		ID:      id,
		Method:  methodInvokeTool,
		Params:  invokeParams{AgentID: agentID, Tool: tool, Arguments: args},
	})
	if err != nil {
		return nil, &Error{Class: ClassUnknown, Agent: agentID, Tool: tool, Err: err}
	}

	c.writeMu.Lock()
	writeErr := conn.WriteMessage(websocket.TextMessage, payload)
	c.writeMu.Unlock()
	if writeErr != nil {
		c.dropConn(conn)
		return nil, &Error{Class: ClassConnectionLost, Agent: agentID, Tool: tool, Err: writeErr}
	}
	c.counters.BytesSent.Add(int64(len(payload)))

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case resp := <-ch:
		if resp == nil {
			return nil, &Error{Class: ClassConnectionLost, Agent: agentID, Tool: tool, Message: "connection lost while waiting"}
		}
		if resp.Error != nil {
			return nil, &Error{
				Class:   classifyCode(resp.Error.Code),
				Agent:   agentID,
				Tool:    tool,
				Code:    resp.Error.Code,
				Message: resp.Error.Message,
			}
		}
		if len(resp.Result) == 0 {
			return nil, &Error{Class: ClassInvalidResponse, Agent: agentID, Tool: tool, Message: "empty result"}
		}
		return resp.Result, nil
	case <-timer.C:
		return nil, &Error{Class: ClassTimeout, Agent: agentID, Tool: tool, Message: fmt.Sprintf("no response within %v", timeout)}
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return nil, &Error{Class: ClassTimeout, Agent: agentID, Tool: tool, Err: ctx.Err()}
		}
		return nil, &Error{Class: ClassUnknown, Agent: agentID, Tool: tool, Err: ctx.Err()}
	}
}

// register adds a correlation id to the pending table. A correlation id that
// is already pending is a protocol violation.
func (c *Client) register(id string) (chan *response, error) {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	if _, exists := c.pending[id]; exists {
		return nil, fmt.Errorf("%w: correlation id %s already pending", ErrProtocolViolation, id)
	}
	ch := make(chan *response, 1)
	c.pending[id] = ch
	return ch, nil
}

func (c *Client) unregister(id string) {
	c.pendingMu.Lock()
	delete(c.pending, id)
	c.pendingMu.Unlock()
}

// failPending wakes every waiting caller with a nil response. Their invokeOnce
// surfaces it as ConnectionLost.
func (c *Client) failPending(cause *Error) {
	c.pendingMu.Lock()
	for id, ch := range c.pending {
		delete(c.pending, id)
		select {
		case ch <- nil:
		default:
		}
	}
	c.pendingMu.Unlock()
	if cause != nil {
		log.Printf("[rpc] failed in-flight calls: %v", cause)
	}
}

// ensureConnected returns the live connection, dialing with bounded
// exponential backoff if necessary.
func (c *Client) ensureConnected(ctx context.Context) (*websocket.Conn, error) {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn != nil {
		return c.conn, nil
	}

	select {
	case <-c.closed:
		return nil, fmt.Errorf("client closed")
	default:
	}

	var lastErr error
	delay := time.Second
	for attempt := 1; attempt <= c.maxReconnects; attempt++ {
		conn, _, err := c.dialer.DialContext(ctx, c.url, c.header)
		if err == nil {
			c.conn = conn
			go c.readLoop(conn)
			return conn, nil
		}
		lastErr = err
		c.counters.Reconnects.Add(1)
		log.Printf("[rpc] dial %s failed (attempt %d/%d): %v", c.url, attempt, c.maxReconnects, err)

		if attempt == c.maxReconnects {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		if delay < 30*time.Second {
			delay *= 2
		}
	}
	return nil, fmt.Errorf("failed to connect to agent hub after %d attempts: %w", c.maxReconnects, lastErr)
}

// dropConn clears the current connection after a read or write failure so
// the next invoke re-dials. It reports whether conn was still current; a
// false return means a successor connection already took over and the
// caller must not touch shared state on its behalf.
func (c *Client) dropConn(conn *websocket.Conn) bool {
	c.connMu.Lock()
	current := c.conn == conn
	if current {
		c.conn = nil
	}
	c.connMu.Unlock()
	_ = conn.Close()
	return current
}

// readLoop reads responses off one connection and dispatches them by
// correlation id. It tolerates out-of-order responses by construction. A read
// error ends the loop, fails all in-flight calls, and leaves reconnection to
// the next invoke. A loop whose connection was already replaced exits
// without failing anything: the pending table belongs to the successor.
func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			wasCurrent := c.dropConn(conn)
			select {
			case <-c.closed:
			default:
				if wasCurrent {
					c.failPending(&Error{Class: ClassConnectionLost, Err: err})
				}
			}
			return
		}
		c.counters.BytesReceived.Add(int64(len(data)))

		var resp response
		if err := json.Unmarshal(data, &resp); err != nil {
			log.Printf("[rpc] discarding unparseable frame: %v", err)
			continue
		}

		c.pendingMu.Lock()
		ch, ok := c.pending[resp.ID]
		if ok {
			delete(c.pending, resp.ID)
		}
		c.pendingMu.Unlock()

		if !ok {
			// Late response for a timed-out or unknown call.
			log.Printf("[rpc] no pending request for id %s, dropping", resp.ID)
			continue
		}
		ch <- &resp
	}
}
