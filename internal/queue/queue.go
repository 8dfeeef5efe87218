// Package queue provides the Redis Streams task queue the coordinator
// produces to and the workers consume from as a competing-consumer group.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jonathan/archive-enricher/internal/types"
)

// payloadField is the stream entry field holding the JSON task message.
const payloadField = "payload"

// Queue is a handle on one stream/consumer-group pair.
type Queue struct {
	client redis.UniversalClient
	stream string
	group  string
}

// New returns a Queue over the given stream and consumer group.
func New(client redis.UniversalClient, stream, group string) *Queue {
	return &Queue{client: client, stream: stream, group: group}
}

// Delivery is one stream entry handed to a worker. Err is set when the
// entry's payload could not be decoded; such entries must still be
// acknowledged or they would be redelivered forever.
type Delivery struct {
	ID      string
	Message *types.TaskMessage
	Err     error
}

// EnsureGroup creates the consumer group, creating the stream if needed.
// It is safe to call from every worker at startup.
func (q *Queue) EnsureGroup(ctx context.Context) error {
	err := q.client.XGroupCreateMkStream(ctx, q.stream, q.group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("creating consumer group %s on %s: %w", q.group, q.stream, err)
	}
	return nil
}

// Enqueue appends one task message to the stream and returns its entry id.
func (q *Queue) Enqueue(ctx context.Context, msg *types.TaskMessage) (string, error) {
	raw, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("encoding task message: %w", err)
	}
	id, err := q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: q.stream,
		Values: map[string]any{payloadField: string(raw)},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("enqueueing document %s: %w", msg.DocumentID, err)
	}
	return id, nil
}

// Fetch blocks up to the given duration for new entries assigned to this
// consumer. A timeout returns an empty slice, not an error.
func (q *Queue) Fetch(ctx context.Context, consumer string, count int, block time.Duration) ([]Delivery, error) {
	streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    q.group,
		Consumer: consumer,
		Streams:  []string{q.stream, ">"},
		Count:    int64(count),
		Block:    block,
	}).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading from %s: %w", q.stream, err)
	}

	var deliveries []Delivery
	for _, s := range streams {
		for _, m := range s.Messages {
			deliveries = append(deliveries, DecodeDelivery(m))
		}
	}
	return deliveries, nil
}

// Ack acknowledges one entry so the group never redelivers it.
func (q *Queue) Ack(ctx context.Context, id string) error {
	if err := q.client.XAck(ctx, q.stream, q.group, id).Err(); err != nil {
		return fmt.Errorf("acking %s: %w", id, err)
	}
	return nil
}

// Claim transfers entries that have been pending longer than minIdle to
// this consumer. It is the redelivery path for messages abandoned by a
// crashed or stalled worker.
func (q *Queue) Claim(ctx context.Context, consumer string, minIdle time.Duration, count int) ([]Delivery, error) {
	messages, _, err := q.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   q.stream,
		Group:    q.group,
		Consumer: consumer,
		MinIdle:  minIdle,
		Start:    "0",
		Count:    int64(count),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("claiming stale entries on %s: %w", q.stream, err)
	}

	deliveries := make([]Delivery, 0, len(messages))
	for _, m := range messages {
		deliveries = append(deliveries, DecodeDelivery(m))
	}
	return deliveries, nil
}

// DecodeDelivery parses one raw stream entry into a Delivery.
func DecodeDelivery(m redis.XMessage) Delivery {
	d := Delivery{ID: m.ID}

	raw, ok := m.Values[payloadField]
	if !ok {
		d.Err = fmt.Errorf("entry %s has no %s field", m.ID, payloadField)
		return d
	}
	text, ok := raw.(string)
	if !ok {
		d.Err = fmt.Errorf("entry %s has non-string payload", m.ID)
		return d
	}

	var msg types.TaskMessage
	if err := json.Unmarshal([]byte(text), &msg); err != nil {
		d.Err = fmt.Errorf("decoding entry %s: %w", m.ID, err)
		return d
	}
	d.Message = &msg
	return d
}
