package main

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/suPer8Hu/lingochat/internal/archive"
	"github.com/suPer8Hu/lingochat/internal/realtime"
	"github.com/suPer8Hu/lingochat/internal/store/rabbitmq"
)

const retryHeader = "x-retries"

type applier interface {
	Apply(ctx context.Context, ev realtime.LifecycleEvent) error
}

// publishFunc sends a delivery copy to the retry queue.
type publishFunc func(ctx context.Context, msg amqp.Publishing) error

// consumer drains a delivery stream with a fixed number of workers.
// Failed events go to the retry queue until maxRetries, then to the DLQ.
type consumer struct {
	archiver   applier
	retry      publishFunc
	maxRetries int
	workers    int
}

// run blocks until ctx is done or deliveries is closed, then waits for
// in-flight events.
func (c *consumer) run(ctx context.Context, deliveries <-chan amqp.Delivery) {
	var wg sync.WaitGroup
	for i := 0; i < c.workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case d, ok := <-deliveries:
					if !ok {
						return
					}
					c.handle(ctx, id, d)
				}
			}
		}(i)
	}
	wg.Wait()
}

func (c *consumer) handle(ctx context.Context, worker int, d amqp.Delivery) {
	ev, err := rabbitmq.Decode(d.Body)
	if err != nil {
		slog.Warn("undecodable event dropped", "worker", worker, "error", err)
		_ = d.Nack(false, false)
		return
	}

	start := time.Now()
	err = c.archiver.Apply(ctx, ev)
	if err == nil {
		if err := d.Ack(false); err != nil {
			slog.Warn("ack failed", "worker", worker, "chatRoomId", ev.ChatRoomID, "error", err)
		}
		return
	}
	if errors.Is(err, archive.ErrUnknownKind) {
		slog.Warn("event rejected", "worker", worker, "kind", ev.Kind, "error", err)
		_ = d.Nack(false, false)
		return
	}
	slog.Error("apply event failed", "worker", worker, "kind", ev.Kind, "chatRoomId", ev.ChatRoomID, "cost", time.Since(start), "error", err)
	c.retryOrReject(ctx, d)
}

func (c *consumer) retryOrReject(ctx context.Context, d amqp.Delivery) {
	attempts := retries(d.Headers)
	if attempts >= c.maxRetries || c.retry == nil {
		_ = d.Nack(false, false)
		return
	}

	headers := make(amqp.Table, len(d.Headers)+1)
	for k, v := range d.Headers {
		headers[k] = v
	}
	headers[retryHeader] = int32(attempts + 1)

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	err := c.retry(pctx, amqp.Publishing{
		ContentType:  d.ContentType,
		DeliveryMode: amqp.Persistent,
		Type:         d.Type,
		Headers:      headers,
		Body:         d.Body,
		Timestamp:    d.Timestamp,
	})
	if err != nil {
		slog.Error("retry publish failed", "error", err)
		_ = d.Nack(false, false)
		return
	}
	_ = d.Ack(false)
}

func retries(h amqp.Table) int {
	switch v := h[retryHeader].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	}
	return 0
}

// channelPublisher serialises retry publishes on a shared channel.
func channelPublisher(ch *amqp.Channel, queue string) publishFunc {
	var mu sync.Mutex
	return func(ctx context.Context, msg amqp.Publishing) error {
		mu.Lock()
		defer mu.Unlock()
		return ch.PublishWithContext(ctx, "", queue, false, false, msg)
	}
}
