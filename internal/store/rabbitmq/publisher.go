package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/suPer8Hu/lingochat/internal/realtime"
)

const publishTimeout = 5 * time.Second

// Publisher sends lifecycle events to a topic exchange, routed by event kind.
// A channel closed by the broker is reopened on the next publish.
type Publisher struct {
	conn     *amqp.Connection
	exchange string

	mu sync.Mutex // guards ch; amqp channels are not safe for concurrent publishing
	ch *amqp.Channel
}

func NewPublisher(url, exchange string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	p := &Publisher{conn: conn, exchange: exchange}
	if _, err := p.channel(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return p, nil
}

// channel returns a usable channel, opening one if needed. Caller holds mu or
// has exclusive access.
func (p *Publisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	ch, err := p.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := DeclareExchange(ch, p.exchange); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", p.exchange, err)
	}
	p.ch = ch
	return ch, nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil && !p.ch.IsClosed() {
		_ = p.ch.Close()
	}
	return p.conn.Close()
}

// Publish implements realtime.Publisher.
func (p *Publisher) Publish(ctx context.Context, ev realtime.LifecycleEvent) error {
	msg, err := encode(ev)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()
	ch, err := p.channel()
	if err != nil {
		return err
	}
	return ch.PublishWithContext(ctx, p.exchange, string(ev.Kind), false, false, msg)
}

func encode(ev realtime.LifecycleEvent) (amqp.Publishing, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return amqp.Publishing{}, err
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Type:         string(ev.Kind),
		Body:         body,
		Timestamp:    ev.At,
	}, nil
}

// Decode parses a delivery body produced by Publisher.
func Decode(body []byte) (realtime.LifecycleEvent, error) {
	var ev realtime.LifecycleEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return realtime.LifecycleEvent{}, err
	}
	return ev, nil
}
