package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/suPer8Hu/lingochat/internal/protocol"
)

const writeTimeout = 10 * time.Second

var errConnClosed = errors.New("connection closed")

// conn queues outbound events for a single websocket. One writer goroutine
// owns the socket's write side.
type conn struct {
	id    string
	ws    *websocket.Conn
	queue chan protocol.Event
	done  chan struct{}

	mu     sync.Mutex
	closed bool
	reason string
}

func newConn(ws *websocket.Conn, buffer int) *conn {
	if buffer <= 0 {
		buffer = 64
	}
	return &conn{
		id:    uuid.NewString(),
		ws:    ws,
		queue: make(chan protocol.Event, buffer),
		done:  make(chan struct{}),
	}
}

func (c *conn) ID() string { return c.id }

// Send queues ev. A full queue closes the connection rather than blocking the
// caller.
func (c *conn) Send(ev protocol.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errConnClosed
	}
	select {
	case c.queue <- ev:
		return nil
	default:
		c.closeLocked("slow consumer")
		return errConnClosed
	}
}

func (c *conn) Close(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked(reason)
}

func (c *conn) closeLocked(reason string) {
	if c.closed {
		return
	}
	c.closed = true
	c.reason = reason
	close(c.done)
}

func (c *conn) closeReason() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reason
}

// writeLoop drains the queue to the socket and pings it every interval until
// the connection is closed or ctx ends.
func (c *conn) writeLoop(ctx context.Context, pingInterval time.Duration) {
	var tick <-chan time.Time
	if pingInterval > 0 {
		t := time.NewTicker(pingInterval)
		defer t.Stop()
		tick = t.C
	}

	for {
		select {
		case ev := <-c.queue:
			if err := c.write(ctx, ev); err != nil {
				slog.Debug("websocket write failed", "connId", c.id, "error", err)
				c.Close("write failed")
				_ = c.ws.CloseNow()
				return
			}

		case <-tick:
			pctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.ws.Ping(pctx)
			cancel()
			if err != nil {
				slog.Debug("websocket ping failed", "connId", c.id, "error", err)
				c.Close("ping failed")
				_ = c.ws.CloseNow()
				return
			}

		case <-c.done:
			c.flush(ctx)
			reason := c.closeReason()
			status := websocket.StatusNormalClosure
			if reason != "" {
				status = websocket.StatusPolicyViolation
			}
			_ = c.ws.Close(status, reason)
			return

		case <-ctx.Done():
			return
		}
	}
}

// flush writes whatever was queued before the close.
func (c *conn) flush(ctx context.Context) {
	for {
		select {
		case ev := <-c.queue:
			if err := c.write(ctx, ev); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (c *conn) write(ctx context.Context, ev protocol.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return c.ws.Write(wctx, websocket.MessageText, data)
}
