package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/coder/websocket"
	"github.com/suPer8Hu/lingochat/internal/protocol"
)

var (
	ErrNotConnected = errors.New("not connected")
	ErrGaveUp       = errors.New("reconnect attempts exhausted")
)

type State int

const (
	StateIdle State = iota
	StateConnecting
	StateConnected
	StateBackoff
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateBackoff:
		return "backoff"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Transport is one established connection.
type Transport interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	Close() error
}

type DialFunc func(ctx context.Context) (Transport, error)

type Options struct {
	Dial    DialFunc
	Backoff Backoff

	// OnConnect runs after every successful dial, before messages are read.
	// It is where the caller re-sends its join.
	OnConnect func(ctx context.Context, c *Client) error
	OnMessage func(msg protocol.ServerMessage)
	OnState   func(s State)
}

// Client keeps a connection to the chat server open, redialling with
// exponential backoff when it drops.
type Client struct {
	opts Options

	mu    sync.Mutex
	state State
	cur   Transport
}

func New(opts Options) *Client {
	if opts.Backoff == (Backoff{}) {
		opts.Backoff = DefaultBackoff()
	}
	return &Client{opts: opts}
}

// WebSocketDialer dials url with coder/websocket.
func WebSocketDialer(url string) DialFunc {
	return func(ctx context.Context) (Transport, error) {
		conn, _, err := websocket.Dial(ctx, url, nil)
		if err != nil {
			return nil, err
		}
		return &wsTransport{conn: conn}, nil
	}
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	changed := c.state != s
	c.state = s
	c.mu.Unlock()
	if changed && c.opts.OnState != nil {
		c.opts.OnState(s)
	}
}

// Send writes v as one JSON frame on the current connection.
func (c *Client) Send(ctx context.Context, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	t := c.cur
	c.mu.Unlock()
	if t == nil {
		return ErrNotConnected
	}
	return t.Write(ctx, data)
}

// Run connects and keeps reconnecting until ctx is done or the backoff gives
// up. It returns ctx.Err() or ErrGaveUp.
func (c *Client) Run(ctx context.Context) error {
	defer func() {
		if c.State() != StateFailed {
			c.setState(StateIdle)
		}
	}()

	policy := c.opts.Backoff.policy()
	for {
		c.setState(StateConnecting)
		t, err := c.opts.Dial(ctx)
		if err == nil {
			policy.Reset()
			err = c.serve(ctx, t)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		delay := policy.NextBackOff()
		if delay == backoff.Stop {
			c.setState(StateFailed)
			return fmt.Errorf("%w: %v", ErrGaveUp, err)
		}
		slog.Debug("connection lost, retrying", "delay", delay, "error", err)

		c.setState(StateBackoff)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (c *Client) serve(ctx context.Context, t Transport) error {
	c.mu.Lock()
	c.cur = t
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.cur = nil
		c.mu.Unlock()
		_ = t.Close()
	}()

	c.setState(StateConnected)
	if c.opts.OnConnect != nil {
		if err := c.opts.OnConnect(ctx, c); err != nil {
			return err
		}
	}

	for {
		data, err := t.Read(ctx)
		if err != nil {
			return err
		}
		var msg protocol.ServerMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Warn("dropping undecodable frame", "error", err)
			continue
		}
		if c.opts.OnMessage != nil {
			c.opts.OnMessage(msg)
		}
	}
}

type wsTransport struct {
	conn *websocket.Conn
}

func (t *wsTransport) Read(ctx context.Context) ([]byte, error) {
	_, data, err := t.conn.Read(ctx)
	return data, err
}

func (t *wsTransport) Write(ctx context.Context, data []byte) error {
	return t.conn.Write(ctx, websocket.MessageText, data)
}

func (t *wsTransport) Close() error {
	return t.conn.Close(websocket.StatusNormalClosure, "")
}
