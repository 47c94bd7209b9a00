package client

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/require"
	"github.com/suPer8Hu/lingochat/internal/protocol"
)

type fakeTransport struct {
	frames chan []byte
	mu     sync.Mutex
	writes [][]byte
	closed bool
}

func newFakeTransport(frames ...string) *fakeTransport {
	t := &fakeTransport{frames: make(chan []byte, len(frames))}
	for _, f := range frames {
		t.frames <- []byte(f)
	}
	close(t.frames)
	return t
}

func (t *fakeTransport) Read(ctx context.Context) ([]byte, error) {
	select {
	case f, ok := <-t.frames:
		if !ok {
			return nil, errors.New("eof")
		}
		return f, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (t *fakeTransport) Write(_ context.Context, data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.writes = append(t.writes, data)
	return nil
}

func (t *fakeTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

type stateLog struct {
	mu     sync.Mutex
	states []State
}

func (l *stateLog) record(s State) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.states = append(l.states, s)
}

func (l *stateLog) get() []State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]State(nil), l.states...)
}

var fastBackoff = Backoff{Initial: time.Millisecond, Max: 4 * time.Millisecond, Multiplier: 2, MaxAttempts: 3}

func TestBackoff_Schedule(t *testing.T) {
	p := Backoff{Initial: 100 * time.Millisecond, Max: time.Second, Multiplier: 2}.policy()
	var got []time.Duration
	for i := 0; i < 7; i++ {
		got = append(got, p.NextBackOff())
	}
	require.Equal(t, []time.Duration{
		100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond, 800 * time.Millisecond,
		time.Second, time.Second, time.Second,
	}, got)

	p.Reset()
	require.Equal(t, 100*time.Millisecond, p.NextBackOff())
}

func TestBackoff_MaxAttempts(t *testing.T) {
	p := fastBackoff.policy()
	for i := 0; i < fastBackoff.MaxAttempts; i++ {
		require.NotEqual(t, backoff.Stop, p.NextBackOff())
	}
	require.Equal(t, backoff.Stop, p.NextBackOff())

	p.Reset()
	require.Equal(t, time.Millisecond, p.NextBackOff())
}

func TestBackoff_JitterStaysInRange(t *testing.T) {
	p := Backoff{Initial: 100 * time.Millisecond, Max: time.Second, Multiplier: 2, Jitter: 0.5}.policy()
	d := p.NextBackOff()
	require.GreaterOrEqual(t, d, 50*time.Millisecond)
	require.LessOrEqual(t, d, 150*time.Millisecond)
}

func TestRun_GivesUpAfterMaxAttempts(t *testing.T) {
	var dials int
	var log stateLog
	c := New(Options{
		Backoff: fastBackoff,
		Dial: func(context.Context) (Transport, error) {
			dials++
			return nil, errors.New("refused")
		},
		OnState: log.record,
	})

	err := c.Run(context.Background())
	require.ErrorIs(t, err, ErrGaveUp)
	require.Equal(t, 4, dials)
	require.Equal(t, StateFailed, c.State())
	require.Equal(t, []State{
		StateConnecting, StateBackoff,
		StateConnecting, StateBackoff,
		StateConnecting, StateBackoff,
		StateConnecting, StateFailed,
	}, log.get())
}

func TestRun_ReconnectsAndRejoins(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first := newFakeTransport(`{"type":"waiting","message":"Waiting for another user to join..."}`)
	second := newFakeTransport(`{"type":"user_joined","chatRoomId":"r1","otherUser":{"id":"u2","name":"B","preferredLanguage":"fr"}}`)
	transports := []*fakeTransport{first, second}

	var mu sync.Mutex
	var got []protocol.ServerMessage
	dials := 0
	c := New(Options{
		Backoff: fastBackoff,
		Dial: func(context.Context) (Transport, error) {
			mu.Lock()
			defer mu.Unlock()
			if dials >= len(transports) {
				return nil, errors.New("refused")
			}
			t := transports[dials]
			dials++
			return t, nil
		},
		OnConnect: func(ctx context.Context, c *Client) error {
			return c.Send(ctx, map[string]string{"type": "join", "userId": "u1", "preferredLanguage": "en"})
		},
		OnMessage: func(msg protocol.ServerMessage) {
			mu.Lock()
			defer mu.Unlock()
			got = append(got, msg)
		},
	})

	err := c.Run(ctx)
	require.ErrorIs(t, err, ErrGaveUp)

	for _, tr := range transports {
		require.Len(t, tr.writes, 1)
		require.JSONEq(t, `{"type":"join","userId":"u1","preferredLanguage":"en"}`, string(tr.writes[0]))
		require.True(t, tr.closed)
	}
	require.Len(t, got, 2)
	require.Equal(t, protocol.TypeWaiting, got[0].Type)
	require.Equal(t, protocol.TypeUserJoined, got[1].Type)
	require.Equal(t, "u2", got[1].OtherUser.ID)
}

func TestRun_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	block := &fakeTransport{frames: make(chan []byte)}
	connected := make(chan struct{})

	c := New(Options{
		Dial: func(context.Context) (Transport, error) { return block, nil },
		OnConnect: func(context.Context, *Client) error {
			close(connected)
			return nil
		},
	})

	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	<-connected
	require.Equal(t, StateConnected, c.State())
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
	require.Equal(t, StateIdle, c.State())
}

func TestSend_NotConnected(t *testing.T) {
	c := New(Options{})
	require.ErrorIs(t, c.Send(context.Background(), map[string]string{"type": "typing"}), ErrNotConnected)
}
