package realtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/suPer8Hu/lingochat/internal/chat"
	"github.com/suPer8Hu/lingochat/internal/common"
	"github.com/suPer8Hu/lingochat/internal/metrics"
	"github.com/suPer8Hu/lingochat/internal/models"
	"github.com/suPer8Hu/lingochat/internal/protocol"
	"github.com/suPer8Hu/lingochat/internal/ratelimit"
)

// Directory looks up users by id.
type Directory interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
}

// RoomLog is the durable, append-only record of rooms and messages.
type RoomLog interface {
	CreateChatRoom(ctx context.Context, room *chat.ChatRoom) error
	JoinChatRoom(ctx context.Context, roomID, userID string) error
	EndChatRoom(ctx context.Context, roomID string, endedAt time.Time) (bool, error)
	CreateMessage(ctx context.Context, m *chat.Message) error
}

type Translator interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
	DetectLanguage(text string) string
}

type Options struct {
	Users      Directory
	Log        RoomLog
	Translator Translator
	Events     Publisher
	Metrics    *metrics.Metrics
	Limiter    *ratelimit.Users
	Now        func() time.Time
	NewRoomID  func() (string, error)
}

// Engine pairs users into chat rooms and relays traffic between them.
//
// Lock order: Engine.mu may be held while taking Registry.mu, never the
// other way around. Neither lock is held across log, directory, publisher or
// translator calls.
type Engine struct {
	users      Directory
	log        RoomLog
	translator Translator
	events     Publisher
	metrics    *metrics.Metrics
	limiter    *ratelimit.Users
	now        func() time.Time
	newRoomID  func() (string, error)

	registry *Registry

	mu      sync.Mutex
	rooms   map[string]*room
	waiting []*room // FIFO by creation
	byUser  map[string]*room

	inflight sync.WaitGroup
}

func NewEngine(opts Options) *Engine {
	e := &Engine{
		users:      opts.Users,
		log:        opts.Log,
		translator: opts.Translator,
		events:     opts.Events,
		metrics:    opts.Metrics,
		limiter:    opts.Limiter,
		now:        opts.Now,
		newRoomID:  opts.NewRoomID,
		registry:   NewRegistry(),
		rooms:      make(map[string]*room),
		byUser:     make(map[string]*room),
	}
	if e.events == nil {
		e.events = nopPublisher{}
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.newRoomID == nil {
		e.newRoomID = common.NewULID
	}
	return e
}

func (e *Engine) Registry() *Registry { return e.registry }

// Join registers conn for the user and runs the matchmaker. A previous
// connection of the same user is closed and its room ended.
func (e *Engine) Join(ctx context.Context, conn Conn, cmd protocol.Join) (*Handle, Outcome, error) {
	u, err := e.users.GetUser(ctx, cmd.UserID)
	if err != nil {
		return nil, Outcome{}, fmt.Errorf("lookup user %s: %w", cmd.UserID, err)
	}

	e.mu.Lock()
	if r := e.byUser[u.ID]; r != nil {
		if bound := r.handleOf(u.ID); bound != nil && bound.ConnID() == conn.ID() {
			e.mu.Unlock()
			return nil, Outcome{}, ErrAlreadyInSession
		}
	}
	e.mu.Unlock()

	profile := protocol.Profile{ID: u.ID, Name: u.Name, PreferredLanguage: cmd.PreferredLanguage}
	h, prev := e.registry.Register(profile, conn, e.now())
	e.metrics.SetConnections(e.registry.Len())

	if prev != nil && prev.ConnID() != conn.ID() {
		slog.Info("replacing connection", "userId", u.ID, "oldConnId", prev.ConnID(), "connId", conn.ID())
		e.release(ctx, prev)
		prev.conn.Close("replaced by a newer connection")
	}

	out, err := e.MatchOrWait(ctx, h)
	if err != nil {
		return h, Outcome{}, err
	}
	return h, out, nil
}

// Wait blocks until in-flight translations have finished.
func (e *Engine) Wait() {
	e.inflight.Wait()
}

func (e *Engine) publish(ctx context.Context, ev LifecycleEvent) {
	if err := e.events.Publish(ctx, ev); err != nil {
		slog.Warn("publish lifecycle event failed", "kind", ev.Kind, "chatRoomId", ev.ChatRoomID, "error", err)
	}
}

func (e *Engine) updateRoomGaugesLocked() {
	e.metrics.SetRooms(len(e.waiting), len(e.rooms)-len(e.waiting))
}
