package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/suPer8Hu/lingochat/internal/chat"
	"github.com/suPer8Hu/lingochat/internal/models"
	"github.com/suPer8Hu/lingochat/internal/protocol"
	"github.com/suPer8Hu/lingochat/internal/users"
	"gorm.io/gorm"
)

var errConnClosed = errors.New("connection closed")

type fakeConn struct {
	id string

	mu     sync.Mutex
	events []protocol.Event
	closed string
}

func newFakeConn() *fakeConn {
	return &fakeConn{id: uuid.NewString()}
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Send(ev protocol.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed != "" {
		return errConnClosed
	}
	c.events = append(c.events, ev)
	return nil
}

func (c *fakeConn) Close(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = reason
}

func (c *fakeConn) Events() []protocol.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]protocol.Event(nil), c.events...)
}

func (c *fakeConn) ofType(typ protocol.Type) []protocol.Event {
	var out []protocol.Event
	for _, ev := range c.Events() {
		if ev.EventType() == typ {
			out = append(out, ev)
		}
	}
	return out
}

type fakeDirectory struct {
	users map[string]*models.User
}

func (d *fakeDirectory) GetUser(ctx context.Context, id string) (*models.User, error) {
	_ = ctx
	u, ok := d.users[id]
	if !ok {
		return nil, users.ErrUserNotFound
	}
	return u, nil
}

type fakeTranslator struct {
	mu    sync.Mutex
	calls []string
	err   error
	block chan struct{}
}

func (f *fakeTranslator) Translate(ctx context.Context, text, src, tgt string) (string, error) {
	_ = ctx
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	f.calls = append(f.calls, src+">"+tgt)
	f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	return fmt.Sprintf("[%s] %s", tgt, text), nil
}

func (f *fakeTranslator) DetectLanguage(text string) string {
	_ = text
	return "en"
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []LifecycleEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, ev LifecycleEvent) error {
	_ = ctx
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) kinds() []EventKind {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]EventKind, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Kind)
	}
	return out
}

type failingLog struct {
	*chat.Repo
}

func (failingLog) CreateMessage(context.Context, *chat.Message) error {
	return errors.New("disk full")
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(gormsqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// concurrent joins share one in-memory database
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&chat.ChatRoom{}, &chat.Message{}))
	return db
}

type testEngine struct {
	*Engine
	db         *gorm.DB
	repo       *chat.Repo
	dir        *fakeDirectory
	translator *fakeTranslator
	events     *recordingPublisher
}

func newTestEngine(t *testing.T, mutate ...func(*Options)) *testEngine {
	t.Helper()
	db := openTestDB(t)
	repo := chat.NewRepo(db)
	dir := &fakeDirectory{users: map[string]*models.User{}}
	tr := &fakeTranslator{}
	pub := &recordingPublisher{}

	var seq atomic.Int64
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	opts := Options{
		Users:      dir,
		Log:        repo,
		Translator: tr,
		Events:     pub,
		Now: func() time.Time {
			return base.Add(time.Duration(seq.Add(1)) * time.Millisecond)
		},
	}
	for _, m := range mutate {
		m(&opts)
	}
	e := NewEngine(opts)
	t.Cleanup(e.Wait)
	return &testEngine{Engine: e, db: db, repo: repo, dir: dir, translator: tr, events: pub}
}

func (te *testEngine) addUser(id, name, lang string) {
	te.dir.users[id] = &models.User{ID: id, Name: name, PreferredLanguage: lang}
}

func (te *testEngine) join(t *testing.T, userID, lang string) (*Handle, *fakeConn, Outcome) {
	t.Helper()
	if _, ok := te.dir.users[userID]; !ok {
		te.addUser(userID, "name-"+userID, lang)
	}
	conn := newFakeConn()
	h, out, err := te.Join(context.Background(), conn, protocol.Join{UserID: userID, PreferredLanguage: lang})
	require.NoError(t, err)
	return h, conn, out
}
