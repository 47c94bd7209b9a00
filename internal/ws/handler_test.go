package ws

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	gormsqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/suPer8Hu/lingochat/internal/auth"
	"github.com/suPer8Hu/lingochat/internal/chat"
	"github.com/suPer8Hu/lingochat/internal/models"
	"github.com/suPer8Hu/lingochat/internal/protocol"
	"github.com/suPer8Hu/lingochat/internal/realtime"
	"github.com/suPer8Hu/lingochat/internal/users"
	"gorm.io/gorm"
)

type echoTranslator struct{}

func (echoTranslator) Translate(_ context.Context, text, _, tgt string) (string, error) {
	return "[" + tgt + "] " + text, nil
}

func (echoTranslator) DetectLanguage(string) string { return "en" }

type testEnv struct {
	t      *testing.T
	engine *realtime.Engine
	repo   *chat.Repo
	dir    *users.Directory
	server *httptest.Server
}

func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()
	db, err := gorm.Open(gormsqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.User{}, &chat.ChatRoom{}, &chat.Message{}))

	repo := chat.NewRepo(db)
	dir := users.NewDirectory(db, nil, 0)
	engine := realtime.NewEngine(realtime.Options{
		Users:      dir,
		Log:        repo,
		Translator: echoTranslator{},
	})
	server := httptest.NewServer(NewHandler(engine, opts))
	t.Cleanup(func() {
		server.Close()
		engine.Wait()
	})
	return &testEnv{t: t, engine: engine, repo: repo, dir: dir, server: server}
}

func (e *testEnv) user(name, lang string) *models.User {
	u, err := e.dir.CreateUser(context.Background(), name, lang)
	require.NoError(e.t, err)
	return u
}

type client struct {
	t    *testing.T
	conn *websocket.Conn
	ctx  context.Context
}

func (e *testEnv) dial(query string) *client {
	e.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	url := "ws" + strings.TrimPrefix(e.server.URL, "http") + query
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		cancel()
		e.t.Fatalf("failed to connect: %v", err)
	}
	e.t.Cleanup(func() {
		conn.Close(websocket.StatusNormalClosure, "")
		cancel()
	})
	return &client{t: e.t, conn: conn, ctx: ctx}
}

func (c *client) send(v map[string]any) {
	c.t.Helper()
	data, _ := json.Marshal(v)
	if err := c.conn.Write(c.ctx, websocket.MessageText, data); err != nil {
		c.t.Fatalf("failed to send: %v", err)
	}
}

func (c *client) read() protocol.ServerMessage {
	c.t.Helper()
	_, data, err := c.conn.Read(c.ctx)
	if err != nil {
		c.t.Fatalf("failed to read: %v", err)
	}
	var msg protocol.ServerMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.t.Fatalf("failed to unmarshal: %v", err)
	}
	return msg
}

func (c *client) join(u *models.User) {
	c.send(map[string]any{"type": "join", "userId": u.ID, "preferredLanguage": u.PreferredLanguage})
}

func TestHandler_PairChatTranslateDisconnect(t *testing.T) {
	env := newTestEnv(t, Options{})
	ux := env.user("Xavier", "en-GB")
	uy := env.user("Yvonne", "fr-FR")

	x := env.dial("")
	y := env.dial("")

	x.join(ux)
	waiting := x.read()
	require.Equal(t, protocol.TypeWaiting, waiting.Type)

	y.join(uy)
	yj := y.read()
	require.Equal(t, protocol.TypeUserJoined, yj.Type)
	require.Equal(t, ux.ID, yj.OtherUser.ID)
	require.Equal(t, "en-GB", yj.OtherUser.PreferredLanguage)

	xj := x.read()
	require.Equal(t, protocol.TypeUserJoined, xj.Type)
	require.Equal(t, uy.ID, xj.OtherUser.ID)
	require.Equal(t, yj.ChatRoomID, xj.ChatRoomID)
	roomID := xj.ChatRoomID

	x.send(map[string]any{"type": "send_message", "userId": ux.ID, "chatRoomId": roomID, "content": "hello"})
	for _, c := range []*client{x, y} {
		m := c.read()
		require.Equal(t, protocol.TypeMessage, m.Type)
		require.Equal(t, "hello", m.Content)
		require.Equal(t, ux.ID, m.SenderID)
		require.Equal(t, "en-GB", m.OriginalLanguage)
		require.NotZero(t, m.MessageID)
	}

	y.send(map[string]any{"type": "translate_message", "userId": uy.ID, "content": "hello", "sourceLanguage": "en-GB", "targetLanguage": "fr-FR"})
	tr := y.read()
	require.Equal(t, protocol.TypeTranslation, tr.Type)
	require.Equal(t, "[fr-FR] hello", tr.TranslatedContent)
	require.Equal(t, "fr-FR", tr.TargetLanguage)

	x.conn.Close(websocket.StatusNormalClosure, "bye")
	left := y.read()
	require.Equal(t, protocol.TypeUserLeft, left.Type)
	require.Equal(t, ux.ID, left.UserID)
	require.Equal(t, roomID, left.ChatRoomID)

	msgs, err := env.repo.ListRoomMessages(context.Background(), roomID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Eventually(t, func() bool {
		rec, err := env.repo.GetChatRoom(context.Background(), roomID)
		return err == nil && !rec.IsActive
	}, 2*time.Second, 20*time.Millisecond)
}

func TestHandler_MalformedInputKeepsConnection(t *testing.T) {
	env := newTestEnv(t, Options{})
	u := env.user("Ada", "en")
	c := env.dial("")

	require.NoError(t, c.conn.Write(c.ctx, websocket.MessageText, []byte("{not json")))
	require.Equal(t, CodeInvalidMessage, c.read().Code)

	c.send(map[string]any{"type": "dance"})
	require.Equal(t, CodeUnknownType, c.read().Code)

	c.send(map[string]any{"type": "join", "userId": u.ID})
	verr := c.read()
	require.Equal(t, CodeValidationFailed, verr.Code)
	require.Contains(t, verr.Error, "preferredLanguage")

	c.send(map[string]any{"type": "send_message", "userId": u.ID, "chatRoomId": "r", "content": "hi"})
	require.Equal(t, CodeNotJoined, c.read().Code)

	c.send(map[string]any{"type": "join", "userId": "nobody", "preferredLanguage": "en"})
	require.Equal(t, CodeUserNotFound, c.read().Code)

	c.join(u)
	require.Equal(t, protocol.TypeWaiting, c.read().Type)

	c.send(map[string]any{"type": "send_message", "userId": "someone-else", "chatRoomId": "r", "content": "hi"})
	require.Equal(t, CodeUserMismatch, c.read().Code)
}

func TestHandler_ReplacedConnectionIsClosed(t *testing.T) {
	env := newTestEnv(t, Options{})
	u := env.user("Ada", "en")

	first := env.dial("")
	first.join(u)
	require.Equal(t, protocol.TypeWaiting, first.read().Type)

	second := env.dial("")
	second.join(u)
	require.Equal(t, protocol.TypeWaiting, second.read().Type)

	_, _, err := first.conn.Read(first.ctx)
	require.Error(t, err)
	require.Equal(t, websocket.StatusPolicyViolation, websocket.CloseStatus(err))

	require.Eventually(t, func() bool { return len(env.engine.WaitingRooms()) == 1 }, 2*time.Second, 20*time.Millisecond)
}

func TestHandler_AuthRequired(t *testing.T) {
	env := newTestEnv(t, Options{AuthRequired: true, JWTSecret: "s3cret"})
	u := env.user("Ada", "en")
	other := env.user("Bob", "en")

	for _, query := range []string{"", "?token=garbage"} {
		resp, err := http.Get(env.server.URL + query)
		require.NoError(t, err)
		_ = resp.Body.Close()
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}

	tok, err := auth.SignJWT(u.ID, "s3cret", time.Hour)
	require.NoError(t, err)
	c := env.dial("?token=" + tok)

	c.join(other)
	require.Equal(t, CodeUserMismatch, c.read().Code)

	c.join(u)
	require.Equal(t, protocol.TypeWaiting, c.read().Type)
}

func TestHandler_LeaveTwiceIsNoOp(t *testing.T) {
	env := newTestEnv(t, Options{})
	ua := env.user("Ada", "en")
	ub := env.user("Bob", "de")
	a := env.dial("")
	b := env.dial("")

	a.join(ua)
	require.Equal(t, protocol.TypeWaiting, a.read().Type)
	b.join(ub)
	roomID := b.read().ChatRoomID
	require.Equal(t, protocol.TypeUserJoined, a.read().Type)

	leave := map[string]any{"type": "leave_chat", "userId": ua.ID, "chatRoomId": roomID}
	a.send(leave)
	left := b.read()
	require.Equal(t, protocol.TypeUserLeft, left.Type)

	a.send(leave)
	a.join(ua)
	// no error frame in between: the second leave was swallowed
	require.Equal(t, protocol.TypeWaiting, a.read().Type)
}

func TestHandler_LeaveLiveRoomRequiresJoin(t *testing.T) {
	env := newTestEnv(t, Options{})
	ua := env.user("Ada", "en")
	a := env.dial("")
	a.join(ua)
	require.Equal(t, protocol.TypeWaiting, a.read().Type)
	rooms := env.engine.WaitingRooms()
	require.Len(t, rooms, 1)

	stranger := env.dial("")
	stranger.send(map[string]any{"type": "leave_chat", "userId": "someone", "chatRoomId": rooms[0].ID})
	require.Equal(t, CodeNotJoined, stranger.read().Code)
	require.Len(t, env.engine.WaitingRooms(), 1)
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) lines(msg string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for _, l := range strings.Split(b.buf.String(), "\n") {
		if strings.Contains(l, `"msg":"`+msg+`"`) {
			out = append(out, l)
		}
	}
	return out
}

func TestHandler_RejoinLogsUserOnce(t *testing.T) {
	logs := &lockedBuffer{}
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(logs, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	env := newTestEnv(t, Options{})
	u := env.user("Ada", "en")
	c := env.dial("")

	c.join(u)
	require.Equal(t, protocol.TypeWaiting, c.read().Type)
	roomID := env.engine.WaitingRooms()[0].ID
	c.send(map[string]any{"type": "leave_chat", "userId": u.ID, "chatRoomId": roomID})
	c.join(u)
	require.Equal(t, protocol.TypeWaiting, c.read().Type)

	require.Eventually(t, func() bool { return len(logs.lines("joined")) == 2 }, 2*time.Second, 20*time.Millisecond)
	for _, l := range logs.lines("joined") {
		require.Equal(t, 1, strings.Count(l, `"userId"`), l)
	}
}
