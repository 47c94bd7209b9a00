package ws

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/suPer8Hu/lingochat/internal/auth"
	"github.com/suPer8Hu/lingochat/internal/logger"
	"github.com/suPer8Hu/lingochat/internal/protocol"
	"github.com/suPer8Hu/lingochat/internal/realtime"
)

// contentLogMaxLen limits message content in logs for privacy.
const contentLogMaxLen = 50

type Options struct {
	JWTSecret          string
	AuthRequired       bool
	SendBuffer         int
	PingInterval       time.Duration
	InsecureSkipVerify bool
}

type Handler struct {
	engine *realtime.Engine
	opts   Options
}

func NewHandler(engine *realtime.Engine, opts Options) *Handler {
	return &Handler{engine: engine, opts: opts}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var tokenUser string
	if h.opts.AuthRequired {
		token := r.URL.Query().Get("token")
		if token == "" {
			token = auth.BearerToken(r.Header.Get("Authorization"))
		}
		if token == "" {
			http.Error(w, "Missing token", http.StatusUnauthorized)
			return
		}
		uid, err := auth.ParseJWT(token, h.opts.JWTSecret)
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}
		tokenUser = uid
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: h.opts.InsecureSkipVerify,
	})
	if err != nil {
		slog.Error("failed to accept websocket", "error", err)
		return
	}
	ws.SetReadLimit(64 << 10)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	c := newConn(ws, h.opts.SendBuffer)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		c.writeLoop(ctx, h.opts.PingInterval)
	}()

	h.serve(ctx, c, tokenUser)

	c.Close("")
	<-writerDone
}

// session is the per-connection state of the read loop.
type session struct {
	conn      *conn
	tokenUser string
	handle    *realtime.Handle
	base      *slog.Logger // connection scoped, without user fields
	log       *slog.Logger
}

func (h *Handler) serve(ctx context.Context, c *conn, tokenUser string) {
	base := slog.With("connId", c.ID(), "requestId", logger.NewRequestID())
	s := &session{
		conn:      c,
		tokenUser: tokenUser,
		base:      base,
		log:       base,
	}
	s.log.Info("websocket connected")

	defer func() {
		// cleanup must run even though the request context is done
		h.engine.Disconnect(context.WithoutCancel(ctx), s.handle)
		s.log.Info("websocket disconnected")
	}()

	for {
		_, data, err := c.ws.Read(ctx)
		if err != nil {
			s.log.Debug("read loop ended", "error", err)
			return
		}

		cmd, err := protocol.Decode(data)
		if err != nil {
			s.log.Debug("rejected frame", "error", err)
			s.fail(err)
			continue
		}
		if err := h.dispatch(ctx, s, cmd); err != nil {
			s.log.Debug("command failed", "type", cmd.Kind(), "error", err)
			s.fail(err)
		}
	}
}

func (h *Handler) dispatch(ctx context.Context, s *session, cmd protocol.Command) error {
	if s.tokenUser != "" && cmd.Sender() != s.tokenUser {
		return errUserMismatch
	}

	if join, ok := cmd.(protocol.Join); ok {
		if s.handle != nil && s.handle.UserID != join.UserID && h.engine.Registry().IsCurrent(s.handle) {
			return errUserMismatch
		}
		hd, out, err := h.engine.Join(ctx, s.conn, join)
		if hd != nil {
			s.handle = hd
			s.log = s.base.With("userId", hd.UserID)
		}
		if err != nil {
			return err
		}
		s.log.Info("joined", "outcome", out.Kind, "chatRoomId", out.ChatRoomID)
		return nil
	}

	if s.handle == nil || !h.engine.Registry().IsCurrent(s.handle) {
		// leaving a room that already ended stays a no-op after the handle is gone
		if leave, ok := cmd.(protocol.Leave); ok {
			if _, live := h.engine.Room(leave.ChatRoomID); !live {
				return nil
			}
		}
		return realtime.ErrNotJoined
	}
	if cmd.Sender() != s.handle.UserID {
		return errUserMismatch
	}

	switch cmd := cmd.(type) {
	case protocol.SendMessage:
		s.log.Debug("send_message", "chatRoomId", cmd.ChatRoomID, "content", logger.Truncate(cmd.Content, contentLogMaxLen))
		return h.engine.RelayMessage(ctx, s.handle, cmd.ChatRoomID, cmd.Content)
	case protocol.Typing:
		return h.engine.RelayTyping(s.handle, cmd.ChatRoomID, cmd.IsTyping)
	case protocol.Translate:
		return h.engine.RequestTranslation(ctx, s.handle, cmd.Content, cmd.SourceLanguage, cmd.TargetLanguage)
	case protocol.Leave:
		if err := h.engine.Leave(ctx, s.handle, cmd.ChatRoomID); err != nil {
			return err
		}
		if !h.engine.Registry().IsCurrent(s.handle) {
			s.handle = nil
		}
		return nil
	}
	return protocol.ErrUnknownType
}

func (s *session) fail(err error) {
	if errors.Is(err, errConnClosed) {
		return
	}
	_ = s.conn.Send(errorEvent(err))
}
