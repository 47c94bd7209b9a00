package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/suPer8Hu/lingochat/internal/chat"
	"github.com/suPer8Hu/lingochat/internal/protocol"
	"github.com/suPer8Hu/lingochat/internal/translate"
)

// RelayMessage persists content and delivers the same message event to every
// participant of roomID, sender included. Nothing is delivered when the
// message cannot be saved.
func (e *Engine) RelayMessage(ctx context.Context, h *Handle, roomID, content string) error {
	if !e.limiter.Allow(h.UserID, e.now()) {
		e.metrics.Message("rate_limited")
		return ErrRateLimited
	}

	e.mu.Lock()
	r, ok := e.rooms[roomID]
	if !ok || !r.has(h) {
		e.mu.Unlock()
		e.metrics.Message("rejected")
		return ErrNotParticipant
	}
	recipients := r.participants()
	e.mu.Unlock()

	msg := &chat.Message{
		ChatRoomID:       roomID,
		SenderID:         h.UserID,
		Content:          content,
		OriginalLanguage: h.Language,
		CreatedAt:        e.now(),
	}
	if err := e.log.CreateMessage(ctx, msg); err != nil {
		e.metrics.Message("persist_failed")
		slog.Error("persist message failed", "userId", h.UserID, "chatRoomId", roomID, "error", err)
		return fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}

	ev := protocol.NewChatMessage(msg.ID, roomID, h.UserID, msg.Content, msg.OriginalLanguage, msg.CreatedAt)
	for _, p := range recipients {
		if err := p.Send(ev); err != nil {
			slog.Debug("message undeliverable", "userId", p.UserID, "chatRoomId", roomID, "error", err)
		}
	}
	e.metrics.Message("delivered")

	e.publish(ctx, LifecycleEvent{
		Kind:       EventMessageCreated,
		ChatRoomID: roomID,
		UserIDs:    []string{h.UserID},
		MessageID:  msg.ID,
		At:         msg.CreatedAt,
	})
	return nil
}

// RelayTyping forwards a typing signal to the other participant only.
func (e *Engine) RelayTyping(h *Handle, roomID string, isTyping bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	r, ok := e.rooms[roomID]
	if !ok || !r.has(h) {
		return ErrNotParticipant
	}
	if other := r.other(h); other != nil {
		_ = other.Send(protocol.NewTyping(h.UserID, isTyping))
	}
	return nil
}

// RequestTranslation translates content for h alone. The call returns once the
// request is accepted; the result (or a translation error) arrives later on
// h's connection and is dropped if that connection is gone by then.
func (e *Engine) RequestTranslation(ctx context.Context, h *Handle, content, sourceLang, targetLang string) error {
	if !e.limiter.Allow(h.UserID, e.now()) {
		e.metrics.Translation("rate_limited")
		return ErrRateLimited
	}
	if sourceLang == "" {
		sourceLang = e.translator.DetectLanguage(content)
	}

	// closing the connection must not abort a running translation
	ctx = context.WithoutCancel(ctx)

	e.inflight.Add(1)
	go func() {
		defer e.inflight.Done()

		out, err := e.translator.Translate(ctx, content, sourceLang, targetLang)
		if err != nil {
			result := "failed"
			if errors.Is(err, translate.ErrTranslationUnavailable) {
				result = "unavailable"
			}
			e.metrics.Translation(result)
			_ = h.Send(protocol.NewError("translation_unavailable", "Translation is unavailable, showing the original text"))
			return
		}
		e.metrics.Translation("ok")
		if err := h.Send(protocol.NewTranslation(out, sourceLang, targetLang)); err != nil {
			slog.Debug("translation undeliverable", "userId", h.UserID, "error", err)
		}
	}()
	return nil
}
