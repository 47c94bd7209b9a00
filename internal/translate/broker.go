package translate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/abadojack/whatlanggo"
	"github.com/suPer8Hu/lingochat/internal/ai"
)

// ErrTranslationUnavailable is returned for every provider failure. Callers
// treat it as recoverable.
var ErrTranslationUnavailable = errors.New("translation unavailable")

const systemPrompt = "You are a translation engine. Translate the user's text from %s to %s. " +
	"Reply with the translation only, without quotes, notes or explanations."

// Broker wraps a chat-completion provider as a translation function.
type Broker struct {
	provider    ai.Provider
	defaultLang string
}

func NewBroker(provider ai.Provider, defaultLang string) *Broker {
	if defaultLang == "" {
		defaultLang = "en"
	}
	return &Broker{provider: provider, defaultLang: defaultLang}
}

// Translate always calls the provider, also when source equals target.
func (b *Broker) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if b.provider == nil {
		return "", fmt.Errorf("%w: no provider configured", ErrTranslationUnavailable)
	}

	out, err := b.provider.Chat(ctx, []ai.Message{
		{Role: "system", Content: fmt.Sprintf(systemPrompt, sourceLang, targetLang)},
		{Role: "user", Content: text},
	})
	if err != nil {
		slog.Warn("translation provider failed", "source", sourceLang, "target", targetLang, "error", err)
		return "", fmt.Errorf("%w: %v", ErrTranslationUnavailable, err)
	}

	out = strings.TrimSpace(out)
	if out == "" {
		return "", fmt.Errorf("%w: empty answer", ErrTranslationUnavailable)
	}
	return out, nil
}

// DetectLanguage returns an ISO 639-1 code, or the default language when the
// detection is not reliable.
func (b *Broker) DetectLanguage(text string) string {
	info := whatlanggo.Detect(text)
	code := info.Lang.Iso6391()
	if code == "" || !info.IsReliable() {
		return b.defaultLang
	}
	return code
}
