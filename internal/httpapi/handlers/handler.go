package handlers

import (
	"context"

	"github.com/suPer8Hu/lingochat/internal/chat"
	"github.com/suPer8Hu/lingochat/internal/config"
	"github.com/suPer8Hu/lingochat/internal/models"
)

type UserStore interface {
	CreateUser(ctx context.Context, name, preferredLanguage string) (*models.User, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
}

type Translator interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
	DetectLanguage(text string) string
}

type Handler struct {
	Cfg        config.Config
	Users      UserStore
	ChatSvc    *chat.Service
	Translator Translator
}

func NewHandler(cfg config.Config, users UserStore, chatSvc *chat.Service, tr Translator) *Handler {
	return &Handler{Cfg: cfg, Users: users, ChatSvc: chatSvc, Translator: tr}
}
