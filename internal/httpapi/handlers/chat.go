package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/lingochat/internal/chat"
	"github.com/suPer8Hu/lingochat/internal/common"
	"github.com/suPer8Hu/lingochat/internal/httpapi/middleware"
	"github.com/suPer8Hu/lingochat/internal/translate"
	"gorm.io/gorm"
)

func userIDFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(middleware.UserIDKey)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}

func (h *Handler) Ping(c *gin.Context) {
	common.OK(c, gin.H{"pong": true})
}

func (h *Handler) ListRoomMessages(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	room, msgs, err := h.ChatSvc.RoomTranscript(c.Request.Context(), uid, c.Param("room_id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.Fail(c, http.StatusNotFound, 40004, "chat room not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50002, "failed to list messages")
		return
	}

	common.OK(c, gin.H{
		"chatRoom": room,
		"messages": msgs,
	})
}

type translateReq struct {
	Content        string `json:"content" binding:"required,max=4000"`
	SourceLanguage string `json:"sourceLanguage" binding:"omitempty,bcp47_language_tag"`
	TargetLanguage string `json:"targetLanguage" binding:"required,bcp47_language_tag"`
	Save           bool   `json:"save"`
}

// Translate runs a one-off translation and optionally saves it to the caller's
// dictionary.
func (h *Handler) Translate(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	var req translateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "content and a valid targetLanguage required")
		return
	}
	src := req.SourceLanguage
	if src == "" {
		src = h.Translator.DetectLanguage(req.Content)
	}

	out, err := h.Translator.Translate(c.Request.Context(), req.Content, src, req.TargetLanguage)
	if err != nil {
		if errors.Is(err, translate.ErrTranslationUnavailable) {
			common.Fail(c, http.StatusServiceUnavailable, 50301, "translation unavailable")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50003, "translation failed")
		return
	}

	resp := gin.H{
		"translatedContent": out,
		"originalLanguage":  src,
		"targetLanguage":    req.TargetLanguage,
	}
	if req.Save {
		entry, err := h.ChatSvc.SaveDictionaryEntry(c.Request.Context(), uid, chat.DictionaryEntry{
			SourceText:     req.Content,
			TranslatedText: out,
			SourceLanguage: src,
			TargetLanguage: req.TargetLanguage,
		})
		if err != nil {
			slog.Warn("save dictionary entry failed", "userId", uid, "error", err)
		} else {
			resp["dictionaryEntryId"] = entry.ID
		}
	}
	common.OK(c, resp)
}

type dictionaryReq struct {
	SourceText     string `json:"sourceText"`
	TranslatedText string `json:"translatedText"`
	SourceLanguage string `json:"sourceLanguage"`
	TargetLanguage string `json:"targetLanguage"`
}

func (h *Handler) SaveDictionaryEntry(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	var req dictionaryReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	entry, err := h.ChatSvc.SaveDictionaryEntry(c.Request.Context(), uid, chat.DictionaryEntry{
		SourceText:     req.SourceText,
		TranslatedText: req.TranslatedText,
		SourceLanguage: req.SourceLanguage,
		TargetLanguage: req.TargetLanguage,
	})
	if err != nil {
		if errors.Is(err, chat.ErrInvalidEntry) {
			common.Fail(c, http.StatusBadRequest, 10002, err.Error())
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50004, "failed to save entry")
		return
	}
	common.OK(c, entry)
}

func (h *Handler) ListDictionary(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	entries, err := h.ChatSvc.ListDictionary(c.Request.Context(), uid, limit)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50005, "failed to list dictionary")
		return
	}
	common.OK(c, gin.H{"entries": entries})
}
