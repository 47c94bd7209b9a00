package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/lingochat/internal/auth"
	"github.com/suPer8Hu/lingochat/internal/common"
	"github.com/suPer8Hu/lingochat/internal/users"
)

const tokenTTL = 24 * time.Hour

type createUserReq struct {
	Name              string `json:"name" binding:"required,max=64"`
	PreferredLanguage string `json:"preferredLanguage" binding:"required,bcp47_language_tag"`
}

func (h *Handler) CreateUser(c *gin.Context) {
	var req createUserReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "name and a valid preferredLanguage required")
		return
	}

	user, err := h.Users.CreateUser(c.Request.Context(), req.Name, req.PreferredLanguage)
	if err != nil {
		if errors.Is(err, users.ErrInvalidUser) {
			common.Fail(c, http.StatusBadRequest, 10002, err.Error())
			return
		}
		common.Fail(c, http.StatusInternalServerError, 20001, "failed to create user")
		return
	}

	// sign token
	token, err := auth.SignJWT(user.ID, h.Cfg.JWTSecret, tokenTTL)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 20003, "failed to sign token")
		return
	}

	common.OK(c, gin.H{
		"id":                user.ID,
		"name":              user.Name,
		"preferredLanguage": user.PreferredLanguage,
		"token":             token,
	})
}

func (h *Handler) GetUserByID(c *gin.Context) {
	user, err := h.Users.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			common.Fail(c, http.StatusNotFound, 40401, "user not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 20001, "db error")
		return
	}

	common.OK(c, gin.H{
		"id":                user.ID,
		"name":              user.Name,
		"preferredLanguage": user.PreferredLanguage,
	})
}
