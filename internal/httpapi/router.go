package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/lingochat/internal/common"
	"github.com/suPer8Hu/lingochat/internal/config"
	"github.com/suPer8Hu/lingochat/internal/httpapi/handlers"
	"github.com/suPer8Hu/lingochat/internal/httpapi/middleware"
)

// NewRouter mounts the REST API, the websocket endpoint and, when metrics is
// non-nil, the Prometheus scrape endpoint.
func NewRouter(cfg config.Config, h *handlers.Handler, ws http.Handler, metrics http.Handler) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Logger())
	r.Use(middleware.Recovery())

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	r.Use(middleware.RequestID())

	r.GET("/ping", h.Ping)
	r.GET("/ws", gin.WrapH(ws))
	if metrics != nil {
		r.GET("/metrics", gin.WrapH(metrics))
	}

	// anonymous users
	r.POST("/users", h.CreateUser)
	r.GET("/users/:id", h.GetUserByID)

	authGroup := r.Group("/")
	authGroup.Use(middleware.AuthRequired(cfg.JWTSecret))
	authGroup.GET("/chat-rooms/:room_id/messages", h.ListRoomMessages)
	authGroup.POST("/translate", h.Translate)
	authGroup.POST("/dictionary", h.SaveDictionaryEntry)
	authGroup.GET("/dictionary", h.ListDictionary)
	return r
}
