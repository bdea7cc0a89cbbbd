package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/yoointerview/internal/api/handlers"
	"github.com/yoockh/yoointerview/internal/api/middleware"
)

type Deps struct {
	Interview    *handlers.InterviewHandler
	Conversation *handlers.ConversationHandler
	WS           *handlers.WSHandler

	Logger      *logrus.Logger
	CORSOrigins []string
}

// NewRouter builds the engine with logging, CORS, metrics and API routes.
func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if d.Logger != nil {
		r.Use(middleware.RequestLogger(d.Logger))
	}

	corsCfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Content-Type", "Content-Length", "Accept", "Origin", "X-Request-Id"},
		ExposeHeaders: []string{"Content-Length", "X-Request-Id"},
		MaxAge:        12 * time.Hour,
	}
	if len(d.CORSOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = d.CORSOrigins
	}
	r.Use(cors.New(corsCfg))

	RegisterRoutes(r, d)
	return r
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if d.Interview != nil {
		r.POST("/interview/start", d.Interview.Start)
		r.GET("/interview/:session_id", d.Interview.Get)
		r.POST("/interview/:session_id/turn", d.Interview.SubmitTurn)
		r.GET("/interview/:session_id/next", d.Interview.Next)
	}
	if d.Conversation != nil {
		r.GET("/interview/:session_id/transcript", d.Conversation.Transcript)
	}
	if d.WS != nil {
		r.GET("/ws/dictation/:session_id", d.WS.Dictation)
	}
}
