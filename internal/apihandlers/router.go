package apihandlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"andretools/internal/app"
)

// NewRouter wires every route onto a fresh gin engine.
func NewRouter(a *app.App) *gin.Engine {
	router := gin.New()
	router.Use(requestLogger(), gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.WithField("path", c.Request.URL.Path).Errorf("panic in handler: %v", recovered)
		Internal(c, "internal server error")
	}))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     a.Config.Server.AllowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	h := NewAPIHandler(a)

	api := router.Group("/api")
	{
		api.GET("/health", h.HealthHandler)

		transcribe := api.Group("/transcribe")
		{
			transcribe.POST("", h.SubmitTranscriptionHandler)
			transcribe.GET("/status", h.TranscriptionStatusHandler)
			transcribe.GET("/:id", h.GetTranscriptionHandler)
		}

		api.POST("/convert", h.ConvertHandler)
		api.GET("/convert/formats", h.ConvertFormatsHandler)

		drawings := api.Group("/excalidraw")
		{
			drawings.POST("/upload", h.UploadDrawingHandler)
			drawings.GET("/recent", h.RecentDrawingsHandler)
			drawings.POST("/open", h.OpenDrawingHandler)
		}
	}

	router.Static(DownloadsPrefix, a.Config.Storage.DownloadsDir)

	router.NoRoute(func(c *gin.Context) {
		NotFound(c, fmt.Sprintf("route %s %s does not exist", c.Request.Method, c.Request.URL.Path))
	})
	return router
}

// requestLogger is a logrus access log in place of gin's default writer.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := log.WithFields(log.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
			"client":  c.ClientIP(),
		})
		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			entry.Error("request failed")
		case status >= http.StatusBadRequest:
			entry.Warn("request rejected")
		default:
			entry.Debug("request served")
		}
	}
}
