// Package v1 implements routing paths. Each services in own file.
package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"audio_transcription/entity"
	"audio_transcription/pkg/logger"
)

const traceName = "http-v1"

const requestIDHeader = "X-Request-Id"

// RouterOptions -.
type RouterOptions struct {
	// ModelLabel is reported by GET /.
	ModelLabel string
	// MaxUploadBytes caps the request body of POST /transcribe. Zero means no limit.
	MaxUploadBytes int64
	// Metrics is served on GET /metrics when set.
	Metrics http.Handler
}

// NewRouter -.
// Swagger spec:
// @title       Audio Transcription API
// @description Transcribes uploaded audio files with a Whisper model.
// @version     1.0
// @host        localhost:10000
// @BasePath    /
func NewRouter(handler *gin.Engine, l logger.Interface, tu entity.TranscriptionUsecase, opts RouterOptions) {
	// Options
	handler.Use(requestID())
	handler.Use(accessLog(l))
	handler.Use(gin.Recovery())

	// Swagger
	handler.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Prometheus metrics
	if opts.Metrics != nil {
		handler.GET("/metrics", gin.WrapH(opts.Metrics))
	}

	// Routers
	newTranscriptionRoutes(&handler.RouterGroup, tu, l, opts)
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func accessLog(l logger.Interface) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if c.Request.URL.Path == "/metrics" || c.Request.URL.Path == "/health" {
			return
		}
		l.Info("%s %s %d %s request_id=%s",
			c.Request.Method,
			c.Request.URL.Path,
			c.Writer.Status(),
			time.Since(start),
			c.GetString("request_id"),
		)
	}
}
