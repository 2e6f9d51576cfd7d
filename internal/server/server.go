package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"audio_transcription/config"
	v1 "audio_transcription/internal/controller/http/v1"
	"audio_transcription/internal/model"
	"audio_transcription/internal/telemetry/metric"
	ttrace "audio_transcription/internal/telemetry/trace"
	"audio_transcription/internal/transcription"
	"audio_transcription/pkg/httpserver"
	"audio_transcription/pkg/logger"
	"audio_transcription/pkg/staging"
)

var name = "audio-transcription"

// NewServer ...
func NewServer(cfg *config.Config) *Server {
	srv := &Server{}

	srv.InitGlobalProvider(name, cfg.App.Version, cfg.OTEL.Endpoint)

	return srv
}

type Server struct {
	traceProviderCloseFn []ttrace.CloseFunc
}

// Run loads the model, then serves HTTP until SIGINT/SIGTERM or a server error.
func (s *Server) Run(ctx context.Context, cfg *config.Config) error {
	l := logger.New(cfg.Log.Level)
	l.Info("Starting %s %s...", cfg.App.Name, cfg.App.Version)

	if removed, err := staging.Sweep(cfg.Storage.TempDir, cfg.Storage.SweepAfter); err != nil {
		l.Warn("temp sweep failed: %v", err)
	} else if removed > 0 {
		l.Info("removed %d orphaned temp files", removed)
	}

	provider, err := model.NewProvider(cfg, l)
	if err != nil {
		l.Fatal(fmt.Errorf("app - Run - model.NewProvider: %w", err))
	}

	handle := model.NewHandle(provider)
	l.Info("loading model %s...", handle.Name())
	if err := handle.Load(ctx); err != nil {
		l.Fatal(fmt.Errorf("app - Run - model.Load: %w", err))
	}
	l.Info("model loaded")

	metrics := metric.New()
	tu := transcription.NewTranscriptionUsecase(handle, transcription.Options{
		TempDir:       cfg.Storage.TempDir,
		DefaultSuffix: cfg.Storage.DefaultSuffix,
		Language:      cfg.Model.Language,
		FP16:          cfg.Model.FP16,
		MaxConcurrent: cfg.Model.MaxConcurrent,
	}, l, metrics)

	httpServer := httpserver.New(NewHandler(cfg, l, tu, metrics),
		httpserver.Port(cfg.Server.Port),
		httpserver.ReadHeaderTimeout(cfg.Server.ReadHeaderTimeout),
		httpserver.ReadTimeout(cfg.Server.ReadTimeout),
	)

	l.Info("server serving on port %s", cfg.Server.Port)

	// Waiting signal
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	select {
	case s := <-interrupt:
		l.Info("app - Run - signal: " + s.String())
	case err = <-httpServer.Notify():
		l.Error(fmt.Errorf("app - Run - httpServer.Notify: %w", err))
	}

	log.Printf("server stopped")

	ctxShutDown, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown
	if err := httpServer.Shutdown(); err != nil {
		l.Error(fmt.Errorf("app - Run - httpServer.Shutdown: %w", err))
	}

	for _, closeFn := range s.traceProviderCloseFn {
		if err := closeFn(ctxShutDown); err != nil {
			log.Error().Err(err).Msgf("Unable to close trace provider")
		}
	}

	log.Printf("server exited properly")

	return err
}

// NewHandler builds the gin engine behind the CORS policy.
func NewHandler(cfg *config.Config, l logger.Interface, tu *transcription.TranscriptionUsecase, metrics *metric.Metrics) http.Handler {
	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	handler := gin.New()
	v1.NewRouter(handler, l, tu, v1.RouterOptions{
		ModelLabel:     cfg.Model.ModelLabel(),
		MaxUploadBytes: cfg.Server.MaxUploadMB << 20,
		Metrics:        metrics.Handler(),
	})

	return newCORS().Handler(handler)
}

// newCORS allows any origin, method and header, with credentials. Origins
// are echoed back because browsers reject "*" on credentialed requests.
func newCORS() *cors.Cors {
	return cors.New(cors.Options{
		AllowOriginFunc:    func(string) bool { return true },
		AllowedMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowedHeaders:     []string{"*"},
		MaxAge:             60, // 1 minutes
		AllowCredentials:   true,
		OptionsPassthrough: false,
		Debug:              false,
	})
}
