// Package server is the daemon's HTTP control surface over the device
// registry: state snapshots, zone and slot mutations, trigger control, and
// the raw-command escape hatch.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/danmuck/audacd/internal/config"
	"github.com/danmuck/audacd/internal/observability"
	"github.com/danmuck/audacd/internal/registry"
)

var startedAt = time.Now()

type Server struct {
	registry *registry.Registry
	logger   zerolog.Logger
	engine   *gin.Engine
	http     *http.Server
}

func New(cfg config.Config, reg *registry.Registry, logger zerolog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	// Middleware: keep it lean
	engine.Use(gin.Recovery())
	engine.Use(observability.RequestLogger(logger))
	engine.Use(observability.RequestMetrics())
	if len(cfg.CorsOrigins) > 0 {
		engine.Use(cors.New(cors.Config{
			AllowOrigins: cfg.CorsOrigins,
			AllowMethods: []string{"GET", "POST", "PUT"},
			AllowHeaders: []string{"Origin", "Content-Type"},
			MaxAge:       12 * time.Hour,
		}))
	}

	s := &Server{
		registry: reg,
		logger:   logger,
		engine:   engine,
		http:     &http.Server{Addr: cfg.ListenAddr, Handler: engine},
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(startedAt).String(),
			"service": "audacd",
		})
	})
	s.engine.GET("/ready", s.handleReady)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.engine.GET("/devices", s.handleListDevices)
	s.engine.POST("/probe", s.handleProbe)

	dev := s.engine.Group("/devices/:device")
	dev.GET("/state", s.handleState)
	dev.POST("/refresh", s.handleRefresh)
	dev.PUT("/zones/:zone/volume", s.handleZoneVolume)
	dev.PUT("/zones/:zone/source", s.handleZoneSource)
	dev.PUT("/zones/:zone/mute", s.handleZoneMute)
	dev.PUT("/slots/:slot/gain", s.handleSlotGain)
	dev.PUT("/slots/:slot/pairing", s.handleSlotPairing)
	dev.GET("/slots/:slot/trigger", s.handleGetTrigger)
	dev.PUT("/slots/:slot/trigger", s.handleSetTrigger)
	dev.POST("/slots/:slot/trigger", s.handleExecuteTrigger)
	dev.POST("/raw", s.handleRaw)
}

// Handler exposes the router for in-process tests.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves until ctx is cancelled, then drains with a short grace period.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.http.Addr).Msg("http server listening")
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.http.Shutdown(shutdownCtx)
}
