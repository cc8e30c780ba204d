package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cozy-creator/brandgen/internal/config"
	"github.com/cozy-creator/brandgen/internal/observability"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/logger"
	"github.com/gin-contrib/static"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

type Server struct {
	listenAddr string
	ginEngine  *gin.Engine
	inner      *http.Server
}

func NewServer(config *config.Config) (*Server, error) {
	gin.SetMode(getGinMode(config.Environment))
	r := gin.New()

	r.Use(otelgin.Middleware(observability.ServiceName))

	// Setup logger middleware
	r.Use(logger.SetLogger(
		logger.WithUTC(true),
		logger.WithSkipPath([]string{"/health"}),
	))

	// Setup CORS middleware
	r.Use(cors.New(
		cors.Config{
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowOrigins:     []string{"*"},
			AllowHeaders:     []string{"*"},
			ExposeHeaders:    []string{"Retry-After", "X-RateLimit-Remaining"},
			AllowCredentials: true,
			MaxAge:           300,
		},
	))

	// Serve the web UI, if one is configured
	if config.PublicDir != "" {
		r.Use(static.Serve("/", static.LocalFile(config.PublicDir, true)))
	}
	r.Use(gin.Recovery())

	addr := fmt.Sprintf("%s:%d", config.Host, config.Port)
	return &Server{
		listenAddr: addr,
		ginEngine:  r,
		inner: &http.Server{
			Handler:           r,
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

func (s *Server) Addr() string {
	return s.listenAddr
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.ginEngine
}

// Start blocks until the server stops. A graceful Stop is not an error.
func (s *Server) Start() error {
	if err := s.inner.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return s.inner.Shutdown(ctx)
}

func getGinMode(env string) string {
	switch env {
	case "dev", "development":
		return gin.DebugMode
	case "test":
		return gin.TestMode
	default:
		return gin.ReleaseMode
	}
}
