package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Brownie44l1/sign-api/internal/config"
	"github.com/Brownie44l1/sign-api/internal/handlers"
	"github.com/gin-contrib/cors"
	ginlogger "github.com/gin-contrib/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const requestIDHeader = "X-Request-ID"

type Server struct {
	engine *gin.Engine
	inner  *http.Server
	log    *zap.Logger
}

func NewServer(cfg *config.Config, handler *handlers.Handler, log *zap.Logger) *Server {
	gin.SetMode(getGinMode(cfg.Environment))
	r := gin.New()

	r.Use(ginlogger.SetLogger(
		ginlogger.WithUTC(true),
		ginlogger.WithSkipPath([]string{"/health"}),
	))
	r.Use(gin.Recovery())
	r.Use(requestID())

	r.Use(allowRequestedHeaders(cfg.AllowedOrigins))
	r.Use(cors.New(
		cors.Config{
			AllowOrigins:     cfg.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
			ExposeHeaders:    []string{requestIDHeader},
			AllowCredentials: true,
			MaxAge:           10 * time.Minute,
		},
	))

	s := &Server{
		engine: r,
		inner: &http.Server{
			Addr:    cfg.Addr(),
			Handler: r,
		},
		log: log,
	}
	s.setupRoutes(handler)

	return s
}

func (s *Server) setupRoutes(handler *handlers.Handler) {
	s.engine.GET("/", handler.Root)
	s.engine.GET("/health", handler.Health)
	s.engine.POST("/predict", handler.Predict)
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start blocks until the server stops. A graceful Stop is not an error.
func (s *Server) Start() error {
	s.log.Info("server listening", zap.String("addr", s.inner.Addr))
	if err := s.inner.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	s.log.Info("stopping server")
	return s.inner.Shutdown(ctx)
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(handlers.RequestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// allowRequestedHeaders lets an allowed origin send any header: a preflight
// gets back the headers it asked for. cors itself only knows a fixed list.
func allowRequestedHeaders(origins []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(origins))
	for _, origin := range origins {
		allowed[strings.ToLower(origin)] = true
	}

	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions && allowed[strings.ToLower(c.GetHeader("Origin"))] {
			if requested := c.GetHeader("Access-Control-Request-Headers"); requested != "" {
				c.Header("Access-Control-Allow-Headers", requested)
			}
		}
		c.Next()
	}
}

func getGinMode(env string) string {
	switch env {
	case config.EnvDev:
		return gin.DebugMode
	case config.EnvTest:
		return gin.TestMode
	default:
		return gin.ReleaseMode
	}
}
