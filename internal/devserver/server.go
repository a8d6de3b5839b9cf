// Package devserver is a local implementation of the DecentraTweet REST API
// backed by a storage.Storage. Signatures are not checked.
package devserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	log "github.com/sirupsen/logrus"

	"github.com/MosinFAM/decentratweet/internal/logging"
	"github.com/MosinFAM/decentratweet/internal/storage"
)

const (
	defaultLimit = 10
	maxLimit     = 100
)

type Options struct {
	Logger *log.Entry
	// Registry receives the HTTP metrics and is served on /metrics. A fresh
	// registry is created when nil.
	Registry       *prometheus.Registry
	AllowedOrigins []string
}

type Server struct {
	store    storage.Storage
	engine   *gin.Engine
	handler  http.Handler
	log      *log.Entry
	metrics  *Metrics
	validate *validator.Validate
	upgrader websocket.Upgrader

	// streams ends every open comment stream on Close.
	streams context.Context
	stop    context.CancelFunc
}

func New(store storage.Storage, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = logging.For("devserver")
	}
	if opts.Registry == nil {
		opts.Registry = prometheus.NewRegistry()
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}

	gin.SetMode(gin.ReleaseMode)
	streams, stop := context.WithCancel(context.Background())
	s := &Server{
		store:    store,
		engine:   gin.New(),
		log:      opts.Logger,
		metrics:  NewMetrics(opts.Registry),
		validate: validator.New(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		streams: streams,
		stop:    stop,
	}

	s.engine.Use(gin.Recovery(), s.requestLogger(), s.metrics.middleware())
	s.routes(opts.Registry)

	c := cors.New(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	})
	s.handler = c.Handler(s.engine)
	return s
}

func (s *Server) routes(reg *prometheus.Registry) {
	r := s.engine
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	r.GET("/posts", s.listPosts)
	r.POST("/posts", s.createPost)
	r.GET("/posts/:id", s.getPost)
	r.DELETE("/posts/:id", s.deletePost)
	r.POST("/posts/:id/like", s.likePost)
	r.GET("/posts/:id/comments", s.listComments)
	r.POST("/posts/:id/comments", s.createComment)
	r.GET("/posts/:id/comments/stream", s.streamComments)
	r.POST("/comments/:id/like", s.likeComment)

	r.POST("/auth/verify", s.verify)
	r.GET("/users/:wallet", s.getUser)
	r.POST("/users", s.saveUser)
}

// Handler returns the router wrapped in CORS handling.
func (s *Server) Handler() http.Handler { return s.handler }

// Close ends the open comment streams.
func (s *Server) Close() { s.stop() }

// Run serves on addr until ctx ends, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("dev server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.Close()
		return err
	case <-ctx.Done():
	}

	s.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.log.Info("dev server stopped")
	return nil
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.WithFields(log.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"took":       time.Since(start),
			"request_id": c.GetHeader("X-Request-ID"),
		}).Debug("request")
	}
}
