// Package server exposes load tests over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"wavebench/internal/metrics"
)

type Config struct {
	Listen string

	// DefaultTarget is used when a request names no target. Empty means
	// the server's own /api endpoint.
	DefaultTarget string

	// MaxRequests caps total_requests per load test; 0 disables the cap.
	MaxRequests int

	// MaxConcurrentRuns bounds load tests running at once; further
	// requests get 429.
	MaxConcurrentRuns int64

	// CORS allows browser clients from any origin.
	CORS  bool
	Gzip  bool
	Pprof bool
}

type Server struct {
	cfg     Config
	log     *zap.Logger
	reg     *prometheus.Registry
	metrics *metrics.Collector
	runs    *semaphore.Weighted
	engine  *gin.Engine
}

// New builds the gin engine and registers the wavebench collectors, plus
// the Go and process collectors, on a fresh registry.
func New(cfg Config, log *zap.Logger) *Server {
	if cfg.MaxConcurrentRuns <= 0 {
		cfg.MaxConcurrentRuns = 1
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	s := &Server{
		cfg:     cfg,
		log:     log,
		reg:     reg,
		metrics: metrics.New(reg),
		runs:    semaphore.NewWeighted(cfg.MaxConcurrentRuns),
	}
	s.engine = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	router := gin.New()
	router.Use(requestID(), accessLog(s.log), gin.Recovery())

	if s.cfg.CORS {
		router.Use(cors.New(cors.Config{
			AllowAllOrigins: true,
			AllowMethods:    []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders:    []string{"Origin", "Content-Length", "Content-Type", "Authorization", headerRequestID},
			ExposeHeaders:   []string{headerRequestID},
			MaxAge:          12 * time.Hour,
		}))
	}

	if s.cfg.Gzip {
		router.Use(gzip.Gzip(gzip.DefaultCompression))
	}
	if s.cfg.Pprof {
		pprof.Register(router)
	}

	api := router.Group("/api")
	api.GET("", s.handleWelcome)
	for _, path := range []string{"/loadtest", "/load-test"} {
		api.GET(path, s.handleLoadTest)
		api.POST(path, s.handleLoadTest)
	}

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{Registry: s.reg})))

	return router
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe serves until ctx is done and then shuts down gracefully.
// Load tests still running at shutdown see their context canceled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Listen, err)
	}
	if s.cfg.DefaultTarget == "" {
		s.cfg.DefaultTarget = selfTarget(ln.Addr())
	}

	httpServer := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	s.log.Info("server listening",
		zap.String("addr", ln.Addr().String()),
		zap.String("default_target", s.cfg.DefaultTarget),
		zap.Int("max_requests", s.cfg.MaxRequests),
	)

	errc := make(chan error, 1)
	go func() { errc <- httpServer.Serve(ln) }()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.log.Info("server shutting down")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func selfTarget(addr net.Addr) string {
	port := 80
	if tcp, ok := addr.(*net.TCPAddr); ok {
		port = tcp.Port
	}
	return fmt.Sprintf("http://127.0.0.1:%d/api", port)
}
