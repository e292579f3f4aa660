// Package dummy serves a local target with known latency and failure
// shapes, for trying out load tests without a real backend.
package dummy

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
)

type ServerConfig struct {
	Port int
}

func jitter(minMs, spanMs int) time.Duration {
	return time.Duration(rand.IntN(spanMs)+minMs) * time.Millisecond
}

func reply(w http.ResponseWriter, status int, body string) {
	w.WriteHeader(status)
	w.Write([]byte(body))
}

// Handler returns the dummy endpoints.
func Handler() http.Handler {
	mux := http.NewServeMux()

	// 10-50ms
	mux.HandleFunc("/fast", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(jitter(10, 40))
		reply(w, http.StatusOK, "Fast response")
	})

	// 100-300ms
	mux.HandleFunc("/medium", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(jitter(100, 200))
		reply(w, http.StatusOK, "Medium response")
	})

	// 1-2s, long enough to hit short timeouts
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(jitter(1000, 1000))
		reply(w, http.StatusOK, "Slow response")
	})

	// Mostly 20ms with a 5% chance of 2s: fine p50, terrible p99.
	mux.HandleFunc("/spike", func(w http.ResponseWriter, r *http.Request) {
		if rand.Float32() < 0.05 {
			time.Sleep(2 * time.Second)
		} else {
			time.Sleep(20 * time.Millisecond)
		}
		reply(w, http.StatusOK, "Spikey response")
	})

	mux.HandleFunc("/error", func(w http.ResponseWriter, r *http.Request) {
		switch rnd := rand.Float32(); {
		case rnd < 0.2:
			reply(w, http.StatusInternalServerError, "500 Internal Server Error")
		case rnd < 0.4:
			reply(w, http.StatusTooManyRequests, "429 Too Many Requests")
		default:
			reply(w, http.StatusOK, "OK")
		}
	})

	mux.HandleFunc("/status/{code}", func(w http.ResponseWriter, r *http.Request) {
		code, err := strconv.Atoi(r.PathValue("code"))
		if err != nil || code < 100 || code > 599 {
			reply(w, http.StatusBadRequest, "bad status code")
			return
		}
		reply(w, code, http.StatusText(code))
	})

	return mux
}

// Serve listens on cfg.Port until ctx is done, then shuts down
// gracefully.
func Serve(ctx context.Context, cfg ServerConfig, log *zap.Logger) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		return fmt.Errorf("dummy server: %w", err)
	}

	server := &http.Server{
		Handler:           Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Info("dummy server listening",
		zap.String("addr", ln.Addr().String()),
		zap.Strings("endpoints", []string{"/fast", "/medium", "/slow", "/spike", "/error", "/status/{code}"}),
	)

	errc := make(chan error, 1)
	go func() { errc <- server.Serve(ln) }()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	log.Info("dummy server shutting down")
	return server.Shutdown(shutdownCtx)
}
