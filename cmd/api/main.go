// cmd/api/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"chatbridge/internal/platform/config"
	"chatbridge/internal/platform/di"
)

// atomicHandler lets the serving handler be swapped once heavy init is
// done, so the process passes health checks immediately after start.
type atomicHandler struct {
	v atomic.Value // stores http.Handler
}

func newAtomicHandler(initial http.Handler) *atomicHandler {
	ah := &atomicHandler{}
	if initial == nil {
		initial = http.NotFoundHandler()
	}
	ah.v.Store(initial)
	return ah
}

func (h *atomicHandler) Store(next http.Handler) {
	if next != nil {
		h.v.Store(next)
	}
}

func (h *atomicHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.v.Load().(http.Handler).ServeHTTP(w, r)
}

func main() {
	log := zerolog.New(os.Stdout).With().Timestamp().Logger()
	cfg := config.Load()

	// Listen immediately with a healthz-only handler; the full router is
	// swapped in once DI completes.
	healthMux := http.NewServeMux()
	healthMux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	switcher := newAtomicHandler(healthMux)

	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     switcher,
		ReadTimeout: 15 * time.Second,
		// Write timeout stays generous: /bridge/ws hijacks the connection
		// and long cart round-trips ride this server.
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var containerHolder atomic.Value // stores *di.Container

	idleConnsClosed := make(chan struct{})
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		sig := <-c
		log.Info().Str("signal", sig.String()).Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("server shutdown error")
		}

		if v := containerHolder.Load(); v != nil {
			v.(*di.Container).Close()
		}
		close(idleConnsClosed)
	}()

	go func() {
		log.Info().Str("port", cfg.Port).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	go func() {
		initCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		container, err := di.Build(initCtx, cfg, log)
		if err != nil {
			log.Error().Err(err).Msg("di init failed, serving /healthz only")
			return
		}
		containerHolder.Store(container)
		switcher.Store(container.Router)
		log.Info().Msg("routes registered")
	}()

	<-idleConnsClosed
	log.Info().Msg("server stopped")
}
