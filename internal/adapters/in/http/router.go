// internal/adapters/in/http/router.go
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"chatbridge/internal/adapters/in/http/handler"
	"chatbridge/internal/adapters/in/http/middleware"
)

// Deps is the widget-facing handler set.
type Deps struct {
	Chat *handler.ChatHandler
	Cart *handler.CartHandler

	// BridgeWS serves the widget's live channel; optional.
	BridgeWS http.Handler

	// AllowedOrigins feeds the CORS layer. The widget runs inside storefront
	// pages, so cross-origin requests with credentials are the normal case.
	AllowedOrigins []string

	RateLimiter *middleware.RateLimiter

	Log zerolog.Logger
}

// NewRouter mounts all routes.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLog(deps.Log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Cookie"},
		ExposedHeaders:   []string{"Set-Cookie"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api", func(api chi.Router) {
		if deps.RateLimiter != nil {
			api.Use(deps.RateLimiter.Middleware)
		}
		if deps.Chat != nil {
			api.Post("/chat", deps.Chat.ServeHTTP)
		}
		if deps.Cart != nil {
			api.Post("/cart/add", deps.Cart.AddLine)
			api.Get("/cart", deps.Cart.GetCart)
			api.Post("/cart/create", deps.Cart.CreateCart)
		}
	})

	if deps.BridgeWS != nil {
		r.Get("/bridge/ws", deps.BridgeWS.ServeHTTP)
	}

	return r
}
