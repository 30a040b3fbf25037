package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prudhvinik1/kaucjaflow/internal/metrics"
	"github.com/prudhvinik1/kaucjaflow/internal/services"
)

// ReadyCheck reports whether a backing store is reachable.
type ReadyCheck func(ctx context.Context) error

type Handler struct {
	auth         *services.AuthService
	events       *services.EventService
	shops        *services.ShopService
	presence     *services.PresenceService
	ready        map[string]ReadyCheck
	secureCookie bool
	logger       *slog.Logger
}

type Options struct {
	// SecureCookie sets the Secure flag on the session cookie.
	SecureCookie bool
	// Ready lists the checks run by /ready, keyed by name.
	Ready  map[string]ReadyCheck
	Logger *slog.Logger
}

func New(
	auth *services.AuthService,
	events *services.EventService,
	shops *services.ShopService,
	presence *services.PresenceService,
	opts Options,
) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		auth:         auth,
		events:       events,
		shops:        shops,
		presence:     presence,
		ready:        opts.Ready,
		secureCookie: opts.SecureCookie,
		logger:       logger,
	}
}

// Routes builds the HTTP surface of the server.
func (h *Handler) Routes() http.Handler {
	metrics.Register()

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(Instrument)

	router.Get("/health", h.Health)
	router.Get("/ready", h.Ready)
	router.Handle("/metrics", promhttp.Handler())

	router.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/magic/request", h.RequestMagicLink)
			r.Get("/magic/verify", h.VerifyMagicLink)
			r.Post("/magic/dev-login", h.DevLogin)
			r.Get("/whoami", h.WhoAmI)
			r.Post("/logout", h.Logout)
		})

		r.Group(func(r chi.Router) {
			r.Use(h.RequireSession)

			r.Post("/events", h.PushEvents)
			r.Get("/events", h.PullEvents)
			r.Get("/events/summary", h.Summary)
			r.Get("/events/by-day", h.ByDay)
			r.Get("/events/report", h.Report)

			r.Post("/shops/register", h.RegisterShop)
			r.Get("/shops/{id}", h.GetShop)

			r.Get("/presence", h.ListPresence)
		})
	})

	return router
}

func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.ErrorContext(r.Context(), "request failed",
		"method", r.Method, "path", r.URL.Path, "request_id", middleware.GetReqID(r.Context()), "error", err)
	writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR")
}
