package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prudhvinik1/kaucjaflow/internal/metrics"
	"github.com/prudhvinik1/kaucjaflow/internal/services"
)

const (
	// CookieName carries the session JWT for browser clients.
	CookieName = "kf_token"
	// DeviceIDHeader identifies the POS device making a request.
	DeviceIDHeader = "X-Device-ID"
)

type claimsKey struct{}

// ClaimsFromContext returns the session claims set by RequireSession.
func ClaimsFromContext(ctx context.Context) (*services.TokenClaims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*services.TokenClaims)
	return claims, ok
}

// tokenFromRequest reads the bearer token, falling back to the session cookie.
func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(CookieName); err == nil {
		return c.Value
	}
	return ""
}

// RequireSession rejects requests without a live session. Requests carrying
// a device id also refresh that device's presence.
func (h *Handler) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := tokenFromRequest(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED")
			return
		}

		claims, err := h.auth.Authenticate(r.Context(), token)
		if errors.Is(err, services.ErrInvalidToken) {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED")
			return
		}
		if err != nil {
			h.internalError(w, r, err)
			return
		}

		if deviceID := r.Header.Get(DeviceIDHeader); deviceID != "" {
			if err := h.presence.Touch(r.Context(), claims.ShopID, deviceID); err != nil {
				h.logger.WarnContext(r.Context(), "presence update failed", "device_id", deviceID, "error", err)
			}
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
	})
}

// Instrument records request counts and latency per route pattern.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.HTTPRequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}
