package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/prudhvinik1/kaucjaflow/internal/services"
)

type magicLinkRequest struct {
	Email    string `json:"email"`
	ShopName string `json:"shop_name"`
	Role     string `json:"role"`
}

type loginResponse struct {
	OK        bool      `json:"ok"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	UserID    string    `json:"user_id"`
	ShopID    string    `json:"shop_id"`
	Role      string    `json:"role"`
	Email     string    `json:"email"`
}

type sessionView struct {
	UserID string `json:"user_id"`
	ShopID string `json:"shop_id"`
	Role   string `json:"role"`
	Email  string `json:"email"`
}

func (h *Handler) RequestMagicLink(w http.ResponseWriter, r *http.Request) {
	var req magicLinkRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY")
		return
	}

	delivered, err := h.auth.RequestLink(r.Context(), services.MagicLinkRequest{
		Email:    req.Email,
		ShopName: req.ShopName,
		Role:     req.Role,
	})
	switch {
	case errors.Is(err, services.ErrInvalidEmail):
		writeError(w, http.StatusBadRequest, "INVALID_EMAIL")
	case errors.Is(err, services.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "RATE_LIMITED")
	case err != nil:
		h.internalError(w, r, err)
	default:
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "delivered": delivered})
	}
}

func (h *Handler) VerifyMagicLink(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, http.StatusBadRequest, "MISSING_TOKEN")
		return
	}

	resp, err := h.auth.Verify(r.Context(), token)
	switch {
	case errors.Is(err, services.ErrInvalidToken):
		writeError(w, http.StatusBadRequest, "INVALID_TOKEN")
	case errors.Is(err, services.ErrUserNotFound):
		writeError(w, http.StatusBadRequest, "USER_NOT_FOUND")
	case err != nil:
		h.internalError(w, r, err)
	default:
		h.writeLogin(w, resp)
	}
}

func (h *Handler) DevLogin(w http.ResponseWriter, r *http.Request) {
	var req magicLinkRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY")
		return
	}

	resp, err := h.auth.DevLogin(r.Context(), services.MagicLinkRequest{
		Email:    req.Email,
		ShopName: req.ShopName,
		Role:     req.Role,
	})
	switch {
	case errors.Is(err, services.ErrDevLoginDisabled):
		writeError(w, http.StatusNotFound, "NOT_FOUND")
	case errors.Is(err, services.ErrInvalidEmail):
		writeError(w, http.StatusBadRequest, "INVALID_EMAIL")
	case err != nil:
		h.internalError(w, r, err)
	default:
		h.writeLogin(w, resp)
	}
}

// WhoAmI never fails: an absent or revoked session reports logged_in=false.
func (h *Handler) WhoAmI(w http.ResponseWriter, r *http.Request) {
	token := tokenFromRequest(r)
	if token == "" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "logged_in": false})
		return
	}

	claims, err := h.auth.Authenticate(r.Context(), token)
	if err != nil {
		if !errors.Is(err, services.ErrInvalidToken) {
			h.logger.WarnContext(r.Context(), "whoami lookup failed", "error", err)
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "logged_in": false})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":        true,
		"logged_in": true,
		"session": sessionView{
			UserID: claims.UserID.String(),
			ShopID: claims.ShopID.String(),
			Role:   string(claims.Role),
			Email:  claims.Email,
		},
	})
}

// Logout deletes the server-side session and clears the cookie. It succeeds
// even when the caller was not logged in.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := tokenFromRequest(r); token != "" {
		err := h.auth.Logout(r.Context(), token)
		if err != nil && !errors.Is(err, services.ErrInvalidToken) {
			h.internalError(w, r, err)
			return
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) writeLogin(w http.ResponseWriter, resp *services.LoginResponse) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    resp.Token,
		Path:     "/",
		Expires:  resp.ExpiresAt,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, loginResponse{
		OK:        true,
		Token:     resp.Token,
		ExpiresAt: resp.ExpiresAt,
		UserID:    resp.User.ID.String(),
		ShopID:    resp.User.ShopID.String(),
		Role:      string(resp.User.Role),
		Email:     resp.User.Email,
	})
}
