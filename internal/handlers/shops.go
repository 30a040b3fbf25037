package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prudhvinik1/kaucjaflow/internal/services"
)

type registerShopRequest struct {
	Name string `json:"name"`
	NIP  string `json:"nip"`
}

func (h *Handler) RegisterShop(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromContext(r.Context())

	var req registerShopRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY")
		return
	}

	shop, err := h.shops.Register(r.Context(), claims, req.Name, req.NIP)
	switch {
	case errors.Is(err, services.ErrNameRequired):
		writeError(w, http.StatusBadRequest, "NAME_REQUIRED")
	case errors.Is(err, services.ErrNameTaken):
		writeError(w, http.StatusConflict, "NAME_TAKEN")
	case errors.Is(err, services.ErrShopNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND")
	case err != nil:
		h.internalError(w, r, err)
	default:
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "shop": shop})
	}
}

func (h *Handler) GetShop(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromContext(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID")
		return
	}

	shop, err := h.shops.Get(r.Context(), claims, id)
	switch {
	case errors.Is(err, services.ErrForbidden):
		writeError(w, http.StatusForbidden, "FORBIDDEN")
	case errors.Is(err, services.ErrShopNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND")
	case err != nil:
		h.internalError(w, r, err)
	default:
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "shop": shop})
	}
}
