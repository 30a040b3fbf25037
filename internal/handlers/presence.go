package handlers

import "net/http"

func (h *Handler) ListPresence(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromContext(r.Context())

	devices, err := h.presence.List(r.Context(), claims.ShopID)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "devices": devices})
}
