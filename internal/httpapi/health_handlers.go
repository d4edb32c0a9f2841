package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"internwatch-engine/internal/store"
)

type HealthHandler struct {
	Store store.Store
}

func (h HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()
	if err := h.Store.Ping(ctx); err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("health: store ping")
		WriteJSON(w, http.StatusServiceUnavailable, map[string]any{"ok": false, "store": err.Error()})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"ok": true})
}
