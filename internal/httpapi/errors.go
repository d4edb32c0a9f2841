package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"internwatch-engine/internal/runlock"
	"internwatch-engine/internal/store"
)

// APIError is the envelope for request-level failures (bad input, auth,
// store errors). Pipeline runs answer with runErrorBody instead so callers
// of the function endpoints always see an "ok" field.
type APIError struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id,omitempty"`
	} `json:"error"`
}

type runErrorBody struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	var e APIError
	e.Error.Code = code
	e.Error.Message = message
	e.Error.RequestID = RequestIDFrom(r.Context())
	WriteJSON(w, status, e)
}

// writeStoreError maps store.ErrNotFound to 404 and anything else to a
// logged 500. msg is the client-facing text for the 500 case.
func writeStoreError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	if errors.Is(err, store.ErrNotFound) {
		WriteError(w, r, http.StatusNotFound, "not_found", "opening signal not found")
		return
	}
	zerolog.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg(msg)
	WriteError(w, r, http.StatusInternalServerError, "store_error", msg)
}

// writeRunError answers a run that never produced a report: 409 when another
// run holds the lock, 500 otherwise.
func writeRunError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, runlock.ErrLocked) {
		WriteJSON(w, http.StatusConflict, runErrorBody{Error: runlock.ErrLocked.Error()})
		return
	}
	zerolog.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("function run")
	WriteJSON(w, http.StatusInternalServerError, runErrorBody{Error: err.Error()})
}
