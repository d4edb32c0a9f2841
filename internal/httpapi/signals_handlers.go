package httpapi

import (
	"net/http"
	"strings"

	"internwatch-engine/internal/domain"
	"internwatch-engine/internal/store"
)

type SignalsHandler struct {
	Store store.Store
}

// List returns active opening signals, newest observation first.
func (h SignalsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(r, "limit", 0)
	if !ok {
		WriteError(w, r, http.StatusBadRequest, "bad_limit", "limit must be a non-negative integer")
		return
	}
	q := r.URL.Query()
	rows, err := h.Store.ListActive(r.Context(), store.ListOpts{
		Source: strings.TrimSpace(q.Get("source")),
		Term:   strings.TrimSpace(q.Get("term")),
		Limit:  limit,
	})
	if err != nil {
		writeStoreError(w, r, err, "could not list opening signals")
		return
	}
	if rows == nil {
		rows = []domain.OpeningSignal{}
	}
	WriteJSON(w, http.StatusOK, rows)
}

type InboxHandler struct {
	Store store.Store
}

// List serves GET /inbox/{user}?status=.
func (h InboxHandler) List(w http.ResponseWriter, r *http.Request) {
	parts := pathParts(r.URL.Path, "/inbox/")
	if len(parts) != 1 {
		WriteError(w, r, http.StatusNotFound, "not_found", "expected /inbox/{user}")
		return
	}
	var status domain.InboxStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		s, ok := domain.ParseInboxStatus(raw)
		if !ok {
			WriteError(w, r, http.StatusBadRequest, "bad_status", "status must be active, archived or hidden")
			return
		}
		status = s
	}
	items, err := h.Store.ListInbox(r.Context(), parts[0], status)
	if err != nil {
		writeStoreError(w, r, err, "could not list inbox")
		return
	}
	if items == nil {
		items = []domain.InboxItem{}
	}
	WriteJSON(w, http.StatusOK, items)
}

type inboxUpdate struct {
	Status string `json:"status"`
}

// SetStatus serves PUT /inbox/{user}/{opening_id} with {"status": ...}.
func (h InboxHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	parts := pathParts(r.URL.Path, "/inbox/")
	if len(parts) != 2 {
		WriteError(w, r, http.StatusNotFound, "not_found", "expected /inbox/{user}/{opening_id}")
		return
	}
	var body inboxUpdate
	if err := decodeStrict(r, &body); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	status, ok := domain.ParseInboxStatus(body.Status)
	if !ok {
		WriteError(w, r, http.StatusBadRequest, "bad_status", "status must be active, archived or hidden")
		return
	}

	err := h.Store.SetInboxStatus(r.Context(), parts[0], parts[1], status)
	if err != nil {
		writeStoreError(w, r, err, "could not update inbox")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"user_id":           parts[0],
		"opening_signal_id": parts[1],
		"status":            status,
	})
}
