package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"digifeeds/internal/domain"
	"digifeeds/internal/query"
	"digifeeds/internal/storage"
)

const (
	defaultLimit = 50
	maxLimit     = 1000
)

// ItemStore is the persistence surface the handlers need. *storage.PostgresStore
// satisfies it; tests use an in-memory fake.
type ItemStore interface {
	GetItem(ctx context.Context, barcode string) (domain.Item, error)
	AddItem(ctx context.Context, barcode string) (domain.Item, error)
	AddStatus(ctx context.Context, barcode string, status domain.StatusName) (domain.Item, error)
	SetHathifilesTimestamp(ctx context.Context, barcode string, ts time.Time) (domain.Item, error)
	ListItems(ctx context.Context, filter domain.ItemFilter, q string, limit, offset int) ([]domain.Item, int64, error)
	DeleteItem(ctx context.Context, barcode string) (domain.Item, error)
	GetStatuses(ctx context.Context) ([]domain.Status, error)
	Ping(ctx context.Context) error
}

type Handler struct {
	store ItemStore
}

func NewHandler(store ItemStore) *Handler {
	return &Handler{store: store}
}

func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request, barcode string) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	item, err := h.store.GetItem(ctx, barcode)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]any{"error": "item not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to fetch item"})
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *Handler) CreateItem(w http.ResponseWriter, r *http.Request, barcode string) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	item, err := h.store.AddItem(ctx, barcode)
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "item already exists"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to create item"})
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *Handler) AddItemStatus(w http.ResponseWriter, r *http.Request, barcode, statusName string) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	item, err := h.store.AddStatus(ctx, barcode, domain.StatusName(statusName))
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrStatusNotFound):
			writeJSON(w, http.StatusNotFound, map[string]any{"error": "status not found"})
		case errors.Is(err, storage.ErrNotFound):
			writeJSON(w, http.StatusNotFound, map[string]any{"error": "item not found"})
		default:
			writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to add status"})
		}
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *Handler) UpdateHathifilesTimestamp(w http.ResponseWriter, r *http.Request, barcode, timestamp string) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	ts, err := parseTimestamp(timestamp)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": "unparsable timestamp"})
		return
	}

	item, err := h.store.SetHathifilesTimestamp(ctx, barcode, ts)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			writeJSON(w, http.StatusNotFound, map[string]any{"error": "item not found"})
		case errors.Is(err, storage.ErrAlreadyHasValue):
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "hathifiles_timestamp already set"})
		default:
			writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to set timestamp"})
		}
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *Handler) DeleteItem(w http.ResponseWriter, r *http.Request, barcode string) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	item, err := h.store.DeleteItem(ctx, barcode)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]any{"error": "item not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to delete item"})
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	limit := intParam(r, "limit", defaultLimit)
	if limit < 1 || limit > maxLimit {
		limit = defaultLimit
	}
	offset := intParam(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	filter := domain.ItemFilter(r.URL.Query().Get("filter"))
	if filter != "" && !domain.ValidItemFilter(filter) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": "unknown filter"})
		return
	}
	q := r.URL.Query().Get("q")

	items, total, err := h.store.ListItems(ctx, filter, q, limit, offset)
	if err != nil {
		if errors.Is(err, query.ErrInvalidQuery) {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to list items"})
		return
	}

	writeJSON(w, http.StatusOK, domain.PageOfItems{
		Limit:  limit,
		Offset: offset,
		Total:  total,
		Items:  items,
	})
}

func (h *Handler) GetStatuses(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	statuses, err := h.store.GetStatuses(ctx)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to fetch statuses"})
		return
	}
	writeJSON(w, http.StatusOK, statuses)
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func parseTimestamp(value string) (time.Time, error) {
	layouts := []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}
	var lastErr error
	for _, layout := range layouts {
		ts, err := time.Parse(layout, value)
		if err == nil {
			return ts, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func intParam(r *http.Request, name string, fallback int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
