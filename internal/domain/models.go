package domain

import "time"

// StatusEvent records that an item had a status as of a point in time.
// Events are append-only; an item accumulates statuses and never loses one
// outside of whole-item deletion.
type StatusEvent struct {
	Name        StatusName `json:"name"`
	Description string     `json:"description"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Item is one barcode tracked through the digifeeds pipeline. The barcode is
// assigned externally and is the primary identity. HathifilesTimestamp is
// written exactly once, when the barcode shows up in the Hathifiles database.
type Item struct {
	Barcode             string        `json:"barcode"`
	CreatedAt           time.Time     `json:"created_at"`
	HathifilesTimestamp *time.Time    `json:"hathifiles_timestamp"`
	Statuses            []StatusEvent `json:"statuses"`
}

// HasStatus reports whether at least one event with the given name exists.
func (i Item) HasStatus(name StatusName) bool {
	for _, s := range i.Statuses {
		if s.Name == name {
			return true
		}
	}
	return false
}

// StatusEvents returns every event with the given name. The same status can
// be recorded more than once, each a distinct timestamped fact.
func (i Item) StatusEvents(name StatusName) []StatusEvent {
	var out []StatusEvent
	for _, s := range i.Statuses {
		if s.Name == name {
			out = append(out, s)
		}
	}
	return out
}

type PageOfItems struct {
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
	Total  int64  `json:"total"`
	Items  []Item `json:"items"`
}

// ItemFilter is the fixed enum accepted by the list endpoint, predating the
// query language and kept for compatibility with existing callers.
type ItemFilter string

const (
	FilterInZephir          ItemFilter = "in_zephir"
	FilterNotInZephir       ItemFilter = "not_in_zephir"
	FilterPendingDeletion   ItemFilter = "pending_deletion"
	FilterNotPendingDeletion ItemFilter = "not_pending_deletion"
	FilterNotFoundInAlma    ItemFilter = "not_found_in_alma"
)

func ValidItemFilter(f ItemFilter) bool {
	switch f {
	case FilterInZephir, FilterNotInZephir, FilterPendingDeletion, FilterNotPendingDeletion, FilterNotFoundInAlma:
		return true
	}
	return false
}
