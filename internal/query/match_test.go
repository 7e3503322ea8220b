package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"digifeeds/internal/domain"
)

func itemWith(barcode string, createdAt time.Time, events ...domain.StatusEvent) domain.Item {
	return domain.Item{Barcode: barcode, CreatedAt: createdAt, Statuses: events}
}

func event(name domain.StatusName, at time.Time) domain.StatusEvent {
	return domain.StatusEvent{Name: name, CreatedAt: at}
}

func mustParse(t *testing.T, q string) []Predicate {
	t.Helper()
	preds, err := Parse(q)
	require.NoError(t, err)
	return preds
}

func TestMatchesStatusPresenceAndAbsence(t *testing.T) {
	now := time.Now()
	withZephir := itemWith("a", now, event(domain.StatusInZephir, now))
	withoutZephir := itemWith("b", now, event(domain.StatusPendingDeletion, now))

	has := mustParse(t, "status:in_zephir")
	hasNot := mustParse(t, "-status:in_zephir")

	require.True(t, Matches(withZephir, has))
	require.False(t, Matches(withoutZephir, has))
	require.False(t, Matches(withZephir, hasNot))
	require.True(t, Matches(withoutZephir, hasNot))
}

func TestMatchesStatusIntersection(t *testing.T) {
	now := time.Now()
	both := itemWith("a", now, event(domain.StatusInZephir, now), event(domain.StatusPendingDeletion, now))
	onlyOne := itemWith("b", now, event(domain.StatusInZephir, now))

	preds := mustParse(t, "status:in_zephir status:pending_deletion")
	require.True(t, Matches(both, preds))
	require.False(t, Matches(onlyOne, preds))
}

func TestMatchesItemDateBoundaries(t *testing.T) {
	boundary := time.Date(2024, 6, 15, 13, 45, 0, 0, time.UTC)
	before := itemWith("before", boundary.AddDate(0, 0, -1))
	on := itemWith("on", boundary)
	after := itemWith("after", boundary.AddDate(0, 0, 1))

	cases := []struct {
		q    string
		want map[string]bool
	}{
		{q: "created_at<2024-06-15", want: map[string]bool{"before": true, "on": false, "after": false}},
		{q: "created_at<=2024-06-15", want: map[string]bool{"before": true, "on": true, "after": false}},
		{q: "created_at>2024-06-15", want: map[string]bool{"before": false, "on": false, "after": true}},
		{q: "created_at>=2024-06-15", want: map[string]bool{"before": false, "on": true, "after": true}},
		{q: "created_at:2024-06-15", want: map[string]bool{"before": false, "on": true, "after": false}},
	}
	items := map[string]domain.Item{"before": before, "on": on, "after": after}
	for _, tc := range cases {
		preds := mustParse(t, tc.q)
		for name, item := range items {
			require.Equal(t, tc.want[name], Matches(item, preds), "query %q item %s", tc.q, name)
		}
	}
}

func TestMatchesIgnoresTimeOfDay(t *testing.T) {
	lateInDay := itemWith("a", time.Date(2024, 6, 15, 23, 59, 59, 0, time.UTC))
	require.True(t, Matches(lateInDay, mustParse(t, "created_at:2024-06-15")))
	require.True(t, Matches(lateInDay, mustParse(t, "created_at<=2024-06-15")))
	require.False(t, Matches(lateInDay, mustParse(t, "created_at<2024-06-15")))
}

func TestMatchesStatusDate(t *testing.T) {
	old := time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)
	recent := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	item := itemWith("a", old, event(domain.StatusInZephir, old), event(domain.StatusInZephir, recent))

	// At least one in_zephir event on or before the date.
	require.True(t, Matches(item, mustParse(t, "status.in_zephir.created_at<=2024-01-10")))
	// Negation means no in_zephir event satisfies the comparison.
	require.False(t, Matches(item, mustParse(t, "-status.in_zephir.created_at<=2024-01-10")))
	require.True(t, Matches(item, mustParse(t, "-status.in_zephir.created_at<2024-01-01")))
	// No events with that name at all.
	require.False(t, Matches(item, mustParse(t, "status.pending_deletion.created_at<=2025-12-31")))
}

func TestMatchesHathifilesTimestampNull(t *testing.T) {
	now := time.Now()
	ts := time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)
	unset := itemWith("a", now)
	set := itemWith("b", now)
	set.HathifilesTimestamp = &ts

	require.True(t, Matches(unset, mustParse(t, "hathifiles_timestamp:null")))
	require.False(t, Matches(set, mustParse(t, "hathifiles_timestamp:null")))
	require.True(t, Matches(set, mustParse(t, "-hathifiles_timestamp:null")))
	require.True(t, Matches(set, mustParse(t, "hathifiles_timestamp:2024-08-01")))
	require.False(t, Matches(unset, mustParse(t, "hathifiles_timestamp:2024-08-01")))
}
