package query

import (
	"time"

	"digifeeds/internal/domain"
)

// Matches evaluates a predicate list against an in-memory item. It mirrors
// the SQL translation so fakes and tests can run queries without a database.
func Matches(item domain.Item, preds []Predicate) bool {
	for _, p := range preds {
		if !matchesOne(item, p) {
			return false
		}
	}
	return true
}

func matchesOne(item domain.Item, p Predicate) bool {
	switch pred := p.(type) {
	case StatusPredicate:
		has := item.HasStatus(domain.StatusName(pred.Status))
		return has != pred.Negated

	case StatusDatePredicate:
		found := false
		for _, ev := range item.StatusEvents(domain.StatusName(pred.Status)) {
			if compareDates(ev.CreatedAt, pred.Op, pred.Date) {
				found = true
				break
			}
		}
		return found != pred.Negated

	case ItemDatePredicate:
		var ok bool
		switch {
		case pred.Field == FieldHathifilesTimestamp && pred.Null:
			ok = item.HathifilesTimestamp == nil
		case pred.Field == FieldCreatedAt && pred.Null:
			ok = false
		case pred.Field == FieldHathifilesTimestamp:
			ok = item.HathifilesTimestamp != nil && compareDates(*item.HathifilesTimestamp, pred.Op, pred.Date)
		default:
			ok = compareDates(item.CreatedAt, pred.Op, pred.Date)
		}
		return ok != pred.Negated
	}
	return false
}

// compareDates compares by calendar day in the timestamp's own location.
func compareDates(ts time.Time, op Op, date time.Time) bool {
	day := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
	want := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	switch op {
	case OpEq:
		return day.Equal(want)
	case OpLt:
		return day.Before(want)
	case OpLte:
		return day.Before(want) || day.Equal(want)
	case OpGt:
		return day.After(want)
	case OpGte:
		return day.After(want) || day.Equal(want)
	}
	return false
}
