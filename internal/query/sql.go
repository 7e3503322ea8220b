package query

import (
	"fmt"
	"strings"
)

const statusExistsTemplate = `EXISTS (
	SELECT 1 FROM item_statuses its
	JOIN statuses s ON s.id = its.status_id
	WHERE its.item_barcode = items.barcode AND s.name = %s%s)`

// ToSQL translates a predicate list into a Postgres WHERE fragment plus its
// ordered arguments. Placeholders start at $startIndex so callers can prepend
// their own arguments. An empty predicate list yields an empty fragment.
func ToSQL(preds []Predicate, startIndex int) (string, []any) {
	var (
		conds []string
		args  []any
	)
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", startIndex+len(args)-1)
	}

	for _, p := range preds {
		switch pred := p.(type) {
		case StatusPredicate:
			cond := fmt.Sprintf(statusExistsTemplate, next(pred.Status), "")
			if pred.Negated {
				cond = "NOT " + cond
			}
			conds = append(conds, cond)

		case StatusDatePredicate:
			statusArg := next(pred.Status)
			dateCond := fmt.Sprintf(" AND its.created_at::date %s %s::date", sqlOp(pred.Op), next(pred.Date.Format("2006-01-02")))
			cond := fmt.Sprintf(statusExistsTemplate, statusArg, dateCond)
			if pred.Negated {
				cond = "NOT " + cond
			}
			conds = append(conds, cond)

		case ItemDatePredicate:
			var cond string
			if pred.Null {
				cond = fmt.Sprintf("items.%s IS NULL", pred.Field)
			} else {
				cond = fmt.Sprintf("items.%s::date %s %s::date", pred.Field, sqlOp(pred.Op), next(pred.Date.Format("2006-01-02")))
			}
			if pred.Negated {
				cond = "NOT (" + cond + ")"
			}
			conds = append(conds, cond)
		}
	}

	return strings.Join(conds, " AND "), args
}

func sqlOp(op Op) string {
	if op == OpEq {
		return "="
	}
	return string(op)
}
