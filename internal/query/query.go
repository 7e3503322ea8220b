// Package query implements the item search language used by the list
// endpoint. A query is a whitespace-separated list of clauses that are ANDed
// together:
//
//	status:in_zephir                          item has the status
//	-status:in_zephir                         item does not have the status
//	created_at<=2025-11-05                    item field date comparison
//	hathifiles_timestamp:null                 item field is unset
//	status.in_zephir.created_at<2025-11-05    status event date comparison
//
// Dates compare by calendar day; time of day is ignored. The grammar is
// modeled after Stripe's search query language.
package query

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidQuery = errors.New("invalid query")

type Op string

const (
	OpEq  Op = ":"
	OpLt  Op = "<"
	OpLte Op = "<="
	OpGt  Op = ">"
	OpGte Op = ">="
)

const (
	FieldCreatedAt           = "created_at"
	FieldHathifilesTimestamp = "hathifiles_timestamp"
)

// Predicate is one parsed clause. Exactly one of the concrete types below.
type Predicate interface {
	predicate()
}

// StatusPredicate matches items with (or, negated, without) at least one
// status event of the given name.
type StatusPredicate struct {
	Status  string
	Negated bool
}

// StatusDatePredicate matches items with at least one status event of the
// given name whose created_at satisfies the comparison. Negation applies to
// the whole compound condition: no such event satisfies it.
type StatusDatePredicate struct {
	Status  string
	Op      Op
	Date    time.Time
	Negated bool
}

// ItemDatePredicate compares one of the item's own date fields. Null is the
// IS NULL sentinel and is only valid with the exact-match operator.
type ItemDatePredicate struct {
	Field   string
	Op      Op
	Date    time.Time
	Null    bool
	Negated bool
}

func (StatusPredicate) predicate()     {}
func (StatusDatePredicate) predicate() {}
func (ItemDatePredicate) predicate()   {}

// Parse tokenizes and parses a query string into its predicate list. An
// empty query parses to an empty list. Clauses that do not match the grammar,
// including unrecognized field names, fail with ErrInvalidQuery.
func Parse(q string) ([]Predicate, error) {
	clauses, err := Split(q)
	if err != nil {
		return nil, err
	}
	preds := make([]Predicate, 0, len(clauses))
	for _, clause := range clauses {
		p, err := parseClause(clause)
		if err != nil {
			return nil, err
		}
		preds = append(preds, p)
	}
	return preds, nil
}

func parseClause(clause string) (Predicate, error) {
	negated := false
	body := clause
	if strings.HasPrefix(body, "-") {
		negated = true
		body = body[1:]
	}

	field, op, value, err := splitOperator(body)
	if err != nil {
		return nil, err
	}

	switch {
	case field == "status":
		if op != OpEq {
			return nil, fmt.Errorf("%w: clause %q: status supports only the ':' operator", ErrInvalidQuery, clause)
		}
		if value == "" {
			return nil, fmt.Errorf("%w: clause %q: missing status name", ErrInvalidQuery, clause)
		}
		return StatusPredicate{Status: value, Negated: negated}, nil

	case strings.HasPrefix(field, "status."):
		parts := strings.SplitN(field, ".", 3)
		if len(parts) != 3 || parts[1] == "" {
			return nil, fmt.Errorf("%w: clause %q: expected status.<name>.created_at", ErrInvalidQuery, clause)
		}
		if parts[2] != FieldCreatedAt {
			return nil, fmt.Errorf("%w: clause %q: status events have no field %q", ErrInvalidQuery, clause, parts[2])
		}
		date, err := parseDate(value)
		if err != nil {
			return nil, fmt.Errorf("%w: clause %q: %v", ErrInvalidQuery, clause, err)
		}
		return StatusDatePredicate{Status: parts[1], Op: op, Date: date, Negated: negated}, nil

	case field == FieldCreatedAt || field == FieldHathifilesTimestamp:
		if strings.EqualFold(value, "null") {
			if op != OpEq {
				return nil, fmt.Errorf("%w: clause %q: null is only valid with ':'", ErrInvalidQuery, clause)
			}
			return ItemDatePredicate{Field: field, Op: op, Null: true, Negated: negated}, nil
		}
		date, err := parseDate(value)
		if err != nil {
			return nil, fmt.Errorf("%w: clause %q: %v", ErrInvalidQuery, clause, err)
		}
		return ItemDatePredicate{Field: field, Op: op, Date: date, Negated: negated}, nil

	default:
		// Rejecting unknown fields instead of dropping the clause keeps a
		// typo from matching everything.
		return nil, fmt.Errorf("%w: clause %q: unknown field %q", ErrInvalidQuery, clause, field)
	}
}

func splitOperator(body string) (field string, op Op, value string, err error) {
	for i := 0; i < len(body); i++ {
		switch body[i] {
		case ':':
			return body[:i], OpEq, body[i+1:], nil
		case '<':
			if i+1 < len(body) && body[i+1] == '=' {
				return body[:i], OpLte, body[i+2:], nil
			}
			return body[:i], OpLt, body[i+1:], nil
		case '>':
			if i+1 < len(body) && body[i+1] == '=' {
				return body[:i], OpGte, body[i+2:], nil
			}
			return body[:i], OpGt, body[i+1:], nil
		}
	}
	return "", "", "", fmt.Errorf("%w: clause %q has no operator", ErrInvalidQuery, body)
}

func parseDate(value string) (time.Time, error) {
	d, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad date %q, want YYYY-MM-DD", value)
	}
	return d, nil
}
