package query

import (
	"fmt"
	"strings"
)

// Split breaks a query into clauses on unquoted whitespace. Single and
// double quotes group characters the way a shell does, so values containing
// spaces survive: status:"some status" is one clause.
func Split(q string) ([]string, error) {
	var (
		clauses []string
		cur     strings.Builder
		quote   byte
		open    bool
		started bool
	)
	for i := 0; i < len(q); i++ {
		c := q[i]
		switch {
		case open:
			if c == quote {
				open = false
			} else {
				cur.WriteByte(c)
			}
		case c == '\'' || c == '"':
			open = true
			quote = c
			started = true
		case c == ' ' || c == '\t' || c == '\n':
			if started {
				clauses = append(clauses, cur.String())
				cur.Reset()
				started = false
			}
		default:
			cur.WriteByte(c)
			started = true
		}
	}
	if open {
		return nil, fmt.Errorf("%w: unterminated quote", ErrInvalidQuery)
	}
	if started {
		clauses = append(clauses, cur.String())
	}
	return clauses, nil
}
