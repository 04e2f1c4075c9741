package postgres

import (
	"fmt"
	"strings"
)

// listQuery accumulates WHERE clauses with numbered placeholders.
type listQuery struct {
	clauses []string
	args    []interface{}
}

func (q *listQuery) eq(column string, value interface{}) {
	q.args = append(q.args, value)
	q.clauses = append(q.clauses, fmt.Sprintf("%s = $%d", column, len(q.args)))
}

// build appends the filter, the stable ordering and pagination to base.
func (q *listQuery) build(base string, limit, offset int) string {
	var b strings.Builder
	b.WriteString(base)
	if len(q.clauses) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(q.clauses, " AND "))
	}
	b.WriteString(" ORDER BY created_at, id")
	if limit > 0 {
		q.args = append(q.args, limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(q.args))
	}
	if offset > 0 {
		q.args = append(q.args, offset)
		fmt.Fprintf(&b, " OFFSET $%d", len(q.args))
	}
	return b.String()
}
