package repository

import (
	"context"
	"database/sql"
	"strings"
)

// queryer is the part of *sqlx.DB and *sqlx.Tx the repositories use.
type queryer interface {
	Rebind(query string) string
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	NamedExecContext(ctx context.Context, query string, arg any) (sql.Result, error)
}

// Page carries limit/offset for list queries.
type Page struct {
	Limit  int
	Offset int
}

func (p Page) normalized() Page {
	if p.Limit <= 0 {
		p.Limit = 25
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// whereBuilder accumulates AND-ed predicates with ? placeholders.
type whereBuilder struct {
	clauses []string
	args    []any
}

func newWhere(clause string, args ...any) *whereBuilder {
	w := &whereBuilder{}
	w.add(clause, args...)
	return w
}

func (w *whereBuilder) add(clause string, args ...any) {
	w.clauses = append(w.clauses, clause)
	w.args = append(w.args, args...)
}

func (w *whereBuilder) eq(column string, value *string) {
	if value != nil && *value != "" {
		w.add(column+" = ?", *value)
	}
}

func (w *whereBuilder) in(column string, values []string) {
	if len(values) == 0 {
		return
	}
	placeholders := make([]string, len(values))
	for i, v := range values {
		placeholders[i] = "?"
		w.args = append(w.args, v)
	}
	w.clauses = append(w.clauses, column+" IN ("+strings.Join(placeholders, ",")+")")
}

// likeEscaper makes user input match literally inside a LIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (w *whereBuilder) search(term string, columns ...string) {
	term = strings.TrimSpace(term)
	if term == "" || len(columns) == 0 {
		return
	}
	like := "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"
	parts := make([]string, len(columns))
	for i, col := range columns {
		parts[i] = "LOWER(" + col + `) LIKE ? ESCAPE '\'`
		w.args = append(w.args, like)
	}
	w.clauses = append(w.clauses, "("+strings.Join(parts, " OR ")+")")
}

func (w *whereBuilder) sql() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

// selectPage runs a count and a paged select sharing one WHERE clause.
func selectPage[T any](ctx context.Context, db queryer, base, countBase, orderBy string, where *whereBuilder, page Page) ([]T, int, error) {
	page = page.normalized()

	var total int
	if err := db.GetContext(ctx, &total, db.Rebind(countBase+where.sql()), where.args...); err != nil {
		return nil, 0, err
	}

	query := base + where.sql() + " ORDER BY " + orderBy + " LIMIT ? OFFSET ?"
	args := append(append([]any{}, where.args...), page.Limit, page.Offset)
	items := []T{}
	if err := db.SelectContext(ctx, &items, db.Rebind(query), args...); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// execOne runs a mutating statement and maps zero affected rows to sql.ErrNoRows.
func execOne(ctx context.Context, db queryer, query string, args ...any) error {
	res, err := db.ExecContext(ctx, db.Rebind(query), args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// StatusCount is one row of a GROUP BY status aggregate.
type StatusCount struct {
	Status string `db:"status" json:"status"`
	Count  int    `db:"count" json:"count"`
}
