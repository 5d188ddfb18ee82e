// Package sqlxrepos implements the repositories on PostgreSQL with sqlx.
package sqlxrepos

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/vidhyasetu/backend/storage/database"
)

// where collects AND-ed conditions written with ? placeholders. Slice args expand into IN lists.
type where struct {
	clauses []string
	args    []interface{}
}

func (w *where) add(clause string, args ...interface{}) {
	w.clauses = append(w.clauses, clause)
	w.args = append(w.args, args...)
}

func (w where) String() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

// bind expands IN lists and switches placeholders to $n.
func bind(query string, args ...interface{}) (string, []interface{}, error) {
	q, args, err := sqlx.In(query, args...)
	if err != nil {
		return "", nil, errors.Wrap(err, "binding query")
	}
	return sqlx.Rebind(sqlx.DOLLAR, q), args, nil
}

type repo struct {
	db *sqlx.DB
}

func (r repo) exec(ctx context.Context) database.Executor {
	return database.Exec(ctx, r.db)
}

func (r repo) selectIn(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	q, args, err := bind(query, args...)
	if err != nil {
		return err
	}
	return r.exec(ctx).SelectContext(ctx, dest, q, args...)
}

func (r repo) execIn(ctx context.Context, query string, args ...interface{}) error {
	q, args, err := bind(query, args...)
	if err != nil {
		return err
	}
	_, err = r.exec(ctx).ExecContext(ctx, q, args...)
	return database.ConflictFromError(err)
}
