// Package sqlxrepos implements the repositories on Postgres with sqlx.
package sqlxrepos

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/parokia/core"
	"github.com/trezcool/parokia/services/metrics"
)

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// selectx scans every row of q into dest, a pointer to a slice of db-tagged structs.
func selectx(ctx context.Context, exec core.DBExecutor, op string, dest interface{}, q string, args ...interface{}) error {
	defer metrics.ObserveDBLatency(ctx, op, time.Now())

	rows, err := exec.QueryContext(ctx, q, args...)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()
	return sqlx.StructScan(rows, dest)
}

// getx returns the first row of q, or sql.ErrNoRows.
func getx[T any](ctx context.Context, exec core.DBExecutor, op, q string, args ...interface{}) (T, error) {
	var rows []T
	var zero T
	if err := selectx(ctx, exec, op, &rows, q, args...); err != nil {
		return zero, err
	}
	if len(rows) == 0 {
		return zero, sql.ErrNoRows
	}
	return rows[0], nil
}

// namedExec binds the :name parameters of q from arg and executes it.
func namedExec(ctx context.Context, exec core.DBExecutor, op, q string, arg interface{}) (sql.Result, error) {
	defer metrics.ObserveDBLatency(ctx, op, time.Now())

	bound, args, err := sqlx.Named(q, arg)
	if err != nil {
		return nil, errors.Wrap(err, "binding named query")
	}
	return exec.ExecContext(ctx, sqlx.Rebind(sqlx.DOLLAR, bound), args...)
}

// namedGet is namedExec for statements with a RETURNING clause.
func namedGet[T any](ctx context.Context, exec core.DBExecutor, op, q string, arg interface{}) (T, error) {
	var zero T
	bound, args, err := sqlx.Named(q, arg)
	if err != nil {
		return zero, errors.Wrap(err, "binding named query")
	}
	return getx[T](ctx, exec, op, sqlx.Rebind(sqlx.DOLLAR, bound), args...)
}

func affected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// trapNoRows maps "no rows" to notFound.
func trapNoRows(err error, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// where accumulates AND-ed conditions with positional arguments.
type where struct {
	conds []string
	args  []interface{}
}

// add appends cond, every ? of which is bound to arg.
func (w *where) add(cond string, arg interface{}) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, strings.ReplaceAll(cond, "?", "$"+strconv.Itoa(len(w.args))))
}

// bind appends arg and returns its placeholder, for conditions using several args.
func (w *where) bind(arg interface{}) string {
	w.args = append(w.args, arg)
	return "$" + strconv.Itoa(len(w.args))
}

func (w *where) addCond(cond string) {
	w.conds = append(w.conds, cond)
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}
