// Package sqlxrepos implements the domain repositories on PostgreSQL with sqlx.
// Queries are written with ? placeholders and rebound for the driver.
package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/forma/core"
	"github.com/trezcool/forma/storage/database"
)

type repository struct {
	db *sqlx.DB
}

// ext returns the transaction carried by ctx, or the DB.
func (repo repository) ext(ctx context.Context) sqlx.ExtContext {
	return database.Executor(ctx, repo.db)
}

func newID() string {
	return uuid.New().String()
}

// conds is an AND list of WHERE conditions and their arguments.
type conds struct {
	clauses []string
	args    []interface{}
}

func (c *conds) add(clause string, args ...interface{}) {
	c.clauses = append(c.clauses, clause)
	c.args = append(c.args, args...)
}

func (c *conds) String() string {
	if len(c.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(c.clauses, " AND ")
}

// likePattern escapes s for a LIKE/ILIKE pattern matching it anywhere.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

// orderBy builds an ORDER BY expression from the allowed orderings, falling back to def.
// id is always appended so that pages are stable.
func orderBy(ordering []core.DBOrdering, allowed []string, def string) string {
	return core.OrderingClause(core.AllowedOrdering(ordering, allowed), def) + ", id ASC"
}

// queryPage counts the rows of from matching w, then selects the requested page of them into dest.
func queryPage(
	ctx context.Context,
	e sqlx.ExtContext,
	dest interface{},
	cols, from string,
	w conds,
	order string,
	page core.Page,
) (int, error) {
	var total int
	if err := sqlx.GetContext(ctx, e, &total, e.Rebind("SELECT COUNT(*) FROM "+from+w.String()), w.args...); err != nil {
		return 0, errors.Wrap(err, "counting rows")
	}

	q := "SELECT " + cols + " FROM " + from + w.String() + " ORDER BY " + order
	args := append([]interface{}{}, w.args...)
	if !page.IsZero() {
		q += " LIMIT ? OFFSET ?"
		args = append(args, page.Limit(), page.Offset())
	}
	if err := sqlx.SelectContext(ctx, e, dest, e.Rebind(q), args...); err != nil {
		return 0, errors.Wrap(err, "selecting rows")
	}
	return total, nil
}

// get scans one row into dest, returning notFound when there is none.
func get(ctx context.Context, e sqlx.ExtContext, dest interface{}, notFound error, q string, args ...interface{}) error {
	if err := sqlx.GetContext(ctx, e, dest, e.Rebind(q), args...); err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return notFound
		}
		return err
	}
	return nil
}

func count(ctx context.Context, e sqlx.ExtContext, q string, args ...interface{}) (int, error) {
	var n int
	if err := sqlx.GetContext(ctx, e, &n, e.Rebind(q), args...); err != nil {
		return 0, err
	}
	return n, nil
}

// exec runs q, returning notFound when it affected no row.
func exec(ctx context.Context, e sqlx.ExtContext, notFound error, q string, args ...interface{}) error {
	res, err := e.ExecContext(ctx, e.Rebind(q), args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 && notFound != nil {
		return notFound
	}
	return nil
}

// namedExec runs a query with :name parameters bound from arg.
func namedExec(ctx context.Context, e sqlx.ExtContext, notFound error, q string, arg interface{}) error {
	q, args, err := e.BindNamed(q, arg)
	if err != nil {
		return err
	}
	res, err := e.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	if notFound == nil {
		return nil
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// selectIn selects into dest with q containing an IN (?) bound to a slice argument.
func selectIn(ctx context.Context, e sqlx.ExtContext, dest interface{}, q string, args ...interface{}) error {
	q, args, err := sqlx.In(q, args...)
	if err != nil {
		return err
	}
	return sqlx.SelectContext(ctx, e, dest, e.Rebind(q), args...)
}
