// Package sqlxrepos implements the core repositories on postgres with sqlx.
package sqlxrepos

import (
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/sundayschool/core"
)

// postgres error codes
const (
	uniqueViolation pq.ErrorCode = "23505"
	checkViolation  pq.ErrorCode = "23514"
	fkViolation     pq.ErrorCode = "23503"
)

type baseRepository struct {
	exec core.DBExecutor
}

// getExec prefers the executor passed by the service (a transaction) over the pool.
func (repo baseRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 && svcExec[0] != nil {
		return svcExec[0]
	}
	return repo.exec
}

// rebind turns "?" placeholders into postgres "$n" ones.
func rebind(query string) string {
	return sqlx.Rebind(sqlx.DOLLAR, query)
}

// pqError returns the postgres error wrapped in err, if any.
func pqError(err error) (*pq.Error, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr, true
	}
	return nil, false
}

// translate maps constraint violations to domain errors, keyed by constraint name.
// Other errors are wrapped with msg.
func translate(err error, msg string, constraints map[string]error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := pqError(err); ok {
		switch pqErr.Code {
		case uniqueViolation, checkViolation, fkViolation:
			if domainErr, ok := constraints[pqErr.Constraint]; ok {
				return domainErr
			}
		}
	}
	return errors.Wrap(err, msg)
}

// rowError is translate for single row statements: sql.ErrNoRows becomes errNotFound.
func rowError(err error, msg string, errNotFound error, constraints map[string]error) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return errNotFound
	}
	return translate(err, msg, constraints)
}

// orderBy builds an ORDER BY clause from the known columns only.
func orderBy(ordering []core.DBOrdering, columns map[string]string) string {
	parts := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		col, ok := columns[ord.Field]
		if !ok {
			continue
		}
		parts = append(parts, core.DBOrdering{Field: col, Ascending: ord.Ascending}.String())
	}
	if len(parts) == 0 {
		return ""
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}

// where accumulates conditions and their positional arguments.
type where struct {
	conds []string
	args  []interface{}
}

// add appends a condition; each "?" in cond consumes one arg.
func (w *where) add(cond string, args ...interface{}) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// affected returns errNotFound when res touched no row.
func affected(res sql.Result, errNotFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "reading affected rows")
	}
	if n == 0 {
		return errNotFound
	}
	return nil
}
