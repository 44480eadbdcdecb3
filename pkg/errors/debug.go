package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// Diagnosis is what request logging records about a failed call. The
// Postgres fields stay empty unless a driver error sits in the chain.
type Diagnosis struct {
	Code  Code
	Chain []string

	PGCode       string
	PGConstraint string
	PGTable      string
	PGDetail     string
}

// Diagnose walks err's wrap chain. Both pgx and lib/pq errors are
// recognised since goose still talks through database/sql.
func Diagnose(err error) Diagnosis {
	var d Diagnosis
	if err == nil {
		return d
	}
	if te := As(err); te != nil {
		d.Code = te.Code()
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}

	var pgxErr *pgconn.PgError
	var pqErr *pq.Error
	switch {
	case errors.As(err, &pgxErr):
		d.PGCode, d.PGConstraint = pgxErr.Code, pgxErr.ConstraintName
		d.PGTable, d.PGDetail = pgxErr.TableName, pgxErr.Detail
	case errors.As(err, &pqErr):
		d.PGCode, d.PGConstraint = string(pqErr.Code), pqErr.Constraint
		d.PGTable, d.PGDetail = pqErr.Table, pqErr.Detail
	}
	return d
}

// Fields flattens the diagnosis for zerolog, skipping empty Postgres data.
func (d Diagnosis) Fields() map[string]any {
	fields := map[string]any{
		"error_code":  d.Code,
		"error_chain": d.Chain,
	}
	if d.PGCode == "" {
		return fields
	}
	fields["pg_code"] = d.PGCode
	fields["pg_constraint"] = d.PGConstraint
	fields["pg_table"] = d.PGTable
	fields["pg_detail"] = d.PGDetail
	return fields
}
