package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized, publicMsg: "authentication required"},
		{code: CodeForbidden, status: http.StatusForbidden, publicMsg: "access denied"},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "conflict detected"},
		{code: CodeStateConflict, status: http.StatusUnprocessableEntity, publicMsg: "state transition disallowed", detailsOK: true},
		{code: CodeRateLimit, status: http.StatusTooManyRequests, publicMsg: "rate limit exceeded"},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		assert.Equal(t, tt.status, meta.HTTPStatus, tt.code)
		assert.Equal(t, tt.publicMsg, meta.PublicMessage, tt.code)
		assert.Equal(t, tt.retryable, meta.Retryable, tt.code)
		assert.Equal(t, tt.detailsOK, meta.DetailsAllowed, tt.code)
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	require.Equal(t, http.StatusInternalServerError, meta.HTTPStatus)
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing foo")
	require.Equal(t, CodeValidation, base.Code())
	require.Equal(t, "missing foo", base.Message())
	require.Nil(t, base.Details())

	base.WithDetails(map[string]any{"field": "foo"})
	require.NotNil(t, base.Details())

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "ctx")
	require.ErrorIs(t, wrapped, cause)
	require.Equal(t, CodeConflict, wrapped.Code())
	require.Contains(t, wrapped.Error(), "boom")

	formatted := Newf(CodeNotFound, "plan %s not found", "vip")
	require.Equal(t, "plan vip not found", formatted.Message())
}

func TestAsAndIsCodeFollowWrapping(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(CodeForbidden, "no entry"))
	got := As(err)
	require.NotNil(t, got)
	require.Equal(t, CodeForbidden, got.Code())
	require.True(t, IsCode(err, CodeForbidden))
	require.False(t, IsCode(err, CodeNotFound))
	require.Nil(t, As(nil))
}

func TestDiagnoseCollectsChain(t *testing.T) {
	err := Wrap(CodeInternal, stdErrors.New("db down"), "load plan")
	d := Diagnose(err)
	require.Equal(t, CodeInternal, d.Code)
	require.Len(t, d.Chain, 2)
	require.Empty(t, d.PGCode)
	require.NotContains(t, d.Fields(), "pg_code")
}

func TestDiagnoseReadsPostgresError(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key", TableName: "users"}
	d := Diagnose(Wrap(CodeConflict, fmt.Errorf("insert user: %w", pgErr), "email taken"))
	require.Equal(t, "23505", d.PGCode)
	require.Equal(t, "users_email_key", d.Fields()["pg_constraint"])
}
