package pljava

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorDataWireRoundTrip(t *testing.T) {
	in := &ErrorData{
		Severity:       "ERROR",
		Code:           "23505",
		Message:        "duplicate key value violates unique constraint",
		Detail:         "Key (id)=(1) already exists.",
		Hint:           "try another id",
		Position:       12,
		Where:          "SQL statement",
		SchemaName:     "public",
		TableName:      "t",
		ColumnName:     "id",
		ConstraintName: "t_pkey",
		File:           "nbtinsert.c",
		Line:           570,
		Routine:        "_bt_check_unique",
	}
	out := ErrorDataFromResponse(in.ToErrorResponse())
	assert.Equal(t, in, out)
}

func TestErrorToRaiseServerErrorUnchanged(t *testing.T) {
	data := &ErrorData{Severity: "ERROR", Code: "40001", Message: "could not serialize access"}
	se := &ServerError{Data: data}

	// The Java code let the wrapping exception propagate: the original
	// report must come back by identity, not by copy.
	je := &JavaError{
		ClassName: "org.postgresql.pljava.internal.ServerException",
		Message:   data.Message,
		Server:    se,
	}
	assert.Same(t, data, ErrorToRaise(je))
	assert.Same(t, data, ErrorToRaise(se))
	assert.Same(t, data, ErrorToRaise(errors.Wrap(je, "call failed")))
}

func TestErrorToRaiseSQLState(t *testing.T) {
	je := &JavaError{
		ClassName: "java.sql.SQLException",
		Message:   "no such row",
		SQLState:  "02000",
	}
	d := ErrorToRaise(je)
	assert.Equal(t, "02000", d.Code)
	assert.Equal(t, "java.sql.SQLException: no such row", d.Message)
}

func TestErrorToRaiseDefaultsToExternalRoutine(t *testing.T) {
	je := &JavaError{
		ClassName:  "java.lang.IllegalStateException",
		Message:    "boom",
		SQLState:   "bogus",
		StackTrace: []string{"at com.example.Foo.bar(Foo.java:10)"},
	}
	d := ErrorToRaise(je)
	assert.Equal(t, CodeExternalRoutineException, d.Code)
	assert.Contains(t, d.Where, "Foo.java:10")
}

func TestErrorToRaisePlainError(t *testing.T) {
	d := ErrorToRaise(errors.New("bridge broke"))
	assert.Equal(t, CodeInternalError, d.Code)
	assert.Equal(t, "ERROR", d.Severity)
	assert.Equal(t, "bridge broke", d.Message)
}

func TestValidSQLState(t *testing.T) {
	assert.True(t, validSQLState("22023"))
	assert.True(t, validSQLState("P0001"))
	assert.False(t, validSQLState(""))
	assert.False(t, validSQLState("2202"))
	assert.False(t, validSQLState("2202x"))
	assert.False(t, validSQLState("22023X"))
}

func TestJavaErrorUnwrap(t *testing.T) {
	se := &ServerError{Data: &ErrorData{Severity: "ERROR", Code: "XX000", Message: "m"}}
	je := &JavaError{ClassName: "x", Server: se}

	var got *ServerError
	require.True(t, errors.As(je, &got))
	assert.Same(t, se, got)

	assert.Nil(t, (&JavaError{ClassName: "x"}).Unwrap())
}
