package pljava

import (
	"fmt"
	"strings"

	"github.com/jackc/pgproto3/v2"
	"github.com/pkg/errors"
)

// SQLSTATE codes this bridge raises itself.
const (
	CodeFeatureNotSupported      = "0A000"
	CodeInvalidParameterValue    = "22023"
	CodeExternalRoutineException = "38000"
	CodeSRFProtocolViolated      = "39P02"
	CodeInternalError            = "XX000"
)

// ErrorData carries the fields of a server error report. It is the Go
// rendition of what elog(ERROR) captures, and converts losslessly to and
// from the wire ErrorResponse image.
type ErrorData struct {
	Severity         string
	Code             string
	Message          string
	Detail           string
	Hint             string
	Position         int32
	InternalPosition int32
	InternalQuery    string
	Where            string
	SchemaName       string
	TableName        string
	ColumnName       string
	DataTypeName     string
	ConstraintName   string
	File             string
	Line             int32
	Routine          string
}

func (e *ErrorData) Error() string {
	return fmt.Sprintf("%s: %s (SQLSTATE %s)", e.Severity, e.Message, e.Code)
}

// ToErrorResponse renders the error in the wire form.
func (e *ErrorData) ToErrorResponse() *pgproto3.ErrorResponse {
	return &pgproto3.ErrorResponse{
		Severity:            e.Severity,
		SeverityUnlocalized: e.Severity,
		Code:                e.Code,
		Message:             e.Message,
		Detail:              e.Detail,
		Hint:                e.Hint,
		Position:            e.Position,
		InternalPosition:    e.InternalPosition,
		InternalQuery:       e.InternalQuery,
		Where:               e.Where,
		SchemaName:          e.SchemaName,
		TableName:           e.TableName,
		ColumnName:          e.ColumnName,
		DataTypeName:        e.DataTypeName,
		ConstraintName:      e.ConstraintName,
		File:                e.File,
		Line:                e.Line,
		Routine:             e.Routine,
	}
}

// ErrorDataFromResponse builds an ErrorData from the wire form.
func ErrorDataFromResponse(r *pgproto3.ErrorResponse) *ErrorData {
	return &ErrorData{
		Severity:         r.Severity,
		Code:             r.Code,
		Message:          r.Message,
		Detail:           r.Detail,
		Hint:             r.Hint,
		Position:         r.Position,
		InternalPosition: r.InternalPosition,
		InternalQuery:    r.InternalQuery,
		Where:            r.Where,
		SchemaName:       r.SchemaName,
		TableName:        r.TableName,
		ColumnName:       r.ColumnName,
		DataTypeName:     r.DataTypeName,
		ConstraintName:   r.ConstraintName,
		File:             r.File,
		Line:             r.Line,
		Routine:          r.Routine,
	}
}

// ServerError is an error raised by the server while Java code was on the
// stack. Once one occurs the invocation is poisoned: no further server
// operations may run in it, and if the Java code lets the wrapping
// exception propagate out of the call, this same value resurfaces so the
// original report reaches the server untouched.
type ServerError struct {
	Data *ErrorData
}

func (e *ServerError) Error() string { return e.Data.Error() }

// JavaError is an exception thrown by Java code. ClassName holds the
// exception class, SQLState the value carried by an SQLException (empty
// otherwise), and Server the original ServerError when the exception is
// (or wraps) the one re-thrown for a server error.
type JavaError struct {
	ClassName  string
	Message    string
	SQLState   string
	StackTrace []string
	Server     *ServerError
}

func (e *JavaError) Error() string {
	if e.Message == "" {
		return e.ClassName
	}
	return e.ClassName + ": " + e.Message
}

// Unwrap exposes the original server error for errors.Is chains.
func (e *JavaError) Unwrap() error {
	if e.Server == nil {
		return nil
	}
	return e.Server
}

// ErrorToRaise converts an error escaping a Java call into what the caller
// must raise. A server error travels back unchanged; a Java exception is
// folded into an error report whose SQLSTATE is the SQLException's when it
// carries a plausible one, the external-routine-exception class otherwise.
func ErrorToRaise(err error) *ErrorData {
	var je *JavaError
	if errors.As(err, &je) {
		if je.Server != nil {
			return je.Server.Data
		}
		code := CodeExternalRoutineException
		if validSQLState(je.SQLState) {
			code = je.SQLState
		}
		data := &ErrorData{
			Severity: "ERROR",
			Code:     code,
			Message:  je.Error(),
		}
		if len(je.StackTrace) > 0 {
			data.Where = strings.Join(je.StackTrace, "\n")
		}
		return data
	}

	var se *ServerError
	if errors.As(err, &se) {
		return se.Data
	}

	return &ErrorData{Severity: "ERROR", Code: CodeInternalError, Message: err.Error()}
}

func validSQLState(s string) bool {
	if len(s) != 5 {
		return false
	}
	for i := 0; i < 5; i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'A' || c > 'Z') {
			return false
		}
	}
	return true
}
