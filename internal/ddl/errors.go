package ddl

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	sqlstateInvalidParameterValue = "22023"
	sqlstateCheckViolation        = "23514"
	sqlstateRaiseException        = "P0001"
)

// ParameterError reports numeric options the engine rejected as structurally
// invalid, e.g. scale greater than precision.
type ParameterError struct {
	Cause *pgconn.PgError
}

func (e *ParameterError) Error() string {
	if e == nil || e.Cause == nil {
		return "invalid type parameters"
	}
	return "invalid type parameters: " + e.Cause.Message
}

func (e *ParameterError) Unwrap() error {
	return e.Cause
}

// DataCastError reports a stored value the synthesized expression could not
// convert. The caller must roll back the enclosing transaction.
type DataCastError struct {
	Cause *pgconn.PgError
}

func (e *DataCastError) Error() string {
	if e == nil || e.Cause == nil {
		return "value cannot be cast to the requested type"
	}
	return "value cannot be cast to the requested type: " + e.Cause.Message
}

func (e *DataCastError) Unwrap() error {
	return e.Cause
}

// AsParameterError extracts a ParameterError from an error chain.
func AsParameterError(err error) (*ParameterError, bool) {
	var target *ParameterError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// AsDataCastError extracts a DataCastError from an error chain.
func AsDataCastError(err error) (*DataCastError, bool) {
	var target *DataCastError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// classifyEngineError distinguishes engine errors by SQLSTATE class only.
// Invalid parameter values become ParameterError; data-class failures, domain
// check violations, and cast-function raises become DataCastError. Anything
// else is propagated verbatim.
func classifyEngineError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch {
	case pgErr.Code == sqlstateInvalidParameterValue:
		return &ParameterError{Cause: pgErr}
	case strings.HasPrefix(pgErr.Code, "22"),
		pgErr.Code == sqlstateCheckViolation,
		pgErr.Code == sqlstateRaiseException:
		return &DataCastError{Cause: pgErr}
	}
	return err
}
