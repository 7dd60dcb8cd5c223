// internal/agent/errors.go
package agent

import (
	"errors"
	"fmt"
)

// ErrorCode classifies why a decision could not be turned into an Action.
type ErrorCode string

const (
	// -- Oracle side --
	ErrCodeOracleFailure ErrorCode = "ORACLE_FAILURE"
	ErrCodeEmptyReply    ErrorCode = "EMPTY_REPLY"

	// -- Reply shape --
	ErrCodeMalformedReply    ErrorCode = "MALFORMED_REPLY"
	ErrCodeMissingAction     ErrorCode = "MISSING_ACTION"
	ErrCodeInvalidParameters ErrorCode = "INVALID_PARAMETERS"
)

// DecisionError is returned by Oracle.Decide when no Action could be produced.
// Raw holds the oracle's reply, if one arrived.
type DecisionError struct {
	Code ErrorCode
	Raw  string
	Err  error
}

func (e *DecisionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("decision failed [%s]", e.Code)
	}
	return fmt.Sprintf("decision failed [%s]: %v", e.Code, e.Err)
}

func (e *DecisionError) Unwrap() error { return e.Err }

func newDecisionError(code ErrorCode, raw string, format string, args ...any) *DecisionError {
	return &DecisionError{Code: code, Raw: raw, Err: fmt.Errorf(format, args...)}
}

// IsDecisionError reports whether err is, or wraps, a DecisionError.
func IsDecisionError(err error) bool {
	var de *DecisionError
	return errors.As(err, &de)
}

// ErrTapOffscreen is returned when the reject_offscreen policy blocks a tap.
var ErrTapOffscreen = errors.New("tap coordinates outside the observed screen")
