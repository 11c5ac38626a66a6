package mixam

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownStatus is wrapped when the broker reports a status with no local
// equivalent.
var ErrUnknownStatus = errors.New("unknown mixam status")

// Error is returned by every broker operation. Reason carries the broker's own
// message verbatim when one was returned.
type Error struct {
	Op         string
	StatusCode int
	Reason     string
	Err        error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("mixam %s: status %d: %s", e.Op, e.StatusCode, e.Reason)
	}
	return fmt.Sprintf("mixam %s: %s", e.Op, e.Reason)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *Error) UpstreamOp() string     { return e.Op }
func (e *Error) UpstreamStatus() int    { return e.StatusCode }
func (e *Error) UpstreamReason() string { return e.Reason }

// AsError extracts a broker error from err's chain.
func AsError(err error) (*Error, bool) {
	var mxErr *Error
	if errors.As(err, &mxErr) {
		return mxErr, true
	}
	return nil, false
}

// inProductionPhrases are the refusal texts the broker uses once printing has
// started. The broker also answers 409 for already-cancelled orders and
// duplicate requests, so the status code alone is not checked.
var inProductionPhrases = []string{"in production", "in_production", "already printing", "production has started"}

// IsInProduction reports whether the broker refused an operation because the
// order is already being printed.
func IsInProduction(err error) bool {
	mxErr, ok := AsError(err)
	if !ok {
		return false
	}
	reason := strings.ToLower(mxErr.Reason)
	for _, phrase := range inProductionPhrases {
		if strings.Contains(reason, phrase) {
			return true
		}
	}
	return false
}
