package timer

import (
	"errors"
	"fmt"

	"github.com/mpolski/tm/internal/tmetric"
)

// Error codes carried by Error and surfaced verbatim to tool callers.
const (
	CodeInitializationError = "INITIALIZATION_ERROR"
	CodeTimerAlreadyRunning = "TIMER_ALREADY_RUNNING"
	CodeNoTimerRunning      = "NO_TIMER_RUNNING"
	CodeNoEntriesFound      = "NO_ENTRIES_FOUND"
	CodeEntryTooOld         = "ENTRY_TOO_OLD"
	CodeAPIError            = "API_ERROR"
	CodeInternalError       = "INTERNAL_ERROR"
)

// Error is the domain error for timer operations. Timer carries the
// conflicting timer's projection when Code is CodeTimerAlreadyRunning.
type Error struct {
	Code    string
	Message string
	Timer   *Info
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newError(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// wrapRemote classifies a remote call failure: account resolution failures
// map to CodeInitializationError, everything else to CodeAPIError.
func wrapRemote(err error) *Error {
	if errors.Is(err, tmetric.ErrAccountResolution) {
		return &Error{Code: CodeInitializationError, Message: err.Error()}
	}
	return &Error{Code: CodeAPIError, Message: err.Error()}
}
