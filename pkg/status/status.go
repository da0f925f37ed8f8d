// Package status implements the fallible-operation status taxonomy shared
// by every hot-path stage of the sender and receiver pipelines.
package status

import "fmt"

// Code is one of the fallible-operation outcomes a pipeline stage can
// return instead of panicking or throwing.
type Code int

// Status codes, in the order they appear in the error taxonomy.
const (
	// OK means the operation completed successfully.
	OK Code = iota
	// NoMem means a pool or arena allocation failed.
	NoMem
	// BadConfig means a configuration value is invalid or inconsistent.
	BadConfig
	// BadBuffer means a packet or buffer is malformed.
	BadBuffer
	// BadProtocol means a packet arrived on the wrong protocol/endpoint.
	BadProtocol
	// NoRoute means no route matched the packet being dispatched.
	NoRoute
	// BadOperation means the call was made out of state-machine order.
	BadOperation
	// Drained means the upstream has finished and has no more data.
	Drained
	// Again means the operation would block; retry later.
	Again
	// Aborted means the operation was cancelled.
	Aborted
	// End means a clean, expected shutdown.
	End
)

func (c Code) String() string {
	switch c {
	case OK:
		return "ok"
	case NoMem:
		return "no_mem"
	case BadConfig:
		return "bad_config"
	case BadBuffer:
		return "bad_buffer"
	case BadProtocol:
		return "bad_protocol"
	case NoRoute:
		return "no_route"
	case BadOperation:
		return "bad_operation"
	case Drained:
		return "drained"
	case Again:
		return "again"
	case Aborted:
		return "aborted"
	case End:
		return "end"
	default:
		return "unknown"
	}
}

// Status is a status code carrying an optional explanatory message and an
// optional wrapped cause. It implements error so it composes with %w.
type Status struct {
	Code    Code
	Message string
	Cause   error
}

// New creates a Status with no message.
func New(code Code) *Status {
	return &Status{Code: code}
}

// Newf creates a Status with a formatted message.
func Newf(code Code, format string, args ...interface{}) *Status {
	return &Status{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a Status that carries an underlying cause.
func Wrap(code Code, cause error) *Status {
	return &Status{Code: code, Cause: cause}
}

func (s *Status) Error() string {
	if s == nil {
		return OK.String()
	}
	if s.Cause != nil {
		if s.Message != "" {
			return fmt.Sprintf("%s: %s: %v", s.Code, s.Message, s.Cause)
		}
		return fmt.Sprintf("%s: %v", s.Code, s.Cause)
	}
	if s.Message != "" {
		return fmt.Sprintf("%s: %s", s.Code, s.Message)
	}
	return s.Code.String()
}

func (s *Status) Unwrap() error {
	if s == nil {
		return nil
	}
	return s.Cause
}

// Is reports whether err is a *Status with the given code, so callers can
// do status.Is(err, status.Drained) instead of type-asserting by hand.
func Is(err error, code Code) bool {
	s, ok := err.(*Status)
	return ok && s != nil && s.Code == code
}

// IsOK reports whether err represents success (nil, or an explicit OK
// status — the latter should not normally be constructed, but is handled
// for completeness).
func IsOK(err error) bool {
	if err == nil {
		return true
	}
	return Is(err, OK)
}
