package ffi

import (
	"errors"

	"mvlcdaq/pkg/transport"
)

// ErrorKind tags the category half of an ErrorPair.
type ErrorKind int32

const (
	ErrorNone ErrorKind = iota
	ErrorTransportTimeout
	ErrorTransportIO
	ErrorProtocolFraming
	ErrorStackExecError
	ErrorCommandTooLarge
	ErrorListfileIO
	ErrorBufferPoolExhausted
	ErrorUnknown
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorNone:
		return "None"
	case ErrorTransportTimeout:
		return "TransportTimeout"
	case ErrorTransportIO:
		return "TransportIO"
	case ErrorProtocolFraming:
		return "ProtocolFraming"
	case ErrorStackExecError:
		return "StackExecError"
	case ErrorCommandTooLarge:
		return "CommandTooLarge"
	case ErrorListfileIO:
		return "ListfileIO"
	case ErrorBufferPoolExhausted:
		return "BufferPoolExhausted"
	default:
		return "Unknown"
	}
}

// ErrorPair is the C-layout (code, category) pair a foreign caller
// receives in place of a Go error: Code is the ErrorKind as a plain
// int32, Category is its string name.
type ErrorPair struct {
	Code     int32
	Category string
}

// OK is the ErrorPair meaning no error: code ErrorNone, category "None".
var OK = ErrorPair{Code: int32(ErrorNone), Category: ErrorNone.String()}

// FromError classifies a Go error into an ErrorPair. Transport timeouts
// map to ErrorTransportTimeout (expected, retried silently upstream);
// anything unrecognized maps to ErrorUnknown with the error's message as
// Category, rather than losing the detail.
func FromError(err error) ErrorPair {
	if err == nil {
		return OK
	}
	kind := ErrorUnknown
	switch {
	case errors.Is(err, transport.ErrTimeout):
		kind = ErrorTransportTimeout
	}
	if kind == ErrorUnknown {
		return ErrorPair{Code: int32(ErrorUnknown), Category: err.Error()}
	}
	return ErrorPair{Code: int32(kind), Category: kind.String()}
}
