package model

import (
	"errors"
	"fmt"
)

// Kind classifies a failure. Only configuration, process start and
// output failures may stop a job; every other kind is logged and absorbed.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindConfiguration
	KindCacheRead
	KindInvalidPattern
	KindProcessStart
	KindProcessRun
	KindProcessExit
	KindOutput
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindCacheRead:
		return "cache read"
	case KindInvalidPattern:
		return "invalid pattern"
	case KindProcessStart:
		return "process start"
	case KindProcessRun:
		return "process run"
	case KindProcessExit:
		return "process exit"
	case KindOutput:
		return "output"
	default:
		return fmt.Sprintf("unknown (%d)", k)
	}
}

// Fatal reports whether a failure of this kind aborts the job.
func (k Kind) Fatal() bool {
	switch k {
	case KindConfiguration, KindProcessStart, KindOutput:
		return true
	default:
		return false
	}
}

type Error struct {
	Kind Kind
	Op   string // operation that failed, e.g. "load", "start", "wait"
	Path string // file, object or executable involved, if any
	Err  error
}

func (e *Error) Error() string {
	msg := e.Kind.String() + " error"
	if e.Op != "" {
		msg += ": " + e.Op
	}
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(kind Kind, op, path string, err error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsFatal reports whether err must stop the job. Errors without a
// Kind are treated as fatal so unexpected failures are never swallowed.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind.Fatal()
	}
	return true
}
