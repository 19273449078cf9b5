package process

import (
	"context"
	"fmt"
	"strings"
)

// Invoker decides how often the external command actually runs for the
// records of one mapper instance.
type Invoker interface {
	Invoke(ctx context.Context) (*Invocation, error)
}

type Cadence uint8

const (
	CadencePerRecord Cadence = iota
	CadenceOnce
)

func (c Cadence) String() string {
	switch c {
	case CadencePerRecord:
		return "per_record"
	case CadenceOnce:
		return "once"
	default:
		return fmt.Sprintf("unknown (%d)", c)
	}
}

func CadenceFromString(str string) Cadence {
	switch strings.ToLower(str) {
	case "once":
		return CadenceOnce
	default:
		return CadencePerRecord
	}
}

// NewInvoker wraps s according to the cadence. The per-record cadence
// is s itself: one process per record.
func NewInvoker(c Cadence, s *Supervisor) Invoker {
	if c == CadenceOnce {
		return Once(s)
	}
	return s
}

type once struct {
	next Invoker
	last *Invocation
}

// Once runs next for the first record and hands the same invocation to
// every later record. A start failure is not cached.
func Once(next Invoker) Invoker {
	return &once{next: next}
}

func (o *once) Invoke(ctx context.Context) (*Invocation, error) {
	if o.last != nil {
		return o.last, nil
	}
	inv, err := o.next.Invoke(ctx)
	if err != nil {
		return inv, err
	}
	o.last = inv
	return inv, nil
}
