package model

import (
	"fmt"
	"sort"
	"strings"
)

// Record is one input line and the byte offset it starts at.
type Record struct {
	Offset int64
	Line   string
}

// Pair is a key with a count. Mappers emit Pair{word, 1}; combiners and
// reducers emit partial and final sums in the same shape.
type Pair struct {
	Key   string
	Value int64
}

// AggregatedCount is a word with its summed count.
type AggregatedCount = Pair

func (p Pair) String() string {
	return fmt.Sprintf("%s\t%d", p.Key, p.Value)
}

// KeyValues groups every value that shares a key.
type KeyValues struct {
	Key    string
	Values []int64
}

// Emitter receives pairs from a map or reduce function.
type Emitter interface {
	Emit(key string, value int64) error
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(key string, value int64) error

func (f EmitterFunc) Emit(key string, value int64) error {
	return f(key, value)
}

// Counter names.
const (
	CounterInputWords       = "INPUT_WORDS"
	CounterInputRecords     = "MAP_INPUT_RECORDS"
	CounterExecInvocations  = "EXEC_INVOCATIONS"
	CounterExecNonZeroExits = "EXEC_NONZERO_EXITS"
	CounterExecReadErrors   = "EXEC_READ_ERRORS"
)

// Counters holds named, monotonically increasing counters of one
// mapper instance. It is not safe for concurrent use.
type Counters map[string]int64

func (c Counters) Incr(name string, delta int64) {
	if delta < 0 {
		return
	}
	c[name] += delta
}

func (c Counters) Get(name string) int64 {
	return c[name]
}

// Merge adds every counter of other into c.
func (c Counters) Merge(other Counters) {
	for name, value := range other {
		c[name] += value
	}
}

// Snapshot returns a copy that can outlive further increments.
func (c Counters) Snapshot() Counters {
	dst := make(Counters, len(c))
	for name, value := range c {
		dst[name] = value
	}
	return dst
}

func (c Counters) String() string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for i, name := range names {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%s=%d", name, c[name])
	}
	return b.String()
}

// Status is a progress report published by a mapper instance.
type Status struct {
	Task     string
	Source   string
	Message  string
	Counters Counters
}
