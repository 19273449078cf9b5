package model

import (
	"errors"
	"fmt"
	"io"
	"testing"
)

func TestErrorKind(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		kind  Kind
		fatal bool
	}{
		{"nil", nil, KindUnknown, false},
		{"plain", io.EOF, KindUnknown, true},
		{"configuration", NewError(KindConfiguration, "validate", "", io.EOF), KindConfiguration, true},
		{"cache read", NewError(KindCacheRead, "load", "/tmp/skip", io.EOF), KindCacheRead, false},
		{"invalid pattern", NewError(KindInvalidPattern, "compile", "(", nil), KindInvalidPattern, false},
		{"process start", NewError(KindProcessStart, "start", "java", io.EOF), KindProcessStart, true},
		{"process run", NewError(KindProcessRun, "read", "java", io.EOF), KindProcessRun, false},
		{"process exit", NewError(KindProcessExit, "wait", "java", nil), KindProcessExit, false},
		{"output", NewError(KindOutput, "write", "/out", io.EOF), KindOutput, true},
		{"wrapped", fmt.Errorf("task m-00001: %w", NewError(KindProcessStart, "start", "java", io.EOF)), KindProcessStart, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.kind {
				t.Errorf("KindOf() = %v, want %v", got, tt.kind)
			}
			if got := IsFatal(tt.err); got != tt.fatal {
				t.Errorf("IsFatal() = %v, want %v", got, tt.fatal)
			}
		})
	}
}

func TestErrorMessageAndUnwrap(t *testing.T) {
	err := NewError(KindCacheRead, "load", "/tmp/skip.txt", io.ErrUnexpectedEOF)

	want := "cache read error: load /tmp/skip.txt: unexpected EOF"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Error("errors.Is did not reach the wrapped error")
	}
}

func TestCountersMergeAndString(t *testing.T) {
	a := Counters{}
	a.Incr(CounterInputWords, 3)
	a.Incr(CounterInputRecords, 1)
	a.Incr(CounterInputWords, -5)

	b := Counters{CounterInputWords: 2}
	b.Merge(a)

	if got := b.Get(CounterInputWords); got != 5 {
		t.Errorf("INPUT_WORDS = %d, want 5", got)
	}

	snap := b.Snapshot()
	b.Incr(CounterInputWords, 1)
	if snap.Get(CounterInputWords) != 5 {
		t.Error("snapshot changed after increment")
	}

	if got, want := snap.String(), "INPUT_WORDS=5 MAP_INPUT_RECORDS=1"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
