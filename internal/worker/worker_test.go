package worker

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"reflect"
	"slices"
	"strings"
	"testing"

	"github.com/suenchunyu/wordcount/internal/config"
	"github.com/suenchunyu/wordcount/internal/model"
	"github.com/suenchunyu/wordcount/internal/pattern"
	"github.com/suenchunyu/wordcount/internal/process"
)

func TestNormalize(t *testing.T) {
	lines := []string{"the Cat sat on the MAT", "ÀÉÎ mixed CASE", "", "already lower"}
	for _, line := range lines {
		if got := Normalize(line, true); got != line {
			t.Errorf("case-sensitive Normalize(%q) = %q", line, got)
		}
		folded := Normalize(line, false)
		if folded != strings.ToLower(folded) {
			t.Errorf("Normalize(%q) = %q is not lower case", line, folded)
		}
	}
}

func TestTokens(t *testing.T) {
	tests := []struct {
		line string
		want []string
	}{
		{"the cat sat", []string{"the", "cat", "sat"}},
		{"  leading and  double  ", []string{"leading", "and", "double"}},
		{"tab\tform\fcr\rnl\n", []string{"tab", "form", "cr", "nl"}},
		{"punct, stays!", []string{"punct,", "stays!"}},
		{"", nil},
		{" \t ", nil},
	}

	for _, tt := range tests {
		got := slices.Collect(Tokens(tt.line))
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Tokens(%q) = %q, want %q", tt.line, got, tt.want)
		}
	}
}

func TestTokensStopsEarly(t *testing.T) {
	var got []string
	for token := range Tokens("a b c d") {
		got = append(got, token)
		if len(got) == 2 {
			break
		}
	}
	if !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("got %q", got)
	}
}

func TestAggregateAssociative(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for round := 0; round < 50; round++ {
		values := make([]int64, rng.Intn(200))
		for i := range values {
			values[i] = int64(rng.Intn(5))
		}
		whole := Aggregate("w", values)

		var partials []int64
		for rest := values; len(rest) > 0; {
			n := 1 + rng.Intn(len(rest))
			partials = append(partials, Aggregate("w", rest[:n]).Value)
			rest = rest[n:]
		}
		if got := Aggregate("w", partials); got != whole {
			t.Fatalf("round %d: partial sums %v != whole %v", round, got, whole)
		}
	}
}

func TestPartitionStable(t *testing.T) {
	for _, key := range []string{"the", "cat", "", "ÀÉÎ"} {
		p := Partition(key, 7)
		if p < 0 || p >= 7 {
			t.Fatalf("Partition(%q) = %d out of range", key, p)
		}
		if Partition(key, 7) != p {
			t.Fatalf("Partition(%q) not stable", key)
		}
	}
}

func TestMapReduceContexts(t *testing.T) {
	m1 := NewMapContext(model.NewMapTask(0, "a", 0, 10), 3)
	m2 := NewMapContext(model.NewMapTask(1, "b", 0, 10), 3)
	for _, w := range strings.Fields("the cat sat on the mat") {
		_ = m1.Emit(w, 1)
	}
	for i := 0; i < 3000; i++ {
		_ = m2.Emit("the", 1)
	}
	if m2.Emitted() != 3000 {
		t.Errorf("Emitted() = %d", m2.Emitted())
	}

	got := map[string]int64{}
	out1, out2 := m1.Release(), m2.Release()
	for p := 0; p < 3; p++ {
		r := NewReduceContext(model.NewReduceTask(p))
		r.Add(out1[p])
		r.Add(out2[p])
		for _, kv := range r.KeyValues() {
			if Partition(kv.Key, 3) != p {
				t.Errorf("key %q landed in partition %d", kv.Key, p)
			}
		}
		if err := Reduce(r); err != nil {
			t.Fatal(err)
		}
		for _, c := range r.Release() {
			got[c.Key] += c.Value
		}
	}

	want := map[string]int64{"the": 3002, "cat": 1, "sat": 1, "on": 1, "mat": 1}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("counts = %v, want %v", got, want)
	}
}

type fakeInvoker struct {
	calls int
	inv   *process.Invocation
	err   error
}

func (f *fakeInvoker) Invoke(ctx context.Context) (*process.Invocation, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	inv := *f.inv
	return &inv, nil
}

type recordingReporter struct {
	statuses []model.Status
	err      error
}

func (r *recordingReporter) Report(ctx context.Context, status model.Status) error {
	r.statuses = append(r.statuses, status)
	return r.err
}

func collect(t *testing.T, m *Mapper, lines ...string) []model.Pair {
	t.Helper()
	var pairs []model.Pair
	emit := model.EmitterFunc(func(key string, value int64) error {
		pairs = append(pairs, model.Pair{Key: key, Value: value})
		return nil
	})
	var offset int64
	for _, line := range lines {
		if err := m.Map(context.Background(), model.Record{Offset: offset, Line: line}, emit); err != nil {
			t.Fatalf("Map(%q) error = %v", line, err)
		}
		offset += int64(len(line)) + 1
	}
	return pairs
}

func testJob(caseSensitive bool) config.Job {
	return config.Job{CaseSensitive: caseSensitive, StatusEvery: 100}
}

func TestMapperCaseInsensitive(t *testing.T) {
	inv := &fakeInvoker{inv: &process.Invocation{}}
	m := NewMapper(model.NewMapTask(0, "in.txt", 0, 100), testJob(false), nil, inv, &recordingReporter{})

	pairs := collect(t, m, "the Cat sat on the MAT")

	want := []model.Pair{{"the", 1}, {"cat", 1}, {"sat", 1}, {"on", 1}, {"the", 1}, {"mat", 1}}
	if !reflect.DeepEqual(pairs, want) {
		t.Errorf("pairs = %v, want %v", pairs, want)
	}
	if inv.calls != 1 {
		t.Errorf("external command invoked %d times, want 1", inv.calls)
	}
	if got := m.Counters().Get(model.CounterInputWords); got != 6 {
		t.Errorf("INPUT_WORDS = %d, want 6", got)
	}

	r := NewReduceContext(model.NewReduceTask(0))
	r.Add(pairs)
	if err := Reduce(r); err != nil {
		t.Fatal(err)
	}
	counts := map[string]int64{}
	for _, c := range r.Release() {
		counts[c.Key] = c.Value
	}
	wantCounts := map[string]int64{"the": 2, "cat": 1, "sat": 1, "on": 1, "mat": 1}
	if !reflect.DeepEqual(counts, wantCounts) {
		t.Errorf("counts = %v, want %v", counts, wantCounts)
	}
}

func TestMapperSkipPattern(t *testing.T) {
	inv := &fakeInvoker{inv: &process.Invocation{}}
	m := NewMapper(model.NewMapTask(0, "in.txt", 0, 100), testJob(false), pattern.Parse("cat"), inv, &recordingReporter{})

	pairs := collect(t, m, "the Cat sat on the MAT")
	for _, p := range pairs {
		if p.Key == "cat" {
			t.Fatal("skip pattern did not remove cat")
		}
	}
	if len(pairs) != 5 {
		t.Errorf("got %d pairs, want 5", len(pairs))
	}
}

func TestMapperCaseSensitive(t *testing.T) {
	inv := &fakeInvoker{inv: &process.Invocation{}}
	m := NewMapper(model.NewMapTask(0, "in.txt", 0, 100), testJob(true), pattern.Parse("cat"), inv, nil)

	pairs := collect(t, m, "Cat cat")
	if want := []model.Pair{{"Cat", 1}}; !reflect.DeepEqual(pairs, want) {
		t.Errorf("pairs = %v, want %v", pairs, want)
	}
}

func TestMapperNonZeroExitStillEmits(t *testing.T) {
	inv := &fakeInvoker{inv: &process.Invocation{
		Output:   []string{"valid output"},
		ExitCode: 1,
		ExitErr:  model.NewError(model.KindProcessExit, "wait", "tool", errors.New("exit status 1")),
	}}
	m := NewMapper(model.NewMapTask(0, "in.txt", 0, 100), testJob(true), nil, inv, nil)

	pairs := collect(t, m, "a b", "c")
	if len(pairs) != 3 {
		t.Errorf("got %d pairs, want 3", len(pairs))
	}
	if got := m.Counters().Get(model.CounterExecNonZeroExits); got != 2 {
		t.Errorf("EXEC_NONZERO_EXITS = %d, want 2", got)
	}
}

func TestMapperReadErrorStillEmits(t *testing.T) {
	inv := &fakeInvoker{inv: &process.Invocation{
		Output:  []string{"partial"},
		ReadErr: model.NewError(model.KindProcessRun, "read", "tool", errors.New("broken pipe")),
	}}
	m := NewMapper(model.NewMapTask(0, "in.txt", 0, 100), testJob(true), nil, inv, nil)

	pairs := collect(t, m, "a b", "c")
	if want := []model.Pair{{"a", 1}, {"b", 1}, {"c", 1}}; !reflect.DeepEqual(pairs, want) {
		t.Errorf("pairs = %v, want %v", pairs, want)
	}
	counters := m.Counters()
	if got := counters.Get(model.CounterExecReadErrors); got != 2 {
		t.Errorf("EXEC_READ_ERRORS = %d, want 2", got)
	}
	if got := counters.Get(model.CounterExecNonZeroExits); got != 0 {
		t.Errorf("EXEC_NONZERO_EXITS = %d, want 0", got)
	}
	if got := counters.Get(model.CounterInputRecords); got != 2 {
		t.Errorf("MAP_INPUT_RECORDS = %d, want 2", got)
	}
}

func TestMapperStartFailureIsFatal(t *testing.T) {
	startErr := model.NewError(model.KindProcessStart, "start", "tool", errors.New("no such file"))
	m := NewMapper(model.NewMapTask(0, "in.txt", 0, 100), testJob(true), nil, &fakeInvoker{err: startErr}, nil)

	emitted := 0
	err := m.Map(context.Background(), model.Record{Line: "a b"}, model.EmitterFunc(func(string, int64) error {
		emitted++
		return nil
	}))
	if model.KindOf(err) != model.KindProcessStart || !model.IsFatal(err) {
		t.Fatalf("Map() error = %v, want fatal process start error", err)
	}
	if emitted != 0 {
		t.Errorf("emitted %d pairs after start failure", emitted)
	}
}

func TestMapperStatusEvery100(t *testing.T) {
	reporter := &recordingReporter{err: errors.New("monitor down")}
	inv := &fakeInvoker{inv: &process.Invocation{}}
	m := NewMapper(model.NewMapTask(3, "/data/in.txt", 0, 100), testJob(true), nil, inv, reporter)

	lines := make([]string, 250)
	for i := range lines {
		lines[i] = fmt.Sprintf("w%d", i)
	}
	collect(t, m, lines...)

	if len(reporter.statuses) != 2 {
		t.Fatalf("got %d statuses, want 2", len(reporter.statuses))
	}
	want := "Finished processing 200 records from the input file: /data/in.txt"
	if got := reporter.statuses[1].Message; got != want {
		t.Errorf("status = %q, want %q", got, want)
	}
	if reporter.statuses[0].Task != "m-00003" {
		t.Errorf("task = %q", reporter.statuses[0].Task)
	}

	counters := m.Close(context.Background())
	if counters.Get(model.CounterInputRecords) != 250 {
		t.Errorf("MAP_INPUT_RECORDS = %d, want 250", counters.Get(model.CounterInputRecords))
	}
	if len(reporter.statuses) != 3 {
		t.Errorf("Close did not report a final status")
	}
}

func TestMapperWithExternalCommand(t *testing.T) {
	job := testJob(false)
	job.Command = "/bin/sh"
	job.Args = []string{"-c", "echo run; echo run; exit 1"}
	job.Dir = t.TempDir()
	job.Cadence = process.CadencePerRecord

	task := model.NewMapTask(0, "in.txt", 0, 100)
	m := NewMapper(task, job, nil, NewInvoker(task, job), nil)

	pairs := collect(t, m, "One two", "two")
	if len(pairs) != 3 {
		t.Errorf("got %d pairs, want 3", len(pairs))
	}
	if got := m.Counters().Get(model.CounterExecNonZeroExits); got != 2 {
		t.Errorf("EXEC_NONZERO_EXITS = %d, want 2", got)
	}
	if got := m.Counters().Get(model.CounterExecInvocations); got != 2 {
		t.Errorf("EXEC_INVOCATIONS = %d, want 2", got)
	}
}

func TestMapperOnceCadence(t *testing.T) {
	job := testJob(false)
	job.Command = "/bin/sh"
	job.Args = []string{"-c", "echo run; exit 3"}
	job.Dir = t.TempDir()
	job.Cadence = process.CadenceOnce

	task := model.NewMapTask(0, "in.txt", 0, 100)
	m := NewMapper(task, job, nil, NewInvoker(task, job), nil)

	pairs := collect(t, m, "a", "b c", "d")
	if len(pairs) != 4 {
		t.Errorf("got %d pairs, want 4", len(pairs))
	}
	counters := m.Counters()
	if got := counters.Get(model.CounterExecInvocations); got != 1 {
		t.Errorf("EXEC_INVOCATIONS = %d, want 1", got)
	}
	if got := counters.Get(model.CounterExecNonZeroExits); got != 1 {
		t.Errorf("EXEC_NONZERO_EXITS = %d, want 1", got)
	}
	if got := counters.Get(model.CounterInputRecords); got != 3 {
		t.Errorf("MAP_INPUT_RECORDS = %d, want 3", got)
	}
}

func TestMultiReporter(t *testing.T) {
	a, b := &recordingReporter{}, &recordingReporter{err: errors.New("down")}
	err := MultiReporter(a, b, LogReporter{}).Report(context.Background(), model.Status{Task: "m-00000"})
	if err == nil {
		t.Error("error from one reporter was dropped")
	}
	if len(a.statuses) != 1 || len(b.statuses) != 1 {
		t.Error("status not delivered to every reporter")
	}
}
