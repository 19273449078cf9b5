package worker

import (
	"context"
	"fmt"
	"log"

	"github.com/suenchunyu/wordcount/internal/config"
	"github.com/suenchunyu/wordcount/internal/model"
	"github.com/suenchunyu/wordcount/internal/pattern"
	"github.com/suenchunyu/wordcount/internal/process"
)

// Mapper is one mapper instance. It processes the records of a single
// split sequentially and is not safe for concurrent use.
type Mapper struct {
	task          *model.Task
	caseSensitive bool
	statusEvery   int64

	patterns *pattern.Set    // read-only once the mapper is built
	invoker  process.Invoker // external command cadence
	reporter Reporter

	records  int64
	counters model.Counters
	last     *process.Invocation // a cadence may hand the same invocation out again
}

// NewInvoker builds the external command invoker for one mapper instance.
func NewInvoker(task *model.Task, job config.Job) process.Invoker {
	s := process.New(
		process.Command{Path: job.Command, Args: job.Args, Dir: job.Dir},
		process.WithTask(task.ID),
	)
	return process.NewInvoker(job.Cadence, s)
}

func NewMapper(task *model.Task, job config.Job, patterns *pattern.Set, invoker process.Invoker, reporter Reporter) *Mapper {
	if patterns == nil {
		patterns = pattern.Empty
	}
	if reporter == nil {
		reporter = LogReporter{}
	}
	statusEvery := job.StatusEvery
	if statusEvery <= 0 {
		statusEvery = 100
	}
	return &Mapper{
		task:          task,
		caseSensitive: job.CaseSensitive,
		statusEvery:   statusEvery,
		patterns:      patterns,
		invoker:       invoker,
		reporter:      reporter,
		counters:      make(model.Counters),
	}
}

// Map runs one record through normalize, the external command, the skip
// filter and the tokenizer, emitting (token, 1) for every token.
// It returns an error only when the external command cannot be started,
// ctx is cancelled or emit fails.
func (m *Mapper) Map(ctx context.Context, rec model.Record, emit model.Emitter) error {
	line := Normalize(rec.Line, m.caseSensitive)

	inv, err := m.invoker.Invoke(ctx)
	if err != nil {
		return fmt.Errorf("task %s, record at %d: %w", m.task.ID, rec.Offset, err)
	}
	if inv != m.last {
		m.last = inv
		m.counters.Incr(model.CounterExecInvocations, 1)
		if inv.ReadErr != nil {
			m.counters.Incr(model.CounterExecReadErrors, 1)
		}
		if inv.ExitCode != 0 {
			m.counters.Incr(model.CounterExecNonZeroExits, 1)
		}
	}

	line = m.patterns.Filter(line)

	for token := range Tokens(line) {
		if err := emit.Emit(token, 1); err != nil {
			return err
		}
		m.counters.Incr(model.CounterInputWords, 1)
	}

	m.records++
	m.counters.Incr(model.CounterInputRecords, 1)
	if m.records%m.statusEvery == 0 {
		m.report(ctx, fmt.Sprintf("Finished processing %d records from the input file: %s", m.records, m.task.Source))
	}
	return nil
}

// Close publishes a final status and returns the instance's counters.
func (m *Mapper) Close(ctx context.Context) model.Counters {
	m.report(ctx, fmt.Sprintf("Finished all %d records from the input file: %s", m.records, m.task.Source))
	return m.counters.Snapshot()
}

func (m *Mapper) Records() int64 {
	return m.records
}

func (m *Mapper) Counters() model.Counters {
	return m.counters.Snapshot()
}

func (m *Mapper) report(ctx context.Context, message string) {
	status := model.Status{
		Task:     m.task.ID,
		Source:   m.task.Source,
		Message:  message,
		Counters: m.counters.Snapshot(),
	}
	if err := m.reporter.Report(ctx, status); err != nil {
		log.Printf("[%s] status report failed: %v\n", m.task.ID, err)
	}
}
