package worker

import (
	"context"
	"errors"
	"log"

	"github.com/suenchunyu/wordcount/internal/model"
)

// Reporter publishes status to the surrounding runtime. Reports are
// observability only: a failing Reporter never fails a task.
type Reporter interface {
	Report(ctx context.Context, status model.Status) error
}

// LogReporter writes each status to the standard logger.
type LogReporter struct{}

func (LogReporter) Report(ctx context.Context, status model.Status) error {
	log.Printf("[%s] status: %s (%s)\n", status.Task, status.Message, status.Counters)
	return nil
}

type multiReporter []Reporter

// MultiReporter sends every status to each reporter in turn and joins
// their errors.
func MultiReporter(reporters ...Reporter) Reporter {
	return multiReporter(reporters)
}

func (m multiReporter) Report(ctx context.Context, status model.Status) error {
	var errs []error
	for _, r := range m {
		if err := r.Report(ctx, status); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
