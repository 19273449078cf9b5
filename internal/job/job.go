// Package job runs a whole word count on the local machine: it cuts the
// input into splits, runs one mapper instance per split in parallel,
// combines and shuffles their output by key, runs the reducers and
// commits the result.
package job

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/suenchunyu/wordcount/internal/config"
	"github.com/suenchunyu/wordcount/internal/model"
	"github.com/suenchunyu/wordcount/internal/pattern"
	"github.com/suenchunyu/wordcount/internal/process"
	"github.com/suenchunyu/wordcount/internal/worker"
)

// InvokerFunc builds the external command invoker of one mapper instance.
type InvokerFunc func(task *model.Task, job config.Job) process.Invoker

type Option func(r *Runner)

// WithSkipFiles enables skip-pattern filtering with the given local files.
func WithSkipFiles(paths []string) Option {
	return func(r *Runner) {
		r.skipEnabled = true
		r.skipFiles = append([]string(nil), paths...)
	}
}

func WithReporter(reporter worker.Reporter) Option {
	return func(r *Runner) {
		r.reporter = reporter
	}
}

func WithUploader(uploader Uploader) Option {
	return func(r *Runner) {
		r.uploader = uploader
	}
}

func WithInvoker(fn InvokerFunc) Option {
	return func(r *Runner) {
		r.newInvoker = fn
	}
}

// Runner executes one job. Mapper instances share nothing but the
// read-only job value and skip-file list.
type Runner struct {
	job         config.Job
	skipEnabled bool
	skipFiles   []string
	reporter    worker.Reporter
	uploader    Uploader
	newInvoker  InvokerFunc
}

// Result describes a finished job.
type Result struct {
	MapTasks    int
	ReduceTasks int
	Words       int // distinct words written
	Parts       []string
	Counters    model.Counters
	Elapsed     time.Duration
}

func New(job config.Job, opts ...Option) *Runner {
	r := &Runner{
		job:        job,
		reporter:   worker.LogReporter{},
		newInvoker: worker.NewInvoker,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type mapOutput struct {
	partitions [][]model.Pair
	counters   model.Counters
}

// Run executes the job. On any fatal error, sibling mapper instances are
// cancelled and nothing is written to the output location.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	started := time.Now()

	if err := checkOutput(r.job.Output); err != nil {
		return nil, err
	}
	if err := checkArtifact(r.job); err != nil {
		return nil, err
	}

	tasks, err := Splits(r.job.Input, r.job.SplitSize)
	if err != nil {
		return nil, model.NewError(model.KindConfiguration, "split", r.job.Input, err)
	}
	log.Printf("job %s: %d map tasks, %d reduce tasks\n", r.job.Name, len(tasks), r.job.Reducers)

	outputs, err := r.runMaps(ctx, tasks)
	if err != nil {
		return nil, err
	}

	c, err := newCommitter(r.job.Output)
	if err != nil {
		return nil, err
	}

	words, err := r.runReduces(ctx, c, outputs)
	if err != nil {
		c.abort()
		return nil, err
	}

	parts, err := c.commit(r.job.Reducers)
	if err != nil {
		c.abort()
		return nil, err
	}

	if r.uploader != nil {
		if err := r.uploader.Upload(ctx, parts); err != nil {
			return nil, err
		}
	}

	counters := make(model.Counters)
	for _, out := range outputs {
		counters.Merge(out.counters)
	}

	return &Result{
		MapTasks:    len(tasks),
		ReduceTasks: r.job.Reducers,
		Words:       words,
		Parts:       parts,
		Counters:    counters,
		Elapsed:     time.Since(started),
	}, nil
}

func (r *Runner) runMaps(ctx context.Context, tasks []*model.Task) ([]*mapOutput, error) {
	outputs := make([]*mapOutput, len(tasks))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.job.Mappers)
	for i, task := range tasks {
		g.Go(func() error {
			out, err := r.runMap(ctx, task)
			if err != nil {
				return err
			}
			outputs[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outputs, nil
}

// runMap is one mapper instance: it loads its own skip patterns, then
// processes the records of its split one at a time.
func (r *Runner) runMap(ctx context.Context, task *model.Task) (*mapOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	patterns := pattern.Empty
	if r.skipEnabled {
		patterns = pattern.Load(r.skipFiles)
	}

	m := worker.NewMapper(task, r.job, patterns, r.newInvoker(task, r.job), r.reporter)
	mc := worker.NewMapContext(task, r.job.Reducers)

	err := ReadSplit(task, func(rec model.Record) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return m.Map(ctx, rec, mc)
	})
	counters := m.Close(ctx)
	if err != nil {
		return nil, fmt.Errorf("map task %s: %w", task, err)
	}

	return &mapOutput{
		partitions: mc.Release(),
		counters:   counters,
	}, nil
}

func (r *Runner) runReduces(ctx context.Context, c *committer, outputs []*mapOutput) (int, error) {
	words := make([]int, r.job.Reducers)

	g, ctx := errgroup.WithContext(ctx)
	for p := 0; p < r.job.Reducers; p++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rc := worker.NewReduceContext(model.NewReduceTask(p))
			for _, out := range outputs {
				rc.Add(out.partitions[p])
			}
			if err := worker.Reduce(rc); err != nil {
				return err
			}
			counts := rc.Release()
			words[p] = len(counts)
			return c.writePart(p, counts)
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	total := 0
	for _, n := range words {
		total += n
	}
	return total, nil
}

// checkArtifact fails with a process start error when the external
// artifact is missing. A bare name launched directly is looked up in
// PATH, anything else is resolved against the working directory.
func checkArtifact(job config.Job) error {
	if job.Artifact == "" {
		return nil
	}

	name := job.Artifact
	if job.Command == job.Artifact && !strings.ContainsRune(name, filepath.Separator) {
		if _, err := exec.LookPath(name); err != nil {
			return model.NewError(model.KindProcessStart, "lookup", name, err)
		}
		return nil
	}

	if !filepath.IsAbs(name) && job.Dir != "" {
		name = filepath.Join(job.Dir, name)
	}
	info, err := os.Stat(name)
	if err != nil {
		return model.NewError(model.KindProcessStart, "stat", name, err)
	}
	if info.IsDir() {
		return model.NewError(model.KindProcessStart, "stat", name, fmt.Errorf("is a directory"))
	}
	return nil
}
