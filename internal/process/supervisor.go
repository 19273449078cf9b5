// Package process runs the external executable for mapper instances.
//
// Start failures are returned as fatal errors. Once the process is
// running, read failures and non-zero exits are only logged and recorded
// on the Invocation; the caller carries on with whatever output was
// captured.
package process

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os/exec"
	"strings"

	"github.com/suenchunyu/wordcount/internal/model"
)

// Command is the executable and the fixed argument list passed to every
// invocation, plus the directory it runs in.
type Command struct {
	Path string
	Args []string
	Dir  string
}

func (c Command) String() string {
	return "[" + strings.Join(append([]string{c.Path}, c.Args...), ", ") + "]"
}

// Sink receives every output line that survives duplicate collapsing,
// as soon as it is read.
type Sink func(line string)

// Invocation is the outcome of one run of the external command.
type Invocation struct {
	Command  Command
	Output   []string // combined stdout/stderr, consecutive duplicates collapsed
	ExitCode int
	Tail     string // last bytes of raw output
	ReadErr  error  // absorbed output read failure
	ExitErr  error  // absorbed non-zero exit or wait failure
}

// Err joins the absorbed failures of the invocation, nil on success.
func (i *Invocation) Err() error {
	return errors.Join(i.ReadErr, i.ExitErr)
}

func (i *Invocation) Succeeded() bool {
	return i.Err() == nil && i.ExitCode == 0
}

type Option func(s *Supervisor)

func WithTask(task string) Option {
	return func(s *Supervisor) {
		s.task = task
	}
}

func WithSink(sink Sink) Option {
	return func(s *Supervisor) {
		s.sink = sink
	}
}

func WithTailSize(size int) Option {
	return func(s *Supervisor) {
		s.tailSize = size
	}
}

// Supervisor launches one Command and waits for it. It holds no state
// between invocations.
type Supervisor struct {
	cmd      Command
	task     string
	sink     Sink
	tailSize int
}

var _ Invoker = new(Supervisor)

func New(cmd Command, opts ...Option) *Supervisor {
	s := &Supervisor{
		cmd:      cmd,
		tailSize: defaultTailSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.sink == nil {
		task := s.task
		s.sink = func(line string) {
			log.Printf("[%s] %s\n", task, line)
		}
	}
	return s
}

func (s *Supervisor) Command() Command {
	return s.cmd
}

// Invoke starts the command with stderr merged into stdout, reads its
// output to the end and waits for it to exit. The only errors returned
// are a process start failure and cancellation of ctx.
func (s *Supervisor) Invoke(ctx context.Context) (*Invocation, error) {
	cmd := exec.CommandContext(ctx, s.cmd.Path, s.cmd.Args...)
	cmd.Dir = s.cmd.Dir
	configure(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, model.NewError(model.KindProcessStart, "pipe", s.cmd.Path, err)
	}
	cmd.Stderr = cmd.Stdout

	log.Printf("[%s] exec %s in %s\n", s.task, s.cmd, s.cmd.Dir)
	if err := cmd.Start(); err != nil {
		return nil, model.NewError(model.KindProcessStart, "start", s.cmd.Path, err)
	}

	inv := &Invocation{Command: s.cmd}
	tail := NewTail(s.tailSize)

	output, readErr := Collapse(io.TeeReader(stdout, tail), s.sink)
	inv.Output = output
	if readErr != nil {
		inv.ReadErr = model.NewError(model.KindProcessRun, "read", s.cmd.Path, readErr)
		log.Printf("[%s] %v\n", s.task, inv.ReadErr)
		// keep the child from blocking on a full pipe
		_, _ = io.Copy(io.Discard, stdout)
	}

	waitErr := cmd.Wait()
	if cmd.ProcessState != nil {
		inv.ExitCode = cmd.ProcessState.ExitCode()
	}
	inv.Tail = tail.String()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return inv, ctxErr
	}

	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			inv.ExitErr = model.NewError(model.KindProcessExit, "wait", s.cmd.Path,
				fmt.Errorf("exit status %d, output tail: %q", inv.ExitCode, inv.Tail))
		} else {
			inv.ExitErr = model.NewError(model.KindProcessRun, "wait", s.cmd.Path, waitErr)
		}
		log.Printf("[%s] %v\n", s.task, inv.ExitErr)
		return inv, nil
	}

	if inv.ExitCode == 0 {
		log.Printf("[%s] mapper successful\n", s.task)
	}
	return inv, nil
}

// Collapse reads r line by line and returns the lines with consecutive
// duplicates removed. Each kept line is passed to sink as it is read.
// On a read error the lines kept so far are returned with the error.
func Collapse(r io.Reader, sink Sink) ([]string, error) {
	var (
		out      []string
		previous string
		seen     bool
	)

	keep := func(line string) {
		if seen && line == previous {
			return
		}
		seen = true
		previous = line
		out = append(out, line)
		if sink != nil {
			sink(line)
		}
	}

	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				if len(line) > 0 {
					keep(trimEOL(line))
				}
				return out, nil
			}
			return out, err
		}
		keep(trimEOL(line))
	}
}

func trimEOL(line string) string {
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r")
}
