// Package monitor is the status channel between mapper instances and
// the surrounding runtime. Mapper instances push their progress and
// counters; the Monitor keeps the latest report of every task.
package monitor

import (
	"context"
	"errors"
	"log"
	"sort"
	"sync"
	"time"

	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/suenchunyu/wordcount/internal/model"
)

var (
	ErrMissingTask = errors.New("status report without task")
)

// entry is the latest report of one task.
type entry struct {
	status     model.Status
	reportedAt time.Time
}

// Monitor collects status reports. It is safe for concurrent use.
type Monitor struct {
	mu    *sync.RWMutex
	tasks map[string]*entry
}

var _ MonitorServiceServer = new(Monitor)

func New() *Monitor {
	return &Monitor{
		mu:    new(sync.RWMutex),
		tasks: make(map[string]*entry),
	}
}

func (m *Monitor) Report(ctx context.Context, request *structpb.Struct) (*timestamppb.Timestamp, error) {
	status, err := StatusFromStruct(request)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	m.mu.Lock()
	m.tasks[status.Task] = &entry{status: status, reportedAt: now}
	m.mu.Unlock()

	log.Printf("[%s] %s (%s)\n", status.Task, status.Message, status.Counters)
	return timestamppb.New(now), nil
}

// Latest returns the last status reported by task.
func (m *Monitor) Latest(task string) (model.Status, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.tasks[task]
	if !ok {
		return model.Status{}, false
	}
	return e.status, true
}

// Tasks lists every task that reported, sorted.
func (m *Monitor) Tasks() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tasks := make([]string, 0, len(m.tasks))
	for task := range m.tasks {
		tasks = append(tasks, task)
	}
	sort.Strings(tasks)
	return tasks
}

// Totals sums the latest counters of every task.
func (m *Monitor) Totals() model.Counters {
	m.mu.RLock()
	defer m.mu.RUnlock()
	totals := make(model.Counters)
	for _, e := range m.tasks {
		totals.Merge(e.status.Counters)
	}
	return totals
}

// StatusToStruct encodes a status for the wire.
func StatusToStruct(status model.Status) (*structpb.Struct, error) {
	counters := make(map[string]interface{}, len(status.Counters))
	for name, value := range status.Counters {
		counters[name] = value
	}
	return structpb.NewStruct(map[string]interface{}{
		"task":     status.Task,
		"source":   status.Source,
		"message":  status.Message,
		"counters": counters,
	})
}

// StatusFromStruct decodes a status sent with StatusToStruct.
func StatusFromStruct(s *structpb.Struct) (model.Status, error) {
	fields := s.GetFields()
	status := model.Status{
		Task:     fields["task"].GetStringValue(),
		Source:   fields["source"].GetStringValue(),
		Message:  fields["message"].GetStringValue(),
		Counters: make(model.Counters),
	}
	if status.Task == "" {
		return model.Status{}, ErrMissingTask
	}
	for name, value := range fields["counters"].GetStructValue().GetFields() {
		status.Counters[name] = int64(value.GetNumberValue())
	}
	return status, nil
}
