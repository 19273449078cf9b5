package model

import "fmt"

type TaskFlag uint8

const (
	FlagUnknown TaskFlag = iota
	FlagMap
	FlagReduce
)

func (f TaskFlag) String() string {
	switch f {
	case FlagMap:
		return "map"
	case FlagReduce:
		return "reduce"
	default:
		return fmt.Sprintf("unknown (%d)", f)
	}
}

// Task is one unit of work handed to a mapper or reducer instance.
// A map task owns one input split, a reduce task owns one partition.
type Task struct {
	ID        string
	Flag      TaskFlag
	Source    string // input file of a map task
	Offset    int64  // first byte of the split
	Length    int64  // split length in bytes
	Partition int    // partition index of a reduce task
}

// NewMapTask names map tasks m-00000, m-00001, ...
func NewMapTask(seq int, source string, offset, length int64) *Task {
	return &Task{
		ID:     fmt.Sprintf("m-%05d", seq),
		Flag:   FlagMap,
		Source: source,
		Offset: offset,
		Length: length,
	}
}

// NewReduceTask names reduce tasks r-00000, r-00001, ...
func NewReduceTask(partition int) *Task {
	return &Task{
		ID:        fmt.Sprintf("r-%05d", partition),
		Flag:      FlagReduce,
		Partition: partition,
	}
}

func (t *Task) String() string {
	if t.Flag == FlagMap {
		return fmt.Sprintf("%s(%s@%d+%d)", t.ID, t.Source, t.Offset, t.Length)
	}
	return t.ID
}
