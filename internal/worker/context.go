package worker

import (
	"hash/fnv"
	"sort"

	"github.com/suenchunyu/wordcount/internal/model"
)

// compactAt bounds how many unit counts a key holds before they are
// folded into one partial sum.
const compactAt = 1024

// Partition picks the reducer for key.
func Partition(key string, reducers int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32()&0x7fffffff) % reducers
}

// MapContext collects what one mapper instance emits. Release combines
// the values of each key with Aggregate and splits the result across
// reducer partitions.
type MapContext struct {
	task       *model.Task
	partitions int
	values     map[string][]int64
	emitted    int64
}

var _ model.Emitter = new(MapContext)

func NewMapContext(task *model.Task, partitions int) *MapContext {
	if partitions <= 0 {
		partitions = 1
	}
	return &MapContext{
		task:       task,
		partitions: partitions,
		values:     make(map[string][]int64),
	}
}

func (m *MapContext) Task() *model.Task {
	return m.task
}

func (m *MapContext) Emit(key string, value int64) error {
	values := append(m.values[key], value)
	if len(values) >= compactAt {
		values = append(values[:0], Aggregate(key, values).Value)
	}
	m.values[key] = values
	m.emitted++
	return nil
}

// Emitted is the number of pairs emitted so far.
func (m *MapContext) Emitted() int64 {
	return m.emitted
}

// Release returns the combined pairs, one slice per partition, and
// empties the context.
func (m *MapContext) Release() [][]model.Pair {
	out := make([][]model.Pair, m.partitions)
	for key, values := range m.values {
		p := Partition(key, m.partitions)
		out[p] = append(out[p], Aggregate(key, values))
	}
	m.values = make(map[string][]int64)
	return out
}

// ReduceContext gathers the partial sums of one partition, grouped by key.
type ReduceContext struct {
	task    *model.Task
	groups  map[string][]int64
	results []model.AggregatedCount
}

var _ model.Emitter = new(ReduceContext)

func NewReduceContext(task *model.Task) *ReduceContext {
	return &ReduceContext{
		task:   task,
		groups: make(map[string][]int64),
	}
}

func (r *ReduceContext) Task() *model.Task {
	return r.task
}

// Add shuffles pairs into their key groups.
func (r *ReduceContext) Add(pairs []model.Pair) {
	for _, pair := range pairs {
		r.groups[pair.Key] = append(r.groups[pair.Key], pair.Value)
	}
}

// KeyValues returns every group sorted by key.
func (r *ReduceContext) KeyValues() []model.KeyValues {
	keys := make([]string, 0, len(r.groups))
	for key := range r.groups {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	kvs := make([]model.KeyValues, 0, len(keys))
	for _, key := range keys {
		kvs = append(kvs, model.KeyValues{Key: key, Values: r.groups[key]})
	}
	return kvs
}

func (r *ReduceContext) Emit(key string, value int64) error {
	r.results = append(r.results, model.AggregatedCount{Key: key, Value: value})
	return nil
}

// Release returns what was emitted, in emission order.
func (r *ReduceContext) Release() []model.AggregatedCount {
	results := r.results
	r.results = nil
	r.groups = make(map[string][]int64)
	return results
}

// Reduce runs Aggregate over every group of ctx.
func Reduce(ctx *ReduceContext) error {
	for _, kv := range ctx.KeyValues() {
		sum := Aggregate(kv.Key, kv.Values)
		if err := ctx.Emit(sum.Key, sum.Value); err != nil {
			return err
		}
	}
	return nil
}
