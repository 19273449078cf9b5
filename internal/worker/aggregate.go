package worker

import "github.com/suenchunyu/wordcount/internal/model"

// Aggregate sums the counts of one key. It is used both as the
// combiner over a mapper instance's output and as the final reducer, so
// summing partial sums gives the same total as summing everything once.
func Aggregate(key string, values []int64) model.AggregatedCount {
	var sum int64
	for _, v := range values {
		sum += v
	}
	return model.AggregatedCount{Key: key, Value: sum}
}
