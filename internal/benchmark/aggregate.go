// internal/benchmark/aggregate.go
package benchmark

import "time"

// ModelSummary is the per-model aggregate of a run.
type ModelSummary struct {
	Model                  string        `json:"model"`
	AverageTokensPerSecond float64       `json:"average_tokens_per_second"`
	TotalTokens            int           `json:"total_tokens"`
	TotalElapsed           time.Duration `json:"total_elapsed_ns"`
	Failures               int           `json:"failures"`
}

// AverageTokensPerSecond is the arithmetic mean of the records' throughput.
func AverageTokensPerSecond(records []ResultRecord) (float64, error) {
	if len(records) == 0 {
		return 0, ErrNoRecords
	}
	var sum float64
	for _, r := range records {
		sum += r.TokensPerSecond
	}
	return sum / float64(len(records)), nil
}

// Totals sums token counts and elapsed time.
func Totals(records []ResultRecord) (tokens int, elapsed time.Duration) {
	for _, r := range records {
		tokens += r.TokenCount
		elapsed += r.Elapsed
	}
	return tokens, elapsed
}

// FastestIndex returns the index of the first strictly greatest value, or -1 for an empty row.
// Ties resolve to the earliest position.
func FastestIndex(tps []float64) int {
	best := -1
	for i, v := range tps {
		if best == -1 || v > tps[best] {
			best = i
		}
	}
	return best
}

// Summarize computes a summary per model in configured order.
func Summarize(store *ResultsStore) []ModelSummary {
	summaries := make([]ModelSummary, 0, len(store.models))
	for _, m := range store.models {
		recs := store.records[m]
		summary := ModelSummary{Model: m}
		if avg, err := AverageTokensPerSecond(recs); err == nil {
			summary.AverageTokensPerSecond = avg
		}
		summary.TotalTokens, summary.TotalElapsed = Totals(recs)
		for _, r := range recs {
			if r.Failed {
				summary.Failures++
			}
		}
		summaries = append(summaries, summary)
	}
	return summaries
}
