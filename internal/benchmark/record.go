// internal/benchmark/record.go
package benchmark

import (
	"errors"
	"time"

	"github.com/mwiater/tokbench/internal/suite"
)

var (
	// ErrNoTests is returned when a run is configured with an empty suite.
	ErrNoTests = suite.ErrNoTests
	// ErrNoModels is returned when a run has no model to address.
	ErrNoModels = errors.New("no models configured")
	// ErrNoRecords is returned when an aggregate is requested over zero records.
	ErrNoRecords = errors.New("no records to aggregate")
	// ErrMisaligned is returned when a record does not match the test at its position.
	ErrMisaligned = errors.New("record does not match the test at this position")
)

// ResultRecord is the outcome of running one test case against one model.
// Values are kept at full precision; rounding happens at presentation time.
type ResultRecord struct {
	Category        string        `json:"category"`
	Label           string        `json:"label"`
	Elapsed         time.Duration `json:"elapsed_ns"`
	TokenCount      int           `json:"tokens"`
	TokensPerSecond float64       `json:"tokens_per_second"`
	Failed          bool          `json:"failed,omitempty"`
	Error           string        `json:"error,omitempty"`
}

// NewResultRecord derives throughput from tokens and elapsed time.
// Non-positive elapsed time yields zero throughput.
func NewResultRecord(category, label string, elapsed time.Duration, tokens int) ResultRecord {
	if tokens < 0 {
		tokens = 0
	}
	rec := ResultRecord{
		Category:   category,
		Label:      label,
		Elapsed:    elapsed,
		TokenCount: tokens,
	}
	if elapsed > 0 {
		rec.TokensPerSecond = float64(tokens) / elapsed.Seconds()
	}
	return rec
}

// DegradedRecord stands in for a failed invocation so the results grid keeps its shape.
func DegradedRecord(category, label string, err error) ResultRecord {
	rec := ResultRecord{Category: category, Label: label, Failed: true}
	if err != nil {
		rec.Error = err.Error()
	}
	return rec
}

// ElapsedSeconds returns the elapsed time in seconds.
func (r ResultRecord) ElapsedSeconds() float64 {
	return r.Elapsed.Seconds()
}
