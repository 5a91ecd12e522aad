// internal/benchmark/store.go
package benchmark

import (
	"fmt"

	"github.com/mwiater/tokbench/internal/suite"
)

// ResultsStore holds one run's records, keyed by model, in test order.
// It is append-only and owned by a single run.
type ResultsStore struct {
	models  []string
	tests   []suite.TestCase
	records map[string][]ResultRecord
}

// NewResultsStore creates an empty store for the given models and tests.
func NewResultsStore(models []string, tests []suite.TestCase) (*ResultsStore, error) {
	if len(tests) == 0 {
		return nil, ErrNoTests
	}
	if len(models) == 0 {
		return nil, ErrNoModels
	}
	records := make(map[string][]ResultRecord, len(models))
	for _, m := range models {
		if m == "" {
			return nil, ErrNoModels
		}
		if _, dup := records[m]; dup {
			return nil, fmt.Errorf("model %q listed more than once", m)
		}
		records[m] = make([]ResultRecord, 0, len(tests))
	}
	return &ResultsStore{
		models:  append([]string(nil), models...),
		tests:   append([]suite.TestCase(nil), tests...),
		records: records,
	}, nil
}

// Append adds the next record for model. Records must arrive in test order.
func (s *ResultsStore) Append(model string, rec ResultRecord) error {
	existing, ok := s.records[model]
	if !ok {
		return fmt.Errorf("unknown model %q", model)
	}
	pos := len(existing)
	if pos >= len(s.tests) {
		return fmt.Errorf("model %q already has %d records", model, pos)
	}
	want := s.tests[pos]
	if rec.Category != want.Category || rec.Label != want.Label {
		return fmt.Errorf("%w: model %q position %d want %q/%q, got %q/%q",
			ErrMisaligned, model, pos, want.Category, want.Label, rec.Category, rec.Label)
	}
	s.records[model] = append(existing, rec)
	return nil
}

// Records returns a copy of model's records in test order.
func (s *ResultsStore) Records(model string) []ResultRecord {
	return append([]ResultRecord(nil), s.records[model]...)
}

// Row returns the records for test i in configured model order.
// Models that have not reached test i yet are omitted.
func (s *ResultsStore) Row(i int) []ResultRecord {
	row := make([]ResultRecord, 0, len(s.models))
	for _, m := range s.models {
		if recs := s.records[m]; i >= 0 && i < len(recs) {
			row = append(row, recs[i])
		}
	}
	return row
}

// Models returns the model identifiers in configured order.
func (s *ResultsStore) Models() []string {
	return append([]string(nil), s.models...)
}

// Tests returns the suite's test cases in order.
func (s *ResultsStore) Tests() []suite.TestCase {
	return append([]suite.TestCase(nil), s.tests...)
}

// Complete reports whether every model has a record for every test.
func (s *ResultsStore) Complete() bool {
	for _, m := range s.models {
		if len(s.records[m]) != len(s.tests) {
			return false
		}
	}
	return true
}
