// internal/benchmark/report.go
package benchmark

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mwiater/tokbench/internal/sysinfo"
)

// Run modes recorded in RunMeta.
const (
	ModeSingle  = "single"
	ModeCompare = "compare"
)

// RunMeta identifies a run.
type RunMeta struct {
	ID          string       `json:"id"`
	Mode        string       `json:"mode"`
	Suite       string       `json:"suite"`
	StartedAt   time.Time    `json:"started_at"`
	CompletedAt time.Time    `json:"completed_at"`
	System      sysinfo.Info `json:"system"`
}

// NewRunMeta starts metadata for a run with a fresh ID.
func NewRunMeta(mode, suiteName string, startedAt time.Time, system sysinfo.Info) RunMeta {
	return RunMeta{
		ID:        uuid.NewString(),
		Mode:      mode,
		Suite:     suiteName,
		StartedAt: startedAt,
		System:    system,
	}
}

// ReportRow is one test of a single-model report.
type ReportRow struct {
	Category        string  `json:"category"`
	Label           string  `json:"label"`
	ElapsedSeconds  float64 `json:"elapsed_seconds"`
	Tokens          int     `json:"tokens"`
	TokensPerSecond float64 `json:"tokens_per_second"`
	Failed          bool    `json:"failed,omitempty"`
	Error           string  `json:"error,omitempty"`
}

// SingleReport is the structured result of a single-model run.
type SingleReport struct {
	Meta                   RunMeta     `json:"meta"`
	Model                  string      `json:"model"`
	Rows                   []ReportRow `json:"rows"`
	AverageTokensPerSecond float64     `json:"average_tokens_per_second"`
	TotalTokens            int         `json:"total_tokens"`
	TotalElapsedSeconds    float64     `json:"total_elapsed_seconds"`
}

// ComparisonCell is one model's measurement for one test.
type ComparisonCell struct {
	Model           string  `json:"model"`
	ElapsedSeconds  float64 `json:"elapsed_seconds"`
	Tokens          int     `json:"tokens"`
	TokensPerSecond float64 `json:"tokens_per_second"`
	Failed          bool    `json:"failed,omitempty"`
	Error           string  `json:"error,omitempty"`
}

// ComparisonRow is one test across all models. Cells follow configured model order.
type ComparisonRow struct {
	Category     string           `json:"category"`
	Label        string           `json:"label"`
	Cells        []ComparisonCell `json:"cells"`
	Fastest      string           `json:"fastest"`
	FastestIndex int              `json:"fastest_index"`
}

// ComparisonReport is the structured result of a multi-model run.
type ComparisonReport struct {
	Meta      RunMeta         `json:"meta"`
	Models    []string        `json:"models"`
	Rows      []ComparisonRow `json:"rows"`
	Summaries []ModelSummary  `json:"summaries"`
}

func rowFromRecord(r ResultRecord) ReportRow {
	return ReportRow{
		Category:        r.Category,
		Label:           r.Label,
		ElapsedSeconds:  r.ElapsedSeconds(),
		Tokens:          r.TokenCount,
		TokensPerSecond: r.TokensPerSecond,
		Failed:          r.Failed,
		Error:           r.Error,
	}
}

// BuildSingleReport shapes a completed single-model store.
func BuildSingleReport(meta RunMeta, store *ResultsStore) (SingleReport, error) {
	models := store.Models()
	if len(models) != 1 {
		return SingleReport{}, fmt.Errorf("single report needs exactly one model, got %d", len(models))
	}
	records := store.Records(models[0])
	avg, err := AverageTokensPerSecond(records)
	if err != nil {
		return SingleReport{}, err
	}
	tokens, elapsed := Totals(records)

	report := SingleReport{
		Meta:                   meta,
		Model:                  models[0],
		Rows:                   make([]ReportRow, 0, len(records)),
		AverageTokensPerSecond: avg,
		TotalTokens:            tokens,
		TotalElapsedSeconds:    elapsed.Seconds(),
	}
	for _, r := range records {
		report.Rows = append(report.Rows, rowFromRecord(r))
	}
	return report, nil
}

// BuildComparisonReport shapes a completed comparison store.
func BuildComparisonReport(meta RunMeta, store *ResultsStore) (ComparisonReport, error) {
	if !store.Complete() {
		return ComparisonReport{}, fmt.Errorf("comparison results are incomplete")
	}
	models := store.Models()
	tests := store.Tests()
	report := ComparisonReport{
		Meta:      meta,
		Models:    models,
		Rows:      make([]ComparisonRow, 0, len(tests)),
		Summaries: Summarize(store),
	}
	for i, tc := range tests {
		records := store.Row(i)
		row := ComparisonRow{
			Category: tc.Category,
			Label:    tc.Label,
			Cells:    make([]ComparisonCell, 0, len(records)),
		}
		tps := make([]float64, 0, len(records))
		for j, r := range records {
			row.Cells = append(row.Cells, ComparisonCell{
				Model:           models[j],
				ElapsedSeconds:  r.ElapsedSeconds(),
				Tokens:          r.TokenCount,
				TokensPerSecond: r.TokensPerSecond,
				Failed:          r.Failed,
				Error:           r.Error,
			})
			tps = append(tps, r.TokensPerSecond)
		}
		row.FastestIndex = FastestIndex(tps)
		if row.FastestIndex >= 0 {
			row.Fastest = models[row.FastestIndex]
		}
		report.Rows = append(report.Rows, row)
	}
	return report, nil
}

// Round2 rounds v to two decimal places for display.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

var (
	slugInvalid = regexp.MustCompile(`[^a-z0-9_]+`)
	slugDashes  = regexp.MustCompile(`-+`)
)

// Slugify converts a string into a "slug" format,
// including replacing colons (:) with underscores (_).
func Slugify(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, ":", "_")
	s = slugInvalid.ReplaceAllString(s, "-")
	s = slugDashes.ReplaceAllString(s, "-")
	return strings.Trim(s, "-_")
}

// ExportBaseName builds a default export file name (without extension) for a run.
func ExportBaseName(meta RunMeta, models []string) string {
	stamp := meta.StartedAt.UTC().Format("20060102-150405")
	return Slugify(fmt.Sprintf("%s-%s-%s", meta.Mode, strings.Join(models, "-"), stamp))
}
