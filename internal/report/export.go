// internal/report/export.go
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mwiater/tokbench/internal/benchmark"
	"github.com/mwiater/tokbench/internal/util"
)

// ResolveExportPath returns the file to write for path. A path naming a
// directory (existing, or ending in a separator) receives a generated file
// name built from the run metadata and models.
func ResolveExportPath(path string, meta benchmark.RunMeta, models []string, ext string) string {
	isDir := strings.HasSuffix(path, "/") || strings.HasSuffix(path, string(os.PathSeparator))
	if !isDir {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			isDir = true
		}
	}
	if isDir {
		return filepath.Join(path, benchmark.ExportBaseName(meta, models)+ext)
	}
	return path
}

// WriteJSON writes the report as indented JSON and returns the path written.
func WriteJSON(path string, meta benchmark.RunMeta, models []string, report any) (string, error) {
	target := ResolveExportPath(path, meta, models, ".json")
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("error encoding results: %w", err)
	}
	if err := writeFile(target, append(data, '\n')); err != nil {
		return "", err
	}
	return target, nil
}

// WriteSingleMarkdown writes a Markdown rendering of a single-model report.
func WriteSingleMarkdown(path string, r benchmark.SingleReport) (string, error) {
	target := ResolveExportPath(path, r.Meta, []string{r.Model}, ".md")
	if err := writeFile(target, []byte(SingleMarkdown(r))); err != nil {
		return "", err
	}
	return target, nil
}

// WriteComparisonMarkdown writes a Markdown rendering of a comparison report.
func WriteComparisonMarkdown(path string, r benchmark.ComparisonReport) (string, error) {
	target := ResolveExportPath(path, r.Meta, r.Models, ".md")
	if err := writeFile(target, []byte(ComparisonMarkdown(r))); err != nil {
		return "", err
	}
	return target, nil
}

func writeFile(path string, data []byte) error {
	if err := util.WriteFile(path, data); err != nil {
		return fmt.Errorf("error writing results to %s: %w", path, err)
	}
	return nil
}

func writeMeta(b *strings.Builder, meta benchmark.RunMeta) {
	fmt.Fprintf(b, "- Run: `%s`\n", meta.ID)
	fmt.Fprintf(b, "- Suite: %s\n", meta.Suite)
	fmt.Fprintf(b, "- Started: %s\n", meta.StartedAt.Format("2006-01-02 15:04:05 MST"))
	if !meta.CompletedAt.IsZero() {
		fmt.Fprintf(b, "- Completed: %s\n", meta.CompletedAt.Format("2006-01-02 15:04:05 MST"))
	}
	fmt.Fprintf(b, "- System: %s\n\n", meta.System.String())
}

// escapeCell keeps table cells on one line and pipe-safe.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}

// SingleMarkdown renders a single-model report as Markdown.
func SingleMarkdown(r benchmark.SingleReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Benchmark Summary: %s\n\n", r.Model)
	writeMeta(&b, r.Meta)

	b.WriteString("| Category | Test | Time | Tokens | Tok/s |\n")
	b.WriteString("|---|---|---:|---:|---:|\n")
	for _, row := range r.Rows {
		speed := FormatRate(row.TokensPerSecond)
		if row.Failed {
			speed += " (failed)"
		}
		fmt.Fprintf(&b, "| %s | %s | %.2fs | %d | %s |\n", escapeCell(row.Category), escapeCell(row.Label), row.ElapsedSeconds, row.Tokens, speed)
	}
	fmt.Fprintf(&b, "\n**Average Speed:** %s tok/s on %s\n", FormatRate(r.AverageTokensPerSecond), r.Model)
	fmt.Fprintf(&b, "\nTotal: %d tokens in %.2fs\n", r.TotalTokens, r.TotalElapsedSeconds)

	var failures []benchmark.ReportRow
	for _, row := range r.Rows {
		if row.Failed {
			failures = append(failures, row)
		}
	}
	if len(failures) > 0 {
		b.WriteString("\n## Failures\n\n")
		for _, row := range failures {
			fmt.Fprintf(&b, "- %s / %s: %s\n", row.Category, row.Label, row.Error)
		}
	}
	return b.String()
}

// ComparisonMarkdown renders a comparison report as Markdown.
func ComparisonMarkdown(r benchmark.ComparisonReport) string {
	names := ShortNames(r.Models)
	var b strings.Builder
	fmt.Fprintf(&b, "# Model Comparison: %s\n\n", strings.Join(r.Models, " vs "))
	writeMeta(&b, r.Meta)

	b.WriteString("| Category |")
	for _, n := range names {
		fmt.Fprintf(&b, " %s Tok/s |", escapeCell(n))
	}
	b.WriteString(" Fastest |\n|---|")
	b.WriteString(strings.Repeat("---:|", len(names)))
	b.WriteString("---|\n")

	for _, row := range r.Rows {
		fmt.Fprintf(&b, "| %s |", escapeCell(row.Category))
		for _, cell := range row.Cells {
			v := FormatRate(cell.TokensPerSecond)
			if cell.Failed {
				v += " (failed)"
			}
			fmt.Fprintf(&b, " %s |", v)
		}
		fastest := "-"
		if row.FastestIndex >= 0 {
			fastest = names[row.FastestIndex]
		}
		fmt.Fprintf(&b, " %s |\n", escapeCell(fastest))
	}

	b.WriteString("\n## Average Speed Summary\n\n")
	b.WriteString("| Model | Avg Tok/s | Total Tokens | Total Time | Failures |\n")
	b.WriteString("|---|---:|---:|---:|---:|\n")
	for _, s := range r.Summaries {
		fmt.Fprintf(&b, "| %s | %s | %d | %.2fs | %d |\n", escapeCell(s.Model), FormatRate(s.AverageTokensPerSecond), s.TotalTokens, s.TotalElapsed.Seconds(), s.Failures)
	}
	return b.String()
}
