// internal/report/console.go

// Package report renders benchmark reports for people: console tables,
// per-test progress echo, and JSON or Markdown export files.
package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/fatih/color"

	"github.com/mwiater/tokbench/internal/benchmark"
	"github.com/mwiater/tokbench/internal/logging"
	"github.com/mwiater/tokbench/internal/suite"
	"github.com/mwiater/tokbench/internal/util"
)

const responseWidth = 80

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Background(lipgloss.Color("62")).Foreground(lipgloss.Color("230")).Padding(0, 1)
	ruleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("230")).Padding(0, 1)
	cellStyle     = lipgloss.NewStyle().Padding(0, 1)
	borderStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	responseStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("42")).Padding(0, 1)

	// columnColors mirror the per-column palette of the report tables.
	categoryColor = lipgloss.Color("86")
	timeColor     = lipgloss.Color("214")
	tokensColor   = lipgloss.Color("39")
	speedColor    = lipgloss.Color("42")
	modelColors   = []lipgloss.Color{"42", "214", "205", "39", "141"}

	promptLabel = color.New(color.FgYellow)
	okLabel     = color.New(color.FgGreen, color.Bold)
	errLabel    = color.New(color.FgRed)
	modelLabel  = color.New(color.FgCyan)
)

// Console writes run progress and final reports to a terminal stream.
// It implements benchmark.Observer so it can echo each test as it runs.
type Console struct {
	out            io.Writer
	showResponses  bool
	renderMarkdown bool
	compare        bool
	markdown       *glamour.TermRenderer
}

// Option configures a Console.
type Option func(*Console)

// WithResponses echoes prompts and model responses as tests complete.
func WithResponses(show bool) Option {
	return func(c *Console) { c.showResponses = show }
}

// WithMarkdown renders model responses as terminal markdown.
func WithMarkdown(render bool) Option {
	return func(c *Console) { c.renderMarkdown = render }
}

// WithComparisonLayout prints progress grouped by test with one line per model.
func WithComparisonLayout() Option {
	return func(c *Console) { c.compare = true }
}

// NewConsole creates a Console writing to out.
func NewConsole(out io.Writer, opts ...Option) *Console {
	c := &Console{out: out}
	for _, opt := range opts {
		opt(c)
	}
	if c.renderMarkdown {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(responseWidth),
		)
		if err != nil {
			logging.LogError("markdown renderer unavailable: %v", err)
		} else {
			c.markdown = r
		}
	}
	return c
}

// Header prints the run banner with suite and host details.
func (c *Console) Header(meta benchmark.RunMeta, models []string) {
	fmt.Fprintln(c.out, titleStyle.Render(fmt.Sprintf("tokbench %s", meta.Mode)))
	fmt.Fprintln(c.out, dimStyle.Render(fmt.Sprintf("run %s | suite %s | %s", meta.ID, meta.Suite, meta.StartedAt.Format("2006-01-02 15:04:05"))))
	fmt.Fprintln(c.out, dimStyle.Render("models: "+strings.Join(models, ", ")))
	fmt.Fprintln(c.out, dimStyle.Render("system: "+meta.System.String()))
	fmt.Fprintln(c.out)
}

// TestStarted prints a rule for the test and, in comparison layout, its prompt.
func (c *Console) TestStarted(index, total int, tc suite.TestCase) {
	title := fmt.Sprintf("[%d/%d] %s", index+1, total, tc.Category)
	if tc.Label != tc.Category {
		title += " - " + tc.Label
	}
	fmt.Fprintln(c.out, ruleStyle.Render("── "+title+" "+strings.Repeat("─", max(0, 40-len(title)))))
	if c.showResponses {
		promptLabel.Fprint(c.out, "Prompt: ")
		fmt.Fprintln(c.out, tc.Prompt)
		fmt.Fprintln(c.out)
	}
}

// InvocationStarted announces each model in comparison layout.
func (c *Console) InvocationStarted(model string, tc suite.TestCase) {
	if !c.compare {
		return
	}
	modelLabel.Fprintf(c.out, "Running: %s | %s\n", model, tc.Label)
}

// InvocationFinished prints the response, when enabled, and the timing line.
// In comparison layout the line names its model and test, since parallel runs
// finish out of order.
func (c *Console) InvocationFinished(model string, rec benchmark.ResultRecord, content string) {
	if c.showResponses {
		fmt.Fprintln(c.out, c.formatResponse(content))
	}
	line := StatsLine(rec)
	if c.compare {
		line = fmt.Sprintf("%s | %s: %s", model, rec.Label, line)
	}
	fmt.Fprintln(c.out, dimStyle.Render(line))
	fmt.Fprintln(c.out)
}

// InvocationFailed prints the error that degraded this invocation.
func (c *Console) InvocationFailed(model string, tc suite.TestCase, err error) {
	errLabel.Fprintf(c.out, "Error with %s | %s: %v\n\n", model, tc.Label, err)
}

// StatsLine formats the per-invocation timing summary.
func StatsLine(rec benchmark.ResultRecord) string {
	return fmt.Sprintf("⏱ %.2fs | %d tokens | %s tok/s", rec.ElapsedSeconds(), rec.TokenCount, FormatRate(rec.TokensPerSecond))
}

// FormatRate shows a throughput value rounded to two decimals without trailing zeros.
func FormatRate(v float64) string {
	return strconv.FormatFloat(benchmark.Round2(v), 'f', -1, 64)
}

func (c *Console) formatResponse(content string) string {
	content = strings.TrimSpace(content)
	if c.markdown != nil {
		rendered, err := c.markdown.Render(content)
		if err == nil {
			return rendered
		}
		logging.LogError("render markdown: %v", err)
	}
	return responseStyle.Render(util.WrapToWidth(content, responseWidth))
}

// Single prints the summary table and average speed of a single-model run.
func (c *Console) Single(r benchmark.SingleReport) {
	fmt.Fprintln(c.out, titleStyle.Render("Benchmark Summary"))
	fmt.Fprintln(c.out, SingleTable(r))
	fmt.Fprintln(c.out)
	okLabel.Fprintf(c.out, "Average Speed: %s tok/s on %s\n", FormatRate(r.AverageTokensPerSecond), r.Model)
	fmt.Fprintln(c.out, dimStyle.Render(fmt.Sprintf("%d tokens in %.2fs", r.TotalTokens, r.TotalElapsedSeconds)))
}

// Comparison prints the per-test comparison table and per-model averages.
func (c *Console) Comparison(r benchmark.ComparisonReport) {
	fmt.Fprintln(c.out, titleStyle.Render("Final Comparison Summary"))
	fmt.Fprintln(c.out, ComparisonTable(r))
	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, lipgloss.NewStyle().Bold(true).Render("Average Speed Summary:"))
	width := 0
	for _, m := range r.Models {
		width = max(width, len(m))
	}
	for _, s := range r.Summaries {
		line := fmt.Sprintf("  %-*s avg %s tok/s | total %d tokens in %.2fs", width, s.Model, FormatRate(s.AverageTokensPerSecond), s.TotalTokens, benchmark.Round2(s.TotalElapsed.Seconds()))
		if s.Failures > 0 {
			line += fmt.Sprintf(" | %d failed", s.Failures)
		}
		fmt.Fprintln(c.out, line)
	}
	fmt.Fprintln(c.out)
	okLabel.Fprintln(c.out, "Comparison complete!")
}

// SingleTable renders the Category/Test/Time/Tokens/Tok/s table.
func SingleTable(r benchmark.SingleReport) string {
	rows := make([][]string, 0, len(r.Rows))
	for _, row := range r.Rows {
		speed := FormatRate(row.TokensPerSecond)
		if row.Failed {
			speed += " (failed)"
		}
		rows = append(rows, []string{
			row.Category,
			row.Label,
			fmt.Sprintf("%.2fs", row.ElapsedSeconds),
			strconv.Itoa(row.Tokens),
			speed,
		})
	}
	colors := []lipgloss.Color{categoryColor, "255", timeColor, tokensColor, speedColor}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		BorderRow(true).
		Headers("Category", "Test", "Time", "Tokens", "Tok/s").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			style := cellStyle.Foreground(colors[col])
			if col >= 2 {
				style = style.Align(lipgloss.Right)
			}
			return style
		})
	return t.String()
}

// ComparisonTable renders Category, one Tok/s column per model and Fastest.
func ComparisonTable(r benchmark.ComparisonReport) string {
	names := ShortNames(r.Models)
	headers := make([]string, 0, len(names)+2)
	headers = append(headers, "Category")
	for _, n := range names {
		headers = append(headers, n+"\nTok/s")
	}
	headers = append(headers, "Fastest")

	rows := make([][]string, 0, len(r.Rows))
	for _, row := range r.Rows {
		cells := make([]string, 0, len(headers))
		cells = append(cells, row.Category)
		for _, cell := range row.Cells {
			v := FormatRate(cell.TokensPerSecond)
			if cell.Failed {
				v += " (failed)"
			}
			cells = append(cells, v)
		}
		fastest := "-"
		if row.FastestIndex >= 0 {
			fastest = names[row.FastestIndex]
		}
		cells = append(cells, fastest)
		rows = append(rows, cells)
	}

	last := len(headers) - 1
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		BorderRow(true).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			switch {
			case col == 0:
				return cellStyle.Foreground(categoryColor)
			case col == last:
				return cellStyle.Bold(true)
			default:
				return cellStyle.Foreground(modelColors[(col-1)%len(modelColors)]).Align(lipgloss.Right)
			}
		})
	return t.String()
}
