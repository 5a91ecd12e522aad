package appconfig

import (
	"fmt"
	"io"
	"strings"
)

// ShowConfig prints the current configuration summary.
func ShowConfig(out io.Writer, cfg *Config) {
	if cfg == nil {
		fmt.Fprintln(out, "No configuration loaded.")
		return
	}
	if cfg.ConfigPath == "" {
		fmt.Fprintln(out, "No config file loaded (using defaults).")
	} else {
		fmt.Fprintf(out, "Config file: %s\n\n", cfg.ConfigPath)
	}

	fmt.Fprintln(out, "Current configuration:")
	fmt.Fprintf(out, "  Debug:            %v\n", cfg.Debug)
	fmt.Fprintf(out, "  Request Timeout:  %s\n", cfg.RequestTimeout())
	fmt.Fprintf(out, "  Log File:         %s\n", cfg.LogFilePath())
	fmt.Fprintf(out, "  Bench Model:      %s\n", valueOrDash(cfg.Model))
	fmt.Fprintf(out, "  Suite:            %s\n", valueOrDash(cfg.Suite))
	fmt.Fprintf(out, "  Show Responses:   %v\n", cfg.ShowResponses)
	fmt.Fprintf(out, "  Render Markdown:  %v\n", cfg.RenderMarkdown)
	fmt.Fprintf(out, "  Warmup:           %v\n", cfg.Warmup)
	fmt.Fprintf(out, "  Parallel:         %d\n", cfg.ParallelLimit())
	fmt.Fprintf(out, "  TUI:              %v\n", cfg.TUI)
	fmt.Fprintf(out, "  Export JSON:      %s\n", valueOrDash(cfg.ExportPath))
	fmt.Fprintf(out, "  Export Markdown:  %s\n", valueOrDash(cfg.ExportMarkdownPath))
	fmt.Fprintf(out, "  Metrics Textfile: %s\n", valueOrDash(cfg.MetricsTextfile))

	fmt.Fprintln(out, "\nHosts:")
	for _, host := range cfg.Hosts {
		fmt.Fprintf(out, "  %s (%s) %s\n", host.Name, host.Type, host.URL)
		for _, model := range host.Models {
			fmt.Fprintf(out, "    - %s\n", model)
		}
	}
}

func valueOrDash(v string) string {
	if strings.TrimSpace(v) == "" {
		return "-"
	}
	return v
}
