// internal/cli/models.go
package cli

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/mwiater/tokbench/internal/appconfig"
	"github.com/mwiater/tokbench/internal/providers"
)

// modelsCmd groups commands that query the configured hosts.
var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Group commands for inspecting models on the configured hosts",
}

var modelsLoadedCmd = &cobra.Command{
	Use:   "loaded",
	Short: "List the models currently loaded on each host",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := currentConfig
		if cfg == nil {
			return fmt.Errorf("configuration is not initialized")
		}
		provider, err := newProvider(cfg, nil)
		if err != nil {
			return err
		}
		defer provider.Close()
		listLoaded(cmd.Context(), cmd.OutOrStdout(), cfg, provider)
		return nil
	},
}

func init() {
	modelsCmd.AddCommand(modelsLoadedCmd)
	rootCmd.AddCommand(modelsCmd)
}

// listLoaded queries every host concurrently and prints hosts in configuration order.
func listLoaded(ctx context.Context, out io.Writer, cfg *appconfig.Config, provider providers.ChatProvider) {
	if ctx == nil {
		ctx = context.Background()
	}
	nodeStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	loadedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9"))

	type hostResult struct {
		models []string
		err    error
	}
	results := make([]hostResult, len(cfg.Hosts))

	var wg sync.WaitGroup
	for i, host := range cfg.Hosts {
		wg.Add(1)
		go func(i int, h appconfig.Host) {
			defer wg.Done()
			models, err := provider.LoadedModels(ctx, h)
			results[i] = hostResult{models: models, err: err}
		}(i, host)
	}
	wg.Wait()

	for i, host := range cfg.Hosts {
		fmt.Fprintln(out, nodeStyle.Render(fmt.Sprintf("%s (%s) %s:", host.Name, host.Type, host.URL)))
		res := results[i]
		switch {
		case res.err != nil:
			fmt.Fprintln(out, errorStyle.Render(fmt.Sprintf("  Error: %v", res.err)))
		case len(res.models) == 0:
			fmt.Fprintln(out, "  (no models loaded)")
		default:
			for _, m := range res.models {
				fmt.Fprintln(out, "  >>> "+loadedStyle.Render(m))
			}
		}
		fmt.Fprintln(out)
	}
}
