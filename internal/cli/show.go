// internal/cli/show.go
package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/k0kubun/pp"
	"github.com/spf13/cobra"

	"github.com/mwiater/tokbench/internal/appconfig"
	"github.com/mwiater/tokbench/internal/suite"
	"github.com/mwiater/tokbench/internal/util"
)

var (
	showRaw   bool
	suiteMode string
)

// showCmd represents the 'show' command group for displaying resources.
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Group commands for displaying resources",
	Long:  `The 'show' command groups subcommands that display the loaded configuration and test suites.`,
}

var showConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Show config settings",
	Long:  `Show config settings after the config file, environment variables and flags have been merged.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if showRaw {
			_, err := pp.Fprintln(cmd.OutOrStdout(), currentConfig)
			return err
		}
		appconfig.ShowConfig(cmd.OutOrStdout(), currentConfig)
		return nil
	},
}

var showSuiteCmd = &cobra.Command{
	Use:   "suite",
	Short: "Show the test suite a run would use",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if currentConfig != nil {
			path = currentConfig.Suite
		}
		s, err := suite.Resolve(path, suiteMode)
		if err != nil {
			return err
		}
		printSuite(cmd.OutOrStdout(), s)
		return nil
	},
}

func init() {
	showConfigCmd.Flags().BoolVar(&showRaw, "raw", false, "dump the merged config structure")
	showSuiteCmd.Flags().StringVar(&suiteMode, "mode", suite.ModeSingle, "built-in suite to show when no suite file is configured (single or compare)")
	showCmd.AddCommand(showConfigCmd, showSuiteCmd)
	rootCmd.AddCommand(showCmd)
}

func printSuite(out io.Writer, s suite.Suite) {
	nameStyle := lipgloss.NewStyle().Bold(true)
	categoryStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("86"))

	fmt.Fprintln(out, nameStyle.Render(fmt.Sprintf("Suite: %s (%d tests)", s.Name, len(s.Tests))))
	for i, tc := range s.Tests {
		title := tc.Category
		if tc.Label != tc.Category {
			title += " / " + tc.Label
		}
		fmt.Fprintf(out, "%2d. %s\n", i+1, categoryStyle.Render(title))
		fmt.Fprintf(out, "    %s\n", util.Preview(tc.Prompt, 72))
	}
}
