package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments, or a
	// broker-side error envelope).
	ExitCodeError = 1
)

// rootCmd is the entry point for the broker binary: it both runs the
// broker as a server (serve) and issues one-off meta-tool calls against a
// running instance (search/schema/exec/manage).
var rootCmd = &cobra.Command{
	Use:   "brokerd",
	Short: "Unified MCP broker",
	Long: `brokerd aggregates MCP peers and local skills into a single
searchable registry and exposes it through four meta-tools: search,
schema, exec, and manage.`,
	SilenceUsage: true,
}

// serveConfigDir overrides the project configuration directory; when
// empty, loadServeConfig uses .brokerd relative to the working directory
// (and brokerconfig.Load falls back to defaults when it holds no
// config.yaml). Shared across every subcommand:
// serve reads it directly, and the search/schema/exec/manage passthrough
// commands forward it to the serve subprocess they spawn.
var serveConfigDir string

// serveGlobalDir, when set, loads the global/project overlay (global
// configuration under the project directory) instead of a single directory.
var serveGlobalDir string

// SetVersion sets the version for the root command, injected at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the CLI entry point, called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "brokerd version %s\n" .Version}}`)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(ExitCodeError)
	}
}

func init() {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.PersistentFlags().StringVar(&serveConfigDir, "config-dir", "", "project configuration directory (default: .brokerd in the current directory)")
	rootCmd.PersistentFlags().StringVar(&serveGlobalDir, "global-config-dir", "", "global configuration directory, layered under --config-dir")
}
