package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dyluth/projecthub/internal/config"
)

var (
	version string
	commit  string
	date    string

	cfgFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "projecthub",
	Short: "ProjectHub - multi-tenant project management server",
	Long: `ProjectHub serves a project management API: organizations own projects,
projects hold sprints and tasks, and tasks move across a kanban board.

Relational data lives in SQLite. Sessions, sign-in throttling and live
activity events live in Redis.`,
	Version: version,
	// Unknown flags on the root command are errors, not a silent help screen
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
	FParseErrWhitelist: cobra.FParseErrWhitelist{},
}

// Execute runs the root command. Cobra's own error and usage printing is
// silenced; commands report failures through the printer package.
func Execute() error {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", config.DefaultPath, "Path to projecthub.yml")
}
