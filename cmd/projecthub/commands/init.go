package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dyluth/projecthub/internal/scaffold"
)

var (
	forceInit bool
	initDir   string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new ProjectHub working directory",
	Long: `Initialize a ProjectHub working directory with a default configuration.

Creates:
  • projecthub.yml - Server configuration file
  • uploads/ - Attachment storage

Use --force to replace an existing projecthub.yml. Stored attachments are kept.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	// No -f shorthand: it reads too much like a file flag next to --config
	initCmd.Flags().BoolVar(&forceInit, "force", false, "Replace an existing projecthub.yml")
	initCmd.Flags().StringVar(&initDir, "dir", ".", "Directory to initialize")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	if !forceInit {
		if err := scaffold.CheckExisting(initDir); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if err := scaffold.Initialize(initDir, forceInit, out); err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	scaffold.PrintSuccess(out)
	return nil
}
