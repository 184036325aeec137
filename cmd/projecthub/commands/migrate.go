package commands

import (
	"github.com/spf13/cobra"

	"github.com/dyluth/projecthub/internal/printer"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the database schema",
	Long: `Open the SQLite database named in projecthub.yml and apply the schema.

Missing tables and columns are added; existing data is left alone, so the
command is safe to run on every deploy.`,
	Args: cobra.NoArgs,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	printer.Step("Applying schema to %s\n", cfg.Database.Path)
	st, err := openStore(cmd.Context(), cfg, nil)
	if err != nil {
		return err
	}
	defer st.Close()

	printer.Success("Database is up to date\n")
	return nil
}
