package commands

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dyluth/projecthub/internal/logging"
	"github.com/dyluth/projecthub/internal/printer"
	"github.com/dyluth/projecthub/internal/seed"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the demo organization",
	Long: `Load the demo dataset: three users, the "Acme Corporation" organization,
project DEMO with three labels, an active sprint and seven tasks.

Every account uses the password "password123". Running seed again reuses
existing users and the organization, and leaves an existing DEMO project alone.`,
	Args: cobra.NoArgs,
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx := cmd.Context()
	st, err := openStore(ctx, cfg, logger.Named("store"))
	if err != nil {
		return err
	}
	defer st.Close()

	res, err := seed.Run(ctx, st, seed.Options{BcryptCost: cfg.Auth.BcryptCost}, logger.Named("seed"))
	if err != nil {
		logger.Error("Seed failed", zap.Error(err))
		return printer.Fail(err, "Run 'projecthub migrate' first, then try again")
	}

	if !res.ProjectCreated {
		printer.Warning("Project %s already exists; its tasks were left unchanged\n", seed.ProjectKey)
	} else {
		printer.Success("Created project %s with %d tasks\n", seed.ProjectKey, res.Tasks)
	}
	printer.Info("  users created: %d, members added: %d\n", res.UsersCreated, res.MembersAdded)
	printer.Info("  sign in as admin@example.com / %s\n", seed.DemoPassword)
	return nil
}
