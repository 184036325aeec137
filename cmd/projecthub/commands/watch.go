package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dyluth/projecthub/internal/printer"
	"github.com/dyluth/projecthub/internal/watch"
)

var (
	watchOutputFormat string
	watchProject      string
	watchOrg          string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream live task activity",
	Long: `Stream task activity as it happens: creations, status moves, assignments,
comments, attachments and label changes.

Output Formats:
  default - Human-readable output with timestamps and emojis
  json    - Line-delimited JSON for programmatic processing

Examples:
  # Watch every project
  projecthub watch

  # Watch one project
  projecthub watch --project DEMO --org acme-corp

  # Export events as JSON
  projecthub watch --output=json > activity.jsonl`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchOutputFormat, "output", "o", "default", "Output format (default or json)")
	watchCmd.Flags().StringVar(&watchProject, "project", "", "Only show activity for this project key")
	watchCmd.Flags().StringVar(&watchOrg, "org", "", "Organization slug used to resolve --project")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	var outputFormat watch.OutputFormat
	switch watchOutputFormat {
	case "default":
		outputFormat = watch.OutputFormatDefault
	case "json":
		outputFormat = watch.OutputFormatJSON
	default:
		return printer.Error(
			"invalid output format",
			fmt.Sprintf("Unknown format: %s", watchOutputFormat),
			[]string{"Valid formats: default, json"},
		)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := watch.Options{Format: outputFormat}
	if watchProject != "" {
		st, err := openStore(ctx, cfg, nil)
		if err != nil {
			return err
		}
		project, err := findProject(ctx, st, watchOrg, watchProject)
		st.Close()
		if err != nil {
			return err
		}
		opts.ProjectID = project.ID
	}

	state, err := connectState(ctx, cfg)
	if err != nil {
		return err
	}
	defer state.Close()

	return watch.StreamActivity(ctx, state, opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
}
