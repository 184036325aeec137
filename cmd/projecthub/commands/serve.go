package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dyluth/projecthub/internal/auth"
	"github.com/dyluth/projecthub/internal/httpapi"
	"github.com/dyluth/projecthub/internal/i18n"
	"github.com/dyluth/projecthub/internal/logging"
	"github.com/dyluth/projecthub/internal/policy"
	"github.com/dyluth/projecthub/internal/service"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Start the ProjectHub HTTP API.

The server needs the SQLite database and a reachable Redis. SIGINT or SIGTERM
stops accepting connections and drains in-flight requests within
server.shutdown_timeout.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides server.addr)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg, logger.Named("store"))
	if err != nil {
		return err
	}
	defer st.Close()

	state, err := connectState(ctx, cfg)
	if err != nil {
		return err
	}
	defer state.Close()

	policies, err := policy.New(cfg.Policies)
	if err != nil {
		return fmt.Errorf("failed to compile policies: %w", err)
	}
	locales, err := i18n.New(cfg.I18n.Locales, cfg.I18n.DefaultLocale)
	if err != nil {
		return fmt.Errorf("failed to load locales: %w", err)
	}

	authn := auth.NewManager(st, state, cfg.Auth, logger)
	svc := service.New(st, state, policies, cfg.Attachments, logger)
	srv := httpapi.New(svc, authn, state, locales, cfg.Server, logger)

	logging.Event(logger, "server.configured",
		zap.String("instance", cfg.Instance),
		zap.String("database", cfg.Database.Path),
		zap.Bool("google_enabled", authn.GoogleEnabled()))

	return srv.ListenAndServe(ctx)
}
