package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/dyluth/projecthub/internal/config"
	"github.com/dyluth/projecthub/internal/printer"
	"github.com/dyluth/projecthub/internal/store"
	"github.com/dyluth/projecthub/pkg/hub"
	"github.com/dyluth/projecthub/pkg/hubstate"
)

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err == nil {
		return cfg, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return nil, printer.Error(
			fmt.Sprintf("%s not found", cfgFile),
			"No ProjectHub configuration was found at this path.",
			[]string{
				"Create one in the current directory:\n  projecthub init",
				"Point at an existing file:\n  projecthub --config path/to/projecthub.yml <command>",
			},
		)
	}
	return nil, printer.ErrorWithContext(
		"invalid configuration",
		err.Error(),
		map[string]string{"Config": cfgFile},
		[]string{"Fix the file, or regenerate it with:\n  projecthub init --force"},
	)
}

func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*store.Store, error) {
	st, err := store.Open(ctx, cfg.Database.Path, logger)
	if err != nil {
		return nil, printer.ErrorWithContext(
			"database unavailable",
			err.Error(),
			map[string]string{"Database": cfg.Database.Path},
			[]string{"Check the database.path setting and the directory's permissions"},
		)
	}
	return st, nil
}

// connectState opens the Redis client and verifies it answers.
func connectState(ctx context.Context, cfg *config.Config) (*hubstate.Client, error) {
	client, err := hubstate.NewClientFromURL(cfg.Redis.URL, cfg.Instance)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis client: %w", err)
	}
	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, printer.ErrorWithContext(
			"Redis connection failed",
			fmt.Sprintf("Could not connect to Redis at %s", cfg.Redis.URL),
			map[string]string{"Instance": cfg.Instance},
			[]string{
				"Start a local Redis:\n  docker run -d -p 6379:6379 redis:7-alpine",
				"Or point REDIS_URL at a running server",
			},
		)
	}
	return client, nil
}

// findProject resolves a project key, optionally within one organization slug.
func findProject(ctx context.Context, st *store.Store, orgSlug, key string) (*hub.Project, error) {
	projects, err := st.FindProjectsByKey(ctx, orgSlug, key)
	if err != nil {
		return nil, fmt.Errorf("failed to look up project: %w", err)
	}

	switch len(projects) {
	case 0:
		suggestions := []string{"Check the key, or load the demo data:\n  projecthub seed"}
		if orgSlug != "" {
			suggestions = append(suggestions, fmt.Sprintf("Drop --org to search every organization:\n  projecthub tasks --project %s", key))
		}
		return nil, printer.Error(
			fmt.Sprintf("project '%s' not found", hub.NormalizeKey(key)),
			"No project with this key exists.",
			suggestions,
		)
	case 1:
		return &projects[0], nil
	default:
		return nil, printer.Error(
			fmt.Sprintf("project key '%s' is ambiguous", hub.NormalizeKey(key)),
			fmt.Sprintf("%d organizations have a project with this key.", len(projects)),
			[]string{fmt.Sprintf("Name the organization:\n  projecthub tasks --project %s --org <slug>", key)},
		)
	}
}
