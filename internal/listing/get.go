package listing

import (
	"context"
	"fmt"
	"io"

	"github.com/dyluth/projecthub/internal/resolver"
)

// GetTask resolves a full ID or unique prefix and writes the task as indented JSON.
// Resolution failures come back as resolver.NotFoundError or resolver.AmbiguousError.
func GetTask(ctx context.Context, tasks resolver.TaskLookup, idOrPrefix string, w io.Writer) error {
	id, err := resolver.ResolveTaskID(ctx, tasks, idOrPrefix)
	if err != nil {
		return err
	}

	task, err := tasks.GetTask(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to fetch task: %w", err)
	}

	if err := FormatSingleJSON(w, task); err != nil {
		return fmt.Errorf("failed to format task: %w", err)
	}
	return nil
}
