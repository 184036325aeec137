package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/dyluth/projecthub/internal/apperr"
	"github.com/dyluth/projecthub/pkg/hub"
)

// MinShortIDLength is the minimum required length for short ID prefixes.
const MinShortIDLength = 6

// TaskLookup is the slice of the store the resolver needs.
type TaskLookup interface {
	GetTask(ctx context.Context, id string) (*hub.Task, error)
	ScanTaskIDs(ctx context.Context, prefix string) ([]string, error)
}

// ResolveTaskID resolves a short ID prefix to a full task UUID.
// A full UUID is checked for existence; anything shorter than MinShortIDLength
// is rejected; otherwise the prefix must match exactly one task.
func ResolveTaskID(ctx context.Context, tasks TaskLookup, shortID string) (string, error) {
	shortID = strings.ToLower(strings.TrimSpace(shortID))

	if hub.IsValidID(shortID) {
		if _, err := tasks.GetTask(ctx, shortID); err != nil {
			if apperr.IsNotFound(err) {
				return "", &NotFoundError{ShortID: shortID}
			}
			return "", fmt.Errorf("failed to verify task existence: %w", err)
		}
		return shortID, nil
	}

	if len(shortID) < MinShortIDLength {
		return "", fmt.Errorf("short ID must be at least %d characters (got %d)", MinShortIDLength, len(shortID))
	}

	matches, err := tasks.ScanTaskIDs(ctx, shortID)
	if err != nil {
		return "", fmt.Errorf("failed to search for task: %w", err)
	}

	switch len(matches) {
	case 0:
		return "", &NotFoundError{ShortID: shortID}
	case 1:
		return matches[0], nil
	default:
		return "", &AmbiguousError{ShortID: shortID, Matches: matches}
	}
}

// NotFoundError indicates no tasks matched the short ID.
type NotFoundError struct {
	ShortID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no tasks found matching '%s'", e.ShortID)
}

// AmbiguousError indicates multiple tasks matched the short ID.
type AmbiguousError struct {
	ShortID string
	Matches []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("ambiguous short ID '%s' matches %d tasks", e.ShortID, len(e.Matches))
}

// Details lists up to 10 matching IDs followed by a hint, for CLI output.
func (e *AmbiguousError) Details() string {
	var b strings.Builder
	shown := e.Matches
	if len(shown) > 10 {
		shown = shown[:10]
	}
	for _, id := range shown {
		fmt.Fprintf(&b, "  %s\n", id)
	}
	if len(e.Matches) > 10 {
		fmt.Fprintf(&b, "  ...and %d more\n", len(e.Matches)-10)
	}
	b.WriteString("\nUse a longer prefix to uniquely identify the task.")
	return b.String()
}

// IsNotFoundError checks if an error is a NotFoundError.
func IsNotFoundError(err error) bool {
	_, ok := err.(*NotFoundError)
	return ok
}

// IsAmbiguousError checks if an error is an AmbiguousError.
func IsAmbiguousError(err error) bool {
	_, ok := err.(*AmbiguousError)
	return ok
}
