package resolver

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/projecthub/internal/apperr"
	"github.com/dyluth/projecthub/pkg/hub"
)

// fakeTasks is an in-memory TaskLookup.
type fakeTasks struct {
	ids     []string
	scanErr error
}

func (f *fakeTasks) GetTask(_ context.Context, id string) (*hub.Task, error) {
	for _, x := range f.ids {
		if x == id {
			return &hub.Task{ID: id}, nil
		}
	}
	return nil, apperr.NotFound("task not found")
}

func (f *fakeTasks) ScanTaskIDs(_ context.Context, prefix string) ([]string, error) {
	if f.scanErr != nil {
		return nil, f.scanErr
	}
	var out []string
	for _, x := range f.ids {
		if strings.HasPrefix(x, prefix) {
			out = append(out, x)
		}
	}
	return out, nil
}

func TestResolveTaskID(t *testing.T) {
	ctx := context.Background()
	tasks := &fakeTasks{ids: []string{
		"3f2b8c1e-0000-4000-8000-000000000001",
		"3f2b8c1e-0000-4000-8000-000000000002",
		"9a1d7e44-0000-4000-8000-000000000003",
	}}

	t.Run("full UUID", func(t *testing.T) {
		id, err := ResolveTaskID(ctx, tasks, "9A1D7E44-0000-4000-8000-000000000003")
		require.NoError(t, err)
		assert.Equal(t, "9a1d7e44-0000-4000-8000-000000000003", id)
	})

	t.Run("unknown full UUID", func(t *testing.T) {
		_, err := ResolveTaskID(ctx, tasks, "00000000-0000-4000-8000-000000000000")
		assert.True(t, IsNotFoundError(err))
	})

	t.Run("unique prefix", func(t *testing.T) {
		id, err := ResolveTaskID(ctx, tasks, "9a1d7e")
		require.NoError(t, err)
		assert.Equal(t, "9a1d7e44-0000-4000-8000-000000000003", id)
	})

	t.Run("too short", func(t *testing.T) {
		_, err := ResolveTaskID(ctx, tasks, "9a1d")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "at least 6 characters")
	})

	t.Run("no match", func(t *testing.T) {
		_, err := ResolveTaskID(ctx, tasks, "ffffff")
		assert.True(t, IsNotFoundError(err))
		assert.Equal(t, "no tasks found matching 'ffffff'", err.Error())
	})

	t.Run("ambiguous", func(t *testing.T) {
		_, err := ResolveTaskID(ctx, tasks, "3f2b8c1e")
		require.True(t, IsAmbiguousError(err))
		amb := err.(*AmbiguousError)
		assert.Len(t, amb.Matches, 2)
		assert.Contains(t, amb.Details(), "Use a longer prefix")
	})

	t.Run("scan failure", func(t *testing.T) {
		_, err := ResolveTaskID(ctx, &fakeTasks{scanErr: fmt.Errorf("boom")}, "abcdef")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to search for task")
	})
}

func TestAmbiguousDetailsTruncates(t *testing.T) {
	matches := make([]string, 12)
	for i := range matches {
		matches[i] = fmt.Sprintf("abcdef-%02d", i)
	}
	details := (&AmbiguousError{ShortID: "abcdef", Matches: matches}).Details()
	assert.Contains(t, details, "abcdef-09")
	assert.NotContains(t, details, "abcdef-10")
	assert.Contains(t, details, "...and 2 more")
}
