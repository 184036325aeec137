package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/projecthub/internal/apperr"
	"github.com/dyluth/projecthub/pkg/hub"
)

func TestSprints(t *testing.T) {
	s := setupTestStore(t)
	f := seedFixture(t, s)
	ctx := context.Background()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	first := &hub.Sprint{Name: "Sprint 1", StartDate: start, EndDate: start.AddDate(0, 0, 14), Status: hub.SprintActive, ProjectID: f.project.ID}
	second := &hub.Sprint{Name: "Sprint 2", StartDate: start.AddDate(0, 0, 15), EndDate: start.AddDate(0, 0, 29), ProjectID: f.project.ID}
	require.NoError(t, s.CreateSprint(ctx, first))
	require.NoError(t, s.CreateSprint(ctx, second))
	assert.Equal(t, hub.SprintPlanned, second.Status)

	t.Run("second active sprint is rejected", func(t *testing.T) {
		err := s.CreateSprint(ctx, &hub.Sprint{Name: "Sprint X", StartDate: start, EndDate: start, Status: hub.SprintActive, ProjectID: f.project.ID})
		assert.True(t, apperr.IsConflict(err))

		active := hub.SprintActive
		_, err = s.UpdateSprint(ctx, second.ID, SprintPatch{Status: &active})
		assert.True(t, apperr.IsConflict(err))
	})

	t.Run("activating after completing the current sprint", func(t *testing.T) {
		done := hub.SprintCompleted
		_, err := s.UpdateSprint(ctx, first.ID, SprintPatch{Status: &done})
		require.NoError(t, err)

		active := hub.SprintActive
		got, err := s.UpdateSprint(ctx, second.ID, SprintPatch{Status: &active})
		require.NoError(t, err)
		assert.Equal(t, hub.SprintActive, got.Status)
		assert.Equal(t, "Demo Project", got.ProjectName)

		n, err := s.CountActiveSprintsForUser(ctx, f.member.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("rejects end before start", func(t *testing.T) {
		end := start.AddDate(0, 0, -1)
		_, err := s.UpdateSprint(ctx, first.ID, SprintPatch{EndDate: &end})
		assert.True(t, apperr.IsValidation(err))
	})

	t.Run("list ordered by start date", func(t *testing.T) {
		sprints, err := s.ListSprints(ctx, f.project.ID)
		require.NoError(t, err)
		require.Len(t, sprints, 2)
		assert.Equal(t, "Sprint 1", sprints[0].Name)
	})

	t.Run("range overlap for user", func(t *testing.T) {
		sprints, err := s.ListSprintsForUser(ctx, f.member.ID, start.AddDate(0, 0, 20), start.AddDate(0, 0, 40))
		require.NoError(t, err)
		require.Len(t, sprints, 1)
		assert.Equal(t, "Sprint 2", sprints[0].Name)

		sprints, err = s.ListSprintsForUser(ctx, f.outside.ID, time.Time{}, time.Time{})
		require.NoError(t, err)
		assert.Empty(t, sprints)
	})

	t.Run("access check", func(t *testing.T) {
		_, err := s.GetSprintForUser(ctx, first.ID, f.outside.ID)
		assert.True(t, apperr.IsNotFound(err))
		got, err := s.GetSprintForUser(ctx, first.ID, f.owner.ID)
		require.NoError(t, err)
		assert.Equal(t, first.ID, got.ID)
	})
}
