package printer

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/projecthub/internal/apperr"
)

func capture(t *testing.T) (*bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	t.Cleanup(SetOutput(&stdout, &stderr))
	return &stdout, &stderr
}

func TestError(t *testing.T) {
	t.Run("returns error with title", func(t *testing.T) {
		_, stderr := capture(t)
		err := Error("Test Error", "This is a test error", []string{})
		require.Error(t, err)
		require.Equal(t, "Test Error", err.Error())
		assert.Contains(t, stderr.String(), "This is a test error")
	})

	t.Run("single suggestion is printed bare", func(t *testing.T) {
		_, stderr := capture(t)
		err := Error("Test Error", "Explanation", []string{"Try this fix"})
		require.Equal(t, "Test Error", err.Error())
		assert.Contains(t, stderr.String(), "\nTry this fix\n")
		assert.NotContains(t, stderr.String(), "Either:")
	})

	t.Run("multiple suggestions are numbered", func(t *testing.T) {
		_, stderr := capture(t)
		Error("Test Error", "Explanation", []string{"First option", "Second option"})
		assert.Contains(t, stderr.String(), "Either:\n  1. First option\n  2. Second option\n")
	})
}

func TestErrorWithContext(t *testing.T) {
	_, stderr := capture(t)
	err := ErrorWithContext("Test Error", "Explanation", map[string]string{
		"Project":  "DEMO",
		"Database": "projecthub.db",
	}, nil)
	require.Equal(t, "Test Error", err.Error())
	assert.Contains(t, stderr.String(), "  Database: projecthub.db\n  Project: DEMO\n")
}

func TestFail(t *testing.T) {
	tests := []struct {
		err   error
		title string
	}{
		{apperr.NotFound("project not found"), "not found"},
		{apperr.Validation("title and projectId are required"), "invalid input"},
		{apperr.Conflict("a user with this email already exists"), "already exists"},
		{apperr.Forbidden("only owners and admins can delete projects"), "not allowed"},
		{fmt.Errorf("failed to open database: disk full"), "command failed"},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			_, stderr := capture(t)
			err := Fail(tt.err)
			assert.EqualError(t, err, tt.title)
			assert.Contains(t, stderr.String(), tt.err.Error())
		})
	}
}

func TestOutput(t *testing.T) {
	stdout, _ := capture(t)
	Success("Seeded %d tasks\n", 7)
	Warning("Redis is not reachable\n")
	Step("Applying schema\n")
	Info("plain\n")

	got := stdout.String()
	assert.Contains(t, got, "✓ Seeded 7 tasks")
	assert.Contains(t, got, "⚠️  Redis is not reachable")
	assert.Contains(t, got, "→ Applying schema")
	assert.Contains(t, got, "plain")
}
