package apperr

import (
	"database/sql"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindSurvivesWrapping(t *testing.T) {
	base := NotFound("project not found")
	wrapped := fmt.Errorf("failed to load board: %w", base)

	assert.True(t, IsNotFound(wrapped))
	assert.False(t, IsValidation(wrapped))
	assert.Equal(t, "project not found", Message(wrapped))
	assert.Equal(t, http.StatusNotFound, KindOf(wrapped).Status())
}

func TestWrap(t *testing.T) {
	t.Run("nil error stays nil", func(t *testing.T) {
		assert.NoError(t, Wrap(KindConflict, nil, "duplicate"))
	})

	t.Run("keeps cause reachable", func(t *testing.T) {
		err := Wrap(KindNotFound, sql.ErrNoRows, "task not found")
		assert.ErrorIs(t, err, sql.ErrNoRows)
		assert.Equal(t, "task not found: sql: no rows in result set", err.Error())
	})
}

func TestPlainErrorsAreInternal(t *testing.T) {
	err := fmt.Errorf("disk on fire")
	assert.Equal(t, KindInternal, KindOf(err))
	assert.Equal(t, "", Message(err))
	assert.Equal(t, http.StatusInternalServerError, KindOf(err).Status())
	assert.False(t, IsNotFound(nil))
}

func TestKindCodes(t *testing.T) {
	cases := map[Kind]struct {
		code   string
		status int
	}{
		KindValidation:      {"VALIDATION", http.StatusBadRequest},
		KindUnauthorized:    {"UNAUTHORIZED", http.StatusUnauthorized},
		KindForbidden:       {"FORBIDDEN", http.StatusForbidden},
		KindNotFound:        {"NOT_FOUND", http.StatusNotFound},
		KindConflict:        {"CONFLICT", http.StatusConflict},
		KindTooManyRequests: {"TOO_MANY_REQUESTS", http.StatusTooManyRequests},
		KindInternal:        {"INTERNAL", http.StatusInternalServerError},
	}
	for kind, want := range cases {
		t.Run(want.code, func(t *testing.T) {
			assert.Equal(t, want.code, kind.String())
			assert.Equal(t, want.status, kind.Status())
		})
	}
}
