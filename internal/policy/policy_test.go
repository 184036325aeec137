package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/projecthub/internal/apperr"
	"github.com/dyluth/projecthub/pkg/hub"
)

var (
	alice = &hub.User{ID: "u-alice", Email: "alice@example.com", Name: "Alice"}
	bob   = &hub.User{ID: "u-bob", Email: "bob@example.com", Name: "Bob"}
)

func membership(role hub.Role) *hub.Member {
	return &hub.Member{OrganizationID: "org-1", UserID: "u-alice", Role: role}
}

func grant(role hub.Role) map[string]any {
	return map[string]any{"organizationId": "org-1", "role": string(role)}
}

func removal(userID string, role hub.Role) map[string]any {
	return map[string]any{"organizationId": "org-1", "userId": userID, "role": string(role)}
}

func TestDefaults(t *testing.T) {
	e, err := New(nil)
	require.NoError(t, err)

	tests := []struct {
		name   string
		action Action
		in     Input
		want   bool
	}{
		{"owner adds member", MemberAdd, For(alice, membership(hub.RoleOwner), grant(hub.RoleMember)), true},
		{"owner adds owner", MemberAdd, For(alice, membership(hub.RoleOwner), grant(hub.RoleOwner)), true},
		{"admin adds member", MemberAdd, For(alice, membership(hub.RoleAdmin), grant(hub.RoleMember)), true},
		{"admin adds admin", MemberAdd, For(alice, membership(hub.RoleAdmin), grant(hub.RoleAdmin)), true},
		{"admin cannot add owner", MemberAdd, For(alice, membership(hub.RoleAdmin), grant(hub.RoleOwner)), false},
		{"member cannot add member", MemberAdd, For(alice, membership(hub.RoleMember), grant(hub.RoleMember)), false},
		{"non-member cannot add member", MemberAdd, For(alice, nil, grant(hub.RoleMember)), false},
		{"member may leave", MemberRemove, For(alice, membership(hub.RoleMember), removal("u-alice", hub.RoleMember)), true},
		{"member cannot remove others", MemberRemove, For(alice, membership(hub.RoleMember), removal("u-bob", hub.RoleMember)), false},
		{"admin removes member", MemberRemove, For(alice, membership(hub.RoleAdmin), removal("u-bob", hub.RoleMember)), true},
		{"admin cannot remove owner", MemberRemove, For(alice, membership(hub.RoleAdmin), removal("u-bob", hub.RoleOwner)), false},
		{"owner removes owner", MemberRemove, For(alice, membership(hub.RoleOwner), removal("u-bob", hub.RoleOwner)), true},
		{"owner may leave", MemberRemove, For(alice, membership(hub.RoleOwner), removal("u-alice", hub.RoleOwner)), true},
		{"admin deletes project", ProjectDelete, For(alice, membership(hub.RoleAdmin), nil), true},
		{"member cannot delete project", ProjectDelete, For(alice, membership(hub.RoleMember), nil), false},
		{"author deletes comment", CommentDelete, For(alice, nil, map[string]any{"userId": "u-alice"}), true},
		{"non-author cannot delete comment", CommentDelete, For(bob, membership(hub.RoleOwner), map[string]any{"userId": "u-alice"}), false},
		{"member deletes label", LabelDelete, For(alice, membership(hub.RoleMember), nil), true},
		{"outsider cannot delete label", LabelDelete, For(alice, nil, nil), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Allowed(tt.action, tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCheck(t *testing.T) {
	e, err := New(nil)
	require.NoError(t, err)

	err = e.Check(ProjectDelete, For(alice, membership(hub.RoleMember), nil))
	require.Error(t, err)
	assert.True(t, apperr.IsForbidden(err))
	assert.Equal(t, "only owners and admins can delete projects", apperr.Message(err))

	assert.NoError(t, e.Check(ProjectDelete, For(alice, membership(hub.RoleOwner), nil)))
}

func TestOverrides(t *testing.T) {
	t.Run("replaces a default", func(t *testing.T) {
		e, err := New(map[string]string{"project.delete": `member.role == "OWNER"`})
		require.NoError(t, err)
		assert.Equal(t, `member.role == "OWNER"`, e.Source(ProjectDelete))

		ok, err := e.Allowed(ProjectDelete, For(alice, membership(hub.RoleAdmin), nil))
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("rejects unknown action", func(t *testing.T) {
		_, err := New(map[string]string{"project.archive": "true"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown policy action 'project.archive'")
	})

	t.Run("rejects non-bool expression", func(t *testing.T) {
		_, err := New(map[string]string{"label.delete": `member.role + "x"`})
		require.Error(t, err)
	})

	t.Run("rejects syntax errors", func(t *testing.T) {
		_, err := New(map[string]string{"label.delete": `member.role ==`})
		require.Error(t, err)
	})
}

func TestAllowedUnknownAction(t *testing.T) {
	e, err := New(nil)
	require.NoError(t, err)
	_, err = e.Allowed(Action("nope"), For(alice, nil, nil))
	assert.Error(t, err)
}

func TestActions(t *testing.T) {
	assert.Equal(t, []string{
		"comment.delete",
		"label.delete",
		"organization.member.add",
		"organization.member.remove",
		"project.delete",
	}, Actions())
}
