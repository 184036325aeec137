package auth

import (
	"context"

	"github.com/dyluth/projecthub/pkg/hub"
	"github.com/dyluth/projecthub/pkg/hubstate"
)

type identityKey struct{}

type identity struct {
	user    *hub.User
	session *hubstate.Session
}

// WithIdentity returns a context carrying the authenticated user and session.
func WithIdentity(ctx context.Context, user *hub.User, session *hubstate.Session) context.Context {
	return context.WithValue(ctx, identityKey{}, identity{user: user, session: session})
}

// UserFrom returns the authenticated user, if any.
func UserFrom(ctx context.Context) (*hub.User, bool) {
	id, ok := ctx.Value(identityKey{}).(identity)
	if !ok || id.user == nil {
		return nil, false
	}
	return id.user, true
}

// SessionFrom returns the session the request was authenticated with.
func SessionFrom(ctx context.Context) (*hubstate.Session, bool) {
	id, ok := ctx.Value(identityKey{}).(identity)
	if !ok || id.session == nil {
		return nil, false
	}
	return id.session, true
}
