package auth

import (
	"context"

	"github.com/trezcool/shule/core/user"
)

// mockAuthenticator authenticates against a fixed in-memory directory,
// matching on exact email and the shared demo password.
type mockAuthenticator struct {
	dir map[string]user.User // email -> identity
}

var _ Authenticator = (*mockAuthenticator)(nil)

// NewMockAuthenticator builds the mock strategy. With no arguments it serves
// the standard demo directory; tests may provide their own identities.
func NewMockAuthenticator(users ...user.User) Authenticator {
	if len(users) == 0 {
		users = user.MockDirectory()
	}
	dir := make(map[string]user.User, len(users))
	for _, usr := range users {
		dir[usr.Email] = usr
	}
	return &mockAuthenticator{dir: dir}
}

func (a *mockAuthenticator) Login(_ context.Context, email, password string) (user.User, error) {
	usr, ok := a.dir[email]
	if !ok {
		return user.User{}, ErrAuthenticationFailed
	}
	if err := usr.CheckPassword(password); err != nil {
		return user.User{}, ErrAuthenticationFailed
	}
	return usr, nil
}

// CurrentUser always misses: mock mode has no server-side session; restores
// go through the durable snapshot instead.
func (a *mockAuthenticator) CurrentUser(context.Context) (user.User, error) {
	return user.User{}, ErrNoSession
}

func (a *mockAuthenticator) Logout(context.Context) error { return nil }
