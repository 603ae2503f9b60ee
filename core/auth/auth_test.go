package auth

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/user"
)

type nopLogger struct{}

func (nopLogger) Enable(bool)                  {}
func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

func TestMockAuthenticator_Login(t *testing.T) {
	authn := NewMockAuthenticator()
	ctx := context.Background()

	// every demo identity signs in with the shared demo password
	for _, demo := range user.MockDirectory() {
		usr, err := authn.Login(ctx, demo.Email, user.DemoPassword)
		if err != nil {
			t.Fatalf("Login(%s) failed: %v", demo.Email, err)
		}
		assert.Equal(t, demo.ID, usr.ID)
		assert.Equal(t, demo.Role, usr.Role)
	}

	tests := []struct {
		name  string
		email string
		pwd   string
	}{
		{name: "wrong password", email: "john.student@school.ke", pwd: "nope"},
		{name: "unknown email", email: "ghost@school.ke", pwd: user.DemoPassword},
		{name: "empty credentials"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := authn.Login(ctx, tt.email, tt.pwd)
			// unknown email and wrong password must be indistinguishable
			assert.Equal(t, ErrAuthenticationFailed, errors.Cause(err))
		})
	}
}

func TestMockAuthenticator_noRemoteSession(t *testing.T) {
	authn := NewMockAuthenticator()
	ctx := context.Background()

	_, err := authn.CurrentUser(ctx)
	assert.Equal(t, ErrNoSession, errors.Cause(err))
	assert.NoError(t, authn.Logout(ctx))
}

func TestNewAuthenticator_unconfiguredUsesMockDirectory(t *testing.T) {
	conf := &core.Config{}
	authn := NewAuthenticator(conf, nopLogger{})

	usr, err := authn.Login(context.Background(), "admin@brightfuture.ke", user.DemoPassword)
	if err != nil {
		t.Fatalf("Login() failed: %v", err)
	}
	assert.True(t, usr.IsAdmin())
}

// brokenAuthenticator simulates an unreachable identity service.
type brokenAuthenticator struct {
	err error
}

func (a brokenAuthenticator) Login(context.Context, string, string) (user.User, error) {
	return user.User{}, a.err
}
func (a brokenAuthenticator) CurrentUser(context.Context) (user.User, error) {
	return user.User{}, a.err
}
func (a brokenAuthenticator) Logout(context.Context) error { return a.err }

func TestFallbackAuthenticator_Login(t *testing.T) {
	remoteErr := errors.New("connection refused")
	authn := &fallbackAuthenticator{
		remote: brokenAuthenticator{err: remoteErr},
		mock:   NewMockAuthenticator(),
		logger: nopLogger{},
	}
	ctx := context.Background()

	// any remote failure falls back to the demo directory
	usr, err := authn.Login(ctx, "mary.teacher@school.ke", user.DemoPassword)
	if err != nil {
		t.Fatalf("Login() failed: %v", err)
	}
	assert.True(t, usr.IsTeacher())

	// bad credentials fail in both backends
	_, err = authn.Login(ctx, "mary.teacher@school.ke", "nope")
	assert.Equal(t, ErrAuthenticationFailed, errors.Cause(err))

	// sign-out stays best effort when the remote is down
	assert.NoError(t, authn.Logout(ctx))
}

func TestFallbackAuthenticator_remoteWins(t *testing.T) {
	remoteUsr := user.User{ID: "r1", Email: "john.student@school.ke", Role: user.RoleStudent}
	authn := &fallbackAuthenticator{
		remote: fixedAuthenticator{usr: remoteUsr},
		mock:   NewMockAuthenticator(),
		logger: nopLogger{},
	}

	usr, err := authn.Login(context.Background(), "john.student@school.ke", "real-password")
	if err != nil {
		t.Fatalf("Login() failed: %v", err)
	}
	assert.Equal(t, remoteUsr.ID, usr.ID)
}

// fixedAuthenticator always signs in the same identity.
type fixedAuthenticator struct {
	usr user.User
}

func (a fixedAuthenticator) Login(context.Context, string, string) (user.User, error) {
	return a.usr, nil
}
func (a fixedAuthenticator) CurrentUser(context.Context) (user.User, error) {
	return a.usr, nil
}
func (a fixedAuthenticator) Logout(context.Context) error { return nil }
