// Package auth adapts the identity backend (remote service or the fixed demo
// directory) behind a single Authenticator strategy resolved once at startup.
package auth

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/user"
)

var (
	// ErrAuthenticationFailed covers both unknown email and wrong password;
	// callers must not be able to tell the two apart.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrNoSession is returned by CurrentUser when no principal is signed in.
	ErrNoSession = errors.New("no authenticated session")
)

// Authenticator is the identity backend strategy.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (user.User, error)
	CurrentUser(ctx context.Context) (user.User, error)
	Logout(ctx context.Context) error
}

// NewAuthenticator resolves the backend capability check once: remote service
// (with mock fallback, preserving demo credentials) when configured, plain
// mock directory otherwise. Call sites never re-test configuration.
func NewAuthenticator(conf *core.Config, logger core.Logger) Authenticator {
	mock := NewMockAuthenticator()
	if !conf.IdentityConfigured() {
		return mock
	}
	return &fallbackAuthenticator{
		remote: NewRemoteAuthenticator(conf),
		mock:   mock,
		logger: logger,
	}
}

// fallbackAuthenticator tries the remote identity service first and falls
// back to the mock directory on any remote login failure.
type fallbackAuthenticator struct {
	remote Authenticator
	mock   Authenticator
	logger core.Logger
}

var _ Authenticator = (*fallbackAuthenticator)(nil)

func (a *fallbackAuthenticator) Login(ctx context.Context, email, password string) (user.User, error) {
	usr, err := a.remote.Login(ctx, email, password)
	if err == nil {
		return usr, nil
	}
	a.logger.Info("remote auth failed, using mock directory", err)
	return a.mock.Login(ctx, email, password)
}

func (a *fallbackAuthenticator) CurrentUser(ctx context.Context) (user.User, error) {
	return a.remote.CurrentUser(ctx)
}

func (a *fallbackAuthenticator) Logout(ctx context.Context) error {
	if err := a.remote.Logout(ctx); err != nil {
		a.logger.Warn("remote sign-out failed", err)
	}
	return a.mock.Logout(ctx)
}
