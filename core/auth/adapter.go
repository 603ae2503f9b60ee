package auth

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/session"
	"github.com/trezcool/shule/core/user"
)

// State is the session lifecycle state. The machine cycles for the lifetime
// of the process; there is no terminal state.
type State string

const (
	StateLoading         State = "loading"
	StateAuthenticated   State = "authenticated"
	StateUnauthenticated State = "unauthenticated"
)

// Adapter drives the session state machine on top of an Authenticator
// strategy and the session Store.
type Adapter struct {
	authn  Authenticator
	store  *session.Store
	logger core.Logger

	mu    sync.RWMutex
	state State
}

func NewAdapter(authn Authenticator, store *session.Store, logger core.Logger) *Adapter {
	return &Adapter{
		authn:  authn,
		store:  store,
		logger: logger,
		state:  StateLoading,
	}
}

func (a *Adapter) State() State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

func (a *Adapter) setState(s State) {
	a.mu.Lock()
	a.state = s
	a.mu.Unlock()
}

// Current returns the current identity, if any.
func (a *Adapter) Current() (user.User, bool) {
	return a.store.Current()
}

// Hydrate resolves the initial Loading state: first from the durable
// snapshot, then from the remote session if the backend holds one. Absence of
// both is the ordinary unauthenticated outcome, not an error.
func (a *Adapter) Hydrate(ctx context.Context) {
	if a.store.Hydrate() {
		a.setState(StateAuthenticated)
		return
	}
	a.RefreshSession(ctx)
}

// Login attempts password authentication. Failed credentials yield
// (false, nil) and leave the session store unchanged; only infrastructure
// failures surface as errors.
func (a *Adapter) Login(ctx context.Context, email, password string) (bool, error) {
	prev := a.State()
	a.setState(StateLoading)

	usr, err := a.authn.Login(ctx, core.CleanString(email, true /* lower */), password)
	if err != nil {
		a.setState(prev)
		if errors.Cause(err) == ErrAuthenticationFailed {
			return false, nil
		}
		return false, err
	}

	if err := a.store.Set(usr); err != nil {
		// the session is live either way; losing the snapshot only costs
		// restore-on-restart
		a.logger.Warn("persisting session", err)
	}
	a.setState(StateAuthenticated)
	return true, nil
}

// Logout clears the remote session (best effort), the snapshot and the store.
// Calling it when already logged out is a no-op.
func (a *Adapter) Logout(ctx context.Context) error {
	if err := a.authn.Logout(ctx); err != nil {
		a.logger.Warn("remote sign-out failed", err)
	}
	if err := a.store.Clear(); err != nil {
		return err
	}
	a.setState(StateUnauthenticated)
	return nil
}

// RefreshSession queries the backend for the current principal. Any lookup
// failure demotes the session to unauthenticated rather than failing loudly.
func (a *Adapter) RefreshSession(ctx context.Context) {
	usr, err := a.authn.CurrentUser(ctx)
	if err != nil {
		if errors.Cause(err) != ErrNoSession {
			a.logger.Warn("refreshing session", err)
		}
		if err := a.store.Clear(); err != nil {
			a.logger.Warn("clearing session", err)
		}
		a.setState(StateUnauthenticated)
		return
	}

	if err := a.store.Set(usr); err != nil {
		a.logger.Warn("persisting session", err)
	}
	a.setState(StateAuthenticated)
}
