package auth

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/shule/core/session"
	"github.com/trezcool/shule/core/user"
)

// memSnapshots is an in-memory session.Snapshots.
type memSnapshots struct {
	usr *user.User
}

func (s *memSnapshots) Load() (*user.User, error) { return s.usr, nil }
func (s *memSnapshots) Save(usr user.User) error  { s.usr = &usr; return nil }
func (s *memSnapshots) Drop() error               { s.usr = nil; return nil }

func newTestAdapter(authn Authenticator, snaps session.Snapshots) (*Adapter, *session.Store) {
	store := session.NewStore(snaps, nopLogger{})
	return NewAdapter(authn, store, nopLogger{}), store
}

func TestAdapter_Hydrate(t *testing.T) {
	ctx := context.Background()
	demo := user.MockDirectory()[0]

	t.Run("from snapshot", func(t *testing.T) {
		adapter, _ := newTestAdapter(NewMockAuthenticator(), &memSnapshots{usr: &demo})

		assert.Equal(t, StateLoading, adapter.State())
		adapter.Hydrate(ctx)

		assert.Equal(t, StateAuthenticated, adapter.State())
		cur, ok := adapter.Current()
		assert.True(t, ok)
		assert.Equal(t, demo.ID, cur.ID)
	})

	t.Run("from remote session", func(t *testing.T) {
		adapter, _ := newTestAdapter(fixedAuthenticator{usr: demo}, &memSnapshots{})

		adapter.Hydrate(ctx)

		assert.Equal(t, StateAuthenticated, adapter.State())
	})

	t.Run("nothing to restore", func(t *testing.T) {
		adapter, _ := newTestAdapter(NewMockAuthenticator(), &memSnapshots{})

		adapter.Hydrate(ctx)

		assert.Equal(t, StateUnauthenticated, adapter.State())
		_, ok := adapter.Current()
		assert.False(t, ok)
	})
}

func TestAdapter_Login(t *testing.T) {
	ctx := context.Background()
	demo := user.MockDirectory()[0]

	t.Run("success commits the session", func(t *testing.T) {
		snaps := &memSnapshots{}
		adapter, _ := newTestAdapter(NewMockAuthenticator(), snaps)
		adapter.Hydrate(ctx)

		ok, err := adapter.Login(ctx, demo.Email, user.DemoPassword)
		if err != nil {
			t.Fatalf("Login() failed: %v", err)
		}

		assert.True(t, ok)
		assert.Equal(t, StateAuthenticated, adapter.State())
		cur, has := adapter.Current()
		assert.True(t, has)
		assert.Equal(t, demo.ID, cur.ID)
		assert.NotNil(t, snaps.usr, "session must be persisted")
	})

	t.Run("email case and spacing are forgiven", func(t *testing.T) {
		adapter, _ := newTestAdapter(NewMockAuthenticator(), &memSnapshots{})
		adapter.Hydrate(ctx)

		ok, err := adapter.Login(ctx, "  John.Student@School.KE ", user.DemoPassword)
		if err != nil {
			t.Fatalf("Login() failed: %v", err)
		}
		assert.True(t, ok)
	})

	t.Run("bad credentials leave the session untouched", func(t *testing.T) {
		adapter, _ := newTestAdapter(NewMockAuthenticator(), &memSnapshots{})
		adapter.Hydrate(ctx)

		ok, err := adapter.Login(ctx, demo.Email, "nope")

		assert.NoError(t, err, "failed credentials are not an infrastructure error")
		assert.False(t, ok)
		assert.Equal(t, StateUnauthenticated, adapter.State())
		_, has := adapter.Current()
		assert.False(t, has)
	})

	t.Run("infrastructure failure surfaces and restores state", func(t *testing.T) {
		infraErr := errors.New("identity service exploded")
		adapter, _ := newTestAdapter(brokenInfraAuthenticator{err: infraErr}, &memSnapshots{})
		adapter.Hydrate(ctx)

		ok, err := adapter.Login(ctx, demo.Email, user.DemoPassword)

		assert.False(t, ok)
		assert.Equal(t, infraErr, errors.Cause(err))
		assert.Equal(t, StateUnauthenticated, adapter.State())
	})
}

func TestAdapter_Logout(t *testing.T) {
	ctx := context.Background()
	demo := user.MockDirectory()[0]
	snaps := &memSnapshots{usr: &demo}
	adapter, _ := newTestAdapter(NewMockAuthenticator(), snaps)
	adapter.Hydrate(ctx)

	if err := adapter.Logout(ctx); err != nil {
		t.Fatalf("Logout() failed: %v", err)
	}

	assert.Equal(t, StateUnauthenticated, adapter.State())
	_, has := adapter.Current()
	assert.False(t, has)
	assert.Nil(t, snaps.usr, "snapshot must be dropped")

	// logging out while logged out is a no-op
	if err := adapter.Logout(ctx); err != nil {
		t.Errorf("Logout() not idempotent: %v", err)
	}
}

func TestAdapter_RefreshSession_demotesOnFailure(t *testing.T) {
	ctx := context.Background()
	demo := user.MockDirectory()[0]
	adapter, store := newTestAdapter(brokenInfraAuthenticator{err: errors.New("boom")}, &memSnapshots{usr: &demo})
	_ = store.Set(demo)

	adapter.RefreshSession(ctx)

	assert.Equal(t, StateUnauthenticated, adapter.State())
	_, has := adapter.Current()
	assert.False(t, has)
}

// brokenInfraAuthenticator fails every call with a non-credential error.
type brokenInfraAuthenticator struct {
	err error
}

func (a brokenInfraAuthenticator) Login(context.Context, string, string) (user.User, error) {
	return user.User{}, a.err
}
func (a brokenInfraAuthenticator) CurrentUser(context.Context) (user.User, error) {
	return user.User{}, a.err
}
func (a brokenInfraAuthenticator) Logout(context.Context) error { return a.err }
