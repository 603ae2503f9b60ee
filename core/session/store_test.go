package session

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/shule/core/user"
)

type nopLogger struct{}

func (nopLogger) Enable(bool)                  {}
func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

// memSnapshots is an in-memory Snapshots with error injection.
type memSnapshots struct {
	usr     *user.User
	loadErr error
	saveErr error
	dropErr error
}

func (s *memSnapshots) Load() (*user.User, error) {
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return s.usr, nil
}

func (s *memSnapshots) Save(usr user.User) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.usr = &usr
	return nil
}

func (s *memSnapshots) Drop() error {
	if s.dropErr != nil {
		return s.dropErr
	}
	s.usr = nil
	return nil
}

func TestStore_startsLoading(t *testing.T) {
	store := NewStore(NoSnapshots{}, nopLogger{})

	assert.True(t, store.Loading())
	_, ok := store.Current()
	assert.False(t, ok)
}

func TestStore_Hydrate(t *testing.T) {
	usr := user.User{ID: "1", Name: "John Kamau"}

	tests := []struct {
		name  string
		snaps Snapshots
		want  bool
	}{
		{name: "restores stored identity", snaps: &memSnapshots{usr: &usr}, want: true},
		{name: "no snapshot", snaps: &memSnapshots{}, want: false},
		{name: "unreadable snapshot demotes quietly", snaps: &memSnapshots{loadErr: errors.New("boom")}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewStore(tt.snaps, nopLogger{})

			got := store.Hydrate()

			assert.Equal(t, tt.want, got)
			assert.False(t, store.Loading(), "hydration must resolve loading")
			cur, ok := store.Current()
			assert.Equal(t, tt.want, ok)
			if tt.want {
				assert.Equal(t, usr, cur)
			}
		})
	}
}

func TestStore_Set(t *testing.T) {
	snaps := &memSnapshots{}
	store := NewStore(snaps, nopLogger{})
	usr := user.User{ID: "2", Name: "Mary Wanjiku"}

	if err := store.Set(usr); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}

	cur, ok := store.Current()
	assert.True(t, ok)
	assert.Equal(t, usr, cur)
	assert.False(t, store.Loading())
	if assert.NotNil(t, snaps.usr) {
		assert.Equal(t, usr, *snaps.usr)
	}
}

// a failing snapshot write still reports the error but the live session sticks
func TestStore_Set_snapshotFailure(t *testing.T) {
	store := NewStore(&memSnapshots{saveErr: errors.New("disk full")}, nopLogger{})
	usr := user.User{ID: "2"}

	err := store.Set(usr)

	assert.Error(t, err)
	cur, ok := store.Current()
	assert.True(t, ok)
	assert.Equal(t, usr, cur)
}

func TestStore_Clear(t *testing.T) {
	snaps := &memSnapshots{}
	store := NewStore(snaps, nopLogger{})
	if err := store.Set(user.User{ID: "3"}); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}

	if err := store.Clear(); err != nil {
		t.Fatalf("Clear() failed: %v", err)
	}
	_, ok := store.Current()
	assert.False(t, ok)
	assert.Nil(t, snaps.usr)

	// clearing an already-clear store is a no-op
	if err := store.Clear(); err != nil {
		t.Errorf("Clear() not idempotent: %v", err)
	}
}
