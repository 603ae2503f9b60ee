// Package localfs provides the durable local storage used in mock mode: a
// single file holding a serialized snapshot of the current identity.
package localfs

import (
	"encoding/json"
	"io/ioutil"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/session"
	"github.com/trezcool/shule/core/user"
)

// snapshot matches the original web client's localStorage payload so existing
// snapshots restore unchanged.
type snapshot struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	Role          string `json:"role"`
	InstitutionID string `json:"institutionId"`
	ProfileImage  string `json:"profileImage,omitempty"`
}

// SnapshotFile persists the identity snapshot to a single file.
type SnapshotFile struct {
	mu   sync.Mutex
	path string
}

var _ session.Snapshots = (*SnapshotFile)(nil)

func NewSnapshotFile(path string) *SnapshotFile {
	return &SnapshotFile{path: path}
}

// Load reads the stored identity. A missing file is (nil, nil): an ordinary
// unauthenticated start, not an error.
func (f *SnapshotFile) Load() (*user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := ioutil.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "reading snapshot file")
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, errors.Wrap(err, "decoding snapshot file")
	}
	usr := user.User{
		ID:            snap.ID,
		Name:          snap.Name,
		Email:         snap.Email,
		Role:          snap.Role,
		InstitutionID: snap.InstitutionID,
		ProfileImage:  snap.ProfileImage,
		IsActive:      true,
	}
	return &usr, nil
}

// Save overwrites the snapshot; written via a temp file + rename so a crash
// cannot leave a half-written snapshot behind.
func (f *SnapshotFile) Save(usr user.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := json.Marshal(snapshot{
		ID:            usr.ID,
		Name:          usr.Name,
		Email:         usr.Email,
		Role:          usr.Role,
		InstitutionID: usr.InstitutionID,
		ProfileImage:  usr.ProfileImage,
	})
	if err != nil {
		return errors.Wrap(err, "encoding snapshot")
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return errors.Wrap(err, "creating snapshot dir")
	}
	tmp := f.path + ".tmp"
	if err := ioutil.WriteFile(tmp, data, 0o600); err != nil {
		return errors.Wrap(err, "writing snapshot file")
	}
	return errors.Wrap(os.Rename(tmp, f.path), "replacing snapshot file")
}

// Drop removes the snapshot. Idempotent.
func (f *SnapshotFile) Drop() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "removing snapshot file")
	}
	return nil
}
