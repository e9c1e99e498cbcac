package identity

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// DefaultPath is the file the minting utility writes by default.
const DefaultPath = "stress_test_users.json"

func lockFor(path string) *flock.Flock {
	return flock.New(path + ".lock")
}

// Load reads a JSON array of identities from path. A missing file yields an
// empty pool and no error; a malformed file is an error.
func Load(path string) (Pool, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Pool{}, nil
		}
		return Pool{}, fmt.Errorf("stat identity file: %w", err)
	}

	lock := lockFor(path)
	if err := lock.RLock(); err != nil {
		return Pool{}, fmt.Errorf("lock identity file: %w", err)
	}
	defer lock.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Pool{}, nil
		}
		return Pool{}, fmt.Errorf("read identity file: %w", err)
	}

	var ids []Identity
	if err := json.Unmarshal(data, &ids); err != nil {
		return Pool{}, fmt.Errorf("decode identity file %s: %w", path, err)
	}
	return NewPool(ids), nil
}

// Save atomically replaces path with ids encoded as an indented JSON array.
func Save(path string, ids []Identity) error {
	lock := lockFor(path)
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock identity file: %w", err)
	}
	defer lock.Unlock()

	if ids == nil {
		ids = []Identity{}
	}
	data, err := json.MarshalIndent(ids, "", "    ")
	if err != nil {
		return fmt.Errorf("encode identities: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".identities-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write identities: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace identity file: %w", err)
	}
	return nil
}

// Remove deletes the identity file and its lock file.
func Remove(path string) error {
	lock := lockFor(path)
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock identity file: %w", err)
	}
	err := os.Remove(path)
	lock.Unlock()
	_ = os.Remove(lock.Path())
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
