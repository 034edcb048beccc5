// Package keystore provides the durable key-value storages the portal session is persisted to.
package keystore

import (
	"encoding/json"
	"io/ioutil"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"

	"github.com/rainbowkidsrealm/jaja2-sub000/core"
)

// FileStore keeps values in a single JSON object file, readable only by its owner.
// Writes go through a temporary file renamed over the original, so a crash never leaves half a file.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Load(keys ...string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.read()
	if err != nil {
		return nil, err
	}
	return pick(values, keys), nil
}

func (s *FileStore) Save(values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.read()
	if err != nil {
		// an unreadable file is replaced rather than merged
		current = make(map[string]string, len(values))
	}
	for k, v := range values {
		current[k] = v
	}
	return s.write(current)
}

func (s *FileStore) Delete(keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.read()
	if err != nil {
		// nothing trustworthy to keep
		return s.remove()
	}
	for _, k := range keys {
		delete(current, k)
	}
	if len(current) == 0 {
		return s.remove()
	}
	return s.write(current)
}

// read returns an empty map when the file does not exist.
// Values that are not strings make the whole file corrupt.
func (s *FileStore) read() (map[string]string, error) {
	data, err := ioutil.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, errors.Wrapf(err, "reading %s", s.path)
	}
	values := make(map[string]string)
	if len(data) == 0 {
		return values, nil
	}
	if err = json.Unmarshal(data, &values); err != nil {
		return nil, errors.Wrapf(core.ErrSessionCorrupt, "decoding %s: %v", s.path, err)
	}
	return values, nil
}

func (s *FileStore) write(values map[string]string) error {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding values")
	}

	dir := filepath.Dir(s.path)
	if err = os.MkdirAll(dir, 0o700); err != nil {
		return errors.Wrapf(err, "creating %s", dir)
	}
	tmp, err := ioutil.TempFile(dir, ".keystore-*")
	if err != nil {
		return errors.Wrap(err, "creating temp file")
	}
	defer func() { _ = os.Remove(tmp.Name()) }() // no-op once renamed

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "writing temp file")
	}
	if err = tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "restricting temp file")
	}
	if err = tmp.Close(); err != nil {
		return errors.Wrap(err, "closing temp file")
	}
	if err = os.Rename(tmp.Name(), s.path); err != nil {
		return errors.Wrapf(err, "replacing %s", s.path)
	}
	return nil
}

func (s *FileStore) remove() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "removing %s", s.path)
	}
	return nil
}
