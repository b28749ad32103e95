package pipelinecache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gogpu/gpuframe/gpucore"
	"github.com/gogpu/gputypes"
)

// DefaultPath returns <UserCacheDir>/gpuframe/renderer/pipeline.cache.
func DefaultPath() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("pipelinecache: %w", err)
	}
	return filepath.Join(dir, "gpuframe", "renderer", "pipeline.cache"), nil
}

// Store reads and writes a pipeline cache blob at a fixed path.
type Store struct {
	path string
}

// NewStore returns a store for path. An empty path selects DefaultPath.
func NewStore(path string) (*Store, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	return &Store{path: path}, nil
}

// Path returns the blob location.
func (s *Store) Path() string { return s.path }

// Load reads the payload saved for the adapter.
//
// A missing, stale, or corrupt file is a cold start: Load returns a nil
// payload and a nil error. Only I/O failures other than a missing file are
// returned.
func (s *Store) Load(info gputypes.AdapterInfo) ([]byte, error) {
	blob, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		slogger().Debug("pipelinecache: no cache file, cold start", "path", s.path)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pipelinecache: read %s: %w", s.path, err)
	}
	payload, err := Decode(info, blob)
	if err != nil {
		slogger().Warn("pipelinecache: discarding stale cache", "path", s.path, "err", err)
		return nil, nil
	}
	slogger().Info("pipelinecache: loaded", "path", s.path, "bytes", len(payload))
	return payload, nil
}

// Save writes payload for the adapter. The file is replaced atomically:
// the blob goes to a temporary file in the same directory, which is then
// renamed over the old one.
func (s *Store) Save(info gputypes.AdapterInfo, payload []byte) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("pipelinecache: create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("pipelinecache: %w", err)
	}
	name := tmp.Name()
	if _, err := tmp.Write(Encode(info, payload)); err != nil {
		_ = tmp.Close()
		_ = os.Remove(name)
		return fmt.Errorf("pipelinecache: write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(name)
		return fmt.Errorf("pipelinecache: close %s: %w", name, err)
	}
	if err := os.Rename(name, s.path); err != nil {
		_ = os.Remove(name)
		return fmt.Errorf("pipelinecache: rename to %s: %w", s.path, err)
	}
	slogger().Info("pipelinecache: saved", "path", s.path, "bytes", len(payload))
	return nil
}

// Restore loads the stored payload into dev. A cold start is not an error.
func (s *Store) Restore(dev gpucore.Device) error {
	payload, err := s.Load(dev.Info())
	if err != nil || payload == nil {
		return err
	}
	if err := dev.LoadPipelineCacheData(payload); err != nil {
		return fmt.Errorf("pipelinecache: restore: %w", err)
	}
	return nil
}

// Persist saves dev's current pipeline cache. Devices without pipeline
// cache support (gpucore.ErrUnsupported) are skipped.
func (s *Store) Persist(dev gpucore.Device) error {
	payload, err := dev.PipelineCacheData()
	if errors.Is(err, gpucore.ErrUnsupported) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("pipelinecache: persist: %w", err)
	}
	return s.Save(dev.Info(), payload)
}
