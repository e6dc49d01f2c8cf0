package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/boddenberg/datapay-bfa-go/internal/domain"

	"go.uber.org/zap"
)

var keyReplacer = strings.NewReplacer(":", "_", "/", "_", "\\", "_", "..", "_")

// File stores one <key>.json file per handle inside a directory.
type File struct {
	dir    string
	logger *zap.Logger
	mu     sync.Mutex
}

// NewFile creates the directory if needed and returns a File store.
func NewFile(dir string, logger *zap.Logger) (*File, error) {
	if dir == "" {
		return nil, fmt.Errorf("session dir is empty")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &File{dir: dir, logger: logger}, nil
}

func (f *File) path(key string) string {
	return filepath.Join(f.dir, keyReplacer.Replace(key)+".json")
}

func (f *File) Load(_ context.Context, key string) (*domain.SessionHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	raw, err := os.ReadFile(f.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session %s: %w", key, err)
	}

	h := decodeHandle(raw)
	if h == nil {
		f.logger.Warn("ignoring malformed session file", zap.String("key", key))
	}
	return h, nil
}

// Save writes to a temp file and renames it so readers never see a partial
// document.
func (f *File) Save(_ context.Context, key string, h *domain.SessionHandle) error {
	raw, err := encodeHandle(h)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	tmp, err := os.CreateTemp(f.dir, ".session-*")
	if err != nil {
		return fmt.Errorf("save session %s: %w", key, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("save session %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save session %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), f.path(key)); err != nil {
		return fmt.Errorf("save session %s: %w", key, err)
	}
	return nil
}

func (f *File) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	err := os.Remove(f.path(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete session %s: %w", key, err)
	}
	return nil
}
