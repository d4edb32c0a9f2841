package runlock

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofrs/flock"
)

// File takes an advisory flock next to Path, one file per run name.
type File struct {
	Path string
}

func (f File) lockPath(name string) string {
	ext := filepath.Ext(f.Path)
	base := strings.TrimSuffix(f.Path, ext)
	if ext == "" {
		ext = ".lock"
	}
	return base + "." + name + ext
}

func (f File) TryLock(_ context.Context, name string) (Release, error) {
	p := f.lockPath(name)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return nil, err
	}

	fl := flock.New(p)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", p, err)
	}
	if !ok {
		return nil, ErrLocked
	}

	var once sync.Once
	return func() { once.Do(func() { _ = fl.Unlock() }) }, nil
}
