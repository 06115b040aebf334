package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultReloadDebounce coalesces the burst of events editors emit per save.
const DefaultReloadDebounce = 200 * time.Millisecond

// Live is a catalog whose contents can be replaced at runtime.
//
// Readers always see a complete catalog: swaps are atomic and the swapped-in
// Memory is immutable. Cart line items keep their frozen prices across swaps.
type Live struct {
	current  atomic.Pointer[Memory]
	debounce time.Duration

	// OnReload, if set, is called after every reload attempt made by Watch.
	// err is non-nil when the file failed to load; the previous catalog stays active.
	OnReload func(m *Memory, err error)
}

// NewLive creates a Live catalog serving initial.
func NewLive(initial *Memory) *Live {
	l := &Live{debounce: DefaultReloadDebounce}
	if initial == nil {
		initial = MustMemory()
	}
	l.current.Store(initial)
	return l
}

// Product implements Catalog.
func (l *Live) Product(id string) (Product, bool) {
	return l.current.Load().Product(id)
}

// Snapshot returns the catalog currently being served.
func (l *Live) Snapshot() *Memory {
	return l.current.Load()
}

// Swap replaces the served catalog.
func (l *Live) Swap(m *Memory) {
	l.current.Store(m)
}

// SetDebounce overrides DefaultReloadDebounce. Must be called before Watch.
func (l *Live) SetDebounce(d time.Duration) {
	l.debounce = d
}

// Watch reloads the catalog whenever the file at path changes.
// Blocks until ctx is cancelled, then releases the watcher and returns nil.
//
// The parent directory is watched rather than the file itself so that
// editors which save via rename-over are still observed.
func (l *Live) Watch(ctx context.Context, path string) error {
	path = filepath.Clean(path)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create catalog watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}
	slog.Info("watching catalog", "path", path)

	var reload <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			slog.Debug("catalog watcher stopping", "path", path)
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			reload = time.After(l.debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("catalog watcher error", "path", path, "error", err)

		case <-reload:
			reload = nil
			l.reload(path)
		}
	}
}

func (l *Live) reload(path string) {
	m, err := LoadFile(path)
	if err != nil {
		slog.Warn("catalog reload failed, keeping previous catalog", "path", path, "error", err)
	} else {
		l.Swap(m)
		slog.Info("catalog reloaded", "path", path, "products", m.Len())
	}
	if l.OnReload != nil {
		l.OnReload(m, err)
	}
}
