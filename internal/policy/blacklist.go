package policy

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/calebh/sift/internal/model"
)

// Blacklist is a reloadable exclusion set of thread ids. A missing or
// malformed policy file degrades to an empty set, never an error.
type Blacklist struct {
	path string

	mu      sync.RWMutex
	entries map[string]model.BlacklistEntry
}

type blacklistFile struct {
	Threads []model.BlacklistEntry `json:"threads"`
}

// LoadBlacklist reads the policy file at path.
func LoadBlacklist(path string) *Blacklist {
	b := &Blacklist{path: path, entries: map[string]model.BlacklistEntry{}}
	b.Reload()
	return b
}

// Reload re-reads the policy file and atomically replaces the whole set.
// Partial application is impossible: either the new set installs or the old
// one stays.
func (b *Blacklist) Reload() {
	next := map[string]model.BlacklistEntry{}

	data, err := os.ReadFile(b.path)
	if err == nil {
		var file blacklistFile
		if json.Unmarshal(data, &file) == nil {
			for _, entry := range file.Threads {
				if entry.ThreadID != "" {
					next[entry.ThreadID] = entry
				}
			}
		} else {
			// Bare-array form is accepted too.
			var entries []model.BlacklistEntry
			if json.Unmarshal(data, &entries) == nil {
				for _, entry := range entries {
					if entry.ThreadID != "" {
						next[entry.ThreadID] = entry
					}
				}
			}
		}
	}

	b.mu.Lock()
	b.entries = next
	b.mu.Unlock()
}

// Contains reports whether a thread is excluded.
func (b *Blacklist) Contains(threadID string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.entries[threadID]
	return ok
}

// Entries returns a copy of the current set.
func (b *Blacklist) Entries() []model.BlacklistEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]model.BlacklistEntry, 0, len(b.entries))
	for _, e := range b.entries {
		out = append(out, e)
	}
	return out
}

// Len returns the number of excluded threads.
func (b *Blacklist) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

// Watch reloads the set whenever the policy file changes, until ctx is
// canceled. Watches the parent directory so editor rename-and-replace saves
// are picked up.
func (b *Blacklist) Watch(ctx context.Context, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	dir := filepath.Dir(b.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(b.path) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
					continue
				}
				b.Reload()
				logger.Info("blacklist reloaded",
					zap.String("path", b.path),
					zap.Int("threads", b.Len()))
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("blacklist watcher error", zap.Error(err))
			}
		}
	}()

	return nil
}
