package cache

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/pokeriq/gtocore/internal/fileutil"
	"github.com/pokeriq/gtocore/internal/solver"
)

// PersistedEntry is the serialised form of one cache entry.
type PersistedEntry struct {
	Key      string         `json:"key"`
	Result   *solver.Result `json:"result"`
	StoredAt time.Time      `json:"stored_at"`
}

// Store loads and saves cache snapshots. Implementations decide the medium;
// the cache only sees entry slices.
type Store interface {
	Load() ([]PersistedEntry, error)
	Save(entries []PersistedEntry) error
}

// FileStore persists snapshots as a JSON file, written atomically so a crash
// mid-save never corrupts an existing snapshot.
type FileStore struct {
	Path string
}

type snapshotFile struct {
	Version int              `json:"version"`
	SavedAt time.Time        `json:"saved_at"`
	Entries []PersistedEntry `json:"entries"`
}

const snapshotFileVersion = 1

// Load reads the snapshot. A missing file is an empty snapshot, not an error.
func (fs *FileStore) Load() ([]PersistedEntry, error) {
	data, err := os.ReadFile(fs.Path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cache snapshot: %w", err)
	}
	var snap snapshotFile
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse cache snapshot %s: %w", fs.Path, err)
	}
	if snap.Version != snapshotFileVersion {
		return nil, fmt.Errorf("cache snapshot %s has unsupported version %d", fs.Path, snap.Version)
	}
	return snap.Entries, nil
}

// Save writes the snapshot atomically.
func (fs *FileStore) Save(entries []PersistedEntry) error {
	data, err := json.Marshal(snapshotFile{
		Version: snapshotFileVersion,
		SavedAt: time.Now().UTC(),
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("encode cache snapshot: %w", err)
	}
	if err := fileutil.WriteFileAtomic(fs.Path, data, 0o644); err != nil {
		return fmt.Errorf("write cache snapshot %s: %w", fs.Path, err)
	}
	return nil
}

// LoadFrom seeds the cache with a previously saved snapshot. Entries older
// than the TTL are dropped rather than resurrected.
func (c *Cache) LoadFrom(store Store) error {
	entries, err := store.Load()
	if err != nil {
		return err
	}
	loaded := 0
	now := c.clock.Now()
	for _, pe := range entries {
		if pe.Result == nil || pe.Key == "" {
			continue
		}
		if c.cfg.TTL > 0 && now.Sub(pe.StoredAt) > c.cfg.TTL {
			continue
		}
		c.mu.Lock()
		if _, ok := c.entries[pe.Key]; !ok && !c.closed && c.ll.Len() < c.cfg.MaxEntries {
			c.entries[pe.Key] = c.ll.PushFront(&entry{key: pe.Key, result: pe.Result, storedAt: pe.StoredAt})
			loaded++
		}
		c.mu.Unlock()
	}
	c.logger.Info("loaded cache snapshot", "entries", loaded, "skipped", len(entries)-loaded)
	return nil
}

// SaveTo snapshots the live entries into the store. Entries whose
// exploitability was never measured are skipped; NaN does not survive JSON.
func (c *Cache) SaveTo(store Store) error {
	c.mu.Lock()
	entries := make([]PersistedEntry, 0, c.ll.Len())
	for el := c.ll.Front(); el != nil; el = el.Next() {
		e := el.Value.(*entry)
		if c.expired(e) || math.IsNaN(e.result.Exploitability) {
			continue
		}
		entries = append(entries, PersistedEntry{Key: e.key, Result: e.result, StoredAt: e.storedAt})
	}
	c.mu.Unlock()

	if err := store.Save(entries); err != nil {
		return err
	}
	c.logger.Info("saved cache snapshot", "entries", len(entries))
	return nil
}
