package agora

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/lmittmann/tint"
	"golang.org/x/sync/errgroup"
)

// cacheRecord wraps one guild's in-memory Document with write-back
// metadata. dirty is the single source of truth for whether the
// document needs persisting; only a successful flush clears it.
type cacheRecord struct {
	once sync.Once

	// mu serializes mutation and flush for this guild, so a flush
	// always marshals a consistent snapshot.
	mu         sync.Mutex
	doc        Document
	dirty      bool
	lastAccess time.Time
}

// Store persists one JSON document per guild under a configurable
// directory, fronted by a write-back cache. Documents load lazily on
// first access and stay cached until the guild is evicted or deleted;
// flushes only touch disk when the record is dirty.
//
// Missing or corrupt files decode as an empty document: old files and
// hand-edited files must never take a guild down.
type Store struct {
	dir    string
	pretty bool
	logger *slog.Logger

	mu      sync.RWMutex
	records map[int64]*cacheRecord

	// loadFunc is swapped out in tests to count/stub disk loads
	loadFunc func(guildID int64) Document
}

func NewStore(cfg *Config, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		dir:     cfg.StorageDir,
		pretty:  cfg.StoragePrettyPrint,
		logger:  logger.With(loggerNameKey, "store"),
		records: map[int64]*cacheRecord{},
	}
	s.loadFunc = s.loadDocument
	return s
}

func (s *Store) path(guildID int64) string {
	return filepath.Join(s.dir, fmt.Sprintf("%d.json", guildID))
}

// record returns the cache record for guildID, loading the document
// from disk exactly once even under concurrent first access.
func (s *Store) record(guildID int64) *cacheRecord {
	s.mu.RLock()
	rec := s.records[guildID]
	s.mu.RUnlock()

	if rec == nil {
		s.mu.Lock()
		rec = s.records[guildID]
		if rec == nil {
			rec = &cacheRecord{}
			s.records[guildID] = rec
		}
		s.mu.Unlock()
	}

	rec.once.Do(
		func() {
			doc := s.loadFunc(guildID)
			rec.mu.Lock()
			rec.doc = doc
			rec.mu.Unlock()
		},
	)

	rec.mu.Lock()
	rec.lastAccess = time.Now()
	rec.mu.Unlock()
	return rec
}

func (s *Store) loadDocument(guildID int64) Document {
	data, err := os.ReadFile(s.path(guildID))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn(
				"could not read guild document, starting empty",
				slog.Int64("guild_id", guildID),
				tint.Err(err),
			)
		}
		return Document{}
	}
	doc, err := decodeDocument(data)
	if err != nil {
		s.logger.Warn(
			"corrupt guild document, starting empty",
			slog.Int64("guild_id", guildID),
			tint.Err(err),
		)
		return Document{}
	}
	return doc
}

// GetValue reads one key from one namespace of a guild's document.
func (s *Store) GetValue(guildID int64, namespace string, key string) (Value, bool) {
	rec := s.record(guildID)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	entries, ok := rec.doc[namespace]
	if !ok {
		return Value{}, false
	}
	v, ok := entries[key]
	return v, ok
}

// SetValue writes one key into one namespace, creating the namespace
// if needed, and marks the record dirty. The record is marked dirty
// even when the value is unchanged; flush is dirty-gated, so the
// comparison isn't worth the code.
func (s *Store) SetValue(guildID int64, namespace string, key string, v Value) {
	rec := s.record(guildID)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	entries, ok := rec.doc[namespace]
	if !ok {
		entries = map[string]Value{}
		rec.doc[namespace] = entries
	}
	entries[key] = v
	rec.dirty = true
}

// DeleteNamespace removes an entire namespace from a guild's document,
// used by features resetting themselves to defaults.
func (s *Store) DeleteNamespace(guildID int64, namespace string) {
	rec := s.record(guildID)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if _, ok := rec.doc[namespace]; !ok {
		return
	}
	delete(rec.doc, namespace)
	rec.dirty = true
}

// Snapshot returns a deep copy of a guild's document.
func (s *Store) Snapshot(guildID int64) Document {
	rec := s.record(guildID)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.doc.clone()
}

// MarkDirty flags a guild's cached document as needing a flush. It's a
// no-op when the guild isn't cached - nothing to persist.
func (s *Store) MarkDirty(guildID int64) {
	s.mu.RLock()
	rec := s.records[guildID]
	s.mu.RUnlock()
	if rec == nil {
		return
	}
	rec.mu.Lock()
	rec.dirty = true
	rec.mu.Unlock()
}

// Flush writes a guild's document to disk if it's dirty. A clean
// record performs no I/O. A failed write leaves the record dirty so
// the next flush retries.
func (s *Store) Flush(guildID int64) error {
	s.mu.RLock()
	rec := s.records[guildID]
	s.mu.RUnlock()
	if rec == nil {
		return nil
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if !rec.dirty {
		return nil
	}
	if rec.doc == nil {
		// marked dirty while the initial load was still in flight
		rec.doc = Document{}
	}

	data, err := encodeDocument(rec.doc, s.pretty)
	if err != nil {
		return fmt.Errorf("error encoding document for guild %d: %w", guildID, err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("error creating storage dir %s: %w", s.dir, err)
	}
	if err := os.WriteFile(s.path(guildID), data, 0o644); err != nil {
		s.logger.Error(
			"error writing guild document",
			slog.Int64("guild_id", guildID),
			tint.Err(err),
		)
		return fmt.Errorf("error writing document for guild %d: %w", guildID, err)
	}

	rec.dirty = false
	return nil
}

// FlushAll flushes every cached guild. Clean records are skipped, so
// calling this back-to-back with no mutations in between does no
// additional I/O.
func (s *Store) FlushAll() error {
	s.mu.RLock()
	ids := make([]int64, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	g := new(errgroup.Group)
	for _, id := range ids {
		guildID := id
		g.Go(
			func() error {
				return s.Flush(guildID)
			},
		)
	}
	return g.Wait()
}

// Evict drops a guild's cache record, discarding unflushed mutations.
// The durable file, if any, is left alone.
func (s *Store) Evict(guildID int64) {
	s.mu.Lock()
	delete(s.records, guildID)
	s.mu.Unlock()
}

// Delete evicts a guild from the cache and removes its durable file,
// used when the bot is removed from the guild.
func (s *Store) Delete(guildID int64) error {
	s.Evict(guildID)
	err := os.Remove(s.path(guildID))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("error deleting document for guild %d: %w", guildID, err)
	}
	return nil
}

// GuildCacheStat describes one cached guild, for the admin API.
type GuildCacheStat struct {
	GuildID    int64     `json:"guild_id"`
	Dirty      bool      `json:"dirty"`
	LastAccess time.Time `json:"last_access"`
}

// Stats reports the current cache contents, ordered arbitrarily.
func (s *Store) Stats() []GuildCacheStat {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := make([]GuildCacheStat, 0, len(s.records))
	for id, rec := range s.records {
		rec.mu.Lock()
		stats = append(
			stats, GuildCacheStat{
				GuildID:    id,
				Dirty:      rec.dirty,
				LastAccess: rec.lastAccess,
			},
		)
		rec.mu.Unlock()
	}
	return stats
}
