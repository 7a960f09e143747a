// Package store persists window-size records as a single JSON file.
//
// Mutations only touch the in-memory map and arm a debounced flush, so a
// burst of size changes costs one disk write. The file is replaced
// atomically via a temp file and rename; a crash leaves either the old or
// the new state, never a torn file.
package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/1broseidon/sizekeep/internal/platform"
	"github.com/1broseidon/sizekeep/internal/winid"
)

const (
	// DefaultMinSize is the floor below which dimensions are considered
	// transient layout noise and never recorded.
	DefaultMinSize = 50
	// DefaultFlushDelay is how long the store waits after the last
	// mutation before writing to disk.
	DefaultFlushDelay = 1000 * time.Millisecond
)

// Record is the remembered size for one application identity.
type Record struct {
	Width       int   `json:"width"`
	Height      int   `json:"height"`
	LastUpdated int64 `json:"lastUpdated"` // unix milliseconds
}

// Options tunes a Store. Zero values select the defaults.
type Options struct {
	MinSize    int
	FlushDelay time.Duration
}

// Store holds the record map and its flush state. All methods must be
// called from the scheduler's callback goroutine; the store does not lock.
type Store struct {
	path  string
	sched platform.Scheduler
	log   *slog.Logger

	minSize    int
	flushDelay time.Duration

	records map[winid.ID]Record
	dirty   bool
	flush   platform.Timer
}

func New(path string, opts Options, sched platform.Scheduler, log *slog.Logger) *Store {
	if opts.MinSize <= 0 {
		opts.MinSize = DefaultMinSize
	}
	if opts.FlushDelay <= 0 {
		opts.FlushDelay = DefaultFlushDelay
	}
	return &Store{
		path:       path,
		sched:      sched,
		log:        log,
		minSize:    opts.MinSize,
		flushDelay: opts.FlushDelay,
		records:    make(map[winid.ID]Record),
	}
}

// Load reads the state file into memory. A missing file is a fresh start
// and malformed content is discarded with a warning; Load never fails the
// caller, because losing saved sizes must not take the daemon down.
func (s *Store) Load() {
	records, err := ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.records = make(map[winid.ID]Record)
			return
		}
		s.log.Warn("discarding unreadable state file", "path", s.path, "error", err)
		s.records = make(map[winid.ID]Record)
		return
	}
	s.records = records
	s.log.Info("loaded saved window sizes", "path", s.path, "records", len(records))
}

// Get returns the record for id.
func (s *Store) Get(id winid.ID) (Record, bool) {
	rec, ok := s.records[id]
	return rec, ok
}

// All returns a copy of every record.
func (s *Store) All() map[winid.ID]Record {
	out := make(map[winid.ID]Record, len(s.records))
	for id, rec := range s.records {
		out[id] = rec
	}
	return out
}

func (s *Store) Len() int { return len(s.records) }

// Path returns the state file location.
func (s *Store) Path() string { return s.path }

// Dirty reports whether unflushed mutations exist.
func (s *Store) Dirty() bool { return s.dirty }

// Set records a size for id. Dimensions under the minimum are dropped, and
// recording the size an id already has is a no-op, so the timestamp only
// moves when the size really changed.
func (s *Store) Set(id winid.ID, width, height int) {
	if id == "" {
		return
	}
	if width < s.minSize || height < s.minSize {
		s.log.Debug("ignoring implausibly small size", "id", id, "width", width, "height", height)
		return
	}
	if rec, ok := s.records[id]; ok && rec.Width == width && rec.Height == height {
		return
	}
	s.records[id] = Record{
		Width:       width,
		Height:      height,
		LastUpdated: s.sched.Now().UnixMilli(),
	}
	s.dirty = true
	s.scheduleFlush()
}

// Delete removes the record for id and reports whether one existed.
func (s *Store) Delete(id winid.ID) bool {
	if _, ok := s.records[id]; !ok {
		return false
	}
	delete(s.records, id)
	s.dirty = true
	s.scheduleFlush()
	return true
}

func (s *Store) scheduleFlush() {
	if s.flush != nil {
		s.flush.Cancel()
	}
	s.flush = s.sched.After(s.flushDelay, func() {
		s.flush = nil
		if err := s.writeNow(); err != nil {
			// Keep dirty so the next mutation retries the write.
			s.log.Warn("failed to flush state", "path", s.path, "error", err)
		}
	})
}

// FlushNow cancels any pending flush and writes immediately if there is
// anything unwritten. Used at shutdown and by the control socket.
func (s *Store) FlushNow() error {
	if s.flush != nil {
		s.flush.Cancel()
		s.flush = nil
	}
	if !s.dirty {
		return nil
	}
	if err := s.writeNow(); err != nil {
		s.log.Warn("failed to flush state", "path", s.path, "error", err)
		return err
	}
	return nil
}

func (s *Store) writeNow() error {
	if err := WriteFile(s.path, s.records); err != nil {
		return err
	}
	s.dirty = false
	s.log.Debug("state flushed", "path", s.path, "records", len(s.records))
	return nil
}

// UpdateOptions applies new tuning without touching records. The next
// mutation picks up the new flush delay.
func (s *Store) UpdateOptions(opts Options) {
	if opts.MinSize > 0 {
		s.minSize = opts.MinSize
	}
	if opts.FlushDelay > 0 {
		s.flushDelay = opts.FlushDelay
	}
}

// ReadFile parses a state file into a record map. Unlike Load it surfaces
// errors, for callers that inspect state offline.
func ReadFile(path string) (map[winid.ID]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var records map[winid.ID]Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse state file %q: %w", path, err)
	}
	if records == nil {
		records = make(map[winid.ID]Record)
	}
	return records, nil
}

// ForgetInFile removes id from the state file directly, for CLI and tool
// surfaces running while no daemon holds the store. Reports whether the
// record existed. A missing state file simply has nothing to forget.
func ForgetInFile(path string, id winid.ID) (bool, error) {
	records, err := ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if _, ok := records[id]; !ok {
		return false, nil
	}
	delete(records, id)
	if err := WriteFile(path, records); err != nil {
		return false, err
	}
	return true, nil
}

// WriteFile atomically replaces path with the JSON encoding of records.
// The temp file lives in the target directory so the rename never crosses
// filesystems.
func WriteFile(path string, records map[winid.ID]Record) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".state-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if tmpName != "" {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close state file: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("failed to set state file mode: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	tmpName = ""
	return nil
}
