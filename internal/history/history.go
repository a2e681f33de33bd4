// Package history persists shown notifications to a JSONL file and reads
// them back for the history commands. The daemon appends; the CLI loads,
// prunes, and formats.
package history

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"toast/internal/notify"
)

// SchemaVersion is the current persistence schema version.
const SchemaVersion = 1

// schemaHeader is the first line of the JSONL file.
type schemaHeader struct {
	ToastSchemaVersion int   `json:"toast_schema_version"`
	CreatedAt          int64 `json:"created_at"`
}

// Record is one stored notification.
type Record struct {
	ID            string          `json:"id"`
	AppName       string          `json:"app_name"`
	Title         string          `json:"title"`
	Body          string          `json:"body,omitempty"`
	Graphic       string          `json:"graphic,omitempty"`
	Position      string          `json:"position"`
	Urgency       int             `json:"urgency"`
	UrgencyName   string          `json:"urgency_name"`
	Timestamp     int64           `json:"timestamp"`
	ExpireTimeout int             `json:"expire_timeout,omitempty"` // Milliseconds, 0 = sticky
	Actions       []notify.Action `json:"actions,omitempty"`
	Suppressed    bool            `json:"suppressed,omitempty"` // Hidden by do-not-disturb
}

// NewRecord builds a Record from a notification about to be shown.
func NewRecord(id string, n *notify.Notification) Record {
	created := n.Created
	if created.IsZero() {
		created = time.Now()
	}
	return Record{
		ID:            id,
		AppName:       n.AppName,
		Title:         n.Title,
		Body:          n.Body,
		Graphic:       n.Graphic,
		Position:      string(n.Position),
		Urgency:       int(n.Urgency),
		UrgencyName:   n.Urgency.String(),
		Timestamp:     created.Unix(),
		ExpireTimeout: int(n.HideAfter.Milliseconds()),
		Actions:       n.Actions,
	}
}

// Time returns the record's creation time.
func (r Record) Time() time.Time {
	return time.Unix(r.Timestamp, 0)
}

// ErrStoreClosed is returned when operations are attempted on a closed store.
var ErrStoreClosed = errors.New("history store is closed")

// Store reads and writes the JSONL history file. Safe for concurrent use.
type Store struct {
	mu         sync.Mutex
	path       string
	file       *os.File
	closed     bool
	count      int
	maxEntries int
}

// compactSlack is how far past maxEntries the file may grow before it is
// rewritten down to the limit.
const compactSlack = 64

// Open opens or creates the history file at path. maxEntries above zero
// caps the file; the oldest records are dropped when it overflows.
func Open(path string, maxEntries int) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", path, err)
	}

	s := &Store{
		path:       path,
		file:       file,
		maxEntries: maxEntries,
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	if info.Size() == 0 {
		if err := s.writeHeader(); err != nil {
			file.Close()
			return nil, err
		}
	} else {
		records, err := s.loadLocked()
		if err != nil {
			file.Close()
			return nil, err
		}
		s.count = len(records)
	}

	return s, nil
}

// writeHeader writes the schema version header to the file.
func (s *Store) writeHeader() error {
	header := schemaHeader{
		ToastSchemaVersion: SchemaVersion,
		CreatedAt:          time.Now().Unix(),
	}
	data, err := json.Marshal(header)
	if err != nil {
		return err
	}
	_, err = s.file.Write(append(data, '\n'))
	return err
}

// Append adds a record to storage, compacting when the configured cap is
// exceeded.
func (s *Store) Append(r Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.file == nil {
		return ErrStoreClosed
	}

	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	if _, err := s.file.Write(append(data, '\n')); err != nil {
		return err
	}
	if err := s.file.Sync(); err != nil {
		return err
	}
	s.count++

	if s.maxEntries > 0 && s.count > s.maxEntries+compactSlack {
		return s.compactLocked()
	}
	return nil
}

// compactLocked rewrites the file keeping only the newest maxEntries.
func (s *Store) compactLocked() error {
	records, err := s.loadLocked()
	if err != nil {
		return err
	}
	if len(records) > s.maxEntries {
		records = records[len(records)-s.maxEntries:]
	}
	return s.rewriteLocked(records)
}

// Load reads all records from storage, oldest first.
func (s *Store) Load() ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.file == nil {
		return nil, ErrStoreClosed
	}
	return s.loadLocked()
}

func (s *Store) loadLocked() ([]Record, error) {
	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek %s: %w", s.path, err)
	}

	var records []Record
	scanner := bufio.NewScanner(s.file)

	// Increase buffer size for potentially long lines
	const maxLineSize = 1024 * 1024 // 1MB
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		// First line is the header
		if lineNum == 1 {
			var header schemaHeader
			if err := json.Unmarshal(line, &header); err == nil && header.ToastSchemaVersion > 0 {
				if header.ToastSchemaVersion > SchemaVersion {
					return nil, fmt.Errorf("unsupported schema version %d (max: %d)",
						header.ToastSchemaVersion, SchemaVersion)
				}
				continue
			}
			// Headerless legacy file, fall through to record parsing
		}

		var r Record
		if err := json.Unmarshal(line, &r); err != nil {
			// Skip malformed lines
			continue
		}
		if r.ID != "" {
			records = append(records, r)
		}
	}

	if err := scanner.Err(); err != nil {
		return records, fmt.Errorf("error reading file: %w", err)
	}

	// Seek back to end for appending
	if _, err := s.file.Seek(0, io.SeekEnd); err != nil {
		return records, err
	}
	return records, nil
}

// Rewrite replaces the entire storage file (used after prune/clear).
func (s *Store) Rewrite(records []Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	return s.rewriteLocked(records)
}

func (s *Store) rewriteLocked(records []Record) error {
	if s.file != nil {
		if err := s.file.Close(); err != nil {
			return err
		}
		s.file = nil
	}

	backupPath := s.path + ".bak"
	if err := os.Rename(s.path, backupPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to create backup: %w", err)
	}

	file, err := os.OpenFile(s.path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		os.Rename(backupPath, s.path)
		return fmt.Errorf("failed to create new file: %w", err)
	}
	s.file = file

	if err := s.writeHeader(); err != nil {
		return err
	}
	for _, r := range records {
		data, err := json.Marshal(r)
		if err != nil {
			return err
		}
		if _, err := s.file.Write(append(data, '\n')); err != nil {
			return err
		}
	}
	if err := s.file.Sync(); err != nil {
		return err
	}

	s.count = len(records)
	os.Remove(backupPath)
	return nil
}

// Prune drops records older than the given age and, when keep is above
// zero, trims the remainder to the newest keep entries. Returns how many
// records were removed.
func (s *Store) Prune(olderThan time.Duration, keep int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.file == nil {
		return 0, ErrStoreClosed
	}

	records, err := s.loadLocked()
	if err != nil {
		return 0, err
	}

	kept := records
	if olderThan > 0 {
		cutoff := time.Now().Add(-olderThan).Unix()
		kept = kept[:0:0]
		for _, r := range records {
			if r.Timestamp >= cutoff {
				kept = append(kept, r)
			}
		}
	}
	if keep > 0 && len(kept) > keep {
		kept = kept[len(kept)-keep:]
	}

	removed := len(records) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	if err := s.rewriteLocked(kept); err != nil {
		return 0, err
	}
	return removed, nil
}

// Clear removes all stored records.
func (s *Store) Clear() error {
	return s.Rewrite(nil)
}

// Count returns the number of stored records.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Close releases the file handle.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.file != nil {
		err := s.file.Close()
		s.file = nil
		return err
	}
	return nil
}
