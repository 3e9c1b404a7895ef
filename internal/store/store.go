// Package store implements the durable repair-request store backed by a
// delimited flat file (CSV with a header row).
//
// Write semantics:
//   - Append is append-only: a new row is written and fsynced before the
//     in-memory index is touched, so a failed append never corrupts rows
//     that were already committed.
//   - Delete rewrites the whole file to a temporary sibling and publishes it
//     with os.Rename, so a crash mid-rewrite leaves either the old or the
//     new file in place, both fully parseable.
//
// The store serializes all access with a single mutex; it is safe for
// concurrent use from any number of conversations.
package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-repair-bot/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist, or when an
// export is attempted before any record has ever been stored.
var ErrNotFound = errors.New("not found")

// Store is an append-only CSV-backed record store with an in-memory index.
// The index and the file agree after every successful mutation.
type Store struct {
	mu      sync.Mutex
	path    string
	records []domain.Request
	nextID  int64
}

// Open loads the store at path. A missing file yields an empty store; the
// file itself is created lazily on the first append. Malformed rows (wrong
// field count, non-numeric id) are skipped, not fatal. The next id is
// recovered as max(existing ids)+1, or 1 for an empty store.
func Open(path string) (*Store, error) {
	s := &Store{path: path, nextID: 1}

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open request store: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // tolerate both 6- and 7-column schemas
	first := true
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			// A torn row from a crashed append is recoverable; everything
			// before it already parsed and the reader resumes on the next line.
			log.Warn().Err(err).Str("path", path).Msg("request store: unparseable row skipped")
			continue
		}
		if err != nil {
			// Anything else (I/O) would repeat forever; surface it.
			return nil, fmt.Errorf("read request store: %w", err)
		}
		if first {
			first = false
			if len(row) > 0 && row[0] == domain.CSVHeader[0] {
				continue // header
			}
		}
		rec, ok := parseRow(row)
		if !ok {
			log.Warn().Strs("row", row).Msg("request store: malformed row skipped")
			continue
		}
		s.records = append(s.records, rec)
		if rec.ID >= s.nextID {
			s.nextID = rec.ID + 1
		}
	}
	return s, nil
}

// parseRow converts a CSV row into a Request. Rows must carry the six legacy
// columns or the full seven; a missing or unparseable created_at loads as the
// zero time rather than rejecting the row.
func parseRow(row []string) (domain.Request, bool) {
	if len(row) != 6 && len(row) != 7 {
		return domain.Request{}, false
	}
	id, err := strconv.ParseInt(row[0], 10, 64)
	if err != nil || id <= 0 {
		return domain.Request{}, false
	}
	rec := domain.Request{
		ID:            id,
		Name:          row[1],
		Phone:         row[2],
		DeviceType:    row[3],
		Problem:       row[4],
		PreferredTime: row[5],
	}
	if len(row) == 7 && row[6] != "" {
		if t, err := time.Parse(time.RFC3339, row[6]); err == nil {
			rec.CreatedAt = t
		}
	}
	return rec, true
}

// Append assigns an id and creation time to r, durably appends it and adds it
// to the in-memory index. On error neither the index nor the next id change.
func (s *Store) Append(r domain.Request) (domain.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r.ID = s.nextID
	r.CreatedAt = time.Now().UTC()

	if err := s.appendRow(r); err != nil {
		return domain.Request{}, fmt.Errorf("append request: %w", err)
	}

	s.nextID++
	s.records = append(s.records, r)
	return r, nil
}

// appendRow writes one record to the end of the file, creating it (with the
// header row) when absent. The write is flushed and fsynced before returning.
func (s *Store) appendRow(r domain.Request) error {
	f, err := os.OpenFile(s.path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	if st.Size() == 0 {
		if err := w.Write(domain.CSVHeader); err != nil {
			return err
		}
	}
	if err := w.Write(r.CSVRow()); err != nil {
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Sync()
}

// Delete removes the record with the given id. It reports false when the id
// is unknown. On success the durable file has been rewritten and published
// atomically before the in-memory index is updated; on rewrite failure the
// prior durable state and the index are left intact.
func (s *Store) Delete(id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, rec := range s.records {
		if rec.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false, nil
	}

	remaining := make([]domain.Request, 0, len(s.records)-1)
	remaining = append(remaining, s.records[:idx]...)
	remaining = append(remaining, s.records[idx+1:]...)

	if err := s.rewrite(remaining); err != nil {
		return false, fmt.Errorf("delete request %d: %w", id, err)
	}

	s.records = remaining
	return true, nil
}

// rewrite writes header + records to a temp file in the store's directory and
// renames it over the live file. The temp file is removed on any failure.
func (s *Store) rewrite(records []domain.Request) error {
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		if tmpName != "" {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	w := csv.NewWriter(tmp)
	if err := w.Write(domain.CSVHeader); err != nil {
		return err
	}
	for _, rec := range records {
		if err := w.Write(rec.CSVRow()); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		tmpName = ""
		return err
	}
	tmpName = "" // published; nothing to clean up
	return nil
}

// List returns a copy of all records in storage order.
func (s *Store) List() []domain.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Request, len(s.records))
	copy(out, s.records)
	return out
}

// Get returns the record with the given id, or ErrNotFound.
func (s *Store) Get(id int64) (domain.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.records {
		if rec.ID == id {
			return rec, nil
		}
	}
	return domain.Request{}, ErrNotFound
}

// Export returns the durable file's current bytes verbatim, for operator
// download. It returns ErrNotFound while the store has never been written.
func (s *Store) Export() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("export request store: %w", err)
	}
	return b, nil
}

// Count returns the number of stored records.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// NextID returns the id the next appended record will receive.
func (s *Store) NextID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextID
}
