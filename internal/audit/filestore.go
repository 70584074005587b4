package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/giantswarm/brokerd/internal/brokerapi"
	"github.com/giantswarm/brokerd/pkg/logging"
)

// FileStore is the default Store: one append-only JSON-lines file. It is
// the one component deliberately built on the standard library rather
// than a database driver, since a real persistence backend is explicitly
// out of scope; see DESIGN.md for why no ecosystem library was reached
// for here.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore opens (creating if absent) a JSON-lines audit log at path.
func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	f.Close()
	return &FileStore{path: path}, nil
}

func (s *FileStore) Put(ctx context.Context, rec brokerapi.ExecutionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return brokerapi.Wrap(brokerapi.ErrPersistenceError, err, "open audit log")
	}
	defer f.Close()

	line, err := json.Marshal(rec)
	if err != nil {
		return brokerapi.Wrap(brokerapi.ErrPersistenceError, err, "marshal execution record")
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		return brokerapi.Wrap(brokerapi.ErrPersistenceError, err, "append audit record")
	}
	return nil
}

func (s *FileStore) readAll() ([]brokerapi.ExecutionRecord, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var out []brokerapi.ExecutionRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec brokerapi.ExecutionRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			logging.Warn("Audit", "skipping malformed audit line: %v", err)
			continue
		}
		out = append(out, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *FileStore) Get(ctx context.Context, callableID string) ([]brokerapi.ExecutionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.readAll()
	if err != nil {
		return nil, brokerapi.Wrap(brokerapi.ErrPersistenceError, err, "read audit log")
	}
	var out []brokerapi.ExecutionRecord
	for _, rec := range all {
		if rec.CallableID == callableID {
			out = append(out, rec)
		}
	}
	return out, nil
}

// List returns records matching filter, most recently started first. The
// log itself is append-only (oldest first on disk), so matches are walked
// back-to-front before Limit is applied.
func (s *FileStore) List(ctx context.Context, filter Filter) ([]brokerapi.ExecutionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.readAll()
	if err != nil {
		return nil, brokerapi.Wrap(brokerapi.ErrPersistenceError, err, "read audit log")
	}
	var out []brokerapi.ExecutionRecord
	for i := len(all) - 1; i >= 0; i-- {
		rec := all[i]
		if !filter.matches(rec) {
			continue
		}
		out = append(out, rec)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

// Prune rewrites the log dropping every record started before cutoff,
// returning the number of records dropped.
func (s *FileStore) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.readAll()
	if err != nil {
		return 0, brokerapi.Wrap(brokerapi.ErrPersistenceError, err, "read audit log")
	}

	kept := all[:0]
	dropped := 0
	for _, rec := range all {
		if rec.StartedAt.Before(cutoff) {
			dropped++
			continue
		}
		kept = append(kept, rec)
	}

	tmpPath := s.path + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, brokerapi.Wrap(brokerapi.ErrPersistenceError, err, "stage pruned audit log")
	}
	w := bufio.NewWriter(f)
	for _, rec := range kept {
		line, err := json.Marshal(rec)
		if err != nil {
			f.Close()
			return 0, brokerapi.Wrap(brokerapi.ErrPersistenceError, err, "marshal execution record")
		}
		if _, err := w.Write(append(line, '\n')); err != nil {
			f.Close()
			return 0, brokerapi.Wrap(brokerapi.ErrPersistenceError, err, "write pruned audit log")
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return 0, brokerapi.Wrap(brokerapi.ErrPersistenceError, err, "flush pruned audit log")
	}
	f.Close()

	if err := os.Rename(tmpPath, s.path); err != nil {
		return 0, brokerapi.Wrap(brokerapi.ErrPersistenceError, err, "commit pruned audit log")
	}
	return dropped, nil
}

func (s *FileStore) Close() error { return nil }
