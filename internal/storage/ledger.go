// Package storage keeps the pipeline's persistent state: the posted-ID
// ledger, the article catalog and the content fingerprint gate. State lives
// in flat JSON files; writes are atomic and reads tolerate corrupt or
// missing files so a bad state file can never take the run down.
package storage

import (
	"encoding/json"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"sync"
)

// DefaultRetention bounds how many posted IDs survive a save. Variants of
// the upstream deployments used anything from 100 to 5000; the bound is a
// config knob and this is only the fallback.
const DefaultRetention = 500

// Ledger is the set of article IDs already delivered to the channel.
// Safe for concurrent use within one process. Cross-process access is
// best effort, last writer wins; the atomic rename keeps files intact.
type Ledger struct {
	mu  sync.RWMutex
	ids map[string]struct{}
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{ids: make(map[string]struct{})}
}

// LoadLedger reads a JSON array of IDs from path. A missing file,
// malformed JSON or unexpected element types all degrade to an empty or
// partial set with a warning; this never fails.
func LoadLedger(path string, log *slog.Logger) *Ledger {
	l := NewLedger()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn("cannot read ledger, assuming empty", "path", path, "error", err)
		}
		return l
	}
	if len(data) == 0 {
		return l
	}

	var raw []any
	if err := json.Unmarshal(data, &raw); err != nil {
		log.Warn("ledger is not valid JSON, assuming empty", "path", path, "error", err)
		return l
	}

	for _, item := range raw {
		if id, ok := coerceID(item); ok {
			l.ids[id] = struct{}{}
		}
	}
	return l
}

// coerceID turns a decoded JSON element into an ID string. Accepts plain
// strings, numbers, and {"id": ...} objects from older state files.
func coerceID(item any) (string, bool) {
	switch v := item.(type) {
	case string:
		if v != "" {
			return v, true
		}
	case float64:
		return strconv.FormatInt(int64(v), 10), true
	case map[string]any:
		if inner, ok := v["id"]; ok {
			return coerceID(inner)
		}
	}
	return "", false
}

// Contains reports whether id has already been posted.
func (l *Ledger) Contains(id string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.ids[id]
	return ok
}

// Add records id as posted.
func (l *Ledger) Add(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ids[id] = struct{}{}
}

// Len returns the number of IDs currently held.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.ids)
}

// IDs returns the held IDs sorted ascending by numeric value.
func (l *Ledger) IDs() []string {
	l.mu.RLock()
	out := make([]string, 0, len(l.ids))
	for id := range l.ids {
		out = append(out, id)
	}
	l.mu.RUnlock()

	sortNumeric(out)
	return out
}

// Save merges the in-memory set with whatever is on disk, trims the union
// to the newest retention IDs and writes the result atomically. Losing a
// save means an article may be re-posted next run, never silently dropped,
// so callers log the error and carry on.
func (l *Ledger) Save(path string, retention int, log *slog.Logger) error {
	if retention <= 0 {
		retention = DefaultRetention
	}

	// Merge with IDs another process may have written since our load.
	onDisk := LoadLedger(path, log)
	l.mu.Lock()
	for id := range onDisk.ids {
		l.ids[id] = struct{}{}
	}
	l.mu.Unlock()

	ids := l.IDs()
	if len(ids) > retention {
		ids = ids[len(ids)-retention:]
	}

	data, err := json.MarshalIndent(ids, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(path, data)
}

// sortNumeric orders IDs ascending, numerically when both sides parse as
// integers and lexically otherwise (non-numeric IDs sort after numeric ones).
func sortNumeric(ids []string) {
	sort.Slice(ids, func(i, j int) bool {
		a, aerr := strconv.ParseInt(ids[i], 10, 64)
		b, berr := strconv.ParseInt(ids[j], 10, 64)
		switch {
		case aerr == nil && berr == nil:
			return a < b
		case aerr == nil:
			return true
		case berr == nil:
			return false
		default:
			return ids[i] < ids[j]
		}
	})
}
