// Package ledger persists CheckpointState (atomic write-temp-then-rename,
// tolerant read of a missing file) and appends LedgerEntry records to an
// append-only JSON-lines file, per spec §4.F. The rename-for-atomicity
// idiom follows the teacher's internal/updater.replaceBinary, generalized
// from a binary swap to a JSON state file.
package ledger

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/hochfrequenz/taskmaster-longrun/internal/domain"
	"github.com/hochfrequenz/taskmaster-longrun/internal/runerr"
)

// ReadCheckpoint loads checkpoint.json, returning a freshly initialized
// state if the file does not exist. A JSON parse failure is fatal.
func ReadCheckpoint(path string) (*domain.CheckpointState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.NewCheckpointState(), nil
		}
		return nil, err
	}

	var cp domain.CheckpointState
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, &runerr.CorruptCheckpointError{Path: path, Err: err}
	}
	if cp.Attempts == nil {
		cp.Attempts = make(map[string]int)
	}
	return &cp, nil
}

// WriteCheckpoint serializes cp with stable indentation and writes it
// atomically: a temp file in the same directory is written and fsynced,
// then renamed over the destination so a crash mid-write never leaves a
// half-written checkpoint.json behind.
func WriteCheckpoint(path string, cp *domain.CheckpointState) error {
	cp.UpdatedAt = time.Now().UTC()

	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".checkpoint-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming checkpoint into place: %w", err)
	}
	return nil
}

// Ledger appends entries to an append-only JSON-lines file, flushing after
// every write so an attempt's entry survives even if the process is
// killed immediately afterward.
type Ledger struct {
	path string
}

// NewLedger returns a Ledger writing to path, creating parent directories
// as needed. It does not truncate an existing file.
func NewLedger(path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	return &Ledger{path: path}, nil
}

// Append writes entry as one JSON line and flushes it to disk.
func (l *Ledger) Append(entry domain.LedgerEntry) error {
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(f)
	if _, err := w.Write(data); err != nil {
		return err
	}
	if err := w.WriteByte('\n'); err != nil {
		return err
	}
	return w.Flush()
}

// ReadTail reads every entry from the append-only ledger file and returns
// at most the last n, oldest first — used by the dashboard to tail recent
// activity without holding the whole history in memory long-term. A
// missing file yields an empty, non-error result.
func ReadTail(path string, n int) ([]domain.LedgerEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var entries []domain.LedgerEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var entry domain.LedgerEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if n > 0 && len(entries) > n {
		entries = entries[len(entries)-n:]
	}
	return entries, nil
}

var sanitizeRe = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// SanitizeLogName replaces every character outside [A-Za-z0-9._-] with an
// underscore, per spec §4.H's per-attempt log naming rule.
func SanitizeLogName(id string) string {
	return sanitizeRe.ReplaceAllString(id, "_")
}

// LogFileName returns the per-attempt log file name for (id, attempt),
// keyed by the sanitized task id so two tasks never collide on disk.
func LogFileName(id string, attempt int) string {
	return fmt.Sprintf("%s-attempt-%d.log", SanitizeLogName(id), attempt)
}
