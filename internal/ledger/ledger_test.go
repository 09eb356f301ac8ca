package ledger

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/hochfrequenz/taskmaster-longrun/internal/domain"
	"github.com/hochfrequenz/taskmaster-longrun/internal/runerr"
)

func TestReadCheckpoint_MissingFileReturnsFresh(t *testing.T) {
	dir := t.TempDir()
	cp, err := ReadCheckpoint(filepath.Join(dir, "checkpoint.json"))
	if err != nil {
		t.Fatalf("ReadCheckpoint() error = %v", err)
	}
	if len(cp.DoneTaskIDs) != 0 || len(cp.BlockedTaskIDs) != 0 {
		t.Errorf("fresh checkpoint not empty: %+v", cp)
	}
	if cp.Attempts == nil {
		t.Error("Attempts map should be initialized, not nil")
	}
}

func TestWriteThenReadCheckpoint_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "checkpoint.json")

	cp := domain.NewCheckpointState()
	cp.MarkAttempt("1")
	cp.MarkDone("1")

	if err := WriteCheckpoint(path, cp); err != nil {
		t.Fatalf("WriteCheckpoint() error = %v", err)
	}

	got, err := ReadCheckpoint(path)
	if err != nil {
		t.Fatalf("ReadCheckpoint() error = %v", err)
	}
	if !got.IsDone("1") {
		t.Error("IsDone(1) = false, want true after round trip")
	}
	if got.Attempts["1"] != 1 {
		t.Errorf("Attempts[1] = %d, want 1", got.Attempts["1"])
	}
}

func TestWriteCheckpoint_NoStaleTempFilesLeftBehind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "checkpoint.json")

	if err := WriteCheckpoint(path, domain.NewCheckpointState()); err != nil {
		t.Fatalf("WriteCheckpoint() error = %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "checkpoint.json" {
		t.Errorf("directory contents = %+v, want only checkpoint.json", entries)
	}
}

func TestReadCheckpoint_CorruptJSONIsFatal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "checkpoint.json")
	if err := os.WriteFile(path, []byte("{not valid json"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := ReadCheckpoint(path)
	if err == nil {
		t.Fatal("ReadCheckpoint() error = nil, want corrupt-checkpoint error")
	}
	var corrupt *runerr.CorruptCheckpointError
	if !errors.As(err, &corrupt) {
		t.Errorf("error = %v, want *runerr.CorruptCheckpointError", err)
	}
}

func TestLedger_AppendWritesOneJSONLinePerEntry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ledger.jsonl")

	l, err := NewLedger(path)
	if err != nil {
		t.Fatalf("NewLedger() error = %v", err)
	}

	exitCode := 0
	entries := []domain.LedgerEntry{
		{TaskID: "1", Title: "demo", Attempt: 1, Status: domain.LedgerInProgress},
		{TaskID: "1", Title: "demo", Attempt: 1, Status: domain.LedgerDone, ExitCode: &exitCode},
	}
	for _, e := range entries {
		if err := l.Append(e); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}

	var decoded domain.LedgerEntry
	if err := json.Unmarshal([]byte(lines[1]), &decoded); err != nil {
		t.Fatalf("line 2 did not parse as JSON: %v", err)
	}
	if decoded.Status != domain.LedgerDone {
		t.Errorf("Status = %q, want DONE", decoded.Status)
	}
}

func TestReadTail_MissingFileReturnsNilNotError(t *testing.T) {
	dir := t.TempDir()
	entries, err := ReadTail(filepath.Join(dir, "ledger.jsonl"), 5)
	if err != nil {
		t.Fatalf("ReadTail() error = %v", err)
	}
	if entries != nil {
		t.Errorf("entries = %+v, want nil", entries)
	}
}

func TestReadTail_ReturnsAllEntriesWhenFewerThanN(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ledger.jsonl")

	l, err := NewLedger(path)
	if err != nil {
		t.Fatalf("NewLedger() error = %v", err)
	}
	for i := 1; i <= 3; i++ {
		if err := l.Append(domain.LedgerEntry{TaskID: fmt.Sprintf("%d", i), Status: domain.LedgerDone}); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	entries, err := ReadTail(path, 10)
	if err != nil {
		t.Fatalf("ReadTail() error = %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	for i, e := range entries {
		want := fmt.Sprintf("%d", i+1)
		if e.TaskID != want {
			t.Errorf("entries[%d].TaskID = %q, want %q", i, e.TaskID, want)
		}
	}
}

func TestReadTail_TruncatesToLastNOldestFirst(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ledger.jsonl")

	l, err := NewLedger(path)
	if err != nil {
		t.Fatalf("NewLedger() error = %v", err)
	}
	for i := 1; i <= 5; i++ {
		if err := l.Append(domain.LedgerEntry{TaskID: fmt.Sprintf("%d", i), Status: domain.LedgerDone}); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	entries, err := ReadTail(path, 2)
	if err != nil {
		t.Fatalf("ReadTail() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].TaskID != "4" || entries[1].TaskID != "5" {
		t.Errorf("entries = %+v, want last two oldest-first (4, 5)", entries)
	}
}

func TestReadTail_SkipsUnparseableLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ledger.jsonl")

	l, err := NewLedger(path)
	if err != nil {
		t.Fatalf("NewLedger() error = %v", err)
	}
	if err := l.Append(domain.LedgerEntry{TaskID: "1", Status: domain.LedgerDone}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString("not json\n"); err != nil {
		t.Fatal(err)
	}
	f.Close()

	if err := l.Append(domain.LedgerEntry{TaskID: "2", Status: domain.LedgerDone}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	entries, err := ReadTail(path, 10)
	if err != nil {
		t.Fatalf("ReadTail() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2 (malformed line skipped)", len(entries))
	}
	if entries[0].TaskID != "1" || entries[1].TaskID != "2" {
		t.Errorf("entries = %+v, want (1, 2)", entries)
	}
}

func TestSanitizeLogName_ReplacesDisallowedChars(t *testing.T) {
	got := SanitizeLogName("task/1.2:sub task")
	want := "task_1.2_sub_task"
	if got != want {
		t.Errorf("SanitizeLogName() = %q, want %q", got, want)
	}
}

func TestLogFileName_IsKeyedByIDAndAttempt(t *testing.T) {
	got := LogFileName("1.2", 3)
	want := "1.2-attempt-3.log"
	if got != want {
		t.Errorf("LogFileName() = %q, want %q", got, want)
	}
}
