// Package taskstore provides the concrete external task-store collaborator
// that spec.md treats as out of scope: a SQLite-backed Store (grounded on
// the teacher's internal/taskstore/store.go ON CONFLICT upsert pattern) plus
// an in-memory MemStore for tests, both satisfying the same Store
// interface the runner depends on.
package taskstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hochfrequenz/taskmaster-longrun/internal/domain"
)

// Store is the collaborator the runner loop polls for NextTask and reports
// outcomes to via SetStatus. Implemented by SQLiteStore and MemStore.
type Store interface {
	// NextTask returns the next task whose dependencies are already done
	// and which is not itself done or blocked, or nil if none remain.
	NextTask() (*domain.Task, error)
	// SetStatus updates a task's status.
	SetStatus(taskID string, status domain.TaskStatus) error
	// Task returns a single task by ID, or nil if not found.
	Task(taskID string) (*domain.Task, error)
	// AllTasks returns every task in store order.
	AllTasks() ([]*domain.Task, error)
	Close() error
}

// SQLiteStore is a database/sql-backed Store using the pure-Go
// modernc.org/sqlite driver, matching the teacher's no-cgo choice.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS tasks (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	description TEXT,
	details TEXT,
	test_strategy TEXT,
	status TEXT NOT NULL DEFAULT 'pending',
	depends_on TEXT,
	position INTEGER NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
`

// NewSQLiteStore opens (and migrates) a SQLite-backed store at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

// UpsertTask inserts or updates a task at a given ordering position.
func (s *SQLiteStore) UpsertTask(task *domain.Task, position int) error {
	depsJSON, err := json.Marshal(task.DependsOn)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`
		INSERT INTO tasks (id, title, description, details, test_strategy, status, depends_on, position, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			details = excluded.details,
			test_strategy = excluded.test_strategy,
			depends_on = excluded.depends_on,
			position = excluded.position,
			updated_at = excluded.updated_at
	`,
		task.ID, task.Title, task.Description, task.Details, task.TestStrategy,
		string(task.Status), string(depsJSON), position, time.Now(),
	)
	return err
}

func (s *SQLiteStore) Task(taskID string) (*domain.Task, error) {
	row := s.db.QueryRow(`
		SELECT id, title, description, details, test_strategy, status, depends_on
		FROM tasks WHERE id = ?
	`, taskID)
	task, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return task, err
}

func (s *SQLiteStore) AllTasks() ([]*domain.Task, error) {
	rows, err := s.db.Query(`
		SELECT id, title, description, details, test_strategy, status, depends_on
		FROM tasks ORDER BY position
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*domain.Task
	for rows.Next() {
		task, err := scanTaskRows(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// NextTask returns the first pending task (in position order) all of whose
// dependencies are done, or nil if none qualify.
func (s *SQLiteStore) NextTask() (*domain.Task, error) {
	tasks, err := s.AllTasks()
	if err != nil {
		return nil, err
	}
	done := make(map[string]bool)
	for _, t := range tasks {
		if t.Status.IsTerminal() && t.Status != domain.StatusBlocked && t.Status != domain.StatusCancelled {
			done[t.ID] = true
		}
	}
	for _, t := range tasks {
		if t.Status.IsTerminal() {
			continue
		}
		ready := true
		for _, dep := range t.DependsOn {
			if !done[dep] {
				ready = false
				break
			}
		}
		if ready {
			return t, nil
		}
	}
	return nil, nil
}

func (s *SQLiteStore) SetStatus(taskID string, status domain.TaskStatus) error {
	_, err := s.db.Exec(`UPDATE tasks SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now(), taskID)
	return err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var task domain.Task
	var status, depsJSON string
	var description, details, testStrategy sql.NullString

	if err := row.Scan(&task.ID, &task.Title, &description, &details, &testStrategy, &status, &depsJSON); err != nil {
		return nil, err
	}

	task.Status = domain.TaskStatus(status)
	task.Description = description.String
	task.Details = details.String
	task.TestStrategy = testStrategy.String

	if depsJSON != "" && depsJSON != "null" {
		var deps []string
		if err := json.Unmarshal([]byte(depsJSON), &deps); err != nil {
			return nil, err
		}
		task.DependsOn = deps
	}
	return &task, nil
}

func scanTaskRows(rows *sql.Rows) (*domain.Task, error) {
	return scanTask(rows)
}

// MemStore is an in-memory Store for tests, avoiding the SQLite driver
// entirely.
type MemStore struct {
	tasks []*domain.Task
	byID  map[string]*domain.Task
}

// NewMemStore builds a MemStore seeded with tasks, preserving their order
// for NextTask's position-ordered scan.
func NewMemStore(tasks []*domain.Task) *MemStore {
	m := &MemStore{byID: make(map[string]*domain.Task, len(tasks))}
	for _, t := range tasks {
		m.tasks = append(m.tasks, t)
		m.byID[t.ID] = t
	}
	return m
}

func (m *MemStore) Task(taskID string) (*domain.Task, error) {
	return m.byID[taskID], nil
}

func (m *MemStore) AllTasks() ([]*domain.Task, error) {
	return m.tasks, nil
}

func (m *MemStore) NextTask() (*domain.Task, error) {
	done := make(map[string]bool)
	for _, t := range m.tasks {
		if t.Status.IsTerminal() && t.Status != domain.StatusBlocked && t.Status != domain.StatusCancelled {
			done[t.ID] = true
		}
	}
	for _, t := range m.tasks {
		if t.Status.IsTerminal() {
			continue
		}
		ready := true
		for _, dep := range t.DependsOn {
			if !done[dep] {
				ready = false
				break
			}
		}
		if ready {
			return t, nil
		}
	}
	return nil, nil
}

func (m *MemStore) SetStatus(taskID string, status domain.TaskStatus) error {
	t, ok := m.byID[taskID]
	if !ok {
		return fmt.Errorf("taskstore: unknown task %q", taskID)
	}
	t.Status = status
	return nil
}

func (m *MemStore) Close() error { return nil }
