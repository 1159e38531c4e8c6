package course

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
)

// ErrNotFound is returned when a course or module does not exist.
var ErrNotFound = errors.New("course: not found")

// SQLiteStore implements Store over the shared connector database.
type SQLiteStore struct {
	db         *sql.DB
	logger     *slog.Logger
	deleteHook func(moduleID int64)
}

// NewSQLiteStore creates a store over an existing database handle. InitSchema
// must have been run on the same handle.
func NewSQLiteStore(db *sql.DB, logger *slog.Logger) *SQLiteStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLiteStore{db: db, logger: logger}
}

// SetDeleteHook registers a callback invoked after every module deletion.
// The hook runs best-effort: it must handle its own failures, a deletion is
// never blocked or rolled back by its hook.
func (s *SQLiteStore) SetDeleteHook(hook func(moduleID int64)) {
	s.deleteHook = hook
}

// InitSchema creates the course-side tables. Idempotent.
func InitSchema(db *sql.DB) error {
	ddlStatements := []string{
		`CREATE TABLE IF NOT EXISTS courses (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			fullname TEXT NOT NULL,
			shortname TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS course_modules (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			course_id INTEGER NOT NULL,
			section INTEGER NOT NULL DEFAULT 0,
			title TEXT NOT NULL DEFAULT '',
			intro TEXT NOT NULL DEFAULT '',
			idnumber TEXT NOT NULL DEFAULT '',
			pending_deletion INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (course_id) REFERENCES courses(id)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_modules_course ON course_modules(course_id)`,

		`CREATE TABLE IF NOT EXISTS module_packages (
			module_id INTEGER PRIMARY KEY,
			data BLOB NOT NULL,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (module_id) REFERENCES course_modules(id) ON DELETE CASCADE
		)`,
	}

	for _, stmt := range ddlStatements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute course DDL: %w", err)
		}
	}

	return nil
}

// CreateCourse creates a course, used by seeding and tests.
func (s *SQLiteStore) CreateCourse(ctx context.Context, fullname, shortname string) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		"INSERT INTO courses (fullname, shortname) VALUES (?, ?)",
		fullname, shortname,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create course: %w", err)
	}
	return result.LastInsertId()
}

// CourseExists reports whether the course exists.
func (s *SQLiteStore) CourseExists(ctx context.Context, courseID int64) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM courses WHERE id = ?", courseID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check course: %w", err)
	}
	return true, nil
}

// CreateActivity creates a module in the given course section.
func (s *SQLiteStore) CreateActivity(ctx context.Context, spec ActivitySpec) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		"INSERT INTO course_modules (course_id, section, title, intro, idnumber) VALUES (?, ?, ?, ?, ?)",
		spec.CourseID, spec.Section, spec.Title, spec.Intro, spec.IDNumber,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create activity: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get insert ID: %w", err)
	}

	return id, nil
}

// execer is the subset of *sql.DB and *sql.Tx the write paths need.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// UpdateActivity updates the module-facing fields of a module.
func (s *SQLiteStore) UpdateActivity(ctx context.Context, moduleID int64, title, intro string) error {
	return updateActivity(ctx, s.db, moduleID, title, intro)
}

// UpdateActivityTx updates a module inside a caller-owned transaction.
func (s *SQLiteStore) UpdateActivityTx(ctx context.Context, tx *sql.Tx, moduleID int64, title, intro string) error {
	return updateActivity(ctx, tx, moduleID, title, intro)
}

func updateActivity(ctx context.Context, ex execer, moduleID int64, title, intro string) error {
	result, err := ex.ExecContext(ctx,
		"UPDATE course_modules SET title = ?, intro = ? WHERE id = ?",
		title, intro, moduleID,
	)
	if err != nil {
		return fmt.Errorf("failed to update activity: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	return nil
}

// DeleteActivity removes a module and its stored package, then runs the
// registered delete hook. Hook failures never surface to the caller.
func (s *SQLiteStore) DeleteActivity(ctx context.Context, moduleID int64) error {
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM module_packages WHERE module_id = ?", moduleID); err != nil {
		return fmt.Errorf("failed to delete module package: %w", err)
	}

	result, err := s.db.ExecContext(ctx,
		"DELETE FROM course_modules WHERE id = ?", moduleID)
	if err != nil {
		return fmt.Errorf("failed to delete module: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	if s.deleteHook != nil {
		s.deleteHook(moduleID)
	}

	return nil
}

// StorePackage stores the package payload for a module, replacing any
// previous payload.
func (s *SQLiteStore) StorePackage(ctx context.Context, moduleID int64, data []byte) error {
	return storePackage(ctx, s.db, moduleID, data)
}

// StorePackageTx stores a package payload inside a caller-owned transaction.
func (s *SQLiteStore) StorePackageTx(ctx context.Context, tx *sql.Tx, moduleID int64, data []byte) error {
	return storePackage(ctx, tx, moduleID, data)
}

func storePackage(ctx context.Context, ex execer, moduleID int64, data []byte) error {
	var one int
	err := ex.QueryRowContext(ctx,
		"SELECT 1 FROM course_modules WHERE id = ?", moduleID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to check module: %w", err)
	}

	_, err = ex.ExecContext(ctx,
		"INSERT OR REPLACE INTO module_packages (module_id, data, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)",
		moduleID, data,
	)
	if err != nil {
		return fmt.Errorf("failed to store package: %w", err)
	}

	return nil
}

// ModuleExists reports whether a module still exists.
func (s *SQLiteStore) ModuleExists(ctx context.Context, moduleID int64) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM course_modules WHERE id = ?", moduleID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check module: %w", err)
	}
	return true, nil
}

// GetModule returns a module by id.
func (s *SQLiteStore) GetModule(ctx context.Context, moduleID int64) (*Module, error) {
	var m Module
	var pending int
	err := s.db.QueryRowContext(ctx,
		`SELECT id, course_id, section, title, intro, idnumber, pending_deletion, created_at
		 FROM course_modules WHERE id = ?`, moduleID,
	).Scan(&m.ID, &m.CourseID, &m.Section, &m.Title, &m.Intro, &m.IDNumber, &pending, &m.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get module: %w", err)
	}

	m.PendingDeletion = pending != 0
	return &m, nil
}

// MarkPendingDeletion flags a module as queued for deletion by the host.
// Flagged modules are excluded from sync and browse queries.
func (s *SQLiteStore) MarkPendingDeletion(ctx context.Context, moduleID int64) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE course_modules SET pending_deletion = 1 WHERE id = ?", moduleID)
	if err != nil {
		return fmt.Errorf("failed to mark module for deletion: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	return nil
}

// GetPackage returns the stored package payload for a module, or ErrNotFound.
func (s *SQLiteStore) GetPackage(ctx context.Context, moduleID int64) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT data FROM module_packages WHERE module_id = ?", moduleID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get package: %w", err)
	}
	return data, nil
}
