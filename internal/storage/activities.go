package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const activityColumns = "id, external_id, module_id, title, language, duration, difficulty, author, type, url, package_url, last_synced_at"

// InsertActivity inserts a new activity record and returns its id.
func (s *SQLiteStorage) InsertActivity(ctx context.Context, rec *ActivityRecord) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO edflex_activities
			(external_id, module_id, title, language, duration, difficulty, author, type, url, package_url, last_synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ExternalID, rec.ModuleID, rec.Title, rec.Language, rec.Duration,
		rec.Difficulty, rec.Author, rec.Type, rec.CanonicalURL, rec.PackageURL,
		rec.LastSyncedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert activity: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get insert ID: %w", err)
	}

	rec.ID = id
	return id, nil
}

// GetActivity returns one activity record by id.
// Returns ErrNotFound when no such record exists.
func (s *SQLiteStorage) GetActivity(ctx context.Context, id int64) (*ActivityRecord, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+activityColumns+" FROM edflex_activities WHERE id = ?", id)

	rec, err := scanActivity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get activity: %w", err)
	}
	return rec, nil
}

// ExternalIDsInCourse returns the external ids of all activity records whose
// module lives in the given course and is not pending deletion. Used to flag
// already-imported items when browsing the catalog.
func (s *SQLiteStorage) ExternalIDsInCourse(ctx context.Context, courseID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT a.external_id
		 FROM edflex_activities a
		 JOIN course_modules m ON m.id = a.module_id
		 WHERE m.course_id = ? AND m.pending_deletion = 0
		 ORDER BY a.external_id`,
		courseID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query course external ids: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan external id: %w", err)
		}
		ids = append(ids, id)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating external ids: %w", err)
	}

	return ids, nil
}

// StaleExternalIDs returns one page of distinct external ids whose most
// recent record was last synced before the given threshold, ordered by
// (last synced, id) ascending. Records of modules pending deletion are
// excluded.
func (s *SQLiteStorage) StaleExternalIDs(ctx context.Context, before time.Time, offset, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT a.external_id
		 FROM edflex_activities a
		 JOIN course_modules m ON m.id = a.module_id
		 WHERE m.pending_deletion = 0
		 GROUP BY a.external_id
		 HAVING MAX(a.last_synced_at) < ?
		 ORDER BY MAX(a.last_synced_at) ASC, MIN(a.id) ASC
		 LIMIT ? OFFSET ?`,
		before, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query stale external ids: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan external id: %w", err)
		}
		ids = append(ids, id)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stale external ids: %w", err)
	}

	return ids, nil
}

// RecordsByExternalIDs returns one page of activity records whose external
// id is in the given set, ordered by id ascending.
func (s *SQLiteStorage) RecordsByExternalIDs(ctx context.Context, externalIDs []string, offset, limit int) ([]*ActivityRecord, error) {
	if len(externalIDs) == 0 {
		return nil, nil
	}

	args := make([]any, 0, len(externalIDs)+2)
	for _, id := range externalIDs {
		args = append(args, id)
	}
	args = append(args, limit, offset)

	query := "SELECT " + activityColumns + " FROM edflex_activities WHERE external_id IN (" +
		placeholders(len(externalIDs)) + ") ORDER BY id ASC LIMIT ? OFFSET ?"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records by external ids: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	return collectActivities(rows)
}

// ModuleIDsByExternalIDs resolves external ids to the module ids of their
// activity records. External ids with no record are absent from the result.
func (s *SQLiteStorage) ModuleIDsByExternalIDs(ctx context.Context, externalIDs []string) ([]int64, error) {
	if len(externalIDs) == 0 {
		return nil, nil
	}

	args := make([]any, 0, len(externalIDs))
	for _, id := range externalIDs {
		args = append(args, id)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT module_id FROM edflex_activities WHERE external_id IN ("+placeholders(len(externalIDs))+")",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query module ids: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan module id: %w", err)
		}
		ids = append(ids, id)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating module ids: %w", err)
	}

	return ids, nil
}

// OrphanedActivities returns records whose module no longer exists.
func (s *SQLiteStorage) OrphanedActivities(ctx context.Context) ([]*ActivityRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+prefixedActivityColumns("a")+`
		 FROM edflex_activities a
		 LEFT JOIN course_modules m ON m.id = a.module_id
		 WHERE m.id IS NULL
		 ORDER BY a.id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query orphaned activities: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	return collectActivities(rows)
}

// DeleteActivities deletes the given records by id and returns how many rows
// were removed.
func (s *SQLiteStorage) DeleteActivities(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	args := make([]any, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
	}

	result, err := s.db.ExecContext(ctx,
		"DELETE FROM edflex_activities WHERE id IN ("+placeholders(len(ids))+")",
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete activities: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return n, nil
}

// BeginTx opens a transaction for batched reconciliation updates.
func (s *SQLiteStorage) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return s.db.BeginTx(ctx, nil)
}

// UpdateActivityTx updates the content-facing fields of one record within
// the given transaction. last_synced_at is deliberately not touched here; it
// is stamped in bulk by TouchSyncedAt after the reconciliation loop.
func (s *SQLiteStorage) UpdateActivityTx(ctx context.Context, tx *sql.Tx, rec *ActivityRecord) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE edflex_activities
		 SET title = ?, language = ?, duration = ?, difficulty = ?, author = ?, type = ?, url = ?, package_url = ?
		 WHERE id = ?`,
		rec.Title, rec.Language, rec.Duration, rec.Difficulty, rec.Author,
		rec.Type, rec.CanonicalURL, rec.PackageURL, rec.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update activity %d: %w", rec.ID, err)
	}
	return nil
}

// TouchSyncedAt stamps last_synced_at on all given records in one statement.
func (s *SQLiteStorage) TouchSyncedAt(ctx context.Context, ids []int64, syncedAt time.Time) error {
	if len(ids) == 0 {
		return nil
	}

	args := make([]any, 0, len(ids)+1)
	args = append(args, syncedAt)
	for _, id := range ids {
		args = append(args, id)
	}

	_, err := s.db.ExecContext(ctx,
		"UPDATE edflex_activities SET last_synced_at = ? WHERE id IN ("+placeholders(len(ids))+")",
		args...,
	)
	if err != nil {
		return fmt.Errorf("failed to stamp last_synced_at: %w", err)
	}
	return nil
}

// placeholders returns "?, ?, ..." with n placeholders.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func prefixedActivityColumns(alias string) string {
	cols := strings.Split(activityColumns, ", ")
	for i, c := range cols {
		cols[i] = alias + "." + c
	}
	return strings.Join(cols, ", ")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanActivity(row rowScanner) (*ActivityRecord, error) {
	var rec ActivityRecord
	err := row.Scan(
		&rec.ID, &rec.ExternalID, &rec.ModuleID, &rec.Title, &rec.Language,
		&rec.Duration, &rec.Difficulty, &rec.Author, &rec.Type,
		&rec.CanonicalURL, &rec.PackageURL, &rec.LastSyncedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func collectActivities(rows *sql.Rows) ([]*ActivityRecord, error) {
	var records []*ActivityRecord
	for rows.Next() {
		rec, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activity row: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activities: %w", err)
	}

	return records, nil
}
