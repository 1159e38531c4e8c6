package engine

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/openlms/edflex-connector/internal/course"
	"github.com/openlms/edflex-connector/internal/edflex"
	"github.com/openlms/edflex-connector/internal/metrics"
	"github.com/openlms/edflex-connector/internal/storage"
)

const (
	// DefaultChunkSize is the batch size for stale-id chunking.
	DefaultChunkSize = 1000

	// DefaultCommitBatch bounds how many record updates share one transaction.
	DefaultCommitBatch = 200

	// defaultRecordBatch is the page size for bulk record reads.
	defaultRecordBatch = 200
)

// StaleContentIDChunks yields fixed-size batches of distinct external ids
// whose most recent record was last synced before maxLastSynced, ordered by
// (last synced, id) ascending. Modules pending deletion are excluded.
//
// Batches are fetched lazily as the consumer advances. Iteration ends when a
// batch comes back short (end of data) or when the optional limit on the
// read offset is reached; limit <= 0 means no limit.
func (e *Engine) StaleContentIDChunks(ctx context.Context, maxLastSynced time.Time, limit, chunkSize int) iter.Seq2[[]string, error] {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	return func(yield func([]string, error) bool) {
		for offset := 0; ; offset += chunkSize {
			if limit > 0 && offset >= limit {
				return
			}

			ids, err := e.records.StaleExternalIDs(ctx, maxLastSynced, offset, chunkSize)
			if err != nil {
				yield(nil, err)
				return
			}

			if len(ids) == 0 {
				return
			}

			if !yield(ids, nil) {
				return
			}

			if len(ids) < chunkSize {
				return
			}
		}
	}
}

// UpdateFromContents reconciles all local records whose external id appears
// in fresh against the freshly fetched remote state.
//
// Field-level diff rules:
//   - module fields {title, description} differ -> module update
//   - content fields {title, language, difficulty, duration, author, type,
//     canonical URL} differ -> record update
//   - any of {title, type, canonical URL} differ -> package re-download
//
// Updates are applied in transactions of up to maxCommitBatch records, with
// the module, package, and record writes of a batch sharing one transaction.
// A failure loses only the in-flight batch; batches already committed stand.
// Whether or not anything changed, every examined record gets last_synced_at
// stamped to now in one bulk statement after the loop.
//
// Diffing (and the package download it may require) happens with no
// transaction open: the connection pool holds a single connection, so any
// read through the pool while a transaction is pending would block forever.
func (e *Engine) UpdateFromContents(ctx context.Context, fresh map[string]edflex.Content, maxCommitBatch int) error {
	if len(fresh) == 0 {
		return nil
	}
	if maxCommitBatch <= 0 {
		maxCommitBatch = DefaultCommitBatch
	}

	externalIDs := make([]string, 0, len(fresh))
	for id := range fresh {
		externalIDs = append(externalIDs, id)
	}

	var (
		pending  []pendingUpdate
		examined []int64
		updated  int
	)

	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		if err := e.commitBatch(ctx, pending); err != nil {
			return err
		}
		updated += len(pending)
		pending = nil
		return nil
	}

	for offset := 0; ; offset += defaultRecordBatch {
		records, err := e.records.RecordsByExternalIDs(ctx, externalIDs, offset, defaultRecordBatch)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			break
		}

		for _, rec := range records {
			content, ok := fresh[rec.ExternalID]
			if !ok {
				continue
			}

			examined = append(examined, rec.ID)

			up, err := e.diffRecord(ctx, rec, content)
			if err != nil {
				return err
			}
			if up == nil {
				continue
			}

			pending = append(pending, *up)
			if len(pending) >= maxCommitBatch {
				if err := flush(); err != nil {
					return err
				}
			}
		}

		if len(records) < defaultRecordBatch {
			break
		}
	}

	if err := flush(); err != nil {
		return err
	}

	if err := e.records.TouchSyncedAt(ctx, examined, e.now()); err != nil {
		return err
	}

	metrics.RecordUpdated(updated)
	e.logger.Info("reconciliation pass finished", "examined", len(examined), "updated", updated)

	return nil
}

// pendingUpdate is one record's diff outcome, ready to be committed.
type pendingUpdate struct {
	rec           *storage.ActivityRecord
	recordChanged bool
	moduleChanged bool
	title         string
	intro         string
	pkg           []byte
}

// diffRecord diffs one record against its fresh remote state, downloading
// the new package when needed. It returns nil when nothing changed, or when
// the backing module is already gone (orphan cleanup owns that record).
func (e *Engine) diffRecord(ctx context.Context, rec *storage.ActivityRecord, content edflex.Content) (*pendingUpdate, error) {
	contentChanged := rec.Title != content.Title ||
		rec.Language != content.Language ||
		rec.Difficulty != content.Difficulty ||
		rec.Duration != content.Duration ||
		rec.Author != content.Author ||
		rec.Type != content.Type ||
		rec.CanonicalURL != content.CanonicalURL

	// Only these three fields are considered to affect the package payload.
	packageChanged := rec.Title != content.Title ||
		rec.Type != content.Type ||
		rec.CanonicalURL != content.CanonicalURL

	module, err := e.courses.GetModule(ctx, rec.ModuleID)
	if errors.Is(err, course.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	moduleChanged := module.Title != content.Title || module.Intro != content.Description

	if !contentChanged && !packageChanged && !moduleChanged {
		return nil, nil
	}

	up := &pendingUpdate{
		rec:           rec,
		moduleChanged: moduleChanged,
		title:         content.Title,
		intro:         content.Description,
	}

	if packageChanged {
		downloadURL := content.PackageDownloadURL
		if downloadURL == "" {
			downloadURL = rec.PackageURL
		}

		pkg, err := e.client.GetScorm(ctx, downloadURL)
		if err != nil {
			return nil, fmt.Errorf("failed to re-download package for %s: %w", rec.ExternalID, err)
		}
		metrics.RecordPackageDownload()
		up.pkg = pkg
	}

	if contentChanged || packageChanged {
		rec.Title = content.Title
		rec.Language = content.Language
		rec.Difficulty = content.Difficulty
		rec.Duration = content.Duration
		rec.Author = content.Author
		rec.Type = content.Type
		rec.CanonicalURL = content.CanonicalURL
		if content.PackageDownloadURL != "" {
			rec.PackageURL = content.PackageDownloadURL
		}
		up.recordChanged = true
	}

	return up, nil
}

// commitBatch applies one batch of pending updates in a single transaction.
// A module deleted since its diff is skipped; orphan cleanup removes its
// record.
func (e *Engine) commitBatch(ctx context.Context, batch []pendingUpdate) error {
	tx, err := e.records.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin update batch: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, up := range batch {
		if up.moduleChanged {
			err := e.courses.UpdateActivityTx(ctx, tx, up.rec.ModuleID, up.title, up.intro)
			if errors.Is(err, course.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
		}

		if up.pkg != nil {
			err := e.courses.StorePackageTx(ctx, tx, up.rec.ModuleID, up.pkg)
			if errors.Is(err, course.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
		}

		if up.recordChanged {
			if err := e.records.UpdateActivityTx(ctx, tx, up.rec); err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit update batch: %w", err)
	}

	return nil
}

// DeleteOrphans removes activity records whose module no longer exists and
// returns how many were deleted.
func (e *Engine) DeleteOrphans(ctx context.Context) (int, error) {
	orphans, err := e.records.OrphanedActivities(ctx)
	if err != nil {
		return 0, err
	}
	if len(orphans) == 0 {
		return 0, nil
	}

	ids := make([]int64, 0, len(orphans))
	for _, rec := range orphans {
		ids = append(ids, rec.ID)
	}

	n, err := e.records.DeleteActivities(ctx, ids)
	if err != nil {
		return 0, err
	}

	metrics.RecordOrphansDeleted(int(n))
	e.logger.Info("orphaned records deleted", "count", n)

	return int(n), nil
}

// DeleteByContentIDs resolves external ids to their modules and deletes those
// modules through the course store. Ids with no resolvable module are
// silently ignored.
func (e *Engine) DeleteByContentIDs(ctx context.Context, externalIDs []string) error {
	moduleIDs, err := e.records.ModuleIDsByExternalIDs(ctx, externalIDs)
	if err != nil {
		return err
	}

	for _, moduleID := range moduleIDs {
		err := e.courses.DeleteActivity(ctx, moduleID)
		if errors.Is(err, course.ErrNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to delete module %d: %w", moduleID, err)
		}
	}

	return nil
}

// RecordWithModule pairs an activity record with its module. Module is nil
// when the module no longer exists (the orphan case is surfaced here, not
// filtered out).
type RecordWithModule struct {
	Record *storage.ActivityRecord
	Module *course.Module
}

// RecordsByContentIDs yields one pair per activity record matching the given
// external ids, reading the backing table in pages of batchSize.
func (e *Engine) RecordsByContentIDs(ctx context.Context, externalIDs []string, batchSize int) iter.Seq2[RecordWithModule, error] {
	if batchSize <= 0 {
		batchSize = defaultRecordBatch
	}

	return func(yield func(RecordWithModule, error) bool) {
		for offset := 0; ; offset += batchSize {
			records, err := e.records.RecordsByExternalIDs(ctx, externalIDs, offset, batchSize)
			if err != nil {
				yield(RecordWithModule{}, err)
				return
			}
			if len(records) == 0 {
				return
			}

			for _, rec := range records {
				module, err := e.courses.GetModule(ctx, rec.ModuleID)
				if err != nil && !errors.Is(err, course.ErrNotFound) {
					yield(RecordWithModule{}, err)
					return
				}

				if !yield(RecordWithModule{Record: rec, Module: module}, nil) {
					return
				}
			}

			if len(records) < batchSize {
				return
			}
		}
	}
}
