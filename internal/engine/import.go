package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/openlms/edflex-connector/internal/course"
	"github.com/openlms/edflex-connector/internal/edflex"
	"github.com/openlms/edflex-connector/internal/metrics"
	"github.com/openlms/edflex-connector/internal/storage"
)

// ImportResult is the outcome of one item in a batch import.
type ImportResult struct {
	ExternalID string
	ModuleID   int64
	Record     *storage.ActivityRecord
	Err        error
}

// ImportContent materializes one remote content record as a course activity:
// it creates the module, downloads and stores the content package, and
// inserts the tracking record stamped with the current time.
//
// Each call is independent. Importing the same external id twice creates two
// distinct activities; deduplication is a confirmation concern of the
// browsing UI, not enforced here.
func (e *Engine) ImportContent(ctx context.Context, content edflex.Content, courseID int64, section int) (int64, *storage.ActivityRecord, error) {
	exists, err := e.courses.CourseExists(ctx, courseID)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to check course %d: %w", courseID, err)
	}
	if !exists {
		return 0, nil, fmt.Errorf("%w: %d", ErrInvalidCourseID, courseID)
	}

	if content.PackageDownloadURL == "" {
		return 0, nil, fmt.Errorf("%w: %s", ErrMissingPackageURL, content.ExternalID)
	}

	moduleID, err := e.courses.CreateActivity(ctx, course.ActivitySpec{
		CourseID: courseID,
		Section:  section,
		Title:    content.Title,
		Intro:    content.Description,
		IDNumber: uuid.New().String(),
	})
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create module for %s: %w", content.ExternalID, err)
	}

	pkg, err := e.client.GetScorm(ctx, content.PackageDownloadURL)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to download package for %s: %w", content.ExternalID, err)
	}
	metrics.RecordPackageDownload()

	if err := e.courses.StorePackage(ctx, moduleID, pkg); err != nil {
		return 0, nil, fmt.Errorf("failed to store package for %s: %w", content.ExternalID, err)
	}

	rec := &storage.ActivityRecord{
		ExternalID:   content.ExternalID,
		ModuleID:     moduleID,
		Title:        content.Title,
		Language:     content.Language,
		Duration:     content.Duration,
		Difficulty:   content.Difficulty,
		Author:       content.Author,
		Type:         content.Type,
		CanonicalURL: content.CanonicalURL,
		PackageURL:   content.PackageDownloadURL,
		LastSyncedAt: e.now(),
	}

	if _, err := e.records.InsertActivity(ctx, rec); err != nil {
		return 0, nil, fmt.Errorf("failed to insert activity record for %s: %w", content.ExternalID, err)
	}

	metrics.RecordImported(1)
	e.logger.Info("content imported",
		"external_id", content.ExternalID,
		"course_id", courseID,
		"module_id", moduleID,
	)

	return moduleID, rec, nil
}

// ImportContents imports a batch of records sequentially. Each import is
// independently committed: one failure neither stops nor rolls back the
// others.
func (e *Engine) ImportContents(ctx context.Context, contents []edflex.Content, courseID int64, section int) []ImportResult {
	results := make([]ImportResult, 0, len(contents))

	for _, content := range contents {
		moduleID, rec, err := e.ImportContent(ctx, content, courseID, section)
		results = append(results, ImportResult{
			ExternalID: content.ExternalID,
			ModuleID:   moduleID,
			Record:     rec,
			Err:        err,
		})
		if err != nil {
			e.logger.Warn("import failed", "external_id", content.ExternalID, "error", err)
		}
	}

	return results
}

// ExternalIDsInCourse returns the external ids already imported into the
// course, excluding activities whose module is pending deletion. Used by the
// browse surface to flag already-imported items.
func (e *Engine) ExternalIDsInCourse(ctx context.Context, courseID int64) (map[string]struct{}, error) {
	ids, err := e.records.ExternalIDsInCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}
