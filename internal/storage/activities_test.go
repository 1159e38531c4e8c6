package storage

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func testRecord(externalID string, moduleID int64, syncedAt time.Time) *ActivityRecord {
	return &ActivityRecord{
		ExternalID:   externalID,
		ModuleID:     moduleID,
		Title:        "Title " + externalID,
		Language:     "en",
		Duration:     "PT30M",
		Difficulty:   "beginner",
		Author:       "Author",
		Type:         "video",
		CanonicalURL: "https://example.com/" + externalID,
		PackageURL:   "https://example.com/pkg/" + externalID + ".zip",
		LastSyncedAt: syncedAt,
	}
}

func TestInsertGetActivity(t *testing.T) {
	t.Parallel()
	s := newTestStorage(t)
	ctx := context.Background()

	moduleID := seedModule(t, s, 1, false)
	syncedAt := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	id, err := s.InsertActivity(ctx, testRecord("ext-1", moduleID, syncedAt))
	if err != nil {
		t.Fatalf("InsertActivity failed: %v", err)
	}

	got, err := s.GetActivity(ctx, id)
	if err != nil {
		t.Fatalf("GetActivity failed: %v", err)
	}
	if got.ExternalID != "ext-1" || got.ModuleID != moduleID {
		t.Errorf("unexpected record: %+v", got)
	}
	if !got.LastSyncedAt.Equal(syncedAt) {
		t.Errorf("LastSyncedAt = %v, want %v", got.LastSyncedAt, syncedAt)
	}

	if _, err := s.GetActivity(ctx, id+1000); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing record, got %v", err)
	}
}

func TestExternalIDsInCourse(t *testing.T) {
	t.Parallel()
	s := newTestStorage(t)
	ctx := context.Background()
	now := time.Now().UTC()

	active := seedModule(t, s, 1, false)
	pending := seedModule(t, s, 1, true)
	otherCourse := seedModule(t, s, 2, false)

	for extID, moduleID := range map[string]int64{
		"in-course":    active,
		"pending":      pending,
		"other-course": otherCourse,
	} {
		if _, err := s.InsertActivity(ctx, testRecord(extID, moduleID, now)); err != nil {
			t.Fatalf("InsertActivity failed: %v", err)
		}
	}

	ids, err := s.ExternalIDsInCourse(ctx, 1)
	if err != nil {
		t.Fatalf("ExternalIDsInCourse failed: %v", err)
	}
	if len(ids) != 1 || ids[0] != "in-course" {
		t.Errorf("expected only the active in-course id, got %v", ids)
	}
}

func TestStaleExternalIDs(t *testing.T) {
	t.Parallel()
	s := newTestStorage(t)
	ctx := context.Background()

	threshold := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	// Five stale ids at increasing ages, one fresh id.
	for i := 0; i < 5; i++ {
		moduleID := seedModule(t, s, 1, false)
		syncedAt := threshold.Add(-time.Duration(5-i) * time.Hour)
		if _, err := s.InsertActivity(ctx, testRecord(fmt.Sprintf("stale-%d", i), moduleID, syncedAt)); err != nil {
			t.Fatalf("InsertActivity failed: %v", err)
		}
	}
	freshModule := seedModule(t, s, 1, false)
	if _, err := s.InsertActivity(ctx, testRecord("fresh", freshModule, threshold.Add(time.Hour))); err != nil {
		t.Fatalf("InsertActivity failed: %v", err)
	}

	t.Run("ordered oldest first", func(t *testing.T) {
		ids, err := s.StaleExternalIDs(ctx, threshold, 0, 10)
		if err != nil {
			t.Fatalf("StaleExternalIDs failed: %v", err)
		}
		want := []string{"stale-0", "stale-1", "stale-2", "stale-3", "stale-4"}
		if len(ids) != len(want) {
			t.Fatalf("got %d ids, want %d: %v", len(ids), len(want), ids)
		}
		for i := range want {
			if ids[i] != want[i] {
				t.Errorf("ids[%d] = %q, want %q", i, ids[i], want[i])
			}
		}
	})

	t.Run("paginated", func(t *testing.T) {
		ids, err := s.StaleExternalIDs(ctx, threshold, 2, 2)
		if err != nil {
			t.Fatalf("StaleExternalIDs failed: %v", err)
		}
		if len(ids) != 2 || ids[0] != "stale-2" || ids[1] != "stale-3" {
			t.Errorf("expected [stale-2 stale-3], got %v", ids)
		}
	})

	t.Run("duplicate external id uses newest record", func(t *testing.T) {
		// A second, fresh record for stale-0 lifts the id out of the
		// stale set: staleness is judged per external id, not per row.
		dupModule := seedModule(t, s, 1, false)
		if _, err := s.InsertActivity(ctx, testRecord("stale-0", dupModule, threshold.Add(time.Hour))); err != nil {
			t.Fatalf("InsertActivity failed: %v", err)
		}

		ids, err := s.StaleExternalIDs(ctx, threshold, 0, 10)
		if err != nil {
			t.Fatalf("StaleExternalIDs failed: %v", err)
		}
		for _, id := range ids {
			if id == "stale-0" {
				t.Error("stale-0 still reported stale after a fresh record")
			}
		}
	})
}

func TestRecordsByExternalIDs(t *testing.T) {
	t.Parallel()
	s := newTestStorage(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for i := 0; i < 5; i++ {
		moduleID := seedModule(t, s, 1, false)
		if _, err := s.InsertActivity(ctx, testRecord(fmt.Sprintf("e%d", i), moduleID, now)); err != nil {
			t.Fatalf("InsertActivity failed: %v", err)
		}
	}

	records, err := s.RecordsByExternalIDs(ctx, []string{"e1", "e3", "missing"}, 0, 10)
	if err != nil {
		t.Fatalf("RecordsByExternalIDs failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].ExternalID != "e1" || records[1].ExternalID != "e3" {
		t.Errorf("unexpected records: %v, %v", records[0].ExternalID, records[1].ExternalID)
	}

	page, err := s.RecordsByExternalIDs(ctx, []string{"e0", "e1", "e2"}, 1, 1)
	if err != nil {
		t.Fatalf("RecordsByExternalIDs paged failed: %v", err)
	}
	if len(page) != 1 || page[0].ExternalID != "e1" {
		t.Errorf("expected page [e1], got %+v", page)
	}

	empty, err := s.RecordsByExternalIDs(ctx, nil, 0, 10)
	if err != nil {
		t.Fatalf("RecordsByExternalIDs with empty set failed: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected no records for empty id set, got %d", len(empty))
	}
}

func TestOrphanedActivities(t *testing.T) {
	t.Parallel()
	s := newTestStorage(t)
	ctx := context.Background()
	now := time.Now().UTC()

	liveModule := seedModule(t, s, 1, false)
	deadModule := seedModule(t, s, 1, false)

	if _, err := s.InsertActivity(ctx, testRecord("live", liveModule, now)); err != nil {
		t.Fatalf("InsertActivity failed: %v", err)
	}
	orphanID, err := s.InsertActivity(ctx, testRecord("orphan", deadModule, now))
	if err != nil {
		t.Fatalf("InsertActivity failed: %v", err)
	}

	if _, err := s.DB().Exec("DELETE FROM course_modules WHERE id = ?", deadModule); err != nil {
		t.Fatalf("failed to delete module: %v", err)
	}

	orphans, err := s.OrphanedActivities(ctx)
	if err != nil {
		t.Fatalf("OrphanedActivities failed: %v", err)
	}
	if len(orphans) != 1 || orphans[0].ID != orphanID {
		t.Fatalf("expected exactly the orphaned record, got %+v", orphans)
	}

	n, err := s.DeleteActivities(ctx, []int64{orphanID})
	if err != nil {
		t.Fatalf("DeleteActivities failed: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted %d rows, want 1", n)
	}

	if _, err := s.GetActivity(ctx, orphanID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected orphan gone, got %v", err)
	}
}

func TestUpdateActivityTxAndTouch(t *testing.T) {
	t.Parallel()
	s := newTestStorage(t)
	ctx := context.Background()

	moduleID := seedModule(t, s, 1, false)
	syncedAt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	rec := testRecord("ext-1", moduleID, syncedAt)
	if _, err := s.InsertActivity(ctx, rec); err != nil {
		t.Fatalf("InsertActivity failed: %v", err)
	}

	t.Run("commit applies without touching synced_at", func(t *testing.T) {
		tx, err := s.BeginTx(ctx)
		if err != nil {
			t.Fatalf("BeginTx failed: %v", err)
		}

		rec.Title = "Updated Title"
		if err := s.UpdateActivityTx(ctx, tx, rec); err != nil {
			t.Fatalf("UpdateActivityTx failed: %v", err)
		}
		if err := tx.Commit(); err != nil {
			t.Fatalf("Commit failed: %v", err)
		}

		got, err := s.GetActivity(ctx, rec.ID)
		if err != nil {
			t.Fatalf("GetActivity failed: %v", err)
		}
		if got.Title != "Updated Title" {
			t.Errorf("Title = %q, want %q", got.Title, "Updated Title")
		}
		if !got.LastSyncedAt.Equal(syncedAt) {
			t.Errorf("LastSyncedAt changed to %v, want %v", got.LastSyncedAt, syncedAt)
		}
	})

	t.Run("rollback discards", func(t *testing.T) {
		tx, err := s.BeginTx(ctx)
		if err != nil {
			t.Fatalf("BeginTx failed: %v", err)
		}

		rolled := *rec
		rolled.Title = "Discarded Title"
		if err := s.UpdateActivityTx(ctx, tx, &rolled); err != nil {
			t.Fatalf("UpdateActivityTx failed: %v", err)
		}
		if err := tx.Rollback(); err != nil {
			t.Fatalf("Rollback failed: %v", err)
		}

		got, err := s.GetActivity(ctx, rec.ID)
		if err != nil {
			t.Fatalf("GetActivity failed: %v", err)
		}
		if got.Title == "Discarded Title" {
			t.Error("rolled-back update is visible")
		}
	})

	t.Run("touch stamps in bulk", func(t *testing.T) {
		stamp := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
		if err := s.TouchSyncedAt(ctx, []int64{rec.ID}, stamp); err != nil {
			t.Fatalf("TouchSyncedAt failed: %v", err)
		}

		got, err := s.GetActivity(ctx, rec.ID)
		if err != nil {
			t.Fatalf("GetActivity failed: %v", err)
		}
		if !got.LastSyncedAt.Equal(stamp) {
			t.Errorf("LastSyncedAt = %v, want %v", got.LastSyncedAt, stamp)
		}
	})
}
