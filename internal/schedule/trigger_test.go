package schedule

import (
	"context"
	"crypto/rand"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/openlms/edflex-connector/internal/cache"
	"github.com/openlms/edflex-connector/internal/course"
	"github.com/openlms/edflex-connector/internal/edflex"
	"github.com/openlms/edflex-connector/internal/engine"
	"github.com/openlms/edflex-connector/internal/storage"
	"github.com/openlms/edflex-connector/internal/testutil/mockedflex"
)

type testEnv struct {
	trigger *Trigger
	mock    *mockedflex.Server
	mockURL string
	store   *cache.Store
	records *storage.SQLiteStorage
	courses *course.SQLiteStore
	engine  *engine.Engine
	now     time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mock := mockedflex.New()
	srv := httptest.NewServer(mock.Handler())
	t.Cleanup(srv.Close)

	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	records, err := storage.New(":memory:", key)
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	t.Cleanup(func() {
		//nolint:errcheck
		records.Close()
	})
	if err := course.InitSchema(records.DB()); err != nil {
		t.Fatalf("failed to init course schema: %v", err)
	}
	courses := course.NewSQLiteStore(records.DB(), nil)

	store := cache.New()
	provider := edflex.Provider(func(_ context.Context) (*edflex.Client, error) {
		return edflex.NewClient(srv.URL, "test-client", "test-secret", store)
	})

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	eng := engine.New(records, courses, provider, nil, engine.WithClock(func() time.Time { return now }))

	trigger, err := New(provider, eng, store, time.Hour, 24*time.Hour, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() {
		//nolint:errcheck
		trigger.Stop()
	})

	return &testEnv{
		trigger: trigger,
		mock:    mock,
		mockURL: srv.URL,
		store:   store,
		records: records,
		courses: courses,
		engine:  eng,
		now:     now,
	}
}

func TestSettingsChanged(t *testing.T) {
	t.Parallel()

	t.Run("reachable api schedules the job", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)

		env.trigger.SettingsChanged(context.Background())

		if !env.trigger.Scheduled() {
			t.Error("expected sync job to be scheduled")
		}
		if env.mock.TokenCalls() != 1 {
			t.Errorf("expected one connectivity probe, got %d token calls", env.mock.TokenCalls())
		}
	})

	t.Run("unreachable api unschedules", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)

		env.trigger.SettingsChanged(context.Background())
		if !env.trigger.Scheduled() {
			t.Fatal("expected job scheduled first")
		}

		env.mock.FailTokens(401)
		env.trigger.SettingsChanged(context.Background())

		if env.trigger.Scheduled() {
			t.Error("expected sync job unscheduled after credentials break")
		}

		env.mock.FailTokens(0)
		env.trigger.SettingsChanged(context.Background())

		if !env.trigger.Scheduled() {
			t.Error("expected sync job rescheduled after credentials recover")
		}
	})

	t.Run("purges cached token", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)

		env.store.Set(cache.KeyAccessToken, edflex.AccessToken{Token: "stale"})
		env.trigger.SettingsChanged(context.Background())

		// The probe replaces the entry; the stale token must be gone either way.
		if v, ok := env.store.Get(cache.KeyAccessToken); ok {
			if token, ok := v.(edflex.AccessToken); ok && token.Token == "stale" {
				t.Error("stale token survived a settings change")
			}
		}
	})

	t.Run("unconfigured provider unschedules", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)

		env.trigger.SettingsChanged(context.Background())
		if !env.trigger.Scheduled() {
			t.Fatal("expected job scheduled first")
		}

		broken := edflex.Provider(func(_ context.Context) (*edflex.Client, error) {
			return edflex.NewClient("", "", "", env.store)
		})
		env.trigger.provider = broken
		env.trigger.SettingsChanged(context.Background())

		if env.trigger.Scheduled() {
			t.Error("expected sync job unscheduled when the provider fails")
		}
	})
}

func TestRunSync(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	courseID, err := env.courses.CreateCourse(ctx, "Course", "")
	if err != nil {
		t.Fatalf("CreateCourse failed: %v", err)
	}

	// Seed remote contents and import them.
	for _, id := range []string{"c1", "c2"} {
		env.mock.AddResource(mockedflex.Resource{
			ID:         id,
			Title:      "Title " + id,
			Type:       "video",
			Language:   "en",
			PackageURL: packageURL(t, env, id),
		})
	}

	var moduleIDs []int64
	for _, id := range []string{"c1", "c2"} {
		content := edflex.Content{
			ExternalID:         id,
			Title:              "Title " + id,
			Type:               "video",
			Language:           "en",
			PackageDownloadURL: packageURL(t, env, id),
		}
		moduleID, _, err := env.engine.ImportContent(ctx, content, courseID, 0)
		if err != nil {
			t.Fatalf("import %s failed: %v", id, err)
		}
		moduleIDs = append(moduleIDs, moduleID)
	}

	// Remote retitles c1; c2 loses its module (orphan).
	env.mock.SetResource(mockedflex.Resource{
		ID: "c1", Title: "Retitled", Type: "video", Language: "en",
		PackageURL: packageURL(t, env, "c1"),
	})
	if _, err := env.records.DB().Exec(
		"DELETE FROM course_modules WHERE id = ?", moduleIDs[1]); err != nil {
		t.Fatalf("failed to delete module: %v", err)
	}

	if err := env.trigger.RunSync(ctx); err != nil {
		t.Fatalf("RunSync failed: %v", err)
	}

	// c1's record and module carry the new title.
	records, err := env.records.RecordsByExternalIDs(ctx, []string{"c1"}, 0, 1)
	if err != nil || len(records) != 1 {
		t.Fatalf("failed to load c1 record: %v", err)
	}
	if records[0].Title != "Retitled" {
		t.Errorf("record title = %q, want %q", records[0].Title, "Retitled")
	}
	mod, err := env.courses.GetModule(ctx, moduleIDs[0])
	if err != nil {
		t.Fatalf("GetModule failed: %v", err)
	}
	if mod.Title != "Retitled" {
		t.Errorf("module title = %q, want %q", mod.Title, "Retitled")
	}

	// c2's orphaned record is gone.
	gone, err := env.records.RecordsByExternalIDs(ctx, []string{"c2"}, 0, 1)
	if err != nil {
		t.Fatalf("RecordsByExternalIDs failed: %v", err)
	}
	if len(gone) != 0 {
		t.Errorf("expected c2 record removed, got %+v", gone)
	}
}

// packageURL registers a package payload for the id on the mock and returns
// its download URL.
func packageURL(t *testing.T, env *testEnv, id string) string {
	t.Helper()
	env.mock.SetPackage(id+".zip", []byte("payload "+id))
	return env.mockURL + "/packages/" + id + ".zip"
}
