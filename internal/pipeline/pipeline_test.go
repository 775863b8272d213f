package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/tracklake/internal/landing"
	"github.com/desertthunder/tracklake/internal/models"
	"github.com/desertthunder/tracklake/internal/repositories"
	"github.com/desertthunder/tracklake/internal/services"
	"github.com/desertthunder/tracklake/internal/shared"
	mocks "github.com/desertthunder/tracklake/internal/testing"
)

// setupTestDB creates an in-memory SQLite warehouse with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(db, "sqlite3"); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

type harness struct {
	pipeline  *Pipeline
	catalog   *mocks.MockCatalog
	s3        *mocks.MemS3Client
	staging   *repositories.StagingRepository
	dimension *repositories.DimensionRepository
	clock     *fakeClock
	db        *sql.DB
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func setupHarness(t *testing.T, catalog *mocks.MockCatalog) *harness {
	t.Helper()

	db := setupTestDB(t)
	t.Cleanup(func() { db.Close() })

	s3 := mocks.NewMemS3Client()
	zone := landing.NewZone(landing.NewS3StoreWithClient(s3, "test-bucket"), "raw/tracks")
	staging := repositories.NewStagingRepository(db, "sqlite3")
	dimension := repositories.NewDimensionRepository(db, "sqlite3")
	clock := &fakeClock{now: time.Date(2024, 3, 15, 6, 0, 0, 0, time.UTC)}

	p := New(catalog, zone, staging, dimension, shared.NewLogger(nil), Options{ReleaseLimit: 5})
	p.now = clock.Now

	return &harness{
		pipeline:  p,
		catalog:   catalog,
		s3:        s3,
		staging:   staging,
		dimension: dimension,
		clock:     clock,
		db:        db,
	}
}

func catalogWithTrack(trackID string, popularity int) *mocks.MockCatalog {
	return &mocks.MockCatalog{
		Albums: []services.Album{
			{ID: "AL1", Name: "Fresh Album", ReleaseDate: "2024-03-01", AlbumType: "album", TotalTracks: 1},
		},
		Tracks: map[string][]models.RawTrack{
			"AL1": {
				{
					ID:         trackID,
					Name:       "Fresh Track",
					DurationMS: 180000,
					Popularity: popularity,
					PreviewURL: "https://p.example.com/" + trackID,
					Album:      &models.RawAlbum{ID: "AL1", Name: "Fresh Album", ReleaseDate: "2024-03-01", AlbumType: "album"},
					Artists:    []models.RawArtist{{ID: "AR1", Name: "Fresh Artist"}},
				},
			},
		},
	}
}

func TestPipelineRun(t *testing.T) {
	ctx := context.Background()

	t.Run("first cycle inserts version one", func(t *testing.T) {
		h := setupHarness(t, catalogWithTrack("T1", 40))

		result, err := h.pipeline.Run(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Albums != 1 || result.Tracks != 1 {
			t.Errorf("expected 1 album and 1 track, got %d and %d", result.Albums, result.Tracks)
		}
		if result.LandedKey == "" {
			t.Error("expected a landed key")
		}
		if result.Copied != 1 || result.Skipped != 0 {
			t.Errorf("expected 1 copied and 0 skipped, got %d and %d", result.Copied, result.Skipped)
		}
		if result.Inserted != 1 || result.Expired != 0 || result.Unchanged != 0 {
			t.Errorf("expected 1 insert only, got %+v", result)
		}

		if _, ok := h.s3.Objects[result.LandedKey]; !ok {
			t.Errorf("expected landed object at %q", result.LandedKey)
		}

		current, err := h.dimension.CurrentRecords(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		record, ok := current["T1"]
		if !ok {
			t.Fatal("expected a current record for T1")
		}
		if record.Version != 1 {
			t.Errorf("expected version 1, got %d", record.Version)
		}
		if record.Popularity != 40 {
			t.Errorf("expected popularity 40, got %d", record.Popularity)
		}

		count, err := h.staging.Count(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if count != 0 {
			t.Errorf("expected staging truncated after success, got %d rows", count)
		}
	})

	t.Run("unchanged re-run mutates nothing", func(t *testing.T) {
		h := setupHarness(t, catalogWithTrack("T1", 40))

		if _, err := h.pipeline.Run(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		h.clock.Advance(24 * time.Hour)
		result, err := h.pipeline.Run(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Inserted != 0 || result.Expired != 0 {
			t.Errorf("expected no mutations on identical re-run, got %+v", result)
		}
		if result.Unchanged != 1 {
			t.Errorf("expected 1 unchanged, got %d", result.Unchanged)
		}

		total, currentCount, err := h.dimension.Counts(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if total != 1 || currentCount != 1 {
			t.Errorf("expected dimension untouched, got %d total and %d current", total, currentCount)
		}
	})

	t.Run("changed attribute versions the track", func(t *testing.T) {
		h := setupHarness(t, catalogWithTrack("T1", 40))

		if _, err := h.pipeline.Run(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		h.catalog.Tracks["AL1"][0].Popularity = 75
		h.clock.Advance(24 * time.Hour)

		result, err := h.pipeline.Run(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Expired != 1 || result.Inserted != 1 {
			t.Errorf("expected 1 expire and 1 insert, got %+v", result)
		}

		history, err := h.dimension.History(ctx, "T1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(history) != 2 {
			t.Fatalf("expected 2 versions, got %d", len(history))
		}
		if history[0].IsCurrent || history[0].EffectiveEnd == nil {
			t.Error("expected version 1 expired with an effective_end")
		}
		if !history[1].IsCurrent || history[1].Version != 2 {
			t.Errorf("expected current version 2, got version %d current=%v", history[1].Version, history[1].IsCurrent)
		}
		if history[1].Popularity != 75 {
			t.Errorf("expected new popularity 75, got %d", history[1].Popularity)
		}

		_, currentCount, err := h.dimension.Counts(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if currentCount != 1 {
			t.Errorf("expected exactly one current row, got %d", currentCount)
		}
	})

	t.Run("empty extraction short-circuits", func(t *testing.T) {
		h := setupHarness(t, &mocks.MockCatalog{})

		result, err := h.pipeline.Run(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Tracks != 0 {
			t.Errorf("expected 0 tracks, got %d", result.Tracks)
		}
		if result.LandedKey != "" {
			t.Errorf("expected no landed object, got key %q", result.LandedKey)
		}
		if len(h.s3.Objects) != 0 {
			t.Errorf("expected empty landing zone, got %d objects", len(h.s3.Objects))
		}

		total, _, err := h.dimension.Counts(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if total != 0 {
			t.Errorf("expected dimension table untouched, got %d rows", total)
		}
	})

	t.Run("extraction failure leaves warehouse untouched", func(t *testing.T) {
		h := setupHarness(t, &mocks.MockCatalog{ListErr: errors.New("upstream down")})

		_, err := h.pipeline.Run(ctx)
		if err == nil {
			t.Fatal("expected error")
		}
		if !errors.Is(err, shared.ErrExtractionFailed) {
			t.Errorf("expected ErrExtractionFailed, got %v", err)
		}

		total, _, err := h.dimension.Counts(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if total != 0 {
			t.Errorf("expected no dimension rows after failed extraction, got %d", total)
		}
	})

	t.Run("auth failure stops the cycle", func(t *testing.T) {
		h := setupHarness(t, &mocks.MockCatalog{AuthErr: errors.New("bad credentials")})

		_, err := h.pipeline.Run(ctx)
		if !errors.Is(err, shared.ErrExtractionFailed) {
			t.Errorf("expected ErrExtractionFailed, got %v", err)
		}
	})

	t.Run("landing failure stops before staging", func(t *testing.T) {
		h := setupHarness(t, catalogWithTrack("T1", 40))
		h.s3.PutErr = errors.New("bucket unavailable")

		_, err := h.pipeline.Run(ctx)
		if !errors.Is(err, shared.ErrLandingFailed) {
			t.Errorf("expected ErrLandingFailed, got %v", err)
		}

		count, err := h.staging.Count(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if count != 0 {
			t.Errorf("expected empty staging after landing failure, got %d rows", count)
		}
	})
}

func TestPipelineMerge(t *testing.T) {
	ctx := context.Background()

	t.Run("merge of empty staging is a no-op", func(t *testing.T) {
		h := setupHarness(t, catalogWithTrack("T1", 40))

		result, err := h.pipeline.Merge(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Normalized != 0 || result.Inserted != 0 || result.Expired != 0 {
			t.Errorf("expected empty merge result, got %+v", result)
		}
	})

	t.Run("versions run gapless across change cycles", func(t *testing.T) {
		h := setupHarness(t, catalogWithTrack("T1", 10))

		for cycle := 0; cycle < 3; cycle++ {
			h.catalog.Tracks["AL1"][0].Popularity = 10 + cycle
			if _, err := h.pipeline.Run(ctx); err != nil {
				t.Fatalf("unexpected error on cycle %d: %v", cycle, err)
			}
			h.clock.Advance(24 * time.Hour)
		}

		history, err := h.dimension.History(ctx, "T1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(history) != 3 {
			t.Fatalf("expected 3 versions, got %d", len(history))
		}
		for i, record := range history {
			if record.Version != i+1 {
				t.Errorf("expected version %d at position %d, got %d", i+1, i, record.Version)
			}
		}
		last := history[len(history)-1]
		if !last.IsCurrent || last.Popularity != 12 {
			t.Errorf("expected current version with popularity 12, got %+v", last)
		}
	})

	t.Run("merge failure preserves staging for retry", func(t *testing.T) {
		h := setupHarness(t, catalogWithTrack("T1", 40))

		loadedAt := h.clock.Now()
		if _, err := h.staging.CopyFrom(ctx, []byte(`{"id":"T1","name":"Fresh Track"}`), "raw/tracks/a.jsonl", loadedAt); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if _, err := h.db.ExecContext(ctx, "DROP TABLE track_dim"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if _, err := h.pipeline.Merge(ctx); err == nil {
			t.Fatal("expected merge to fail against missing dimension table")
		}

		count, err := h.staging.Count(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if count != 1 {
			t.Errorf("expected staging preserved after merge failure, got %d rows", count)
		}
	})
}
