package pipeline

import (
	"testing"
	"time"

	"github.com/desertthunder/tracklake/internal/models"
)

func baseRow() models.NormalizedRow {
	return models.NormalizedRow{
		TrackID:           "T1",
		TrackName:         "Polaris",
		DurationMS:        201000,
		IsExplicit:        false,
		Popularity:        10,
		PreviewURL:        "https://p.example/t1",
		AlbumID:           "A1",
		AlbumName:         "North",
		AlbumReleaseDate:  "2026-08-01",
		AlbumType:         "album",
		PrimaryArtistID:   "AR1",
		PrimaryArtistName: "Vela",
		ArtistIDs:         []string{"AR1", "AR2"},
		ArtistNames:       []string{"Vela", "Lyra"},
		LoadedAt:          time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	}
}

func TestRowHash(t *testing.T) {
	t.Run("identical attributes yield identical digests", func(t *testing.T) {
		a := baseRow()
		b := baseRow()

		if RowHash(a) != RowHash(b) {
			t.Errorf("expected equal hashes, got %s and %s", RowHash(a), RowHash(b))
		}
	})

	t.Run("digest is fixed length hex", func(t *testing.T) {
		hash := RowHash(baseRow())
		if len(hash) != 32 {
			t.Errorf("expected 32 hex characters, got %d", len(hash))
		}
	})

	t.Run("untracked fields do not affect the digest", func(t *testing.T) {
		a := baseRow()
		b := baseRow()
		b.LoadedAt = b.LoadedAt.Add(48 * time.Hour)
		b.AlbumName = "Renamed Album"
		b.AlbumReleaseDate = "2026-08-15"
		b.AlbumType = "single"
		b.PrimaryArtistName = "Renamed Artist"
		b.ArtistIDs = []string{"AR1"}
		b.ArtistNames = []string{"Vela"}

		if RowHash(a) != RowHash(b) {
			t.Error("hash changed for fields outside the tracked attribute set")
		}
	})

	t.Run("each tracked attribute changes the digest", func(t *testing.T) {
		mutations := map[string]func(*models.NormalizedRow){
			"name":       func(r *models.NormalizedRow) { r.TrackName = "Other" },
			"duration":   func(r *models.NormalizedRow) { r.DurationMS = 202000 },
			"explicit":   func(r *models.NormalizedRow) { r.IsExplicit = true },
			"popularity": func(r *models.NormalizedRow) { r.Popularity = 55 },
			"preview":    func(r *models.NormalizedRow) { r.PreviewURL = "https://p.example/t1b" },
			"album":      func(r *models.NormalizedRow) { r.AlbumID = "A2" },
			"artist":     func(r *models.NormalizedRow) { r.PrimaryArtistID = "AR9" },
		}

		original := RowHash(baseRow())
		for name, mutate := range mutations {
			t.Run(name, func(t *testing.T) {
				row := baseRow()
				mutate(&row)
				if RowHash(row) == original {
					t.Errorf("hash unchanged after mutating %s", name)
				}
			})
		}
	})

	t.Run("missing values normalize to the empty token", func(t *testing.T) {
		a := models.NormalizedRow{TrackID: "T1"}
		b := models.NormalizedRow{TrackID: "T1", PreviewURL: ""}

		if RowHash(a) != RowHash(b) {
			t.Error("expected missing and empty preview URL to hash identically")
		}
	})
}
