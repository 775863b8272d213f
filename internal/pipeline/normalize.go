package pipeline

import (
	"encoding/json"
	"sort"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tracklake/internal/models"
)

// NormalizeOptions configures staging normalization.
type NormalizeOptions struct {
	// ArtistLimit bounds the flattened artist list. The source system
	// natively extracted at most 3; a value <= 0 keeps every artist.
	ArtistLimit int
}

// NormalizeResult carries the normalized rows and counts of records the
// normalizer had to drop.
type NormalizeResult struct {
	Rows    []models.NormalizedRow
	Dropped int
}

// Normalize flattens a batch of staged records into one row per business key.
//
// Within a key group the record with the latest load timestamp wins; ties
// break on the staging sequence so the most recently copied row is kept
// deterministically. Records whose JSON cannot be read as a track object or
// that lack the business key are dropped and logged; an absent album object
// or artist list degrades to empty sub-attributes rather than failing the
// batch. Each surviving row carries its content hash.
func Normalize(records []models.StagedRecord, opts NormalizeOptions, logger *log.Logger) NormalizeResult {
	type candidate struct {
		staged models.StagedRecord
		track  models.RawTrack
	}

	var result NormalizeResult
	latest := make(map[string]candidate)

	for _, record := range records {
		var track models.RawTrack
		if err := json.Unmarshal(record.RawTrackData, &track); err != nil {
			if logger != nil {
				logger.Warn("dropping unreadable staged record", "file", record.SourceFilePath, "sequence", record.Sequence, "error", err)
			}
			result.Dropped++
			continue
		}

		if track.ID == "" {
			if logger != nil {
				logger.Warn("dropping staged record without business key", "file", record.SourceFilePath, "sequence", record.Sequence)
			}
			result.Dropped++
			continue
		}

		best, seen := latest[track.ID]
		if !seen || record.LoadedAt.After(best.staged.LoadedAt) ||
			(record.LoadedAt.Equal(best.staged.LoadedAt) && record.Sequence > best.staged.Sequence) {
			latest[track.ID] = candidate{staged: record, track: track}
		}
	}

	for _, cand := range latest {
		row := flatten(cand.track, opts)
		row.LoadedAt = cand.staged.LoadedAt
		row.RowHash = RowHash(row)
		result.Rows = append(result.Rows, row)
	}

	sort.Slice(result.Rows, func(i, j int) bool {
		return result.Rows[i].TrackID < result.Rows[j].TrackID
	})

	return result
}

// flatten projects a raw track onto the flat row shape.
func flatten(track models.RawTrack, opts NormalizeOptions) models.NormalizedRow {
	row := models.NormalizedRow{
		TrackID:     track.ID,
		TrackName:   track.Name,
		DurationMS:  track.DurationMS,
		IsExplicit:  track.Explicit,
		Popularity:  track.Popularity,
		PreviewURL:  track.PreviewURL,
		ArtistIDs:   []string{},
		ArtistNames: []string{},
	}

	if track.Album != nil {
		row.AlbumID = track.Album.ID
		row.AlbumName = track.Album.Name
		row.AlbumReleaseDate = track.Album.ReleaseDate
		row.AlbumType = track.Album.AlbumType
	}

	artists := track.Artists
	if opts.ArtistLimit > 0 && len(artists) > opts.ArtistLimit {
		artists = artists[:opts.ArtistLimit]
	}

	for _, artist := range artists {
		row.ArtistIDs = append(row.ArtistIDs, artist.ID)
		row.ArtistNames = append(row.ArtistNames, artist.Name)
	}

	if len(track.Artists) > 0 {
		row.PrimaryArtistID = track.Artists[0].ID
		row.PrimaryArtistName = track.Artists[0].Name
	}

	return row
}
