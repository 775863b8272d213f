package models

import (
	"time"
)

// StagedRecord is one row of the staging table: the raw track JSON as landed,
// tagged with the object it came from and the bulk-copy load timestamp.
//
// Sequence is the staging row id; it provides the deterministic tie-break when
// two records for the same business key share a load timestamp.
type StagedRecord struct {
	Sequence       int64
	RawTrackData   []byte
	SourceFilePath string
	LoadedAt       time.Time
}

// RawArtist is the artist sub-object of a raw track record.
type RawArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RawAlbum is the album sub-object of a raw track record.
type RawAlbum struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ReleaseDate string `json:"release_date"`
	AlbumType   string `json:"album_type"`
}

// RawTrack is the lenient shape the normalizer reads from staged JSON.
//
// An absent album object or artist list degrades to zero values rather than
// failing the record; only a missing ID drops the record.
type RawTrack struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	DurationMS int         `json:"duration_ms"`
	Explicit   bool        `json:"explicit"`
	Popularity int         `json:"popularity"`
	PreviewURL string      `json:"preview_url"`
	Album      *RawAlbum   `json:"album"`
	Artists    []RawArtist `json:"artists"`
}

// NormalizedRow is the flat projection of a staged record: one per business
// key per merge cycle, carrying the content hash over its mutable attributes.
type NormalizedRow struct {
	TrackID           string
	TrackName         string
	DurationMS        int
	IsExplicit        bool
	Popularity        int
	PreviewURL        string
	AlbumID           string
	AlbumName         string
	AlbumReleaseDate  string
	AlbumType         string
	PrimaryArtistID   string
	PrimaryArtistName string
	ArtistIDs         []string
	ArtistNames       []string
	RowHash           string
	LoadedAt          time.Time
}

// DimensionRecord is one persisted version of a track's attributes.
//
// Invariants: at most one current record per TrackID; EffectiveEnd is nil iff
// IsCurrent; Version numbers per TrackID are gapless ascending from 1;
// surrogate keys are assigned by the warehouse and never reused.
type DimensionRecord struct {
	SurrogateKey      int64
	TrackID           string
	TrackName         string
	DurationMS        int
	IsExplicit        bool
	Popularity        int
	PreviewURL        string
	AlbumID           string
	AlbumName         string
	AlbumReleaseDate  string
	AlbumType         string
	PrimaryArtistID   string
	PrimaryArtistName string
	ArtistIDs         []string
	ArtistNames       []string
	RowHash           string
	EffectiveStart    time.Time
	EffectiveEnd      *time.Time
	IsCurrent         bool
	Version           int
	UpdatedAt         time.Time
}

// Expiration marks an existing current record for expiry: its effective-end
// timestamp is set to the cycle's load timestamp and its current flag cleared.
type Expiration struct {
	SurrogateKey int64
	TrackID      string
	EffectiveEnd time.Time
}

// Insertion describes a new dimension record to insert as current.
type Insertion struct {
	Row            NormalizedRow
	Version        int
	EffectiveStart time.Time
}

// MergePlan is the full mutation set one merge cycle applies to the dimension
// table. Expirations and insertions are applied inside a single transaction;
// no external read observes a business key with zero or two current records.
type MergePlan struct {
	Expirations []Expiration
	Insertions  []Insertion
	Unchanged   int
}

// Empty reports whether the plan mutates nothing (idempotent re-run).
func (p MergePlan) Empty() bool {
	return len(p.Expirations) == 0 && len(p.Insertions) == 0
}

// NewRecord builds the dimension record an insertion persists. The surrogate
// key is left unset; the warehouse assigns it.
func (i Insertion) NewRecord(now time.Time) DimensionRecord {
	return DimensionRecord{
		TrackID:           i.Row.TrackID,
		TrackName:         i.Row.TrackName,
		DurationMS:        i.Row.DurationMS,
		IsExplicit:        i.Row.IsExplicit,
		Popularity:        i.Row.Popularity,
		PreviewURL:        i.Row.PreviewURL,
		AlbumID:           i.Row.AlbumID,
		AlbumName:         i.Row.AlbumName,
		AlbumReleaseDate:  i.Row.AlbumReleaseDate,
		AlbumType:         i.Row.AlbumType,
		PrimaryArtistID:   i.Row.PrimaryArtistID,
		PrimaryArtistName: i.Row.PrimaryArtistName,
		ArtistIDs:         i.Row.ArtistIDs,
		ArtistNames:       i.Row.ArtistNames,
		RowHash:           i.Row.RowHash,
		EffectiveStart:    i.EffectiveStart,
		EffectiveEnd:      nil,
		IsCurrent:         true,
		Version:           i.Version,
		UpdatedAt:         now,
	}
}
