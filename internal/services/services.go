// package services defines interface Catalog for interacting with the
// upstream music catalog HTTP API
package services

import (
	"context"

	"github.com/desertthunder/tracklake/internal/models"
)

// Catalog defines the extraction surface of the music catalog API.
//
// Implementations authenticate with client credentials and expose the two
// read paths a cycle needs: the new-release listing and per-album tracks.
type Catalog interface {
	// Authenticate performs the client-credentials token exchange.
	// Returns an error if the exchange fails; no retry is attempted.
	Authenticate(ctx context.Context) error

	// NewReleases retrieves up to limit newly released albums.
	NewReleases(ctx context.Context, limit int) ([]Album, error)

	// AlbumTracks retrieves all tracks for an album, enriched with the album
	// object and album-level popularity the tracks endpoint omits.
	AlbumTracks(ctx context.Context, albumID string) ([]models.RawTrack, error)

	// Name returns the name of the catalog service (e.g., "Spotify")
	Name() string
}

// Album is the subset of album metadata extraction uses.
type Album struct {
	ID          string
	Name        string
	ReleaseDate string
	AlbumType   string
	TotalTracks int
}
