// Spotify API implementation of [Catalog]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/desertthunder/tracklake/internal/models"
	"github.com/desertthunder/tracklake/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"
)

const (
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"
)

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	AlbumType   string          `json:"album_type"`
	ReleaseDate string          `json:"release_date"`
	TotalTracks int             `json:"total_tracks"`
	Popularity  int             `json:"popularity"`
	Artists     []SpotifyArtist `json:"artists"`
	URI         string          `json:"uri"`
}

// SpotifyTrack represents a Spotify track as returned by the album tracks
// endpoint. That endpoint returns neither the album object nor per-track
// popularity; both are filled in during enrichment.
type SpotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Artists    []SpotifyArtist `json:"artists"`
	DurationMS int             `json:"duration_ms"`
	Explicit   bool            `json:"explicit"`
	PreviewURL string          `json:"preview_url"`
	URI        string          `json:"uri"`
}

// SpotifyPaginatedAlbums represents a paginated album listing.
type SpotifyPaginatedAlbums struct {
	Items  []SpotifyAlbum `json:"items"`
	Total  int            `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
	Next   *string        `json:"next"`
}

// SpotifyPaginatedTracks represents a paginated track listing.
type SpotifyPaginatedTracks struct {
	Items  []SpotifyTrack `json:"items"`
	Total  int            `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
	Next   *string        `json:"next"`
}

// SpotifyCatalog implements [Catalog] for the Spotify Web API.
//
// Authentication uses the client-credentials grant via
// [clientcredentials.Config]; no user interaction or callback server is
// involved. Requests are rate limited so album fan-out stays inside the API's
// limits.
type SpotifyCatalog struct {
	config     *clientcredentials.Config
	base       *http.Client
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewSpotifyCatalog creates a Spotify catalog client with the given
// credentials. The base client is used for the token exchange and all API
// calls; pass nil for [http.DefaultClient]. requestsPerSecond <= 0 disables
// rate limiting.
func NewSpotifyCatalog(clientID, clientSecret string, base *http.Client, requestsPerSecond float64) (*SpotifyCatalog, error) {
	if clientID == "" {
		return nil, fmt.Errorf("%w: missing client id", shared.ErrMissingCredentials)
	}
	if clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client secret", shared.ErrMissingCredentials)
	}
	if base == nil {
		base = http.DefaultClient
	}

	config := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     spotifyTokenURL,
	}

	var limiter *rate.Limiter
	if requestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	}

	return &SpotifyCatalog{
		config:  config,
		base:    base,
		limiter: limiter,
	}, nil
}

// Authenticate performs the client-credentials exchange and installs a token
// source that refreshes transparently for the rest of the cycle.
func (s *SpotifyCatalog) Authenticate(ctx context.Context) error {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.base)

	source := s.config.TokenSource(ctx)
	if _, err := source.Token(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}

	s.httpClient = oauth2.NewClient(ctx, source)
	return nil
}

func (s *SpotifyCatalog) Name() string {
	return "Spotify"
}

// doRequest performs an authenticated GET against the Spotify API.
func (s *SpotifyCatalog) doRequest(ctx context.Context, endpoint string, result any) error {
	if s.httpClient == nil {
		return fmt.Errorf("%w: call Authenticate first", shared.ErrNotAuthenticated)
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, spotifyBaseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	// Any non-2xx aborts the current extraction attempt.
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: spotify returned status %d for %s", shared.ErrAPIRequest, resp.StatusCode, endpoint)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// NewReleases retrieves up to limit newly released albums, following
// pagination until the limit is satisfied or the listing ends.
func (s *SpotifyCatalog) NewReleases(ctx context.Context, limit int) ([]Album, error) {
	if limit <= 0 {
		limit = 20
	}

	var albums []Album
	offset := 0

	for len(albums) < limit {
		pageSize := limit - len(albums)
		if pageSize > 50 {
			pageSize = 50
		}

		var response struct {
			Albums SpotifyPaginatedAlbums `json:"albums"`
		}

		endpoint := fmt.Sprintf("/browse/new-releases?limit=%d&offset=%d", pageSize, offset)
		if err := s.doRequest(ctx, endpoint, &response); err != nil {
			return nil, err
		}

		for _, sa := range response.Albums.Items {
			albums = append(albums, Album{
				ID:          sa.ID,
				Name:        sa.Name,
				ReleaseDate: sa.ReleaseDate,
				AlbumType:   sa.AlbumType,
				TotalTracks: sa.TotalTracks,
			})
		}

		if response.Albums.Next == nil || len(response.Albums.Items) == 0 {
			break
		}
		offset += pageSize
	}

	if len(albums) > limit {
		albums = albums[:limit]
	}

	return albums, nil
}

// Album retrieves full album details, including popularity.
func (s *SpotifyCatalog) Album(ctx context.Context, albumID string) (*SpotifyAlbum, error) {
	var album SpotifyAlbum
	endpoint := fmt.Sprintf("/albums/%s", albumID)
	if err := s.doRequest(ctx, endpoint, &album); err != nil {
		return nil, err
	}
	return &album, nil
}

// AlbumTracks retrieves all tracks for an album and enriches each with the
// album object and the album's popularity. The tracks endpoint returns
// neither, so the album details call comes first.
func (s *SpotifyCatalog) AlbumTracks(ctx context.Context, albumID string) ([]models.RawTrack, error) {
	album, err := s.Album(ctx, albumID)
	if err != nil {
		return nil, err
	}

	var tracks []models.RawTrack
	offset := 0

	for {
		var response SpotifyPaginatedTracks
		endpoint := fmt.Sprintf("/albums/%s/tracks?limit=50&offset=%d", albumID, offset)
		if err := s.doRequest(ctx, endpoint, &response); err != nil {
			return nil, err
		}

		for _, st := range response.Items {
			raw := models.RawTrack{
				ID:         st.ID,
				Name:       st.Name,
				DurationMS: st.DurationMS,
				Explicit:   st.Explicit,
				Popularity: album.Popularity,
				PreviewURL: st.PreviewURL,
				Album: &models.RawAlbum{
					ID:          album.ID,
					Name:        album.Name,
					ReleaseDate: album.ReleaseDate,
					AlbumType:   album.AlbumType,
				},
			}
			for _, artist := range st.Artists {
				raw.Artists = append(raw.Artists, models.RawArtist{ID: artist.ID, Name: artist.Name})
			}
			tracks = append(tracks, raw)
		}

		if response.Next == nil || len(response.Items) == 0 {
			break
		}
		offset += 50
	}

	return tracks, nil
}
