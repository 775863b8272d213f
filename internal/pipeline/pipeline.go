package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tracklake/internal/landing"
	"github.com/desertthunder/tracklake/internal/models"
	"github.com/desertthunder/tracklake/internal/repositories"
	"github.com/desertthunder/tracklake/internal/services"
	"github.com/desertthunder/tracklake/internal/shared"
)

// Options configures a pipeline's extraction and normalization behavior.
type Options struct {
	ReleaseLimit int // new-release albums fetched per cycle
	ArtistLimit  int // artists flattened per track (<= 0 keeps all)
}

// Pipeline runs batch cycles against injected collaborators. One Pipeline
// serves one invocation; nothing is shared at module level.
type Pipeline struct {
	catalog   services.Catalog
	zone      *landing.Zone
	staging   *repositories.StagingRepository
	dimension *repositories.DimensionRepository
	logger    *log.Logger
	opts      Options
	now       func() time.Time
}

// New creates a Pipeline with the provided collaborators.
func New(catalog services.Catalog, zone *landing.Zone, staging *repositories.StagingRepository, dimension *repositories.DimensionRepository, logger *log.Logger, opts Options) *Pipeline {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	if opts.ReleaseLimit <= 0 {
		opts.ReleaseLimit = 5
	}

	return &Pipeline{
		catalog:   catalog,
		zone:      zone,
		staging:   staging,
		dimension: dimension,
		logger:    logger,
		opts:      opts,
		now:       time.Now,
	}
}

// CycleResult summarizes one completed cycle for logging and CLI output.
type CycleResult struct {
	CycleID    string    `json:"cycle_id"`
	Albums     int       `json:"albums"`
	Tracks     int       `json:"tracks"`
	LandedKey  string    `json:"landed_key,omitempty"`
	Copied     int       `json:"copied"`
	Skipped    int       `json:"skipped"`
	Normalized int       `json:"normalized"`
	Dropped    int       `json:"dropped"`
	Inserted   int       `json:"inserted"`
	Expired    int       `json:"expired"`
	Unchanged  int       `json:"unchanged"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Run executes a full cycle: extract, land, copy, merge, truncate.
//
// An empty extraction ends the cycle successfully without landing or merging.
// All fatal errors propagate to the invoker; nothing is swallowed.
func (p *Pipeline) Run(ctx context.Context) (*CycleResult, error) {
	result := &CycleResult{
		CycleID:   shared.GenerateID(),
		StartedAt: p.now().UTC(),
	}
	logger := shared.WithLogger(p.logger, "cycle", result.CycleID)

	logger.Info("cycle started")

	tracks, albums, err := p.Extract(ctx)
	if err != nil {
		return nil, err
	}
	result.Albums = len(albums)
	result.Tracks = len(tracks)

	if len(tracks) == 0 {
		logger.Info("no new tracks found, cycle complete")
		result.FinishedAt = p.now().UTC()
		return result, nil
	}

	loadedAt := p.now().UTC()

	key, err := p.zone.Land(ctx, tracks, loadedAt)
	if err != nil {
		return nil, err
	}
	result.LandedKey = key
	logger.Info("landed extraction", "key", key, "tracks", len(tracks))

	copied, err := p.Copy(ctx, key, loadedAt)
	if err != nil {
		return nil, err
	}
	result.Copied = copied.Copied
	result.Skipped = copied.Skipped
	if copied.Skipped > 0 {
		logger.Warn("skipped malformed rows during bulk copy", "skipped", copied.Skipped, "key", key)
	}

	merged, err := p.Merge(ctx)
	if err != nil {
		return nil, err
	}
	result.Normalized = merged.Normalized
	result.Dropped = merged.Dropped
	result.Inserted = merged.Inserted
	result.Expired = merged.Expired
	result.Unchanged = merged.Unchanged

	result.FinishedAt = p.now().UTC()
	logger.Info("cycle complete",
		"tracks", result.Tracks,
		"inserted", result.Inserted,
		"expired", result.Expired,
		"unchanged", result.Unchanged,
	)

	return result, nil
}

// Extract authenticates with the catalog and fetches every track of the
// cycle's new-release albums. Extraction failures leave the warehouse
// untouched, so the cycle is safe to retry.
func (p *Pipeline) Extract(ctx context.Context) ([]models.RawTrack, []services.Album, error) {
	if err := p.catalog.Authenticate(ctx); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", shared.ErrExtractionFailed, err)
	}

	albums, err := p.catalog.NewReleases(ctx, p.opts.ReleaseLimit)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", shared.ErrExtractionFailed, err)
	}
	p.logger.Info("found new release albums", "count", len(albums))

	var tracks []models.RawTrack
	for _, album := range albums {
		albumTracks, err := p.catalog.AlbumTracks(ctx, album.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: album %s: %v", shared.ErrExtractionFailed, album.ID, err)
		}
		tracks = append(tracks, albumTracks...)
	}
	p.logger.Info("fetched tracks", "count", len(tracks))

	return tracks, albums, nil
}

// Copy bulk copies a landed object into the staging table.
func (p *Pipeline) Copy(ctx context.Context, key string, loadedAt time.Time) (repositories.CopyResult, error) {
	body, err := p.zone.Read(ctx, key)
	if err != nil {
		return repositories.CopyResult{}, fmt.Errorf("failed to read landed object: %w", err)
	}

	return p.staging.CopyFrom(ctx, body, key, loadedAt)
}

// MergeResult summarizes a merge stage.
type MergeResult struct {
	Normalized int
	Dropped    int
	Inserted   int
	Expired    int
	Unchanged  int
}

// Merge normalizes whatever is staged, reconciles it against the dimension
// table and truncates staging on success. Against an empty staging table it
// is a no-op, which is what makes a completed cycle safe to re-run.
func (p *Pipeline) Merge(ctx context.Context) (*MergeResult, error) {
	staged, err := p.staging.Records(ctx)
	if err != nil {
		return nil, err
	}

	if len(staged) == 0 {
		p.logger.Info("staging empty, nothing to merge")
		return &MergeResult{}, nil
	}

	normalized := Normalize(staged, NormalizeOptions{ArtistLimit: p.opts.ArtistLimit}, p.logger)

	current, err := p.dimension.CurrentRecords(ctx)
	if err != nil {
		return nil, err
	}
	maxVersions, err := p.dimension.MaxVersions(ctx)
	if err != nil {
		return nil, err
	}

	plan := PlanMerge(normalized.Rows, current, maxVersions)

	if err := p.dimension.ApplyPlan(ctx, plan, p.now().UTC()); err != nil {
		// Merge failures are logged distinctly so an operator can reconcile;
		// the transaction has rolled back and staging is left intact.
		p.logger.Error("merge failed, staging preserved for retry", "error", err)
		return nil, err
	}

	if err := p.staging.Truncate(ctx); err != nil {
		return nil, err
	}

	return &MergeResult{
		Normalized: len(normalized.Rows),
		Dropped:    normalized.Dropped,
		Inserted:   len(plan.Insertions),
		Expired:    len(plan.Expirations),
		Unchanged:  plan.Unchanged,
	}, nil
}
