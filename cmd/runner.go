package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tracklake/internal/landing"
	"github.com/desertthunder/tracklake/internal/pipeline"
	"github.com/desertthunder/tracklake/internal/repositories"
	"github.com/desertthunder/tracklake/internal/secrets"
	"github.com/desertthunder/tracklake/internal/services"
	"github.com/desertthunder/tracklake/internal/shared"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Collaborators are constructed once per invocation and passed down
// explicitly; there is no process-wide client state.
type Runner struct {
	config     *shared.Config
	provider   secrets.Provider
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer

	// test seams; nil in production
	catalog services.Catalog
	store   landing.ObjectStore
	db      *sql.DB
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	Provider   secrets.Provider
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	Catalog    services.Catalog
	Store      landing.ObjectStore
	DB         *sql.DB
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		provider:   opts.Provider,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		catalog:    opts.Catalog,
		store:      opts.Store,
		db:         opts.DB,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, runCommand, extractCommand, mergeCommand, historyCommand, statusCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// reloadConfig swaps in the config file named by the command's --config flag
// when it exists.
func (r *Runner) reloadConfig(cmd *cli.Command) {
	path := cmd.String("config")
	if path == "" {
		return
	}
	if _, err := os.Stat(path); err != nil {
		return
	}
	config, err := shared.LoadConfig(path)
	if err != nil {
		r.logger.Warn("failed to load config, keeping current", "path", path, "error", err)
		return
	}
	r.config = config
}

// secretsProvider returns the injected provider or constructs the Secrets
// Manager one.
func (r *Runner) secretsProvider(ctx context.Context) (secrets.Provider, error) {
	if r.provider != nil {
		return r.provider, nil
	}
	provider, err := secrets.NewManagerProvider(ctx, r.config.Credentials.Region)
	if err != nil {
		return nil, err
	}
	r.provider = provider
	return provider, nil
}

// openWarehouse opens the configured warehouse connection. For postgres the
// credential bundle is fetched by name at cycle start; sqlite needs no
// credentials.
func (r *Runner) openWarehouse(ctx context.Context) (*sql.DB, string, error) {
	driver := r.config.Warehouse.Driver
	if r.db != nil {
		return r.db, driver, nil
	}

	var (
		db  *sql.DB
		err error
	)

	switch driver {
	case "sqlite3":
		db, err = shared.NewDatabase(r.config.Warehouse.Path)
	case "postgres":
		var provider secrets.Provider
		provider, err = r.secretsProvider(ctx)
		if err != nil {
			return nil, "", err
		}
		var creds *secrets.WarehouseCredentials
		creds, err = provider.WarehouseCredentials(ctx, r.config.Credentials.WarehouseSecretName)
		if err != nil {
			return nil, "", err
		}
		db, err = shared.NewPostgresDatabase(creds.DSN())
	default:
		return nil, "", fmt.Errorf("%w: unsupported warehouse driver %q", shared.ErrInvalidConfig, driver)
	}
	if err != nil {
		return nil, "", err
	}

	shared.ConfigureDatabase(db, r.config.Warehouse.MaxOpenConns, r.config.Warehouse.MaxIdleConns)
	return db, driver, nil
}

// buildCatalog constructs the catalog client from the API credential bundle.
func (r *Runner) buildCatalog(ctx context.Context) (services.Catalog, error) {
	if r.catalog != nil {
		return r.catalog, nil
	}

	provider, err := r.secretsProvider(ctx)
	if err != nil {
		return nil, err
	}

	creds, err := provider.APICredentials(ctx, r.config.Credentials.APISecretName)
	if err != nil {
		return nil, err
	}

	return services.NewSpotifyCatalog(creds.ClientID, creds.ClientSecret, r.httpClient, r.config.Extraction.RateLimit)
}

// buildZone constructs the landing zone: a local directory when configured,
// the S3 bucket otherwise.
func (r *Runner) buildZone(ctx context.Context) (*landing.Zone, error) {
	if r.store != nil {
		return landing.NewZone(r.store, r.config.Landing.Prefix), nil
	}

	var (
		store landing.ObjectStore
		err   error
	)
	if r.config.Landing.LocalDir != "" {
		store, err = landing.NewFSStore(r.config.Landing.LocalDir)
	} else {
		store, err = landing.NewS3Store(ctx, r.config.Credentials.Region, r.config.Landing.Bucket)
	}
	if err != nil {
		return nil, err
	}

	return landing.NewZone(store, r.config.Landing.Prefix), nil
}

// buildPipeline wires a full pipeline for one invocation. The returned
// cleanup closes the warehouse connection unless it was injected.
func (r *Runner) buildPipeline(ctx context.Context) (*pipeline.Pipeline, func(), error) {
	if err := r.config.Validate(); err != nil {
		return nil, nil, err
	}

	catalog, err := r.buildCatalog(ctx)
	if err != nil {
		return nil, nil, err
	}

	zone, err := r.buildZone(ctx)
	if err != nil {
		return nil, nil, err
	}

	db, driver, err := r.openWarehouse(ctx)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if r.db == nil {
			db.Close()
		}
	}

	staging := repositories.NewStagingRepository(db, driver)
	dimension := repositories.NewDimensionRepository(db, driver)

	opts := pipeline.Options{
		ReleaseLimit: r.config.Extraction.ReleaseLimit,
		ArtistLimit:  r.config.Extraction.ArtistLimit,
	}

	return pipeline.New(catalog, zone, staging, dimension, r.logger, opts), cleanup, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
