// package secrets fetches named credential bundles at cycle start.
//
// Two independent bundles exist: catalog API credentials and warehouse
// credentials. Bundles are stored as JSON secret strings and fetched by name;
// nothing is cached between invocations.
package secrets

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	"github.com/desertthunder/tracklake/internal/shared"
)

// APICredentials is the catalog API secret bundle.
type APICredentials struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// Validate checks that both fields are present.
func (c APICredentials) Validate() error {
	if c.ClientID == "" || c.ClientSecret == "" {
		return fmt.Errorf("%w: client_id and client_secret are required", shared.ErrMissingCredentials)
	}
	return nil
}

// WarehouseCredentials is the warehouse secret bundle.
type WarehouseCredentials struct {
	User      string `json:"user"`
	Password  string `json:"password"`
	Account   string `json:"account"` // host / account identifier
	Warehouse string `json:"warehouse"`
	Database  string `json:"database"`
	Role      string `json:"role"`
}

// Validate checks that the fields a connection needs are present.
func (c WarehouseCredentials) Validate() error {
	if c.User == "" || c.Password == "" || c.Account == "" || c.Database == "" {
		return fmt.Errorf("%w: user, password, account and database are required", shared.ErrMissingCredentials)
	}
	return nil
}

// DSN assembles a Postgres connection string from the bundle. Warehouse and
// Role have no Postgres equivalent and are carried as application metadata.
func (c WarehouseCredentials) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s sslmode=require application_name=tracklake", c.Account, c.User, c.Password, c.Database)
}

// SecretsClient is the subset of the Secrets Manager API the provider uses.
// Declared here so tests can substitute a fake.
type SecretsClient interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// Provider fetches named secret bundles.
type Provider interface {
	APICredentials(ctx context.Context, name string) (*APICredentials, error)
	WarehouseCredentials(ctx context.Context, name string) (*WarehouseCredentials, error)
}

// ManagerProvider implements Provider against AWS Secrets Manager.
type ManagerProvider struct {
	client SecretsClient
}

// NewManagerProvider constructs a ManagerProvider from ambient AWS
// configuration. Region overrides the environment when non-empty.
func NewManagerProvider(ctx context.Context, region string) (*ManagerProvider, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &ManagerProvider{client: secretsmanager.NewFromConfig(cfg)}, nil
}

// NewManagerProviderWithClient constructs a ManagerProvider with an injected client.
func NewManagerProviderWithClient(client SecretsClient) *ManagerProvider {
	return &ManagerProvider{client: client}
}

func (p *ManagerProvider) fetch(ctx context.Context, name string, target any) error {
	if name == "" {
		return fmt.Errorf("%w: secret name not configured", shared.ErrMissingConfig)
	}

	out, err := p.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: aws.String(name)})
	if err != nil {
		return fmt.Errorf("failed to retrieve secret %q: %w", name, err)
	}

	if out.SecretString == nil {
		return fmt.Errorf("%w: secret %q has no string value", shared.ErrInvalidCredentials, name)
	}

	if err := json.Unmarshal([]byte(*out.SecretString), target); err != nil {
		return fmt.Errorf("%w: secret %q is not valid JSON: %v", shared.ErrInvalidCredentials, name, err)
	}

	return nil
}

// APICredentials fetches and validates the catalog API bundle.
func (p *ManagerProvider) APICredentials(ctx context.Context, name string) (*APICredentials, error) {
	var creds APICredentials
	if err := p.fetch(ctx, name, &creds); err != nil {
		return nil, err
	}
	if err := creds.Validate(); err != nil {
		return nil, fmt.Errorf("secret %q: %w", name, err)
	}
	return &creds, nil
}

// WarehouseCredentials fetches and validates the warehouse bundle.
func (p *ManagerProvider) WarehouseCredentials(ctx context.Context, name string) (*WarehouseCredentials, error) {
	var creds WarehouseCredentials
	if err := p.fetch(ctx, name, &creds); err != nil {
		return nil, err
	}
	if err := creds.Validate(); err != nil {
		return nil, fmt.Errorf("secret %q: %w", name, err)
	}
	return &creds, nil
}

// StaticProvider implements Provider from in-memory bundles, used for local
// runs and tests where no secret store exists.
type StaticProvider struct {
	API       map[string]APICredentials
	Warehouse map[string]WarehouseCredentials
}

func (p *StaticProvider) APICredentials(ctx context.Context, name string) (*APICredentials, error) {
	creds, ok := p.API[name]
	if !ok {
		return nil, fmt.Errorf("%w: no API credentials named %q", shared.ErrMissingCredentials, name)
	}
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	return &creds, nil
}

func (p *StaticProvider) WarehouseCredentials(ctx context.Context, name string) (*WarehouseCredentials, error) {
	creds, ok := p.Warehouse[name]
	if !ok {
		return nil, fmt.Errorf("%w: no warehouse credentials named %q", shared.ErrMissingCredentials, name)
	}
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	return &creds, nil
}
