package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/vantage-media/quote-api/internal/secrets"
	"go.uber.org/zap"
)

// Config holds all application configuration
type Config struct {
	App        AppConfig
	Database   DatabaseConfig
	RateSource RateSourceConfig
	Auth       AuthConfig
	Storage    StorageConfig
	Secrets    SecretsConfig
	Logging    LoggingConfig
	Server     ServerConfig
	CORS       CORSConfig
	RateLimit  RateLimitConfig
	Approval   ApprovalConfig
	Jobs       JobsConfig
}

type AppConfig struct {
	Name        string
	Environment string
	Port        int
}

type DatabaseConfig struct {
	Host            string
	Port            int
	Name            string
	User            string
	Password        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int
}

// RateSourceConfig holds configuration for the finance data warehouse that
// publishes daily exchange rates. The connection is optional and read-only.
type RateSourceConfig struct {
	// Enabled controls whether the rate source connection is attempted
	Enabled bool
	// URL is the connection URL in format host:port/database
	URL string
	// User is the database username
	User string
	// Password is the database password
	Password string
	// MaxOpenConns is the maximum number of open connections
	MaxOpenConns int
	// MaxIdleConns is the maximum number of idle connections
	MaxIdleConns int
	// ConnMaxLifetime is the maximum connection reuse time (seconds)
	ConnMaxLifetime int
	// QueryTimeout is the default timeout for queries (seconds)
	QueryTimeout int
}

// AuthConfig holds JWT validation settings
type AuthConfig struct {
	// Issuer expected in the iss claim
	Issuer string
	// Audience expected in the aud claim
	Audience string
	// SigningSecret is the HMAC secret used to verify tokens
	SigningSecret string
}

type StorageConfig struct {
	Mode                  string
	LocalBasePath         string
	CloudConnectionString string
	CloudContainer        string
	MaxUploadSizeMB       int64
}

type SecretsConfig struct {
	// Source determines where secrets are loaded from: "environment", "vault", or "auto"
	Source       string
	KeyVaultName string
	CacheEnabled bool
	CacheTTL     int // seconds
}

type LoggingConfig struct {
	Level  string
	Format string
}

type ServerConfig struct {
	ReadTimeout    int
	WriteTimeout   int
	RequestTimeout int
	EnableSwagger  bool
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int
	WhitelistPaths    []string
}

// ApprovalConfig holds the thresholds driving tier computation and the
// free-goods reconciler
type ApprovalConfig struct {
	// CommissionFloorPct: any considered line below this commission forces N2 review
	CommissionFloorPct float64
	// OrderTotalCeiling: order totals above this force N2 review (quote currency)
	OrderTotalCeiling float64
	// FreeQtyPrecision: generated free quantities are floored to this step
	FreeQtyPrecision float64
}

// JobsConfig holds background job scheduling settings
type JobsConfig struct {
	// RateRefreshEnabled controls the periodic exchange-rate refresh job
	RateRefreshEnabled bool
	// RateRefreshCron is the cron expression for the refresh job
	RateRefreshCron string
	// RateRefreshTimeout is the per-run timeout (seconds)
	RateRefreshTimeout int
}

// ConnectionString builds PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// ConnMaxLifetimeDuration returns connection max lifetime as duration
func (d *DatabaseConfig) ConnMaxLifetimeDuration() time.Duration {
	return time.Duration(d.ConnMaxLifetime) * time.Second
}

// ConnMaxLifetimeDuration returns connection max lifetime as duration
func (r *RateSourceConfig) ConnMaxLifetimeDuration() time.Duration {
	return time.Duration(r.ConnMaxLifetime) * time.Second
}

// QueryTimeoutDuration returns query timeout as duration
func (r *RateSourceConfig) QueryTimeoutDuration() time.Duration {
	return time.Duration(r.QueryTimeout) * time.Second
}

// ReadTimeoutDuration returns read timeout as duration
func (s *ServerConfig) ReadTimeoutDuration() time.Duration {
	return time.Duration(s.ReadTimeout) * time.Second
}

// WriteTimeoutDuration returns write timeout as duration
func (s *ServerConfig) WriteTimeoutDuration() time.Duration {
	return time.Duration(s.WriteTimeout) * time.Second
}

// RequestTimeoutDuration returns request timeout as duration
func (s *ServerConfig) RequestTimeoutDuration() time.Duration {
	return time.Duration(s.RequestTimeout) * time.Second
}

// RateRefreshTimeoutDuration returns the refresh job timeout as duration
func (j *JobsConfig) RateRefreshTimeoutDuration() time.Duration {
	return time.Duration(j.RateRefreshTimeout) * time.Second
}

// Load loads configuration from file and environment variables.
// This is a basic load that doesn't fetch secrets from vault;
// use LoadWithSecrets for full secret resolution.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Environment variables override config file
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Load JWT secret from environment if not in config
	if cfg.Auth.SigningSecret == "" {
		cfg.Auth.SigningSecret = v.GetString("JWT_SIGNING_SECRET")
	}

	// Load Azure Key Vault name from environment if not in config
	if cfg.Secrets.KeyVaultName == "" {
		cfg.Secrets.KeyVaultName = v.GetString("AZURE_KEY_VAULT_NAME")
	}

	// Check for RATESOURCE_ENABLED env var override
	if v.GetBool("RATESOURCE_ENABLED") {
		cfg.RateSource.Enabled = true
	}

	return &cfg, nil
}

// LoadWithSecrets loads configuration and resolves secrets from the
// configured source. In development secrets come from env vars; in
// staging/production they come from Azure Key Vault when
// USE_AZURE_KEY_VAULT=true.
func LoadWithSecrets(ctx context.Context, logger *zap.Logger) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	useKeyVault := strings.ToLower(os.Getenv("USE_AZURE_KEY_VAULT")) == "true"
	isValidEnv := cfg.App.Environment == "staging" || cfg.App.Environment == "production"

	// Rate source credentials are loaded from Key Vault regardless of
	// environment when the feature is enabled and a vault is configured
	if cfg.RateSource.Enabled && cfg.Secrets.KeyVaultName != "" {
		if err := loadRateSourceSecrets(ctx, cfg, logger); err != nil {
			logger.Warn("Failed to load rate source secrets from Key Vault",
				zap.Error(err),
				zap.String("environment", cfg.App.Environment),
			)
			// Don't fail startup - the rate source is optional
		}
	}

	if !useKeyVault || !isValidEnv {
		logger.Info("Using environment variables for secrets",
			zap.String("environment", cfg.App.Environment),
			zap.Bool("use_key_vault", useKeyVault),
		)
		return cfg, nil
	}

	if cfg.Secrets.KeyVaultName == "" {
		return nil, fmt.Errorf("AZURE_KEY_VAULT_NAME is required when USE_AZURE_KEY_VAULT=true")
	}

	provider, err := secrets.NewProvider(&secrets.ProviderConfig{
		Source:       secrets.SourceVault,
		VaultName:    cfg.Secrets.KeyVaultName,
		Environment:  cfg.App.Environment,
		CacheEnabled: cfg.Secrets.CacheEnabled,
		CacheTTL:     time.Duration(cfg.Secrets.CacheTTL) * time.Second,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize secrets provider: %w", err)
	}

	cfg.Database.Password = provider.GetSecretWithDefault(ctx, "DATABASE-PASSWORD", cfg.Database.Password)
	cfg.Auth.SigningSecret = provider.GetSecretWithDefault(ctx, "JWT-SIGNING-SECRET", cfg.Auth.SigningSecret)
	cfg.Storage.CloudConnectionString = provider.GetSecretWithDefault(ctx, "STORAGE-CONNECTION-STRING", cfg.Storage.CloudConnectionString)

	logger.Info("Secrets loaded from Azure Key Vault",
		zap.String("key_vault_name", cfg.Secrets.KeyVaultName),
	)

	return cfg, nil
}

// loadRateSourceSecrets loads the finance warehouse credentials from Key Vault
func loadRateSourceSecrets(ctx context.Context, cfg *Config, logger *zap.Logger) error {
	provider, err := secrets.NewProvider(&secrets.ProviderConfig{
		Source:       secrets.SourceVault,
		VaultName:    cfg.Secrets.KeyVaultName,
		Environment:  cfg.App.Environment,
		CacheEnabled: cfg.Secrets.CacheEnabled,
		CacheTTL:     time.Duration(cfg.Secrets.CacheTTL) * time.Second,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize secrets provider for rate source: %w", err)
	}

	url, err := provider.GetSecret(ctx, "RATESOURCE-URL")
	if err != nil {
		return err
	}
	user, err := provider.GetSecret(ctx, "RATESOURCE-USERNAME")
	if err != nil {
		return err
	}
	password, err := provider.GetSecret(ctx, "RATESOURCE-PASSWORD")
	if err != nil {
		return err
	}

	cfg.RateSource.URL = url
	cfg.RateSource.User = user
	cfg.RateSource.Password = password
	return nil
}

func setDefaults(v *viper.Viper) {
	// App
	v.SetDefault("app.name", "quote-api")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.port", 8080)

	// Database
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "quote")
	v.SetDefault("database.user", "quote_user")
	v.SetDefault("database.password", "quote_password")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.maxopenconns", 25)
	v.SetDefault("database.maxidleconns", 5)
	v.SetDefault("database.connmaxlifetime", 300)

	// Rate source
	v.SetDefault("ratesource.enabled", false)
	v.SetDefault("ratesource.maxopenconns", 3)
	v.SetDefault("ratesource.maxidleconns", 1)
	v.SetDefault("ratesource.connmaxlifetime", 600)
	v.SetDefault("ratesource.querytimeout", 30)

	// Auth
	v.SetDefault("auth.issuer", "vantage-media")
	v.SetDefault("auth.audience", "quote-api")

	// Storage
	v.SetDefault("storage.mode", "local")
	v.SetDefault("storage.localbasepath", "./uploads")
	v.SetDefault("storage.cloudcontainer", "client-po")
	v.SetDefault("storage.maxuploadsizemb", 20)

	// Secrets
	v.SetDefault("secrets.source", "auto")
	v.SetDefault("secrets.cacheenabled", true)
	v.SetDefault("secrets.cachettl", 300)

	// Logging
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	// Server
	v.SetDefault("server.readtimeout", 15)
	v.SetDefault("server.writetimeout", 30)
	v.SetDefault("server.requesttimeout", 60)
	v.SetDefault("server.enableswagger", true)

	// CORS
	v.SetDefault("cors.allowedorigins", []string{"*"})
	v.SetDefault("cors.allowedmethods", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowedheaders", []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"})
	v.SetDefault("cors.exposedheaders", []string{"Link"})
	v.SetDefault("cors.allowcredentials", true)
	v.SetDefault("cors.maxage", 300)

	// Rate limiting
	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.requestsperminute", 300)
	v.SetDefault("ratelimit.whitelistpaths", []string{"/health"})

	// Approval thresholds
	v.SetDefault("approval.commissionfloorpct", 15.0)
	v.SetDefault("approval.ordertotalceiling", 500000.0)
	v.SetDefault("approval.freeqtyprecision", 1.0)

	// Jobs
	v.SetDefault("jobs.raterefreshenabled", false)
	v.SetDefault("jobs.raterefreshcron", "0 30 6 * * *")
	v.SetDefault("jobs.raterefreshtimeout", 120)
}
