package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultRPCURL is used when neither the environment nor the Solana CLI
// config names an endpoint.
const DefaultRPCURL = "https://api.mainnet-beta.solana.com"

// Config holds all application configuration loaded from environment variables.
// All fields are validated at load time to ensure fail-fast behavior.
type Config struct {
	// Node configuration
	RPCURL     string
	Commitment string

	// Resolution configuration
	MetadataConcurrency int
	MetadataSources     []string

	// Block scan configuration
	BlockAttempts   int
	BlockRetryDelay time.Duration

	// Ambient configuration
	LogLevel    string
	MetricsAddr string
	NATSURL     string
}

// LoadOption adjusts how Load resolves values.
type LoadOption func(*loadOptions)

type loadOptions struct {
	rpcURL string
}

// WithRPCURL supplies an explicit RPC URL or alias. It wins over the
// environment, and the Solana CLI config is not read at all.
func WithRPCURL(url string) LoadOption {
	return func(o *loadOptions) { o.rpcURL = url }
}

// Load reads configuration from environment variables and validates all fields.
// The RPC URL falls back to the Solana CLI config file, then DefaultRPCURL.
func Load(opts ...LoadOption) (*Config, error) {
	var o loadOptions
	for _, opt := range opts {
		opt(&o)
	}

	cfg := &Config{}
	var errs []error

	// Node configuration
	cfg.RPCURL = o.rpcURL
	if cfg.RPCURL == "" {
		cfg.RPCURL = os.Getenv("SOLSCOPE_RPC_URL")
	}
	if cfg.RPCURL == "" {
		url, err := CLIConfigURL(CLIConfigPath())
		if err != nil {
			errs = append(errs, err)
		}
		cfg.RPCURL = url
	}
	if cfg.RPCURL == "" {
		cfg.RPCURL = DefaultRPCURL
	}
	cfg.RPCURL = ResolveURL(cfg.RPCURL)
	cfg.Commitment = getEnvOrDefault("SOLSCOPE_COMMITMENT", "confirmed")

	// Resolution configuration
	concurrency, err := parseInt("SOLSCOPE_METADATA_CONCURRENCY", 10)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.MetadataConcurrency = concurrency
	}
	cfg.MetadataSources = splitList(getEnvOrDefault("SOLSCOPE_METADATA_SOURCES", "metaplex,token2022"))

	// Block scan configuration
	attempts, err := parseInt("SOLSCOPE_BLOCK_ATTEMPTS", 5)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.BlockAttempts = attempts
	}
	delay, err := parseDuration("SOLSCOPE_BLOCK_RETRY_DELAY", "0s")
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.BlockRetryDelay = delay
	}

	// Ambient configuration
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "warn")
	cfg.MetricsAddr = os.Getenv("SOLSCOPE_METRICS_ADDR")
	cfg.NATSURL = getEnvOrDefault("NATS_URL", "nats://localhost:4222")

	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %v", errs)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks if the configuration is valid.
// This is useful for checking flag overrides applied after Load.
func (c *Config) Validate() error {
	var errs []error

	if c.RPCURL == "" {
		errs = append(errs, errors.New("RPCURL is required"))
	}

	switch c.Commitment {
	case "processed", "confirmed", "finalized":
	default:
		errs = append(errs, fmt.Errorf("Commitment must be processed, confirmed or finalized, got %q", c.Commitment))
	}

	if c.MetadataConcurrency < 1 {
		errs = append(errs, fmt.Errorf("MetadataConcurrency must be at least 1, got %d", c.MetadataConcurrency))
	}

	if len(c.MetadataSources) == 0 {
		errs = append(errs, errors.New("MetadataSources must name at least one source"))
	}

	if c.BlockAttempts < 1 {
		errs = append(errs, fmt.Errorf("BlockAttempts must be at least 1, got %d", c.BlockAttempts))
	}

	if c.BlockRetryDelay < 0 {
		errs = append(errs, fmt.Errorf("BlockRetryDelay cannot be negative"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errs)
	}
	return nil
}

// aliases maps cluster shorthands to their public endpoints.
var aliases = map[string]string{
	"mainnet":      "https://api.mainnet-beta.solana.com",
	"mainnet-beta": "https://api.mainnet-beta.solana.com",
	"main":         "https://api.mainnet-beta.solana.com",
	"m":            "https://api.mainnet-beta.solana.com",
	"devnet":       "https://api.devnet.solana.com",
	"dev":          "https://api.devnet.solana.com",
	"d":            "https://api.devnet.solana.com",
	"testnet":      "https://api.testnet.solana.com",
	"test":         "https://api.testnet.solana.com",
	"t":            "https://api.testnet.solana.com",
	"localnet":     "http://localhost:8899",
	"localhost":    "http://localhost:8899",
	"local":        "http://localhost:8899",
	"l":            "http://localhost:8899",
}

// ResolveURL expands a cluster alias such as "devnet" or "m". Anything else
// is returned unchanged.
func ResolveURL(s string) string {
	if url, ok := aliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return url
	}
	return s
}

// CLIConfigPath returns the Solana CLI config location, honoring
// SOLANA_CLI_CONFIG.
func CLIConfigPath() string {
	if p := os.Getenv("SOLANA_CLI_CONFIG"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "solana", "cli", "config.yml")
}

// CLIConfigURL reads json_rpc_url from the Solana CLI config at path.
// A missing file yields an empty URL and no error.
func CLIConfigURL(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return "", nil
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return "", fmt.Errorf("read solana cli config %s: %w", path, err)
	}
	return v.GetString("json_rpc_url"), nil
}

// getEnvOrDefault returns the environment variable value or a default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseDuration parses a duration from an environment variable or uses a default.
func parseDuration(key, defaultValue string) (time.Duration, error) {
	value := getEnvOrDefault(key, defaultValue)
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, value, err)
	}
	return duration, nil
}

// parseInt parses an integer from an environment variable or uses a default.
func parseInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q: %w", key, value, err)
	}
	return result, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
