// Package config loads runtime settings from the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/ethereum/go-ethereum/common"

	"stakelens/internal/pricing"
)

// Prefix is prepended to every environment variable name.
const Prefix = "STAKELENS_"

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("config: invalid")

// Config holds the service settings. Zero addresses mean "not configured".
type Config struct {
	// Chain access
	RPCURL    string         `env:"RPC_URL"`
	WSURL     string         `env:"WS_URL"`
	ChainID   uint64         `env:"CHAIN_ID"` // 0: ask the node
	Multicall common.Address `env:"MULTICALL_ADDRESS"`
	BatchSize int            `env:"BATCH_SIZE" envDefault:"100"`

	// Retry settings
	Timeout    time.Duration `env:"RPC_TIMEOUT" envDefault:"30s"`
	MaxRetries int           `env:"RPC_MAX_RETRIES" envDefault:"3"`
	RetryDelay time.Duration `env:"RPC_RETRY_DELAY" envDefault:"500ms"`

	// Contracts
	Factory           common.Address `env:"FACTORY_ADDRESS"`
	SecondaryAsset    common.Address `env:"SECONDARY_ASSET_ADDRESS"`
	SecondaryDecimals uint8          `env:"SECONDARY_ASSET_DECIMALS" envDefault:"18"`
	FeeSplitter       common.Address `env:"FEE_SPLITTER_ADDRESS"`

	// Pricing
	SecondaryUSD string `env:"SECONDARY_ASSET_USD"`
	PrimaryUSD   string `env:"PRIMARY_ASSET_USD"`

	// Allocation
	AllocationTable string `env:"ALLOCATION_TABLE"`

	// Storage; empty DSNs select in-memory stores
	PostgresDSN   string `env:"POSTGRES_DSN"`
	ClickhouseDSN string `env:"CLICKHOUSE_DSN"`

	// Watcher
	Tokens       []string `env:"TOKENS" envSeparator:","`
	RefreshEvery uint64   `env:"REFRESH_EVERY_BLOCKS" envDefault:"10"`
	Concurrency  int      `env:"REFRESH_CONCURRENCY" envDefault:"4"`

	// Serving
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat  string `env:"LOG_FORMAT" envDefault:"json"`
}

// Load reads the environment into a Config. It does not validate.
func Load() (*Config, error) {
	var cfg Config
	// Addresses decode through common.Address.UnmarshalText.
	err := env.ParseWithOptions(&cfg, env.Options{Prefix: Prefix})
	if err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}

// Validate checks the settings every command needs.
func (c *Config) Validate() error {
	if c.RPCURL == "" {
		return fmt.Errorf("%w: %sRPC_URL is required", ErrInvalid, Prefix)
	}
	if c.Factory == (common.Address{}) {
		return fmt.Errorf("%w: %sFACTORY_ADDRESS is required", ErrInvalid, Prefix)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("%w: batch size must be positive", ErrInvalid)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("%w: max retries must not be negative", ErrInvalid)
	}
	if _, err := c.TokenAddresses(); err != nil {
		return err
	}
	if _, err := c.PriceSource(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("%w: log format %q (want json or text)", ErrInvalid, c.LogFormat)
	}
	return nil
}

// ValidateWatcher checks the extra settings the watcher needs.
func (c *Config) ValidateWatcher() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.WSURL == "" {
		return fmt.Errorf("%w: %sWS_URL is required", ErrInvalid, Prefix)
	}
	if len(c.Tokens) == 0 {
		return fmt.Errorf("%w: %sTOKENS is required", ErrInvalid, Prefix)
	}
	return nil
}

// TokenAddresses parses the watched token list.
func (c *Config) TokenAddresses() ([]common.Address, error) {
	var out []common.Address
	for _, t := range c.Tokens {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if !common.IsHexAddress(t) {
			return nil, fmt.Errorf("%w: token %q is not an address", ErrInvalid, t)
		}
		out = append(out, common.HexToAddress(t))
	}
	return out, nil
}

// PriceSource returns the static USD price source, or nil when no price is
// configured.
func (c *Config) PriceSource() (pricing.Source, error) {
	if c.SecondaryUSD == "" && c.PrimaryUSD == "" {
		return nil, nil
	}
	src, err := pricing.NewStaticSource(pricing.Prices{
		SecondaryUSD: c.SecondaryUSD,
		PrimaryUSD:   c.PrimaryUSD,
	})
	if err != nil {
		return nil, err
	}
	return src, nil
}
