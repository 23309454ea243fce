package testcfg

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds test-specific configuration for blockfrost client acceptance tests
type Config struct {
	ProjectID   string        `env:"BLOCKFROST_TEST_PROJECT_ID,required"`
	BaseURL     string        `env:"BLOCKFROST_TEST_BASE_URL" envDefault:"https://cardano-mainnet.blockfrost.io/api/v0"`
	PolicyID    string        `env:"BLOCKFROST_TEST_POLICY_ID" envDefault:"f0ff48bbb7bbe9d59a40f1ce90e9e9d0ff5002ec48f232b49ca0fb9a"`
	PageSize    int           `env:"BLOCKFROST_TEST_PAGE_SIZE" envDefault:"5"`
	HTTPTimeout time.Duration `env:"BLOCKFROST_TEST_HTTP_TIMEOUT" envDefault:"30s"`
}

// parseConfig wraps env.Parse to return (Config, error) for use with env.Must
func parseConfig() (Config, error) {
	var cfg Config
	err := env.Parse(&cfg)
	return cfg, err
}

// New loads test configuration from environment variables
func New() Config {
	return env.Must(parseConfig())
}
