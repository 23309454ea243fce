package testcfg

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds test-specific configuration for lookup acceptance tests
// NOTE: All values are test-optimized (smaller, faster) compared to production
type Config struct {
	ProjectID   string        `env:"BLOCKFROST_TEST_PROJECT_ID,required"`
	APIURL      string        `env:"BLOCKFROST_TEST_API_URL" envDefault:"https://cardano-mainnet.blockfrost.io/api/v0"`
	HTTPTimeout time.Duration `env:"BLOCKFROST_TEST_HTTP_TIMEOUT" envDefault:"30s"`
	PolicyID    string        `env:"BUBBLEMAP_TEST_POLICY_ID" envDefault:"f0ff48bbb7bbe9d59a40f1ce90e9e9d0ff5002ec48f232b49ca0fb9a"`
	MaxHolders  int           `env:"BUBBLEMAP_TEST_MAX_HOLDERS" envDefault:"20"`
	MaxAssets   int           `env:"BUBBLEMAP_TEST_MAX_ASSETS" envDefault:"5"`
	BatchDelay  time.Duration `env:"BUBBLEMAP_TEST_BATCH_DELAY" envDefault:"200ms"`

	// Test execution timeouts
	LookupTimeout time.Duration `env:"BUBBLEMAP_TEST_LOOKUP_TIMEOUT" envDefault:"2m"`
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
