package testcfg

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds test-specific configuration for web API acceptance tests
type Config struct {
	ProjectID        string        `env:"BLOCKFROST_TEST_PROJECT_ID,required"`
	APIURL           string        `env:"BLOCKFROST_TEST_API_URL" envDefault:"https://cardano-mainnet.blockfrost.io/api/v0"`
	PolicyID         string        `env:"BUBBLEMAP_TEST_POLICY_ID" envDefault:"f0ff48bbb7bbe9d59a40f1ce90e9e9d0ff5002ec48f232b49ca0fb9a"`
	MaxHolders       int           `env:"BUBBLEMAP_TEST_MAX_HOLDERS" envDefault:"10"`
	RequestTimeout   time.Duration `env:"WEB_TEST_REQUEST_TIMEOUT" envDefault:"2m"`
	LogLevel         string        `env:"WEB_TEST_LOG_LEVEL" envDefault:"info"`
	LogHumanFriendly bool          `env:"WEB_TEST_LOG_HUMAN_FRIENDLY" envDefault:"true"`
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
