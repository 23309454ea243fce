package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all lookup configuration loaded from environment variables
type Config struct {
	BlockfrostProjectID   string        `env:"BLOCKFROST_PROJECT_ID"`
	BlockfrostAPIURL      string        `env:"BLOCKFROST_API_URL" envDefault:"https://cardano-mainnet.blockfrost.io/api/v0"`
	BlockfrostHTTPTimeout time.Duration `env:"BLOCKFROST_HTTP_TIMEOUT" envDefault:"30s"`
	RateLimitRPS          float64       `env:"BUBBLEMAP_RATE_LIMIT_RPS" envDefault:"10"`
	RateLimitBurst        int           `env:"BUBBLEMAP_RATE_LIMIT_BURST" envDefault:"10"`
	PageSize              int           `env:"BUBBLEMAP_PAGE_SIZE" envDefault:"100"`
	MaxHolders            int           `env:"BUBBLEMAP_MAX_HOLDERS" envDefault:"150"`
	MaxAssets             int           `env:"BUBBLEMAP_MAX_ASSETS" envDefault:"100"`
	RelationBatchSize     int           `env:"BUBBLEMAP_RELATION_BATCH_SIZE" envDefault:"5"`
	RelationBatchDelay    time.Duration `env:"BUBBLEMAP_RELATION_BATCH_DELAY" envDefault:"1s"`
	RelationCacheSize     int           `env:"BUBBLEMAP_RELATION_CACHE_SIZE" envDefault:"4096"`
	LogLevel              string        `env:"LOG_LEVEL" envDefault:"info"`
	LogHumanFriendly      bool          `env:"LOG_HUMAN_FRIENDLY" envDefault:"false"`
}

// New loads all configuration from environment variables
func New() Config {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		panic(err)
	}
	return cfg
}
