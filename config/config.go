package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
	"hermannm.dev/wrap"
)

type Config struct {
	BaseConfig
	ClickHouse    ClickHouse
	Elasticsearch Elasticsearch
}

type BaseConfig struct {
	IsProduction bool        `env:"PRODUCTION"  envDefault:"false"`
	LogLevel     string      `env:"LOG_LEVEL"   envDefault:"INFO"`
	DB           SupportedDB `env:"DATABASE"    envDefault:"none"`
	API          API
	Stats        Stats
	Layers       Layers
	Redis        Redis
	Overlay      Overlay
}

type API struct {
	Port string `env:"API_PORT" envDefault:"8000"`
}

// Stats configures the external zonal statistics service.
type Stats struct {
	URL     string        `env:"STATS_API_URL"`
	Timeout time.Duration `env:"STATS_API_TIMEOUT" envDefault:"60s"`
}

type Layers struct {
	ConfigPath string `env:"LAYERS_CONFIG_PATH"`
	// Directory that relative boundary/baseline paths from the layer config are read from.
	DataDir string `env:"LAYERS_DATA_DIR" envDefault:"."`
	// Public URL of this deployment, used to give the statistics service an absolute URL to our
	// boundary files. Leave empty in local development, where DefaultBoundariesURL is sent instead.
	PublicBaseURL        string `env:"PUBLIC_BASE_URL"        envDefault:""`
	DefaultBoundariesURL string `env:"DEFAULT_BOUNDARIES_URL"`
}

// Redis caches statistics service responses. Caching is disabled if Address is empty.
type Redis struct {
	Address  string        `env:"REDIS_ADDRESS"   envDefault:""`
	Password string        `env:"REDIS_PASSWORD"  envDefault:""`
	DB       int           `env:"REDIS_DB"        envDefault:"0"`
	CacheTTL time.Duration `env:"STATS_CACHE_TTL" envDefault:"1h"`
}

type Overlay struct {
	GridSize int `env:"OVERLAY_GRID_SIZE" envDefault:"256"`
}

type ClickHouse struct {
	Address            string `env:"CLICKHOUSE_ADDRESS"`
	DatabaseName       string `env:"CLICKHOUSE_DB_NAME"`
	Username           string `env:"CLICKHOUSE_USERNAME"`
	Password           string `env:"CLICKHOUSE_PASSWORD"`
	Debug              bool   `env:"CLICKHOUSE_DEBUG_ENABLED"    envDefault:"false"`
	DropTableOnStartup string `env:"DEBUG_DROP_TABLE_ON_STARTUP" envDefault:""`
}

type Elasticsearch struct {
	Address            string `env:"ELASTICSEARCH_ADDRESS"`
	Debug              bool   `env:"ELASTICSEARCH_DEBUG_ENABLED" envDefault:"false"`
	DropTableOnStartup string `env:"DEBUG_DROP_TABLE_ON_STARTUP" envDefault:""`
}

// SupportedDB selects where baseline records (admin-level data) are stored.
type SupportedDB string

const (
	DBClickHouse    SupportedDB = "clickhouse"
	DBElasticsearch SupportedDB = "elasticsearch"
	// Baseline layers are then only read from the files referenced in the layer config.
	DBNone SupportedDB = "none"
)

func ReadFromEnv() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, wrap.Error(err, "failed to load .env file")
	}

	parseOptions := env.Options{RequiredIfNoDef: true}

	var config Config

	if err := env.ParseWithOptions(&config.BaseConfig, parseOptions); err != nil {
		return Config{}, err
	}

	switch config.DB {
	case DBClickHouse:
		if err := env.ParseWithOptions(&config.ClickHouse, parseOptions); err != nil {
			return Config{}, err
		}
	case DBElasticsearch:
		if err := env.ParseWithOptions(&config.Elasticsearch, parseOptions); err != nil {
			return Config{}, err
		}
	case DBNone:
	default:
		err := fmt.Errorf(
			"must be one of: '%s', '%s', '%s'", DBClickHouse, DBElasticsearch, DBNone,
		)
		return Config{}, wrap.Errorf(err, "unsupported value '%s' for DATABASE in env", config.DB)
	}

	if config.Overlay.GridSize <= 0 {
		return Config{}, fmt.Errorf(
			"OVERLAY_GRID_SIZE must be positive, got %d", config.Overlay.GridSize,
		)
	}

	return config, nil
}
