package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/redis/go-redis/v9"
	"hermannm.dev/devlog"
	"hermannm.dev/devlog/log"
	"hermannm.dev/hazardanalysis/analysis"
	"hermannm.dev/hazardanalysis/api"
	"hermannm.dev/hazardanalysis/baseline"
	"hermannm.dev/hazardanalysis/boundary"
	"hermannm.dev/hazardanalysis/config"
	"hermannm.dev/hazardanalysis/db"
	"hermannm.dev/hazardanalysis/db/clickhouse"
	"hermannm.dev/hazardanalysis/db/elasticsearch"
	"hermannm.dev/hazardanalysis/layers"
	"hermannm.dev/hazardanalysis/stats"
	"hermannm.dev/hazardanalysis/wfs"
	"hermannm.dev/hazardanalysis/zonal"
)

func main() {
	conf, err := config.ReadFromEnv()
	if err != nil {
		initializeLogger(config.BaseConfig{LogLevel: "INFO"})
		log.ErrorCause(err, "failed to read config from env")
		os.Exit(1)
	}

	if err := initializeLogger(conf.BaseConfig); err != nil {
		log.ErrorCause(err, "invalid log level in config")
		os.Exit(1)
	}

	registry, err := layers.LoadRegistry(conf.Layers.ConfigPath)
	if err != nil {
		log.ErrorCause(err, "failed to load layer configuration")
		os.Exit(1)
	}

	database, err := initializeDatabase(conf)
	if err != nil {
		log.ErrorCause(err, "failed to initialize database")
		os.Exit(1)
	}

	var responseCache stats.ResponseCache
	if conf.Redis.Address != "" {
		log.Infof("Caching statistics responses in Redis at %s", conf.Redis.Address)
		redisClient := redis.NewClient(&redis.Options{
			Addr:     conf.Redis.Address,
			Password: conf.Redis.Password,
			DB:       conf.Redis.DB,
		})
		responseCache = stats.NewRedisCache(redisClient, conf.Redis.CacheTTL)
	}

	files := layers.NewFileReader(conf.Layers.DataDir, &http.Client{Timeout: conf.Stats.Timeout})
	boundaries := boundary.NewResolver(registry, boundary.NewFileLoader(files))

	var records baseline.RecordSource
	if database != nil {
		records = database
	}
	baselines := baseline.NewLoader(records, files, boundaries)

	orchestrator := analysis.NewOrchestrator(analysis.Dependencies{
		Registry:   registry,
		Boundaries: boundaries,
		Baselines:  baselines,
		Stats:      stats.NewClient(conf.Stats.URL, conf.Stats.Timeout, responseCache),
		Requests: stats.NewRequestBuilder(
			conf.Layers.PublicBaseURL, conf.Layers.DefaultBoundariesURL,
		),
		Overlayer:    zonal.NewGridOverlay(conf.Overlay.GridSize),
		Geometry:     wfs.NewClient(conf.Stats.Timeout),
		IsProduction: conf.IsProduction,
	}, analysis.NewState())

	analysisAPI := api.NewAnalysisAPI(
		orchestrator, database, baselines, registry, http.NewServeMux(), conf.API,
	)

	log.Infof("Listening on port %s...", conf.API.Port)
	if err := analysisAPI.ListenAndServe(); err != nil {
		log.ErrorCause(err, "server stopped")
		os.Exit(1)
	}
}

func initializeLogger(conf config.BaseConfig) error {
	var level slog.Level
	err := level.UnmarshalText([]byte(conf.LogLevel))

	var handler slog.Handler
	if conf.IsProduction {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		handler = devlog.NewHandler(os.Stdout, &devlog.Options{Level: level})
	}
	slog.SetDefault(slog.New(handler))

	return err
}

// Returns nil if no database is configured.
func initializeDatabase(conf config.Config) (db.BaselineDB, error) {
	switch conf.DB {
	case config.DBClickHouse:
		log.Info("Connecting to ClickHouse...")
		return clickhouse.NewClickHouseDB(conf)
	case config.DBElasticsearch:
		log.Info("Connecting to Elasticsearch...")
		return elasticsearch.NewElasticsearchDB(conf)
	case config.DBNone:
		log.Info("No database configured, reading baseline data from files only")
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported database '%s'", conf.DB)
	}
}
