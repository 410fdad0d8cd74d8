package elasticsearch

import (
	"context"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"
	"hermannm.dev/devlog/log"
	"hermannm.dev/hazardanalysis/config"
	"hermannm.dev/wrap"
)

// Implements db.BaselineDB for Elasticsearch, with one index per baseline table.
type ElasticsearchDB struct {
	client *elasticsearch.TypedClient
	// The bulk indexer helper only supports the untyped client.
	untypedClient *elasticsearch.Client
}

func NewElasticsearchDB(config config.Config) (ElasticsearchDB, error) {
	clientConfig := elasticsearch.Config{
		Addresses:         []string{config.Elasticsearch.Address},
		EnableDebugLogger: config.Elasticsearch.Debug,
	}

	client, err := elasticsearch.NewTypedClient(clientConfig)
	if err != nil {
		return ElasticsearchDB{}, wrap.Error(err, "failed to connect to Elasticsearch")
	}

	untypedClient, err := elasticsearch.NewClient(clientConfig)
	if err != nil {
		return ElasticsearchDB{}, wrap.Error(err, "failed to create untyped Elasticsearch client")
	}

	db := ElasticsearchDB{client: client, untypedClient: untypedClient}

	indexToDrop := config.Elasticsearch.DropTableOnStartup
	if indexToDrop != "" && !config.IsProduction {
		alreadyDropped, err := db.DropTable(context.Background(), indexToDrop)
		if err != nil {
			log.ErrorCause(
				err,
				fmt.Sprintf(
					"failed to drop index '%s' (from DEBUG_DROP_TABLE_ON_STARTUP in env)",
					indexToDrop,
				),
			)
		} else if !alreadyDropped {
			log.Infof("dropped index '%s' (from DEBUG_DROP_TABLE_ON_STARTUP in env)", indexToDrop)
		}
	}

	return db, nil
}

func (elastic ElasticsearchDB) DropTable(
	ctx context.Context,
	index string,
) (alreadyDropped bool, err error) {
	if _, err := elastic.client.Indices.Delete(index).Do(ctx); err != nil {
		if isIndexNotFound(err) {
			return true, nil
		}

		return false, wrapElasticError(err, "delete index request failed")
	}

	return false, nil
}
