package mongodb

import (
	"context"
	"fmt"

	"medcatalog-backend/config"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// NewDatabase connects a mongo client and returns a handle on the catalog
// database. The client's pool is safe for concurrent use across requests.
func NewDatabase(ctx context.Context, cfg *config.Config) (*mongo.Database, error) {
	clientOpts := options.Client().
		ApplyURI(cfg.MongoURI).
		SetMaxPoolSize(cfg.MongoMaxPool).
		SetMinPoolSize(cfg.MongoMinPool)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("unable to create mongo client: %w", err)
	}

	// Verify connection
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("unable to ping mongo: %w", err)
	}

	return client.Database(cfg.MongoDB), nil
}
