package catalog

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"

	"imageresizer/shared/log"
)

const DefaultListLimit = 50

// StoredImage describes one file written by the executor.
type StoredImage struct {
	URL       string    `bson:"url" json:"url"`
	Name      string    `bson:"name" json:"name"`
	Format    string    `bson:"format" json:"format"`
	Width     int       `bson:"width" json:"width"`
	Height    int       `bson:"height" json:"height"`
	Bytes     int       `bson:"bytes" json:"bytes"`
	Album     bool      `bson:"album" json:"album"`
	Action    string    `bson:"action" json:"action"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// Catalog keeps a record of stored images in a MongoDB collection.
type Catalog struct {
	coll   *mongo.Collection
	logger *zap.Logger
}

func New(client *mongo.Client, database, collection string, logger *zap.Logger) *Catalog {
	return &Catalog{
		coll:   client.Database(database).Collection(collection),
		logger: logger,
	}
}

func (c *Catalog) Record(ctx context.Context, img StoredImage) error {
	logger := log.LoggerWithTrace(ctx, c.logger)

	if img.CreatedAt.IsZero() {
		img.CreatedAt = time.Now().UTC()
	}

	if _, err := c.coll.InsertOne(ctx, img); err != nil {
		logger.Error("Error recording stored image", zap.String("url", img.URL), zap.Error(err))
		return fmt.Errorf("record %s: %w", img.URL, err)
	}

	return nil
}

// List returns the most recently stored images first.
func (c *Catalog) List(ctx context.Context, limit int64) ([]StoredImage, error) {
	logger := log.LoggerWithTrace(ctx, c.logger)

	if limit <= 0 {
		limit = DefaultListLimit
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)

	cursor, err := c.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		logger.Error("Error listing stored images", zap.Error(err))
		return nil, fmt.Errorf("list stored images: %w", err)
	}

	images := []StoredImage{}
	if err := cursor.All(ctx, &images); err != nil {
		logger.Error("Error decoding stored images", zap.Error(err))
		return nil, fmt.Errorf("decode stored images: %w", err)
	}

	return images, nil
}
