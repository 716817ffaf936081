package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Checkpoints persists change stream resume tokens in stream_checkpoints.
type Checkpoints struct {
	coll *mongo.Collection
	now  func() time.Time
}

// NewCheckpoints returns a checkpoint store on db.
func NewCheckpoints(db *mongo.Database) *Checkpoints {
	return &Checkpoints{coll: db.Collection(checkpointsCollection), now: time.Now}
}

type checkpointDocument struct {
	ID        string    `bson:"_id"`
	Token     bson.Raw  `bson:"token"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// Load returns the saved token of stream name, nil when none was saved.
func (c *Checkpoints) Load(ctx context.Context, name string) (bson.Raw, error) {
	var doc checkpointDocument
	err := c.coll.FindOne(ctx, bson.D{{Key: "_id", Value: name}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load checkpoint %s: %w", name, err)
	}
	return doc.Token, nil
}

// Save stores token as the resume point of stream name.
func (c *Checkpoints) Save(ctx context.Context, name string, token bson.Raw) error {
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "token", Value: token},
		{Key: "updatedAt", Value: c.now().UTC()},
	}}}
	_, err := c.coll.UpdateOne(ctx, bson.D{{Key: "_id", Value: name}}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save checkpoint %s: %w", name, err)
	}
	return nil
}
