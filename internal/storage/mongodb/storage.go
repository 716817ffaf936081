package mongodb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainErrors "github.com/polkiloo/salesrollup/internal/domain/errors"
	"github.com/polkiloo/salesrollup/internal/domain/model"
	"github.com/polkiloo/salesrollup/internal/domain/repository"
)

const (
	statsCollection       = "sales_stats"
	appliedCollection     = "applied_events"
	checkpointsCollection = "stream_checkpoints"
)

// Storage keeps one aggregate document per tenant in sales_stats and merges
// increments with $inc.
type Storage struct {
	client  *mongo.Client
	stats   *mongo.Collection
	applied *mongo.Collection
	logger  *slog.Logger
	now     func() time.Time
}

// Connect opens a client and verifies the deployment is reachable.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongo connection URI is empty")
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(uri).
		SetConnectTimeout(5 * time.Second)
	client, err := mongo.Connect(connectCtx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, cancelPing := context.WithTimeout(ctx, 2*time.Second)
	defer cancelPing()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, nil
}

// New connects to uri and prepares the collections of database.
func New(ctx context.Context, uri, database string, logger *slog.Logger) (*Storage, error) {
	client, err := Connect(ctx, uri)
	if err != nil {
		return nil, err
	}

	s := NewWithDatabase(client.Database(database), logger)
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	logger.Info("connected to mongo", slog.String("database", database))
	return s, nil
}

// NewWithDatabase builds a storage on an existing database handle.
func NewWithDatabase(db *mongo.Database, logger *slog.Logger) *Storage {
	if logger == nil {
		logger = slog.Default()
	}
	return &Storage{
		client:  db.Client(),
		stats:   db.Collection(statsCollection),
		applied: db.Collection(appliedCollection),
		logger:  logger,
		now:     time.Now,
	}
}

func (s *Storage) ensureIndexes(ctx context.Context) error {
	_, err := s.applied.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expiresAt", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	if err != nil {
		return fmt.Errorf("create applied events ttl index: %w", err)
	}
	return nil
}

// Apply merges inc into the tenant document with a single upserting $inc.
func (s *Storage) Apply(ctx context.Context, tenantID string, inc model.Increments) error {
	fields := inc.Fields()
	if len(fields) == 0 {
		return nil
	}

	incDoc := make(bson.D, 0, len(fields))
	for _, f := range fields {
		v, err := bsonValue(f)
		if err != nil {
			return err
		}
		incDoc = append(incDoc, bson.E{Key: f.Path, Value: v})
	}

	update := bson.D{
		{Key: "$inc", Value: incDoc},
		{Key: "$max", Value: bson.D{{Key: "updatedAt", Value: s.now().UTC()}}},
	}

	_, err := s.stats.UpdateOne(ctx, bson.D{{Key: "_id", Value: tenantID}}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("merge rollup increments: %w", err)
	}
	return nil
}

func bsonValue(f model.FieldIncrement) (any, error) {
	if f.Counter {
		return f.Value.IntPart(), nil
	}
	d, err := primitive.ParseDecimal128(f.Value.String())
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", f.Path, err)
	}
	return d, nil
}

type bucketDocument struct {
	Revenue primitive.Decimal128 `bson:"revenue"`
	Count   int64                `bson:"count"`
}

type statsDocument struct {
	ID     string `bson:"_id"`
	Totals struct {
		Revenue              primitive.Decimal128 `bson:"revenue"`
		Count                int64                `bson:"count"`
		RealizedRevenue      primitive.Decimal128 `bson:"realizedRevenue"`
		RealizedCOGS         primitive.Decimal128 `bson:"realizedCOGS"`
		RealizedDeliveryCost primitive.Decimal128 `bson:"realizedDeliveryCost"`
	} `bson:"totals"`
	Daily        map[string]bucketDocument `bson:"daily"`
	StatusCounts map[string]int64          `bson:"statusCounts"`
	UpdatedAt    time.Time                 `bson:"updatedAt"`
}

// Load reads the tenant document.
func (s *Storage) Load(ctx context.Context, tenantID string) (*model.SalesStats, error) {
	var doc statsDocument
	err := s.stats.FindOne(ctx, bson.D{{Key: "_id", Value: tenantID}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domainErrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load rollup: %w", err)
	}

	stats := model.NewSalesStats(tenantID)
	stats.Totals = model.Totals{
		Revenue:              toDecimal(doc.Totals.Revenue),
		Count:                doc.Totals.Count,
		RealizedRevenue:      toDecimal(doc.Totals.RealizedRevenue),
		RealizedCOGS:         toDecimal(doc.Totals.RealizedCOGS),
		RealizedDeliveryCost: toDecimal(doc.Totals.RealizedDeliveryCost),
	}
	for date, b := range doc.Daily {
		stats.Daily[date] = model.DailyBucket{Revenue: toDecimal(b.Revenue), Count: b.Count}
	}
	for status, n := range doc.StatusCounts {
		stats.StatusCounts[status] = n
	}
	if !doc.UpdatedAt.IsZero() {
		updated := doc.UpdatedAt.UTC()
		stats.UpdatedAt = &updated
	}
	return stats, nil
}

func toDecimal(d primitive.Decimal128) decimal.Decimal {
	if d == (primitive.Decimal128{}) {
		return decimal.Zero
	}
	v, err := decimal.NewFromString(d.String())
	if err != nil {
		return decimal.Zero
	}
	return v
}

// MarkApplied inserts key into applied_events and reports whether it was new.
func (s *Storage) MarkApplied(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	now := s.now().UTC()
	doc := bson.D{
		{Key: "_id", Value: key},
		{Key: "appliedAt", Value: now},
		{Key: "expiresAt", Value: now.Add(ttl)},
	}
	if _, err := s.applied.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("mark event applied: %w", err)
	}
	return true, nil
}

// Release removes key from applied_events.
func (s *Storage) Release(ctx context.Context, key string) error {
	if _, err := s.applied.DeleteOne(ctx, bson.D{{Key: "_id", Value: key}}); err != nil {
		return fmt.Errorf("release event: %w", err)
	}
	return nil
}

// HealthCheck pings the deployment.
func (s *Storage) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.client.Ping(ctx, nil)
}

// Close disconnects the client.
func (s *Storage) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Rollups returns the storage itself.
func (s *Storage) Rollups() repository.RollupRepository {
	return s
}

// Ledger returns the applied_events collection ledger.
func (s *Storage) Ledger() repository.EventLedger {
	return s
}

var (
	_ repository.Factory          = (*Storage)(nil)
	_ repository.EventLedger      = (*Storage)(nil)
	_ repository.RollupRepository = (*Storage)(nil)
)
