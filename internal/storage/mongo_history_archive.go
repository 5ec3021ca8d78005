package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/annel0/blockedit/internal/history"
	"github.com/annel0/blockedit/internal/logging"
	"github.com/annel0/blockedit/internal/vec"
)

// MongoConfig параметры подключения архива к MongoDB
type MongoConfig struct {
	URI        string // e.g. mongodb://localhost:27017
	Database   string // e.g. blockedit
	Collection string // e.g. transactions
}

// MongoHistoryArchive реализует HistoryArchive поверх MongoDB
type MongoHistoryArchive struct {
	client     *mongo.Client
	collection *mongo.Collection
	ctxTimeout time.Duration
}

// recordDoc документ транзакции
type recordDoc struct {
	ID        string    `bson:"_id"`
	Operator  string    `bson:"operator"`
	World     string    `bson:"world"`
	Label     string    `bson:"label"`
	Changes   int       `bson:"changes"`
	Partial   bool      `bson:"partial"`
	Min       []int     `bson:"min"`
	Max       []int     `bson:"max"`
	CreatedAt time.Time `bson:"created_at"`
}

// NewMongoHistoryArchive подключается к MongoDB и создаёт индексы
func NewMongoHistoryArchive(cfg MongoConfig) (*MongoHistoryArchive, error) {
	if cfg.URI == "" {
		cfg.URI = "mongodb://localhost:27017"
	}
	if cfg.Database == "" {
		cfg.Database = "blockedit"
	}
	if cfg.Collection == "" {
		cfg.Collection = "transactions"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("MongoDB не отвечает: %w", err)
	}

	a := &MongoHistoryArchive{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
		ctxTimeout: 5 * time.Second,
	}
	if err := a.ensureIndexes(); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	logging.GetStorageLogger().Info("🗃️ Архив транзакций MongoDB подключён: %s/%s", cfg.Database, cfg.Collection)
	return a, nil
}

func (a *MongoHistoryArchive) ensureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.ctxTimeout)
	defer cancel()
	idx := mongo.IndexModel{
		Keys:    bson.D{{Key: "operator", Value: 1}, {Key: "created_at", Value: -1}},
		Options: options.Index().SetName("operator_created"),
	}
	if _, err := a.collection.Indexes().CreateOne(ctx, idx); err != nil {
		return fmt.Errorf("ошибка создания индексов архива: %w", err)
	}
	return nil
}

// Record сохраняет запись. Повторная запись той же транзакции игнорируется.
func (a *MongoHistoryArchive) Record(ctx context.Context, rec history.Record) error {
	ctx, cancel := context.WithTimeout(ctx, a.ctxTimeout)
	defer cancel()
	doc := recordDoc{
		ID:        rec.ID.String(),
		Operator:  rec.Operator,
		World:     rec.World,
		Label:     rec.Label,
		Changes:   rec.Changes,
		Partial:   rec.Partial,
		Min:       []int{rec.Min.X, rec.Min.Y, rec.Min.Z},
		Max:       []int{rec.Max.X, rec.Max.Y, rec.Max.Z},
		CreatedAt: rec.CreatedAt,
	}
	_, err := a.collection.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("ошибка записи транзакции %s: %w", rec.ID, err)
	}
	return nil
}

// List возвращает последние записи оператора
func (a *MongoHistoryArchive) List(ctx context.Context, operator string, limit int) ([]history.Record, error) {
	if limit <= 0 {
		limit = 100
	}
	ctx, cancel := context.WithTimeout(ctx, a.ctxTimeout)
	defer cancel()

	filter := bson.M{}
	if operator != "" {
		filter["operator"] = operator
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(int64(limit))
	cur, err := a.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения архива: %w", err)
	}
	defer cur.Close(ctx)

	var docs []recordDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("ошибка разбора архива: %w", err)
	}
	out := make([]history.Record, 0, len(docs))
	for _, d := range docs {
		id, err := uuid.Parse(d.ID)
		if err != nil {
			return nil, fmt.Errorf("некорректный ID транзакции %q: %w", d.ID, err)
		}
		out = append(out, history.Record{
			ID:        id,
			Operator:  d.Operator,
			World:     d.World,
			Label:     d.Label,
			Changes:   d.Changes,
			Partial:   d.Partial,
			Min:       vecOf(d.Min),
			Max:       vecOf(d.Max),
			CreatedAt: d.CreatedAt,
		})
	}
	return out, nil
}

func vecOf(c []int) vec.Vec3 {
	if len(c) != 3 {
		return vec.Zero
	}
	return vec.New(c[0], c[1], c[2])
}

// Close разрывает соединение с MongoDB
func (a *MongoHistoryArchive) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.ctxTimeout)
	defer cancel()
	return a.client.Disconnect(ctx)
}
