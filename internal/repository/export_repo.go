package repository

import (
	"context"
	"time"

	"plantdoc/internal/model"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ExportRepo handles MongoDB operations for the export log
type ExportRepo interface {
	EnsureIndexes(ctx context.Context) error
	Create(ctx context.Context, rec *model.ExportRecord) (string, error)
	GetByID(ctx context.Context, id string) (*model.ExportRecord, error)
	ListByUser(ctx context.Context, userID string, limit int64) ([]*model.ExportRecord, error)
}

type exportRepo struct {
	collection *mongo.Collection
}

// NewExportRepo creates a new export repository
func NewExportRepo(db *mongo.Database) ExportRepo {
	return &exportRepo{
		collection: db.Collection("exports"),
	}
}

func (r *exportRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	return err
}

// Create stores rec, filling in the id and creation time when unset
func (r *exportRepo) Create(ctx context.Context, rec *model.ExportRecord) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	if _, err := r.collection.InsertOne(ctx, rec); err != nil {
		return "", err
	}
	return rec.ID, nil
}

func (r *exportRepo) GetByID(ctx context.Context, id string) (*model.ExportRecord, error) {
	var rec model.ExportRecord
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&rec)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListByUser returns the newest exports of userID first. A limit of zero
// returns all of them.
func (r *exportRepo) ListByUser(ctx context.Context, userID string, limit int64) ([]*model.ExportRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cursor, err := r.collection.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	records := []*model.ExportRecord{}
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}
