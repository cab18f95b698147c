package repository

import (
	"context"
	"testing"
	"time"

	"plantdoc/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func exportDoc(id, user string, created time.Time) bson.D {
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "userId", Value: user},
		{Key: "plantName", Value: "Fern"},
		{Key: "filename", Value: "Fern_Health_Report_2026-10-19.pdf"},
		{Key: "pages", Value: int32(2)},
		{Key: "createdAt", Value: primitive.NewDateTimeFromTime(created)},
	}
}

func TestExportRepo(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("create fills id and time", func(mt *mtest.T) {
		repo := NewExportRepo(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		rec := &model.ExportRecord{UserID: "u-1", PlantName: "Fern"}
		id, err := repo.Create(context.Background(), rec)
		require.NoError(t, err)
		assert.NotEmpty(t, id)
		assert.Equal(t, id, rec.ID)
		assert.False(t, rec.CreatedAt.IsZero())

		started := mt.GetStartedEvent()
		require.NotNil(t, started)
		assert.Equal(t, "insert", started.CommandName)
	})

	mt.Run("create surfaces write errors", func(mt *mtest.T) {
		repo := NewExportRepo(mt.DB)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index: 0, Code: 11000, Message: "duplicate key",
		}))

		_, err := repo.Create(context.Background(), &model.ExportRecord{ID: "dup"})
		assert.Error(t, err)
	})

	mt.Run("list by user", func(mt *mtest.T) {
		repo := NewExportRepo(mt.DB)
		ns := mt.DB.Name() + "." + mt.Coll.Name()
		newer := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
		older := newer.Add(-24 * time.Hour)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			exportDoc("e2", "u-1", newer),
			exportDoc("e1", "u-1", older),
		))

		recs, err := repo.ListByUser(context.Background(), "u-1", 10)
		require.NoError(t, err)
		require.Len(t, recs, 2)
		assert.Equal(t, "e2", recs[0].ID)
		assert.Equal(t, 2, recs[0].Pages)
		assert.True(t, newer.Equal(recs[0].CreatedAt))

		started := mt.GetStartedEvent()
		require.NotNil(t, started)
		assert.Equal(t, "find", started.CommandName)
	})

	mt.Run("list empty", func(mt *mtest.T) {
		repo := NewExportRepo(mt.DB)
		ns := mt.DB.Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		recs, err := repo.ListByUser(context.Background(), "nobody", 0)
		require.NoError(t, err)
		assert.Empty(t, recs)
		assert.NotNil(t, recs)
	})

	mt.Run("get missing", func(mt *mtest.T) {
		repo := NewExportRepo(mt.DB)
		ns := mt.DB.Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		rec, err := repo.GetByID(context.Background(), "missing")
		require.NoError(t, err)
		assert.Nil(t, rec)
	})
}
