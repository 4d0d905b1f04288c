package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"catalog-api/models"
)

func itemDoc(id primitive.ObjectID, title, author string, created time.Time) bson.D {
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "title", Value: title},
		{Key: "author", Value: author},
		{Key: "description", Value: ""},
		{Key: "genre", Value: "fantasy"},
		{Key: "year", Value: 1954},
		{Key: "type", Value: "pdf"},
		{Key: "fileUrl", Value: "https://files.example/" + title},
		{Key: "imageUrl", Value: ""},
		{Key: "createdAt", Value: created},
	}
}

func TestMongoItemRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("Insert", func(mt *mtest.T) {
		repo := NewMongoItemRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		item := &models.Item{
			ID:        primitive.NewObjectID(),
			Title:     "The Hobbit",
			Author:    "J.R.R. Tolkien",
			Type:      models.TypePDF,
			FileURL:   "https://files.example/hobbit.pdf",
			CreatedAt: time.Now().UTC(),
		}
		require.NoError(mt, repo.Insert(ctx, item))
		assert.Equal(mt, "insert", mt.GetStartedEvent().CommandName)
	})

	mt.Run("Insert storage fault", func(mt *mtest.T) {
		repo := NewMongoItemRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "duplicate key error",
		}))

		err := repo.Insert(ctx, &models.Item{ID: primitive.NewObjectID()})
		require.Error(mt, err)
		assert.Contains(mt, err.Error(), "insert item")
	})

	mt.Run("FindAll sorts newest first", func(mt *mtest.T) {
		repo := NewMongoItemRepository(mt.Coll)
		ns := mt.DB.Name() + "." + mt.Coll.Name()
		now := time.Now().UTC().Truncate(time.Millisecond)
		newer, older := primitive.NewObjectID(), primitive.NewObjectID()

		first := mtest.CreateCursorResponse(1, ns, mtest.FirstBatch,
			itemDoc(newer, "B", "Author B", now),
			itemDoc(older, "A", "Author A", now.Add(-time.Minute)))
		end := mtest.CreateCursorResponse(0, ns, mtest.NextBatch)
		mt.AddMockResponses(first, end)

		items, err := repo.FindAll(ctx)
		require.NoError(mt, err)
		require.Len(mt, items, 2)
		assert.Equal(mt, newer, items[0].ID)
		assert.Equal(mt, "B", items[0].Title)
		assert.Equal(mt, 1954, items[0].Year)
		assert.True(mt, items[0].CreatedAt.Equal(now))

		cmd := mt.GetStartedEvent().Command
		sort := cmd.Lookup("sort").Document()
		assert.Equal(mt, "createdAt", sort.Index(0).Key())
		assert.EqualValues(mt, -1, sort.Index(0).Value().Int32())
	})

	mt.Run("FindAll empty collection", func(mt *mtest.T) {
		repo := NewMongoItemRepository(mt.Coll)
		ns := mt.DB.Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		items, err := repo.FindAll(ctx)
		require.NoError(mt, err)
		assert.NotNil(mt, items)
		assert.Empty(mt, items)
	})

	mt.Run("FindAll storage fault", func(mt *mtest.T) {
		repo := NewMongoItemRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    2,
			Name:    "BadValue",
			Message: "boom",
		}))

		_, err := repo.FindAll(ctx)
		require.Error(mt, err)
		assert.Contains(mt, err.Error(), "find items")
	})

	mt.Run("Search builds a literal case-insensitive $or", func(mt *mtest.T) {
		repo := NewMongoItemRepository(mt.Coll)
		ns := mt.DB.Name() + "." + mt.Coll.Name()
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			itemDoc(id, "The Hobbit", "J.R.R. Tolkien", time.Now().UTC())))

		items, err := repo.Search(ctx, "J.R.R")
		require.NoError(mt, err)
		require.Len(mt, items, 1)
		assert.Equal(mt, id, items[0].ID)

		cmd := mt.GetStartedEvent().Command
		clauses, err := cmd.Lookup("filter", "$or").Array().Values()
		require.NoError(mt, err)
		require.Len(mt, clauses, len(searchFields))
		for i, field := range searchFields {
			pattern, opts := clauses[i].Document().Lookup(field).Regex()
			assert.Equal(mt, `J\.R\.R`, pattern)
			assert.Equal(mt, "i", opts)
		}
	})

	mt.Run("Search with empty query lists everything", func(mt *mtest.T) {
		repo := NewMongoItemRepository(mt.Coll)
		ns := mt.DB.Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			itemDoc(primitive.NewObjectID(), "A", "a", time.Now().UTC()),
			itemDoc(primitive.NewObjectID(), "B", "b", time.Now().UTC())))

		items, err := repo.Search(ctx, "")
		require.NoError(mt, err)
		assert.Len(mt, items, 2)

		cmd := mt.GetStartedEvent().Command
		_, err = cmd.Lookup("filter").Document().LookupErr("$or")
		assert.Error(mt, err)
	})

	mt.Run("FindByID", func(mt *mtest.T) {
		repo := NewMongoItemRepository(mt.Coll)
		ns := mt.DB.Name() + "." + mt.Coll.Name()
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			itemDoc(id, "The Hobbit", "J.R.R. Tolkien", time.Now().UTC())))

		item, err := repo.FindByID(ctx, id)
		require.NoError(mt, err)
		assert.Equal(mt, "The Hobbit", item.Title)
		assert.Equal(mt, models.TypePDF, item.Type)
	})

	mt.Run("FindByID missing", func(mt *mtest.T) {
		repo := NewMongoItemRepository(mt.Coll)
		ns := mt.DB.Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		_, err := repo.FindByID(ctx, primitive.NewObjectID())
		assert.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("Delete existing", func(mt *mtest.T) {
		repo := NewMongoItemRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))

		deleted, err := repo.Delete(ctx, primitive.NewObjectID())
		require.NoError(mt, err)
		assert.True(mt, deleted)
	})

	mt.Run("Delete missing is not an error", func(mt *mtest.T) {
		repo := NewMongoItemRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}))

		deleted, err := repo.Delete(ctx, primitive.NewObjectID())
		require.NoError(mt, err)
		assert.False(mt, deleted)
	})

	mt.Run("Delete storage fault", func(mt *mtest.T) {
		repo := NewMongoItemRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    2,
			Name:    "BadValue",
			Message: "boom",
		}))

		_, err := repo.Delete(ctx, primitive.NewObjectID())
		assert.Error(mt, err)
	})

	mt.Run("EnsureIndexes", func(mt *mtest.T) {
		repo := NewMongoItemRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		require.NoError(mt, repo.EnsureIndexes(ctx))
		cmd := mt.GetStartedEvent().Command
		index := cmd.Lookup("indexes").Array().Index(0).Value().Document()
		assert.Equal(mt, "createdAt_desc", index.Lookup("name").StringValue())
	})
}
