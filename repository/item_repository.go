package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"catalog-api/models"
)

// ErrNotFound is returned by FindByID when no document has the given id.
var ErrNotFound = errors.New("item not found")

// searchFields are matched by Search.
var searchFields = []string{"title", "author", "description", "genre"}

// newestFirst orders by creation time; _id breaks ties between items
// created in the same millisecond.
var newestFirst = bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}

type ItemRepository interface {
	Insert(ctx context.Context, item *models.Item) error
	FindAll(ctx context.Context) ([]models.Item, error)
	Search(ctx context.Context, query string) ([]models.Item, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Item, error)
	Delete(ctx context.Context, id primitive.ObjectID) (bool, error)
	Ping(ctx context.Context) error
}

// MongoItemRepository stores items in a single MongoDB collection.
type MongoItemRepository struct {
	coll *mongo.Collection
}

func NewMongoItemRepository(coll *mongo.Collection) *MongoItemRepository {
	return &MongoItemRepository{coll: coll}
}

// EnsureIndexes creates the index backing the newest-first listing.
func (r *MongoItemRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    newestFirst,
		Options: options.Index().SetName("createdAt_desc"),
	})
	if err != nil {
		return fmt.Errorf("create createdAt index: %w", err)
	}
	return nil
}

func (r *MongoItemRepository) Insert(ctx context.Context, item *models.Item) error {
	if _, err := r.coll.InsertOne(ctx, item); err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

func (r *MongoItemRepository) FindAll(ctx context.Context) ([]models.Item, error) {
	return r.find(ctx, bson.M{})
}

// Search returns items where query occurs, case-insensitively, in any of the
// text fields. The query is matched literally, not as a pattern. An empty
// query matches everything.
func (r *MongoItemRepository) Search(ctx context.Context, query string) ([]models.Item, error) {
	if query == "" {
		return r.find(ctx, bson.M{})
	}
	return r.find(ctx, searchFilter(query))
}

func searchFilter(query string) bson.M {
	pattern := primitive.Regex{Pattern: regexp.QuoteMeta(query), Options: "i"}
	or := make(bson.A, 0, len(searchFields))
	for _, field := range searchFields {
		or = append(or, bson.M{field: pattern})
	}
	return bson.M{"$or": or}
}

func (r *MongoItemRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Item, error) {
	var item models.Item
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&item)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find item %s: %w", id.Hex(), err)
	}
	return &item, nil
}

// Delete removes the item with id. It reports whether a document was removed;
// a missing id is not an error.
func (r *MongoItemRepository) Delete(ctx context.Context, id primitive.ObjectID) (bool, error) {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, fmt.Errorf("delete item %s: %w", id.Hex(), err)
	}
	return res.DeletedCount > 0, nil
}

func (r *MongoItemRepository) Ping(ctx context.Context) error {
	return r.coll.Database().Client().Ping(ctx, nil)
}

func (r *MongoItemRepository) find(ctx context.Context, filter interface{}) ([]models.Item, error) {
	cursor, err := r.coll.Find(ctx, filter, options.Find().SetSort(newestFirst))
	if err != nil {
		return nil, fmt.Errorf("find items: %w", err)
	}
	defer cursor.Close(ctx)

	items := make([]models.Item, 0)
	for cursor.Next(ctx) {
		var item models.Item
		if err := cursor.Decode(&item); err != nil {
			return nil, fmt.Errorf("decode item: %w", err)
		}
		items = append(items, item)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return items, nil
}
