package database

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DataManager provides typed access to a MongoDB collection
type DataManager[T any] struct {
	collection *mongo.Collection
}

// NewDataManager creates a new DataManager for a collection
func NewDataManager[T any](collection *mongo.Collection) *DataManager[T] {
	return &DataManager[T]{collection: collection}
}

// Name returns the collection name
func (dm *DataManager[T]) Name() string {
	if dm.collection == nil {
		return ""
	}
	return dm.collection.Name()
}

// Get retrieves a single document, (nil, nil) when nothing matches
func (dm *DataManager[T]) Get(ctx context.Context, query bson.M) (*T, error) {
	if dm.collection == nil {
		return nil, fmt.Errorf("database not connected")
	}

	var result T
	err := dm.collection.FindOne(ctx, query).Decode(&result)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// GetAll retrieves all documents matching a query
func (dm *DataManager[T]) GetAll(ctx context.Context, query bson.M, opts ...*options.FindOptions) ([]*T, error) {
	if dm.collection == nil {
		return nil, fmt.Errorf("database not connected")
	}

	cursor, err := dm.collection.Find(ctx, query, opts...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = cursor.Close(ctx) }()

	var results []*T
	for cursor.Next(ctx) {
		var doc T
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		results = append(results, &doc)
	}

	return results, cursor.Err()
}

// Set upserts the document matching query and returns the stored version
func (dm *DataManager[T]) Set(ctx context.Context, query bson.M, data interface{}) (*T, error) {
	if dm.collection == nil {
		return nil, fmt.Errorf("database not connected")
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var result T
	err := dm.collection.FindOneAndUpdate(ctx, query, bson.M{"$set": data}, opts).Decode(&result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Delete removes the document matching query and reports whether one existed
func (dm *DataManager[T]) Delete(ctx context.Context, query bson.M) (bool, error) {
	if dm.collection == nil {
		return false, fmt.Errorf("database not connected")
	}

	res, err := dm.collection.DeleteOne(ctx, query)
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}
