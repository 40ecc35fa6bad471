// return_repo.go
package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"medshop-backend/internal/model"
	"medshop-backend/internal/status"
)

type MongoReturnRepository struct {
	col *mongo.Collection
}

func NewMongoReturnRepository(db *mongo.Database) *MongoReturnRepository {
	return &MongoReturnRepository{col: db.Collection("returns")}
}

func (m *MongoReturnRepository) Insert(ctx context.Context, r *model.Return) error {
	now := nowUTC()
	r.CreatedAt = now
	r.UpdatedAt = now
	res, err := m.col.InsertOne(ctx, r)
	if err != nil {
		return err
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		r.ID = id
	}
	return nil
}

func (m *MongoReturnRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*model.Return, error) {
	var r model.Return
	err := m.col.FindOne(ctx, bson.M{"_id": id}).Decode(&r)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// FindActiveByOrder busca una devolución viva (ni rechazada ni cancelada)
// para la orden. Es el guard de "una devolución activa por orden".
func (m *MongoReturnRepository) FindActiveByOrder(ctx context.Context, orderID primitive.ObjectID) (*model.Return, error) {
	filter := bson.M{
		"order_id": orderID,
		"status":   bson.M{"$nin": bson.A{status.ReturnRejected, status.ReturnCancelled}},
	}
	var r model.Return
	err := m.col.FindOne(ctx, filter).Decode(&r)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (m *MongoReturnRepository) FindByUser(ctx context.Context, userID primitive.ObjectID) ([]*model.Return, error) {
	return m.findMany(ctx, bson.M{"user_id": userID})
}

func (m *MongoReturnRepository) FindAll(ctx context.Context) ([]*model.Return, error) {
	return m.findMany(ctx, bson.M{})
}

func (m *MongoReturnRepository) ApplyTransition(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	res, err := m.col.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkRefunded fija refunded_at con un CAS sobre su ausencia. Devuelve
// true solo la primera vez: de ahí cuelga la restauración de stock,
// que debe correr exactamente una vez.
func (m *MongoReturnRepository) MarkRefunded(ctx context.Context, id primitive.ObjectID) (bool, error) {
	res, err := m.col.UpdateOne(ctx,
		bson.M{"_id": id, "refunded_at": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"refunded_at": nowUTC()}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

func (m *MongoReturnRepository) findMany(ctx context.Context, filter bson.M) ([]*model.Return, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := m.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []*model.Return
	for cur.Next(ctx) {
		var r model.Return
		if err := cur.Decode(&r); err != nil {
			return nil, err
		}
		out = append(out, &r)
	}
	return out, cur.Err()
}
