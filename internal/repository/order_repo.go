// order_repo.go
package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"medshop-backend/internal/model"
)

type MongoOrderRepository struct {
	col *mongo.Collection
}

func NewMongoOrderRepository(db *mongo.Database) *MongoOrderRepository {
	return &MongoOrderRepository{col: db.Collection("orders")}
}

func (m *MongoOrderRepository) Insert(ctx context.Context, o *model.Order) error {
	now := nowUTC()
	o.CreatedAt = now
	o.UpdatedAt = now
	res, err := m.col.InsertOne(ctx, o)
	if err != nil {
		return err
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		o.ID = id
	}
	return nil
}

func (m *MongoOrderRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*model.Order, error) {
	var o model.Order
	err := m.col.FindOne(ctx, bson.M{"_id": id}).Decode(&o)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (m *MongoOrderRepository) FindByUser(ctx context.Context, userID primitive.ObjectID) ([]*model.Order, error) {
	return m.findMany(ctx, bson.M{"user_id": userID})
}

func (m *MongoOrderRepository) FindAll(ctx context.Context) ([]*model.Order, error) {
	return m.findMany(ctx, bson.M{})
}

func (m *MongoOrderRepository) FindByStatus(ctx context.Context, status string) ([]*model.Order, error) {
	return m.findMany(ctx, bson.M{"status": status})
}

// ApplyTransition aplica el update armado por el motor de estados en un
// solo UpdateOne: estado, historial y timeline cambian juntos o ninguno.
func (m *MongoOrderRepository) ApplyTransition(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	res, err := m.col.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkStockReleased fija stock_released_at con un CAS sobre su
// ausencia. Devuelve true solo la primera vez: la restauración de stock
// de una orden (cancelación, devolución o reembolso) cuelga de acá y
// corre exactamente una vez por orden, sin importar desde qué flujo.
func (m *MongoOrderRepository) MarkStockReleased(ctx context.Context, id primitive.ObjectID) (bool, error) {
	res, err := m.col.UpdateOne(ctx,
		bson.M{"_id": id, "stock_released_at": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"stock_released_at": nowUTC()}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

func (m *MongoOrderRepository) findMany(ctx context.Context, filter bson.M) ([]*model.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := m.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []*model.Order
	for cur.Next(ctx) {
		var o model.Order
		if err := cur.Decode(&o); err != nil {
			return nil, err
		}
		out = append(out, &o)
	}
	return out, cur.Err()
}
