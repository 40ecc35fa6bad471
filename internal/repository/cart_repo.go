// cart_repo.go
package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"medshop-backend/internal/model"
)

type MongoCartRepository struct {
	col *mongo.Collection
}

func NewMongoCartRepository(db *mongo.Database) *MongoCartRepository {
	return &MongoCartRepository{col: db.Collection("carts")}
}

// FindByUser devuelve el carrito del usuario, o uno vacío si no existe.
func (m *MongoCartRepository) FindByUser(ctx context.Context, userID primitive.ObjectID) (*model.Cart, error) {
	var c model.Cart
	err := m.col.FindOne(ctx, bson.M{"user_id": userID}).Decode(&c)
	if err == mongo.ErrNoDocuments {
		return &model.Cart{UserID: userID, Items: []model.CartItem{}}, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (m *MongoCartRepository) Save(ctx context.Context, c *model.Cart) error {
	c.UpdatedAt = nowUTC()
	filter := bson.M{"user_id": c.UserID}
	update := bson.M{"$set": bson.M{
		"user_id":    c.UserID,
		"items":      c.Items,
		"updated_at": c.UpdatedAt,
	}}
	opts := options.Update().SetUpsert(true)
	_, err := m.col.UpdateOne(ctx, filter, update, opts)
	return err
}

func (m *MongoCartRepository) Clear(ctx context.Context, userID primitive.ObjectID) error {
	_, err := m.col.UpdateOne(ctx,
		bson.M{"user_id": userID},
		bson.M{"$set": bson.M{"items": []model.CartItem{}, "updated_at": nowUTC()}},
	)
	return err
}
