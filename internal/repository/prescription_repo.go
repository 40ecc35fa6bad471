// prescription_repo.go
package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"medshop-backend/internal/model"
)

type MongoPrescriptionRepository struct {
	col *mongo.Collection
}

func NewMongoPrescriptionRepository(db *mongo.Database) *MongoPrescriptionRepository {
	return &MongoPrescriptionRepository{col: db.Collection("prescriptions")}
}

func (m *MongoPrescriptionRepository) Insert(ctx context.Context, p *model.Prescription) error {
	now := nowUTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	res, err := m.col.InsertOne(ctx, p)
	if err != nil {
		return err
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		p.ID = id
	}
	return nil
}

func (m *MongoPrescriptionRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*model.Prescription, error) {
	var p model.Prescription
	err := m.col.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (m *MongoPrescriptionRepository) FindByUser(ctx context.Context, userID primitive.ObjectID) ([]*model.Prescription, error) {
	return m.findMany(ctx, bson.M{"user_id": userID})
}

func (m *MongoPrescriptionRepository) FindAll(ctx context.Context) ([]*model.Prescription, error) {
	return m.findMany(ctx, bson.M{})
}

func (m *MongoPrescriptionRepository) ApplyTransition(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	res, err := m.col.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// LinkOrder asocia la receta a la orden creada a partir de ella.
func (m *MongoPrescriptionRepository) LinkOrder(ctx context.Context, id, orderID primitive.ObjectID) error {
	res, err := m.col.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"order_id": orderID, "updated_at": nowUTC()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoPrescriptionRepository) findMany(ctx context.Context, filter bson.M) ([]*model.Prescription, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := m.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []*model.Prescription
	for cur.Next(ctx) {
		var p model.Prescription
		if err := cur.Decode(&p); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, cur.Err()
}
