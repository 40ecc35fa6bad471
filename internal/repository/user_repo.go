// user_repo.go
package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"medshop-backend/internal/model"
)

type MongoUserRepository struct {
	col *mongo.Collection
}

func NewMongoUserRepository(db *mongo.Database) *MongoUserRepository {
	return &MongoUserRepository{col: db.Collection("users")}
}

func (m *MongoUserRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*model.User, error) {
	var u model.User
	err := m.col.FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (m *MongoUserRepository) FindByPhone(ctx context.Context, phone string) (*model.User, error) {
	var u model.User
	err := m.col.FindOne(ctx, bson.M{"phone": phone}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// UpsertByPhone crea el usuario en el primer login verificado por OTP.
func (m *MongoUserRepository) UpsertByPhone(ctx context.Context, phone string) (*model.User, error) {
	now := nowUTC()
	filter := bson.M{"phone": phone}
	update := bson.M{
		"$setOnInsert": bson.M{
			"phone":      phone,
			"is_admin":   false,
			"created_at": now,
		},
		"$set": bson.M{"updated_at": now},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var u model.User
	if err := m.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (m *MongoUserRepository) SetPassword(ctx context.Context, phone, passwordHash string) error {
	res, err := m.col.UpdateOne(ctx,
		bson.M{"phone": phone},
		bson.M{"$set": bson.M{"password_hash": passwordHash, "updated_at": nowUTC()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoUserRepository) UpdateProfile(ctx context.Context, id primitive.ObjectID, name, email string) error {
	set := bson.M{"updated_at": nowUTC()}
	if name != "" {
		set["name"] = name
	}
	if email != "" {
		set["email"] = email
	}
	res, err := m.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
