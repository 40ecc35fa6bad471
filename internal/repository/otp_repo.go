// otp_repo.go
package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"medshop-backend/internal/model"
)

type MongoOTPRepository struct {
	col *mongo.Collection
}

func NewMongoOTPRepository(db *mongo.Database) *MongoOTPRepository {
	return &MongoOTPRepository{col: db.Collection("otps")}
}

func (m *MongoOTPRepository) Create(ctx context.Context, otp *model.OTP) error {
	if otp.CreatedAt.IsZero() {
		otp.CreatedAt = nowUTC()
	}
	res, err := m.col.InsertOne(ctx, otp)
	if err != nil {
		return err
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		otp.ID = id
	}
	return nil
}

// FindActive devuelve el registro no usado más reciente para (phone, purpose).
// La expiración no se filtra acá: el servicio decide qué hacer con un
// registro vencido (marcarlo usado y devolver Expired).
func (m *MongoOTPRepository) FindActive(ctx context.Context, phone, purpose string) (*model.OTP, error) {
	filter := bson.M{"phone": phone, "purpose": purpose, "is_used": false}
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})

	var otp model.OTP
	err := m.col.FindOne(ctx, filter, opts).Decode(&otp)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &otp, nil
}

// CountRecentSends cuenta los envíos dentro de la ventana. Es el
// respaldo de la ventana de redis cuando el store de rate limit no
// responde: el límite se degrada a este conteo.
func (m *MongoOTPRepository) CountRecentSends(ctx context.Context, phone, purpose string, window time.Duration) (int64, error) {
	filter := bson.M{
		"phone":      phone,
		"purpose":    purpose,
		"created_at": bson.M{"$gte": nowUTC().Add(-window)},
	}
	return m.col.CountDocuments(ctx, filter)
}

// ConsumeAttempt incrementa attempts de forma atómica, solo si el registro
// sigue sin usar y por debajo del tope. Devuelve la imagen posterior.
// ErrNotFound significa: bloqueado o consumido por una request concurrente.
func (m *MongoOTPRepository) ConsumeAttempt(ctx context.Context, id primitive.ObjectID, maxAttempts int) (*model.OTP, error) {
	filter := bson.M{
		"_id":      id,
		"is_used":  false,
		"attempts": bson.M{"$lt": maxAttempts},
	}
	update := bson.M{"$inc": bson.M{"attempts": 1}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var otp model.OTP
	err := m.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&otp)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &otp, nil
}

// MarkUsed consume el registro con un CAS sobre is_used. Devuelve false
// si otra request lo consumió primero (el código vale una sola vez).
func (m *MongoOTPRepository) MarkUsed(ctx context.Context, id primitive.ObjectID) (bool, error) {
	now := nowUTC()
	res, err := m.col.UpdateOne(ctx,
		bson.M{"_id": id, "is_used": false},
		bson.M{"$set": bson.M{"is_used": true, "used_at": now}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}
