// repository.go
package repository

import (
	"context"
	"errors"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrNotFound = errors.New("documento no encontrado")

// EnsureIndexes crea los índices que el modelo de datos necesita:
// teléfono único por usuario, carrito único por usuario y TTL sobre
// otps.expires_at (la expiración la garantiza el store, no la app).
func EnsureIndexes(ctx context.Context, db *mongo.Database) {
	users := db.Collection("users")
	if _, err := users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "phone", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		log.Println("❌ Error creando índice users.phone:", err)
	}

	carts := db.Collection("carts")
	if _, err := carts.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		log.Println("❌ Error creando índice carts.user_id:", err)
	}

	otps := db.Collection("otps")
	if _, err := otps.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	}); err != nil {
		log.Println("❌ Error creando índice TTL otps.expires_at:", err)
	}
	if _, err := otps.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "phone", Value: 1}, {Key: "purpose", Value: 1}, {Key: "created_at", Value: -1}},
	}); err != nil {
		log.Println("❌ Error creando índice otps.phone/purpose:", err)
	}

	returns := db.Collection("returns")
	if _, err := returns.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "order_id", Value: 1}},
	}); err != nil {
		log.Println("❌ Error creando índice returns.order_id:", err)
	}
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
