// models.go
package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Propósitos de OTP. Cada propósito tiene su propia ventana de rate limit.
const (
	PurposeLogin      = "LOGIN"
	PurposeReset      = "RESET"
	PurposeAdminLogin = "ADMIN_LOGIN"
)

// OTP guarda solo el hash del código, nunca el texto plano.
type OTP struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Phone     string             `bson:"phone" json:"phone"`
	OtpHash   string             `bson:"otp_hash" json:"-"`
	Purpose   string             `bson:"purpose" json:"purpose"`
	ExpiresAt time.Time          `bson:"expires_at" json:"expiresAt"`
	Attempts  int                `bson:"attempts" json:"attempts"`
	IsUsed    bool               `bson:"is_used" json:"isUsed"`
	SendCount int                `bson:"send_count" json:"sendCount"`
	CreatedAt time.Time          `bson:"created_at" json:"createdAt"`
	UsedAt    *time.Time         `bson:"used_at,omitempty" json:"usedAt,omitempty"`
}

type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Phone        string             `bson:"phone" json:"phone"`
	Name         string             `bson:"name,omitempty" json:"name,omitempty"`
	Email        string             `bson:"email,omitempty" json:"email,omitempty"`
	PasswordHash string             `bson:"password_hash,omitempty" json:"-"`
	IsAdmin      bool               `bson:"is_admin" json:"isAdmin"`
	CreatedAt    time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updatedAt"`
}

type Product struct {
	ID                   primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name                 string             `bson:"name" json:"name"`
	Description          string             `bson:"description" json:"description"`
	Price                float64            `bson:"price" json:"price"`
	MRP                  float64            `bson:"mrp" json:"mrp"`
	Stock                int                `bson:"stock" json:"stock"`
	IsActive             bool               `bson:"is_active" json:"isActive"`
	RequiresPrescription bool               `bson:"requires_prescription" json:"requiresPrescription"`
	Images               []string           `bson:"images" json:"images"`
	CreatedAt            time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt            time.Time          `bson:"updated_at" json:"updatedAt"`
}

type CartItem struct {
	ProductID primitive.ObjectID `bson:"product_id" json:"productId"`
	Quantity  int                `bson:"quantity" json:"quantity"`
	Price     float64            `bson:"price" json:"price"`
	Name      string             `bson:"name" json:"name"`
	Image     string             `bson:"image,omitempty" json:"image,omitempty"`
}

// Cart es un documento por usuario (user_id único).
type Cart struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"user_id" json:"userId"`
	Items     []CartItem         `bson:"items" json:"items"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updatedAt"`
}

// StatusRecord es una entrada inmutable del historial de estados.
// El orden de inserción es el orden cronológico; nunca se reordena.
type StatusRecord struct {
	Status    string    `bson:"status" json:"status"`
	Note      string    `bson:"note,omitempty" json:"note,omitempty"`
	Actor     string    `bson:"actor" json:"actor"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

// Timeline mapea estado -> primera vez que se alcanzó.
type Timeline map[string]time.Time
