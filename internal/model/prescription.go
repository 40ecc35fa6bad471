// prescription.go
package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FileRef es lo que devuelve el colaborador de almacenamiento.
type FileRef struct {
	URL      string `bson:"url" json:"url"`
	PublicID string `bson:"public_id,omitempty" json:"publicId,omitempty"`
	Storage  string `bson:"storage" json:"storage"`
	Filename string `bson:"filename,omitempty" json:"filename,omitempty"`
}

type Prescription struct {
	ID            primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	UserID        primitive.ObjectID  `bson:"user_id" json:"userId"`
	File          FileRef             `bson:"file" json:"file"`
	Status        string              `bson:"status" json:"status"`
	StatusHistory []StatusRecord      `bson:"status_history" json:"statusHistory"`
	Timeline      Timeline            `bson:"timeline" json:"timeline"`
	OrderID       *primitive.ObjectID `bson:"order_id,omitempty" json:"orderId,omitempty"`
	Note          string              `bson:"note,omitempty" json:"note,omitempty"`
	CreatedAt     time.Time           `bson:"created_at" json:"createdAt"`
	UpdatedAt     time.Time           `bson:"updated_at" json:"updatedAt"`
}
