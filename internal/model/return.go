// return.go
package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Return struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ReturnCode        string             `bson:"return_code" json:"returnCode"`
	OrderID           primitive.ObjectID `bson:"order_id" json:"orderId"`
	UserID            primitive.ObjectID `bson:"user_id" json:"userId"`
	Items             []OrderItem        `bson:"items" json:"items"`
	Reason            string             `bson:"reason" json:"reason"`
	ReasonDescription string             `bson:"reason_description,omitempty" json:"reasonDescription,omitempty"`
	RefundAmount      float64            `bson:"refund_amount" json:"refundAmount"`
	Status            string             `bson:"status" json:"status"`
	StatusHistory     []StatusRecord     `bson:"status_history" json:"statusHistory"`
	Timeline          Timeline           `bson:"timeline" json:"timeline"`
	RefundedAt        *time.Time         `bson:"refunded_at,omitempty" json:"refundedAt,omitempty"`
	CreatedAt         time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt         time.Time          `bson:"updated_at" json:"updatedAt"`
}
