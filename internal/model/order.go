// order.go
package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	PaymentCOD    = "COD"
	PaymentOnline = "ONLINE"
	PaymentWallet = "WALLET"
)

type OrderItem struct {
	ProductID primitive.ObjectID `bson:"product_id" json:"productId"`
	Name      string             `bson:"name" json:"name"`
	Image     string             `bson:"image,omitempty" json:"image,omitempty"`
	Price     float64            `bson:"price" json:"price"`
	Quantity  int                `bson:"quantity" json:"quantity"`
}

// ShippingAddress es un snapshot: cambios posteriores en el perfil
// del usuario no afectan órdenes ya creadas.
type ShippingAddress struct {
	FullName     string `bson:"full_name" json:"fullName"`
	Phone        string `bson:"phone" json:"phone"`
	AddressLine1 string `bson:"address_line1" json:"addressLine1"`
	AddressLine2 string `bson:"address_line2,omitempty" json:"addressLine2,omitempty"`
	City         string `bson:"city" json:"city"`
	State        string `bson:"state" json:"state"`
	PostalCode   string `bson:"postal_code" json:"postalCode"`
	Country      string `bson:"country" json:"country"`
}

type Order struct {
	ID              primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	UserID          primitive.ObjectID  `bson:"user_id" json:"userId"`
	Items           []OrderItem         `bson:"items" json:"items"`
	ShippingAddress ShippingAddress     `bson:"shipping_address" json:"shippingAddress"`
	PaymentMethod   string              `bson:"payment_method" json:"paymentMethod"`
	Subtotal        float64             `bson:"subtotal" json:"subtotal"`
	DeliveryFee     float64             `bson:"delivery_fee" json:"deliveryFee"`
	Taxes           float64             `bson:"taxes" json:"taxes"`
	Total           float64             `bson:"total" json:"total"`
	Status          string              `bson:"status" json:"status"`
	StatusHistory   []StatusRecord      `bson:"status_history" json:"statusHistory"`
	Timeline        Timeline            `bson:"timeline" json:"timeline"`
	PrescriptionURL string              `bson:"prescription_url,omitempty" json:"prescriptionUrl,omitempty"`
	PrescriptionID  *primitive.ObjectID `bson:"prescription_id,omitempty" json:"prescriptionId,omitempty"`
	StockReleasedAt *time.Time          `bson:"stock_released_at,omitempty" json:"stockReleasedAt,omitempty"`
	CreatedAt       time.Time           `bson:"created_at" json:"createdAt"`
	UpdatedAt       time.Time           `bson:"updated_at" json:"updatedAt"`
}
