// dto.go
package dto

// --- Auth ---

type SendOtpRequest struct {
	Phone string `json:"phone" binding:"required"`
}

type VerifyOtpRequest struct {
	Phone string `json:"phone" binding:"required"`
	Otp   string `json:"otp" binding:"required"`
}

type ResetPasswordRequest struct {
	Phone       string `json:"phone" binding:"required"`
	Otp         string `json:"otp" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

type UpdateProfileRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// --- Cart ---

type CartItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
}

type CartUpdateRequest struct {
	Quantity int `json:"quantity" binding:"min=0"`
}

// --- Orders ---

type ShippingAddressRequest struct {
	FullName     string `json:"fullName"`
	Phone        string `json:"phone"`
	AddressLine1 string `json:"addressLine1"`
	AddressLine2 string `json:"addressLine2"`
	City         string `json:"city"`
	State        string `json:"state"`
	PostalCode   string `json:"postalCode"`
	Country      string `json:"country"`
}

type OrderItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
}

// PlaceOrderRequest llega como JSON directo, o como campo "data" de un
// multipart cuando la receta viaja adjunta. Si Total viene > 0 los
// montos del cliente se persisten tal cual (sin recomputación).
type PlaceOrderRequest struct {
	ShippingAddress ShippingAddressRequest `json:"shippingAddress"`
	PaymentMethod   string                 `json:"paymentMethod"`
	Items           []OrderItemRequest     `json:"items"`
	PrescriptionURL string                 `json:"prescriptionUrl"`
	PrescriptionID  string                 `json:"prescriptionId"`
	Subtotal        float64                `json:"subtotal"`
	DeliveryFee     float64                `json:"deliveryFee"`
	Taxes           float64                `json:"taxes"`
	Total           float64                `json:"total"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Note   string `json:"note"`
}

// --- Returns ---

type ReturnItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
}

type CreateReturnRequest struct {
	OrderID           string              `json:"orderId" binding:"required"`
	Items             []ReturnItemRequest `json:"items" binding:"required,min=1,dive"`
	Reason            string              `json:"reason" binding:"required"`
	ReasonDescription string              `json:"reasonDescription"`
}

// --- Products (admin) ---

type ProductRequest struct {
	Name                 string   `json:"name" binding:"required"`
	Description          string   `json:"description"`
	Price                float64  `json:"price" binding:"required,gt=0"`
	MRP                  float64  `json:"mrp"`
	Stock                int      `json:"stock" binding:"min=0"`
	IsActive             *bool    `json:"isActive"`
	RequiresPrescription bool     `json:"requiresPrescription"`
	Images               []string `json:"images"`
}

type ProductUpdateRequest struct {
	Name                 *string  `json:"name"`
	Description          *string  `json:"description"`
	Price                *float64 `json:"price"`
	MRP                  *float64 `json:"mrp"`
	Stock                *int     `json:"stock"`
	IsActive             *bool    `json:"isActive"`
	RequiresPrescription *bool    `json:"requiresPrescription"`
	Images               []string `json:"images"`
}
