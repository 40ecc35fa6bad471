// status.go
//
// Motor de historial de estados compartido por Order, Prescription y Return.
// Cada transición produce UN solo documento de update: $set del estado,
// $push al historial y $min sobre el timeline. Aplicado con un único
// UpdateOne, el cambio es todo-o-nada a nivel documento.
package status

import (
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"medshop-backend/internal/model"
)

var ErrInvalidStatus = errors.New("estado inválido")

// Set define los estados válidos de una entidad. No hay tabla de
// adyacencia: cualquier estado puede seguir a cualquier otro.
type Set struct {
	Entity  string
	allowed map[string]bool
}

func NewSet(entity string, states ...string) Set {
	m := make(map[string]bool, len(states))
	for _, s := range states {
		m[s] = true
	}
	return Set{Entity: entity, allowed: m}
}

func (s Set) Valid(state string) bool {
	return s.allowed[state]
}

// Estados de orden
const (
	OrderPending        = "pending"
	OrderConfirmed      = "confirmed"
	OrderProcessing     = "processing"
	OrderShipped        = "shipped"
	OrderOutForDelivery = "out_for_delivery"
	OrderDelivered      = "delivered"
	OrderCancelled      = "cancelled"
	OrderReturned       = "returned"
)

// Estados de receta
const (
	PrescriptionSubmitted      = "submitted"
	PrescriptionInReview       = "in_review"
	PrescriptionApproved       = "approved"
	PrescriptionRejected       = "rejected"
	PrescriptionOrderCreated   = "order_created"
	PrescriptionPreparing      = "preparing"
	PrescriptionOutForDelivery = "out_for_delivery"
	PrescriptionDelivered      = "delivered"
	PrescriptionCancelled      = "cancelled"
)

// Estados de devolución
const (
	ReturnPending         = "pending"
	ReturnApproved        = "approved"
	ReturnRejected        = "rejected"
	ReturnPickupScheduled = "pickup_scheduled"
	ReturnPickedUp        = "picked_up"
	ReturnRefundProcessed = "refund_processed"
	ReturnCompleted       = "completed"
	ReturnCancelled       = "cancelled"
)

var (
	Orders = NewSet("order",
		OrderPending, OrderConfirmed, OrderProcessing, OrderShipped,
		OrderOutForDelivery, OrderDelivered, OrderCancelled, OrderReturned)

	Prescriptions = NewSet("prescription",
		PrescriptionSubmitted, PrescriptionInReview, PrescriptionApproved,
		PrescriptionRejected, PrescriptionOrderCreated, PrescriptionPreparing,
		PrescriptionOutForDelivery, PrescriptionDelivered, PrescriptionCancelled)

	Returns = NewSet("return",
		ReturnPending, ReturnApproved, ReturnRejected, ReturnPickupScheduled,
		ReturnPickedUp, ReturnRefundProcessed, ReturnCompleted, ReturnCancelled)
)

// Transition arma el update atómico de una transición.
// $min sobre timeline.<estado> deja ganar a la primera escritura:
// reentrar al mismo estado no pisa el timestamp original.
func Transition(set Set, newStatus, actor, note string, now time.Time) (bson.M, error) {
	if !set.Valid(newStatus) {
		return nil, fmt.Errorf("%w: %q no es un estado de %s", ErrInvalidStatus, newStatus, set.Entity)
	}

	record := model.StatusRecord{
		Status:    newStatus,
		Note:      note,
		Actor:     actor,
		Timestamp: now,
	}

	return bson.M{
		"$set": bson.M{
			"status":     newStatus,
			"updated_at": now,
		},
		"$push": bson.M{
			"status_history": record,
		},
		"$min": bson.M{
			"timeline." + newStatus: now,
		},
	}, nil
}

// Initial construye el estado inicial de una entidad recién creada:
// historial con una sola entrada y timeline ya poblado.
func Initial(initial, actor, note string, now time.Time) ([]model.StatusRecord, model.Timeline) {
	history := []model.StatusRecord{{
		Status:    initial,
		Note:      note,
		Actor:     actor,
		Timestamp: now,
	}}
	return history, model.Timeline{initial: now}
}
