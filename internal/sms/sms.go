// sms.go
package sms

import (
	"context"
	"log"

	"github.com/google/uuid"
)

// Result identifica el envío para auditoría.
type Result struct {
	Provider  string `json:"provider"`
	MessageID string `json:"messageId"`
}

// Sender es el colaborador de SMS. Falla con error si el proveedor
// no pudo entregar el mensaje.
type Sender interface {
	Send(ctx context.Context, phone, message string) (*Result, error)
}

// ConsoleSender imprime el mensaje en el log. Solo para desarrollo:
// el código OTP queda visible en la consola.
type ConsoleSender struct{}

func NewConsoleSender() *ConsoleSender {
	return &ConsoleSender{}
}

func (s *ConsoleSender) Send(ctx context.Context, phone, message string) (*Result, error) {
	log.Printf("[SMS console] para %s: %s", phone, message)
	return &Result{Provider: "console", MessageID: uuid.NewString()}, nil
}
