// publisher.go
package rabbit

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"medshop-backend/internal/model"
)

const (
	ExchangeOrderPlaced = "order_placed"
	ExchangeOrderStatus = "order_status"
)

// Publisher emite eventos de órdenes a exchanges fanout. Es opcional:
// un *Publisher nil no publica nada y no falla (los eventos son
// best-effort, nunca bloquean la request).
type Publisher struct {
	ch *amqp091.Channel
}

func Connect(url string) (*Publisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}

	for _, ex := range []string{ExchangeOrderPlaced, ExchangeOrderStatus} {
		if err := ch.ExchangeDeclare(ex, "fanout", true, false, false, false, nil); err != nil {
			return nil, err
		}
	}

	log.Println("🐰 Conectado a RabbitMQ, exchanges declarados")
	return &Publisher{ch: ch}, nil
}

type orderPlacedEvent struct {
	OrderID string       `json:"orderId"`
	UserID  string       `json:"userId"`
	Total   float64      `json:"total"`
	Items   []placedItem `json:"items"`
}

type placedItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type statusChangedEvent struct {
	Entity    string    `json:"entity"`
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	Actor     string    `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
}

func (p *Publisher) OrderPlaced(ctx context.Context, o *model.Order) {
	if p == nil {
		return
	}
	ev := orderPlacedEvent{
		OrderID: o.ID.Hex(),
		UserID:  o.UserID.Hex(),
		Total:   o.Total,
	}
	for _, it := range o.Items {
		ev.Items = append(ev.Items, placedItem{ProductID: it.ProductID.Hex(), Quantity: it.Quantity})
	}
	p.publish(ctx, ExchangeOrderPlaced, ev)
}

func (p *Publisher) StatusChanged(ctx context.Context, entity, id, newStatus, actor string) {
	if p == nil {
		return
	}
	p.publish(ctx, ExchangeOrderStatus, statusChangedEvent{
		Entity:    entity,
		ID:        id,
		Status:    newStatus,
		Actor:     actor,
		Timestamp: time.Now().UTC(),
	})
}

func (p *Publisher) publish(ctx context.Context, exchange string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		log.Println("❌ Error serializando evento:", err)
		return
	}
	err = p.ch.PublishWithContext(ctx, exchange, "", false, false, amqp091.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
	if err != nil {
		log.Println("❌ Error publicando en", exchange, ":", err)
	}
}
