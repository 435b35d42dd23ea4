// Package events publishes order lifecycle notifications and decodes them on
// the consuming side.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"storefront/internal/logging"
	"storefront/internal/models"

	"github.com/streadway/amqp"
)

// Routing keys on the orders exchange.
const (
	KeyOrderCreated       = "order.created"
	KeyOrderStatusChanged = "order.status_changed"
	KeyOrderPaid          = "order.paid"
)

// OrderEvent is the JSON body of every order message.
type OrderEvent struct {
	Type          string               `json:"type"`
	OrderID       string               `json:"orderId"`
	UserID        string               `json:"userId"`
	Status        models.OrderStatus   `json:"status"`
	PreviousState models.OrderStatus   `json:"previousStatus,omitempty"`
	PaymentStatus models.PaymentStatus `json:"paymentStatus"`
	Amount        int64                `json:"amount"`
	Actor         string               `json:"actor,omitempty"`
	OccurredAt    time.Time            `json:"occurredAt"`
}

// Publisher is satisfied by *rabbitmq.Client.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, body []byte) error
}

// Notifier turns order changes into events. A nil publisher disables it.
type Notifier struct {
	pub Publisher
	now func() time.Time
}

func NewNotifier(pub Publisher) *Notifier {
	return &Notifier{pub: pub, now: time.Now}
}

// OrderCreated announces a freshly placed order.
func (n *Notifier) OrderCreated(ctx context.Context, o *models.Order) {
	n.publish(ctx, KeyOrderCreated, o, "", o.UserID)
}

// StatusChanged announces a lifecycle transition performed by actor.
func (n *Notifier) StatusChanged(ctx context.Context, o *models.Order, from models.OrderStatus, actor string) {
	n.publish(ctx, KeyOrderStatusChanged, o, from, actor)
}

// Paid announces a confirmed online payment.
func (n *Notifier) Paid(ctx context.Context, o *models.Order) {
	n.publish(ctx, KeyOrderPaid, o, "", "")
}

// Publishing is best effort: the order is already committed, so failures are
// logged and swallowed.
func (n *Notifier) publish(ctx context.Context, key string, o *models.Order, from models.OrderStatus, actor string) {
	log := logging.FromContext(ctx)
	if n == nil || n.pub == nil {
		log.Debug("event publisher disabled, skipping", "routing_key", key, "order_id", o.ID)
		return
	}
	body, err := json.Marshal(OrderEvent{
		Type:          key,
		OrderID:       o.ID,
		UserID:        o.UserID,
		Status:        o.Status,
		PreviousState: from,
		PaymentStatus: o.PaymentStatus,
		Amount:        o.Amount,
		Actor:         actor,
		OccurredAt:    n.now().UTC(),
	})
	if err != nil {
		log.Error("failed to marshal order event", "routing_key", key, "order_id", o.ID, "error", err)
		return
	}
	if err := n.pub.Publish(ctx, key, body); err != nil {
		log.Warn("failed to publish order event", "routing_key", key, "order_id", o.ID, "error", err)
		return
	}
	log.Debug("published order event", "routing_key", key, "order_id", o.ID)
}

// Decode parses a delivery body into an OrderEvent.
func Decode(body []byte) (OrderEvent, error) {
	var ev OrderEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return OrderEvent{}, fmt.Errorf("decode order event: %w", err)
	}
	if ev.OrderID == "" {
		return OrderEvent{}, fmt.Errorf("decode order event: missing orderId")
	}
	return ev, nil
}

// LogHandler returns a consumer handler that logs every order event. It is
// the hook where customer notifications would be sent.
func LogHandler(ctx context.Context) func(amqp.Delivery) error {
	log := logging.FromContext(ctx)
	return func(d amqp.Delivery) error {
		ev, err := Decode(d.Body)
		if err != nil {
			return err
		}
		log.Info("order event",
			"routing_key", d.RoutingKey,
			"order_id", ev.OrderID,
			"user_id", ev.UserID,
			"status", ev.Status,
			"previous_status", ev.PreviousState,
			"payment_status", ev.PaymentStatus,
			"amount", ev.Amount,
			"actor", ev.Actor,
		)
		return nil
	}
}
