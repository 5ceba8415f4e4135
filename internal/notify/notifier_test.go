package notify

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/akriventsev/fulfillment/internal/bus"
	"github.com/akriventsev/fulfillment/internal/core"
	"github.com/akriventsev/fulfillment/internal/domain"
	"github.com/akriventsev/fulfillment/internal/events"
)

type capturingSender struct {
	sent []Notification
}

func (s *capturingSender) Send(_ context.Context, n Notification) error {
	s.sent = append(s.sent, n)
	return nil
}

func TestNotifier_OrderConfirmed(t *testing.T) {
	money, err := domain.NewMoney("42.00", "EUR")
	if err != nil {
		t.Fatalf("NewMoney failed: %v", err)
	}

	order := domain.Order{
		ID:            5,
		CustomerID:    "c-1",
		Amount:        money,
		PaymentMethod: domain.PaymentMethodCard,
		Status:        domain.OrderStatusConfirmed,
		CreatedAt:     time.Now().UTC(),
	}
	customer := domain.Customer{ID: "c-1", FirstName: "Анна", LastName: "Иванова", Email: "anna@example.com"}

	env, err := events.NewOrderConfirmed(order, customer, "")
	if err != nil {
		t.Fatalf("NewOrderConfirmed failed: %v", err)
	}
	data, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	sender := &capturingSender{}
	notifier := NewNotifier(sender).WithLogger(core.NopLogger{})

	err = notifier.HandleOrderConfirmed(context.Background(), &bus.Message{
		Topic: events.TopicOrderConfirmed,
		Data:  data,
	})
	if err != nil {
		t.Fatalf("HandleOrderConfirmed failed: %v", err)
	}

	if len(sender.sent) != 1 {
		t.Fatalf("Expected 1 notification, got %d", len(sender.sent))
	}
	notification := sender.sent[0]
	if notification.Recipient != "anna@example.com" {
		t.Errorf("Expected recipient anna@example.com, got %s", notification.Recipient)
	}
	if !strings.Contains(notification.Body, "42.00") {
		t.Errorf("Expected amount in body, got %s", notification.Body)
	}
}

func TestNotifier_MalformedMessageIsFatal(t *testing.T) {
	notifier := NewNotifier(&capturingSender{}).WithLogger(core.NopLogger{})

	err := notifier.HandlePaymentConfirmed(context.Background(), &bus.Message{
		Topic: events.TopicPaymentConfirmed,
		Data:  []byte("garbage"),
	})
	if err == nil {
		t.Fatal("Expected error for malformed message")
	}
	if !core.IsFatal(err) {
		t.Errorf("Expected FATAL kind, got %q", core.KindOf(err))
	}
}
