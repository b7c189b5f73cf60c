// Package notify publishes reminders for subscriptions that are due soon to an
// AMQP exchange.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"

	"github.com/gigurra/subscription-tracker/internal/recurrence"
	"github.com/gigurra/subscription-tracker/internal/tracker"
)

// DueReminder is the message body published for one upcoming charge.
type DueReminder struct {
	SubscriptionID string          `json:"subscription_id"`
	Name           string          `json:"name"`
	DueDate        recurrence.Date `json:"due_date"`
	DaysLeft       int             `json:"days_left"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	Status         string          `json:"conversion_status"`
}

// Reminders builds reminders for views due within days days of now.
// Amounts are in currency unless the conversion fell back to the original.
func Reminders(views []tracker.SubscriptionView, now time.Time, days int, currency string) []DueReminder {
	today := recurrence.DateOf(now)
	var out []DueReminder
	for _, v := range tracker.DueWithin(views, now, days) {
		cur := currency
		if v.Converted.IsFallback() {
			cur = v.Converted.From
		}
		out = append(out, DueReminder{
			SubscriptionID: v.Subscription.ID,
			Name:           v.Subscription.Name,
			DueDate:        *v.DueDate,
			DaysLeft:       int(v.DueDate.Sub(today.Time).Hours() / 24),
			Amount:         v.Converted.Amount,
			Currency:       cur,
			Status:         v.Converted.Status.String(),
		})
	}
	return out
}

// Channel is the part of *amqp091.Channel the publisher uses.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

// Publisher sends reminders to one exchange with one routing key.
type Publisher struct {
	ch         Channel
	conn       *amqp091.Connection
	exchange   string
	routingKey string
	log        *slog.Logger
	now        func() time.Time
}

// NewPublisher publishes on an already set up channel. A nil logger discards logs.
func NewPublisher(ch Channel, exchange, routingKey string, log *slog.Logger) *Publisher {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Publisher{ch: ch, exchange: exchange, routingKey: routingKey, log: log, now: time.Now}
}

// Dial connects to the broker, declares a durable direct exchange and a queue
// named after the routing key bound to it.
func Dial(url, exchange, routingKey string, log *slog.Logger) (*Publisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := setup(ch, exchange, routingKey); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	p := NewPublisher(ch, exchange, routingKey, log)
	p.conn = conn
	return p, nil
}

func setup(ch *amqp091.Channel, exchange, routingKey string) error {
	if err := ch.ExchangeDeclare(exchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	if _, err := ch.QueueDeclare(routingKey, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(routingKey, routingKey, exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// Publish sends one reminder as a persistent JSON message.
func (p *Publisher) Publish(ctx context.Context, r DueReminder) error {
	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal reminder: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = p.ch.PublishWithContext(ctx, p.exchange, p.routingKey, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Timestamp:    p.now(),
		MessageId:    r.SubscriptionID + "@" + r.DueDate.String(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish reminder for %q: %w", r.Name, err)
	}

	p.log.InfoContext(ctx, "published due reminder",
		"name", r.Name,
		"due_date", r.DueDate.String(),
		"exchange", p.exchange,
		"routing_key", p.routingKey)
	return nil
}

// PublishAll publishes reminders in order and stops at the first failure.
// It returns how many were sent.
func (p *Publisher) PublishAll(ctx context.Context, reminders []DueReminder) (int, error) {
	for i, r := range reminders {
		if err := p.Publish(ctx, r); err != nil {
			return i, err
		}
	}
	return len(reminders), nil
}

func (p *Publisher) Close() error {
	if p.ch != nil {
		p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
