// Package amqp publishes reminder notifications to a message broker so a
// downstream mailer can send them.
package amqp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	amqp091 "github.com/rabbitmq/amqp091-go"

	"github.com/vishalahire/banayan-task-tracker/internal/app/reminder"
	domain "github.com/vishalahire/banayan-task-tracker/internal/domain/reminder"
	alexerrors "github.com/vishalahire/banayan-task-tracker/internal/shared/errors"
	"github.com/vishalahire/banayan-task-tracker/internal/shared/logging"
)

const (
	DefaultExchange       = "reminders"
	DefaultRoutingKey     = "reminder.due"
	DefaultPublishTimeout = 5 * time.Second
)

// channel is the subset of *amqp091.Channel the deliverer uses.
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
}

// Config selects where notifications are published.
type Config struct {
	Exchange       string
	RoutingKey     string
	PublishTimeout time.Duration
}

// Deliverer implements reminder.Deliverer by publishing one persistent JSON
// message per notification.
type Deliverer struct {
	ch     channel
	config Config
	logger logging.Logger
}

var _ reminder.Deliverer = (*Deliverer)(nil)

// NewDeliverer declares the exchange and returns a deliverer bound to it.
func NewDeliverer(ch channel, cfg Config) (*Deliverer, error) {
	if ch == nil {
		return nil, errors.New("amqp deliverer requires channel")
	}
	if strings.TrimSpace(cfg.Exchange) == "" {
		cfg.Exchange = DefaultExchange
	}
	if strings.TrimSpace(cfg.RoutingKey) == "" {
		cfg.RoutingKey = DefaultRoutingKey
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = DefaultPublishTimeout
	}
	if err := ch.ExchangeDeclare(cfg.Exchange, amqp091.ExchangeTopic, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare exchange %s: %w", cfg.Exchange, err)
	}
	return &Deliverer{ch: ch, config: cfg, logger: logging.NewComponentLogger("AMQPDeliverer")}, nil
}

// Deliver publishes n. Broker errors are reported as delivery failures.
func (d *Deliverer) Deliver(ctx context.Context, n reminder.Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return alexerrors.NewDeliveryError(err, "encode reminder for task "+n.TaskID)
	}

	ctx, cancel := context.WithTimeout(ctx, d.config.PublishTimeout)
	defer cancel()

	msg := amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    messageID(n),
		Timestamp:    n.ComposedAt,
		Headers: amqp091.Table{
			"reminder_type": string(n.Type),
			"task_id":       n.TaskID,
		},
		Body: body,
	}
	if err := d.ch.PublishWithContext(ctx, d.config.Exchange, d.config.RoutingKey, false, false, msg); err != nil {
		d.logger.Warn("publish failed for task %s: %v", n.TaskID, err)
		return alexerrors.NewDeliveryError(err, "publish reminder for task "+n.TaskID)
	}
	d.logger.Debug("published %s reminder for task %s", n.Type, n.TaskID)
	return nil
}

// messageID is stable per idempotency key so consumers can deduplicate.
func messageID(n reminder.Notification) string {
	return fmt.Sprintf("%s:%s:%d", n.TaskID, n.Type, domain.NormalizeDueDate(n.DueDate).UnixNano())
}

// Session owns a broker connection and the channel opened on it.
type Session struct {
	conn *amqp091.Connection
	ch   *amqp091.Channel
}

// Dial connects to url and opens a channel.
func Dial(url string) (*Session, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}
	return &Session{conn: conn, ch: ch}, nil
}

// Channel returns the session channel.
func (s *Session) Channel() *amqp091.Channel {
	return s.ch
}

// Close closes the channel and the connection.
func (s *Session) Close() error {
	return errors.Join(s.ch.Close(), s.conn.Close())
}
