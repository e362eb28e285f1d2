package amqp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp091 "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vishalahire/banayan-task-tracker/internal/app/reminder"
	domain "github.com/vishalahire/banayan-task-tracker/internal/domain/reminder"
	alexerrors "github.com/vishalahire/banayan-task-tracker/internal/shared/errors"
)

type published struct {
	exchange string
	key      string
	msg      amqp091.Publishing
	deadline bool
}

type fakeChannel struct {
	declared   []string
	published  []published
	declareErr error
	publishErr error
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, durable, _, _, _ bool, _ amqp091.Table) error {
	if f.declareErr != nil {
		return f.declareErr
	}
	f.declared = append(f.declared, name+"/"+kind)
	return nil
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, _, _ bool, msg amqp091.Publishing) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	_, hasDeadline := ctx.Deadline()
	f.published = append(f.published, published{exchange: exchange, key: key, msg: msg, deadline: hasDeadline})
	return nil
}

func testNotification() reminder.Notification {
	due := time.Date(2026, 4, 2, 15, 0, 0, 0, time.UTC)
	return reminder.Notification{
		TaskID:     "task-1",
		TaskTitle:  "Pay invoice",
		DueDate:    due,
		OwnerEmail: "ana@example.com",
		Type:       domain.TypeOneHour,
		Message:    "Reminder: Pay invoice is due in 45m.",
		ComposedAt: due.Add(-45 * time.Minute),
	}
}

func TestDeliverPublishesJSON(t *testing.T) {
	ch := &fakeChannel{}
	d, err := NewDeliverer(ch, Config{})
	require.NoError(t, err)
	assert.Equal(t, []string{"reminders/topic"}, ch.declared)

	n := testNotification()
	require.NoError(t, d.Deliver(context.Background(), n))
	require.Len(t, ch.published, 1)

	p := ch.published[0]
	assert.Equal(t, DefaultExchange, p.exchange)
	assert.Equal(t, DefaultRoutingKey, p.key)
	assert.True(t, p.deadline)
	assert.Equal(t, "application/json", p.msg.ContentType)
	assert.Equal(t, amqp091.Persistent, p.msg.DeliveryMode)
	assert.Equal(t, "task-1:1Hour:1775142000000000000", p.msg.MessageId)
	assert.Equal(t, "1Hour", p.msg.Headers["reminder_type"])

	var decoded reminder.Notification
	require.NoError(t, json.Unmarshal(p.msg.Body, &decoded))
	assert.Equal(t, n.Message, decoded.Message)
	assert.Equal(t, n.OwnerEmail, decoded.OwnerEmail)
}

func TestMessageIDMatchesKeyPrecision(t *testing.T) {
	n := testNotification()
	base := messageID(n)

	n.DueDate = n.DueDate.Add(789 * time.Nanosecond).In(time.FixedZone("UTC+2", 2*60*60))
	assert.Equal(t, base, messageID(n))

	n.DueDate = n.DueDate.Add(time.Microsecond)
	assert.NotEqual(t, base, messageID(n))
}

func TestDeliverReportsPublishFailure(t *testing.T) {
	ch := &fakeChannel{}
	d, err := NewDeliverer(ch, Config{Exchange: "custom", RoutingKey: "k"})
	require.NoError(t, err)

	ch.publishErr = errors.New("channel/connection is not open")
	err = d.Deliver(context.Background(), testNotification())
	require.Error(t, err)
	assert.True(t, alexerrors.IsDeliveryFailure(err))
	assert.ErrorContains(t, err, "publish reminder for task task-1")
}

func TestNewDelivererErrors(t *testing.T) {
	_, err := NewDeliverer(nil, Config{})
	assert.Error(t, err)

	_, err = NewDeliverer(&fakeChannel{declareErr: errors.New("access refused")}, Config{Exchange: "x"})
	assert.ErrorContains(t, err, "declare exchange x")
}
