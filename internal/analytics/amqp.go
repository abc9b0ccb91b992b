package analytics

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/reactiveburst/rbc-engine/internal/errors"
)

const publishTimeout = 10 * time.Second

// AMQPConfig contains configuration for the AMQP emitter.
type AMQPConfig struct {
	URL       string
	QueueName string
}

// Validate validates the AMQPConfig.
func (cfg *AMQPConfig) Validate() error {
	if cfg == nil {
		return errors.InvalidArgument("config cannot be nil")
	}
	if cfg.URL == "" {
		return errors.InvalidArgument("URL cannot be empty")
	}
	if cfg.QueueName == "" {
		return errors.InvalidArgument("queue name cannot be empty")
	}
	return nil
}

type amqpEmitter struct {
	conn      *amqp.Connection
	channel   *amqp.Channel
	queueName string
}

// NewAMQP connects to the broker and declares the durable analytics queue.
func NewAMQP(cfg *AMQPConfig) (Emitter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to connect to broker")
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, errors.Wrapf(err, "failed to open channel")
	}

	if _, err := ch.QueueDeclare(cfg.QueueName, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, errors.Wrapf(err, "failed to declare queue %s", cfg.QueueName)
	}

	return &amqpEmitter{conn: conn, channel: ch, queueName: cfg.QueueName}, nil
}

func (e *amqpEmitter) Emit(ctx context.Context, summary *SessionSummary) error {
	if summary == nil {
		return errors.InvalidArgument("summary cannot be nil")
	}

	body, err := json.Marshal(summary)
	if err != nil {
		return errors.Wrapf(err, "failed to marshal session summary")
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = e.channel.PublishWithContext(ctx,
		"",          // default exchange
		e.queueName, // routing key
		false,       // mandatory
		false,       // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
			Timestamp:    time.Now(),
			AppId:        "rbc-engine",
		},
	)
	if err != nil {
		slog.ErrorContext(ctx, "failed to publish session summary",
			"session_id", summary.SessionID,
			"queue", e.queueName,
			"error", err.Error())
		return errors.Wrapf(err, "failed to publish session summary")
	}
	return nil
}

func (e *amqpEmitter) Close() error {
	if e.channel != nil {
		_ = e.channel.Close()
	}
	if e.conn != nil {
		return e.conn.Close()
	}
	return nil
}
