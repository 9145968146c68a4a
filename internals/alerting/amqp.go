package alerting

import (
	"context"
	"encoding/json"
	"pulsewatch/pkg/apperror"
	"pulsewatch/pkg/rabbitmq"

	"github.com/rs/zerolog"
)

// AMQPChannel publishes alerts to a message broker so downstream consumers
// (paging systems, audit pipelines) can pick them up.
type AMQPChannel struct {
	publisher *rabbitmq.Publisher
	logger    *zerolog.Logger
}

func NewAMQPChannel(publisher *rabbitmq.Publisher, logger *zerolog.Logger) *AMQPChannel {
	return &AMQPChannel{publisher: publisher, logger: logger}
}

func (c *AMQPChannel) Name() string { return "amqp" }

func (c *AMQPChannel) ValidateConfig() error {
	if c.publisher == nil {
		return &apperror.Error{Kind: apperror.InvalidInput, Op: "alerting.amqp", Message: "publisher is not configured"}
	}
	return nil
}

func (c *AMQPChannel) Send(ctx context.Context, p Payload) error {
	const op string = "alerting.amqp.send"

	if err := c.ValidateConfig(); err != nil {
		return err
	}

	body, err := json.Marshal(p)
	if err != nil {
		return &apperror.Error{Kind: apperror.Internal, Op: op, Err: err}
	}

	if err := c.publisher.Publish(ctx, body); err != nil {
		return &apperror.Error{Kind: apperror.Dependency, Op: op, Err: err}
	}

	c.logger.Info().Int64("alert_id", p.AlertID).Msg("amqp alert published")
	return nil
}
