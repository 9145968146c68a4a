package rabbitmq

import (
	"errors"
	"pulsewatch/config"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

func NewConnection(amqpCfg *config.AMQPChannelConfig, logger *zerolog.Logger) (*amqp091.Connection, error) {

	var conn *amqp091.Connection
	var err error
	for i := 0; i < 5; i++ {
		conn, err = amqp091.Dial(amqpCfg.BrokerURL)
		if err == nil {
			return conn, nil
		}
		time.Sleep(2 * time.Second)
		logger.Warn().Err(err).Int("attempt", i+1).Msg("rabbitmq reconnection attempt")
	}
	logger.Error().Err(err).Msg("failed to connect to rabbitmq after 5 attempts")
	return nil, errors.New("failed to connect to rabbitmq")
}

func SetupTopology(conn *amqp091.Connection, amqpCfg *config.AMQPChannelConfig) error {
	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(
		amqpCfg.ExchangeName,
		amqpCfg.ExchangeType,
		true, false, false, false, nil,
	); err != nil {
		return err
	}

	if _, err := ch.QueueDeclare(
		amqpCfg.QueueName,
		true, false, false, false, nil,
	); err != nil {
		return err
	}

	if err = ch.QueueBind(
		amqpCfg.QueueName,
		amqpCfg.RoutingKey,
		amqpCfg.ExchangeName,
		false, nil,
	); err != nil {
		return err
	}

	return nil
}
