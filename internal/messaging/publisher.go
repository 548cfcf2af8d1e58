package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// ResultPublisher публикует результаты ходов для шлюза.
type ResultPublisher interface {
	PublishTurnResult(ctx context.Context, payload TurnResultPayload) error
}

// Compile-time check
var _ ResultPublisher = (*RabbitMQResultPublisher)(nil)

// RabbitMQResultPublisher - публикация результатов в очередь RabbitMQ.
type RabbitMQResultPublisher struct {
	channel   *amqp.Channel
	queueName string
	logger    *zap.Logger
}

// NewRabbitMQResultPublisher создает паблишер и объявляет очередь.
func NewRabbitMQResultPublisher(conn *amqp.Connection, queueName string, logger *zap.Logger) (*RabbitMQResultPublisher, error) {
	channel, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть канал RabbitMQ: %w", err)
	}

	_, err = channel.QueueDeclare(
		queueName,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("не удалось объявить очередь %s: %w", queueName, err)
	}

	return &RabbitMQResultPublisher{
		channel:   channel,
		queueName: queueName,
		logger:    logger.Named("ResultPublisher"),
	}, nil
}

// PublishTurnResult сериализует и публикует результат хода.
func (p *RabbitMQResultPublisher) PublishTurnResult(ctx context.Context, payload TurnResultPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("ошибка сериализации результата хода: %w", err)
	}

	err = p.channel.PublishWithContext(ctx,
		"",          // exchange
		p.queueName, // routing key
		false,       // mandatory
		false,       // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("ошибка публикации результата хода: %w", err)
	}

	p.logger.Debug("turn result published", zap.String("taskID", payload.TaskID))
	return nil
}

// Close закрывает канал.
func (p *RabbitMQResultPublisher) Close() error {
	return p.channel.Close()
}
