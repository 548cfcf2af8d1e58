package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"companion-server/internal/domain"
	"companion-server/internal/service"
)

// turnTimeout ограничивает полную обработку одной задачи, включая вызов
// генерации.
const turnTimeout = 120 * time.Second

// TurnTaskConsumer читает задачи ходов из очереди и прогоняет их через
// сервис хода. Вынесен в отдельную структуру для тестируемости.
type TurnTaskConsumer struct {
	channel   *amqp.Channel
	queueName string
	turns     *service.TurnService
	publisher ResultPublisher
	logger    *zap.Logger
}

// NewTurnTaskConsumer создает консьюмер и объявляет очередь задач.
func NewTurnTaskConsumer(
	conn *amqp.Connection,
	queueName string,
	turns *service.TurnService,
	publisher ResultPublisher,
	logger *zap.Logger,
) (*TurnTaskConsumer, error) {
	channel, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть канал RabbitMQ: %w", err)
	}

	_, err = channel.QueueDeclare(queueName, true, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("не удалось объявить очередь %s: %w", queueName, err)
	}

	// Один воркер обрабатывает один ход за раз; параллелизм по парам
	// обеспечивается числом инстансов.
	if err := channel.Qos(1, 0, false); err != nil {
		return nil, fmt.Errorf("не удалось установить QoS: %w", err)
	}

	return &TurnTaskConsumer{
		channel:   channel,
		queueName: queueName,
		turns:     turns,
		publisher: publisher,
		logger:    logger.Named("TurnTaskConsumer"),
	}, nil
}

// StartConsuming блокирующе читает задачи до закрытия канала или отмены ctx.
func (c *TurnTaskConsumer) StartConsuming(ctx context.Context) error {
	deliveries, err := c.channel.Consume(
		c.queueName,
		"",    // consumer tag
		false, // autoAck: подтверждаем вручную после обработки
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,
	)
	if err != nil {
		return fmt.Errorf("не удалось начать потребление из %s: %w", c.queueName, err)
	}

	c.logger.Info("turn task consumer started", zap.String("queue", c.queueName))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				return errors.New("канал доставки закрыт")
			}
			c.handleDelivery(ctx, delivery)
		}
	}
}

// handleDelivery обрабатывает одну задачу. Политика подтверждений:
// некорректная задача - Ack (повтор бессмысленен); недоступность генерации -
// Nack с requeue (ход безопасно повторить, состояние не мутировало);
// остальные ошибки - Nack без requeue.
func (c *TurnTaskConsumer) handleDelivery(ctx context.Context, delivery amqp.Delivery) {
	var task TurnTaskPayload
	if err := json.Unmarshal(delivery.Body, &task); err != nil {
		c.logger.Error("невозможно распарсить задачу хода", zap.Error(err))
		_ = delivery.Ack(false)
		return
	}

	userID, errU := uuid.Parse(task.UserID)
	characterID, errC := uuid.Parse(task.CharacterID)
	if errU != nil || errC != nil {
		c.logger.Error("невалидные ID в задаче хода",
			zap.String("taskID", task.TaskID),
			zap.String("userID", task.UserID),
			zap.String("characterID", task.CharacterID))
		_ = delivery.Ack(false)
		return
	}

	turnCtx, cancel := context.WithTimeout(ctx, turnTimeout)
	defer cancel()

	result, err := c.turns.ProcessTurn(turnCtx, domain.TurnRequest{
		UserID:      userID,
		CharacterID: characterID,
		Message:     task.Message,
		TriggerType: task.TriggerType,
	})
	if err != nil {
		if errors.Is(err, domain.ErrGenerationUnavailable) {
			// Состояние не тронуто: задачу можно вернуть в очередь.
			c.logger.Warn("генерация недоступна, задача возвращена в очередь",
				zap.String("taskID", task.TaskID), zap.Error(err))
			_ = delivery.Nack(false, true)
			return
		}
		c.logger.Error("ошибка обработки хода",
			zap.String("taskID", task.TaskID), zap.Error(err))
		_ = delivery.Nack(false, false)
		return
	}

	payload := TurnResultPayload{
		TaskID:          task.TaskID,
		UserID:          task.UserID,
		CharacterID:     task.CharacterID,
		ReplyText:       result.ReplyText,
		EmotionScore:    result.NewState.EmotionScore,
		EmotionState:    result.NewState.EmotionState,
		Level:           result.NewState.Level,
		TriggeredEvents: result.TriggeredEvents,
		Refused:         result.Refused,
		RefusalReason:   result.RefusalReason,
	}
	if err := c.publisher.PublishTurnResult(turnCtx, payload); err != nil {
		c.logger.Error("не удалось опубликовать результат хода",
			zap.String("taskID", task.TaskID), zap.Error(err))
		// Ход уже закоммичен: Nack с requeue привел бы к двойной обработке.
	}

	_ = delivery.Ack(false)
}

// Close закрывает канал консьюмера.
func (c *TurnTaskConsumer) Close() error {
	return c.channel.Close()
}
