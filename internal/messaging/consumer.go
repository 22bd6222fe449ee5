package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"quest-bot/internal/interfaces"
	"quest-bot/internal/models"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	consumerTag         = "quest-bot-consumer"
	handleUpdateTimeout = 15 * time.Second
)

// UpdateConsumer читает входящие сообщения пользователей из очереди и передает их обработчику.
type UpdateConsumer struct {
	conn      *amqp.Connection
	queueName string
	handler   interfaces.UpdateHandler
	logger    *zap.Logger
	stopChan  chan struct{}
	stopOnce  sync.Once
	// done закрывается, когда StartConsuming вернулся и последнее сообщение обработано.
	done     chan struct{}
	doneOnce sync.Once
}

// NewUpdateConsumer создает консьюмер входящих сообщений.
func NewUpdateConsumer(conn *amqp.Connection, queueName string, handler interfaces.UpdateHandler, logger *zap.Logger) *UpdateConsumer {
	return &UpdateConsumer{
		conn:      conn,
		queueName: queueName,
		handler:   handler,
		logger:    logger.Named("UpdateConsumer"),
		stopChan:  make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// StartConsuming слушает очередь до Stop или закрытия канала.
func (c *UpdateConsumer) StartConsuming(ctx context.Context) error {
	defer c.doneOnce.Do(func() { close(c.done) })

	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("consumer: не удалось открыть канал RabbitMQ: %w", err)
	}
	defer ch.Close()

	q, err := declareQueue(ch, c.queueName)
	if err != nil {
		return fmt.Errorf("consumer: %w", err)
	}

	// По одному сообщению: обновления одного чата обрабатываются по порядку.
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("consumer: не удалось установить QoS: %w", err)
	}

	msgs, err := ch.Consume(
		q.Name,
		consumerTag,
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("consumer: не удалось зарегистрировать консьюмера: %w", err)
	}
	c.logger.Info("Consumer started", zap.String("queue", q.Name))

	for {
		select {
		case d, ok := <-msgs:
			if !ok {
				c.logger.Info("RabbitMQ delivery channel closed")
				return nil
			}
			c.handleDelivery(ctx, d)
		case <-c.stopChan:
			c.logger.Info("Consumer stop signal received")
			return nil
		case <-ctx.Done():
			c.logger.Info("Consumer context cancelled")
			return nil
		}
	}
}

// handleDelivery разбирает сообщение, передает его обработчику и подтверждает.
// Неразборчивые сообщения отбрасываются без повтора.
func (c *UpdateConsumer) handleDelivery(ctx context.Context, d amqp.Delivery) {
	var update models.InboundUpdate
	if err := json.Unmarshal(d.Body, &update); err != nil {
		c.logger.Warn("Failed to unmarshal inbound update, nack", zap.Uint64("delivery_tag", d.DeliveryTag), zap.Error(err))
		_ = d.Nack(false, false)
		return
	}
	if update.ChatID == 0 {
		c.logger.Warn("Inbound update without chat_id, nack", zap.Uint64("delivery_tag", d.DeliveryTag))
		_ = d.Nack(false, false)
		return
	}

	handleCtx, cancel := context.WithTimeout(ctx, handleUpdateTimeout)
	defer cancel()
	if err := c.handler.HandleUpdate(handleCtx, update); err != nil {
		// Повторная доставка продублирует ответы в чате.
		c.logger.Error("Failed to handle inbound update",
			zap.Int64("chat_id", update.ChatID),
			zap.String("update_id", update.UpdateID),
			zap.Error(err),
		)
	}
	_ = d.Ack(false)
}

// Wait ждет, пока StartConsuming завершится вместе с текущим сообщением, но не дольше ctx.
func (c *UpdateConsumer) Wait(ctx context.Context) error {
	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("ошибка ожидания остановки консьюмера: %w", ctx.Err())
	}
}

// Stop останавливает консьюмер.
func (c *UpdateConsumer) Stop() {
	c.stopOnce.Do(func() {
		c.logger.Info("Stopping consumer...")
		close(c.stopChan)
	})
}
