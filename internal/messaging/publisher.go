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

// amqpPublisher - часть *amqp.Channel, нужная для публикации.
type amqpPublisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// RabbitMQChannel публикует исходящие сообщения чата в очередь, которую читает шлюз мессенджера.
type RabbitMQChannel struct {
	mu        sync.Mutex
	publisher amqpPublisher
	closer    func() error
	queueName string
	logger    *zap.Logger
}

var _ interfaces.MessagingChannel = (*RabbitMQChannel)(nil)

// NewRabbitMQChannel открывает канал и объявляет очередь исходящих сообщений.
func NewRabbitMQChannel(conn *amqp.Connection, queueName string, logger *zap.Logger) (*RabbitMQChannel, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("publisher: не удалось открыть канал: %w", err)
	}
	if _, err := declareQueue(ch, queueName); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("publisher: %w", err)
	}
	logger.Info("Outbound chat queue declared", zap.String("queue", queueName))

	c := newRabbitMQChannel(ch, queueName, logger)
	c.closer = ch.Close
	return c, nil
}

func newRabbitMQChannel(publisher amqpPublisher, queueName string, logger *zap.Logger) *RabbitMQChannel {
	return &RabbitMQChannel{
		publisher: publisher,
		queueName: queueName,
		logger:    logger.Named("RabbitMQChannel"),
	}
}

func (c *RabbitMQChannel) SendText(ctx context.Context, chatID int64, text string, opts models.SendOptions) error {
	return c.publish(ctx, models.NewTextMessage(chatID, text, opts))
}

func (c *RabbitMQChannel) SendTyping(ctx context.Context, chatID int64) error {
	return c.publish(ctx, models.NewTypingMessage(chatID))
}

func (c *RabbitMQChannel) SendWithKeyboard(ctx context.Context, chatID int64, text string, keyboard models.Keyboard) error {
	return c.publish(ctx, models.NewKeyboardMessage(chatID, text, keyboard))
}

func (c *RabbitMQChannel) publish(ctx context.Context, msg models.OutboundMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal outbound message: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	err = c.publisher.PublishWithContext(ctx,
		"",          // exchange
		c.queueName, // routing key
		false,       // mandatory
		false,       // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		c.logger.Error("Failed to publish outbound message",
			zap.Int64("chat_id", msg.ChatID),
			zap.String("type", string(msg.Type)),
			zap.Error(err),
		)
		return fmt.Errorf("failed to publish outbound message to %d: %w", msg.ChatID, err)
	}
	c.logger.Debug("Outbound message published", zap.Int64("chat_id", msg.ChatID), zap.String("type", string(msg.Type)))
	return nil
}

// Close закрывает канал RabbitMQ.
func (c *RabbitMQChannel) Close() error {
	if c.closer != nil {
		return c.closer()
	}
	return nil
}
