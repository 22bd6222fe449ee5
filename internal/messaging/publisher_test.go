package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"quest-bot/internal/models"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakePublisher struct {
	mu        sync.Mutex
	published []amqp.Publishing
	keys      []string
	err       error
}

func (f *fakePublisher) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.keys = append(f.keys, exchange+"/"+key)
	f.published = append(f.published, msg)
	return nil
}

func (f *fakePublisher) decode(t *testing.T, i int) models.OutboundMessage {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.Greater(t, len(f.published), i)
	var msg models.OutboundMessage
	require.NoError(t, json.Unmarshal(f.published[i].Body, &msg))
	return msg
}

func TestRabbitMQChannel_Publishes(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{}
	channel := newRabbitMQChannel(pub, "outbound", zap.NewNop())

	require.NoError(t, channel.SendTyping(ctx, 10))
	require.NoError(t, channel.SendText(ctx, 10, "<b>Привет</b>", models.SendOptions{ParseMode: models.ParseModeHTML, RemoveKeyboard: true}))
	require.NoError(t, channel.SendWithKeyboard(ctx, 10, "Выбор", models.Keyboard{Rows: [][]string{{"1", "2"}}, Resize: true}))

	assert.Equal(t, []string{"/outbound", "/outbound", "/outbound"}, pub.keys)
	assert.Equal(t, "application/json", pub.published[0].ContentType)
	assert.Equal(t, amqp.Persistent, pub.published[0].DeliveryMode)

	typing := pub.decode(t, 0)
	assert.Equal(t, models.OutboundTyping, typing.Type)
	assert.Equal(t, int64(10), typing.ChatID)

	text := pub.decode(t, 1)
	assert.Equal(t, models.OutboundText, text.Type)
	assert.Equal(t, "<b>Привет</b>", text.Text)
	assert.Equal(t, models.ParseModeHTML, text.ParseMode)
	assert.True(t, text.RemoveKeyboard)
	assert.Nil(t, text.Keyboard)

	withKeyboard := pub.decode(t, 2)
	require.NotNil(t, withKeyboard.Keyboard)
	assert.Equal(t, [][]string{{"1", "2"}}, withKeyboard.Keyboard.Rows)
	assert.True(t, withKeyboard.Keyboard.Resize)
}

func TestRabbitMQChannel_PublishError(t *testing.T) {
	pub := &fakePublisher{err: errors.New("channel closed")}
	channel := newRabbitMQChannel(pub, "outbound", zap.NewNop())

	err := channel.SendText(context.Background(), 1, "x", models.SendOptions{})
	assert.ErrorIs(t, err, pub.err)
	assert.NoError(t, channel.Close())
}
