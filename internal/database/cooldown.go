package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"quest-bot/internal/interfaces"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const cooldownKeyPrefix = "quest:cooldown:"

// RedisCooldown хранит кулдауны чатов в Redis, чтобы их разделяли все экземпляры бота.
type RedisCooldown struct {
	client   redis.Cmdable
	duration time.Duration
	logger   *zap.Logger
}

var _ interfaces.Cooldown = (*RedisCooldown)(nil)

// NewRedisCooldown создает кулдаун на Redis.
func NewRedisCooldown(client redis.Cmdable, duration time.Duration, logger *zap.Logger) *RedisCooldown {
	return &RedisCooldown{
		client:   client,
		duration: duration,
		logger:   logger.Named("RedisCooldown"),
	}
}

func cooldownKey(chatID int64) string {
	return fmt.Sprintf("%s%d", cooldownKeyPrefix, chatID)
}

// Allow ставит ключ с TTL, только если его еще нет.
func (c *RedisCooldown) Allow(ctx context.Context, chatID int64) (bool, error) {
	if c.duration <= 0 {
		return true, nil
	}
	ok, err := c.client.SetNX(ctx, cooldownKey(chatID), 1, c.duration).Result()
	if err != nil {
		c.logger.Error("Failed to set cooldown key", zap.Int64("chat_id", chatID), zap.Error(err))
		return false, fmt.Errorf("ошибка установки кулдауна для чата %d: %w", chatID, err)
	}
	return ok, nil
}

// NewRedisClient подключается к Redis и проверяет соединение.
func NewRedisClient(ctx context.Context, addr, password string, db int, logger *zap.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("не удалось подключиться к Redis %s: %w", addr, err)
	}
	logger.Info("Connected to Redis", zap.String("addr", addr), zap.Int("db", db))
	return client, nil
}

// MemoryCooldown - кулдаун в памяти процесса для запуска без Redis.
type MemoryCooldown struct {
	mu       sync.Mutex
	until    map[int64]time.Time
	duration time.Duration
	now      func() time.Time
}

var _ interfaces.Cooldown = (*MemoryCooldown)(nil)

// NewMemoryCooldown создает кулдаун в памяти.
func NewMemoryCooldown(duration time.Duration) *MemoryCooldown {
	return &MemoryCooldown{
		until:    make(map[int64]time.Time),
		duration: duration,
		now:      time.Now,
	}
}

func (c *MemoryCooldown) Allow(_ context.Context, chatID int64) (bool, error) {
	if c.duration <= 0 {
		return true, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if until, ok := c.until[chatID]; ok && now.Before(until) {
		return false, nil
	}
	c.until[chatID] = now.Add(c.duration)
	c.evictExpired(now)
	return true, nil
}

// evictExpired не дает карте расти бесконечно.
func (c *MemoryCooldown) evictExpired(now time.Time) {
	if len(c.until) < 1024 {
		return
	}
	for chatID, until := range c.until {
		if !now.Before(until) {
			delete(c.until, chatID)
		}
	}
}
