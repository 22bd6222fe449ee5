package config

import (
	"fmt"
	"strings"
	"time"

	"quest-bot/internal/models"
	"quest-bot/shared/utils"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"
)

const (
	DBTypePostgres = "postgres"
	DBTypeSQLite   = "sqlite"

	TransportRabbitMQ  = "rabbitmq"
	TransportWebSocket = "websocket"
)

// Config содержит конфигурацию бота
type Config struct {
	Env         string `envconfig:"ENV" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	LogEncoding string `envconfig:"LOG_ENCODING" default:"json"`
	SecretsDir  string `envconfig:"SECRETS_DIR" default:"/run/secrets"`

	// HTTP (админка, /health, /metrics, websocket)
	HTTPPort           string   `envconfig:"HTTP_PORT" default:"8080"`
	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`

	// Контент квеста
	ContentDir         string `envconfig:"CONTENT_DIR" default:"configs/quest"`
	MessagesFile       string `envconfig:"MESSAGES_FILE" default:"configs/messages.yml"`
	AchievementsFile   string `envconfig:"ACHIEVEMENTS_FILE" default:"configs/achievements.yml"`
	SeedDefaultContent bool   `envconfig:"SEED_DEFAULT_CONTENT" default:"true"`

	// Темп выдачи реплик
	MessageCooldown time.Duration `envconfig:"QUEST_MESSAGE_COOLDOWN" default:"2s"`
	TypingOffset    time.Duration `envconfig:"QUEST_TYPING_OFFSET" default:"50ms"`
	StrictLinks     bool          `envconfig:"QUEST_STRICT_LINKS" default:"true"`
	SendCooldown    time.Duration `envconfig:"SEND_COOLDOWN" default:"1s"`

	// Хранилище
	DBType        string        `envconfig:"DB_TYPE" default:"sqlite"`
	DBHost        string        `envconfig:"DB_HOST"`
	DBPort        string        `envconfig:"DB_PORT" default:"5432"`
	DBUser        string        `envconfig:"DB_USER"`
	DBName        string        `envconfig:"DB_NAME"`
	DBSSLMode     string        `envconfig:"DB_SSL_MODE" default:"disable"`
	DBMaxConns    int           `envconfig:"DB_MAX_CONNECTIONS" default:"10"`
	DBIdleTimeout time.Duration `envconfig:"DB_MAX_IDLE_MINUTES" default:"5m"`
	SQLitePath    string        `envconfig:"SQLITE_PATH" default:"data/quest.db"`
	// Секретное поле БЕЗ envconfig тега
	DBPassword string `ignored:"true"`

	// Redis для кулдауна. Пустой адрес - кулдаун в памяти.
	RedisAddr string `envconfig:"REDIS_ADDR"`
	RedisDB   int    `envconfig:"REDIS_DB" default:"0"`
	// Секретное поле БЕЗ envconfig тега
	RedisPassword string `ignored:"true"`

	// Транспорт чата
	ChatTransport     string `envconfig:"CHAT_TRANSPORT" default:"websocket"`
	RabbitMQURL       string `envconfig:"RABBITMQ_URL"`
	ChatInboundQueue  string `envconfig:"CHAT_INBOUND_QUEUE" default:"chat_inbound_updates"`
	ChatOutboundQueue string `envconfig:"CHAT_OUTBOUND_QUEUE" default:"chat_outbound_messages"`

	// Секрет админского API. Пустой - API выключено.
	AdminJWTSecret string `ignored:"true"`
	// Секрет токенов веб-чата. Пустой - chat_id берется из запроса без проверки, только для разработки.
	ChatTokenSecret string `ignored:"true"`
}

// GetDSN возвращает строку подключения (DSN) для PostgreSQL
func (c *Config) GetDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// IsDevelopment - включен ли режим разработки.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, "development")
}

// AdminEnabled - доступно ли админское API.
func (c *Config) AdminEnabled() bool {
	return c.AdminJWTSecret != ""
}

// Validate проверяет согласованность настроек.
func (c *Config) Validate() error {
	switch c.DBType {
	case DBTypePostgres:
		if c.DBHost == "" || c.DBUser == "" || c.DBName == "" {
			return fmt.Errorf("%w: для DB_TYPE=postgres нужны DB_HOST, DB_USER и DB_NAME", models.ErrInvalidConfig)
		}
	case DBTypeSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("%w: пустой SQLITE_PATH", models.ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: неизвестный DB_TYPE %q", models.ErrInvalidConfig, c.DBType)
	}

	switch c.ChatTransport {
	case TransportRabbitMQ:
		if c.RabbitMQURL == "" {
			return fmt.Errorf("%w: для CHAT_TRANSPORT=rabbitmq нужен RABBITMQ_URL", models.ErrInvalidConfig)
		}
	case TransportWebSocket:
	default:
		return fmt.Errorf("%w: неизвестный CHAT_TRANSPORT %q", models.ErrInvalidConfig, c.ChatTransport)
	}

	if c.MessageCooldown <= 0 {
		return fmt.Errorf("%w: QUEST_MESSAGE_COOLDOWN должен быть больше нуля", models.ErrInvalidConfig)
	}
	if c.TypingOffset < 0 || c.TypingOffset >= c.MessageCooldown {
		return fmt.Errorf("%w: QUEST_TYPING_OFFSET должен быть в пределах [0, QUEST_MESSAGE_COOLDOWN)", models.ErrInvalidConfig)
	}
	if c.SendCooldown < 0 {
		return fmt.Errorf("%w: SEND_COOLDOWN не может быть отрицательным", models.ErrInvalidConfig)
	}
	if c.HTTPPort == "" {
		return fmt.Errorf("%w: пустой HTTP_PORT", models.ErrInvalidConfig)
	}
	return nil
}

// LoadConfig загружает конфигурацию из переменных окружения и секретов
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("ошибка загрузки конфигурации: %w", err)
	}

	var err error
	if cfg.DBType == DBTypePostgres {
		cfg.DBPassword, err = utils.ReadSecret(cfg.SecretsDir, "db_password")
		if err != nil {
			return nil, err
		}
	}
	cfg.RedisPassword, err = utils.ReadOptionalSecret(cfg.SecretsDir, "redis_password")
	if err != nil {
		return nil, err
	}
	cfg.AdminJWTSecret, err = utils.ReadOptionalSecret(cfg.SecretsDir, "admin_jwt_secret")
	if err != nil {
		return nil, err
	}
	cfg.ChatTokenSecret, err = utils.ReadOptionalSecret(cfg.SecretsDir, "chat_token_secret")
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LogFields - сводка конфигурации для лога, без секретов.
func (c *Config) LogFields() []zap.Field {
	fields := []zap.Field{
		zap.String("env", c.Env),
		zap.String("http_port", c.HTTPPort),
		zap.String("content_dir", c.ContentDir),
		zap.Duration("message_cooldown", c.MessageCooldown),
		zap.Duration("typing_offset", c.TypingOffset),
		zap.Duration("send_cooldown", c.SendCooldown),
		zap.Bool("strict_links", c.StrictLinks),
		zap.String("db_type", c.DBType),
		zap.String("chat_transport", c.ChatTransport),
		zap.Bool("admin_api", c.AdminEnabled()),
		zap.Bool("chat_tokens", c.ChatTokenSecret != ""),
	}
	if c.DBType == DBTypePostgres {
		fields = append(fields, zap.String("db_dsn", fmt.Sprintf("postgres://%s:***@%s:%s/%s?sslmode=%s",
			c.DBUser, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)))
	} else {
		fields = append(fields, zap.String("sqlite_path", c.SQLitePath))
	}
	if c.RedisAddr != "" {
		fields = append(fields, zap.String("redis_addr", c.RedisAddr))
	}
	return fields
}
