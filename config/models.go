package config

import "time"

type DBConfig struct {
	URL             string        `mapstructure:"url" validate:"required"`
	MaxOpenConns    int32         `mapstructure:"max_open_conns"`
	MinIdleConns    int32         `mapstructure:"min_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	HealthTimeout   time.Duration `mapstructure:"health_timeout"`
}

type RedisConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

type AuthConfig struct {
	Secret               string        `mapstructure:"secret" validate:"required"`
	TokenTTL             time.Duration `mapstructure:"token_ttl"`
	OperatorEmail        string        `mapstructure:"operator_email" validate:"required,email"`
	OperatorPasswordHash string        `mapstructure:"operator_password_hash" validate:"required"`
}

type CheckerConfig struct {
	MaxConcurrent     int    `mapstructure:"max_concurrent" validate:"gt=0"`
	RequestsPerMinute int    `mapstructure:"requests_per_minute" validate:"gt=0"`
	MaxRetries        int    `mapstructure:"max_retries" validate:"gte=0"`
	ContactEmail      string `mapstructure:"contact_email"`
}

type SchedulerConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval" validate:"gt=0"`
}

type AlertWorkerConfig struct {
	BatchSize        int32         `mapstructure:"batch_size" validate:"gt=0"`
	CheckInterval    time.Duration `mapstructure:"check_interval" validate:"gt=0"`
	MaxRetries       int           `mapstructure:"max_retries" validate:"gt=0"`
	RetryDelay       time.Duration `mapstructure:"retry_delay" validate:"gt=0"`
	AttemptTTL       time.Duration `mapstructure:"attempt_ttl"`
	AutoResolveAfter time.Duration `mapstructure:"auto_resolve_after"`
}

type WebhookChannelConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type SlackChannelConfig struct {
	WebhookURL string        `mapstructure:"webhook_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type EmailChannelConfig struct {
	SMTPHost  string   `mapstructure:"smtp_host"`
	SMTPPort  int      `mapstructure:"smtp_port"`
	SMTPUser  string   `mapstructure:"smtp_user"`
	SMTPPass  string   `mapstructure:"smtp_pass"`
	FromEmail string   `mapstructure:"from_email"`
	ToEmails  []string `mapstructure:"to_emails"`
}

type TelegramChannelConfig struct {
	BotToken      string        `mapstructure:"bot_token"`
	ChatIDs       []string      `mapstructure:"chat_ids"`
	WebhookSecret string        `mapstructure:"webhook_secret"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

type AMQPChannelConfig struct {
	BrokerURL    string `mapstructure:"broker_url"`
	ExchangeName string `mapstructure:"exchange_name"`
	ExchangeType string `mapstructure:"exchange_type"`
	QueueName    string `mapstructure:"queue_name"`
	RoutingKey   string `mapstructure:"routing_key"`
}

type ChannelsConfig struct {
	Webhook  *WebhookChannelConfig  `mapstructure:"webhook"`
	Slack    *SlackChannelConfig    `mapstructure:"slack"`
	Email    *EmailChannelConfig    `mapstructure:"email"`
	Telegram *TelegramChannelConfig `mapstructure:"telegram"`
	AMQP     *AMQPChannelConfig     `mapstructure:"amqp"`
}

type Config struct {
	Env         string             `mapstructure:"env"`
	ServiceName string             `mapstructure:"service_name"`
	Port        int                `mapstructure:"port" validate:"gt=0,lte=65535"`
	DB          *DBConfig          `mapstructure:"db" validate:"required"`
	Redis       *RedisConfig       `mapstructure:"redis"`
	Auth        *AuthConfig        `mapstructure:"auth" validate:"required"`
	Checker     *CheckerConfig     `mapstructure:"checker" validate:"required"`
	Scheduler   *SchedulerConfig   `mapstructure:"scheduler" validate:"required"`
	AlertWorker *AlertWorkerConfig `mapstructure:"alert_worker" validate:"required"`
	Channels    *ChannelsConfig    `mapstructure:"channels"`
}
