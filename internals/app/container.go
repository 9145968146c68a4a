package app

import (
	"context"
	"pulsewatch/config"
	"pulsewatch/internals/alerting"
	middle "pulsewatch/internals/middleware"
	"pulsewatch/internals/modules/alert"
	"pulsewatch/internals/modules/auth"
	"pulsewatch/internals/modules/check"
	"pulsewatch/internals/modules/heartbeat"
	"pulsewatch/internals/modules/monitor"
	"pulsewatch/internals/modules/rule"
	"pulsewatch/internals/modules/scheduler"
	"pulsewatch/internals/modules/telegram"
	"pulsewatch/internals/security"
	"pulsewatch/pkg/httpclient"
	"pulsewatch/pkg/rabbitmq"
	"pulsewatch/pkg/ratelimit"
	"pulsewatch/pkg/redisstore"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

type Container struct {
	DB          *pgxpool.Pool
	RedisClient *redisstore.Client
	Logger      *zerolog.Logger

	Scheduler   *scheduler.Scheduler
	AlertWorker *alert.Worker

	monitorRepo   *monitor.Repository
	checkRepo     *check.Repository
	alertRepo     *alert.Repository
	heartbeatRepo *heartbeat.Repository

	monitorHandler   *monitor.Handler
	checkHandler     *check.Handler
	alertHandler     *alert.Handler
	heartbeatHandler *heartbeat.Handler
	authHandler      *auth.Handler
	telegramHandler  *telegram.Handler
	authMW           *middle.AuthMiddleware

	amqpConn *amqp091.Connection
	amqpPub  *rabbitmq.Publisher
}

func NewContainer(ctx context.Context, db *pgxpool.Pool, cfg *config.Config, logger *zerolog.Logger) (*Container, error) {

	c := &Container{
		DB:     db,
		Logger: logger,
	}

	if cfg.Redis != nil {
		redisClient, err := redisstore.New(cfg.Redis.URL)
		if err != nil {
			return nil, err
		}
		c.RedisClient = redisClient
	}

	validate := validator.New()

	c.monitorRepo = monitor.NewRepository(db, logger)
	c.checkRepo = check.NewRepository(db, logger)
	c.alertRepo = alert.NewRepository(db, logger)
	c.heartbeatRepo = heartbeat.NewRepository(db, logger)

	limiter := ratelimit.New(cfg.Checker.RequestsPerMinute)
	checker := check.NewChecker(
		httpclient.NewHttpClient(),
		limiter,
		cfg.Checker.MaxConcurrent,
		cfg.Checker.MaxRetries,
		cfg.Checker.ContactEmail,
		logger,
	)

	engine := rule.NewEngine(c.checkRepo, logger)
	alertSvc := alert.NewService(c.alertRepo, logger)

	c.Scheduler = scheduler.New(
		c.monitorRepo, c.checkRepo, checker, engine, alertSvc,
		cfg.Scheduler.PollInterval, logger,
	)
	if c.RedisClient != nil {
		c.Scheduler.SetStatusRecorder(c.RedisClient)
	}

	var cache monitor.Cache
	if c.RedisClient != nil {
		cache = c.RedisClient
	}
	monitorSvc := monitor.NewService(c.monitorRepo, cache, logger)
	monitorSvc.SetSchedulerHook(c.Scheduler)

	channels, err := c.buildChannels(cfg, logger)
	if err != nil {
		return nil, err
	}
	c.AlertWorker = alert.NewWorker(c.alertRepo, channels, alert.WorkerConfig{
		BatchSize:        cfg.AlertWorker.BatchSize,
		CheckInterval:    cfg.AlertWorker.CheckInterval,
		MaxRetries:       cfg.AlertWorker.MaxRetries,
		RetryDelay:       cfg.AlertWorker.RetryDelay,
		AttemptTTL:       cfg.AlertWorker.AttemptTTL,
		AutoResolveAfter: cfg.AlertWorker.AutoResolveAfter,
	}, logger)

	tokenSvc := security.NewTokenService(cfg.Auth)

	heartbeatSvc := heartbeat.NewService(c.heartbeatRepo, logger)

	c.monitorHandler = monitor.NewHandler(monitorSvc, validate)
	c.checkHandler = check.NewHandler(c.checkRepo, monitorSvc)
	c.alertHandler = alert.NewHandler(alertSvc, monitorSvc, validate)
	c.heartbeatHandler = heartbeat.NewHandler(heartbeatSvc, validate)
	c.authHandler = auth.NewHandler(cfg.Auth, tokenSvc, validate, logger)
	c.authMW = middle.NewAuthMiddleware(tokenSvc)

	if cfg.Channels != nil && cfg.Channels.Telegram != nil {
		c.telegramHandler = telegram.NewHandler(alertSvc, cfg.Channels.Telegram, logger)
	}

	return c, nil
}

// buildChannels wires up every alert channel the config enables.
func (c *Container) buildChannels(cfg *config.Config, logger *zerolog.Logger) ([]alerting.Channel, error) {
	channels := make([]alerting.Channel, 0)
	if cfg.Channels == nil {
		return channels, nil
	}

	if w := cfg.Channels.Webhook; w != nil {
		channels = append(channels, alerting.NewWebhookChannel(w.URL, w.Timeout, logger))
	}
	if s := cfg.Channels.Slack; s != nil {
		channels = append(channels, alerting.NewSlackChannel(s.WebhookURL, s.Timeout, logger))
	}
	if e := cfg.Channels.Email; e != nil {
		channels = append(channels, alerting.NewEmailChannel(e, logger))
	}
	if t := cfg.Channels.Telegram; t != nil {
		channels = append(channels, alerting.NewTelegramChannel(t.BotToken, t.ChatIDs, t.Timeout, logger))
	}
	if a := cfg.Channels.AMQP; a != nil {
		conn, err := rabbitmq.NewConnection(a, logger)
		if err != nil {
			return nil, err
		}
		if err := rabbitmq.SetupTopology(conn, a); err != nil {
			conn.Close()
			return nil, err
		}
		pub, err := rabbitmq.NewPublisher(conn, a.ExchangeName, a.RoutingKey)
		if err != nil {
			conn.Close()
			return nil, err
		}
		c.amqpConn = conn
		c.amqpPub = pub
		channels = append(channels, alerting.NewAMQPChannel(pub, logger))
	}

	for _, ch := range channels {
		if err := ch.ValidateConfig(); err != nil {
			return nil, err
		}
	}
	return channels, nil
}

func (c *Container) Shutdown() error {
	if c.amqpPub != nil {
		if err := c.amqpPub.Close(); err != nil {
			c.Logger.Error().Err(err).Msg("failed to close amqp publisher")
		}
	}
	if c.amqpConn != nil {
		if err := c.amqpConn.Close(); err != nil {
			c.Logger.Error().Err(err).Msg("failed to close amqp connection")
		}
	}
	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			c.Logger.Error().Err(err).Msg("failed to close redis client")
		}
	}
	if c.DB != nil {
		c.DB.Close()
	}
	return nil
}
