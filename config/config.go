package config

import (
	"log"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

var Cfg Config

type Config struct {
	// Service
	ServerPort  string `env:"SERVER_PORT" envDefault:"5300"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"` // development, staging, production
	ServiceName string `env:"SERVICE_NAME" envDefault:"replant-missions"`

	// Gateway / CORS
	MissionServiceToken string `env:"MISSION_SERVICE_TOKEN"`
	AllowedOrigins      string `env:"ALLOWED_ORIGINS" envDefault:"http://localhost:3000"`

	// PostgreSQL
	DatabaseURL string `env:"DATABASE_URL"`

	// Redis (scheduler locks)
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	RedisPrefix   string `env:"REDIS_PREFIX" envDefault:"replant"`

	// RabbitMQ (outcome events for the notification service)
	RabbitMQAddr     string `env:"RABBITMQ_ADDR" envDefault:"localhost"`
	RabbitMQPort     string `env:"RABBITMQ_PORT" envDefault:"5672"`
	RabbitMQUsername string `env:"RABBITMQ_USERNAME" envDefault:"guest"`
	RabbitMQPassword string `env:"RABBITMQ_PASSWORD" envDefault:"guest"`
	RabbitMQVhost    string `env:"RABBITMQ_VHOST" envDefault:"/"`
	EventExchange    string `env:"EVENT_EXCHANGE" envDefault:"replant.events"`

	// S3 (proof images)
	S3Bucket          string `env:"S3_BUCKET_NAME"`
	S3Region          string `env:"S3_REGION" envDefault:"ap-northeast-2"`
	S3AccessKeyID     string `env:"S3_ACCESS_KEY_ID"`
	S3AccessKeySecret string `env:"S3_ACCESS_KEY_SECRET"`
	CDNBaseURL        string `env:"CDN_BASE_URL"`

	// Verification quorum policy. The old backend shipped with an
	// approve threshold of 1 for test rounds; production uses 3.
	ApproveThreshold int `env:"VERIFY_APPROVE_THRESHOLD" envDefault:"3"`
	RejectThreshold  int `env:"VERIFY_REJECT_THRESHOLD" envDefault:"3"`

	// Mission / companion policy
	BadgeValidityDays    int `env:"BADGE_VALIDITY_DAYS" envDefault:"3"`
	CompanionMaxLevel    int `env:"COMPANION_MAX_LEVEL" envDefault:"100"`
	SweepIntervalMinutes int `env:"SWEEP_INTERVAL_MINUTES" envDefault:"1"`

	// Outcome event worker
	OutcomePollSeconds int `env:"OUTCOME_POLL_SECONDS" envDefault:"5"`
	OutcomeBatchSize   int `env:"OUTCOME_BATCH_SIZE" envDefault:"50"`

	// Logging
	LoggerLevel      string `env:"LOGGER_LEVEL" envDefault:"INFO"`
	LoggerFormat     string `env:"LOGGER_FORMAT" envDefault:"text"` // json, text
	LoggerOutputPath string `env:"LOGGER_OUTPUT_PATH" envDefault:"stdout"`
}

func init() {
	if err := godotenv.Load(); err != nil {
		log.Printf("WARN: Cannot load .env file: %v, using environment variables", err)
	}

	Cfg = Config{}
	if err := env.Parse(&Cfg); err != nil {
		log.Fatalf("Failed to parse environment variables: %v", err)
	}
}

func (c *Config) GetRabbitMQURL() string {
	return "amqp://" + c.RabbitMQUsername + ":" + c.RabbitMQPassword + "@" + c.RabbitMQAddr + ":" + c.RabbitMQPort + c.RabbitMQVhost
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
