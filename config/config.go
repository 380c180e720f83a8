package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig           `envconfig:"APP"`
	HttpServer    HttpServerConfig    `envconfig:"HTTP_SERVER"`
	HttpClient    HttpClientConfig    `envconfig:"HTTP_CLIENT"`
	Database      DatabaseConfig      `envconfig:"DATABASE"`
	Redis         RedisConfig         `envconfig:"REDIS"`
	MessageStream MessageStreamConfig `envconfig:"MESSAGE_STREAM"`
	UserService   UserServiceConfig   `envconfig:"USER_SERVICE"`
	Reservation   ReservationConfig   `envconfig:"RESERVATION"`
}

type AppConfig struct {
	Name        string `envconfig:"NAME" default:"bed-booking-service"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
}

type HttpServerConfig struct {
	Port         string        `envconfig:"PORT" default:"8080"`
	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT" default:"10s"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"10s"`
	Monitoring   bool          `envconfig:"MONITORING" default:"true"`
}

type HttpClientConfig struct {
	// Type selects the breaker: consecutive, threshold or rate.
	Type       string        `envconfig:"TYPE" default:"consecutive"`
	Timeout    time.Duration `envconfig:"TIMEOUT" default:"5s"`
	Threshold  int64         `envconfig:"THRESHOLD" default:"5"`
	Rate       float64       `envconfig:"RATE" default:"0.5"`
	MinSamples int64         `envconfig:"MIN_SAMPLES" default:"20"`
}

type DatabaseConfig struct {
	Host            string        `envconfig:"HOST" default:"localhost"`
	Port            string        `envconfig:"PORT" default:"5432"`
	User            string        `envconfig:"USER" default:"postgres"`
	Password        string        `envconfig:"PASSWORD" default:"postgres"`
	Name            string        `envconfig:"NAME" default:"albergue"`
	SSLMode         string        `envconfig:"SSL_MODE" default:"disable"`
	MaxOpenConns    int           `envconfig:"MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"CONN_MAX_LIFETIME" default:"30m"`
	Migrate         bool          `envconfig:"MIGRATE" default:"true"`
}

type RedisConfig struct {
	Host     string `envconfig:"HOST" default:"localhost"`
	Port     string `envconfig:"PORT" default:"6379"`
	Password string `envconfig:"PASSWORD" default:""`
	DB       int    `envconfig:"DB" default:"0"`
}

type MessageStreamConfig struct {
	Host     string `envconfig:"HOST" default:"localhost"`
	Port     string `envconfig:"PORT" default:"5672"`
	Username string `envconfig:"USERNAME" default:"guest"`
	Password string `envconfig:"PASSWORD" default:"guest"`
	// QueueSuffix keeps consumer queues of this service apart from other subscribers of the same topic.
	QueueSuffix string `envconfig:"QUEUE_SUFFIX" default:"bed-booking-service"`
}

type UserServiceConfig struct {
	Host string `envconfig:"HOST" default:"localhost"`
	Port string `envconfig:"PORT" default:"9090"`
}

type ReservationConfig struct {
	IntakeWindow         time.Duration `envconfig:"INTAKE_WINDOW" default:"30m"`
	PaymentWindow        time.Duration `envconfig:"PAYMENT_WINDOW" default:"24h"`
	SweepInterval        time.Duration `envconfig:"SWEEP_INTERVAL" default:"1m"`
	SweepBatchSize       int           `envconfig:"SWEEP_BATCH_SIZE" default:"100"`
	AllocationRetryLimit int           `envconfig:"ALLOCATION_RETRY_LIMIT" default:"5"`
	AllocationTxTimeout  time.Duration `envconfig:"ALLOCATION_TX_TIMEOUT" default:"3s"`
	DepositPolicy        string        `envconfig:"DEPOSIT_POLICY" default:"full"`
	DepositPercent       int           `envconfig:"DEPOSIT_PERCENT" default:"30"`
	NoShowGrace          time.Duration `envconfig:"NO_SHOW_GRACE" default:"24h"`
	MaxNights            int           `envconfig:"MAX_NIGHTS" default:"30"`
	AvailabilityCacheTTL time.Duration `envconfig:"AVAILABILITY_CACHE_TTL" default:"5m"`
}

func InitConfig() *Config {
	// .env is optional, real deployments inject the environment directly
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, reading configuration from environment")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("error load config: %v", err)
	}

	return &cfg
}
