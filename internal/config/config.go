package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Server     ServerConfig     `envPrefix:"SERVER_"`
	Database   DatabaseConfig   `envPrefix:"DATABASE_"`
	Kafka      KafkaConfig      `envPrefix:"KAFKA_"`
	PricingAPI PricingAPIConfig `envPrefix:"PRICING_API_"`
	WhatsApp   WhatsAppConfig   `envPrefix:"WHATSAPP_"`
	Stream     StreamConfig     `envPrefix:"STREAM_"`
	Bot        BotConfig        `envPrefix:"BOT_"`
}

type ServerConfig struct {
	Addr string `env:"ADDR" envDefault:":8080"`
}

type DatabaseConfig struct {
	Hosts    []string `env:"HOSTS" envDefault:"localhost:27017"`
	Database string   `env:"DATABASE" envDefault:"price_bot"`
	Username string   `env:"USERNAME"`
	Password string   `env:"PASSWORD"`
	AuthDB   string   `env:"AUTH_DB" envDefault:"admin"`
	Direct   bool     `env:"DIRECT" envDefault:"false"`
}

type KafkaConfig struct {
	Enabled bool     `env:"ENABLED" envDefault:"false"`
	Brokers []string `env:"BROKERS" envDefault:"localhost:9092"`
	Topic   string   `env:"TOPIC" envDefault:"whatsapp.messages"`
	GroupID string   `env:"GROUP_ID" envDefault:"price-bot"`
}

type PricingAPIConfig struct {
	BaseURL        string        `env:"BASE_URL,required"`
	Timeout        time.Duration `env:"TIMEOUT" envDefault:"10s"`
	UploadRetryMax int           `env:"UPLOAD_RETRY_MAX" envDefault:"3"`
	RetryWaitMin   time.Duration `env:"RETRY_WAIT_MIN" envDefault:"500ms"`
	RetryWaitMax   time.Duration `env:"RETRY_WAIT_MAX" envDefault:"5s"`
}

type WhatsAppConfig struct {
	BaseURL string `env:"BASE_URL,required"`
	APIKey  string `env:"API_KEY"`
}

type StreamConfig struct {
	// URL of the STOMP-over-websocket broker. Empty disables live updates.
	URL            string        `env:"URL"`
	ReconnectDelay time.Duration `env:"RECONNECT_DELAY" envDefault:"5s"`
	HeartbeatIn    time.Duration `env:"HEARTBEAT_IN" envDefault:"0"`
	HeartbeatOut   time.Duration `env:"HEARTBEAT_OUT" envDefault:"15s"`
	PollInterval   time.Duration `env:"POLL_INTERVAL" envDefault:"5s"`
	ConnectDelay   time.Duration `env:"CONNECT_DELAY" envDefault:"500ms"`
}

type BotConfig struct {
	// AllowedGroup is the only chat destination price announcements go to.
	// Inbound messages from other groups are ignored when it is set.
	AllowedGroup string `env:"ALLOWED_GROUP"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
