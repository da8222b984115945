package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName             string
	AppEnv              string
	AppPort             string
	DatabaseURL         string
	RedisURL            string
	NATSURL             string
	JWTSecret           string
	GatewayBaseURL      string
	GatewayAPIKey       string
	GatewayTimeout      time.Duration
	Timezone            *time.Location
	AggregationCacheTTL time.Duration
	EventChannelBase    string
	StreamKeepAlive     time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("PORTALIS")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Portalis API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("gateway.timeout", "15s")
	v.SetDefault("timezone", "Asia/Manila")
	v.SetDefault("aggregation.cache_ttl", "2m")
	v.SetDefault("event.channel_base", "portalis")
	v.SetDefault("stream.keepalive", "30s")

	gatewayTimeout, err := time.ParseDuration(v.GetString("gateway.timeout"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid gateway timeout: %w", err)
	}

	cacheTTL, err := time.ParseDuration(v.GetString("aggregation.cache_ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid aggregation cache ttl: %w", err)
	}

	keepAlive, err := time.ParseDuration(v.GetString("stream.keepalive"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid stream keepalive: %w", err)
	}

	location, err := time.LoadLocation(v.GetString("timezone"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid timezone: %w", err)
	}

	cfg := Config{
		AppName:             v.GetString("app.name"),
		AppEnv:              v.GetString("app.env"),
		AppPort:             v.GetString("app.port"),
		DatabaseURL:         v.GetString("database.url"),
		RedisURL:            v.GetString("redis.url"),
		NATSURL:             v.GetString("nats.url"),
		JWTSecret:           v.GetString("jwt.secret"),
		GatewayBaseURL:      v.GetString("gateway.base_url"),
		GatewayAPIKey:       v.GetString("gateway.api_key"),
		GatewayTimeout:      gatewayTimeout,
		Timezone:            location,
		AggregationCacheTTL: cacheTTL,
		EventChannelBase:    v.GetString("event.channel_base"),
		StreamKeepAlive:     keepAlive,
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.GatewayBaseURL == "" {
		return Config{}, fmt.Errorf("gateway base url must be provided")
	}

	return cfg, nil
}
