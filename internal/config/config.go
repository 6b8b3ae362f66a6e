package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port        string `validate:"required,numeric"`
		LogLevel    string `validate:"oneof=debug info warn error"`
		MetricsPort string `validate:"omitempty,numeric"`
		GRPCPort    string `validate:"omitempty,numeric"`
	}
	Catalog struct {
		Path string
	}
	Voice struct {
		LockWindowMs  int     `validate:"gt=0"`
		Language      string  `validate:"required"`
		ContentRate   float64 `validate:"gt=0,lte=10"`
		SystemRate    float64 `validate:"gt=0,lte=10"`
		FeedbackTTLMs int     `validate:"gt=0"`
		RestartMaxMs  int     `validate:"gte=0"`
	}
	Client struct {
		TokenSecret   string
		TokenTTLMin   int `validate:"gt=0"`
		TokenSkewSecs int `validate:"gte=0"`
		SendQueue     int `validate:"gt=0"`
	}
	Events struct {
		Max int `validate:"gte=2"`
	}
}

// Load reads configuration from the environment, and from file when it is
// not empty.
func Load(file string) (Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.metrics_port", 8082)
	v.SetDefault("server.grpc_port", 9090)

	v.SetDefault("voice.lock_window_ms", 2000)
	v.SetDefault("voice.language", "en-IN")
	v.SetDefault("voice.content_rate", 0.9)
	v.SetDefault("voice.system_rate", 1.1)
	v.SetDefault("voice.feedback_ttl_ms", 5000)
	v.SetDefault("voice.restart_max_ms", 5000)

	v.SetDefault("client.token_ttl_min", 60)
	v.SetDefault("client.token_skew_secs", 30)
	v.SetDefault("client.send_queue", 64)

	v.SetDefault("events.max", 200)

	// Map envs
	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.log_level", "LOG_LEVEL")
	v.BindEnv("server.metrics_port", "METRICS_PORT")
	v.BindEnv("server.grpc_port", "GRPC_PORT")

	v.BindEnv("catalog.path", "CATALOG_PATH")

	v.BindEnv("voice.lock_window_ms", "VOICE_LOCK_WINDOW_MS")
	v.BindEnv("voice.language", "VOICE_LANGUAGE")
	v.BindEnv("voice.content_rate", "VOICE_CONTENT_RATE")
	v.BindEnv("voice.system_rate", "VOICE_SYSTEM_RATE")
	v.BindEnv("voice.feedback_ttl_ms", "VOICE_FEEDBACK_TTL_MS")
	v.BindEnv("voice.restart_max_ms", "VOICE_RESTART_MAX_MS")

	v.BindEnv("client.token_secret", "CLIENT_TOKEN_SECRET")
	v.BindEnv("client.token_ttl_min", "CLIENT_TOKEN_TTL_MIN")
	v.BindEnv("client.token_skew_secs", "CLIENT_TOKEN_SKEW_SECS")
	v.BindEnv("client.send_queue", "CLIENT_SEND_QUEUE")

	v.BindEnv("events.max", "EVENTS_MAX")

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	var c Config
	c.Server.Port = toString(v.Get("server.port"))
	c.Server.LogLevel = v.GetString("server.log_level")
	c.Server.MetricsPort = toString(v.Get("server.metrics_port"))
	c.Server.GRPCPort = toString(v.Get("server.grpc_port"))

	c.Catalog.Path = v.GetString("catalog.path")

	c.Voice.LockWindowMs = v.GetInt("voice.lock_window_ms")
	c.Voice.Language = v.GetString("voice.language")
	c.Voice.ContentRate = v.GetFloat64("voice.content_rate")
	c.Voice.SystemRate = v.GetFloat64("voice.system_rate")
	c.Voice.FeedbackTTLMs = v.GetInt("voice.feedback_ttl_ms")
	c.Voice.RestartMaxMs = v.GetInt("voice.restart_max_ms")

	c.Client.TokenSecret = v.GetString("client.token_secret")
	c.Client.TokenTTLMin = v.GetInt("client.token_ttl_min")
	c.Client.TokenSkewSecs = v.GetInt("client.token_skew_secs")
	c.Client.SendQueue = v.GetInt("client.send_queue")

	c.Events.Max = v.GetInt("events.max")

	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func (c Config) LockWindow() time.Duration {
	return time.Duration(c.Voice.LockWindowMs) * time.Millisecond
}

func (c Config) FeedbackTTL() time.Duration {
	return time.Duration(c.Voice.FeedbackTTLMs) * time.Millisecond
}

func (c Config) RestartMax() time.Duration {
	return time.Duration(c.Voice.RestartMaxMs) * time.Millisecond
}

func (c Config) TokenTTL() time.Duration {
	return time.Duration(c.Client.TokenTTLMin) * time.Minute
}

func (c Config) TokenSkew() time.Duration {
	return time.Duration(c.Client.TokenSkewSecs) * time.Second
}

func toString(v any) string { return fmt.Sprint(v) }
