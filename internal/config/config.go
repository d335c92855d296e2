package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

const (
	LookupBackendPostgres = "postgres"
	LookupBackendMemory   = "memory"
)

type HTTPConfig struct {
	Host string
	Port int
}

type DBConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type AuthConfig struct {
	AccessSecret string
}

type LookupConfig struct {
	Backend string
	Timeout time.Duration
}

type PaymentConfig struct {
	SuccessProbability float64
	PushLatency        time.Duration
	RandomSeed         int64
	NoticeStation      string
}

type Config struct {
	Environment                string
	HTTP                       HTTPConfig
	DB                         DBConfig
	Auth                       AuthConfig
	Lookup                     LookupConfig
	Payment                    PaymentConfig
	RecordSettlementsInHistory bool
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("./deploy")
	v.AddConfigPath("./internal/config")

	v.SetDefault("LOOKUP_BACKEND", LookupBackendPostgres)
	v.SetDefault("LOOKUP_TIMEOUT", 5*time.Second)
	v.SetDefault("PAYMENT_SUCCESS_PROBABILITY", 0.9)
	v.SetDefault("PAYMENT_PUSH_LATENCY", 2*time.Second)
	v.SetDefault("NOTICE_STATION", "Harare Central")
	v.SetDefault("RECORD_SETTLEMENTS_IN_HISTORY", true)

	v.AutomaticEnv()

	_ = v.ReadInConfig()

	cfg := &Config{
		Environment: v.GetString("APP_ENV"),
		HTTP: HTTPConfig{
			Host: v.GetString("HTTP_HOST"),
			Port: v.GetInt("HTTP_PORT"),
		},
		DB: DBConfig{
			DSN:             v.GetString("DB_DSN"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
		},
		Auth: AuthConfig{
			AccessSecret: v.GetString("JWT_ACCESS_SECRET"),
		},
		Lookup: LookupConfig{
			Backend: v.GetString("LOOKUP_BACKEND"),
			Timeout: v.GetDuration("LOOKUP_TIMEOUT"),
		},
		Payment: PaymentConfig{
			SuccessProbability: v.GetFloat64("PAYMENT_SUCCESS_PROBABILITY"),
			PushLatency:        v.GetDuration("PAYMENT_PUSH_LATENCY"),
			RandomSeed:         v.GetInt64("PAYMENT_RANDOM_SEED"),
			NoticeStation:      v.GetString("NOTICE_STATION"),
		},
		RecordSettlementsInHistory: v.GetBool("RECORD_SETTLEMENTS_IN_HISTORY"),
	}

	if cfg.HTTP.Host == "" {
		cfg.HTTP.Host = "0.0.0.0"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.Payment.RandomSeed == 0 {
		cfg.Payment.RandomSeed = time.Now().UnixNano()
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func validate(cfg *Config) error {
	switch cfg.Lookup.Backend {
	case LookupBackendPostgres:
		if cfg.DB.DSN == "" {
			return fmt.Errorf("DB_DSN is required")
		}
	case LookupBackendMemory:
	default:
		return fmt.Errorf("LOOKUP_BACKEND must be %q or %q", LookupBackendPostgres, LookupBackendMemory)
	}
	if cfg.Auth.AccessSecret == "" {
		return fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.Payment.SuccessProbability < 0 || cfg.Payment.SuccessProbability > 1 {
		return fmt.Errorf("PAYMENT_SUCCESS_PROBABILITY must be between 0 and 1")
	}
	if cfg.Payment.PushLatency < 0 {
		return fmt.Errorf("PAYMENT_PUSH_LATENCY cannot be negative")
	}
	return nil
}
