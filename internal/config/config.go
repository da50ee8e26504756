package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	SourceModeRemote = "remote"
	SourceModeStore  = "store"
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

type GateConfig struct {
	ServiceURL    string
	InternalToken string
	Timeout       time.Duration
}

type ReconcileConfig struct {
	EventLimit     int
	PlateSentinels []string
}

type RefreshConfig struct {
	Interval    time.Duration
	TriggerRate float64
}

type CacheConfig struct {
	EventsTTL time.Duration
}

type ParkingConfig struct {
	TotalSlots int
}

type NATSConfig struct {
	URL     string
	Subject string
}

type Config struct {
	Environment string
	SourceMode  string
	HTTP        HTTPConfig
	DB          DBConfig
	Auth        AuthConfig
	Gate        GateConfig
	Reconcile   ReconcileConfig
	Refresh     RefreshConfig
	Cache       CacheConfig
	Parking     ParkingConfig
	NATS        NATSConfig
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("./deploy")

	v.AutomaticEnv()

	_ = v.ReadInConfig()

	v.SetDefault("PARKING_TOTAL_SLOTS", 10)
	v.SetDefault("RECONCILE_PLATE_SENTINELS", "Detecting...,N/A")

	cfg := &Config{
		Environment: v.GetString("APP_ENV"),
		SourceMode:  strings.ToLower(strings.TrimSpace(v.GetString("SOURCE_MODE"))),
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
		Gate: GateConfig{
			ServiceURL:    strings.TrimRight(v.GetString("GATE_SERVICE_URL"), "/"),
			InternalToken: v.GetString("GATE_INTERNAL_TOKEN"),
			Timeout:       v.GetDuration("GATE_HTTP_TIMEOUT"),
		},
		Reconcile: ReconcileConfig{
			EventLimit: v.GetInt("RECONCILE_EVENT_LIMIT"),
			// comma separated; GetStringSlice would split env values on whitespace
			PlateSentinels: splitList(v.GetString("RECONCILE_PLATE_SENTINELS")),
		},
		Refresh: RefreshConfig{
			Interval:    v.GetDuration("REFRESH_INTERVAL"),
			TriggerRate: v.GetFloat64("REFRESH_TRIGGER_RATE"),
		},
		Cache: CacheConfig{
			EventsTTL: v.GetDuration("CACHE_EVENTS_TTL"),
		},
		Parking: ParkingConfig{
			TotalSlots: v.GetInt("PARKING_TOTAL_SLOTS"),
		},
		NATS: NATSConfig{
			URL:     v.GetString("NATS_URL"),
			Subject: v.GetString("NATS_SUBJECT"),
		},
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
	if cfg.SourceMode == "" {
		cfg.SourceMode = SourceModeRemote
	}
	if cfg.Gate.Timeout == 0 {
		cfg.Gate.Timeout = 10 * time.Second
	}
	if cfg.DB.MaxOpenConns == 0 {
		cfg.DB.MaxOpenConns = 10
	}
	if cfg.DB.MaxIdleConns == 0 {
		cfg.DB.MaxIdleConns = 5
	}
	if cfg.DB.ConnMaxLifetime == 0 {
		cfg.DB.ConnMaxLifetime = 30 * time.Minute
	}
	if cfg.Reconcile.EventLimit == 0 {
		cfg.Reconcile.EventLimit = 100
	}
	if cfg.Refresh.Interval == 0 {
		cfg.Refresh.Interval = 5 * time.Second
	}
	if cfg.Refresh.TriggerRate == 0 {
		cfg.Refresh.TriggerRate = 1
	}
	if cfg.Cache.EventsTTL == 0 {
		cfg.Cache.EventsTTL = 15 * time.Second
	}
	if cfg.NATS.Subject == "" {
		cfg.NATS.Subject = "parking.gate.>"
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func validate(cfg *Config) error {
	if cfg.Auth.AccessSecret == "" {
		return fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	switch cfg.SourceMode {
	case SourceModeRemote:
		if cfg.Gate.ServiceURL == "" {
			return fmt.Errorf("GATE_SERVICE_URL is required in remote mode")
		}
	case SourceModeStore:
		if cfg.DB.DSN == "" {
			return fmt.Errorf("DB_DSN is required in store mode")
		}
	default:
		return fmt.Errorf("SOURCE_MODE must be %q or %q, got %q", SourceModeRemote, SourceModeStore, cfg.SourceMode)
	}
	if cfg.Reconcile.EventLimit < 0 {
		return fmt.Errorf("RECONCILE_EVENT_LIMIT must not be negative")
	}
	if cfg.Parking.TotalSlots < 0 {
		return fmt.Errorf("PARKING_TOTAL_SLOTS must not be negative")
	}
	if cfg.Refresh.Interval < 0 || cfg.Refresh.TriggerRate < 0 {
		return fmt.Errorf("REFRESH_INTERVAL and REFRESH_TRIGGER_RATE must not be negative")
	}
	return nil
}
