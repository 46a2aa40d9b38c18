package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
	MinConns int32  `yaml:"min_conns"`
}

// RedisConfig is optional; an empty URL disables the delivery lock and rate limit.
type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type WebhookConfig struct {
	Secret       string        `yaml:"secret"` // empty disables signature checks
	MaxBodyBytes int64         `yaml:"max_body_bytes"`
	LockTTL      time.Duration `yaml:"lock_ttl"`
	RateLimit    int           `yaml:"rate_limit"` // per source per window, 0 disables
	RateWindow   time.Duration `yaml:"rate_window"`
}

type BillingConfig struct {
	HoldDays          int           `yaml:"hold_days"`
	Workers           int           `yaml:"workers"`
	QueueSize         int           `yaml:"queue_size"`
	SideEffectTimeout time.Duration `yaml:"side_effect_timeout"`
}

type MailConfig struct {
	Host     string `yaml:"host"` // empty selects the log-only mailer
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	AppURL   string `yaml:"app_url"`
	Language string `yaml:"language"` // locale for email copy, en by default
}

type GatewayConfig struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

type CRMConfig struct {
	URL     string        `yaml:"url"`
	APIKey  string        `yaml:"api_key"`
	BoardID string        `yaml:"board_id"`
	Timeout time.Duration `yaml:"timeout"`
}

type WorkspaceConfig struct {
	ClonerURL        string        `yaml:"cloner_url"`
	APIKey           string        `yaml:"api_key"`
	CloneTokenSecret string        `yaml:"clone_token_secret"`
	Timeout          time.Duration `yaml:"timeout"`
}

type SecurityConfig struct {
	SetupTokenSecret string        `yaml:"setup_token_secret"`
	SetupTokenTTL    time.Duration `yaml:"setup_token_ttl"`
	EncryptionKey    string        `yaml:"encryption_key"` // empty stores payloads in clear
}

type TelegramAlertConfig struct {
	Token   string  `yaml:"token"`
	ChatIDs []int64 `yaml:"chat_ids"`
}

type AlertsConfig struct {
	Telegram TelegramAlertConfig `yaml:"telegram"`
}

type SchedulerConfig struct {
	ReleaseInterval  time.Duration `yaml:"release_interval"`
	ReleaseBatch     int           `yaml:"release_batch"`
	BackfillInterval time.Duration `yaml:"backfill_interval"`
	BackfillMinAge   time.Duration `yaml:"backfill_min_age"`
	PoolStatsEvery   time.Duration `yaml:"pool_stats_every"`
}

type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Log       LogConfig       `yaml:"log"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Billing   BillingConfig   `yaml:"billing"`
	Mail      MailConfig      `yaml:"mail"`
	Gateway   GatewayConfig   `yaml:"gateway"`
	CRM       CRMConfig       `yaml:"crm"`
	Workspace WorkspaceConfig `yaml:"workspace"`
	Security  SecurityConfig  `yaml:"security"`
	Alerts    AlertsConfig    `yaml:"alerts"`
	Scheduler SchedulerConfig `yaml:"scheduler"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b, dev)
}

// Parse decodes YAML, applies defaults and validates the result.
func Parse(b []byte, dev bool) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.Runtime.Dev = dev
	return &cfg, nil
}

// applyEnv lets secrets live outside the YAML file. Set variables win over file values.
func (c *Config) applyEnv() {
	overrides := []struct {
		key string
		dst *string
	}{
		{"FUNNEL_DATABASE_URL", &c.Database.URL},
		{"FUNNEL_REDIS_URL", &c.Redis.URL},
		{"FUNNEL_REDIS_PASSWORD", &c.Redis.Password},
		{"FUNNEL_WEBHOOK_SECRET", &c.Webhook.Secret},
		{"FUNNEL_SMTP_PASSWORD", &c.Mail.Password},
		{"FUNNEL_GATEWAY_API_KEY", &c.Gateway.APIKey},
		{"FUNNEL_CRM_API_KEY", &c.CRM.APIKey},
		{"FUNNEL_WORKSPACE_API_KEY", &c.Workspace.APIKey},
		{"FUNNEL_CLONE_TOKEN_SECRET", &c.Workspace.CloneTokenSecret},
		{"FUNNEL_SETUP_TOKEN_SECRET", &c.Security.SetupTokenSecret},
		{"FUNNEL_ENCRYPTION_KEY", &c.Security.EncryptionKey},
		{"FUNNEL_TELEGRAM_TOKEN", &c.Alerts.Telegram.Token},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.key); v != "" {
			*o.dst = v
		}
	}
}

func (c *Config) applyDefaults() {
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	c.HTTP.ReadTimeout = orDuration(c.HTTP.ReadTimeout, 10*time.Second)
	c.HTTP.WriteTimeout = orDuration(c.HTTP.WriteTimeout, 30*time.Second)
	c.HTTP.ShutdownTimeout = orDuration(c.HTTP.ShutdownTimeout, 15*time.Second)

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}

	if c.Webhook.MaxBodyBytes <= 0 {
		c.Webhook.MaxBodyBytes = 64 << 10
	}
	c.Webhook.LockTTL = orDuration(c.Webhook.LockTTL, 2*time.Minute)
	c.Webhook.RateWindow = orDuration(c.Webhook.RateWindow, time.Minute)

	if c.Billing.HoldDays <= 0 {
		c.Billing.HoldDays = 30
	}
	if c.Billing.Workers <= 0 {
		c.Billing.Workers = 4
	}
	if c.Billing.QueueSize <= 0 {
		c.Billing.QueueSize = 256
	}
	c.Billing.SideEffectTimeout = orDuration(c.Billing.SideEffectTimeout, 30*time.Second)

	if c.Mail.Port == 0 {
		c.Mail.Port = 587
	}
	c.Gateway.Timeout = orDuration(c.Gateway.Timeout, 10*time.Second)
	c.CRM.Timeout = orDuration(c.CRM.Timeout, 10*time.Second)
	c.Workspace.Timeout = orDuration(c.Workspace.Timeout, 30*time.Second)
	c.Security.SetupTokenTTL = orDuration(c.Security.SetupTokenTTL, 72*time.Hour)

	c.Scheduler.ReleaseInterval = orDuration(c.Scheduler.ReleaseInterval, time.Hour)
	if c.Scheduler.ReleaseBatch <= 0 {
		c.Scheduler.ReleaseBatch = 500
	}
	c.Scheduler.BackfillInterval = orDuration(c.Scheduler.BackfillInterval, 10*time.Minute)
	c.Scheduler.BackfillMinAge = orDuration(c.Scheduler.BackfillMinAge, 5*time.Minute)
	c.Scheduler.PoolStatsEvery = orDuration(c.Scheduler.PoolStatsEvery, 15*time.Second)
}

// Minimal validation
func (c *Config) validate() error {
	if c.Database.URL == "" {
		return errors.New("database.url is required")
	}
	if c.Security.SetupTokenSecret == "" {
		return errors.New("security.setup_token_secret is required")
	}
	if c.Mail.Host != "" && c.Mail.From == "" {
		return errors.New("mail.from is required when mail.host is set")
	}
	if c.Alerts.Telegram.Token != "" && len(c.Alerts.Telegram.ChatIDs) == 0 {
		return errors.New("alerts.telegram.chat_ids is required when a token is set")
	}
	return nil
}

func orDuration(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
