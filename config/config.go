// Package config loads crmd settings from an optional YAML file and the environment.
package config

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
	"github.com/sirupsen/logrus"
)

const maxConfigFileSize = 1024 * 1024 // 1MB

/*
	Config keys are the lower-cased environment variable names, so REDIS_HOST in the environment and
	redis_host in the YAML file set the same field. Booleans accept 1/0 as well as true/false.
*/
type Config struct {
	RedisHost     string `koanf:"redis_host"`
	RedisPort     int    `koanf:"redis_port"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`

	HTTPAddr string `koanf:"http_addr"`

	TencentSecretID  string `koanf:"tencent_secret_id"`
	TencentSecretKey string `koanf:"tencent_secret_key"`
	SMSSdkAppID      string `koanf:"sms_sdk_app_id"`
	SMSTemplateID    string `koanf:"sms_template_id"`
	SMSSignName      string `koanf:"sms_sign_name"`
	SMSRegion        string `koanf:"sms_region"`

	EnableSMS          bool `koanf:"enable_sms"`
	AllowOTPInResponse bool `koanf:"allow_otp_in_response"`
	TrustProxyHeaders  bool `koanf:"trust_proxy_headers"`

	DatabaseURL    string `koanf:"database_url"`
	BackupSchedule string `koanf:"backup_schedule"`

	LogLevel     string `koanf:"log_level"`
	LogFormat    string `koanf:"log_format"`
	StorageDebug bool   `koanf:"storage_debug"`
}

// Load reads path (if not empty) and then the environment, which wins
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		content, err := readFile(path)
		if err != nil {
			return nil, err
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", strings.ToLower), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	content, err := io.ReadAll(io.LimitReader(f, maxConfigFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if len(content) > maxConfigFileSize {
		return nil, fmt.Errorf("config file %s is larger than %d bytes", path, maxConfigFileSize)
	}
	return content, nil
}

func applyDefaults(cfg *Config) {
	if cfg.RedisHost == "" {
		cfg.RedisHost = "localhost"
	}
	if cfg.RedisPort == 0 {
		cfg.RedisPort = 6379
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":3000"
	}
	if cfg.SMSRegion == "" {
		cfg.SMSRegion = "ap-guangzhou"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
}

func (c *Config) Validate() error {
	if c.RedisPort < 1 || c.RedisPort > 65535 {
		return fmt.Errorf("redis_port %d out of range", c.RedisPort)
	}
	if c.RedisDB < 0 {
		return fmt.Errorf("redis_db cannot be negative")
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("log_format must be text or json, got %q", c.LogFormat)
	}
	if c.BackupSchedule != "" && c.DatabaseURL == "" {
		return fmt.Errorf("backup_schedule needs database_url")
	}
	return nil
}

// RedisAddr is host:port for the redis client
func (c *Config) RedisAddr() string {
	return c.RedisHost + ":" + strconv.Itoa(c.RedisPort)
}

// SMSEnabled mirrors the gateway switch: explicitly enabled, or credentials present
func (c *Config) SMSEnabled() bool {
	return c.EnableSMS || c.TencentSecretID != ""
}

// ConfigureLogger applies the level and format to l
func (c *Config) ConfigureLogger(l *logrus.Logger) error {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return err
	}
	l.SetLevel(level)

	if c.LogFormat == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return nil
}
