// Package config loads runtime settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`

	HTTP      HTTPConfig      `envconfig:"HTTP"`
	Redis     RedisConfig     `envconfig:"REDIS"`
	Session   SessionConfig   `envconfig:"SESSION"`
	Digisac   DigisacConfig   `envconfig:"DIGISAC"`
	Parana    ParanaConfig    `envconfig:"PARANA"`
	Facta     FactaConfig     `envconfig:"FACTA"`
	Newcorban NewcorbanConfig `envconfig:"NEWCORBAN"`
}

// HTTPConfig configures the webhook server.
type HTTPConfig struct {
	Addr           string        `envconfig:"ADDR" default:":3000"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"5m"`
}

// RedisConfig configures the session store. URL wins over host/port.
type RedisConfig struct {
	URL             string        `envconfig:"URL"`
	Host            string        `envconfig:"HOST" default:"localhost"`
	Port            int           `envconfig:"PORT" default:"6379"`
	DB              int           `envconfig:"DB" default:"0"`
	Password        string        `envconfig:"PASSWORD"`
	Prefix          string        `envconfig:"PREFIX" default:"funil:"`
	DistributedLock bool          `envconfig:"DISTRIBUTED_LOCK" default:"true"`
	LockTTL         time.Duration `envconfig:"LOCK_TTL" default:"5m"`
}

// Addr returns host:port.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// SessionConfig controls session persistence.
type SessionConfig struct {
	TTL time.Duration `envconfig:"TTL" default:"0"`
	// EncryptionKey is base64 of 32 bytes. Empty disables encryption.
	EncryptionKey string `envconfig:"ENCRYPTION_KEY"`
	// FallbackKeys are previous keys still accepted for reading.
	FallbackKeys []string `envconfig:"FALLBACK_KEYS"`
}

// Keys decodes the encryption keys. The first return is nil when
// encryption is disabled.
func (s SessionConfig) Keys() ([]byte, [][]byte, error) {
	if s.EncryptionKey == "" {
		return nil, nil, nil
	}
	active, err := base64.StdEncoding.DecodeString(s.EncryptionKey)
	if err != nil {
		return nil, nil, fmt.Errorf("SESSION_ENCRYPTION_KEY: %w", err)
	}
	var fallback [][]byte
	for i, k := range s.FallbackKeys {
		key, err := base64.StdEncoding.DecodeString(k)
		if err != nil {
			return nil, nil, fmt.Errorf("SESSION_FALLBACK_KEYS[%d]: %w", i, err)
		}
		fallback = append(fallback, key)
	}
	return active, fallback, nil
}

// DigisacConfig configures the messaging platform.
type DigisacConfig struct {
	URL          string `envconfig:"URL"`
	ServiceID    string `envconfig:"SERVICE_ID"`
	Token        string `envconfig:"TOKEN"`
	DepartmentID string `envconfig:"DEPARTMENT_ID" default:"b17ee5c5-3ae8-4add-b0b7-c887cec43bbd"`
	// AuthorizeImage is sent along with the first authorization prompt.
	AuthorizeImage string `envconfig:"AUTHORIZE_IMAGE"`
	// Copy overrides the embedded message catalog.
	Copy string `envconfig:"COPY_FILE"`
}

// ParanaConfig holds balance provider A credentials.
type ParanaConfig struct {
	BaseURL      string `envconfig:"BASE_URL" default:"https://api-marketplace.paranabanco.com.br"`
	ClientID     string `envconfig:"CLIENT_ID"`
	ClientSecret string `envconfig:"CLIENT_SECRET"`
	Username     string `envconfig:"USERNAME"`
	Password     string `envconfig:"PASSWORD"`
}

// FactaConfig holds balance provider B credentials.
type FactaConfig struct {
	BaseURL string `envconfig:"BASE_URL" default:"https://webservice.facta.com.br"`
	// Credentials is "user:password", sent as HTTP Basic.
	Credentials      string `envconfig:"CREDENTIALS"`
	LoginCertificado string `envconfig:"LOGIN_CERTIFICADO"`
	Email            string `envconfig:"EMAIL"`
}

// NewcorbanConfig holds proposal backend credentials. The system
// credentials drive client lookups; the API credentials go into proposals.
type NewcorbanConfig struct {
	SystemURL   string `envconfig:"SYSTEM_URL" default:"https://server.newcorban.com.br"`
	APIURL      string `envconfig:"API_URL" default:"https://api.newcorban.com.br"`
	Token       string `envconfig:"TOKEN"`
	Username    string `envconfig:"USERNAME"`
	Password    string `envconfig:"PASSWORD"`
	APIUsername string `envconfig:"API_USERNAME"`
	APIPassword string `envconfig:"API_PASSWORD"`
	BanksURL    string `envconfig:"BANKS_URL" default:"https://brasilapi.com.br"`
}

// Load exports envFile (when set, or ./.env when present) into the process
// environment and then decodes the environment into a Config.
func Load(envFile string) (*Config, error) {
	envFile = strings.TrimSpace(envFile)
	if envFile != "" {
		if err := exportEnvironment(envFile); err != nil {
			return nil, fmt.Errorf("failed to load env file: %w", err)
		}
	} else if err := exportEnvironmentIfExists(".env"); err != nil {
		return nil, fmt.Errorf("failed to load default env file: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings needed to serve traffic.
func (c *Config) Validate() error {
	var errs []error
	require := func(name, value string) {
		if strings.TrimSpace(value) == "" {
			errs = append(errs, fmt.Errorf("%s is required", name))
		}
	}
	require("DIGISAC_URL", c.Digisac.URL)
	require("DIGISAC_SERVICE_ID", c.Digisac.ServiceID)
	require("DIGISAC_TOKEN", c.Digisac.Token)
	require("PARANA_CLIENT_ID", c.Parana.ClientID)
	require("FACTA_CREDENTIALS", c.Facta.Credentials)
	require("NEWCORBAN_USERNAME", c.Newcorban.Username)
	require("NEWCORBAN_PASSWORD", c.Newcorban.Password)

	if c.Facta.Credentials != "" && !strings.Contains(c.Facta.Credentials, ":") {
		errs = append(errs, errors.New("FACTA_CREDENTIALS must be user:password"))
	}
	if active, _, err := c.Session.Keys(); err != nil {
		errs = append(errs, err)
	} else if active != nil && len(active) != 32 {
		errs = append(errs, errors.New("SESSION_ENCRYPTION_KEY must decode to 32 bytes"))
	}
	return errors.Join(errs...)
}

func exportEnvironmentIfExists(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if info.IsDir() {
		return nil
	}
	return exportEnvironment(path)
}

// exportEnvironment copies the file's keys into the environment. Variables
// already set in the environment win.
func exportEnvironment(path string) error {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return err
	}

	for k, val := range v.AllSettings() {
		key := strings.ToUpper(k)
		if _, ok := os.LookupEnv(key); ok {
			continue
		}
		if err := os.Setenv(key, fmt.Sprint(val)); err != nil {
			return err
		}
	}
	return nil
}
