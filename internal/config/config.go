// Package config загружает конфигурацию сервера из YAML-файла.
// Все секреты (token secret, custody passphrase) живут только в Config и
// передаются конструкторам явно; package-level состояния нет.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// EnvConfigPath — переменная окружения с путем до конфигурации
	EnvConfigPath = "CFG_PATH"
	// DefaultPath используется, если переменная не задана
	DefaultPath = "etc/default.yml"

	defaultEnv          = "dev"
	defaultListenAddr   = "localhost:8080"
	defaultDatabasePath = "chatrelay.db"
	defaultTokenTTL     = 24 * time.Hour
	defaultPollInterval = time.Second
)

// Duration оборачивает time.Duration для разбора YAML-строк вида "1s", "24h"
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std возвращает обычный time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config содержит настройки сервера
type Config struct {
	Env               string   `yaml:"env"`                // имя окружения, попадает в /status
	ListenAddr        string   `yaml:"listen_addr"`        // адрес HTTP+WS сервера
	DatabasePath      string   `yaml:"database_path"`      // путь до SQLite файла
	TokenSecret       string   `yaml:"token_secret"`       // server-wide секрет bearer-токенов
	TokenTTL          Duration `yaml:"token_ttl"`          // срок жизни токена
	CustodyPassphrase string   `yaml:"custody_passphrase"` // passphrase приватных custody-ключей
	PollInterval      Duration `yaml:"poll_interval"`      // период delivery-цикла relay
}

// fileFormat — ожидаемая форма YAML-файла: все настройки под ключом chatrelay
type fileFormat struct {
	Chatrelay yaml.Node `yaml:"chatrelay"`
}

// Load читает конфигурацию из указанного файла
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var file fileFormat
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if file.Chatrelay.IsZero() {
		return nil, fmt.Errorf("incorrect configuration file: missing chatrelay section")
	}

	cfg := &Config{
		Env:          defaultEnv,
		ListenAddr:   defaultListenAddr,
		DatabasePath: defaultDatabasePath,
		TokenTTL:     Duration(defaultTokenTTL),
		PollInterval: Duration(defaultPollInterval),
	}
	if err := file.Chatrelay.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromEnv читает конфигурацию из файла, указанного в CFG_PATH
func LoadFromEnv() (*Config, error) {
	path := os.Getenv(EnvConfigPath)
	if path == "" {
		path = DefaultPath
	}
	return Load(path)
}

func (c *Config) validate() error {
	if c.TokenSecret == "" {
		return fmt.Errorf("token_secret must be set")
	}
	if c.CustodyPassphrase == "" {
		return fmt.Errorf("custody_passphrase must be set")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive")
	}
	return nil
}
