package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"rssreader/internal/i18n"
)

// Config представляет основную конфигурацию приложения.
// Содержит настройки сервера, логгера, движка агрегации, ретранслятора и архива.
type Config struct {
	Server   ServerConfig   `json:"server" yaml:"server" toml:"server"`
	Logger   LoggerConfig   `json:"logger" yaml:"logger" toml:"logger"`
	App      AppConfig      `json:"app" yaml:"app" toml:"app"`
	Relay    RelayConfig    `json:"relay" yaml:"relay" toml:"relay"`
	Database DatabaseConfig `json:"database" yaml:"database" toml:"database"`
}

// ServerConfig содержит настройки HTTP-сервера приложения.
type ServerConfig struct {
	Address string `json:"address" yaml:"address" toml:"address"`
}

// LoggerConfig содержит настройки системы логирования.
// Пустые File и ErrorFile означают вывод в stdout и stderr.
type LoggerConfig struct {
	Level     string `json:"level" yaml:"level" toml:"level"`
	File      string `json:"file" yaml:"file" toml:"file"`
	ErrorFile string `json:"error_file" yaml:"error_file" toml:"error_file"`
}

// AppConfig содержит настройки движка агрегации.
type AppConfig struct {
	UpdateInterval string   `json:"update_interval" yaml:"update_interval" toml:"update_interval"`
	FetchTimeout   string   `json:"fetch_timeout" yaml:"fetch_timeout" toml:"fetch_timeout"`
	Locale         string   `json:"locale" yaml:"locale" toml:"locale"`
	Feeds          []string `json:"feeds" yaml:"feeds" toml:"feeds"`
}

// RelayConfig описывает ретранслятор, через который загружаются документы лент.
type RelayConfig struct {
	BaseURL string `json:"base_url" yaml:"base_url" toml:"base_url"`
}

// DatabaseConfig содержит параметры подключения к PostgreSQL для архива записей.
// Архив выключен, пока Enabled равен false.
type DatabaseConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled" toml:"enabled"`
	Host     string `json:"host" yaml:"host" toml:"host"`
	Port     int    `json:"port" yaml:"port" toml:"port"`
	Username string `json:"username" yaml:"username" toml:"username"`
	Password string `json:"password" yaml:"password" toml:"password"`
	DBName   string `json:"dbname" yaml:"dbname" toml:"dbname"`
	SSLMode  string `json:"sslmode" yaml:"sslmode" toml:"sslmode"`
}

// DSN возвращает строку подключения к PostgreSQL в формате URI.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(c.Username),
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		c.DBName,
		c.SSLMode)
}

// Load загружает конфигурацию из файла по указанному пути.
// Формат определяется расширением: .json, .yaml/.yml или .toml.
// Пустой путь возвращает конфигурацию по умолчанию.
func Load(configPath string) (*Config, error) {
	cfg := New()
	if configPath == "" {
		return cfg, nil
	}
	fileData, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}
	switch ext := strings.ToLower(filepath.Ext(configPath)); ext {
	case ".json":
		err = json.Unmarshal(fileData, cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(fileData, cfg)
	case ".toml":
		err = toml.Unmarshal(fileData, cfg)
	default:
		return nil, fmt.Errorf("unsupported config format %q for file %s", ext, configPath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}
	return cfg, nil
}

// New создает новый экземпляр Config со значениями по умолчанию.
func New() *Config {
	return &Config{
		Server: ServerConfig{
			Address: ":8080",
		},
		Logger: LoggerConfig{
			Level: "info",
		},
		App: AppConfig{
			UpdateInterval: "5s",
			FetchTimeout:   "10s",
			Locale:         "en",
			Feeds:          []string{},
		},
		Relay: RelayConfig{
			BaseURL: "https://allorigins.hexlet.app/get",
		},
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    5432,
			SSLMode: "disable",
		},
	}
}

// Validate проверяет корректность конфигурации.
// Возвращает ошибку с описанием первой найденной проблемы.
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("server.address is not set")
	}
	interval, err := time.ParseDuration(c.App.UpdateInterval)
	if err != nil {
		return fmt.Errorf("invalid app.update_interval: %w", err)
	}
	if interval <= 0 {
		return fmt.Errorf("app.update_interval must be positive")
	}
	timeout, err := time.ParseDuration(c.App.FetchTimeout)
	if err != nil {
		return fmt.Errorf("invalid app.fetch_timeout: %w", err)
	}
	if timeout <= 0 {
		return fmt.Errorf("app.fetch_timeout must be positive")
	}
	if !i18n.Supported(c.App.Locale) {
		return fmt.Errorf("unsupported app.locale: %q", c.App.Locale)
	}
	for _, feed := range c.App.Feeds {
		if _, err := url.ParseRequestURI(feed); err != nil {
			return fmt.Errorf("invalid url in app.feeds: %s", feed)
		}
	}
	relay, err := url.ParseRequestURI(c.Relay.BaseURL)
	if err != nil || relay.Host == "" {
		return fmt.Errorf("invalid relay.base_url: %q", c.Relay.BaseURL)
	}
	if c.Database.Enabled {
		if c.Database.Host == "" {
			return fmt.Errorf("database host is not set")
		}
		if c.Database.Username == "" {
			return fmt.Errorf("database username is not set")
		}
		if c.Database.DBName == "" {
			return fmt.Errorf("database name is not set")
		}
	}
	return nil
}

// UpdateInterval возвращает разобранный интервал между циклами обновления.
// Вызывать после Validate.
func (c *Config) UpdateInterval() time.Duration {
	d, _ := time.ParseDuration(c.App.UpdateInterval)
	return d
}

// FetchTimeout возвращает разобранный таймаут одной загрузки.
func (c *Config) FetchTimeout() time.Duration {
	d, _ := time.ParseDuration(c.App.FetchTimeout)
	return d
}
