package main

import (
	"log"

	"github.com/alecthomas/kong"

	"rssreader/internal/app"
	"rssreader/internal/config"
)

// CLI описывает флаги командной строки. Флаги перекрывают значения из файла конфигурации.
type CLI struct {
	Config   string   `kong:"help='Path to config file (.json, .yaml, .yml or .toml)',short='c',type='path'"`
	Feed     []string `kong:"help='Feed URL to register at startup (repeatable)',short='f',sep='none'"`
	Locale   string   `kong:"help='Message locale (en, ru)'"`
	LogLevel string   `kong:"help='Log level (debug, info, warn, error)'"`
	Address  string   `kong:"help='HTTP listen address, e.g. :8080'"`
}

func (c *CLI) apply(cfg *config.Config) {
	if c.Locale != "" {
		cfg.App.Locale = c.Locale
	}
	if c.LogLevel != "" {
		cfg.Logger.Level = c.LogLevel
	}
	if c.Address != "" {
		cfg.Server.Address = c.Address
	}
	cfg.App.Feeds = append(cfg.App.Feeds, c.Feed...)
}

func main() {
	var cli CLI
	kong.Parse(&cli,
		kong.Name("rssreader"),
		kong.Description("RSS feed aggregation engine with a JSON and websocket API."),
		kong.UsageOnError(),
	)
	cfg, err := config.Load(cli.Config)
	if err != nil {
		log.Fatalf("FATAL: could not load config: %v", err)
	}
	cli.apply(cfg)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("FATAL: invalid config: %v", err)
	}
	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("FATAL: could not init app: %v", err)
	}
	if err := application.Run(); err != nil {
		log.Fatalf("FATAL: %v", err)
	}
}
