// Package config содержит логику чтения конфигурации бота.
package config

import (
	"flag"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации бота. Пороги розыгрыша задаются
// только здесь: код нигде их не перевычисляет.
type Config struct {
	DiscordToken     string `env:"DISCORD_TOKEN"`
	DatabaseURI      string `env:"DATABASE_URI"`
	GuildID          string `env:"GUILD_ID"`
	OpsAddress       string `env:"OPS_ADDRESS"`
	TranslateAddress string `env:"TRANSLATE_ADDRESS"`

	PointEmoji string `env:"POINT_EMOJI" envDefault:"waiwai"`
	CandyEmoji string `env:"CANDY_EMOJI" envDefault:"candy"`

	DrawCost    int64 `env:"DRAW_COST" envDefault:"1"`
	DrawCeiling int64 `env:"DRAW_CEILING" envDefault:"10000"`

	PointJackpotThreshold int64 `env:"POINT_JACKPOT_THRESHOLD" envDefault:"100"`
	PointHitThreshold     int64 `env:"POINT_HIT_THRESHOLD" envDefault:"1000"`
	CandyJackpotThreshold int64 `env:"CANDY_JACKPOT_THRESHOLD" envDefault:"200"`
	CandyHitThreshold     int64 `env:"CANDY_HIT_THRESHOLD" envDefault:"2000"`

	GrantTTLDays int `env:"GRANT_TTL_DAYS" envDefault:"30"`
	ItemTTLDays  int `env:"ITEM_TTL_DAYS" envDefault:"30"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envToken := cfg.DiscordToken
	envDatabaseURI := cfg.DatabaseURI
	envOpsAddress := cfg.OpsAddress

	flag.StringVar(&cfg.DiscordToken, "t", "", "discord bot token")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.OpsAddress, "a", "localhost:9090", "address and port for ops HTTP server")

	flag.Parse()

	if envToken != "" {
		cfg.DiscordToken = envToken
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envOpsAddress != "" {
		cfg.OpsAddress = envOpsAddress
	}

	if cfg.OpsAddress == "" {
		cfg.OpsAddress = "localhost:9090"
	}

	if cfg.DiscordToken == "" {
		return nil, fmt.Errorf("discord token is required")
	}
	if cfg.DatabaseURI == "" {
		return nil, fmt.Errorf("database URI is required")
	}

	return cfg, nil
}
