package main

import (
	"github.com/sherifabdlnaby/configuro"
)

// Config values can be set using either environment variables with `CONFIG_`
// prefix or config.yml file placed in working directory.
// See https://github.com/sherifabdlnaby/configuro.
type Config struct {
	Logging  Logging
	Database Database
	Server   Server
	Binance  Binance
	Paper    Paper
	Risk     Risk
	Worker   Worker
}

type Logging struct {
	Level  string
	Format string
}

type Database struct {
	Enabled      bool
	Address      string
	User         string
	Password     string
	Name         string
	SSLMode      string
	MigrationDir string
}

type Server struct {
	Port string
	Tier string
}

type Binance struct {
	ApiKey    string
	SecretKey string
}

type Paper struct {
	SeedAmount  float64
	QuoteAssets []string
}

type Risk struct {
	InitialEquity      float64
	MaxPositionSize    float64
	MaxDailyLoss       float64
	MaxDrawdown        float64
	MaxOpenPositions   int
	MinRiskRewardRatio float64
}

type Worker struct {
	Enabled      bool
	UserID       string
	Tier         string
	Pairs        []string
	SizingMethod string
	RiskPercent  float64
	OrderAmount  float64
}

func readConfig() (*Config, error) {
	loader, err := configuro.NewConfig()
	if err != nil {
		return nil, err
	}

	// Default config values.
	config := &Config{
		Logging: Logging{
			Level: "info",
		},
		Database: Database{
			Address:  "localhost:5432",
			User:     "postgres",
			Password: "postgres",
			Name:     "postgres",
			SSLMode:  "disable",
		},
		Server: Server{
			Port: "8080",
			Tier: "free",
		},
		Paper: Paper{
			SeedAmount:  100000,
			QuoteAssets: []string{"USDT"},
		},
		Risk: Risk{
			InitialEquity:      100000,
			MaxPositionSize:    0.1,
			MaxDailyLoss:       0.05,
			MaxDrawdown:        0.2,
			MaxOpenPositions:   5,
			MinRiskRewardRatio: 1.5,
		},
		Worker: Worker{
			Tier:         "free",
			SizingMethod: "fixed_percentage",
			RiskPercent:  0.02,
		},
	}

	err = loader.Load(config)
	if err != nil {
		return nil, err
	}

	err = loader.Validate(config)
	if err != nil {
		return nil, err
	}

	return config, nil
}
