package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Mode        string        `mapstructure:"mode"`
	Port        int           `mapstructure:"port"`
	DatabaseDSN string        `mapstructure:"database_dsn"`
	ReadLimit   int64         `mapstructure:"read_limit"`
	PingPeriod  time.Duration `mapstructure:"ping_period"`
	SendBuffer  int           `mapstructure:"send_buffer"`
	MsgRate     float64       `mapstructure:"msg_rate"`
	MsgBurst    int           `mapstructure:"msg_burst"`
}

func Load() (*Config, error) {
	// Secrets like the DSN usually live in .env; missing file is fine.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("database_dsn", "")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("send_buffer", 32)
	v.SetDefault("msg_rate", 20.0)
	v.SetDefault("msg_burst", 40)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("config file not found (%s), using defaults\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
