package auth

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Secret string `mapstructure:"JWT_SECRET"`
}

func NewConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.BindEnv("JWT_SECRET", "JWT_SECRET")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("Warning: using only environment variables: %v\n", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("cannot unmarshal config: %w", err)
	}
	if cfg.Secret == "" {
		cfg.Secret = v.GetString("JWT_SECRET")
	}
	if cfg.Secret == "" {
		return nil, fmt.Errorf("auth configuration is incomplete: JWT_SECRET is empty")
	}

	return &cfg, nil
}
