package storage

import (
	"fmt"

	"github.com/spf13/viper"
)

// Значения по умолчанию для политики приёма файлов.
const (
	DefaultMaxFileSize = 5 * 1024 * 1024 // 5MB лимит на файл
)

// DefaultAllowedTypes — разрешены только PDF и изображения.
var DefaultAllowedTypes = []string{
	"application/pdf",
	"image/jpeg",
	"image/png",
	"image/jpg",
}

type Config struct {
	Dir          string `mapstructure:"STORAGE_DIR"`
	MaxFileSize  int64
	AllowedTypes []string
}

func NewConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.BindEnv("STORAGE_DIR", "STORAGE_DIR")

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("Warning: using only environment variables: %v\n", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("cannot unmarshal config: %w", err)
	}

	if cfg.Dir == "" {
		cfg.Dir = v.GetString("STORAGE_DIR")
	}
	if cfg.Dir == "" {
		cfg.Dir = "uploads"
	}

	cfg.MaxFileSize = DefaultMaxFileSize
	cfg.AllowedTypes = DefaultAllowedTypes

	return &cfg, nil
}
