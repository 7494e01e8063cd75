package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config holds the configuration for the application.
type Config struct {
	Server struct {
		Port    int    `mapstructure:"port"`
		BaseURL string `mapstructure:"base_url"`
	} `mapstructure:"server"`
	DB struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
		SSLMode  string `mapstructure:"sslmode"`
	} `mapstructure:"db"`
	AIProvider struct {
		URL     string        `mapstructure:"url"`
		Timeout time.Duration `mapstructure:"timeout"`
	} `mapstructure:"ai_provider"`
	Notifications struct {
		WebhookURL string `mapstructure:"webhook_url"`
	} `mapstructure:"notifications"`
	Actions struct {
		URL string `mapstructure:"url"`
	} `mapstructure:"actions"`
	Engine struct {
		MaxRetries        int           `mapstructure:"max_retries"`
		InitialDelay      time.Duration `mapstructure:"initial_delay"`
		BackoffMultiplier float64       `mapstructure:"backoff_multiplier"`
	} `mapstructure:"engine"`
	TLS struct {
		Enable    bool     `mapstructure:"enable"`
		CertFile  string   `mapstructure:"cert_file"`
		KeyFile   string   `mapstructure:"key_file"`
		Hostnames []string `mapstructure:"hostnames"`
	} `mapstructure:"tls"`
}

// LoadConfig loads the configuration from a file and the environment.
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		// config file is optional; defaults plus env cover local runs
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.base_url", "http://localhost:8080")
	viper.SetDefault("db.port", 5432)
	viper.SetDefault("db.sslmode", "disable")
	viper.SetDefault("ai_provider.timeout", 30*time.Second)
	viper.SetDefault("engine.max_retries", 3)
	viper.SetDefault("engine.initial_delay", time.Second)
	viper.SetDefault("engine.backoff_multiplier", 2.0)
}
