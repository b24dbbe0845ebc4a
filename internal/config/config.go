/**
 * @description
 * This package handles the configuration management for the service. It uses the
 * Viper library to read configuration from environment variables, providing a
 * centralized and straightforward way to manage application settings.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the open banking service.
// These values are loaded from environment variables.
type Config struct {
	ServerPort                 string `mapstructure:"SERVER_PORT"`
	DatabaseURL                string `mapstructure:"DATABASE_URL"`
	RedisURL                   string `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix       string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	RabbitMQURL                string `mapstructure:"RABBITMQ_URL"`
	InternalAPIKey             string `mapstructure:"INTERNAL_API_KEY"`
	BlockedCurrencies          string `mapstructure:"BLOCKED_CURRENCIES"`
	PaymentRateLimitPerMinute  int    `mapstructure:"PAYMENT_RATE_LIMIT_PER_MINUTE"`
	ScheduledPaymentJobEnabled bool   `mapstructure:"SCHEDULED_PAYMENT_JOB_ENABLED"`
	ScheduledPaymentJobCron    string `mapstructure:"SCHEDULED_PAYMENT_JOB_CRON"`
}

// BlockedCurrencyList splits the comma-separated BLOCKED_CURRENCIES value
// into normalized uppercase codes, dropping empty entries.
func (c Config) BlockedCurrencyList() []string {
	parts := strings.Split(c.BlockedCurrencies, ",")
	currencies := make([]string, 0, len(parts))
	for _, part := range parts {
		code := strings.ToUpper(strings.TrimSpace(part))
		if code != "" {
			currencies = append(currencies, code)
		}
	}
	return currencies
}

// LoadConfig reads configuration from environment variables from the given path.
// It uses Viper to automatically bind environment variables to the Config struct.
func LoadConfig(path string) (config Config, err error) {
	// Tell viper the path to look for the optional .env file.
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	// Enable automatic binding of environment variables.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "openbanking:rate_limit")
	viper.SetDefault("BLOCKED_CURRENCIES", "RUB,SYP,IRR,VES,SDG,CUP")
	viper.SetDefault("PAYMENT_RATE_LIMIT_PER_MINUTE", 60)
	viper.SetDefault("SCHEDULED_PAYMENT_JOB_ENABLED", true)
	viper.SetDefault("SCHEDULED_PAYMENT_JOB_CRON", "*/1 * * * *")

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("INTERNAL_API_KEY", "INTERNAL_API_KEY", "OPENBANKING_SERVICE_INTERNAL_API_KEY")
	_ = viper.BindEnv("BLOCKED_CURRENCIES")
	_ = viper.BindEnv("PAYMENT_RATE_LIMIT_PER_MINUTE")
	_ = viper.BindEnv("SCHEDULED_PAYMENT_JOB_ENABLED")
	_ = viper.BindEnv("SCHEDULED_PAYMENT_JOB_CRON")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		// If the config file is not found, we can ignore the error.
		// For other errors, we should return them.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	// Unmarshal the configuration into the Config struct.
	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}
	if strings.TrimSpace(config.InternalAPIKey) == "" {
		config.InternalAPIKey = strings.TrimSpace(os.Getenv("OPENBANKING_SERVICE_INTERNAL_API_KEY"))
	}
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RedisRateLimitPrefix = strings.TrimSpace(config.RedisRateLimitPrefix)
	if config.RedisRateLimitPrefix == "" {
		config.RedisRateLimitPrefix = "openbanking:rate_limit"
	}

	if config.PaymentRateLimitPerMinute < 0 {
		log.Printf("level=warn component=config msg=\"negative payment rate limit configured; coercing to zero\" limit=%d", config.PaymentRateLimitPerMinute)
		config.PaymentRateLimitPerMinute = 0
	}
	if strings.TrimSpace(config.ScheduledPaymentJobCron) == "" {
		config.ScheduledPaymentJobCron = "*/1 * * * *"
	}

	return
}
