package config

import (
	"fmt"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the runtime configuration of the storefront service.
type Config struct {
	AppPort      string
	LogLevel     string
	DBDriver     string
	DatabaseDSN  string
	JWTSecret    string
	RabbitMQURL  string
	SeedDemoData bool
	VNPay        VNPayConfig
}

// VNPayConfig holds the merchant credentials for the redirect payment provider.
type VNPayConfig struct {
	TmnCode    string
	HashSecret string
	PayURL     string
	ReturnURL  string
}

// Enabled reports whether redirect payments can be offered.
func (c VNPayConfig) Enabled() bool {
	return c.TmnCode != "" && c.HashSecret != "" && c.PayURL != ""
}

// Load reads an optional .env file and then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded, using environment", "error", err)
	}
	return FromViper(viper.New())
}

// FromViper applies defaults and environment bindings to v and builds a Config.
func FromViper(v *viper.Viper) (*Config, error) {
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_DRIVER", "sqlite")
	v.SetDefault("DATABASE_DSN", "storefront.db")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("SEED_DEMO_DATA", false)
	v.SetDefault("VNPAY_TMN_CODE", "")
	v.SetDefault("VNPAY_HASH_SECRET", "")
	v.SetDefault("VNPAY_PAY_URL", "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html")
	v.SetDefault("VNPAY_RETURN_URL", "http://localhost:8080/order/confirmvnpay")
	v.AutomaticEnv()

	cfg := &Config{
		AppPort:      v.GetString("APP_PORT"),
		LogLevel:     v.GetString("LOG_LEVEL"),
		DBDriver:     v.GetString("DB_DRIVER"),
		DatabaseDSN:  v.GetString("DATABASE_DSN"),
		JWTSecret:    v.GetString("JWT_SECRET"),
		RabbitMQURL:  v.GetString("RABBITMQ_URL"),
		SeedDemoData: v.GetBool("SEED_DEMO_DATA"),
		VNPay: VNPayConfig{
			TmnCode:    v.GetString("VNPAY_TMN_CODE"),
			HashSecret: v.GetString("VNPAY_HASH_SECRET"),
			PayURL:     v.GetString("VNPAY_PAY_URL"),
			ReturnURL:  v.GetString("VNPAY_RETURN_URL"),
		},
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("missing required env JWT_SECRET")
	}
	return cfg, nil
}
