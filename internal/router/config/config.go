package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config - структура для хранения конфигураций приложения
type Config struct {
	ServerAddress        string        `mapstructure:"SERVER_ADDRESS"`
	PostgresConn         string        `mapstructure:"POSTGRES_CONN"`
	PostgresURL          string        `mapstructure:"POSTGRES_JDBC_URL"`
	PostgresUser         string        `mapstructure:"POSTGRES_USERNAME"`
	PostgresPass         string        `mapstructure:"POSTGRES_PASSWORD"`
	PostgresHost         string        `mapstructure:"POSTGRES_HOST"`
	PostgresPort         string        `mapstructure:"POSTGRES_PORT"`
	PostgresDB           string        `mapstructure:"POSTGRES_DATABASE"`
	MigrationURL         string        `mapstructure:"MIGRATION_URL"`
	PlatformFeeBps       int64         `mapstructure:"PLATFORM_FEE_BPS"`
	TokenPriceCents      int64         `mapstructure:"TOKEN_PRICE_CENTS"`
	GatewayBaseURL       string        `mapstructure:"GATEWAY_BASE_URL"`
	GatewaySecretKey     string        `mapstructure:"GATEWAY_SECRET_KEY"`
	GatewayWebhookSecret string        `mapstructure:"GATEWAY_WEBHOOK_SECRET"`
	GatewayTimeout       time.Duration `mapstructure:"GATEWAY_TIMEOUT"`
	FrontendURL          string        `mapstructure:"FRONTEND_URL"`
}

// LoadConfig загружает конфигурацию из файла
func LoadConfig(path string) (cfg Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("app")
	viper.SetConfigType("env")

	// комиссия платформы в базисных пунктах: 500 = 5%
	viper.SetDefault("PLATFORM_FEE_BPS", 500)
	// 1 токен = $0.10, курс применяется только на границе со шлюзом
	viper.SetDefault("TOKEN_PRICE_CENTS", 10)
	viper.SetDefault("GATEWAY_TIMEOUT", "5s")
	viper.SetDefault("FRONTEND_URL", "http://localhost:5173")

	err = viper.ReadInConfig()
	if err != nil {
		return
	}
	err = viper.Unmarshal(&cfg)
	return
}
