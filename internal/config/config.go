package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	DB       *DBconfig
	Redis    *Redisconfig
	RabbitMq *RabbitMqconfig
	Srv      *Serviceconfig
	Auth     *Authconfig
	Log      *Loggerconfig
}

type DBconfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	MaxConns int32
}

type Redisconfig struct {
	Addr string
}

type RabbitMqconfig struct {
	Host     string
	Port     int
	User     string
	Password string
	VHost    string
}

type Serviceconfig struct {
	DispatchServicePort string
	FleetServicePort    string
	// geo index backend: "memory" or "redis"
	GeoBackend string
}

type Authconfig struct {
	JwtSecret string
	AdminUser string
	// bcrypt hash of the fleet admin password
	AdminPasswordHash string
}

type Loggerconfig struct {
	Level string
}

func New() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")

	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", 5432)
	viper.SetDefault("DB_USER", "ambudispatch_user")
	viper.SetDefault("DB_PASSWORD", "ambudispatch_pass")
	viper.SetDefault("DB_NAME", "ambudispatch_db")
	viper.SetDefault("DB_MAX_CONNS", 10)
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("RABBITMQ_HOST", "localhost")
	viper.SetDefault("RABBITMQ_PORT", 5672)
	viper.SetDefault("RABBITMQ_USER", "guest")
	viper.SetDefault("RABBITMQ_PASSWORD", "guest")
	viper.SetDefault("RABBITMQ_VHOST", "")
	viper.SetDefault("DISPATCH_SERVICE_PORT", "3000")
	viper.SetDefault("FLEET_SERVICE_PORT", "3004")
	viper.SetDefault("GEO_BACKEND", "memory")
	viper.SetDefault("ADMIN_USER", "admin")
	viper.SetDefault("LOG_LEVEL", "INFO")

	// a missing .env is fine, env vars still apply
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Printf("config file skipped: %v\n", err)
		}
	}

	viper.AutomaticEnv()

	cnf := &Config{
		DB: &DBconfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetInt("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			Database: viper.GetString("DB_NAME"),
			MaxConns: viper.GetInt32("DB_MAX_CONNS"),
		},
		Redis: &Redisconfig{
			Addr: viper.GetString("REDIS_ADDR"),
		},
		RabbitMq: &RabbitMqconfig{
			Host:     viper.GetString("RABBITMQ_HOST"),
			Port:     viper.GetInt("RABBITMQ_PORT"),
			User:     viper.GetString("RABBITMQ_USER"),
			Password: viper.GetString("RABBITMQ_PASSWORD"),
			VHost:    viper.GetString("RABBITMQ_VHOST"),
		},
		Srv: &Serviceconfig{
			DispatchServicePort: viper.GetString("DISPATCH_SERVICE_PORT"),
			FleetServicePort:    viper.GetString("FLEET_SERVICE_PORT"),
			GeoBackend:          viper.GetString("GEO_BACKEND"),
		},
		Auth: &Authconfig{
			JwtSecret:         viper.GetString("JWT_SECRET"),
			AdminUser:         viper.GetString("ADMIN_USER"),
			AdminPasswordHash: viper.GetString("ADMIN_PASSWORD_HASH"),
		},
		Log: &Loggerconfig{
			Level: viper.GetString("LOG_LEVEL"),
		},
	}

	return cnf, nil
}
