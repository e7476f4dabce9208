package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	// Server
	Port              string
	Env               string
	CORSAllowedOrigin string

	// Database
	DBHost            string
	DBPort            string
	DBUser            string
	DBPassword        string
	DBName            string
	DBSSLMode         string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration

	// JWT
	JWTSecret        string
	JWTExpirationDur time.Duration

	// Redis (optional; token revocation is disabled when RedisAddr is empty)
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

var appConfig *Config

// Load loads configuration from the environment, reading a .env file first
// when one is present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	config := &Config{
		Port:              v.GetString("PORT"),
		Env:               v.GetString("ENV"),
		CORSAllowedOrigin: v.GetString("CORS_ALLOWED_ORIGIN"),

		DBHost:            v.GetString("DB_HOST"),
		DBPort:            v.GetString("DB_PORT"),
		DBUser:            v.GetString("DB_USER"),
		DBPassword:        v.GetString("DB_PASSWORD"),
		DBName:            v.GetString("DB_NAME"),
		DBSSLMode:         v.GetString("DB_SSLMODE"),
		DBMaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
		DBMaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
		DBConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),

		JWTSecret: v.GetString("JWT_SECRET"),

		RedisAddr:     v.GetString("REDIS_ADDR"),
		RedisPassword: v.GetString("REDIS_PASSWORD"),
		RedisDB:       v.GetInt("REDIS_DB"),
	}

	expStr := v.GetString("JWT_EXPIRES_IN")
	expDur, err := time.ParseDuration(expStr)
	if err != nil || expDur <= 0 {
		log.Printf("Warning: invalid JWT_EXPIRES_IN value '%s', falling back to 24h\n", expStr)
		expDur = 24 * time.Hour
	}
	config.JWTExpirationDur = expDur

	appConfig = config
	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("CORS_ALLOWED_ORIGIN", "*")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "kasku")
	v.SetDefault("DB_PASSWORD", "kasku")
	v.SetDefault("DB_NAME", "kasku")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 100)
	v.SetDefault("DB_MAX_IDLE_CONNS", 10)
	v.SetDefault("DB_CONN_MAX_LIFETIME", time.Hour)

	v.SetDefault("JWT_SECRET", "fallback-secret-key-for-dev-only")
	v.SetDefault("JWT_EXPIRES_IN", "24h")

	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
}

// Get returns the application configuration
func Get() *Config {
	if appConfig == nil {
		var err error
		appConfig, err = Load()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
	}
	return appConfig
}
