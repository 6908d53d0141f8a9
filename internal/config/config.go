package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Config is the whole server configuration, read from the environment. A
// .env file in the working directory is loaded first when present.
type Config struct {
	Port      string
	MySQLDSN  string
	RedisAddr string // empty disables the duplicate-request gate
	JWTSecret string
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Port:      getEnv("PORT", "8080"),
		MySQLDSN:  getEnv("MYSQL_DSN", "root:root@tcp(localhost:3306)/stockpos?parseTime=true"),
		RedisAddr: os.Getenv("REDIS_ADDR"),
		JWTSecret: os.Getenv("JWT_SECRET"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
