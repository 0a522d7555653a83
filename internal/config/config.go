package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	ServerPort string
	JWTSecret  string
	RedisAddr  string
	LogFile    string
}

func Load() *Config {
	err := godotenv.Load()
	if err != nil {
		log.Println("⚠️  No .env file found, using system environment variables")
	}

	cfg := &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "todoflow_user"),
		DBPassword: getEnv("DB_PASSWORD", "todoflow_pass"),
		DBName:     getEnv("DB_NAME", "todoflow_db"),
		ServerPort: getEnv("SERVER_PORT", "8080"),
		JWTSecret:  getEnv("JWT_SECRET", "supersecretkey"),
		RedisAddr:  getEnv("REDIS_ADDR", "localhost:6379"),
		LogFile:    getEnv("LOG_FILE", "logs/todoflow.log"),
	}

	// Token signing reads JWT_SECRET from the environment, so the fallback
	// must land there as well or issued tokens would not validate.
	os.Setenv("JWT_SECRET", cfg.JWTSecret)

	return cfg
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}
