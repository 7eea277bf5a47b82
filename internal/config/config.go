package config

import (
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds the server configuration.
type Config struct {
	ServerPort  string
	Env         string
	MongoURL    string
	PostgresURL string
	JWTSecret   string
	UploadDir   string

	AllowedOrigins []string
}

// Load loads configuration from environment variables.
func Load() *Config {
	// Load .env file if it exists (useful for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		ServerPort:  getEnv("SERVER_PORT", "5000"),
		Env:         getEnv("ENV", "development"),
		MongoURL:    os.Getenv("MONGO_URL"),
		PostgresURL: os.Getenv("POSTGRES_URL"),
		JWTSecret:   getEnv("JWT_SECRET", "dev-secret-change-me"),
		UploadDir:   getEnv("UPLOAD_DIR", "uploads"),
	}

	origins := getEnv("ALLOWED_ORIGINS", "http://localhost:5173,http://127.0.0.1:5173")
	cfg.AllowedOrigins = strings.Split(origins, ",")
	for i := range cfg.AllowedOrigins {
		cfg.AllowedOrigins[i] = strings.TrimSpace(cfg.AllowedOrigins[i])
	}

	return cfg
}

// IsDevelopment reports whether the server runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
