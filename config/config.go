package config

import (
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL string
	ServerPort  string
	Environment string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURI  string

	ATUsername string
	ATApiKey   string
	ATSMSUrl   string

	AdminEmail   string
	SMTPHost     string
	SMTPPort     string
	SMTPUser     string
	SMTPPassword string
}

var AppConfig *Config

func Load() error {
	// .env file is optional, continue without it
	_ = godotenv.Load()

	AppConfig = &Config{
		DatabaseURL: getEnv("DATABASE_URL", "host=postgres user=postgres password=postgres dbname=duka port=5432 sslmode=disable"),
		ServerPort:  getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURI:  getEnv("GOOGLE_REDIRECT_URI", "http://localhost:8080/users/callback"),

		ATUsername: getEnv("AT_USERNAME", "sandbox"),
		ATApiKey:   getEnv("AT_API_KEY", ""),
		ATSMSUrl:   getEnv("AT_SMS_URL", "https://api.sandbox.africastalking.com/version1/messaging"),

		AdminEmail:   getEnv("ADMIN_EMAIL", ""),
		SMTPHost:     getEnv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:     getEnv("SMTP_PORT", "587"),
		SMTPUser:     getEnv("SMTP_USER", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
