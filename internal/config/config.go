// config.go
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	MongoURI    string
	MongoDBName string
	RedisAddr   string
	RedisDB     int
	RabbitURL   string
	Port        string

	JWTSecret  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	OTPTTL          time.Duration
	OTPMaxSendsHour int

	SMSProvider string // "console" o "twilio"
	TwilioSID   string
	TwilioToken string
	TwilioFrom  string

	UploadDir   string
	BaseURL     string
	FrontendURL string
}

func Load() *Config {
	// .env es opcional; si no existe se usan las variables del entorno
	_ = godotenv.Load()

	return &Config{
		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName: getEnv("MONGO_DB_NAME", "medshop_db"),
		RedisAddr:   getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:     getEnvInt("REDIS_DB", 0),
		RabbitURL:   getEnv("RABBIT_URL", ""),
		Port:        getEnv("PORT", "8080"),

		JWTSecret:  getEnv("JWT_SECRET", "dev-secret-change-me"),
		AccessTTL:  time.Duration(getEnvInt("ACCESS_TTL_MIN", 15)) * time.Minute,
		RefreshTTL: time.Duration(getEnvInt("REFRESH_TTL_DAYS", 7)) * 24 * time.Hour,

		OTPTTL:          time.Duration(getEnvInt("OTP_TTL_MIN", 5)) * time.Minute,
		OTPMaxSendsHour: getEnvInt("OTP_MAX_SENDS_PER_HOUR", 3),

		SMSProvider: getEnv("SMS_PROVIDER", "console"),
		TwilioSID:   getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioToken: getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioFrom:  getEnv("TWILIO_FROM_NUMBER", ""),

		UploadDir:   getEnv("UPLOAD_DIR", "./uploads"),
		BaseURL:     getEnv("BASE_URL", "http://localhost:8080"),
		FrontendURL: getEnv("FRONTEND_URL", ""),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}
