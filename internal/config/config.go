package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort string
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string

	RedisAddr string

	AWSRegion         string
	SQSSensorQueueURL string
	IoTMQTTEndpoint   string
	IoTTopicPrefix    string

	KafkaBrokers        []string
	KafkaResStatusTopic string
	KafkaGroupID        string

	JWTSecret          string
	JWTExpirationHours time.Duration

	NotificationRetention time.Duration
}

func Load() *Config {
	err := godotenv.Load()
	if err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: could not load .env file: %v", err)
	}

	dbPort, _ := strconv.Atoi(getEnv("DB_PORT", "5432"))
	jwtExpHours, _ := strconv.Atoi(getEnv("JWT_EXPIRATION_HOURS", "24"))
	retentionDays, _ := strconv.Atoi(getEnv("NOTIFICATION_RETENTION_DAYS", "30"))

	return &Config{
		ServerPort: getEnv("SERVER_PORT", "8080"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     dbPort,
		DBUser:     getEnv("DB_USER", "parking"),
		DBPassword: getEnv("DB_PASSWORD", "parking"),
		DBName:     getEnv("DB_NAME", "parking_reserve"),
		DBSslMode:  getEnv("DB_SSLMODE", "disable"),

		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),

		AWSRegion:         getEnv("AWS_REGION", "ap-southeast-1"),
		SQSSensorQueueURL: getEnv("SQS_SENSOR_QUEUE_URL", ""),
		IoTMQTTEndpoint:   getEnv("IOT_MQTT_ENDPOINT", ""),
		IoTTopicPrefix:    getEnv("IOT_TOPIC_PREFIX", "parking"),

		KafkaBrokers:        splitList(getEnv("KAFKA_BROKERS", "")),
		KafkaResStatusTopic: getEnv("KAFKA_RES_STATUS_TOPIC", "res-status"),
		KafkaGroupID:        getEnv("KAFKA_GROUP_ID", "parking-reserve"),

		JWTSecret:          getEnv("JWT_SECRET", "change-me-in-production"),
		JWTExpirationHours: time.Duration(jwtExpHours) * time.Hour,

		NotificationRetention: time.Duration(retentionDays) * 24 * time.Hour,
	}
}

func getEnv(key string, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Environment variable '%s' not set, using default: '%s'", key, fallback)
	return fallback
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
