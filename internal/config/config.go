package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Backends soportados para la preferencia de tamaño de página.
const (
	PrefBackendMemory   = "memory"
	PrefBackendRedis    = "redis"
	PrefBackendSQLite   = "sqlite"
	PrefBackendPostgres = "postgres"
	PrefBackendMongo    = "mongo"
)

type Config struct {
	HTTPPort string
	LogLevel string

	// API remota que sirve los listados
	APIBaseURL   string
	APIToken     string
	FetchTimeout time.Duration

	// Preferencias persistidas
	PrefBackend    string
	PrefNamespace  string
	SQLitePath     string
	RedisAddr      string
	PostgresDSN    string
	MongoURI       string
	MongoDatabase  string
	StorageTimeout time.Duration

	// Caché de listados
	CacheMaxEntries int
	PollInterval    time.Duration

	// Invalidación por eventos
	UseKafka          bool
	KafkaBrokers      []string
	KafkaTopic        string
	KafkaConsumerName string
}

func LoadConfig() *Config {
	getEnv := func(key, fallback string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return fallback
	}
	getDuration := func(key string, fallback time.Duration) time.Duration {
		if d, err := time.ParseDuration(os.Getenv(key)); err == nil && d > 0 {
			return d
		}
		return fallback
	}
	getInt := func(key string, fallback int) int {
		if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
			return n
		}
		return fallback
	}

	kafkaBrokers := strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ",")

	return &Config{
		HTTPPort: getEnv("HTTP_PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		APIBaseURL:   strings.TrimRight(getEnv("API_BASE_URL", "http://localhost:8000/api"), "/"),
		APIToken:     getEnv("API_TOKEN", ""),
		FetchTimeout: getDuration("FETCH_TIMEOUT", 15*time.Second),

		PrefBackend:    strings.ToLower(getEnv("PREF_BACKEND", PrefBackendMemory)),
		PrefNamespace:  getEnv("PREF_NAMESPACE", "persist:pageSize"),
		SQLitePath:     getEnv("SQLITE_PATH", "./listdash_prefs.db"),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		PostgresDSN:    getEnv("POSTGRES_DSN", "postgres://localhost:5432/listdash"),
		MongoURI:       getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:  getEnv("MONGO_DATABASE", "listdash"),
		StorageTimeout: getDuration("STORAGE_TIMEOUT", 200*time.Millisecond),

		CacheMaxEntries: getInt("CACHE_MAX_ENTRIES", 500),
		PollInterval:    getDuration("POLL_INTERVAL", 20*time.Second),

		UseKafka:          getEnv("USE_KAFKA", "false") == "true",
		KafkaBrokers:      kafkaBrokers,
		KafkaTopic:        getEnv("KAFKA_TOPIC", "dashboard-mutations"),
		KafkaConsumerName: getEnv("KAFKA_GROUP_ID", "listdash-invalidator"),
	}
}
