package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage backends selectable with APP_STORAGE.
const (
	StorageMySQL  = "mysql"
	StorageMemory = "memory"
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable.
type Config struct {
	Env     string // application environment (e.g. "dev", "prod")
	Port    string // HTTP port to listen on
	Storage string // "mysql" or "memory"

	DBUser string // database username
	DBPass string // database password (optional)
	DBHost string // database host address
	DBPort string // database port number
	DBName string // database name
	// DBMigrate applies the schema on startup.
	DBMigrate bool

	JWTSecret  string        // secret used to sign JWTs
	AccessTTL  time.Duration // access token lifetime
	BcryptCost int           // bcrypt cost for password hashing

	RevokeOnPasswordChange bool
	RevokeOnDeactivate     bool
	EnforcePermissions     bool
	LookupTimeout          time.Duration // bound on the gate's store reads

	// AdminEmail and AdminPassword provision an admin account at startup.
	// Public registration cannot pick the admin role once permissions
	// are enforced.
	AdminEmail    string
	AdminPassword string

	RevokedCachePrefix string

	LogLevel  string
	LogFormat string // "json" or "text"

	AMQPURL       string // empty disables audit events
	AuditQueue    string
	AuditConsumer bool   // run the audit log consumer in-process
	AuditLog      string // file the audit consumer appends to
}

// Load reads .env when present, then the process environment. Required
// variables are enforced by must() and missing values cause the program to
// exit with a fatal log message.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: .env not loaded: %v", err)
	}

	cfg := Config{
		Env:     envStr("APP_ENV", "dev"),
		Port:    envStr("APP_PORT", "8080"),
		Storage: strings.ToLower(envStr("APP_STORAGE", StorageMySQL)),

		JWTSecret:  must("JWT_SECRET"),
		AccessTTL:  envDur("ACCESS_TOKEN_TTL", 24*time.Hour),
		BcryptCost: envInt("BCRYPT_COST", 10),

		RevokeOnPasswordChange: envBool("AUTH_REVOKE_ON_PASSWORD_CHANGE", false),
		RevokeOnDeactivate:     envBool("AUTH_REVOKE_ON_DEACTIVATE", false),
		EnforcePermissions:     envBool("AUTH_ENFORCE_PERMISSIONS", false),
		LookupTimeout:          envDur("AUTH_LOOKUP_TIMEOUT", 3*time.Second),

		AdminEmail:    envStr("AUTH_ADMIN_EMAIL", ""),
		AdminPassword: os.Getenv("AUTH_ADMIN_PASSWORD"),

		RevokedCachePrefix: envStr("REVOKED_CACHE_PREFIX", "auth"),

		LogLevel:  envStr("LOG_LEVEL", "info"),
		LogFormat: envStr("LOG_FORMAT", "json"),

		AMQPURL:       amqpURL(),
		AuditQueue:    envStr("AUDIT_QUEUE", "auth.events"),
		AuditConsumer: envBool("AUDIT_CONSUMER_ENABLED", true),
		AuditLog:      envStr("AUDIT_LOG_FILE", "logs/auth.log"),
	}

	switch cfg.Storage {
	case StorageMySQL:
		cfg.DBUser = must("DB_USER")
		cfg.DBPass = os.Getenv("DB_PASS") // empty allowed
		cfg.DBHost = must("DB_HOST")
		cfg.DBPort = must("DB_PORT")
		cfg.DBName = must("DB_NAME")
		cfg.DBMigrate = envBool("DB_MIGRATE", false)
	case StorageMemory:
	default:
		log.Fatalf("invalid APP_STORAGE: %q", cfg.Storage)
	}
	return cfg
}

func amqpURL() string {
	if v := os.Getenv("RABBITMQ_URL"); v != "" {
		return v
	}
	return os.Getenv("AMQP_URL")
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}
