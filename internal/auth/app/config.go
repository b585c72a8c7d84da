package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/turnstile/pkg/jwtx"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

const (
	StoreDriverSQLite  = "sqlite"
	StoreDriverMongoDB = "mongodb"
)

var ErrNoSigningKey = errors.New("one of AUTH_SIGNING_KEY or AUTH_SIGNING_KEY_FILE is required")

type Config struct {
	Issuer         string // Required: iss claim for access tokens
	Audience       string // Required: aud claim for access tokens
	SigningKey     string // Required unless SigningKeyFile is set: HS256 secret
	SigningKeyFile string // Required unless SigningKey is set: file holding the HS256 secret

	AccessTokenTTL       time.Duration // Optional: access token lifetime (default: 15m)
	RefreshTokenTTL      time.Duration // Optional: refresh token lifetime (default: 6h)
	RoleOnLogin          string        // Optional: role handed out on login before challenges (default: auth_0)
	InvalidateOnWrite    bool          // Optional: blacklist the caller's token after authenticated writes (default: false)
	VerifyEmailTTL       time.Duration // Optional: email code lifetime (default: 1h)
	VerifySMSTTL         time.Duration // Optional: SMS code lifetime (default: 5m)
	StoreDriver          string        // Optional: token store backend, sqlite or mongodb (default: sqlite)
	DatabaseFile         string        // Optional: path to SQLite database file (default: ./auth.db)
	MongoURI             string        // Required for mongodb: connection string
	MongoDatabase        string        // Optional: mongodb database name (default: turnstile)
	RedisAddr            string        // Optional: redis address for the revocation cache
	MembersFile          string        // Optional: path to the member directory JSON (default: ./members.json)
	PepperFile           string        // Optional: path to file containing pepper for password hashing (default: ./pepper)
	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

func LoadConfig() Config {
	return Config{
		Issuer:         os.Getenv("AUTH_ISSUER"),
		Audience:       os.Getenv("AUTH_AUDIENCE"),
		SigningKey:     os.Getenv("AUTH_SIGNING_KEY"),
		SigningKeyFile: os.Getenv("AUTH_SIGNING_KEY_FILE"),

		AccessTokenTTL:    getEnvDurationOrDefault("AUTH_ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL:   getEnvDurationOrDefault("AUTH_REFRESH_TOKEN_TTL", 6*time.Hour),
		RoleOnLogin:       getEnvOrDefault("AUTH_ROLE_ON_LOGIN", "auth_0"),
		InvalidateOnWrite: getEnvBoolOrDefault("AUTH_INVALIDATE_TOKEN_ON_WRITE", false),
		VerifyEmailTTL:    getEnvDurationOrDefault("AUTH_VERIFY_EMAIL_TTL", time.Hour),
		VerifySMSTTL:      getEnvDurationOrDefault("AUTH_VERIFY_SMS_TTL", 5*time.Minute),

		StoreDriver:   getEnvOrDefault("AUTH_STORE_DRIVER", StoreDriverSQLite),
		DatabaseFile:  getEnvOrDefault("AUTH_DATABASE_FILE", "auth.db"),
		MongoURI:      os.Getenv("AUTH_MONGO_URI"),
		MongoDatabase: getEnvOrDefault("AUTH_MONGO_DATABASE", "turnstile"),
		RedisAddr:     os.Getenv("AUTH_REDIS_ADDR"),
		MembersFile:   getEnvOrDefault("AUTH_MEMBERS_FILE", "members.json"),
		PepperFile:    getEnvOrDefault("AUTH_PEPPER_FILE", "pepper"), // Default to ./pepper

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}
}

// Validate fails fast on settings the service can't start with.
func (c Config) Validate() error {
	var mongoRules []validation.Rule
	if c.StoreDriver == StoreDriverMongoDB {
		mongoRules = append(mongoRules, validation.Required)
	}

	err := validation.ValidateStruct(&c,
		validation.Field(&c.Issuer, validation.Required),
		validation.Field(&c.Audience, validation.Required),
		validation.Field(&c.AccessTokenTTL, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.RefreshTokenTTL, validation.Required, validation.Min(time.Minute)),
		validation.Field(&c.VerifyEmailTTL, validation.Required),
		validation.Field(&c.VerifySMSTTL, validation.Required),
		validation.Field(&c.RoleOnLogin, validation.Required),
		validation.Field(&c.StoreDriver, validation.Required, validation.In(StoreDriverSQLite, StoreDriverMongoDB)),
		validation.Field(&c.MongoURI, mongoRules...),
		validation.Field(&c.RedisAddr, is.DialString),
		validation.Field(&c.MembersFile, validation.Required),
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
	if err != nil {
		return err
	}

	if _, err := c.LoadSigningKey(); err != nil {
		return err
	}
	return nil
}

// LoadSigningKey returns the HS256 secret, reading SigningKeyFile when the
// key isn't given inline.
func (c Config) LoadSigningKey() ([]byte, error) {
	key := c.SigningKey
	if key == "" && c.SigningKeyFile != "" {
		b, err := os.ReadFile(c.SigningKeyFile)
		if err != nil {
			return nil, fmt.Errorf("read signing key: %w", err)
		}
		key = strings.TrimSpace(string(b))
	}

	if key == "" {
		return nil, ErrNoSigningKey
	}
	if len(key) < jwtx.MinKeyLength {
		return nil, fmt.Errorf("signing key must be at least %d bytes, got %d", jwtx.MinKeyLength, len(key))
	}
	return []byte(key), nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer minutes (for backwards compatibility)
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
