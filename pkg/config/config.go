package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/pflag"
)

// Config holds the configuration for the hydromind agent
type Config struct {
	// MQTT configuration
	MQTTBroker   string
	MQTTPort     int
	MQTTUser     string
	MQTTPassword string
	MQTTClientID string

	// Redis configuration
	RedisHost     string
	RedisPort     int
	RedisPassword string
	RedisDB       int

	// Postgres configuration
	PostgresHost               string
	PostgresPort               int
	PostgresDB                 string
	PostgresUser               string
	PostgresPassword           string
	PostgresSSLMode            string
	PostgresMaxConnections     int
	PostgresMaxIdleConnections int
	PostgresConnMaxLifetime    time.Duration

	// Service configuration
	ServiceName string
	HealthPort  int
	LogLevel    string

	// Suggestion window configuration
	WindowStartHour int
	WindowEndHour   int
	ClampToDaylight bool

	// Geographic coordinates for daylight calculation
	Latitude  float64
	Longitude float64

	// Hydration plan file (optional, built-in defaults apply when empty)
	PlanFile string

	// Behavior log configuration
	MaxLogEntries int
}

// NewConfig creates a new Config with default values
func NewConfig() *Config {
	return &Config{
		MQTTBroker:    "localhost",
		MQTTPort:      1883,
		MQTTUser:      "",
		MQTTPassword:  "",
		MQTTClientID:  "",
		RedisHost:     "localhost",
		RedisPort:     6379,
		RedisPassword: "",
		RedisDB:       0,

		PostgresHost:               "localhost",
		PostgresPort:               5432,
		PostgresDB:                 "hydromind",
		PostgresUser:               "hydromind",
		PostgresPassword:           "",
		PostgresSSLMode:            "disable",
		PostgresMaxConnections:     10,
		PostgresMaxIdleConnections: 5,
		PostgresConnMaxLifetime:    30 * time.Minute,

		ServiceName: "hydromind-agent",
		HealthPort:  8080,
		LogLevel:    "info",

		WindowStartHour: 6,
		WindowEndHour:   22,
		ClampToDaylight: false,

		// Helsinki coordinates
		Latitude:  60.1695,
		Longitude: 24.9354,

		PlanFile:      "",
		MaxLogEntries: 5000,
	}
}

// LoadFromEnv loads configuration from environment variables with HYDROMIND_ prefix
func (c *Config) LoadFromEnv() {
	// MQTT configuration
	if v := os.Getenv("HYDROMIND_MQTT_BROKER"); v != "" {
		c.MQTTBroker = v
	}
	if v := os.Getenv("HYDROMIND_MQTT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.MQTTPort = port
		}
	}
	if v := os.Getenv("HYDROMIND_MQTT_USER"); v != "" {
		c.MQTTUser = v
	}
	if v := os.Getenv("HYDROMIND_MQTT_PASSWORD"); v != "" {
		c.MQTTPassword = v
	}
	if v := os.Getenv("HYDROMIND_MQTT_CLIENT_ID"); v != "" {
		c.MQTTClientID = v
	}

	// Redis configuration
	if v := os.Getenv("HYDROMIND_REDIS_HOST"); v != "" {
		c.RedisHost = v
	}
	if v := os.Getenv("HYDROMIND_REDIS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.RedisPort = port
		}
	}
	if v := os.Getenv("HYDROMIND_REDIS_PASSWORD"); v != "" {
		c.RedisPassword = v
	}
	if v := os.Getenv("HYDROMIND_REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			c.RedisDB = db
		}
	}

	// Postgres configuration
	if v := os.Getenv("HYDROMIND_POSTGRES_HOST"); v != "" {
		c.PostgresHost = v
	}
	if v := os.Getenv("HYDROMIND_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.PostgresPort = port
		}
	}
	if v := os.Getenv("HYDROMIND_POSTGRES_DB"); v != "" {
		c.PostgresDB = v
	}
	if v := os.Getenv("HYDROMIND_POSTGRES_USER"); v != "" {
		c.PostgresUser = v
	}
	if v := os.Getenv("HYDROMIND_POSTGRES_PASSWORD"); v != "" {
		c.PostgresPassword = v
	}
	if v := os.Getenv("HYDROMIND_POSTGRES_SSL_MODE"); v != "" {
		c.PostgresSSLMode = v
	}

	// Service configuration
	if v := os.Getenv("HYDROMIND_SERVICE_NAME"); v != "" {
		c.ServiceName = v
	}
	if v := os.Getenv("HYDROMIND_HEALTH_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.HealthPort = port
		}
	}
	if v := os.Getenv("HYDROMIND_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}

	// Suggestion window configuration
	if v := os.Getenv("HYDROMIND_WINDOW_START_HOUR"); v != "" {
		if hour, err := strconv.Atoi(v); err == nil {
			c.WindowStartHour = hour
		}
	}
	if v := os.Getenv("HYDROMIND_WINDOW_END_HOUR"); v != "" {
		if hour, err := strconv.Atoi(v); err == nil {
			c.WindowEndHour = hour
		}
	}
	if v := os.Getenv("HYDROMIND_CLAMP_TO_DAYLIGHT"); v != "" {
		if clamp, err := strconv.ParseBool(v); err == nil {
			c.ClampToDaylight = clamp
		}
	}

	// Geographic coordinates
	if v := os.Getenv("HYDROMIND_LATITUDE"); v != "" {
		if lat, err := strconv.ParseFloat(v, 64); err == nil {
			c.Latitude = lat
		}
	}
	if v := os.Getenv("HYDROMIND_LONGITUDE"); v != "" {
		if lon, err := strconv.ParseFloat(v, 64); err == nil {
			c.Longitude = lon
		}
	}

	// Hydration plan file
	if v := os.Getenv("HYDROMIND_PLAN_FILE"); v != "" {
		c.PlanFile = v
	}

	// Behavior log configuration
	if v := os.Getenv("HYDROMIND_MAX_LOG_ENTRIES"); v != "" {
		if max, err := strconv.Atoi(v); err == nil {
			c.MaxLogEntries = max
		}
	}
}

// LoadFromFlags parses command-line flags and overrides config values
func (c *Config) LoadFromFlags() {
	// MQTT flags
	pflag.StringVar(&c.MQTTBroker, "mqtt-broker", c.MQTTBroker, "MQTT broker hostname")
	pflag.IntVar(&c.MQTTPort, "mqtt-port", c.MQTTPort, "MQTT broker port")
	pflag.StringVar(&c.MQTTUser, "mqtt-user", c.MQTTUser, "MQTT username")
	pflag.StringVar(&c.MQTTPassword, "mqtt-password", c.MQTTPassword, "MQTT password")
	pflag.StringVar(&c.MQTTClientID, "mqtt-client-id", c.MQTTClientID, "MQTT client ID")

	// Redis flags
	pflag.StringVar(&c.RedisHost, "redis-host", c.RedisHost, "Redis hostname")
	pflag.IntVar(&c.RedisPort, "redis-port", c.RedisPort, "Redis port")
	pflag.StringVar(&c.RedisPassword, "redis-password", c.RedisPassword, "Redis password")
	pflag.IntVar(&c.RedisDB, "redis-db", c.RedisDB, "Redis database number")

	// Postgres flags
	pflag.StringVar(&c.PostgresHost, "postgres-host", c.PostgresHost, "Postgres hostname")
	pflag.IntVar(&c.PostgresPort, "postgres-port", c.PostgresPort, "Postgres port")
	pflag.StringVar(&c.PostgresDB, "postgres-db", c.PostgresDB, "Postgres database name")
	pflag.StringVar(&c.PostgresUser, "postgres-user", c.PostgresUser, "Postgres username")
	pflag.StringVar(&c.PostgresPassword, "postgres-password", c.PostgresPassword, "Postgres password")
	pflag.StringVar(&c.PostgresSSLMode, "postgres-ssl-mode", c.PostgresSSLMode, "Postgres SSL mode")

	// Service flags
	pflag.StringVar(&c.ServiceName, "service-name", c.ServiceName, "Service name")
	pflag.IntVar(&c.HealthPort, "health-port", c.HealthPort, "Health check HTTP port")
	pflag.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level (debug, info, warn, error)")

	// Suggestion window flags
	pflag.IntVar(&c.WindowStartHour, "window-start-hour", c.WindowStartHour, "Earliest hour for drink suggestions")
	pflag.IntVar(&c.WindowEndHour, "window-end-hour", c.WindowEndHour, "Latest hour for drink suggestions")
	pflag.BoolVar(&c.ClampToDaylight, "clamp-to-daylight", c.ClampToDaylight, "Clamp suggestion window to local daylight")

	// Geographic flags
	pflag.Float64Var(&c.Latitude, "latitude", c.Latitude, "Geographic latitude for daylight calculation")
	pflag.Float64Var(&c.Longitude, "longitude", c.Longitude, "Geographic longitude for daylight calculation")

	// Plan and log flags
	pflag.StringVar(&c.PlanFile, "plan-file", c.PlanFile, "Hydration plan YAML file (optional)")
	pflag.IntVar(&c.MaxLogEntries, "max-log-entries", c.MaxLogEntries, "Maximum behavior log entries kept in the snapshot")

	pflag.Parse()
}

// Validate checks that required configuration values are set
func (c *Config) Validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT broker is required")
	}
	if c.MQTTPort <= 0 || c.MQTTPort > 65535 {
		return fmt.Errorf("MQTT port must be between 1 and 65535")
	}
	if c.RedisHost == "" {
		return fmt.Errorf("Redis host is required")
	}
	if c.RedisPort <= 0 || c.RedisPort > 65535 {
		return fmt.Errorf("Redis port must be between 1 and 65535")
	}
	if c.PostgresHost == "" {
		return fmt.Errorf("Postgres host is required")
	}
	if c.PostgresPort <= 0 || c.PostgresPort > 65535 {
		return fmt.Errorf("Postgres port must be between 1 and 65535")
	}
	if c.HealthPort <= 0 || c.HealthPort > 65535 {
		return fmt.Errorf("Health port must be between 1 and 65535")
	}
	if c.ServiceName == "" {
		return fmt.Errorf("Service name is required")
	}
	if c.WindowStartHour < 0 || c.WindowStartHour > 23 {
		return fmt.Errorf("window start hour must be between 0 and 23")
	}
	if c.WindowEndHour < 0 || c.WindowEndHour > 23 {
		return fmt.Errorf("window end hour must be between 0 and 23")
	}
	if c.WindowEndHour <= c.WindowStartHour {
		return fmt.Errorf("window end hour must be after window start hour")
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	return nil
}

// MQTTAddress returns the full MQTT broker address
func (c *Config) MQTTAddress() string {
	return fmt.Sprintf("tcp://%s:%d", c.MQTTBroker, c.MQTTPort)
}

// RedisAddress returns the full Redis address
func (c *Config) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// PostgresConnectionString returns the Postgres connection string
func (c *Config) PostgresConnectionString() string {
	return fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresDB, c.PostgresUser, c.PostgresPassword, c.PostgresSSLMode)
}
