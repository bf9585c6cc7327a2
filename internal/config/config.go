package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	DataRoot    string
	ProductsDir string

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Underway file resolution in seconds; the vessels publish 1s and 60s feeds.
	UnderwayResolution int

	// Station matching and the optional station reference database.
	StationMatchKm   float64
	StationDBPath    string
	StationCacheSize int

	// Product notifications.
	KafkaEnabled      bool
	KafkaBrokers      []string
	KafkaProductTopic string

	GenerateOnStart bool
}

// Load reads configuration from environment variables, applying defaults
// where unset, and validates the result.
func Load() (*Config, error) {
	cfg, err := FromEnv()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv reads configuration from the environment without validating it,
// so command-line flags can override fields first.
func FromEnv() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	resolution, err := parseInt("UNDERWAY_RESOLUTION", 60)
	if err != nil {
		return nil, err
	}

	matchKm, err := parseFloat("STATION_MATCH_KM", 2)
	if err != nil {
		return nil, err
	}

	cacheSize, err := parseInt("STATION_CACHE_SIZE", 64)
	if err != nil {
		return nil, err
	}

	dataRoot := os.Getenv("DATA_ROOT")
	productsDir := os.Getenv("PRODUCTS_DIR")

	return &Config{
		DataRoot:           dataRoot,
		ProductsDir:        productsDir,
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		UnderwayResolution: resolution,
		StationMatchKm:     matchKm,
		StationDBPath:      os.Getenv("STATION_DB_PATH"),
		StationCacheSize:   cacheSize,
		KafkaEnabled:       os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaProductTopic:  sharedcfg.EnvOrDefault("KAFKA_PRODUCT_TOPIC", "cruise-products"),
		GenerateOnStart:    os.Getenv("GENERATE_ON_START") == "true",
	}, nil
}

// Validate checks required settings and fills derived defaults.
func (c *Config) Validate() error {
	if c.DataRoot == "" {
		return errors.New("DATA_ROOT is required")
	}
	if c.ProductsDir == "" {
		c.ProductsDir = filepath.Join(c.DataRoot, "products")
	}
	if c.UnderwayResolution != 1 && c.UnderwayResolution != 60 {
		return fmt.Errorf("UNDERWAY_RESOLUTION must be 1 or 60, got %d", c.UnderwayResolution)
	}
	if c.StationMatchKm <= 0 {
		return errors.New("STATION_MATCH_KM must be positive")
	}
	if c.StationCacheSize <= 0 {
		return errors.New("STATION_CACHE_SIZE must be positive")
	}
	if c.KafkaEnabled {
		if len(c.KafkaBrokers) == 0 {
			return errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
		}
		if c.KafkaProductTopic == "" {
			return errors.New("KAFKA_PRODUCT_TOPIC is required when KAFKA_ENABLED is true")
		}
	}
	return nil
}

func parseInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func parseFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}
