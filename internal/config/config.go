package config

import (
	"errors"
	"fmt"
	"os"
	"time"
)

// Venue sources.
const (
	SourceCafeNomad = "cafenomad"
	SourcePostgres  = "postgres"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	CORSOrigins     []string

	// VenueSource selects where venues are read from: the live Cafe Nomad
	// API or the Postgres store.
	VenueSource      string
	DatabaseURL      string
	DBMaxConnections int

	CafeNomadBaseURL   string
	CafeNomadTimeout   time.Duration
	CafeNomadCacheTTL  time.Duration
	CafeNomadCacheSize int

	// Google Places configuration.
	GoogleMapsAPIKey string
	PlacesEnabled    bool
	PlacesTimeout    time.Duration
	TransitCacheTTL  time.Duration
	TransitCacheSize int

	// Kafka ingestion configuration.
	KafkaEnabled       bool
	KafkaBrokers       []string
	KafkaTopic         string
	KafkaGroupID       string
	BatchSize          int
	BatchFlushInterval time.Duration

	// TablesPath optionally overrides the embedded normalization and scoring tables.
	TablesPath string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	cfg := &Config{
		HTTPAddr:         EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:         EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:        EnvOrDefault("LOG_FORMAT", "json"),
		CORSOrigins:      ParseList(EnvOrDefault("CORS_ORIGINS", "*")),
		VenueSource:      EnvOrDefault("VENUE_SOURCE", SourceCafeNomad),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		CafeNomadBaseURL: EnvOrDefault("CAFENOMAD_BASE_URL", "https://cafenomad.tw/api/v1.2/cafes"),
		GoogleMapsAPIKey: os.Getenv("GOOGLE_MAPS_API_KEY"),
		KafkaBrokers:     ParseList(EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:       EnvOrDefault("KAFKA_TOPIC", "raw-cafes"),
		KafkaGroupID:     EnvOrDefault("KAFKA_GROUP_ID", "cafepick-ingest"),
		TablesPath:       os.Getenv("TABLES_PATH"),
	}

	var err error
	durations := []struct {
		dst      *time.Duration
		key      string
		fallback string
	}{
		{&cfg.ShutdownTimeout, "SHUTDOWN_TIMEOUT", "10s"},
		{&cfg.CafeNomadTimeout, "CAFENOMAD_TIMEOUT", "30s"},
		{&cfg.CafeNomadCacheTTL, "CAFENOMAD_CACHE_TTL", "5m"},
		{&cfg.PlacesTimeout, "PLACES_TIMEOUT", "30s"},
		{&cfg.TransitCacheTTL, "TRANSIT_CACHE_TTL", "1h"},
		{&cfg.BatchFlushInterval, "BATCH_FLUSH_INTERVAL", "500ms"},
	}
	for _, d := range durations {
		if *d.dst, err = parsePositiveDuration(d.key, d.fallback); err != nil {
			return nil, err
		}
	}

	ints := []struct {
		dst      *int
		key      string
		fallback int
	}{
		{&cfg.DBMaxConnections, "DB_MAX_CONNECTIONS", 10},
		{&cfg.CafeNomadCacheSize, "CAFENOMAD_CACHE_SIZE", 32},
		{&cfg.TransitCacheSize, "TRANSIT_CACHE_SIZE", 1000},
		{&cfg.BatchSize, "BATCH_SIZE", 50},
	}
	for _, n := range ints {
		if *n.dst, err = parsePositiveInt(n.key, n.fallback); err != nil {
			return nil, err
		}
	}

	if cfg.PlacesEnabled, err = parseBool("PLACES_ENABLED", cfg.GoogleMapsAPIKey != ""); err != nil {
		return nil, err
	}
	if cfg.KafkaEnabled, err = parseBool("KAFKA_ENABLED", false); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.VenueSource {
	case SourceCafeNomad, SourcePostgres:
	default:
		return fmt.Errorf("invalid VENUE_SOURCE %q: must be %s or %s", c.VenueSource, SourceCafeNomad, SourcePostgres)
	}
	if c.VenueSource == SourcePostgres && c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required when VENUE_SOURCE is postgres")
	}
	if c.PlacesEnabled && c.GoogleMapsAPIKey == "" {
		return errors.New("PLACES_ENABLED is true but GOOGLE_MAPS_API_KEY is not set")
	}
	if c.KafkaEnabled {
		if len(c.KafkaBrokers) == 0 {
			return errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
		}
		if c.KafkaTopic == "" {
			return errors.New("KAFKA_TOPIC is required when KAFKA_ENABLED is true")
		}
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required when KAFKA_ENABLED is true")
		}
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("invalid LOG_FORMAT %q: must be json or text", c.LogFormat)
	}
	return nil
}
