package domain

import (
	"time"
)

// Config holds the complete Kestrel configuration.
type Config struct {
	// Server settings
	Server ServerConfig `json:"server"`

	// Tier determines which backing services are used
	Tier Tier `json:"tier"`

	// Component configurations
	Repository RepositoryConfig `json:"repository"`
	Cache      CacheConfig      `json:"cache"`
	EventBus   EventBusConfig   `json:"eventBus"`
	Narrative  NarrativeConfig  `json:"narrative"`
	Report     ReportConfig     `json:"report"`
	Classifier ClassifierConfig `json:"classifier"`

	// Observability
	Logging LoggingConfig `json:"logging"`
	Tracing TracingConfig `json:"tracing"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	ReadTimeout  int    `json:"readTimeout"`  // seconds
	WriteTimeout int    `json:"writeTimeout"` // seconds
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled      bool   `json:"enabled"`
	ServiceName  string `json:"serviceName"`
	ExporterType string `json:"exporterType"` // stdout, otlp, jaeger
	Endpoint     string `json:"endpoint"`
}

// ClassifierRule binds a CEL expression to the level it assigns when the
// expression evaluates to true.
type ClassifierRule struct {
	Level      RiskLevel `json:"level"`
	Expression string    `json:"expression"`
}

// ClassifierConfig holds the rule ladder for the built-in classifier.
// Rules are evaluated in order; the first match wins, and a case matching
// nothing is No Risk.
type ClassifierConfig struct {
	Rules []ClassifierRule `json:"rules"`
}

// Tier represents the deployment tier.
type Tier string

const (
	// TierCommunity runs on SQLite + channels + local cache
	TierCommunity Tier = "community"

	// TierPro runs on PostgreSQL + NATS + Redis
	TierPro Tier = "pro"
)

// ReportingTimeZone is the fixed time zone every detection timestamp is
// stamped and reported in.
const ReportingTimeZone = "Asia/Kuala_Lumpur"

// DefaultConfig returns a default configuration for Community tier.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 120,
		},
		Tier: TierCommunity,
		Repository: RepositoryConfig{
			Driver:     "sqlite",
			SQLitePath: "./kestrel.db",
		},
		Cache: CacheConfig{
			Type:         "memory",
			LocalMaxSize: 10000,
			LocalTTL:     5 * time.Minute,
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Narrative: NarrativeConfig{
			BaseURL: "http://localhost:11434",
			Model:   "llama3",
			Timeout: 120 * time.Second,
			Retries: 1,
		},
		Report: ReportConfig{
			OutputDir:       "./reports",
			MinArtifactSize: 1000,
			TimeZone:        ReportingTimeZone,
		},
		Classifier: ClassifierConfig{
			Rules: DefaultClassifierRules(),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "kestrel",
		},
	}
}

// ProConfig returns a configuration for Pro tier.
func ProConfig() *Config {
	cfg := DefaultConfig()
	cfg.Tier = TierPro
	cfg.Repository = RepositoryConfig{
		Driver:       "postgres",
		PostgresHost: "localhost",
		PostgresPort: 5432,
		PostgresDB:   "kestrel",
	}
	cfg.Cache = CacheConfig{
		Type:           "redis",
		RedisAddr:      "localhost:6379",
		EnableTwoPhase: true,
		LocalMaxSize:   1000,
		LocalTTL:       5 * time.Minute,
	}
	cfg.EventBus = EventBusConfig{
		Type:              "nats",
		NATSUrl:           "nats://localhost:4222",
		NATSMaxReconnects: 10,
		NATSReconnectWait: 5,
	}
	cfg.Tracing.Enabled = true
	return cfg
}

// DefaultClassifierRules returns the severity ladder used when no rules
// are configured. Thresholds mirror the behaviors the risk buckets
// describe: heavy deposits with little trading and fast withdrawal for
// High, irregular flow for Medium, small anomalies for Low.
func DefaultClassifierRules() []ClassifierRule {
	return []ClassifierRule{
		{
			Level:      RiskHigh,
			Expression: `deposit_amount > 50000 && num_trades < 5 && withdrawal_amount > deposit_amount / 2`,
		},
		{
			Level:      RiskHigh,
			Expression: `withdrawal_amount > deposit_amount && trade_duration < 2`,
		},
		{
			Level:      RiskMedium,
			Expression: `withdrawal_amount > deposit_amount || (num_trades > 0 && avg_trade_amount * num_trades < deposit_amount / 10)`,
		},
		{
			Level:      RiskLow,
			Expression: `total_profit < 0 || fees_paid > double(deposit_amount) / 20.0`,
		},
	}
}
