package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the SAR intelligence service
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Elasticsearch ElasticsearchConfig
	Kafka         KafkaConfig
	S3            S3Config
	Auth          AuthConfig
	Logging       LoggingConfig
	Signing       SigningConfig
	Scoring       ScoringConfig
	Intelligence  IntelligenceConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// DSN returns the database connection string
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// ElasticsearchConfig holds Elasticsearch configuration
type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	Index     string   `mapstructure:"index"`
}

// KafkaConfig holds Kafka configuration
type KafkaConfig struct {
	Brokers          []string `mapstructure:"brokers"`
	ConsumerGroup    string   `mapstructure:"consumer_group"`
	SARTopic         string   `mapstructure:"sar_topic"`
	TransactionTopic string   `mapstructure:"transaction_topic"`
}

// S3Config holds AWS S3 configuration for report archival
type S3Config struct {
	Region        string `mapstructure:"region"`
	ReportsBucket string `mapstructure:"reports_bucket"`
	Endpoint      string `mapstructure:"endpoint"` // For local testing with MinIO
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
}

// AuthConfig holds authentication settings
type AuthConfig struct {
	JWTPublicKeyPath string `mapstructure:"jwt_public_key_path"`
	JWTIssuer        string `mapstructure:"jwt_issuer"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SigningConfig holds audit-entry signing settings
type SigningConfig struct {
	HMACSecret string `mapstructure:"hmac_secret"`
}

// ScoringConfig holds the transaction risk analyzer constants.
// The boost formulas are heuristics carried over from the original scoring
// rules pending domain-expert review; they are configurable rather than
// hard-coded so a rule change does not require a release.
type ScoringConfig struct {
	StructuringThreshold    float64  `mapstructure:"structuring_threshold"`
	StructuringBandLow      float64  `mapstructure:"structuring_band_low"`
	StructuringBandHigh     float64  `mapstructure:"structuring_band_high"`
	StructuringBoostBase    float64  `mapstructure:"structuring_boost_base"`
	StructuringBoostFactor  float64  `mapstructure:"structuring_boost_factor"`
	LayeringThreshold       float64  `mapstructure:"layering_threshold"`
	LayeringWireBoost       float64  `mapstructure:"layering_wire_boost"`
	VelocityThreshold       float64  `mapstructure:"velocity_threshold"`
	IncomeMismatchThreshold float64  `mapstructure:"income_mismatch_threshold"`
	GeographicThreshold     float64  `mapstructure:"geographic_threshold"`
	GeographicBoost         float64  `mapstructure:"geographic_boost"`
	HighRiskKeywords        []string `mapstructure:"high_risk_keywords"`
	CounterpartyThreshold   float64  `mapstructure:"counterparty_threshold"`
	CounterpartyBoost       float64  `mapstructure:"counterparty_boost"`
	LargeTransactionAmount  float64  `mapstructure:"large_transaction_amount"`
}

// IntelligenceConfig holds cross-case engine settings
type IntelligenceConfig struct {
	DriftWindowDays       int   `mapstructure:"drift_window_days"`
	DriftMinDetections    int   `mapstructure:"drift_min_detections"`
	EmergingWindowDays    int   `mapstructure:"emerging_window_days"`
	EmergingMinRecentSARs int   `mapstructure:"emerging_min_recent_sars"`
	MaxClusters           int   `mapstructure:"max_clusters"`
	ClusterSeed           int64 `mapstructure:"cluster_seed"`
}

// DefaultScoring returns the analyzer constants as shipped
func DefaultScoring() ScoringConfig {
	return ScoringConfig{
		StructuringThreshold:    0.7,
		StructuringBandLow:      8000,
		StructuringBandHigh:     9500,
		StructuringBoostBase:    0.6,
		StructuringBoostFactor:  0.4,
		LayeringThreshold:       0.6,
		LayeringWireBoost:       0.3,
		VelocityThreshold:       0.75,
		IncomeMismatchThreshold: 0.7,
		GeographicThreshold:     0.65,
		GeographicBoost:         0.5,
		HighRiskKeywords:        []string{"offshore", "cayman", "panama", "hong kong", "switzerland"},
		CounterpartyThreshold:   0.6,
		CounterpartyBoost:       0.4,
		LargeTransactionAmount:  50000,
	}
}

// DefaultIntelligence returns the cross-case engine settings as shipped
func DefaultIntelligence() IntelligenceConfig {
	return IntelligenceConfig{
		DriftWindowDays:       30,
		DriftMinDetections:    10,
		EmergingWindowDays:    30,
		EmergingMinRecentSARs: 3,
		MaxClusters:           5,
		ClusterSeed:           42,
	}
}

// Load loads configuration from environment and config files
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("SARINTEL")
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8086)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Database
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "sar_intelligence_db")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "5m")
	v.SetDefault("database.conn_max_idle_time", "5m")

	// Elasticsearch
	v.SetDefault("elasticsearch.addresses", []string{"http://localhost:9200"})
	v.SetDefault("elasticsearch.username", "elastic")
	v.SetDefault("elasticsearch.password", "changeme")
	v.SetDefault("elasticsearch.index", "sar-narratives")

	// Kafka
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.consumer_group", "sar-intelligence-service")
	v.SetDefault("kafka.sar_topic", "banking.sar.reports")
	v.SetDefault("kafka.transaction_topic", "banking.transactions")

	// S3
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.reports_bucket", "banking-sar-intelligence-reports")

	// Auth
	v.SetDefault("auth.jwt_public_key_path", "./keys/jwt_public.pem")
	v.SetDefault("auth.jwt_issuer", "banking-auth-service")

	// Logging
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Scoring
	sc := DefaultScoring()
	v.SetDefault("scoring.structuring_threshold", sc.StructuringThreshold)
	v.SetDefault("scoring.structuring_band_low", sc.StructuringBandLow)
	v.SetDefault("scoring.structuring_band_high", sc.StructuringBandHigh)
	v.SetDefault("scoring.structuring_boost_base", sc.StructuringBoostBase)
	v.SetDefault("scoring.structuring_boost_factor", sc.StructuringBoostFactor)
	v.SetDefault("scoring.layering_threshold", sc.LayeringThreshold)
	v.SetDefault("scoring.layering_wire_boost", sc.LayeringWireBoost)
	v.SetDefault("scoring.velocity_threshold", sc.VelocityThreshold)
	v.SetDefault("scoring.income_mismatch_threshold", sc.IncomeMismatchThreshold)
	v.SetDefault("scoring.geographic_threshold", sc.GeographicThreshold)
	v.SetDefault("scoring.geographic_boost", sc.GeographicBoost)
	v.SetDefault("scoring.high_risk_keywords", sc.HighRiskKeywords)
	v.SetDefault("scoring.counterparty_threshold", sc.CounterpartyThreshold)
	v.SetDefault("scoring.counterparty_boost", sc.CounterpartyBoost)
	v.SetDefault("scoring.large_transaction_amount", sc.LargeTransactionAmount)

	// Intelligence
	ic := DefaultIntelligence()
	v.SetDefault("intelligence.drift_window_days", ic.DriftWindowDays)
	v.SetDefault("intelligence.drift_min_detections", ic.DriftMinDetections)
	v.SetDefault("intelligence.emerging_window_days", ic.EmergingWindowDays)
	v.SetDefault("intelligence.emerging_min_recent_sars", ic.EmergingMinRecentSARs)
	v.SetDefault("intelligence.max_clusters", ic.MaxClusters)
	v.SetDefault("intelligence.cluster_seed", ic.ClusterSeed)
}
