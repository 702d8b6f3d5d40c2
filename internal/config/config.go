package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/jmehdipour/churn-predictor/internal/churn"
	"github.com/jmehdipour/churn-predictor/internal/classifier"
	"github.com/spf13/viper"
)

//go:embed defaults.yaml
var defaults []byte

// AnalysisDateLayout is the layout of features.analysis_date.
const AnalysisDateLayout = "2006-01-02"

// ---- Root ----

type Config struct {
	Log             LogConfig       `mapstructure:"log"`
	HTTP            HTTPConfig      `mapstructure:"http"`
	Features        FeaturesConfig  `mapstructure:"features"`
	Source          SourceConfig    `mapstructure:"source"`
	Training        TrainingConfig  `mapstructure:"training"`
	MySQL           DatabaseConfig  `mapstructure:"mysql"`
	ClickHouse      DatabaseConfig  `mapstructure:"clickhouse"`
	Redis           RedisConfig     `mapstructure:"redis"`
	Kafka           KafkaConfig     `mapstructure:"kafka"`
	Ingest          IngestConfig    `mapstructure:"ingest"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit"`
	PredictionCache CacheConfig     `mapstructure:"prediction_cache"`
}

// ---- Leaf structs ----

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

type FeaturesConfig struct {
	AnalysisDate       string `mapstructure:"analysis_date"` // YYYY-MM-DD, UTC midnight
	ChurnThresholdDays int    `mapstructure:"churn_threshold_days"`
	OutputPath         string `mapstructure:"output_path"`
}

type SourceConfig struct {
	Kind    string        `mapstructure:"kind"` // csv | xlsx | mysql
	Path    string        `mapstructure:"path"`
	Table   string        `mapstructure:"table"`
	Columns ColumnsConfig `mapstructure:"columns"`
}

// ColumnsConfig names the raw source columns; only the loaders read it.
type ColumnsConfig struct {
	CustomerID  string `mapstructure:"customer_id"`
	Invoice     string `mapstructure:"invoice"`
	InvoiceDate string `mapstructure:"invoice_date"`
	Quantity    string `mapstructure:"quantity"`
	Price       string `mapstructure:"price"`
	Country     string `mapstructure:"country"`
}

type TrainingConfig struct {
	TestSize    float64          `mapstructure:"test_size"`
	RandomState int64            `mapstructure:"random_state"`
	ModelPath   string           `mapstructure:"model_path"`
	Classifier  ClassifierConfig `mapstructure:"classifier"`
}

type ClassifierConfig struct {
	LearningRate      float64 `mapstructure:"learning_rate"`
	Epochs            int     `mapstructure:"epochs"`
	L2                float64 `mapstructure:"l2"`
	DecisionThreshold float64 `mapstructure:"decision_threshold"`
}

type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idletime"`
	PingTimeout     time.Duration `mapstructure:"ping_timeout"`
}

type RedisConfig struct {
	Addr        string        `mapstructure:"addr"` // empty disables cache and rate limiting
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

type KafkaConfig struct {
	Brokers        []string `mapstructure:"brokers"`
	Topic          string   `mapstructure:"topic"`
	GroupID        string   `mapstructure:"group_id"`
	MinBytes       int      `mapstructure:"min_bytes"`
	MaxBytes       int      `mapstructure:"max_bytes"`
	CommitInterval int      `mapstructure:"commit_interval_ms"`
}

type IngestConfig struct {
	BatchSize int           `mapstructure:"batch_size"`
	BatchWait time.Duration `mapstructure:"batch_wait"`
}

type RateLimitConfig struct {
	RPS int `mapstructure:"rps"`
}

type CacheConfig struct {
	TTL           time.Duration `mapstructure:"ttl"`
	FailThreshold int           `mapstructure:"fail_threshold"` // consecutive redis errors before the cache is bypassed
	OpenFor       time.Duration `mapstructure:"open_for"`
}

// Load reads embedded defaults, merges user YAML (if provided), and applies env overrides (CHURN_*).
func Load(path string) (Config, error) {
	v := viper.New()

	// embedded defaults
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return Config{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			// a missing file (e.g. the default config.yaml) means defaults only
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return Config{}, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	// env override (CHURN_FEATURES_CHURN_THRESHOLD_DAYS, ...)
	v.SetEnvPrefix("CHURN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// PipelineSettings converts the features section into the pipeline's settings.
func (c Config) PipelineSettings() (churn.Settings, error) {
	at, err := time.ParseInLocation(AnalysisDateLayout, strings.TrimSpace(c.Features.AnalysisDate), time.UTC)
	if err != nil {
		return churn.Settings{}, fmt.Errorf("features.analysis_date %q: %w", c.Features.AnalysisDate, err)
	}
	if c.Features.ChurnThresholdDays < 0 {
		return churn.Settings{}, fmt.Errorf("features.churn_threshold_days must be >= 0, got %d", c.Features.ChurnThresholdDays)
	}
	return churn.Settings{
		AnalysisDate:       at,
		ChurnThresholdDays: c.Features.ChurnThresholdDays,
	}, nil
}

// ClassifierParams maps the training.classifier section onto the classifier's hyperparameters.
func (c Config) ClassifierParams() classifier.Params {
	return classifier.Params{
		LearningRate:      c.Training.Classifier.LearningRate,
		Epochs:            c.Training.Classifier.Epochs,
		L2:                c.Training.Classifier.L2,
		DecisionThreshold: c.Training.Classifier.DecisionThreshold,
	}
}
