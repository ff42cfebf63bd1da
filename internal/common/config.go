package common

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. DOCCLASS_DATABASE_DSN.
const EnvPrefix = "DOCCLASS"

// Config holds all application configuration
type Config struct {
	Log        LogConfig        `mapstructure:"log" yaml:"log" json:"log"`
	Database   DatabaseConfig   `mapstructure:"database" yaml:"database" json:"database"`
	Server     ServerConfig     `mapstructure:"server" yaml:"server" json:"server"`
	PDF        PDFConfig        `mapstructure:"pdf" yaml:"pdf" json:"pdf"`
	Classifier ClassifierConfig `mapstructure:"classifier" yaml:"classifier" json:"classifier"`
	Training   TrainingConfig   `mapstructure:"training" yaml:"training" json:"training"`
	Store      StoreConfig      `mapstructure:"store" yaml:"store" json:"store"`
	Retrain    RetrainConfig    `mapstructure:"retrain" yaml:"retrain" json:"retrain"`
	Inbox      InboxConfig      `mapstructure:"inbox" yaml:"inbox" json:"inbox"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level" json:"level"`
	Format string `mapstructure:"format" yaml:"format" json:"format"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver           string        `mapstructure:"driver" yaml:"driver" json:"driver"` // sqlite | postgres
	DSN              string        `mapstructure:"dsn" yaml:"dsn" json:"-"`
	MaxConns         int32         `mapstructure:"max_conns" yaml:"max_conns" json:"max_conns"`
	MinConns         int32         `mapstructure:"min_conns" yaml:"min_conns" json:"min_conns"`
	MaxConnLifetime  time.Duration `mapstructure:"max_conn_lifetime" yaml:"max_conn_lifetime" json:"max_conn_lifetime"`
	MaxConnIdleTime  time.Duration `mapstructure:"max_conn_idle_time" yaml:"max_conn_idle_time" json:"max_conn_idle_time"`
	DialTimeout      time.Duration `mapstructure:"dial_timeout" yaml:"dial_timeout" json:"dial_timeout"`
	StatementTimeout time.Duration `mapstructure:"statement_timeout" yaml:"statement_timeout" json:"statement_timeout"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr         string        `mapstructure:"grpc_addr" yaml:"grpc_addr" json:"grpc_addr"`
	InferenceTimeout time.Duration `mapstructure:"inference_timeout" yaml:"inference_timeout" json:"inference_timeout"`
	MaxDocumentBytes int           `mapstructure:"max_document_bytes" yaml:"max_document_bytes" json:"max_document_bytes"`
}

// PDFConfig selects the text-layer backends.
type PDFConfig struct {
	Backend     string `mapstructure:"backend" yaml:"backend" json:"backend"`    // ledongthuc | pdfcpu | pdftotext | ocr
	Fallback    string `mapstructure:"fallback" yaml:"fallback" json:"fallback"` // optional second backend
	StrictPages bool   `mapstructure:"strict_pages" yaml:"strict_pages" json:"strict_pages"`
	MaxPages    int    `mapstructure:"max_pages" yaml:"max_pages" json:"max_pages"` // 0 = no limit
}

type ClassifierConfig struct {
	Alpha        float64 `mapstructure:"alpha" yaml:"alpha" json:"alpha"`
	Threshold    float64 `mapstructure:"threshold" yaml:"threshold" json:"threshold"`
	MaxFeatures  int     `mapstructure:"max_features" yaml:"max_features" json:"max_features"`
	UseStopWords bool    `mapstructure:"use_stop_words" yaml:"use_stop_words" json:"use_stop_words"`
}

type TrainingConfig struct {
	CorpusDir     string    `mapstructure:"corpus_dir" yaml:"corpus_dir" json:"corpus_dir"`
	TestFraction  float64   `mapstructure:"test_fraction" yaml:"test_fraction" json:"test_fraction"`
	Seed          int64     `mapstructure:"seed" yaml:"seed" json:"seed"`
	Folds         int       `mapstructure:"folds" yaml:"folds" json:"folds"`
	SmoothingGrid []float64 `mapstructure:"smoothing_grid" yaml:"smoothing_grid" json:"smoothing_grid"`
}

// StoreConfig points at the model artifacts.
type StoreConfig struct {
	Kind      string `mapstructure:"kind" yaml:"kind" json:"kind"` // fs | s3
	Dir       string `mapstructure:"dir" yaml:"dir" json:"dir"`
	Bucket    string `mapstructure:"bucket" yaml:"bucket" json:"bucket"`
	Prefix    string `mapstructure:"prefix" yaml:"prefix" json:"prefix"`
	Region    string `mapstructure:"region" yaml:"region" json:"region"`
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint" json:"endpoint"`
	AccessKey string `mapstructure:"access_key" yaml:"access_key" json:"-"`
	SecretKey string `mapstructure:"secret_key" yaml:"secret_key" json:"-"`
}

type RetrainConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Schedule string `mapstructure:"schedule" yaml:"schedule" json:"schedule"`
	Reload   bool   `mapstructure:"reload" yaml:"reload" json:"reload"` // watch the fs store and hot-swap
}

type InboxConfig struct {
	Dir      string        `mapstructure:"dir" yaml:"dir" json:"dir"`
	Workers  int           `mapstructure:"workers" yaml:"workers" json:"workers"`
	Queue    int           `mapstructure:"queue" yaml:"queue" json:"queue"`
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce" json:"debounce"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout" json:"timeout"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "file:docclass.db?_pragma=busy_timeout(5000)")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.max_conn_lifetime", 30*time.Minute)
	v.SetDefault("database.max_conn_idle_time", 5*time.Minute)
	v.SetDefault("database.dial_timeout", 3*time.Second)
	v.SetDefault("database.statement_timeout", time.Duration(0))

	v.SetDefault("server.grpc_addr", ":8080")
	v.SetDefault("server.inference_timeout", 10*time.Second)
	v.SetDefault("server.max_document_bytes", 32<<20)

	v.SetDefault("pdf.backend", "ledongthuc")
	v.SetDefault("pdf.fallback", "pdfcpu")
	v.SetDefault("pdf.strict_pages", false)
	v.SetDefault("pdf.max_pages", 0)

	v.SetDefault("classifier.alpha", 1.0)
	v.SetDefault("classifier.threshold", 0.5)
	v.SetDefault("classifier.max_features", 5000)
	v.SetDefault("classifier.use_stop_words", true)

	v.SetDefault("training.corpus_dir", "./corpus")
	v.SetDefault("training.test_fraction", 0.2)
	v.SetDefault("training.seed", 42)
	v.SetDefault("training.folds", 5)
	v.SetDefault("training.smoothing_grid", []float64{0.01, 0.1, 0.5, 1.0, 2.0})

	v.SetDefault("store.kind", "fs")
	v.SetDefault("store.dir", "./model")
	v.SetDefault("store.bucket", "")
	v.SetDefault("store.prefix", "docclass/")
	v.SetDefault("store.region", "")
	v.SetDefault("store.endpoint", "")
	v.SetDefault("store.access_key", "")
	v.SetDefault("store.secret_key", "")

	v.SetDefault("retrain.enabled", false)
	v.SetDefault("retrain.schedule", "0 3 * * *")
	v.SetDefault("retrain.reload", true)

	v.SetDefault("inbox.dir", "")
	v.SetDefault("inbox.workers", 4)
	v.SetDefault("inbox.queue", 256)
	v.SetDefault("inbox.debounce", 500*time.Millisecond)
	v.SetDefault("inbox.timeout", 3*time.Minute)
}

// LoadConfig layers defaults, an optional YAML file, .env and DOCCLASS_* variables.
// An empty path searches ./docclass.yaml and $HOME/.docclass/docclass.yaml.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("docclass")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.docclass")
	}

	// Try to read config file (not required unless given explicitly)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, NewAppError(CodeConfig, "read config file", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, NewAppError(CodeConfig, "decode config", err)
	}
	return &cfg, nil
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	v := NewValidator()
	v.Field("database.driver", c.Database.Driver, OneOf("sqlite", "postgres")).
		Field("database.dsn", c.Database.DSN, Required).
		Field("server.grpc_addr", c.Server.GRPCAddr, Required).
		Field("pdf.backend", c.PDF.Backend, OneOf("ledongthuc", "pdfcpu", "pdftotext", "ocr")).
		Field("pdf.fallback", c.PDF.Fallback, OneOf("", "ledongthuc", "pdfcpu", "pdftotext", "ocr")).
		Field("classifier.alpha", c.Classifier.Alpha, Positive).
		Field("classifier.threshold", c.Classifier.Threshold, Between(0, 1)).
		Field("classifier.max_features", c.Classifier.MaxFeatures, Positive).
		Field("training.test_fraction", c.Training.TestFraction, Fraction).
		Field("store.kind", c.Store.Kind, OneOf("fs", "s3"))

	for i, a := range c.Training.SmoothingGrid {
		v.Field(fmt.Sprintf("training.smoothing_grid[%d]", i), a, Positive)
	}
	switch c.Store.Kind {
	case "fs":
		v.Field("store.dir", c.Store.Dir, Required)
	case "s3":
		v.Field("store.bucket", c.Store.Bucket, Required).
			Field("store.region", c.Store.Region, Required)
	}
	if c.Retrain.Enabled {
		v.Field("retrain.schedule", c.Retrain.Schedule, Required).
			Field("training.corpus_dir", c.Training.CorpusDir, Required)
	}

	if err := v.Error(); err != nil {
		return NewAppError(CodeConfig, "invalid configuration", withSentinel(ErrInvalidInput, err))
	}
	return nil
}
