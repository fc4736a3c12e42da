package common

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Config holds all application configuration
type Config struct {
	Database  DatabaseConfig `mapstructure:"database"`
	Server    ServerConfig   `mapstructure:"server"`
	Storage   StorageConfig  `mapstructure:"storage"`
	Parser    ParserConfig   `mapstructure:"parser"`
	Analyst   LLMConfig      `mapstructure:"analyst"`
	Extractor LLMConfig      `mapstructure:"extractor"`
	Pipeline  PipelineConfig `mapstructure:"pipeline"`
	Log       LogConfig      `mapstructure:"log"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver           string        `mapstructure:"driver"`
	DSN              string        `mapstructure:"dsn"`
	Table            string        `mapstructure:"table"`
	MaxConns         int32         `mapstructure:"max_conns"`
	MinConns         int32         `mapstructure:"min_conns"`
	MaxConnLifetime  time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime  time.Duration `mapstructure:"max_conn_idle_time"`
	DialTimeout      time.Duration `mapstructure:"dial_timeout"`
	StatementTimeout time.Duration `mapstructure:"statement_timeout"`
}

// ServerConfig holds daemon configuration
type ServerConfig struct {
	HTTPAddr     string        `mapstructure:"http_addr"`
	GRPCAddr     string        `mapstructure:"grpc_addr"`
	InboxDir     string        `mapstructure:"inbox_dir"`
	QueueSize    int           `mapstructure:"queue_size"`
	RunTimeout   time.Duration `mapstructure:"run_timeout"`
	MaxUploadMB  int64         `mapstructure:"max_upload_mb"`
	ShutdownWait time.Duration `mapstructure:"shutdown_wait"`
}

// StorageConfig describes the S3-compatible bucket that receives raw resumes.
type StorageConfig struct {
	Endpoint      string        `mapstructure:"endpoint"`
	AccessKey     string        `mapstructure:"access_key"`
	SecretKey     string        `mapstructure:"secret_key"`
	SecretKeyFile string        `mapstructure:"secret_key_file"`
	Region        string        `mapstructure:"region"`
	UseSSL        bool          `mapstructure:"use_ssl"`
	Bucket        string        `mapstructure:"bucket"`
	PublicBaseURL string        `mapstructure:"public_base_url"`
	PresignExpiry time.Duration `mapstructure:"presign_expiry"`
}

// ParserConfig configures the document parsing service and its retry policy.
type ParserConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	APIKey        string        `mapstructure:"api_key"`
	APIKeyFile    string        `mapstructure:"api_key_file"`
	ResultType    string        `mapstructure:"result_type"`
	PollInterval  time.Duration `mapstructure:"poll_interval"`
	MaxWait       time.Duration `mapstructure:"max_wait"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxAttempts   int           `mapstructure:"max_attempts"`
	BaseDelay     time.Duration `mapstructure:"base_delay"`
	BackoffFactor float64       `mapstructure:"backoff_factor"`
	MinTextLength int           `mapstructure:"min_text_length"`
}

// LLMConfig holds the settings of one classifier stage.
type LLMConfig struct {
	Provider          string        `mapstructure:"provider"`
	BaseURL           string        `mapstructure:"base_url"`
	APIKey            string        `mapstructure:"api_key"`
	APIKeyFile        string        `mapstructure:"api_key_file"`
	Model             string        `mapstructure:"model"`
	Temperature       float32       `mapstructure:"temperature"`
	TopP              float32       `mapstructure:"top_p"`
	MaxTokens         int           `mapstructure:"max_tokens"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
}

// PipelineConfig holds batch orchestration settings.
type PipelineConfig struct {
	PaceDelay time.Duration `mapstructure:"pace_delay"`
	OutputDir string        `mapstructure:"output_dir"`
}

type LogConfig struct {
	JSON  bool `mapstructure:"json"`
	Debug bool `mapstructure:"debug"`
}

// envBindings maps config keys to the environment variables that feed them.
// When several names are listed the first one set wins.
var envBindings = map[string][]string{
	"database.driver":             {"DB_DRIVER"},
	"database.dsn":                {"DB_URL", "DATABASE_URL"},
	"database.table":              {"DB_TABLE"},
	"database.max_conns":          {"DB_MAX_CONNS"},
	"database.min_conns":          {"DB_MIN_CONNS"},
	"database.max_conn_lifetime":  {"DB_MAX_CONN_LIFETIME"},
	"database.max_conn_idle_time": {"DB_MAX_CONN_IDLE_TIME"},
	"database.dial_timeout":       {"DB_DIAL_TIMEOUT"},
	"database.statement_timeout":  {"DB_STATEMENT_TIMEOUT"},

	"server.http_addr":     {"HTTP_ADDR"},
	"server.grpc_addr":     {"GRPC_ADDR"},
	"server.inbox_dir":     {"INBOX_DIR"},
	"server.queue_size":    {"QUEUE_SIZE"},
	"server.run_timeout":   {"RUN_TIMEOUT"},
	"server.max_upload_mb": {"MAX_UPLOAD_MB"},
	"server.shutdown_wait": {"SHUTDOWN_WAIT"},

	"storage.endpoint":        {"STORAGE_ENDPOINT"},
	"storage.access_key":      {"STORAGE_ACCESS_KEY"},
	"storage.secret_key":      {"STORAGE_SECRET_KEY"},
	"storage.secret_key_file": {"STORAGE_SECRET_KEY_FILE"},
	"storage.region":          {"STORAGE_REGION"},
	"storage.use_ssl":         {"STORAGE_USE_SSL"},
	"storage.bucket":          {"STORAGE_BUCKET"},
	"storage.public_base_url": {"STORAGE_PUBLIC_BASE_URL"},
	"storage.presign_expiry":  {"STORAGE_PRESIGN_EXPIRY"},

	"parser.base_url":        {"LLAMA_CLOUD_BASE_URL"},
	"parser.api_key":         {"LLAMA_CLOUD_API_KEY"},
	"parser.api_key_file":    {"LLAMA_CLOUD_API_KEY_FILE"},
	"parser.result_type":     {"PARSER_RESULT_TYPE"},
	"parser.poll_interval":   {"PARSER_POLL_INTERVAL"},
	"parser.max_wait":        {"PARSER_MAX_WAIT"},
	"parser.timeout":         {"PARSER_TIMEOUT"},
	"parser.max_attempts":    {"PARSER_MAX_ATTEMPTS"},
	"parser.base_delay":      {"PARSER_BASE_DELAY"},
	"parser.backoff_factor":  {"PARSER_BACKOFF_FACTOR"},
	"parser.min_text_length": {"PARSER_MIN_TEXT_LENGTH"},

	"analyst.provider":            {"ANALYST_PROVIDER"},
	"analyst.base_url":            {"ANALYST_BASE_URL"},
	"analyst.api_key":             {"ANALYST_API_KEY", "GROQ_API_KEY"},
	"analyst.api_key_file":        {"ANALYST_API_KEY_FILE", "GROQ_API_KEY_FILE"},
	"analyst.model":               {"ANALYST_MODEL"},
	"analyst.temperature":         {"ANALYST_TEMPERATURE"},
	"analyst.top_p":               {"ANALYST_TOP_P"},
	"analyst.max_tokens":          {"ANALYST_MAX_TOKENS"},
	"analyst.timeout":             {"ANALYST_TIMEOUT"},
	"analyst.requests_per_minute": {"ANALYST_RPM"},

	"extractor.provider":            {"EXTRACTOR_PROVIDER"},
	"extractor.base_url":            {"EXTRACTOR_BASE_URL"},
	"extractor.api_key":             {"EXTRACTOR_API_KEY", "OPENAI_API_KEY"},
	"extractor.api_key_file":        {"EXTRACTOR_API_KEY_FILE", "OPENAI_API_KEY_FILE"},
	"extractor.model":               {"EXTRACTOR_MODEL"},
	"extractor.temperature":         {"EXTRACTOR_TEMPERATURE"},
	"extractor.top_p":               {"EXTRACTOR_TOP_P"},
	"extractor.max_tokens":          {"EXTRACTOR_MAX_TOKENS"},
	"extractor.timeout":             {"EXTRACTOR_TIMEOUT"},
	"extractor.requests_per_minute": {"EXTRACTOR_RPM"},

	"pipeline.pace_delay": {"PACE_DELAY"},
	"pipeline.output_dir": {"OUTPUT_DIR"},

	"log.json":  {"LOG_JSON"},
	"log.debug": {"LOG_DEBUG"},
}

// SetDefaults registers the default value of every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", DriverPostgres)
	v.SetDefault("database.table", "bulk_applicants")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 1)
	v.SetDefault("database.max_conn_lifetime", 30*time.Minute)
	v.SetDefault("database.max_conn_idle_time", 5*time.Minute)
	v.SetDefault("database.dial_timeout", 3*time.Second)
	v.SetDefault("database.statement_timeout", time.Duration(0))

	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("server.grpc_addr", ":9090")
	v.SetDefault("server.queue_size", 16)
	v.SetDefault("server.run_timeout", 2*time.Hour)
	v.SetDefault("server.max_upload_mb", 64)
	v.SetDefault("server.shutdown_wait", 30*time.Second)

	v.SetDefault("storage.use_ssl", true)
	v.SetDefault("storage.bucket", "bulk_resumes")

	v.SetDefault("parser.base_url", "https://api.cloud.llamaindex.ai")
	v.SetDefault("parser.result_type", "markdown")
	v.SetDefault("parser.poll_interval", 2*time.Second)
	v.SetDefault("parser.max_wait", 3*time.Minute)
	v.SetDefault("parser.timeout", 60*time.Second)
	v.SetDefault("parser.max_attempts", 3)
	v.SetDefault("parser.base_delay", 2*time.Second)
	v.SetDefault("parser.backoff_factor", 2.0)
	v.SetDefault("parser.min_text_length", 10)

	v.SetDefault("analyst.provider", ProviderOpenAI)
	v.SetDefault("analyst.base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("analyst.model", "deepseek-r1-distill-llama-70b")
	v.SetDefault("analyst.temperature", 0.6)
	v.SetDefault("analyst.top_p", 0.95)
	v.SetDefault("analyst.max_tokens", 0)
	v.SetDefault("analyst.timeout", 120*time.Second)

	v.SetDefault("extractor.provider", ProviderOpenAI)
	v.SetDefault("extractor.base_url", "https://api.openai.com/v1")
	v.SetDefault("extractor.model", "gpt-4o")
	v.SetDefault("extractor.temperature", 1.0)
	v.SetDefault("extractor.top_p", 1.0)
	v.SetDefault("extractor.max_tokens", 2048)
	v.SetDefault("extractor.timeout", 60*time.Second)

	v.SetDefault("pipeline.pace_delay", time.Second)
	v.SetDefault("pipeline.output_dir", ".")

	v.SetDefault("log.json", true)
	v.SetDefault("log.debug", false)
}

// LoadDotEnv loads the given .env files into the process environment. Missing
// files are skipped and variables already set are left alone.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// LoadConfig resolves configuration from defaults, an optional config file,
// the environment and any flags already bound on v.
func LoadConfig(v *viper.Viper, configFile string) (*Config, error) {
	if v == nil {
		v = viper.New()
	}
	SetDefaults(v)
	for key, envs := range envBindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, NewAppError("CONFIG_ERROR", "read config file "+configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, NewAppError("CONFIG_ERROR", "decode configuration", err)
	}
	if err := cfg.resolveSecrets(); err != nil {
		return nil, NewAppError("CONFIG_ERROR", "resolve secrets", err)
	}
	return &cfg, nil
}

func (c *Config) resolveSecrets() error {
	type target struct {
		name  string
		value *string
		file  string
	}
	targets := []target{
		{"storage secret key", &c.Storage.SecretKey, c.Storage.SecretKeyFile},
		{"parser api key", &c.Parser.APIKey, c.Parser.APIKeyFile},
		{"analyst api key", &c.Analyst.APIKey, c.Analyst.APIKeyFile},
		{"extractor api key", &c.Extractor.APIKey, c.Extractor.APIKeyFile},
	}
	for _, t := range targets {
		if t.file == "" {
			continue
		}
		secret, err := LoadSecret(SecretSource{Name: t.name, Value: *t.value, File: t.file})
		if err != nil {
			return err
		}
		*t.value = secret
	}
	return nil
}

// Validate checks everything a full batch run needs.
func (c *Config) Validate() error {
	checks := []func() error{
		c.Database.Validate,
		c.Storage.Validate,
		c.Parser.Validate,
		func() error { return c.Analyst.Validate("analyst") },
		func() error { return c.Extractor.Validate("extractor") },
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

func (c DatabaseConfig) Validate() error {
	v := NewValidator().
		Field("DB_DRIVER", c.Driver, Required, OneOf(DriverPostgres, DriverSQLite)).
		Field("DB_TABLE", c.Table, Required)
	if c.Driver == DriverPostgres {
		v.Field("DB_URL", c.DSN, Required)
	}
	return configErr(v)
}

func (c StorageConfig) Validate() error {
	return configErr(NewValidator().
		Field("STORAGE_ENDPOINT", c.Endpoint, Required).
		Field("STORAGE_BUCKET", c.Bucket, Required).
		Field("STORAGE_ACCESS_KEY", c.AccessKey, Required).
		Field("STORAGE_SECRET_KEY", c.SecretKey, Required))
}

func (c ParserConfig) Validate() error {
	return configErr(NewValidator().
		Field("LLAMA_CLOUD_API_KEY", c.APIKey, Required).
		Field("PARSER_MAX_ATTEMPTS", c.MaxAttempts, AtLeast(1)).
		Field("PARSER_MIN_TEXT_LENGTH", c.MinTextLength, AtLeast(0)))
}

// Validate checks one classifier stage; stage prefixes the env var names.
func (c LLMConfig) Validate(stage string) error {
	prefix := strings.ToUpper(stage) + "_"
	return configErr(NewValidator().
		Field(prefix+"PROVIDER", c.Provider, Required, OneOf(ProviderOpenAI, ProviderGemini)).
		Field(prefix+"API_KEY", c.APIKey, Required).
		Field(prefix+"MODEL", c.Model, Required))
}

// configErr turns collected validation failures into a CONFIG_ERROR naming every bad setting.
func configErr(v *Validator) error {
	if !v.HasErrors() {
		return nil
	}
	return NewAppError("CONFIG_ERROR", "invalid settings "+strings.Join(v.Fields(), ", ")+": "+v.ErrorMessage(), ErrInvalidInput)
}
