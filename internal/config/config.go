// Package config loads process configuration from the environment.
//
// An optional .env file is exported into the environment first, then each
// section is decoded with envconfig. Configuration is read once at start and
// never reloaded.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

// Transport names accepted in MCP_TRANSPORT
const (
	TransportStdio          = "stdio"
	TransportSSE            = "sse"
	TransportStreamableHTTP = "streamable-http"
)

// dockerMarker is the file whose presence signals a container runtime
var dockerMarker = "/.dockerenv"

// Config is the full process configuration
type Config struct {
	Server        ServerConfig
	S3            S3Config
	CourtListener CourtListenerConfig
	Gemini        GeminiConfig
	Research      ResearchConfig
	Registry      RegistryConfig
	Pool          PoolConfig
	Tracing       TracingConfig
}

// ServerConfig controls the MCP listener
type ServerConfig struct {
	Host           string `envconfig:"MCP_HOST" default:"0.0.0.0"`
	Port           int    `envconfig:"MCP_PORT" default:"8000"`
	Transport      string `envconfig:"MCP_TRANSPORT" default:"stdio"`
	LogLevel       string `envconfig:"LOG_LEVEL" default:"INFO"`
	GRPCHealthPort int    `envconfig:"GRPC_HEALTH_PORT" default:"0"`
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"`
	DockerHint     string `envconfig:"DOCKER_CONTAINER"`
}

// Addr returns host:port
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// SlogLevel maps LOG_LEVEL onto a slog level, defaulting to info
func (c ServerConfig) SlogLevel() slog.Level {
	switch strings.ToUpper(strings.TrimSpace(c.LogLevel)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR", "CRITICAL":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// S3Config holds object storage settings
type S3Config struct {
	AccessKeyID     string `envconfig:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `envconfig:"AWS_SECRET_ACCESS_KEY"`
	Region          string `envconfig:"AWS_DEFAULT_REGION" default:"us-east-1"`
	DefaultBucket   string `envconfig:"S3_DEFAULT_BUCKET" default:"legal-research-reports"`
	KeyPrefix       string `envconfig:"S3_KEY_PREFIX" default:"reports"`
	Endpoint        string `envconfig:"AWS_ENDPOINT_URL"`
}

// StaticCredentials reports whether both access keys are configured
func (c S3Config) StaticCredentials() bool {
	return c.AccessKeyID != "" && c.SecretAccessKey != ""
}

// CourtListenerConfig holds case-law API settings
type CourtListenerConfig struct {
	APIKey    string  `envconfig:"COURTLISTENER_API_KEY"`
	BaseURL   string  `envconfig:"COURTLISTENER_BASE_URL" default:"https://www.courtlistener.com/api/rest/v4"`
	Timeout   Seconds `envconfig:"COURTLISTENER_TIMEOUT" default:"30"`
	RateLimit float64 `envconfig:"COURTLISTENER_RATE_LIMIT" default:"5"`
}

// GeminiConfig holds RAG and grounded-search settings
type GeminiConfig struct {
	APIKey  string `envconfig:"GOOGLE_API_KEY"`
	CLIPath string `envconfig:"GEMINI_CLI_PATH" default:"gemini"`
	Model   string `envconfig:"GEMINI_MODEL" default:"gemini-2.5-flash"`
	BaseURL string `envconfig:"GEMINI_BASE_URL"`
}

// ResearchConfig holds research engine settings
type ResearchConfig struct {
	OpenAIKey     string `envconfig:"OPENAI_API_KEY" required:"true"`
	OpenAIBaseURL string `envconfig:"OPENAI_BASE_URL"`
	Model         string `envconfig:"RESEARCH_MODEL" default:"gpt-4o-mini"`
	MaxSubQueries int    `envconfig:"RESEARCH_MAX_SUBQUERIES" default:"3"`
}

// RegistryConfig bounds the session registry and topic cache
type RegistryConfig struct {
	SessionTTL        time.Duration `envconfig:"SESSION_TTL" default:"24h"`
	SessionMaxEntries int           `envconfig:"SESSION_MAX_ENTRIES" default:"1000"`
	TopicTTL          time.Duration `envconfig:"TOPIC_CACHE_TTL" default:"6h"`
	TopicMaxEntries   int           `envconfig:"TOPIC_CACHE_MAX_ENTRIES" default:"256"`
}

// PoolConfig sizes the worker pool for blocking backend calls
type PoolConfig struct {
	Workers   int `envconfig:"WORKER_POOL_SIZE" default:"8"`
	QueueSize int `envconfig:"WORKER_QUEUE_SIZE" default:"64"`
}

// TracingConfig selects the trace exporter
type TracingConfig struct {
	ServiceName  string `envconfig:"OTEL_SERVICE_NAME" default:"legalhub-mcp"`
	Exporter     string `envconfig:"OTEL_TRACES_EXPORTER" default:"none"`
	OTLPEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

// Seconds is a duration that also accepts a bare number of seconds, such
// as "30" or "12.5"
type Seconds time.Duration

// Decode implements envconfig.Decoder
func (s *Seconds) Decode(value string) error {
	value = strings.TrimSpace(value)
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		*s = Seconds(time.Duration(f * float64(time.Second)))
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid duration %q", value)
	}
	*s = Seconds(d)
	return nil
}

// Duration returns s as a time.Duration
func (s Seconds) Duration() time.Duration { return time.Duration(s) }

// Load exports envFile (or ./.env when envFile is empty and the file exists)
// into the environment, decodes every section and validates the result.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := exportEnvironment(envFile); err != nil {
			return nil, fmt.Errorf("failed to load env file: %w", err)
		}
	} else if err := exportEnvironmentIfExists(".env"); err != nil {
		return nil, fmt.Errorf("failed to load default env file: %w", err)
	}

	var cfg Config
	sections := []any{
		&cfg.Server, &cfg.S3, &cfg.CourtListener, &cfg.Gemini,
		&cfg.Research, &cfg.Registry, &cfg.Pool, &cfg.Tracing,
	}
	for _, section := range sections {
		if err := envconfig.Process("", section); err != nil {
			return nil, err
		}
	}

	cfg.Server.Transport = strings.ToLower(strings.TrimSpace(cfg.Server.Transport))
	if cfg.Server.DockerHint != "" || fileExists(dockerMarker) {
		cfg.Server.Transport = TransportSSE
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints envconfig cannot express
func (c *Config) Validate() error {
	var errs []error
	switch c.Server.Transport {
	case TransportStdio, TransportSSE, TransportStreamableHTTP:
	default:
		errs = append(errs, fmt.Errorf("unsupported transport: %s", c.Server.Transport))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("MCP_PORT out of range: %d", c.Server.Port))
	}
	if strings.TrimSpace(c.Research.OpenAIKey) == "" {
		errs = append(errs, errors.New("OPENAI_API_KEY is required"))
	}
	if c.CourtListener.Timeout.Duration() <= 0 {
		errs = append(errs, errors.New("COURTLISTENER_TIMEOUT must be positive"))
	}
	if c.Pool.Workers <= 0 {
		errs = append(errs, fmt.Errorf("WORKER_POOL_SIZE must be positive: %d", c.Pool.Workers))
	}
	if c.Research.MaxSubQueries <= 0 {
		errs = append(errs, fmt.Errorf("RESEARCH_MAX_SUBQUERIES must be positive: %d", c.Research.MaxSubQueries))
	}
	switch c.Tracing.Exporter {
	case "none", "stdout", "otlp":
	default:
		errs = append(errs, fmt.Errorf("unsupported OTEL_TRACES_EXPORTER: %s", c.Tracing.Exporter))
	}
	return errors.Join(errs...)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func exportEnvironmentIfExists(filepath string) error {
	info, err := os.Stat(filepath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if info.IsDir() {
		return nil
	}
	return exportEnvironment(filepath)
}

// exportEnvironment copies every key of a dotenv file into the process
// environment. Variables already set are left alone.
func exportEnvironment(filepath string) error {
	v := viper.New()
	v.SetConfigFile(filepath)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return err
	}

	for k, val := range v.AllSettings() {
		key := strings.ToUpper(k)
		if _, set := os.LookupEnv(key); set {
			continue
		}
		if err := os.Setenv(key, fmt.Sprint(val)); err != nil {
			return err
		}
	}
	return nil
}
