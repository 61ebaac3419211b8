// Package config loads server settings from defaults, an optional config file,
// environment variables and command-line flags.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/radutopala/milvus-mcp/internal/embedder"
	"github.com/radutopala/milvus-mcp/internal/extract"
	"github.com/radutopala/milvus-mcp/internal/logging"
	"github.com/radutopala/milvus-mcp/internal/milvus"
)

// EnvPrefix prefixes every environment variable, e.g. MILVUS_MCP_MILVUS_ADDRESS.
const EnvPrefix = "MILVUS_MCP"

// Transports accepted by server.transport.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
	TransportJSONL = "jsonl"
)

const maxDimension = 32768

// Config is the full server configuration.
type Config struct {
	Server  ServerConfig   `mapstructure:"server"`
	Milvus  milvus.Config  `mapstructure:"milvus"`
	Files   extract.Config `mapstructure:"files"`
	Logging logging.Config `mapstructure:"logging"`
}

// ServerConfig controls the MCP surface and the dispatcher.
type ServerConfig struct {
	Name           string        `mapstructure:"name"`
	Version        string        `mapstructure:"version"`
	Transport      string        `mapstructure:"transport"`
	Addr           string        `mapstructure:"addr"`
	StrictParams   bool          `mapstructure:"strict_params"`
	CallTimeout    time.Duration `mapstructure:"call_timeout"`
	MaxConcurrency int           `mapstructure:"max_concurrency"`
}

// legacyEnv maps keys to environment variables that predate EnvPrefix.
var legacyEnv = map[string]string{
	"server.name":    "MCP_SERVER_NAME",
	"server.version": "MCP_SERVER_VERSION",
	"logging.file":   "MCP_LOG_FILE",
	"milvus.address": "MILVUS_ADDRESS",

	"milvus.embedding.api_key": "OPENAI_API_KEY",
}

// SetDefaults registers every key with its default value.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.name", "milvus-mcp")
	v.SetDefault("server.version", "0.1.0")
	v.SetDefault("server.transport", TransportStdio)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.strict_params", true)
	v.SetDefault("server.call_timeout", 60*time.Second)
	v.SetDefault("server.max_concurrency", 0)

	v.SetDefault("milvus.address", "localhost:19530")
	v.SetDefault("milvus.username", "")
	v.SetDefault("milvus.password", "")
	v.SetDefault("milvus.db_name", "")
	v.SetDefault("milvus.pooled", true)
	v.SetDefault("milvus.dial_timeout", 10*time.Second)
	v.SetDefault("milvus.default_dimension", 1536)
	v.SetDefault("milvus.embedding.provider", embedder.ProviderASCII)
	v.SetDefault("milvus.embedding.model", "")
	v.SetDefault("milvus.embedding.api_key", "")
	v.SetDefault("milvus.embedding.base_url", "")
	v.SetDefault("milvus.embedding.dimensions", 0)
	v.SetDefault("milvus.embedding.timeout", 30*time.Second)

	v.SetDefault("files.root", "")
	v.SetDefault("files.max_bytes", 50<<20)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size_mb", 100)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age_days", 28)
	v.SetDefault("logging.compress", false)
}

// BindEnv enables MILVUS_MCP_* variables plus the legacy names.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	replacer := strings.NewReplacer(".", "_")
	for key, legacy := range legacyEnv {
		prefixed := EnvPrefix + "_" + strings.ToUpper(replacer.Replace(key))
		_ = v.BindEnv(key, prefixed, legacy)
	}
}

// ReadFile merges the config file at path, if any.
func ReadFile(v *viper.Viper, path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	return nil
}

// Load decodes and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Server.Transport = strings.ToLower(strings.TrimSpace(cfg.Server.Transport))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Server.Transport {
	case TransportStdio, TransportJSONL:
	case TransportHTTP:
		if strings.TrimSpace(c.Server.Addr) == "" {
			return fmt.Errorf("server.addr is required for the http transport")
		}
	default:
		return fmt.Errorf("server.transport must be one of stdio, http, jsonl; got %q", c.Server.Transport)
	}
	if c.Server.CallTimeout < 0 {
		return fmt.Errorf("server.call_timeout must not be negative")
	}
	if c.Server.MaxConcurrency < 0 {
		return fmt.Errorf("server.max_concurrency must not be negative")
	}

	if strings.TrimSpace(c.Milvus.Address) == "" {
		return fmt.Errorf("milvus.address is required")
	}
	if c.Milvus.DialTimeout < 0 {
		return fmt.Errorf("milvus.dial_timeout must not be negative")
	}
	if c.Milvus.DefaultDimension < 1 || c.Milvus.DefaultDimension > maxDimension {
		return fmt.Errorf("milvus.default_dimension must be between 1 and %d", maxDimension)
	}
	switch strings.ToLower(strings.TrimSpace(c.Milvus.Embedding.Provider)) {
	case "", embedder.ProviderASCII, embedder.ProviderOpenAI:
	default:
		return fmt.Errorf("milvus.embedding.provider must be one of ascii, openai; got %q", c.Milvus.Embedding.Provider)
	}
	if c.Milvus.Embedding.Dimensions < 0 || c.Milvus.Embedding.Dimensions > maxDimension {
		return fmt.Errorf("milvus.embedding.dimensions must be between 0 and %d", maxDimension)
	}
	if c.Milvus.Embedding.Timeout < 0 {
		return fmt.Errorf("milvus.embedding.timeout must not be negative")
	}
	if c.Files.MaxBytes < 0 {
		return fmt.Errorf("files.max_bytes must not be negative")
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown logging.format: %s", c.Logging.Format)
	}
	if c.Logging.MaxSizeMB < 0 || c.Logging.MaxBackups < 0 || c.Logging.MaxAgeDays < 0 {
		return fmt.Errorf("logging rotation limits must not be negative")
	}
	return nil
}
