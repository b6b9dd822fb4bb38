package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type TelemetryConfig struct {
	LogLevel       string `yaml:"log_level"`
	OTLPEndpoint   string `yaml:"otlp_endpoint"`
	OTLPInsecure   bool   `yaml:"otlp_insecure"`
	PrometheusBind string `yaml:"prometheus_bind"`
}

type HTTPConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

type BusConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Embedded       bool     `yaml:"embedded"`
	Port           int      `yaml:"port"`
	Servers        []string `yaml:"servers"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	Token          string   `yaml:"token"`
	TLSInsecure    bool     `yaml:"tls_insecure"`
	ConnectTimeout int      `yaml:"connect_timeout_ms"`
}

// EngineConfig carries every knob the synthesis pipeline recognizes.
type EngineConfig struct {
	KokoroModelPath     string `yaml:"kokoro_model_path"`
	PhonemizerModelPath string `yaml:"phonemizer_model_path"`
	DictionaryPath      string `yaml:"dictionary_path"`
	TokenizerVocabPath  string `yaml:"tokenizer_vocab_path"`
	VoicesDir           string `yaml:"voices_dir"`

	MaxConcurrentRequests int  `yaml:"max_concurrent_requests"`
	IntraOpThreads        int  `yaml:"intra_op_threads"`
	InterOpThreads        int  `yaml:"inter_op_threads"`
	EnableGPU             bool `yaml:"enable_gpu"`

	EnableCache     bool `yaml:"enable_cache"`
	MaxCacheSizeMB  int  `yaml:"max_cache_size_mb"`
	MaxCacheEntries int  `yaml:"max_cache_entries"`
	CacheTTLSeconds int  `yaml:"cache_ttl_seconds"`

	TargetSampleRate int  `yaml:"target_sample_rate"`
	NormalizeAudio   bool `yaml:"normalize_audio"`

	EnableAnalyzer bool `yaml:"enable_analyzer"`
	NormalizeText  bool `yaml:"normalize_text"`
}

type HistoryConfig struct {
	Path          string `yaml:"path"`
	RetentionMode string `yaml:"retention_mode"`
	RetentionDays int    `yaml:"retention_days"`
	VacuumOnStart bool   `yaml:"vacuum_on_start"`
}

type Config struct {
	RuntimeName string          `yaml:"runtime_name"`
	Environment string          `yaml:"environment"`
	HTTP        HTTPConfig      `yaml:"http"`
	Telemetry   TelemetryConfig `yaml:"telemetry"`
	Bus         BusConfig       `yaml:"bus"`
	Engine      EngineConfig    `yaml:"engine"`
	History     HistoryConfig   `yaml:"history"`
}

func Default() Config {
	return Config{
		RuntimeName: "kotoba-tts",
		Environment: "development",
		HTTP: HTTPConfig{
			Bind: "0.0.0.0",
			Port: 8080,
		},
		Telemetry: TelemetryConfig{
			LogLevel:       "info",
			OTLPEndpoint:   "",
			OTLPInsecure:   true,
			PrometheusBind: ":9091",
		},
		Bus: BusConfig{
			Enabled:        false,
			Embedded:       true,
			Port:           4222,
			Servers:        []string{"nats://localhost:4222"},
			ConnectTimeout: 2000,
		},
		Engine: EngineConfig{
			KokoroModelPath:       "models/kokoro-v1.0.int8.onnx",
			PhonemizerModelPath:   "models/phonemizer.onnx",
			DictionaryPath:        "data/ja_phonemes.json",
			TokenizerVocabPath:    "models/tokenizer_vocab.json",
			VoicesDir:             "models/voices",
			MaxConcurrentRequests: 0,
			IntraOpThreads:        0,
			InterOpThreads:        0,
			EnableGPU:             false,
			EnableCache:           true,
			MaxCacheSizeMB:        100,
			MaxCacheEntries:       1000,
			CacheTTLSeconds:       3600,
			TargetSampleRate:      24000,
			NormalizeAudio:        true,
			EnableAnalyzer:        true,
			NormalizeText:         true,
		},
		History: HistoryConfig{
			Path:          "./data/kotoba-history.db",
			RetentionMode: "ephemeral",
			RetentionDays: 30,
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.RuntimeName, "KOTOBA_RUNTIME_NAME")
	overrideString(&cfg.Environment, "KOTOBA_RUNTIME_ENVIRONMENT")
	overrideString(&cfg.HTTP.Bind, "KOTOBA_HTTP_BIND")
	overrideInt(&cfg.HTTP.Port, "KOTOBA_HTTP_PORT")
	overrideString(&cfg.Telemetry.LogLevel, "KOTOBA_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "KOTOBA_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "KOTOBA_TELEMETRY_OTLP_INSECURE")
	overrideString(&cfg.Telemetry.PrometheusBind, "KOTOBA_TELEMETRY_PROMETHEUS_BIND")
	overrideBool(&cfg.Bus.Enabled, "KOTOBA_BUS_ENABLED")
	overrideBool(&cfg.Bus.Embedded, "KOTOBA_BUS_EMBEDDED")
	overrideInt(&cfg.Bus.Port, "KOTOBA_BUS_PORT")
	overrideStringSlice(&cfg.Bus.Servers, "KOTOBA_BUS_SERVERS")
	overrideString(&cfg.Bus.Username, "KOTOBA_BUS_USERNAME")
	overrideString(&cfg.Bus.Password, "KOTOBA_BUS_PASSWORD")
	overrideString(&cfg.Bus.Token, "KOTOBA_BUS_TOKEN")
	overrideBool(&cfg.Bus.TLSInsecure, "KOTOBA_BUS_TLS_INSECURE")
	overrideInt(&cfg.Bus.ConnectTimeout, "KOTOBA_BUS_CONNECT_TIMEOUT_MS")
	overrideString(&cfg.Engine.KokoroModelPath, "KOTOBA_ENGINE_KOKORO_MODEL_PATH")
	overrideString(&cfg.Engine.PhonemizerModelPath, "KOTOBA_ENGINE_PHONEMIZER_MODEL_PATH")
	overrideString(&cfg.Engine.DictionaryPath, "KOTOBA_ENGINE_DICTIONARY_PATH")
	overrideString(&cfg.Engine.TokenizerVocabPath, "KOTOBA_ENGINE_TOKENIZER_VOCAB_PATH")
	overrideString(&cfg.Engine.VoicesDir, "KOTOBA_ENGINE_VOICES_DIR")
	overrideInt(&cfg.Engine.MaxConcurrentRequests, "KOTOBA_ENGINE_MAX_CONCURRENT_REQUESTS")
	overrideInt(&cfg.Engine.IntraOpThreads, "KOTOBA_ENGINE_INTRA_OP_THREADS")
	overrideInt(&cfg.Engine.InterOpThreads, "KOTOBA_ENGINE_INTER_OP_THREADS")
	overrideBool(&cfg.Engine.EnableGPU, "KOTOBA_ENGINE_ENABLE_GPU")
	overrideBool(&cfg.Engine.EnableCache, "KOTOBA_ENGINE_ENABLE_CACHE")
	overrideInt(&cfg.Engine.MaxCacheSizeMB, "KOTOBA_ENGINE_MAX_CACHE_SIZE_MB")
	overrideInt(&cfg.Engine.MaxCacheEntries, "KOTOBA_ENGINE_MAX_CACHE_ENTRIES")
	overrideInt(&cfg.Engine.CacheTTLSeconds, "KOTOBA_ENGINE_CACHE_TTL_SECONDS")
	overrideInt(&cfg.Engine.TargetSampleRate, "KOTOBA_ENGINE_TARGET_SAMPLE_RATE")
	overrideBool(&cfg.Engine.NormalizeAudio, "KOTOBA_ENGINE_NORMALIZE_AUDIO")
	overrideBool(&cfg.Engine.EnableAnalyzer, "KOTOBA_ENGINE_ENABLE_ANALYZER")
	overrideBool(&cfg.Engine.NormalizeText, "KOTOBA_ENGINE_NORMALIZE_TEXT")
	overrideString(&cfg.History.Path, "KOTOBA_HISTORY_PATH")
	overrideString(&cfg.History.RetentionMode, "KOTOBA_HISTORY_RETENTION_MODE")
	overrideInt(&cfg.History.RetentionDays, "KOTOBA_HISTORY_RETENTION_DAYS")
	overrideBool(&cfg.History.VacuumOnStart, "KOTOBA_HISTORY_VACUUM_ON_START")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		parts := strings.Split(value, ",")
		cleaned := make([]string, 0, len(parts))
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				cleaned = append(cleaned, trimmed)
			}
		}
		if len(cleaned) > 0 {
			*target = cleaned
		}
	}
}

func validate(cfg Config) error {
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return fmt.Errorf("invalid http port: %d", cfg.HTTP.Port)
	}
	if cfg.Bus.Enabled && !cfg.Bus.Embedded && len(cfg.Bus.Servers) == 0 {
		return errors.New("bus enabled but no servers configured")
	}
	if cfg.Engine.MaxConcurrentRequests < 0 {
		return fmt.Errorf("max_concurrent_requests must be >= 0, got %d", cfg.Engine.MaxConcurrentRequests)
	}
	if cfg.Engine.MaxCacheSizeMB < 0 {
		return fmt.Errorf("max_cache_size_mb must be >= 0, got %d", cfg.Engine.MaxCacheSizeMB)
	}
	if cfg.Engine.CacheTTLSeconds < 0 {
		return fmt.Errorf("cache_ttl_seconds must be >= 0, got %d", cfg.Engine.CacheTTLSeconds)
	}
	if cfg.Engine.TargetSampleRate <= 0 {
		return fmt.Errorf("target_sample_rate must be > 0, got %d", cfg.Engine.TargetSampleRate)
	}
	switch cfg.History.RetentionMode {
	case "", "ephemeral", "days", "keep":
	default:
		return fmt.Errorf("unknown history retention_mode: %q", cfg.History.RetentionMode)
	}
	return nil
}
