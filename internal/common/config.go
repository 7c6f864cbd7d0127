package common

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// AppName is used for config, cache and data directory names.
const AppName = "partlister"

// DefaultConfigFile is looked up in the working directory when no path is given.
const DefaultConfigFile = "partlister.yaml"

// ErrConfigNotFound is returned when an explicitly requested config file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// Config holds all application configuration. It is assembled once at startup by
// LoadConfig and handed to constructors by value; nothing reads the environment afterwards.
type Config struct {
	Log       LogConfig       `yaml:"log"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	OCR       OCRConfig       `yaml:"ocr"`
	LLM       LLMConfig       `yaml:"llm"`
	Cache     CacheConfig     `yaml:"cache"`
	Server    ServerConfig    `yaml:"server"`
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text | json
}

// SchedulerConfig bounds OCR job concurrency.
type SchedulerConfig struct {
	Concurrency int           `yaml:"concurrency"`
	TaskTimeout time.Duration `yaml:"task_timeout"` // 0 = no deadline
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	EnableNative     bool   `yaml:"enable_native"`
	EnableEmbedded   bool   `yaml:"enable_embedded"`
	EnableVision     bool   `yaml:"enable_vision"`
	SimulateFallback bool   `yaml:"simulate_fallback"`
	MaxImages        int    `yaml:"max_images"`
	MaxDimension     int    `yaml:"max_dimension"`
	PSM              string `yaml:"psm"`
	Tesseract        string `yaml:"tesseract"`
	Lang             string `yaml:"lang"`
	TessdataDir      string `yaml:"tessdata_dir"`
	TSVConfidence    bool   `yaml:"tsv_confidence"`
	HeicConverter    string `yaml:"heic_converter"`
}

// LLMConfig holds generative backend configuration. An empty APIKey selects the mock paths.
type LLMConfig struct {
	APIKey                string        `yaml:"api_key"`
	BaseURL               string        `yaml:"base_url"`
	Model                 string        `yaml:"model"`
	VisionModel           string        `yaml:"vision_model"`
	Temperature           float32       `yaml:"temperature"`
	PartNumberTemperature float32       `yaml:"part_number_temperature"`
	Timeout               time.Duration `yaml:"timeout"`
	MCPConnectors         []string      `yaml:"mcp_connectors"`
}

// CacheConfig controls the sqlite OCR result cache.
type CacheConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// ServerConfig holds the HTTP adapter settings.
type ServerConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	MaxUploadFiles int    `yaml:"max_upload_files"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
}

// Addr is host:port.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + strconv.Itoa(s.Port)
}

// HasCredential reports whether a generative backend is configured.
func (l LLMConfig) HasCredential() bool {
	return strings.TrimSpace(l.APIKey) != ""
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		Log: LogConfig{Level: "info", Format: "text"},
		Scheduler: SchedulerConfig{
			Concurrency: 1,
		},
		OCR: OCRConfig{
			EnableNative:     true,
			SimulateFallback: true,
			MaxImages:        3,
			MaxDimension:     1800,
			PSM:              "6",
			Tesseract:        "tesseract",
			Lang:             "eng",
			HeicConverter:    "magick",
		},
		LLM: LLMConfig{
			BaseURL:               "https://api.openai.com/v1",
			Model:                 "gpt-4.1-mini",
			Temperature:           0.4,
			PartNumberTemperature: 0.1,
			Timeout:               45 * time.Second,
		},
		Cache: CacheConfig{
			Path: filepath.Join(xdg.CacheHome, AppName, "ocr-cache.db"),
		},
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           4000,
			MaxUploadFiles: 20,
			MaxUploadBytes: 10 << 20,
		},
	}
}

// LoadConfig builds the configuration: defaults, then the YAML file, then .env and
// process environment overrides. path may be empty, in which case the file is searched
// for in the working directory and the XDG config directory.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	file, err := FindConfigFile(path)
	if err != nil {
		return Config{}, err
	}
	if file != "" {
		if err := loadYAML(file, &cfg); err != nil {
			return Config{}, ConfigErrorf("load %s: %v", file, err)
		}
	}

	// .env is optional; a missing file is not an error.
	_ = godotenv.Load()
	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FindConfigFile resolves the config file path. An explicit path must exist.
func FindConfigFile(path string) (string, error) {
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				return "", fmt.Errorf("%w: %s", ErrConfigNotFound, path)
			}
			return "", err
		}
		return path, nil
	}
	candidates := []string{DefaultConfigFile, ConfigFilePath()}
	for _, c := range candidates {
		if st, err := os.Stat(c); err == nil && !st.IsDir() {
			return c, nil
		}
	}
	return "", nil
}

// ConfigFilePath is the per-user config location.
func ConfigFilePath() string {
	return filepath.Join(xdg.ConfigHome, AppName, "config.yaml")
}

func loadYAML(path string, cfg *Config) error {
	data, err := os.ReadFile(path) //nolint:gosec // user-provided config path is intentional
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func applyEnv(cfg *Config) {
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnv("LOG_FORMAT", cfg.Log.Format)

	cfg.Scheduler.Concurrency = getEnvAsInt("OCR_CONCURRENCY", cfg.Scheduler.Concurrency)
	cfg.Scheduler.TaskTimeout = getEnvAsDuration("OCR_TASK_TIMEOUT", cfg.Scheduler.TaskTimeout)

	cfg.OCR.EnableNative = getEnvAsBool("USE_TESSERACT", cfg.OCR.EnableNative)
	cfg.OCR.EnableNative = getEnvAsBool("OCR_ENABLE_NATIVE", cfg.OCR.EnableNative)
	cfg.OCR.EnableEmbedded = getEnvAsBool("OCR_ENABLE_EMBEDDED", cfg.OCR.EnableEmbedded)
	cfg.OCR.EnableVision = getEnvAsBool("OCR_ENABLE_VISION", cfg.OCR.EnableVision)
	cfg.OCR.SimulateFallback = getEnvAsBool("OCR_SIMULATE_FALLBACK", cfg.OCR.SimulateFallback)
	cfg.OCR.MaxImages = getEnvAsInt("OCR_MAX_IMAGES", cfg.OCR.MaxImages)
	cfg.OCR.MaxDimension = getEnvAsInt("OCR_MAX_DIMENSION", cfg.OCR.MaxDimension)
	cfg.OCR.PSM = getEnv("TESSERACT_PSM", cfg.OCR.PSM)
	cfg.OCR.Tesseract = getEnv("TESSERACT_BIN", cfg.OCR.Tesseract)
	cfg.OCR.Lang = getEnv("TESSERACT_LANG", cfg.OCR.Lang)
	cfg.OCR.TessdataDir = getEnv("TESSDATA_PREFIX", cfg.OCR.TessdataDir)
	cfg.OCR.TSVConfidence = getEnvAsBool("OCR_TSV_CONFIDENCE", cfg.OCR.TSVConfidence)
	cfg.OCR.HeicConverter = getEnv("HEIC_CONVERTER", cfg.OCR.HeicConverter)

	cfg.LLM.APIKey = getEnv("OPENAI_API_KEY", cfg.LLM.APIKey)
	cfg.LLM.BaseURL = getEnv("OPENAI_BASE_URL", cfg.LLM.BaseURL)
	cfg.LLM.Model = getEnv("OPENAI_MODEL", cfg.LLM.Model)
	cfg.LLM.VisionModel = getEnv("OPENAI_VISION_MODEL", cfg.LLM.VisionModel)
	cfg.LLM.Temperature = getEnvAsFloat32("OPENAI_TEMPERATURE", cfg.LLM.Temperature)
	cfg.LLM.PartNumberTemperature = getEnvAsFloat32("OPENAI_PARTNUMBER_TEMPERATURE", cfg.LLM.PartNumberTemperature)
	cfg.LLM.Timeout = getEnvAsDuration("OPENAI_TIMEOUT", cfg.LLM.Timeout)
	if v := getEnv("OPENAI_MCP_CONNECTORS", getEnv("OPENAI_CONNECTORS", "")); v != "" {
		cfg.LLM.MCPConnectors = splitList(v)
	}

	cfg.Cache.Enabled = getEnvAsBool("CACHE_ENABLED", cfg.Cache.Enabled)
	cfg.Cache.Path = getEnv("CACHE_PATH", cfg.Cache.Path)

	cfg.Server.Host = getEnv("HOST", cfg.Server.Host)
	cfg.Server.Port = getEnvAsInt("PORT", cfg.Server.Port)
}

// Validate validates the loaded configuration. Every problem is reported, wrapped as
// ErrConfiguration.
func (c Config) Validate() error {
	v := NewValidator()
	v.Field("log.level", c.Log.Level, OneOf("debug", "info", "warn", "warning", "error"))
	v.Field("log.format", c.Log.Format, OneOf("text", "json"))
	v.Field("scheduler.concurrency", c.Scheduler.Concurrency, Positive)
	v.Field("ocr.max_images", c.OCR.MaxImages, Positive)
	v.Field("ocr.max_dimension", c.OCR.MaxDimension, Positive)
	v.Field("ocr.tesseract", c.OCR.Tesseract, Required)
	v.Field("llm.temperature", c.LLM.Temperature, Between(0, 2))
	v.Field("llm.part_number_temperature", c.LLM.PartNumberTemperature, Between(0, 2))
	v.Field("server.port", c.Server.Port, Between(1, 65535))
	v.Field("server.max_upload_files", c.Server.MaxUploadFiles, Positive)
	if psm, err := strconv.Atoi(c.OCR.PSM); err != nil {
		v.Field("ocr.psm", c.OCR.PSM, func(f string, val any) *ValidationError {
			return &ValidationError{Field: f, Value: val, Message: "must be an integer"}
		})
	} else {
		v.Field("ocr.psm", psm, Between(0, 13))
	}
	if c.Scheduler.TaskTimeout < 0 {
		v.Field("scheduler.task_timeout", c.Scheduler.TaskTimeout.String(), func(f string, val any) *ValidationError {
			return &ValidationError{Field: f, Value: val, Message: "must not be negative"}
		})
	}
	if c.Cache.Enabled {
		v.Field("cache.path", c.Cache.Path, Required)
	}
	if v.HasErrors() {
		return ConfigError(v.ErrorMessage())
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
