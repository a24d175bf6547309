package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
	Level      string
	Pretty     bool
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// AxiomConfig holds Axiom logging configuration.
type AxiomConfig struct {
	Send          bool
	APIKey        string
	OrgID         string
	Dataset       string
	FlushInterval time.Duration
}

// LimitsConfig holds the per-request budgets.
type LimitsConfig struct {
	MaxFileBytes   int64
	MaxMergePages  int
	MaxOutputBytes int64
	// MaxUploadBytes caps a whole multipart request.
	MaxUploadBytes int64
	// HeavySlots bounds concurrent compress and merge requests.
	HeavySlots int
	Timeout    time.Duration
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	TempMaxAge      time.Duration
	SweepInterval   time.Duration
}

// RedisConfig holds status and result cache connectivity. Empty URL
// disables Redis.
type RedisConfig struct {
	URL       string
	StatusTTL time.Duration
}

// StorageConfig selects where results are kept for re-download.
type StorageConfig struct {
	Backend   string // none|local|redis|s3
	Dir       string
	Bucket    string
	Prefix    string
	Region    string
	// AccessKey and SecretKey override the default AWS credential chain.
	AccessKey string
	SecretKey string
	Secret    string
	ResultTTL time.Duration
}

// VerifyConfig toggles the second-reader output check.
type VerifyConfig struct {
	Enabled bool
}

// Config is the top-level configuration.
type Config struct {
	Logging LoggingConfig
	Axiom   AxiomConfig
	Limits  LimitsConfig
	Server  ServerConfig
	Redis   RedisConfig
	Storage StorageConfig
	Verify  VerifyConfig
}

// Load reads a .env file when one exists, then the environment. Variables
// already set in the environment win over the file.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, err
		}
	}
	return FromEnv(), nil
}

// FromEnv loads configuration from environment with sensible defaults.
func FromEnv() Config {
	cfg := Config{}

	cfg.Logging = LoggingConfig{
		Level:      getEnv("LOG_LEVEL", "info"),
		Pretty:     parseBool(getEnv("LOG_PRETTY", devDefaultPretty())),
		File:       getEnv("LOG_FILE", "logs/pdftoolkit.log"),
		MaxSizeMB:  parseInt(getEnv("LOG_MAX_SIZE_MB", "100"), 100),
		MaxBackups: parseInt(getEnv("LOG_MAX_BACKUPS", "10"), 10),
		MaxAgeDays: parseInt(getEnv("LOG_MAX_AGE_DAYS", "30"), 30),
		Compress:   parseBool(getEnv("LOG_COMPRESS", "true")),
	}

	baseDataset := getEnv("AXIOM_DATASET", "dev")
	cfg.Axiom = AxiomConfig{
		Send:          parseBool(getEnv("SEND_LOGS_TO_AXIOM", "0")),
		APIKey:        getEnv("AXIOM_API_KEY", ""),
		OrgID:         getEnv("AXIOM_ORG_ID", ""),
		Dataset:       baseDataset + "_pdftoolkit",
		FlushInterval: parseDuration(getEnv("AXIOM_FLUSH_INTERVAL", "10s"), 10*time.Second),
	}

	cfg.Limits = LimitsConfig{
		MaxFileBytes:   parseInt64(getEnv("MAX_FILE_BYTES", ""), 50<<20),
		MaxMergePages:  parseInt(getEnv("MAX_MERGE_PAGES", ""), 1000),
		MaxOutputBytes: parseInt64(getEnv("MAX_OUTPUT_BYTES", ""), 100<<20),
		MaxUploadBytes: parseInt64(getEnv("MAX_UPLOAD_BYTES", ""), 512<<20),
		HeavySlots:     parseInt(getEnv("HEAVY_SLOTS", "4"), 4),
		Timeout:        parseDuration(getEnv("PROCESS_TIMEOUT", "2m"), 2*time.Minute),
	}

	cfg.Server = ServerConfig{
		Addr:            getEnv("HTTP_ADDR", ":8080"),
		ReadTimeout:     parseDuration(getEnv("HTTP_READ_TIMEOUT", "60s"), 60*time.Second),
		WriteTimeout:    parseDuration(getEnv("HTTP_WRITE_TIMEOUT", "5m"), 5*time.Minute),
		ShutdownTimeout: parseDuration(getEnv("SHUTDOWN_TIMEOUT", "15s"), 15*time.Second),
		TempMaxAge:      parseDuration(getEnv("TEMP_MAX_AGE", "1h"), time.Hour),
		SweepInterval:   parseDuration(getEnv("TEMP_SWEEP_INTERVAL", "10m"), 10*time.Minute),
	}

	cfg.Redis = RedisConfig{
		URL:       getEnv("REDIS_URL", ""),
		StatusTTL: parseDuration(getEnv("STATUS_TTL", "24h"), 24*time.Hour),
	}

	cfg.Storage = StorageConfig{
		Backend:   strings.ToLower(getEnv("RESULT_BACKEND", "none")),
		Dir:       getEnv("RESULT_DIR", "results"),
		Bucket:    getEnv("S3_BUCKET", ""),
		Prefix:    getEnv("S3_PREFIX", "results/"),
		Region:    getEnv("AWS_REGION", ""),
		AccessKey: getEnv("S3_ACCESS_KEY", ""),
		SecretKey: getEnv("S3_SECRET_KEY", ""),
		Secret:    getEnv("RESULT_SECRET", ""),
		ResultTTL: parseDuration(getEnv("RESULT_TTL", "1h"), time.Hour),
	}

	cfg.Verify = VerifyConfig{
		Enabled: parseBool(getEnv("VERIFY_OUTPUT", "false")),
	}

	return cfg
}

// Helpers
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

func parseInt64(s string, def int64) int64 {
	if s == "" {
		return def
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	return def
}

func parseBool(s string) bool {
	v := strings.ToLower(strings.TrimSpace(s))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return def
}

func devDefaultPretty() string {
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))
	if env == "dev" || env == "development" || env == "local" {
		return "true"
	}
	return "false"
}
