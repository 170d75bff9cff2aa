/**
 * Configuration for formscan
 *
 * Loads configuration from environment variables (optionally from a .env file)
 * through viper, with command line flags bound on top by the CLI.
 */

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "FORMSCAN"

// Config holds pipeline and worker configuration
type Config struct {
	// OCR configuration
	Language       string
	TessdataPrefix string

	// Rasterizer configuration
	PdftoppmPath string
	RasterDPI    int

	// Timeouts for external collaborators
	OCRTimeout        time.Duration
	RasterTimeout     time.Duration
	TableTimeout      time.Duration
	ProcessingTimeout time.Duration

	// Input limits
	MaxFileSize int64

	// Temporary directory for buffered uploads
	TempDir string

	// Redis / worker configuration
	RedisURL          string
	QueueName         string
	WorkerConcurrency int

	LogLevel string
}

// Keys are the viper keys; env vars are FORMSCAN_<KEY>.
const (
	KeyLanguage          = "language"
	KeyTessdataPrefix    = "tessdata_prefix"
	KeyPdftoppmPath      = "pdftoppm_path"
	KeyRasterDPI         = "raster_dpi"
	KeyOCRTimeout        = "ocr_timeout"
	KeyRasterTimeout     = "raster_timeout"
	KeyTableTimeout      = "table_timeout"
	KeyProcessingTimeout = "processing_timeout"
	KeyMaxFileSize       = "max_file_size"
	KeyTempDir           = "temp_dir"
	KeyRedisURL          = "redis_url"
	KeyQueueName         = "queue_name"
	KeyWorkerConcurrency = "worker_concurrency"
	KeyLogLevel          = "log_level"
)

// New returns a viper instance with defaults and environment binding applied.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyLanguage, "rus")
	v.SetDefault(KeyTessdataPrefix, "")
	v.SetDefault(KeyPdftoppmPath, "pdftoppm")
	v.SetDefault(KeyRasterDPI, 200)
	v.SetDefault(KeyOCRTimeout, 20*time.Second)
	v.SetDefault(KeyRasterTimeout, 60*time.Second)
	v.SetDefault(KeyTableTimeout, 60*time.Second)
	v.SetDefault(KeyProcessingTimeout, 5*time.Minute)
	v.SetDefault(KeyMaxFileSize, int64(50*1024*1024)) // 50MB
	v.SetDefault(KeyTempDir, "")
	v.SetDefault(KeyRedisURL, "redis://localhost:6379/0")
	v.SetDefault(KeyQueueName, "formscan")
	v.SetDefault(KeyWorkerConcurrency, 4)
	v.SetDefault(KeyLogLevel, "info")
	return v
}

// LoadConfig loads configuration from the environment. envFiles are loaded first with
// godotenv; missing files are ignored.
func LoadConfig(envFiles ...string) (*Config, error) {
	return Load(New(), envFiles...)
}

// Load reads configuration from v. Flags bound with BindFlags take precedence over env.
func Load(v *viper.Viper, envFiles ...string) (*Config, error) {
	for _, f := range envFiles {
		// godotenv never overrides variables that are already set
		_ = godotenv.Load(f)
	}

	cfg := &Config{
		Language:          v.GetString(KeyLanguage),
		TessdataPrefix:    v.GetString(KeyTessdataPrefix),
		PdftoppmPath:      v.GetString(KeyPdftoppmPath),
		RasterDPI:         v.GetInt(KeyRasterDPI),
		OCRTimeout:        v.GetDuration(KeyOCRTimeout),
		RasterTimeout:     v.GetDuration(KeyRasterTimeout),
		TableTimeout:      v.GetDuration(KeyTableTimeout),
		ProcessingTimeout: v.GetDuration(KeyProcessingTimeout),
		MaxFileSize:       v.GetInt64(KeyMaxFileSize),
		TempDir:           v.GetString(KeyTempDir),
		RedisURL:          v.GetString(KeyRedisURL),
		QueueName:         v.GetString(KeyQueueName),
		WorkerConcurrency: v.GetInt(KeyWorkerConcurrency),
		LogLevel:          v.GetString(KeyLogLevel),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// BindFlags registers the overridable settings on fs and binds them into v.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	fs.String("lang", v.GetString(KeyLanguage), "Tesseract language hint")
	fs.Int("dpi", v.GetInt(KeyRasterDPI), "Rasterization DPI for pages without embedded scans")
	fs.Duration("ocr-timeout", v.GetDuration(KeyOCRTimeout), "Timeout for a single OCR call")
	fs.String("loglevel", v.GetString(KeyLogLevel), "Log level (debug, info, warn, error)")
	fs.String("redis", v.GetString(KeyRedisURL), "Redis URL (used with --submit)")

	bindings := map[string]string{
		KeyLanguage:   "lang",
		KeyRasterDPI:  "dpi",
		KeyOCRTimeout: "ocr-timeout",
		KeyLogLevel:   "loglevel",
		KeyRedisURL:   "redis",
	}
	for key, flag := range bindings {
		if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			return fmt.Errorf("bind flag %s: %w", flag, err)
		}
	}
	return nil
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.Language == "" {
		return fmt.Errorf("%s_LANGUAGE is required", envPrefix)
	}

	if c.RasterDPI < 72 || c.RasterDPI > 600 {
		return fmt.Errorf("RASTER_DPI must be between 72 and 600, got %d", c.RasterDPI)
	}

	if c.OCRTimeout <= 0 || c.RasterTimeout <= 0 || c.TableTimeout <= 0 || c.ProcessingTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}

	if c.MaxFileSize < 1024 || c.MaxFileSize > 1073741824 { // 1KB to 1GB
		return fmt.Errorf("MAX_FILE_SIZE must be between 1KB and 1GB, got %d", c.MaxFileSize)
	}

	if c.WorkerConcurrency < 1 || c.WorkerConcurrency > 100 {
		return fmt.Errorf("WORKER_CONCURRENCY must be between 1 and 100, got %d", c.WorkerConcurrency)
	}

	if c.QueueName == "" {
		return fmt.Errorf("QUEUE_NAME is required")
	}

	return nil
}
