package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(New())
	require.NoError(t, err)

	assert.Equal(t, "rus", cfg.Language)
	assert.Equal(t, 200, cfg.RasterDPI)
	assert.Equal(t, 20*time.Second, cfg.OCRTimeout)
	assert.Equal(t, "formscan", cfg.QueueName)
	assert.Equal(t, 4, cfg.WorkerConcurrency)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("FORMSCAN_LANGUAGE", "rus+eng")
	t.Setenv("FORMSCAN_OCR_TIMEOUT", "3s")
	t.Setenv("FORMSCAN_WORKER_CONCURRENCY", "8")

	cfg, err := Load(New())
	require.NoError(t, err)

	assert.Equal(t, "rus+eng", cfg.Language)
	assert.Equal(t, 3*time.Second, cfg.OCRTimeout)
	assert.Equal(t, 8, cfg.WorkerConcurrency)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("FORMSCAN_QUEUE_NAME=forms-test\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("FORMSCAN_QUEUE_NAME") })

	cfg, err := Load(New(), path, filepath.Join(dir, "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "forms-test", cfg.QueueName)
}

func TestFlagsOverrideEnv(t *testing.T) {
	t.Setenv("FORMSCAN_RASTER_DPI", "150")

	v := New()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	require.NoError(t, BindFlags(v, fs))
	require.NoError(t, fs.Parse([]string{"--dpi", "300", "--lang", "eng"}))

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, 300, cfg.RasterDPI)
	assert.Equal(t, "eng", cfg.Language)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load(New())
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty language", func(c *Config) { c.Language = "" }},
		{"dpi too low", func(c *Config) { c.RasterDPI = 10 }},
		{"zero timeout", func(c *Config) { c.OCRTimeout = 0 }},
		{"tiny max size", func(c *Config) { c.MaxFileSize = 10 }},
		{"zero workers", func(c *Config) { c.WorkerConcurrency = 0 }},
		{"empty queue", func(c *Config) { c.QueueName = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
