package testsupport

import (
	"path/filepath"
	"testing"

	"compilatio/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.Database = filepath.Join(base, "data", "compilatio.db")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Sources.BodleianTEIDir = filepath.Join(base, "tei")
	cfgVal.Sources.ParkerPagesDir = filepath.Join(base, "parker")
	cfgVal.API.Bind = "127.0.0.1:0"
	cfgVal.Imports.RequestDelayMS = 0
	cfgVal.Imports.RetryDelay = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithUserAgent overrides the outbound User-Agent on the test config.
func WithUserAgent(agent string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Imports.UserAgent = agent
	}
}

// WithMaxRetries sets the retry ceiling on the test config.
func WithMaxRetries(retries int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Imports.MaxRetries = retries
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
