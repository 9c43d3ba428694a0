package main

import (
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"compilatio/internal/config"
	"compilatio/internal/logging"
	"compilatio/internal/remote"
	"compilatio/internal/source"
	"compilatio/internal/store"
)

type commandContext struct {
	configFlag    *string
	logFormatFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error
}

func newCommandContext(configFlag, logFormatFlag *string) *commandContext {
	return &commandContext{
		configFlag:    configFlag,
		logFormatFlag: logFormatFlag,
	}
}

// loadConfig resolves configuration without creating any directories, for
// commands that only report on it.
func (c *commandContext) loadConfig() (*config.Config, string, bool, error) {
	var path string
	if c.configFlag != nil {
		path = strings.TrimSpace(*c.configFlag)
	}
	return config.Load(path)
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, path, _, err := c.loadConfig()
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = path
	})
	return c.config, c.configErr
}

// newLogger builds the run logger. Verbose forces debug level; quiet drops
// the console writer so stdout stays machine-readable for --json output,
// leaving only the log file.
func (c *commandContext) newLogger(verbose, quiet bool) (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}

	logCfg := *cfg
	if c.logFormatFlag != nil {
		if format := strings.TrimSpace(*c.logFormatFlag); format != "" {
			logCfg.Logging.Format = format
		}
	}
	if verbose {
		logCfg.Logging.Level = "debug"
	}

	if !quiet {
		return logging.NewFromConfig(&logCfg)
	}
	if logCfg.Paths.LogDir == "" {
		return logging.NewNop(), nil
	}
	logPath := filepath.Join(logCfg.Paths.LogDir, "compilatio.log")
	return logging.New(logging.Options{
		Level:            logCfg.Logging.Level,
		Format:           "json",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
}

// sourceDeps assembles the shared connector dependencies. Construction
// performs no I/O, so this is safe even for commands that never fetch.
func (c *commandContext) sourceDeps(logger *slog.Logger) (source.Deps, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return source.Deps{}, err
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return source.Deps{
		Client:  remote.NewClient(cfg.Imports.UserAgent, remote.WithTimeout(cfg.RequestTimeout())),
		Browser: remote.NewBrowser(cfg.Imports.UserAgent, cfg.BrowserTimeout(), logger),
		Config:  cfg,
		Logger:  logger,
	}, nil
}

func (c *commandContext) withStore(fn func(*store.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	st, err := store.Open(cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(st)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
