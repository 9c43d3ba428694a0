package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeSources(); err != nil {
		return err
	}
	c.normalizeImports()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.Database) == "" {
		c.Paths.Database = defaultDatabase
	}
	if c.Paths.Database, err = expandPath(c.Paths.Database); err != nil {
		return fmt.Errorf("paths.database: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeSources() error {
	var err error
	if strings.TrimSpace(c.Sources.BodleianTEIDir) != "" {
		if c.Sources.BodleianTEIDir, err = expandPath(c.Sources.BodleianTEIDir); err != nil {
			return fmt.Errorf("sources.bodleian_tei_dir: %w", err)
		}
	}
	if strings.TrimSpace(c.Sources.ParkerPagesDir) != "" {
		if c.Sources.ParkerPagesDir, err = expandPath(c.Sources.ParkerPagesDir); err != nil {
			return fmt.Errorf("sources.parker_pages_dir: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeImports() {
	if strings.TrimSpace(c.Imports.UserAgent) == "" {
		c.Imports.UserAgent = defaultUserAgent
	}
	if c.Imports.RequestDelayMS < 0 {
		c.Imports.RequestDelayMS = 0
	}
	if c.Imports.RequestTimeout <= 0 {
		c.Imports.RequestTimeout = defaultRequestTimeout
	}
	if c.Imports.MaxRetries <= 0 {
		c.Imports.MaxRetries = defaultMaxRetries
	}
	if c.Imports.RetryDelay < 0 {
		c.Imports.RetryDelay = defaultRetryDelay
	}
	if c.Imports.BrowserTimeout <= 0 {
		c.Imports.BrowserTimeout = defaultBrowserTimeout
	}
	if c.Imports.ThumbnailWidth <= 0 {
		c.Imports.ThumbnailWidth = defaultThumbnailWidth
	}
	if c.Imports.ContentsMaxRunes <= 0 {
		c.Imports.ContentsMaxRunes = defaultContentsMaxRunes
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
