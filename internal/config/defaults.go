package config

const (
	defaultDataDir          = "~/.local/share/compilatio"
	defaultDatabase         = "~/.local/share/compilatio/compilatio.db"
	defaultLogDir           = "~/.local/share/compilatio/logs"
	defaultUserAgent        = "compilatio/1.0 (manuscript metadata aggregator)"
	defaultRequestDelayMS   = 500
	defaultRequestTimeout   = 30
	defaultMaxRetries       = 3
	defaultRetryDelay       = 5
	defaultBrowserTimeout   = 60
	defaultThumbnailWidth   = 200
	defaultContentsMaxRunes = 1000
	defaultAPIBind          = "127.0.0.1:8087"
	defaultNotifyTimeout    = 10
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:  defaultDataDir,
			Database: defaultDatabase,
			LogDir:   defaultLogDir,
		},
		Imports: Imports{
			UserAgent:        defaultUserAgent,
			RequestDelayMS:   defaultRequestDelayMS,
			RequestTimeout:   defaultRequestTimeout,
			MaxRetries:       defaultMaxRetries,
			RetryDelay:       defaultRetryDelay,
			BrowserTimeout:   defaultBrowserTimeout,
			ThumbnailWidth:   defaultThumbnailWidth,
			ContentsMaxRunes: defaultContentsMaxRunes,
		},
		API: API{
			Bind: defaultAPIBind,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
