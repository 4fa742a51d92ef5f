package config

const (
	BackendGCS    = "gcs"
	BackendSQLite = "sqlite"

	URLStyleDirect  = "direct"
	URLStyleConsole = "console"
)

const (
	defaultLogDir                 = "~/.local/share/contentstudio/logs"
	defaultAPIBind                = "127.0.0.1:8080"
	defaultBackend                = BackendGCS
	defaultPrefix                 = "dev"
	defaultURLStyle               = URLStyleDirect
	defaultSQLitePath             = "~/.local/share/contentstudio/bucket.db"
	defaultSignedURLMinutes       = 60
	defaultHeroURLMinutes         = 15
	defaultRedirectURLMinutes     = 10
	defaultSignedURLCacheSize     = 1024
	defaultRequestTimeoutSeconds  = 20
	defaultRetryMaxElapsedSeconds = 3
	defaultMetaTimeoutSeconds     = 15
	defaultMetaCacheTTLSeconds    = 300
	defaultHistoryMaxConcurrency  = 16
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
)

var defaultReconcileDelaysMS = []int{700, 1500, 3500}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Storage: Storage{
			Backend:                defaultBackend,
			Prefix:                 defaultPrefix,
			URLStyle:               defaultURLStyle,
			SQLitePath:             defaultSQLitePath,
			SignedURLMinutes:       defaultSignedURLMinutes,
			HeroURLMinutes:         defaultHeroURLMinutes,
			RedirectURLMinutes:     defaultRedirectURLMinutes,
			SignedURLCacheSize:     defaultSignedURLCacheSize,
			RequestTimeoutSeconds:  defaultRequestTimeoutSeconds,
			RetryMaxElapsedSeconds: defaultRetryMaxElapsedSeconds,
		},
		Meta: Meta{
			TimeoutSeconds:  defaultMetaTimeoutSeconds,
			CacheTTLSeconds: defaultMetaCacheTTLSeconds,
		},
		History: History{
			MaxConcurrency: defaultHistoryMaxConcurrency,
		},
		Reconcile: Reconcile{
			DelaysMS: append([]int(nil), defaultReconcileDelaysMS...),
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
