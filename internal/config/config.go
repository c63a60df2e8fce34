package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/allanhy/tallysight-sub000/internal/platform/logging"
	"github.com/allanhy/tallysight-sub000/internal/platform/resilience"
	"github.com/joho/godotenv"
)

// Config stores runtime configuration for the service.
type Config struct {
	AppEnv                     string
	ServiceName                string
	ServiceVersion             string
	HTTPAddr                   string
	ReadTimeout                time.Duration
	WriteTimeout               time.Duration
	ShutdownTimeout            time.Duration
	LogLevel                   logging.Level
	LogFormat                  string
	DBURL                      string
	DBDisablePreparedBinary    bool
	CORSAllowedOrigins         []string
	ESPNBaseURL                string
	ESPNTimeout                time.Duration
	ESPNCircuit                resilience.CircuitBreakerConfig
	SyncDefaultSport           string
	SyncSports                 []string
	SyncCandidateLimit         int
	SyncMaxConcurrency         int
	SyncVerifyWrites           bool
	SyncCronEnabled            bool
	SyncCron                   string
	SyncLockTTL                time.Duration
	SyncRunTimeout             time.Duration
	CronSecret                 string
	RedisURL                   string
	IdentityBaseURL            string
	IdentityIntrospectPath     string
	IdentityAdminKey           string
	IdentityTimeout            time.Duration
	IdentityCacheTTL           time.Duration
	IdentityCircuit            resilience.CircuitBreakerConfig
	ScoreboardCacheTTL         time.Duration
	MetricsEnabled             bool
	SwaggerEnabled             bool
	PprofEnabled               bool
	PprofAddr                  string
	UptraceEnabled             bool
	UptraceDSN                 string
	UptraceLogsEnabled         bool
	PyroscopeEnabled           bool
	PyroscopeServerAddress     string
	PyroscopeAppName           string
	PyroscopeAuthToken         string
	PyroscopeBasicAuthUser     string
	PyroscopeBasicAuthPassword string
	PyroscopeUploadRate        time.Duration
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() (Config, error) {
	_ = godotenv.Load()

	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppEnv:                 appEnv,
		ServiceName:            getEnv("APP_SERVICE_NAME", "tallysight-game-sync"),
		ServiceVersion:         getEnv("APP_SERVICE_VERSION", "dev"),
		HTTPAddr:               getEnv("APP_HTTP_ADDR", ":8080"),
		LogLevel:               logging.ParseLevel(getEnv("APP_LOG_LEVEL", "info")),
		LogFormat:              strings.ToLower(strings.TrimSpace(getEnv("APP_LOG_FORMAT", "json"))),
		DBURL:                  strings.TrimSpace(getEnv("DB_URL", "")),
		CORSAllowedOrigins:     splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		ESPNBaseURL:            strings.TrimSpace(getEnv("ESPN_BASE_URL", "https://site.api.espn.com/apis/site/v2/sports")),
		SyncDefaultSport:       strings.ToUpper(strings.TrimSpace(getEnv("SYNC_DEFAULT_SPORT", "NBA"))),
		SyncCron:               strings.TrimSpace(getEnv("SYNC_CRON", "0 */6 * * *")),
		CronSecret:             strings.TrimSpace(getEnv("CRON_SECRET", "")),
		RedisURL:               strings.TrimSpace(getEnv("REDIS_URL", "")),
		IdentityBaseURL:        strings.TrimSpace(getEnv("IDENTITY_BASE_URL", "")),
		IdentityIntrospectPath: strings.TrimSpace(getEnv("IDENTITY_INTROSPECT_PATH", "/v1/auth/introspect")),
		IdentityAdminKey:       strings.TrimSpace(getEnv("IDENTITY_ADMIN_KEY", "")),
		PprofAddr:              strings.TrimSpace(getEnv("PPROF_ADDR", ":6060")),
		PyroscopeServerAddress: strings.TrimSpace(getEnv("PYROSCOPE_SERVER_ADDRESS", "")),
		PyroscopeAuthToken:     getEnv("PYROSCOPE_AUTH_TOKEN", ""),
		PyroscopeBasicAuthUser: getEnv("PYROSCOPE_BASIC_AUTH_USER", ""),
	}
	cfg.PyroscopeBasicAuthPassword = getEnv("PYROSCOPE_BASIC_AUTH_PASSWORD", "")
	if cfg.LogFormat != "json" && cfg.LogFormat != "console" {
		return Config{}, fmt.Errorf("invalid APP_LOG_FORMAT %q: valid values are json, console", cfg.LogFormat)
	}
	cfg.SyncSports = splitCSV(strings.ToUpper(getEnv("SYNC_SPORTS", cfg.SyncDefaultSport)))
	if len(cfg.SyncSports) == 0 {
		return Config{}, fmt.Errorf("SYNC_SPORTS must list at least one sport")
	}

	durations := []struct {
		key      string
		fallback string
		target   *time.Duration
	}{
		{"APP_READ_TIMEOUT", "10s", &cfg.ReadTimeout},
		{"APP_WRITE_TIMEOUT", "60s", &cfg.WriteTimeout},
		{"APP_SHUTDOWN_TIMEOUT", "15s", &cfg.ShutdownTimeout},
		{"ESPN_TIMEOUT", "15s", &cfg.ESPNTimeout},
		{"SYNC_LOCK_TTL", "10m", &cfg.SyncLockTTL},
		{"SYNC_RUN_TIMEOUT", "5m", &cfg.SyncRunTimeout},
		{"IDENTITY_TIMEOUT", "5s", &cfg.IdentityTimeout},
		{"IDENTITY_CACHE_TTL", "30s", &cfg.IdentityCacheTTL},
		{"SCOREBOARD_CACHE_TTL", "30s", &cfg.ScoreboardCacheTTL},
		{"PYROSCOPE_UPLOAD_RATE", "15s", &cfg.PyroscopeUploadRate},
	}
	for _, item := range durations {
		value, err := getEnvAsDuration(item.key, item.fallback)
		if err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", item.key, err)
		}
		if value <= 0 {
			return Config{}, fmt.Errorf("%s must be > 0", item.key)
		}
		*item.target = value
	}

	ints := []struct {
		key      string
		fallback int
		target   *int
	}{
		{"SYNC_CANDIDATE_LIMIT", 200, &cfg.SyncCandidateLimit},
		{"SYNC_MAX_CONCURRENCY", 16, &cfg.SyncMaxConcurrency},
	}
	for _, item := range ints {
		value, err := getEnvAsInt(item.key, item.fallback)
		if err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", item.key, err)
		}
		if value <= 0 {
			return Config{}, fmt.Errorf("%s must be > 0", item.key)
		}
		*item.target = value
	}

	bools := []struct {
		key      string
		fallback bool
		target   *bool
	}{
		{"DB_DISABLE_PREPARED_BINARY_RESULT", true, &cfg.DBDisablePreparedBinary},
		{"SYNC_VERIFY_WRITES", true, &cfg.SyncVerifyWrites},
		{"SYNC_CRON_ENABLED", false, &cfg.SyncCronEnabled},
		{"METRICS_ENABLED", true, &cfg.MetricsEnabled},
		{"PPROF_ENABLED", false, &cfg.PprofEnabled},
		{"UPTRACE_ENABLED", false, &cfg.UptraceEnabled},
		{"UPTRACE_LOGS_ENABLED", true, &cfg.UptraceLogsEnabled},
		{"PYROSCOPE_ENABLED", false, &cfg.PyroscopeEnabled},
		{"SWAGGER_ENABLED", appEnv != EnvProd, &cfg.SwaggerEnabled},
	}
	for _, item := range bools {
		value, err := getEnvAsBool(item.key, item.fallback)
		if err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", item.key, err)
		}
		*item.target = value
	}

	if cfg.ESPNCircuit, err = loadCircuitBreaker("ESPN"); err != nil {
		return Config{}, err
	}
	if cfg.IdentityCircuit, err = loadCircuitBreaker("IDENTITY"); err != nil {
		return Config{}, err
	}

	cfg.UptraceDSN = strings.TrimSpace(getEnv("UPTRACE_DSN", ""))
	if cfg.UptraceDSN == "" {
		cfg.UptraceDSN = parseUptraceDSNFromOTLPHeaders(getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""))
	}
	if cfg.UptraceEnabled && cfg.UptraceDSN == "" {
		return Config{}, fmt.Errorf("UPTRACE_DSN is required when UPTRACE_ENABLED=true")
	}
	if cfg.PprofEnabled && cfg.PprofAddr == "" {
		return Config{}, fmt.Errorf("PPROF_ADDR is required when PPROF_ENABLED=true")
	}
	if cfg.PyroscopeEnabled && cfg.PyroscopeServerAddress == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_SERVER_ADDRESS is required when PYROSCOPE_ENABLED=true")
	}
	cfg.PyroscopeAppName = strings.TrimSpace(getEnv("PYROSCOPE_APP_NAME", cfg.ServiceName))
	if cfg.SyncCronEnabled && cfg.SyncCron == "" {
		return Config{}, fmt.Errorf("SYNC_CRON is required when SYNC_CRON_ENABLED=true")
	}
	if appEnv == EnvProd && cfg.CronSecret == "" {
		return Config{}, fmt.Errorf("CRON_SECRET is required when APP_ENV=prod")
	}
	if appEnv == EnvProd && cfg.IdentityBaseURL == "" {
		return Config{}, fmt.Errorf("IDENTITY_BASE_URL is required when APP_ENV=prod")
	}

	return cfg, nil
}

// loadCircuitBreaker reads <PREFIX>_CIRCUIT_ENABLED, _FAILURE_COUNT, _OPEN_TIMEOUT and _HALF_OPEN_MAX_REQ.
func loadCircuitBreaker(prefix string) (resilience.CircuitBreakerConfig, error) {
	defaults := resilience.DefaultCircuitBreakerConfig()
	key := func(suffix string) string { return prefix + "_CIRCUIT_" + suffix }

	enabled, err := getEnvAsBool(key("ENABLED"), defaults.Enabled)
	if err != nil {
		return resilience.CircuitBreakerConfig{}, fmt.Errorf("parse %s: %w", key("ENABLED"), err)
	}
	failures, err := getEnvAsInt(key("FAILURE_COUNT"), defaults.FailureThreshold)
	if err != nil {
		return resilience.CircuitBreakerConfig{}, fmt.Errorf("parse %s: %w", key("FAILURE_COUNT"), err)
	}
	if failures <= 0 {
		return resilience.CircuitBreakerConfig{}, fmt.Errorf("%s must be > 0", key("FAILURE_COUNT"))
	}
	openTimeout, err := getEnvAsDuration(key("OPEN_TIMEOUT"), defaults.OpenTimeout.String())
	if err != nil {
		return resilience.CircuitBreakerConfig{}, fmt.Errorf("parse %s: %w", key("OPEN_TIMEOUT"), err)
	}
	if openTimeout <= 0 {
		return resilience.CircuitBreakerConfig{}, fmt.Errorf("%s must be > 0", key("OPEN_TIMEOUT"))
	}
	halfOpen, err := getEnvAsInt(key("HALF_OPEN_MAX_REQ"), defaults.HalfOpenMaxReq)
	if err != nil {
		return resilience.CircuitBreakerConfig{}, fmt.Errorf("parse %s: %w", key("HALF_OPEN_MAX_REQ"), err)
	}
	if halfOpen <= 0 {
		return resilience.CircuitBreakerConfig{}, fmt.Errorf("%s must be > 0", key("HALF_OPEN_MAX_REQ"))
	}

	return resilience.CircuitBreakerConfig{
		Enabled:          enabled,
		FailureThreshold: failures,
		OpenTimeout:      openTimeout,
		HalfOpenMaxReq:   halfOpen,
	}, nil
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return fallback
	}

	return value
}

func getEnvAsInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}

	return out, nil
}

func getEnvAsBool(key string, fallback bool) (bool, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}
	return strconv.ParseBool(value)
}

func getEnvAsDuration(key, fallback string) (time.Duration, error) {
	return time.ParseDuration(strings.TrimSpace(getEnv(key, fallback)))
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		out = append(out, item)
	}

	return out
}

func parseUptraceDSNFromOTLPHeaders(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	items := strings.Split(raw, ",")
	for _, item := range items {
		parts := strings.SplitN(strings.TrimSpace(item), "=", 2)
		if len(parts) != 2 {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(parts[0]), "uptrace-dsn") {
			value := strings.TrimSpace(parts[1])
			return strings.Trim(value, "\"'")
		}
	}

	return ""
}

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

func parseAppEnv(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case EnvDev, EnvStage, EnvProd:
		return value, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q: valid values are %s, %s, %s", v, EnvDev, EnvStage, EnvProd)
	}
}
