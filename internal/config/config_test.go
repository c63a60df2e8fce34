package config

import (
	"testing"
	"time"

	"github.com/allanhy/tallysight-sub000/internal/platform/logging"
)

func TestLoad_AppEnvValidation(t *testing.T) {
	t.Setenv("APP_ENV", "invalid")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for invalid APP_ENV")
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ESPNTimeout != 15*time.Second {
		t.Fatalf("unexpected ESPN timeout: %s", cfg.ESPNTimeout)
	}
	if cfg.SyncDefaultSport != "NBA" || len(cfg.SyncSports) != 1 || cfg.SyncSports[0] != "NBA" {
		t.Fatalf("unexpected sports: default=%s all=%v", cfg.SyncDefaultSport, cfg.SyncSports)
	}
	if cfg.SyncCandidateLimit != 200 {
		t.Fatalf("unexpected candidate limit: %d", cfg.SyncCandidateLimit)
	}
	if cfg.SyncCron != "0 */6 * * *" || cfg.SyncCronEnabled {
		t.Fatalf("unexpected cron settings: enabled=%t spec=%q", cfg.SyncCronEnabled, cfg.SyncCron)
	}
	if !cfg.SyncVerifyWrites {
		t.Fatalf("expected write verification on by default")
	}
	if !cfg.ESPNCircuit.Enabled || cfg.ESPNCircuit.FailureThreshold != 5 {
		t.Fatalf("unexpected ESPN circuit config: %+v", cfg.ESPNCircuit)
	}
	if cfg.LogLevel != logging.LevelInfo || cfg.LogFormat != "json" {
		t.Fatalf("unexpected log settings: level=%s format=%s", cfg.LogLevel, cfg.LogFormat)
	}
	if !cfg.DBDisablePreparedBinary {
		t.Fatalf("expected DBDisablePreparedBinary=true by default")
	}
}

func TestLoad_SyncSportsParsing(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("SYNC_SPORTS", " nba, nfl ,,mlb ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	want := []string{"NBA", "NFL", "MLB"}
	if len(cfg.SyncSports) != len(want) {
		t.Fatalf("unexpected sports: %v", cfg.SyncSports)
	}
	for i := range want {
		if cfg.SyncSports[i] != want[i] {
			t.Fatalf("sport %d: want %s, got %s", i, want[i], cfg.SyncSports[i])
		}
	}
}

func TestLoad_RejectsNonPositiveValues(t *testing.T) {
	cases := map[string]string{
		"ESPN_TIMEOUT":                  "0s",
		"SYNC_CANDIDATE_LIMIT":          "-1",
		"SYNC_MAX_CONCURRENCY":          "0",
		"ESPN_CIRCUIT_FAILURE_COUNT":    "0",
		"IDENTITY_CIRCUIT_OPEN_TIMEOUT": "-5s",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv("APP_ENV", EnvDev)
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%s", key, value)
			}
		})
	}
}

func TestLoad_ParseErrors(t *testing.T) {
	cases := map[string]string{
		"APP_READ_TIMEOUT":     "soon",
		"SYNC_CRON_ENABLED":    "maybe",
		"SYNC_CANDIDATE_LIMIT": "lots",
		"APP_LOG_FORMAT":       "xml",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv("APP_ENV", EnvDev)
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%s", key, value)
			}
		})
	}
}

func TestLoad_CircuitBreakerOverrides(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("IDENTITY_CIRCUIT_ENABLED", "false")
	t.Setenv("ESPN_CIRCUIT_FAILURE_COUNT", "3")
	t.Setenv("ESPN_CIRCUIT_OPEN_TIMEOUT", "45s")
	t.Setenv("ESPN_CIRCUIT_HALF_OPEN_MAX_REQ", "1")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.IdentityCircuit.Enabled {
		t.Fatalf("expected identity circuit disabled")
	}
	if cfg.ESPNCircuit.FailureThreshold != 3 || cfg.ESPNCircuit.OpenTimeout != 45*time.Second || cfg.ESPNCircuit.HalfOpenMaxReq != 1 {
		t.Fatalf("unexpected ESPN circuit config: %+v", cfg.ESPNCircuit)
	}
}

func TestLoad_ProdRequiresSecrets(t *testing.T) {
	t.Run("cron secret", func(t *testing.T) {
		t.Setenv("APP_ENV", EnvProd)
		t.Setenv("CRON_SECRET", "")
		t.Setenv("IDENTITY_BASE_URL", "https://id.example.com")
		if _, err := Load(); err == nil {
			t.Fatalf("expected error when CRON_SECRET is empty in prod")
		}
	})

	t.Run("identity provider", func(t *testing.T) {
		t.Setenv("APP_ENV", EnvProd)
		t.Setenv("CRON_SECRET", "s3cret")
		t.Setenv("IDENTITY_BASE_URL", "")
		if _, err := Load(); err == nil {
			t.Fatalf("expected error when IDENTITY_BASE_URL is empty in prod")
		}
	})

	t.Run("complete", func(t *testing.T) {
		t.Setenv("APP_ENV", EnvProd)
		t.Setenv("CRON_SECRET", "s3cret")
		t.Setenv("IDENTITY_BASE_URL", "https://id.example.com")
		cfg, err := Load()
		if err != nil {
			t.Fatalf("load config: %v", err)
		}
		if cfg.CronSecret != "s3cret" {
			t.Fatalf("unexpected cron secret")
		}
	})
}

func TestLoad_UptraceRequiresDSNWhenEnabled(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "true")
	t.Setenv("UPTRACE_DSN", "")
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when UPTRACE_ENABLED=true without UPTRACE_DSN")
	}
}

func TestLoad_UptraceDSNFromOTLPHeaders(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "true")
	t.Setenv("UPTRACE_DSN", "")
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", `foo=bar, uptrace-dsn="https://token@api.uptrace.dev?grpc=4317"`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.UptraceDSN != "https://token@api.uptrace.dev?grpc=4317" {
		t.Fatalf("unexpected dsn: %q", cfg.UptraceDSN)
	}
}

func TestLoad_PprofDefaultsAddrWhenEnabled(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("PPROF_ENABLED", "true")
	t.Setenv("PPROF_ADDR", "  ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.PprofAddr != ":6060" {
		t.Fatalf("expected default pprof addr :6060, got %q", cfg.PprofAddr)
	}
}

func TestLoad_PyroscopeRequiresServerAddressWhenEnabled(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("PYROSCOPE_ENABLED", "true")
	t.Setenv("PYROSCOPE_SERVER_ADDRESS", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when PYROSCOPE_ENABLED=true without PYROSCOPE_SERVER_ADDRESS")
	}
}

func TestLoad_PyroscopeAppNameDefaultsToServiceName(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("APP_SERVICE_NAME", "tallysight-sync-test")
	t.Setenv("PYROSCOPE_ENABLED", "true")
	t.Setenv("PYROSCOPE_SERVER_ADDRESS", "http://localhost:4040")
	t.Setenv("PYROSCOPE_APP_NAME", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.PyroscopeAppName != "tallysight-sync-test" {
		t.Fatalf("unexpected pyroscope app name: %q", cfg.PyroscopeAppName)
	}
}

func TestLoad_CORSOriginsDefaultAndParsing(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)

	t.Run("default wildcard", func(t *testing.T) {
		t.Setenv("CORS_ALLOWED_ORIGINS", "")
		cfg, err := Load()
		if err != nil {
			t.Fatalf("load config: %v", err)
		}
		if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "*" {
			t.Fatalf("unexpected default CORS origins: %+v", cfg.CORSAllowedOrigins)
		}
	})

	t.Run("comma separated parsing", func(t *testing.T) {
		t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example.com, http://localhost:5173 ")
		cfg, err := Load()
		if err != nil {
			t.Fatalf("load config: %v", err)
		}
		if len(cfg.CORSAllowedOrigins) != 2 {
			t.Fatalf("unexpected CORS origins length: %d", len(cfg.CORSAllowedOrigins))
		}
		if cfg.CORSAllowedOrigins[0] != "https://a.example.com" || cfg.CORSAllowedOrigins[1] != "http://localhost:5173" {
			t.Fatalf("unexpected CORS origins: %v", cfg.CORSAllowedOrigins)
		}
	})
}

func TestLoad_SwaggerDefaultsByEnv(t *testing.T) {
	t.Run("prod disables swagger by default", func(t *testing.T) {
		t.Setenv("APP_ENV", EnvProd)
		t.Setenv("CRON_SECRET", "s3cret")
		t.Setenv("IDENTITY_BASE_URL", "https://id.example.com")
		t.Setenv("SWAGGER_ENABLED", "")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("load config: %v", err)
		}
		if cfg.SwaggerEnabled {
			t.Fatalf("expected SwaggerEnabled=false in prod by default")
		}
	})

	t.Run("dev enables swagger by default", func(t *testing.T) {
		t.Setenv("APP_ENV", EnvDev)
		t.Setenv("SWAGGER_ENABLED", "")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("load config: %v", err)
		}
		if !cfg.SwaggerEnabled {
			t.Fatalf("expected SwaggerEnabled=true in dev by default")
		}
	})
}
