package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/simplehttp/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Port, convey.ShouldEqual, 3000)
				convey.So(cfg.Addr(), convey.ShouldEqual, ":3000")
				convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
			})
		})

		convey.Convey("When PORT is set", func() {
			_ = os.Setenv("PORT", "8081")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override the default port", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Port, convey.ShouldEqual, 8081)
			})
		})

		convey.Convey("When PORT is empty", func() {
			_ = os.Setenv("PORT", "  ")

			cfg, err := config.Load(ctx)

			convey.Convey("Then the default port is kept", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Port, convey.ShouldEqual, 3000)
			})
		})

		convey.Convey("When PORT is not numeric", func() {
			_ = os.Setenv("PORT", "http")

			cfg, err := config.Load(ctx)

			convey.Convey("Then loading fails fast with ErrInvalidConfig", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When PORT is out of range", func() {
			_ = os.Setenv("PORT", "99999")

			cfg, err := config.Load(ctx)

			convey.Convey("Then loading fails with ErrInvalidConfig", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a variable only shares the PORT prefix", func() {
			_ = os.Setenv("PORTAL_URL", "https://example.com")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it is ignored", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Port, convey.ShouldEqual, 3000)
			})
		})

		convey.Convey("When loading config with prefixed environment variables", func() {
			_ = os.Setenv("SIMPLEHTTP_HOST", "127.0.0.1")
			_ = os.Setenv("SIMPLEHTTP_PORT", "9090")
			_ = os.Setenv("SIMPLEHTTP_LOG_LEVEL", "debug")
			_ = os.Setenv("SIMPLEHTTP_H2C", "true")
			_ = os.Setenv("SIMPLEHTTP_READ_TIMEOUT", "3s")
			_ = os.Setenv("SIMPLEHTTP_METRICS_ADDR", ":9100")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr(), convey.ShouldEqual, "127.0.0.1:9090")
				convey.So(cfg.LogLevel, convey.ShouldEqual, "debug")
				convey.So(cfg.H2C, convey.ShouldBeTrue)
				convey.So(cfg.ReadTimeout, convey.ShouldEqual, 3*time.Second)
				convey.So(cfg.MetricsAddr, convey.ShouldEqual, ":9100")
			})
		})

		convey.Convey("When both PORT and SIMPLEHTTP_PORT are set", func() {
			_ = os.Setenv("SIMPLEHTTP_PORT", "9090")
			_ = os.Setenv("PORT", "7070")

			cfg, err := config.Load(ctx)

			convey.Convey("Then PORT wins", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Port, convey.ShouldEqual, 7070)
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
port: 4000
log_level: warn
log_format: json
write_timeout: 20s
`
			tmpFile := createTempConfigFile(t, "config.yaml", yamlContent)
			_ = os.Setenv("SIMPLEHTTP_CONFIG", tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Port, convey.ShouldEqual, 4000)
				convey.So(cfg.LogLevel, convey.ShouldEqual, "warn")
				convey.So(cfg.LogFormat, convey.ShouldEqual, "json")
				convey.So(cfg.WriteTimeout, convey.ShouldEqual, 20*time.Second)
				convey.So(cfg.ReadTimeout, convey.ShouldEqual, 10*time.Second) // default
			})
		})

		convey.Convey("When loading config with JSON file", func() {
			tmpFile := createTempConfigFile(t, "config.json", `{"port": 4001, "h2c": true}`)
			_ = os.Setenv("SIMPLEHTTP_CONFIG", tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from JSON file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Port, convey.ShouldEqual, 4001)
				convey.So(cfg.H2C, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			tmpFile := createTempConfigFile(t, "config.yml", "port: 4000\nlog_level: warn\n")
			_ = os.Setenv("SIMPLEHTTP_CONFIG", tmpFile)
			_ = os.Setenv("SIMPLEHTTP_LOG_LEVEL", "error") // This should override the file
			_ = os.Setenv("PORT", "5000")                  // This should override the file

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Port, convey.ShouldEqual, 5000)
				convey.So(cfg.LogLevel, convey.ShouldEqual, "error")
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(t, "config.yaml", `invalid: yaml: content: [`)
			_ = os.Setenv("SIMPLEHTTP_CONFIG", tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return ErrLoadConfig", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("SIMPLEHTTP_CONFIG", "/non/existent/file.yaml")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the config file type is unsupported", func() {
			tmpFile := createTempConfigFile(t, "config.toml", `port = 1`)
			_ = os.Setenv("SIMPLEHTTP_CONFIG", tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return ErrLoadConfig", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a dotenv file is configured", func() {
			tmpFile := createTempConfigFile(t, "app.env", "PORT=4100\nSIMPLEHTTP_LOG_LEVEL=debug\n")
			_ = os.Setenv("SIMPLEHTTP_ENV_FILE", tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then its variables are applied", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Port, convey.ShouldEqual, 4100)
				convey.So(cfg.LogLevel, convey.ShouldEqual, "debug")
			})
		})

		convey.Convey("When a dotenv file conflicts with the environment", func() {
			tmpFile := createTempConfigFile(t, "app.env", "PORT=4100\n")
			_ = os.Setenv("SIMPLEHTTP_ENV_FILE", tmpFile)
			_ = os.Setenv("PORT", "4200")

			cfg, err := config.Load(ctx)

			convey.Convey("Then the environment wins", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Port, convey.ShouldEqual, 4200)
			})
		})

		convey.Convey("When the configured dotenv file is missing", func() {
			_ = os.Setenv("SIMPLEHTTP_ENV_FILE", "/non/existent/.env")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return ErrLoadConfig", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})
	})
}

// Helper functions

func clearConfigEnvVars() {
	envVars := []string{
		"PORT",
		"PORTAL_URL",
		"SIMPLEHTTP_CONFIG",
		"SIMPLEHTTP_ENV_FILE",
		"SIMPLEHTTP_HOST",
		"SIMPLEHTTP_PORT",
		"SIMPLEHTTP_LOG_LEVEL",
		"SIMPLEHTTP_LOG_FORMAT",
		"SIMPLEHTTP_H2C",
		"SIMPLEHTTP_READ_TIMEOUT",
		"SIMPLEHTTP_METRICS_ADDR",
	}

	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(t *testing.T, name, content string) string {
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}
