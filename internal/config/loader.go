package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "tenantdb.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "TENANTDB_PORT")
	setString(&cfg.Server.CORSOrigin, "TENANTDB_CORS_ORIGIN")

	setString(&cfg.ControlPlane.URL, "CONTROLPLANE_DATABASE_URL")
	setInt32(&cfg.ControlPlane.MaxConns, "TENANTDB_CP_MAX_CONNS")
	setInt32(&cfg.ControlPlane.MinConns, "TENANTDB_CP_MIN_CONNS")
	setDuration(&cfg.ControlPlane.MaxConnLifetime, "TENANTDB_CP_MAX_CONN_LIFETIME")
	setDuration(&cfg.ControlPlane.MaxConnIdleTime, "TENANTDB_CP_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.ControlPlane.HealthCheck, "TENANTDB_CP_HEALTH_CHECK")

	setInt32(&cfg.TenantPool.MaxConns, "TENANTDB_TENANT_MAX_CONNS")
	setInt32(&cfg.TenantPool.MinConns, "TENANTDB_TENANT_MIN_CONNS")
	setDuration(&cfg.TenantPool.MaxConnLifetime, "TENANTDB_TENANT_MAX_CONN_LIFETIME")
	setDuration(&cfg.TenantPool.MaxConnIdleTime, "TENANTDB_TENANT_MAX_CONN_IDLE_TIME")

	setString(&cfg.Infra.URL, "TENANTDB_INFRA_URL")
	setString(&cfg.Infra.Token, "RAILWAY_TOKEN")

	setDuration(&cfg.Provisioner.PollInterval, "TENANTDB_POLL_INTERVAL")
	setDuration(&cfg.Provisioner.PollMaxInterval, "TENANTDB_POLL_MAX_INTERVAL")
	setDuration(&cfg.Provisioner.PollTimeout, "TENANTDB_POLL_TIMEOUT")

	setInt64(&cfg.Cache.MaxSizeMB, "TENANTDB_CACHE_SIZE_MB")
	setDuration(&cfg.Cache.RoutingTTL, "TENANTDB_CACHE_ROUTING_TTL")

	setInt(&cfg.Breaker.MaxFailures, "TENANTDB_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "TENANTDB_BREAKER_TIMEOUT")

	setString(&cfg.Logging.Level, "TENANTDB_LOG_LEVEL")
	setString(&cfg.Logging.Service, "TENANTDB_LOG_SERVICE")

	setBool(&cfg.Telemetry.Enabled, "TENANTDB_TELEMETRY_ENABLED")
	setString(&cfg.Telemetry.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.ControlPlane.URL == "" {
		return errors.New("control_plane.url is required")
	}
	if cfg.ControlPlane.MaxConns < 1 {
		return errors.New("control_plane.max_conns must be >= 1")
	}
	if cfg.TenantPool.MaxConns < 1 {
		return errors.New("tenant_pool.max_conns must be >= 1")
	}
	if cfg.Infra.URL == "" {
		return errors.New("infra.url is required")
	}
	if cfg.Provisioner.PollInterval <= 0 {
		return errors.New("provisioner.poll_interval must be positive")
	}
	if cfg.Provisioner.PollTimeout < cfg.Provisioner.PollInterval {
		return errors.New("provisioner.poll_timeout must be >= poll_interval")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
