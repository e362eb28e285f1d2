package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type fileConfig struct {
	Environment string   `yaml:"environment"`
	HTTPAddr    string   `yaml:"http_addr"`
	CORSOrigins []string `yaml:"cors_allowed_origins"`
	Store       string   `yaml:"store"`
	Deliverer   string   `yaml:"deliverer"`

	Database struct {
		ConnectionString string `yaml:"connection_string"`
		MaxConns         *int32 `yaml:"max_conns"`
		AutoMigrate      *bool  `yaml:"auto_migrate"`
	} `yaml:"database"`

	Redis struct {
		Addr      string `yaml:"addr"`
		Password  string `yaml:"password"`
		DB        *int   `yaml:"db"`
		KeyPrefix string `yaml:"key_prefix"`
	} `yaml:"redis"`

	AMQP struct {
		URL        string `yaml:"url"`
		Exchange   string `yaml:"exchange"`
		RoutingKey string `yaml:"routing_key"`
	} `yaml:"amqp"`

	Reminder struct {
		Interval       string   `yaml:"interval"`
		Window         string   `yaml:"window"`
		Schedule       string   `yaml:"schedule"`
		RunTimeout     string   `yaml:"run_timeout"`
		Concurrency    *int     `yaml:"concurrency"`
		SuccessRate    *float64 `yaml:"success_rate"`
		SimulatedDelay string   `yaml:"simulated_delay"`
	} `yaml:"reminder"`

	Observability *struct {
		Logging *struct {
			Level  string `yaml:"level"`
			Format string `yaml:"format"`
		} `yaml:"logging"`
		Metrics *struct {
			Enabled *bool  `yaml:"enabled"`
			Path    string `yaml:"path"`
		} `yaml:"metrics"`
		Tracing *struct {
			Enabled        *bool    `yaml:"enabled"`
			Exporter       string   `yaml:"exporter"`
			OTLPEndpoint   string   `yaml:"otlp_endpoint"`
			ZipkinEndpoint string   `yaml:"zipkin_endpoint"`
			SampleRate     *float64 `yaml:"sample_rate"`
			ServiceName    string   `yaml:"service_name"`
		} `yaml:"tracing"`
	} `yaml:"observability"`
}

// resolveConfigPath picks the explicit path, then TASKTRACKER_CONFIG, then
// the default file name. explicit reports whether a missing file is an error.
func resolveConfigPath(opts loadOptions) (path string, explicit bool) {
	if p := strings.TrimSpace(opts.configPath); p != "" {
		return p, true
	}
	if opts.envLookup != nil {
		if p, ok := opts.envLookup("TASKTRACKER_CONFIG"); ok && strings.TrimSpace(p) != "" {
			return strings.TrimSpace(p), true
		}
	}
	return DefaultConfigFile, false
}

func applyFile(cfg *Config, meta *Metadata, opts loadOptions) error {
	path, explicit := resolveConfigPath(opts)
	data, err := opts.readFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return nil
		}
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	var parsed fileConfig
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	meta.path = path

	setString := func(dst *string, value, field string) {
		if strings.TrimSpace(value) == "" {
			return
		}
		*dst = strings.TrimSpace(value)
		meta.sources[field] = SourceFile
	}
	setDuration := func(dst *time.Duration, value, field string) error {
		if strings.TrimSpace(value) == "" {
			return nil
		}
		parsed, err := time.ParseDuration(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("parse %s: %w", field, err)
		}
		*dst = parsed
		meta.sources[field] = SourceFile
		return nil
	}

	setString(&cfg.Environment, parsed.Environment, "environment")
	setString(&cfg.HTTPAddr, parsed.HTTPAddr, "http_addr")
	if len(parsed.CORSOrigins) > 0 {
		cfg.CORSAllowedOrigins = append([]string(nil), parsed.CORSOrigins...)
		meta.sources["cors_allowed_origins"] = SourceFile
	}
	if parsed.Store != "" {
		cfg.Store = StoreKind(strings.ToLower(strings.TrimSpace(parsed.Store)))
		meta.sources["store"] = SourceFile
	}
	if parsed.Deliverer != "" {
		cfg.Deliverer = DelivererKind(strings.ToLower(strings.TrimSpace(parsed.Deliverer)))
		meta.sources["deliverer"] = SourceFile
	}

	setString(&cfg.Database.ConnectionString, parsed.Database.ConnectionString, "database.connection_string")
	if parsed.Database.MaxConns != nil {
		cfg.Database.MaxConns = *parsed.Database.MaxConns
		meta.sources["database.max_conns"] = SourceFile
	}
	if parsed.Database.AutoMigrate != nil {
		cfg.Database.AutoMigrate = *parsed.Database.AutoMigrate
		meta.sources["database.auto_migrate"] = SourceFile
	}

	setString(&cfg.Redis.Addr, parsed.Redis.Addr, "redis.addr")
	setString(&cfg.Redis.Password, parsed.Redis.Password, "redis.password")
	setString(&cfg.Redis.KeyPrefix, parsed.Redis.KeyPrefix, "redis.key_prefix")
	if parsed.Redis.DB != nil {
		cfg.Redis.DB = *parsed.Redis.DB
		meta.sources["redis.db"] = SourceFile
	}

	setString(&cfg.AMQP.URL, parsed.AMQP.URL, "amqp.url")
	setString(&cfg.AMQP.Exchange, parsed.AMQP.Exchange, "amqp.exchange")
	setString(&cfg.AMQP.RoutingKey, parsed.AMQP.RoutingKey, "amqp.routing_key")

	r := parsed.Reminder
	for _, d := range []struct {
		dst   *time.Duration
		value string
		field string
	}{
		{&cfg.Reminder.Interval, r.Interval, "reminder.interval"},
		{&cfg.Reminder.Window, r.Window, "reminder.window"},
		{&cfg.Reminder.RunTimeout, r.RunTimeout, "reminder.run_timeout"},
		{&cfg.Reminder.SimulatedDelay, r.SimulatedDelay, "reminder.simulated_delay"},
	} {
		if err := setDuration(d.dst, d.value, d.field); err != nil {
			return fmt.Errorf("config file %s: %w", path, err)
		}
	}
	setString(&cfg.Reminder.Schedule, r.Schedule, "reminder.schedule")
	if r.Concurrency != nil {
		cfg.Reminder.Concurrency = *r.Concurrency
		meta.sources["reminder.concurrency"] = SourceFile
	}
	if r.SuccessRate != nil {
		cfg.Reminder.SuccessRate = *r.SuccessRate
		meta.sources["reminder.success_rate"] = SourceFile
	}

	if obs := parsed.Observability; obs != nil {
		if obs.Logging != nil {
			setString(&cfg.Observability.Logging.Level, obs.Logging.Level, "logging.level")
			setString(&cfg.Observability.Logging.Format, obs.Logging.Format, "logging.format")
		}
		if obs.Metrics != nil {
			if obs.Metrics.Enabled != nil {
				cfg.Observability.Metrics.Enabled = *obs.Metrics.Enabled
				meta.sources["metrics.enabled"] = SourceFile
			}
			setString(&cfg.Observability.Metrics.Path, obs.Metrics.Path, "metrics.path")
		}
		if t := obs.Tracing; t != nil {
			if t.Enabled != nil {
				cfg.Observability.Tracing.Enabled = *t.Enabled
				meta.sources["tracing.enabled"] = SourceFile
			}
			if t.SampleRate != nil {
				cfg.Observability.Tracing.SampleRate = *t.SampleRate
				meta.sources["tracing.sample_rate"] = SourceFile
			}
			setString(&cfg.Observability.Tracing.Exporter, t.Exporter, "tracing.exporter")
			setString(&cfg.Observability.Tracing.OTLPEndpoint, t.OTLPEndpoint, "tracing.otlp_endpoint")
			setString(&cfg.Observability.Tracing.ZipkinEndpoint, t.ZipkinEndpoint, "tracing.zipkin_endpoint")
			setString(&cfg.Observability.Tracing.ServiceName, t.ServiceName, "tracing.service_name")
		}
	}
	return nil
}
