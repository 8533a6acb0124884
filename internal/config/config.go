package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store         StoreConfig         `yaml:"store" mapstructure:"store"`
	Hierarchy     HierarchyConfig     `yaml:"hierarchy" mapstructure:"hierarchy"`
	Agglomeration AgglomerationConfig `yaml:"agglomeration" mapstructure:"agglomeration"`
	Analysis      AnalysisConfig      `yaml:"analysis" mapstructure:"analysis"`
	Population    PopulationConfig    `yaml:"population" mapstructure:"population"`
	Input         InputConfig         `yaml:"input" mapstructure:"input"`
	Fetch         FetchConfig         `yaml:"fetch" mapstructure:"fetch"`
	Server        ServerConfig        `yaml:"server" mapstructure:"server"`
	Log           LogConfig           `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the run store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// HierarchyConfig points at an optional threshold override file.
type HierarchyConfig struct {
	File string `yaml:"file" mapstructure:"file"`
}

// AgglomerationConfig holds the travel-time and buffer constants used when
// growing agglomerations.
type AgglomerationConfig struct {
	BaseTime      float64 `yaml:"base_time" mapstructure:"base_time"`
	TimeStep      float64 `yaml:"time_step" mapstructure:"time_step"`
	MinPopulation int     `yaml:"min_population" mapstructure:"min_population"`
	RadiusUnit    float64 `yaml:"radius_unit" mapstructure:"radius_unit"`
	QuadSegments  int     `yaml:"quad_segments" mapstructure:"quad_segments"`
}

// AnalysisConfig configures community detection.
type AnalysisConfig struct {
	Resolution float64 `yaml:"resolution" mapstructure:"resolution"`
	Seed       uint64  `yaml:"seed" mapstructure:"seed"`
	Weighting  string  `yaml:"weighting" mapstructure:"weighting"`
}

// PopulationConfig configures how unit populations are split across
// settlements.
type PopulationConfig struct {
	CityMultiplier float64 `yaml:"city_multiplier" mapstructure:"city_multiplier"`
}

// InputConfig configures how input files are interpreted.
type InputConfig struct {
	SRID int `yaml:"srid" mapstructure:"srid"`
}

// FetchConfig configures remote input retrieval.
type FetchConfig struct {
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port       int     `yaml:"port" mapstructure:"port"`
	RatePerSec float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	Burst      int     `yaml:"burst" mapstructure:"burst"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("POPFRAME")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "popframe.db")
	v.SetDefault("hierarchy.file", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_per_sec", 10.0)
	v.SetDefault("server.burst", 20)
	v.SetDefault("agglomeration.base_time", 80.0)
	v.SetDefault("agglomeration.time_step", 10.0)
	v.SetDefault("agglomeration.min_population", 15000)
	v.SetDefault("agglomeration.radius_unit", 500.0)
	v.SetDefault("agglomeration.quad_segments", 16)
	v.SetDefault("analysis.resolution", 1.0)
	v.SetDefault("analysis.seed", 1)
	v.SetDefault("analysis.weighting", "uniform")
	v.SetDefault("population.city_multiplier", 10.0)
	v.SetDefault("input.srid", 0)
	v.SetDefault("fetch.timeout_secs", 60)
	v.SetDefault("fetch.rate_per_sec", 5.0)
	v.SetDefault("fetch.user_agent", "popframe/1.0")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings required by a given command mode.
// Modes: "agglomerate", "analyze", "serve", "store". Network and classify
// runs need nothing beyond defaults and validate as "agglomerate".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "agglomerate":
		errs = append(errs, c.validateAgglomeration()...)
		errs = append(errs, c.validatePopulation()...)
	case "analyze":
		errs = append(errs, c.validateAnalysis()...)
		errs = append(errs, c.validatePopulation()...)
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		if c.Server.RatePerSec <= 0 {
			errs = append(errs, "server.rate_per_sec must be > 0")
		}
		errs = append(errs, c.validateAgglomeration()...)
		errs = append(errs, c.validateAnalysis()...)
		errs = append(errs, c.validatePopulation()...)
	case "store":
		switch c.Store.Driver {
		case "sqlite", "postgres":
			if c.Store.DatabaseURL == "" {
				errs = append(errs, "store.database_url is required")
			}
		case "none":
		default:
			errs = append(errs, fmt.Sprintf("store.driver %q is not one of sqlite, postgres, none", c.Store.Driver))
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateAgglomeration() []string {
	var errs []string
	a := c.Agglomeration
	if a.BaseTime <= 0 {
		errs = append(errs, "agglomeration.base_time must be > 0")
	}
	if a.TimeStep < 0 {
		errs = append(errs, "agglomeration.time_step must be >= 0")
	}
	if a.MinPopulation < 0 {
		errs = append(errs, "agglomeration.min_population must be >= 0")
	}
	if a.RadiusUnit <= 0 {
		errs = append(errs, "agglomeration.radius_unit must be > 0")
	}
	if a.QuadSegments < 1 {
		errs = append(errs, "agglomeration.quad_segments must be >= 1")
	}
	return errs
}

func (c *Config) validatePopulation() []string {
	if c.Population.CityMultiplier <= 0 {
		return []string{"population.city_multiplier must be > 0"}
	}
	return nil
}

func (c *Config) validateAnalysis() []string {
	var errs []string
	if c.Analysis.Resolution <= 0 {
		errs = append(errs, "analysis.resolution must be > 0")
	}
	switch c.Analysis.Weighting {
	case "uniform", "inverse_time":
	default:
		errs = append(errs, fmt.Sprintf("analysis.weighting %q is not one of uniform, inverse_time", c.Analysis.Weighting))
	}
	return errs
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
