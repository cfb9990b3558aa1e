package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	lcs "github.com/gofhir/labcodeset"
	"github.com/gofhir/labcodeset/fhirclient"
	"github.com/gofhir/labcodeset/pkg/logger"
	"github.com/gofhir/labcodeset/terminology"
)

// envPrefix prefixes every environment variable, e.g. LABCODESET_LOINC_VERSION.
const envPrefix = "LABCODESET"

// Config holds the transform configuration.
type Config struct {
	LabcodesetFile string `mapstructure:"labcodeset-file"`
	LoincVersion   string `mapstructure:"loinc-version"`
	OutputDir      string `mapstructure:"output-dir"`

	// Terminology server
	FhirEndpoint   string        `mapstructure:"fhir-endpoint"`
	TokenEndpoint  string        `mapstructure:"token-endpoint"`
	ClientID       string        `mapstructure:"client-id"`
	ClientSecret   string        `mapstructure:"client-secret"`
	CommonUnitsURL string        `mapstructure:"common-units-url"`
	HTTPTimeout    time.Duration `mapstructure:"http-timeout"`

	// Execution
	Parallel         bool          `mapstructure:"parallel"`
	PrefetchWorkers  int           `mapstructure:"prefetch-workers"`
	GeneratorTimeout time.Duration `mapstructure:"generator-timeout"`

	// Lookup store
	RedisURL    string        `mapstructure:"redis-url"`
	RedisPrefix string        `mapstructure:"redis-prefix"`
	RedisTTL    time.Duration `mapstructure:"redis-ttl"`

	// Observability
	MetricsFile string `mapstructure:"metrics-file"`
	LogLevel    string `mapstructure:"log-level"`
	LogFormat   string `mapstructure:"log-format"`
}

// defineFlags declares the transform flags with their defaults.
func defineFlags(fs *pflag.FlagSet) {
	fs.StringP("labcodeset-file", "f", "", "Labcodeset publication XML file")
	fs.StringP("loinc-version", "l", "", "LOINC release the publication refers to, e.g. 2.72")
	fs.StringP("output-dir", "o", ".", "directory the release files are written to")

	fs.StringP("fhir-endpoint", "e", "", "FHIR terminology server base URL")
	fs.String("token-endpoint", "", "OAuth2 token endpoint of the terminology server")
	fs.String("client-id", "", "OAuth2 client id")
	fs.String("client-secret", "", "OAuth2 client secret")
	fs.String("common-units-url", fhirclient.DefaultCommonUnitsURL, "common UCUM units value set")
	fs.Duration("http-timeout", fhirclient.DefaultTimeout, "timeout of a single HTTP request")

	fs.Bool("parallel", false, "run the generators concurrently")
	fs.Int("prefetch-workers", 0, "workers resolving lookups before generation (0 disables)")
	fs.Duration("generator-timeout", 0, "time limit of a single generator (0 means none)")

	fs.String("redis-url", "", "Redis URL of a persistent lookup store, e.g. redis://localhost:6379/0")
	fs.String("redis-prefix", terminology.DefaultStorePrefix, "key prefix of stored lookups")
	fs.Duration("redis-ttl", 30*24*time.Hour, "lifetime of stored lookups")

	fs.String("metrics-file", "", "write Prometheus metrics to this file")
	fs.String("log-level", "info", "log level: debug, info, warn, error")
	fs.String("log-format", string(logger.FormatJSON), "log format: json, console")
}

// newViper returns a viper instance bound to flags, the environment and an
// optional config file.
func newViper(fs *pflag.FlagSet, configFile string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return v, nil
}

// loadConfig unmarshals and validates the configuration.
func loadConfig(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	var errs []error

	if c.LabcodesetFile == "" {
		errs = append(errs, errors.New("labcodeset-file is required"))
	}
	if c.LoincVersion == "" {
		errs = append(errs, errors.New("loinc-version is required"))
	} else if err := lcs.ValidateLoincVersion(c.LoincVersion); err != nil {
		errs = append(errs, err)
	}
	if c.FhirEndpoint == "" {
		errs = append(errs, errors.New("fhir-endpoint is required"))
	}
	if c.OutputDir == "" {
		errs = append(errs, errors.New("output-dir must not be empty"))
	}

	set := 0
	for _, s := range []string{c.TokenEndpoint, c.ClientID, c.ClientSecret} {
		if s != "" {
			set++
		}
	}
	if set != 0 && set != 3 {
		errs = append(errs, errors.New("token-endpoint, client-id and client-secret must be given together"))
	}

	if c.HTTPTimeout <= 0 {
		errs = append(errs, fmt.Errorf("http-timeout must be positive, got %s", c.HTTPTimeout))
	}
	if c.PrefetchWorkers < 0 {
		errs = append(errs, fmt.Errorf("prefetch-workers must not be negative, got %d", c.PrefetchWorkers))
	}
	if c.GeneratorTimeout < 0 {
		errs = append(errs, fmt.Errorf("generator-timeout must not be negative, got %s", c.GeneratorTimeout))
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if _, err := logger.ParseFormat(c.LogFormat); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// useToken reports whether the terminology server needs a bearer token.
func (c *Config) useToken() bool {
	return c.TokenEndpoint != ""
}
