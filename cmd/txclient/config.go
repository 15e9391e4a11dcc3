package main

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	txclient "github.com/gofhir/txclient"
	"github.com/gofhir/txclient/pkg/logger"
)

// envPrefix prefixes every environment variable the CLI reads.
const envPrefix = "TX"

// Config holds CLI configuration. Each field is read from a flag, then from
// TX_<KEY> in the environment or the .env file, then from its default.
type Config struct {
	Server      string        `mapstructure:"SERVER" validate:"required,url"`
	Timeout     time.Duration `mapstructure:"TIMEOUT" validate:"gt=0"`
	Rate        float64       `mapstructure:"RATE" validate:"gte=0"`
	Burst       int           `mapstructure:"BURST" validate:"gte=0"`
	Token       string        `mapstructure:"TOKEN"`
	LogLevel    string        `mapstructure:"LOG_LEVEL" validate:"loglevel"`
	FHIRVersion string        `mapstructure:"FHIR_VERSION" validate:"fhirversion"`
	Output      string        `mapstructure:"OUTPUT" validate:"oneof=text json"`
}

// flagKeys maps persistent flag names to config keys.
var flagKeys = map[string]string{
	"server":       "SERVER",
	"timeout":      "TIMEOUT",
	"rate":         "RATE",
	"burst":        "BURST",
	"token":        "TOKEN",
	"log-level":    "LOG_LEVEL",
	"fhir-version": "FHIR_VERSION",
	"output":       "OUTPUT",
}

func registerFlags(flags *pflag.FlagSet) {
	flags.String("server", "", "terminology server base URL (TX_SERVER)")
	flags.Duration("timeout", txclient.DefaultTimeout, "request timeout (TX_TIMEOUT)")
	flags.Float64("rate", 0, "max requests per second, 0 for unlimited (TX_RATE)")
	flags.Int("burst", 1, "rate limiter burst (TX_BURST)")
	flags.String("token", "", "bearer token (TX_TOKEN)")
	flags.String("log-level", "warn", "log level: debug, info, warn, error, none (TX_LOG_LEVEL)")
	flags.String("fhir-version", string(txclient.R4), "FHIR version: R4, R4B, R5 (TX_FHIR_VERSION)")
	flags.StringP("output", "o", "text", "output format: text, json (TX_OUTPUT)")
	flags.String("env-file", ".env", "dotenv file to load")
}

// loadConfig resolves the configuration from flags, environment and the
// dotenv file named by --env-file. A missing dotenv file is not an error.
func loadConfig(flags *pflag.FlagSet) (*Config, error) {
	envFile, _ := flags.GetString("env-file")
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for name, key := range flagKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Output = strings.ToLower(cfg.Output)

	if err := newValidator().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newValidator() *validator.Validate {
	validate := validator.New()
	_ = validate.RegisterValidation("loglevel", func(fl validator.FieldLevel) bool {
		_, ok := logger.ParseLevel(fl.Field().String())
		return ok
	})
	_ = validate.RegisterValidation("fhirversion", func(fl validator.FieldLevel) bool {
		_, ok := txclient.ParseFHIRVersion(fl.Field().String())
		return ok
	})
	return validate
}

// Options converts the configuration into client options logging to log.
func (c *Config) Options(log *logger.Logger) []txclient.Option {
	version, _ := txclient.ParseFHIRVersion(c.FHIRVersion)
	opts := []txclient.Option{
		txclient.WithTimeout(c.Timeout),
		txclient.WithVersion(version),
		txclient.WithUserAgent("txclient-cli/" + txclient.ClientVersion),
		txclient.WithLogger(log),
	}
	if c.Rate > 0 {
		opts = append(opts, txclient.WithRateLimit(c.Rate, c.Burst))
	}
	if c.Token != "" {
		opts = append(opts, txclient.WithBearerToken(c.Token))
	}
	return opts
}

// Level returns the configured log level.
func (c *Config) Level() logger.Level {
	level, _ := logger.ParseLevel(c.LogLevel)
	return level
}
