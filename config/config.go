package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/smctrader/internal/logging"
)

// Config is the complete process configuration.
type Config struct {
	OANDA       OANDAConfig     `json:"oanda" yaml:"oanda"`
	Instruments []string        `json:"instruments" yaml:"instruments" default:"[\"EUR_USD\",\"USD_JPY\",\"GBP_USD\"]" validate:"min=1,dive,required"`
	Account     AccountConfig   `json:"account" yaml:"account"`
	Reconnect   ReconnectConfig `json:"reconnect" yaml:"reconnect"`
	Server      ServerConfig    `json:"server" yaml:"server"`
	Log         logging.Config  `json:"log" yaml:"log"`
}

// OANDAConfig holds pricing stream credentials.
type OANDAConfig struct {
	Token       string `json:"token,omitempty" yaml:"token,omitempty"`
	AccountID   string `json:"account_id,omitempty" yaml:"account_id,omitempty"`
	Environment string `json:"environment" yaml:"environment" default:"practice" validate:"oneof=practice demo live trade"`
	// StreamURL overrides the host derived from Environment.
	StreamURL string `json:"stream_url,omitempty" yaml:"stream_url,omitempty" validate:"omitempty,url"`

	// ReadTimeout drops a stream that sends nothing, heartbeats included, for this long.
	ReadTimeout time.Duration `json:"read_timeout" yaml:"read_timeout" default:"30s" validate:"gt=0"`
}

// AccountConfig is used to size suggested positions.
type AccountConfig struct {
	Currency    string  `json:"currency" yaml:"currency" default:"USD" validate:"len=3"`
	Balance     float64 `json:"balance" yaml:"balance" default:"100000" validate:"gt=0"`
	RiskPercent float64 `json:"risk_percent" yaml:"risk_percent" default:"0.01" validate:"gt=0,lte=1"`
}

// ReconnectConfig controls the waits between stream attempts.
type ReconnectConfig struct {
	Strategy   string        `json:"strategy" yaml:"strategy" default:"fixed" validate:"oneof=fixed exponential"`
	ErrorDelay time.Duration `json:"error_delay" yaml:"error_delay" default:"15s" validate:"gt=0"`
	LostDelay  time.Duration `json:"lost_delay" yaml:"lost_delay" default:"10s" validate:"gt=0"`
	MaxDelay   time.Duration `json:"max_delay" yaml:"max_delay" default:"5m" validate:"gt=0"`
}

// ServerConfig controls the status API.
type ServerConfig struct {
	Addr         string        `json:"addr" yaml:"addr" default:":5000" validate:"required"`
	PushInterval time.Duration `json:"push_interval" yaml:"push_interval" default:"1s" validate:"gt=0"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// LoadDotEnv loads KEY=value files into the environment. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// LoadFromFile loads configuration from a file (YAML, falling back to JSON),
// applies environment overrides and validates the result.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	if err := yaml.Unmarshal(data, cfg); err != nil {
		cfg = Default()
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	cfg.ApplyEnv(os.LookupEnv)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from the environment.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup("OANDA_ACCESS_TOKEN"); ok && v != "" {
		c.OANDA.Token = v
	}
	if v, ok := lookup("OANDA_ACCOUNT_ID"); ok && v != "" {
		c.OANDA.AccountID = v
	}
	if v, ok := lookup("OANDA_ENVIRONMENT"); ok && v != "" {
		c.OANDA.Environment = strings.ToLower(v)
	}
	if v, ok := lookup("SMC_INSTRUMENTS"); ok && v != "" {
		c.Instruments = SplitInstruments(v)
	}
	if v, ok := lookup("PORT"); ok && v != "" {
		c.Server.Addr = ":" + v
	}
	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		c.Log.Level = v
	}
}

// SplitInstruments parses "EUR_USD, usd_jpy" into upper-case names.
func SplitInstruments(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.ToUpper(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension).
func (c *Config) SaveToFile(path string) error {
	var (
		data []byte
		err  error
	)
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks field constraints and reports the first violation as
// "<section>.<field> <problem>".
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return err
	}
	fe := ve[0]
	field := strings.TrimPrefix(fe.Namespace(), "Config.")

	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", field)
	case "min":
		return fmt.Errorf("%s needs at least %s entries", field, fe.Param())
	case "gt":
		return fmt.Errorf("%s must be positive", field)
	case "lte":
		return fmt.Errorf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Errorf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "len":
		return fmt.Errorf("%s must be %s characters", field, fe.Param())
	default:
		return fmt.Errorf("%s failed %s validation", field, fe.Tag())
	}
}

// RequireStream checks the fields needed to open a live pricing stream.
func (c *Config) RequireStream() error {
	if c.OANDA.Token == "" {
		return fmt.Errorf("oanda.token is required (or set OANDA_ACCESS_TOKEN)")
	}
	if c.OANDA.AccountID == "" {
		return fmt.Errorf("oanda.account_id is required (or set OANDA_ACCOUNT_ID)")
	}
	return nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return cfg
}
