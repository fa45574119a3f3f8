package internal

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "TCHAT_"

// Config holds the client settings. Values are layered: defaults, the
// TOML file, a .env file, TCHAT_* variables, then command-line flags.
type Config struct {
	ServerURL      string        `toml:"server_url"`
	DefaultMode    string        `toml:"default_mode"`
	RequestTimeout time.Duration `toml:"request_timeout"`
	RedirectDelay  time.Duration `toml:"redirect_delay"`
	RateLimit      float64       `toml:"rate_limit"` // requests per second, 0 disables
	RateBurst      int           `toml:"rate_burst"`
	DataDir        string        `toml:"data_dir"`
	Render         bool          `toml:"render"` // render bot replies as markdown
}

// DefaultConfig returns the built-in settings
func DefaultConfig() Config {
	return Config{
		ServerURL:      DefaultServerURL,
		DefaultMode:    string(ModeDefault),
		RequestTimeout: DefaultTimeout,
		RedirectDelay:  DefaultRedirectDelay,
		RateLimit:      0,
		RateBurst:      1,
		Render:         true,
	}
}

// LoadConfigFile overlays the TOML file at path onto cfg. A missing file is
// only an error when required is set (the user named it explicitly).
func LoadConfigFile(cfg *Config, path string, required bool) error {
	if path == "" {
		return nil
	}
	_, err := toml.DecodeFile(path, cfg)
	if err == nil {
		LogDebug("Loaded config from %s", path)
		return nil
	}
	if errors.Is(err, fs.ErrNotExist) && !required {
		return nil
	}
	var parseErr toml.ParseError
	if errors.As(err, &parseErr) {
		return &ConfigError{Source: path, Err: fmt.Errorf("%s", parseErr.ErrorWithPosition())}
	}
	return &ConfigError{Source: path, Err: err}
}

// LoadDotEnv loads a .env file into the process environment without
// overriding variables that are already set. A missing file is fine.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return &ConfigError{Source: path, Err: err}
	}
	LogDebug("Loaded environment from %s", path)
	return nil
}

// ApplyEnv overlays TCHAT_* variables. lookup is usually os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok && v != "" {
			*dst = v
		}
	}
	str("SERVER_URL", &c.ServerURL)
	str("MODE", &c.DefaultMode)
	str("DATA_DIR", &c.DataDir)

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"TIMEOUT", &c.RequestTimeout},
		{"REDIRECT_DELAY", &c.RedirectDelay},
	}
	for _, d := range durations {
		v, ok := lookup(EnvPrefix + d.key)
		if !ok || v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return &ConfigError{Source: "env", Key: EnvPrefix + d.key, Err: err}
		}
		*d.dst = parsed
	}

	if v, ok := lookup(EnvPrefix + "RATE_LIMIT"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return &ConfigError{Source: "env", Key: EnvPrefix + "RATE_LIMIT", Err: err}
		}
		c.RateLimit = f
	}
	if v, ok := lookup(EnvPrefix + "RATE_BURST"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return &ConfigError{Source: "env", Key: EnvPrefix + "RATE_BURST", Err: err}
		}
		c.RateBurst = n
	}
	if v, ok := lookup(EnvPrefix + "RENDER"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return &ConfigError{Source: "env", Key: EnvPrefix + "RENDER", Err: err}
		}
		c.Render = b
	}
	return nil
}

// Validate checks the settings are usable
func (c *Config) Validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &ConfigError{Source: "config", Key: "server_url", Err: fmt.Errorf("invalid server URL %q", c.ServerURL)}
	}
	if _, err := ParseMode(c.DefaultMode); err != nil {
		return &ConfigError{Source: "config", Key: "default_mode", Err: err}
	}
	if c.RequestTimeout < 0 {
		return &ConfigError{Source: "config", Key: "request_timeout", Err: errors.New("must not be negative")}
	}
	if c.RedirectDelay < 0 {
		return &ConfigError{Source: "config", Key: "redirect_delay", Err: errors.New("must not be negative")}
	}
	if c.RateLimit < 0 {
		return &ConfigError{Source: "config", Key: "rate_limit", Err: errors.New("must not be negative")}
	}
	if c.RateLimit > 0 && c.RateBurst < 1 {
		return &ConfigError{Source: "config", Key: "rate_burst", Err: errors.New("must be at least 1 when rate_limit is set")}
	}
	return nil
}

// Mode returns the validated default mode
func (c *Config) Mode() Mode {
	m, err := ParseMode(c.DefaultMode)
	if err != nil {
		return ModeDefault
	}
	return m
}

// ClientOptions derives HTTP client options from the settings
func (c *Config) ClientOptions() ClientOptions {
	return ClientOptions{
		Timeout:   c.RequestTimeout,
		RateLimit: c.RateLimit,
		RateBurst: c.RateBurst,
	}
}
