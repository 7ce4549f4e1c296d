// Package config loads tchat settings from a TOML file and the environment.
//
// Precedence, lowest first: Default, the config file, environment variables,
// command-line flags (applied by the caller before Normalize and Validate).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultAddr             = "irc.chat.twitch.tv:6667"
	DefaultHandshakeTimeout = 5
	DefaultScrollbackLimit  = 1000
	DefaultMessagesPer30s   = 20
)

// Config is the on-disk configuration.
type Config struct {
	Addr    string `toml:"addr"`
	Nick    string `toml:"nick"`
	Channel string `toml:"channel"`
	Token   string `toml:"token"`

	LogFile string `toml:"log_file"`
	Verbose bool   `toml:"verbose"`

	HandshakeTimeoutSecs int `toml:"handshake_timeout_secs"`
	// ScrollbackLimit of 0 keeps every message.
	ScrollbackLimit int `toml:"scrollback_limit"`
	// MessagesPer30s of 0 disables outbound rate limiting.
	MessagesPer30s int `toml:"messages_per_30s"`
}

func Default() *Config {
	return &Config{
		Addr:                 DefaultAddr,
		HandshakeTimeoutSecs: DefaultHandshakeTimeout,
		ScrollbackLimit:      DefaultScrollbackLimit,
		MessagesPer30s:       DefaultMessagesPer30s,
	}
}

// ConfigDir returns $XDG_CONFIG_HOME/tchat, or the platform equivalent.
func ConfigDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("could not determine config directory: %w", err)
	}
	return filepath.Join(dir, "tchat"), nil
}

// DefaultPath returns the path of config.toml inside ConfigDir.
func DefaultPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads the config file at path, or DefaultPath when path is empty, and
// applies environment overrides. A missing default file is not an error; a
// missing explicit path is.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			cfg.ApplyEnvOverrides()
			return cfg, nil
		}
		path = p
	}

	if err := LoadTOML(cfg, path); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	cfg.ApplyEnvOverrides()
	return cfg, nil
}

// LoadTOML decodes the file at path over cfg. Keys absent from the file keep
// their current values.
func LoadTOML(cfg *Config, path string) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to load config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("failed to load config %s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	return nil
}

// ApplyEnvOverrides applies environment variable overrides:
//   - TWITCH_TOKEN: token
//   - TCHAT_NICK: nick
//   - TCHAT_CHANNEL: channel
//   - TCHAT_ADDR: addr
func (c *Config) ApplyEnvOverrides() {
	if token := os.Getenv("TWITCH_TOKEN"); token != "" {
		c.Token = token
	}
	if nick := os.Getenv("TCHAT_NICK"); nick != "" {
		c.Nick = nick
	}
	if channel := os.Getenv("TCHAT_CHANNEL"); channel != "" {
		c.Channel = channel
	}
	if addr := os.Getenv("TCHAT_ADDR"); addr != "" {
		c.Addr = addr
	}
}

// Normalize canonicalizes user-entered values: the channel loses its leading
// '#' and is lower-cased, the token loses an "oauth:" prefix, and an unset
// nick falls back to the channel name.
func (c *Config) Normalize() {
	c.Channel = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(c.Channel), "#"))
	c.Token = strings.TrimPrefix(strings.TrimSpace(c.Token), "oauth:")
	c.Nick = strings.ToLower(strings.TrimSpace(c.Nick))
	if c.Nick == "" {
		c.Nick = c.Channel
	}
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
}

// HandshakeTimeout is HandshakeTimeoutSecs as a duration.
func (c *Config) HandshakeTimeout() time.Duration {
	return time.Duration(c.HandshakeTimeoutSecs) * time.Second
}

// ValidationError is a single invalid setting.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every invalid setting.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs ValidationErrors

	if c.Channel == "" {
		errs = append(errs, ValidationError{Field: "channel", Message: "required (--channel, TCHAT_CHANNEL or config)"})
	} else if strings.ContainsAny(c.Channel, " \r\n,") {
		errs = append(errs, ValidationError{Field: "channel", Message: fmt.Sprintf("invalid channel name %q", c.Channel)})
	}
	if c.Token == "" {
		errs = append(errs, ValidationError{Field: "token", Message: "required (--token, TWITCH_TOKEN or config)"})
	} else if strings.ContainsAny(c.Token, " \r\n") {
		errs = append(errs, ValidationError{Field: "token", Message: "must not contain whitespace"})
	}
	if strings.ContainsAny(c.Nick, " \r\n") {
		errs = append(errs, ValidationError{Field: "nick", Message: fmt.Sprintf("invalid nick %q", c.Nick)})
	}
	if c.Addr == "" || !strings.Contains(c.Addr, ":") {
		errs = append(errs, ValidationError{Field: "addr", Message: fmt.Sprintf("expected host:port, got %q", c.Addr)})
	}
	if c.HandshakeTimeoutSecs <= 0 {
		errs = append(errs, ValidationError{Field: "handshake_timeout_secs", Message: "must be positive"})
	}
	if c.ScrollbackLimit < 0 {
		errs = append(errs, ValidationError{Field: "scrollback_limit", Message: "must not be negative"})
	}
	if c.MessagesPer30s < 0 {
		errs = append(errs, ValidationError{Field: "messages_per_30s", Message: "must not be negative"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
