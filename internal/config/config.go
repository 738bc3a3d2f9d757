// internal/config/config.go
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"
)

// Config represents the application configuration
type Config struct {
	DefaultProfile      string    `toml:"default_profile"`
	MaxRows             int       `toml:"max_rows"`
	ValidateDelay       Duration  `toml:"validate_delay"`
	StatusDuration      Duration  `toml:"status_duration"`
	QueryTable          string    `toml:"query_table"`
	DefaultTable        string    `toml:"default_table"`
	IncludeSystemTables bool      `toml:"include_system_tables"`
	Profiles            []Profile `toml:"profiles"`
	Theme               Theme     `toml:"theme_colors"`
	Keys                KeyMap    `toml:"keys"`

	path string
	key  KeyFunc
}

// Duration is a time.Duration written as a string ("150ms") in the file
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Theme defines the color palette
type Theme struct {
	TextPrimary   string `toml:"text_primary"`
	TextSecondary string `toml:"text_secondary"`
	TextFaint     string `toml:"text_faint"`
	Accent        string `toml:"accent"`
	Success       string `toml:"success"`
	Error         string `toml:"error"`
	Highlight     string `toml:"highlight"`
	Warning       string `toml:"warning"`
	BgPrimary     string `toml:"bg_primary"`
	BgSecondary   string `toml:"bg_secondary"`
}

// KeyMap defines key bindings
type KeyMap struct {
	Exit           []string `toml:"exit"`
	ToggleValidate []string `toml:"toggle_validate"`
	NextQuery      []string `toml:"next_query"`
	Columns        []string `toml:"columns"`
	SwitchFocus    []string `toml:"switch_focus"`
	OpenReference  []string `toml:"open_reference"`
	History        []string `toml:"history"`
	Help           []string `toml:"help"`
}

// Profile represents a database connection profile
type Profile struct {
	Name     string `toml:"name"`
	Type     string `toml:"type"` // postgres, mysql, sqlite
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Database string `toml:"database"`
	// Password is kept in memory for usage
	Password string `toml:"-"`
	// EncryptedPassword is the one persisted in the config file
	EncryptedPassword string `toml:"password"`

	// SSH Tunnel Configuration
	SSHHost     string `toml:"ssh_host,omitempty"`
	SSHPort     int    `toml:"ssh_port,omitempty"`
	SSHUser     string `toml:"ssh_user,omitempty"`
	SSHPassword string `toml:"-"`
	SSHKeyPath  string `toml:"ssh_key_path,omitempty"`

	// EncryptedSSHPassword persisted in config
	EncryptedSSHPassword string `toml:"ssh_password,omitempty"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		MaxRows:        1000,
		ValidateDelay:  Duration{150 * time.Millisecond},
		StatusDuration: Duration{3 * time.Second},
		QueryTable:     "queries",
		Profiles:       []Profile{},
		Theme: Theme{
			// Nord Theme Defaults
			TextPrimary:   "#D8DEE9",
			TextSecondary: "#81A1C1",
			TextFaint:     "#4C566A",
			Accent:        "#88C0D0",
			Success:       "#A3BE8C",
			Error:         "#BF616A",
			Highlight:     "#EBCB8B",
			Warning:       "#D08770",
			BgPrimary:     "#2E3440",
			BgSecondary:   "#3B4252",
		},
		Keys: KeyMap{
			Exit:           []string{"ctrl+c", "ctrl+q"},
			ToggleValidate: []string{"ctrl+e"},
			NextQuery:      []string{"ctrl+n"},
			Columns:        []string{"ctrl+k"},
			SwitchFocus:    []string{"tab"},
			OpenReference:  []string{"enter"},
			History:        []string{"ctrl+r"},
			Help:           []string{"f1", "ctrl+g"},
		},
	}
}

// ConfigPath returns the XDG-compliant config file path
func ConfigPath() (string, error) {
	return xdg.ConfigFile("dbscope/config.toml")
}

// Load loads the config from the XDG path, creating a default one on first run
func Load(logger *slog.Logger) (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path, GetMasterKey, logger)
}

// LoadFrom loads the config at path. key supplies the master key used to
// decrypt profile passwords; a nil key or a key error leaves them empty.
func LoadFrom(path string, key KeyFunc, logger *slog.Logger) (*Config, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		// First run: create default
		cfg := DefaultConfig()
		cfg.path, cfg.key = path, key
		if err := cfg.Save(); err != nil {
			return nil, err
		}
		logger.Info("created default config", slog.String("path", path))
		return cfg, nil
	}

	cfg := DefaultConfig()
	cfg.Profiles = nil
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.path, cfg.key = path, key
	for _, k := range md.Undecoded() {
		logger.Warn("unknown config key", slog.String("key", k.String()))
	}

	// Older files may lack sections; write the defaults out so users can edit them
	if !md.IsDefined("theme_colors") || !md.IsDefined("keys") {
		if err := cfg.Save(); err != nil {
			logger.Warn("failed to persist config defaults", slog.Any("error", err))
		}
	}

	cfg.decryptPasswords(logger)
	return cfg, nil
}

func (c *Config) decryptPasswords(logger *slog.Logger) {
	if c.key == nil {
		return
	}
	key, err := c.key()
	if err != nil {
		logger.Warn("master key unavailable, stored passwords ignored", slog.Any("error", err))
		return
	}
	for i := range c.Profiles {
		p := &c.Profiles[i]
		if p.EncryptedPassword != "" {
			if decrypted, err := Decrypt(p.EncryptedPassword, key); err == nil {
				p.Password = decrypted
			}
		}
		if p.EncryptedSSHPassword != "" {
			if decrypted, err := Decrypt(p.EncryptedSSHPassword, key); err == nil {
				p.SSHPassword = decrypted
			}
		}
	}
}

// Path returns the file the config was loaded from
func (c *Config) Path() string { return c.path }

// Save writes the config back to the file it was loaded from
func (c *Config) Save() error {
	path := c.path
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return err
		}
		path = p
	}

	// Ensure directory exists with secure permissions
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	// Create/truncate file with secure permissions (owner read/write only)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	// Encrypt passwords before saving
	if c.key != nil {
		if key, err := c.key(); err == nil {
			for i := range c.Profiles {
				p := &c.Profiles[i]
				if p.Password != "" {
					if encrypted, err := Encrypt(p.Password, key); err == nil {
						p.EncryptedPassword = encrypted
					}
				}
				if p.SSHPassword != "" {
					if encrypted, err := Encrypt(p.SSHPassword, key); err == nil {
						p.EncryptedSSHPassword = encrypted
					}
				}
			}
		}
	}

	return toml.NewEncoder(f).Encode(c)
}
