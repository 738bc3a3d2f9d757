// internal/config/profiles.go
package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/nhath/dbscope/internal/db"
)

// GetProfile retrieves a profile by name
func (c *Config) GetProfile(name string) (*Profile, error) {
	for i := range c.Profiles {
		if c.Profiles[i].Name == name {
			return &c.Profiles[i], nil
		}
	}
	return nil, fmt.Errorf("profile not found: %s", name)
}

// AddProfile adds a new profile and saves the config
func (c *Config) AddProfile(p Profile) error {
	if _, err := c.GetProfile(p.Name); err == nil {
		return fmt.Errorf("profile already exists: %s", p.Name)
	}
	c.Profiles = append(c.Profiles, p)
	return c.Save()
}

// DeleteProfile removes a profile and saves the config
func (c *Config) DeleteProfile(name string) error {
	for i := range c.Profiles {
		if c.Profiles[i].Name == name {
			c.Profiles = append(c.Profiles[:i], c.Profiles[i+1:]...)
			return c.Save()
		}
	}
	return fmt.Errorf("profile not found: %s", name)
}

// ListProfiles returns all profile names
func (c *Config) ListProfiles() []string {
	names := make([]string, len(c.Profiles))
	for i, p := range c.Profiles {
		names[i] = p.Name
	}
	return names
}

// DisplayDSN renders the profile as a URI without its password
func (p *Profile) DisplayDSN() string {
	switch db.DriverType(p.Type) {
	case db.Postgres, db.MySQL:
		return fmt.Sprintf("%s://%s@%s:%d/%s", p.Type, p.User, p.Host, p.Port, p.Database)
	case db.SQLite:
		return "sqlite://" + p.Database
	default:
		return ""
	}
}

// ConnectParams converts the profile into driver connection parameters
func (p *Profile) ConnectParams() (db.DriverType, db.ConnectParams, error) {
	t := db.DriverType(p.Type)
	switch t {
	case db.Postgres, db.MySQL, db.SQLite:
	default:
		return "", db.ConnectParams{}, fmt.Errorf("profile %q: unknown type %q", p.Name, p.Type)
	}

	params := db.ConnectParams{
		Host:     p.Host,
		Port:     p.Port,
		User:     p.User,
		Password: p.Password,
		Database: p.Database,
	}
	if p.SSHHost != "" && t != db.SQLite {
		port := p.SSHPort
		if port == 0 {
			port = 22
		}
		params.SSHConfig = &db.SSHConfig{
			Host:     p.SSHHost,
			Port:     port,
			User:     p.SSHUser,
			Password: p.SSHPassword,
			KeyPath:  p.SSHKeyPath,
		}
	}
	return t, params, nil
}

// ParseDSN parses a connection string into a Profile. Strings without a
// known scheme are taken as SQLite file paths.
func ParseDSN(name, dsn string) (Profile, error) {
	p := Profile{Name: name}

	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		if err := p.fromURL(dsn, db.Postgres, 5432); err != nil {
			return p, err
		}
	case strings.HasPrefix(dsn, "mysql://"):
		if err := p.fromURL(dsn, db.MySQL, 3306); err != nil {
			return p, err
		}
	default:
		p.Type = string(db.SQLite)
		path := strings.TrimPrefix(dsn, "sqlite://")
		p.Database = strings.TrimPrefix(path, "file:")
	}

	if p.Database == "" && p.Type == string(db.SQLite) {
		return p, fmt.Errorf("empty database path in %q", dsn)
	}
	return p, nil
}

func (p *Profile) fromURL(dsn string, t db.DriverType, defaultPort int) error {
	u, err := url.Parse(dsn)
	if err != nil {
		return fmt.Errorf("parse dsn: %w", err)
	}
	p.Type = string(t)
	p.Host = u.Hostname()
	p.Port = defaultPort
	if port := u.Port(); port != "" {
		if p.Port, err = strconv.Atoi(port); err != nil {
			return fmt.Errorf("invalid port %q: %w", port, err)
		}
	}
	p.User = u.User.Username()
	p.Password, _ = u.User.Password()
	p.Database = strings.TrimPrefix(u.Path, "/")
	return nil
}
