/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package source

import (
	"fmt"
	"path"

	"github.com/acronis/go-appkit/config"

	"github.com/acronis/go-migratekit"
)

const cfgDefaultKeyPrefix = "migrations.source"

const (
	cfgKeyDir           = "dir"
	cfgKeyTargetVersion = "targetVersion"
	cfgKeyEncoding      = "encoding"
	cfgKeyFilePattern   = "filePattern"
)

// Config represents a set of configuration parameters for a FolderSource.
type Config struct {
	Dir           string `mapstructure:"dir" yaml:"dir" json:"dir"`
	TargetVersion string `mapstructure:"targetVersion" yaml:"targetVersion" json:"targetVersion"`
	Encoding      string `mapstructure:"encoding" yaml:"encoding" json:"encoding"`
	FilePattern   string `mapstructure:"filePattern" yaml:"filePattern" json:"filePattern"`

	keyPrefix string
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// ConfigOption is a type for functional options for the Config.
type ConfigOption func(*configOptions)

type configOptions struct {
	keyPrefix string
}

// WithKeyPrefix returns a ConfigOption that sets a key prefix for parsing
// configuration parameters. This prefix will be used by config.Loader.
func WithKeyPrefix(keyPrefix string) ConfigOption {
	return func(o *configOptions) {
		o.keyPrefix = keyPrefix
	}
}

// NewConfig creates a new instance of the Config.
func NewConfig(options ...ConfigOption) *Config {
	opts := configOptions{keyPrefix: cfgDefaultKeyPrefix}
	for _, opt := range options {
		opt(&opts)
	}
	return &Config{keyPrefix: opts.keyPrefix}
}

// NewDefaultConfig creates a new instance of the Config with default values.
func NewDefaultConfig(options ...ConfigOption) *Config {
	opts := configOptions{keyPrefix: cfgDefaultKeyPrefix}
	for _, opt := range options {
		opt(&opts)
	}
	return &Config{
		keyPrefix:   opts.keyPrefix,
		Encoding:    DefaultEncoding,
		FilePattern: DefaultFilePattern,
	}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
// Implements config.KeyPrefixProvider interface.
func (c *Config) KeyPrefix() string {
	if c.keyPrefix == "" {
		return cfgDefaultKeyPrefix
	}
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values in config.DataProvider.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyEncoding, DefaultEncoding)
	dp.SetDefault(cfgKeyFilePattern, DefaultFilePattern)
}

// Set sets configuration values from config.DataProvider.
func (c *Config) Set(dp config.DataProvider) error {
	var err error

	if c.Dir, err = dp.GetString(cfgKeyDir); err != nil {
		return err
	}
	if c.Dir == "" {
		return dp.WrapKeyErr(cfgKeyDir, fmt.Errorf("cannot be empty"))
	}

	if c.TargetVersion, err = dp.GetString(cfgKeyTargetVersion); err != nil {
		return err
	}
	if c.TargetVersion != "" {
		if _, err = migratekit.ParseVersion(c.TargetVersion); err != nil {
			return dp.WrapKeyErr(cfgKeyTargetVersion, err)
		}
	}

	if c.Encoding, err = dp.GetString(cfgKeyEncoding); err != nil {
		return err
	}
	if _, err = lookupEncoding(c.Encoding); err != nil {
		return dp.WrapKeyErr(cfgKeyEncoding, err)
	}

	if c.FilePattern, err = dp.GetString(cfgKeyFilePattern); err != nil {
		return err
	}
	if c.FilePattern != "" {
		if _, err = path.Match(c.FilePattern, ""); err != nil {
			return dp.WrapKeyErr(cfgKeyFilePattern, err)
		}
	}

	return nil
}
