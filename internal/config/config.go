// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rhyolite Contributors

package config

import (
	"errors"
	"net"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/rhyolite-dev/rhyolite/internal/store"
	rherr "github.com/rhyolite-dev/rhyolite/pkg/errors"
)

// Config is the top-level Rhyolite configuration.
type Config struct {
	Networking  NetworkingConfig    `mapstructure:"networking"`
	Storage     store.StorageConfig `mapstructure:"storage"`
	Attachments AttachmentsConfig   `mapstructure:"attachments"`
}

// NetworkingConfig controls how Rhyolite listens for connections.
type NetworkingConfig struct {
	Listen      string   `mapstructure:"listen"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// AttachmentsConfig locates attachment byte storage.
type AttachmentsConfig struct {
	Dir string `mapstructure:"dir"`
}

// Load reads configuration from the given path (or defaults) with
// environment variable overrides (prefix RHYOLITE_).
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("networking.listen", "127.0.0.1:10100")
	v.SetDefault("networking.cors_origins", []string{"http://localhost:10000"})
	v.SetDefault("storage.backend", "sqlite")
	v.SetDefault("storage.path", "rhyolite.db")
	v.SetDefault("attachments.dir", "attachments")

	// Environment
	v.SetEnvPrefix("RHYOLITE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// File
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, rherr.Errorf(rherr.CodeConfigLoadReadFailure, "reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, rherr.Errorf(rherr.CodeConfigValidateInvalidValue, "unmarshalling config: %w", err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, rherr.Errorf(rherr.CodeConfigValidateInvalidValue, "validating config: %w", errors.Join(errs...))
	}

	return &cfg, nil
}

// Validate checks the configuration for logical errors. It returns all
// validation errors found rather than stopping at the first one.
func (c *Config) Validate() []error {
	var errs []error

	errs = append(errs, c.validateNetworking()...)
	errs = append(errs, c.validateStorage()...)
	errs = append(errs, c.validateAttachments()...)

	return errs
}

func (c *Config) validateNetworking() []error {
	var errs []error

	if c.Networking.Listen == "" {
		errs = append(errs, rherr.Errorf(rherr.CodeConfigValidateInvalidValue, "config: networking.listen must not be empty"))
	} else {
		host, portStr, err := net.SplitHostPort(c.Networking.Listen)
		if err != nil {
			errs = append(errs, rherr.Errorf(rherr.CodeConfigValidateInvalidValue,
				"config: networking.listen must be a valid host:port address, got %q: %w",
				c.Networking.Listen, err,
			))
		} else {
			_ = host // host can be empty (e.g., ":8080"), which is valid
			port, err := strconv.Atoi(portStr)
			if err != nil {
				errs = append(errs, rherr.Errorf(rherr.CodeConfigValidateInvalidValue,
					"config: networking.listen port must be a number, got %q",
					portStr,
				))
			} else if port < 1 || port > 65535 {
				errs = append(errs, rherr.Errorf(rherr.CodeConfigValidateInvalidValue,
					"config: networking.listen port must be between 1 and 65535, got %d",
					port,
				))
			}
		}
	}

	for i, origin := range c.Networking.CORSOrigins {
		if origin == "" {
			errs = append(errs, rherr.Errorf(rherr.CodeConfigValidateInvalidValue,
				"config: networking.cors_origins[%d] must not be empty", i,
			))
		}
	}

	return errs
}

func (c *Config) validateStorage() []error {
	var errs []error

	validBackends := map[string]bool{"sqlite": true}
	if !validBackends[c.Storage.Backend] {
		errs = append(errs, rherr.Errorf(rherr.CodeConfigValidateInvalidValue,
			"config: storage.backend must be one of [sqlite], got %q",
			c.Storage.Backend,
		))
	}

	if c.Storage.Path == "" {
		errs = append(errs, rherr.Errorf(rherr.CodeConfigValidateInvalidValue, "config: storage.path must not be empty"))
	}

	return errs
}

func (c *Config) validateAttachments() []error {
	var errs []error

	if c.Attachments.Dir == "" {
		errs = append(errs, rherr.Errorf(rherr.CodeConfigValidateInvalidValue, "config: attachments.dir must not be empty"))
	}

	return errs
}
