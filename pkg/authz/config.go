package authz

import (
	"path/filepath"

	"github.com/go-faster/errors"
	"github.com/iota-uz/utils/fs"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/hr-console/pkg/configuration"
)

// Config holds the casbin model and policy files plus the source of the
// enforcement mode. FlagProvider wins over FlagPath when both are set.
type Config struct {
	ModelPath    string
	PolicyPath   string
	FlagPath     string
	FlagMode     Mode
	Logger       *logrus.Logger
	FlagProvider FlagProvider
}

// validate reports every problem, not only the first.
func (c Config) validate() error {
	var errs []error
	for _, f := range []struct{ name, path string }{
		{"model", c.ModelPath},
		{"policy", c.PolicyPath},
	} {
		switch {
		case f.path == "":
			errs = append(errs, configError("missing %s path", f.name))
		case !fs.FileExists(f.path):
			errs = append(errs, configError("%s file %s not found", f.name, f.path))
		}
	}
	if c.FlagPath == "" && c.FlagProvider == nil {
		errs = append(errs, configError("missing flag configuration path"))
	}
	return errors.Join(errs...)
}

func (c Config) normalized() Config {
	c.ModelPath = filepath.Clean(c.ModelPath)
	c.PolicyPath = filepath.Clean(c.PolicyPath)
	if c.FlagPath != "" {
		c.FlagPath = filepath.Clean(c.FlagPath)
	}
	return c
}

// ConfigFromOptions maps the AUTHZ_* environment section onto a Config.
func ConfigFromOptions(opts configuration.AuthzOptions, logger *logrus.Logger) Config {
	return Config{
		ModelPath:  opts.ModelPath,
		PolicyPath: opts.PolicyPath,
		FlagPath:   opts.FlagConfigPath,
		FlagMode:   sanitizeMode(Mode(opts.Mode)),
		Logger:     logger,
	}
}

func DefaultConfig() Config {
	conf := configuration.Use()
	return ConfigFromOptions(conf.Authz, conf.Logger())
}
