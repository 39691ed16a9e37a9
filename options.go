package netdesign

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fiberonix/netdesign/db"
	"github.com/fiberonix/netdesign/domain"
	"github.com/fiberonix/netdesign/logger"
	"github.com/fiberonix/netdesign/observability"
	"github.com/fiberonix/netdesign/remote"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// WithOptions applies a series of configuration functions to the designer.
// Each option function can modify the designer and return an error if it fails.
//
// Parameters:
//   - options: Variadic list of configuration functions
//
// Returns:
//   - error: First error encountered from any option function
func (d *Designer) WithOptions(options ...func(*Designer) error) error {
	for _, option := range options {
		err := option(d)
		if err != nil {
			return fmt.Errorf("applying option on designer : %w", err)
		}
	}
	return nil
}

// WithConfigDir loads config.yaml from the given directory, creating both with defaults on
// first run. Environment variables prefixed NETDESIGN_ override file values.
//
// Parameters:
//   - appConfigDir: Path to the configuration directory
//
// Returns:
//   - func(*Designer) error: Configuration function that loads the config
func WithConfigDir(appConfigDir string) func(*Designer) error {
	return func(d *Designer) error {
		_, err := os.ReadDir(appConfigDir)
		if err != nil {
			if os.IsNotExist(err) {
				d.Logger.Info("creating config dir", "dir", appConfigDir)
				err := os.MkdirAll(appConfigDir, 0700)
				if err != nil {
					return fmt.Errorf("creating config dir %s: %w", appConfigDir, err)
				}
			} else {
				return fmt.Errorf("checking if directory exists %s: %w", appConfigDir, err)
			}
		}

		v := newViper()
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(appConfigDir)
		err = v.ReadInConfig()
		if err != nil {
			// need to check if the error is config file doesn't exist
			if _, ok := err.(viper.ConfigFileNotFoundError); ok {
				err = v.SafeWriteConfig()
				if err != nil {
					return fmt.Errorf("writing config file : %w", err)
				}
				if err := v.ReadInConfig(); err != nil {
					return fmt.Errorf("reading new config file : %w", err)
				}
			} else {
				return fmt.Errorf("reading config file : %w", err)
			}
		}

		cfg := Config{ConfigDir: appConfigDir}
		if err := cfg.load(v); err != nil {
			return err
		}
		d.Config = cfg
		d.rebuildDecoder()
		return nil
	}
}

// WithFlags lets the set command line flags override the loaded configuration.
func WithFlags(fs *pflag.FlagSet) func(*Designer) error {
	return func(d *Designer) error {
		if err := d.Config.BindFlags(fs); err != nil {
			return err
		}
		d.rebuildDecoder()
		return nil
	}
}

// WithLogger sets the logger. A nil logger keeps the no-op logger.
func WithLogger(l *logger.Logger) func(*Designer) error {
	return func(d *Designer) error {
		if l != nil {
			d.Logger = l
			d.rebuildDecoder()
		}
		return nil
	}
}

// WithMetrics records backend calls on m.
func WithMetrics(m *observability.Collector) func(*Designer) error {
	return func(d *Designer) error {
		d.Metrics = m
		return nil
	}
}

// WithRepo sets an already built repository.
func WithRepo(repo domain.DesignRepository) func(*Designer) error {
	return func(d *Designer) error {
		if repo == nil {
			return errors.New("repository is nil")
		}
		d.Repo = repo
		return nil
	}
}

// WithRemote uses the REST backend configured under remote.
func WithRemote() func(*Designer) error {
	return func(d *Designer) error {
		options := []func(*remote.Client) error{
			remote.WithLogger(d.Logger),
			remote.WithDecoder(d.Decoder),
			remote.WithMetrics(d.Metrics),
			remote.WithToken(d.Config.Remote.Token),
		}
		if d.Config.Remote.Timeout > 0 {
			options = append(options, remote.WithTimeout(d.Config.Remote.Timeout))
		}
		client, err := remote.New(d.Config.Remote.BaseURL, options...)
		if err != nil {
			return fmt.Errorf("creating remote backend : %w", err)
		}
		d.Repo = client
		return nil
	}
}

// WithDatabase opens (and migrates) the SQLite store at path, or at the configured
// database.path when path is empty.
func WithDatabase(path string) func(*Designer) error {
	return func(d *Designer) error {
		if path == "" {
			path = d.Config.DatabasePath()
		}
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0700); err != nil {
				return fmt.Errorf("creating database dir %s: %w", dir, err)
			}
		}
		dbConn, err := db.New(path)
		if err != nil {
			return fmt.Errorf("opening local backend : %w", err)
		}
		repo := db.NewDesignRepo(dbConn, d.Decoder)
		d.Repo = repo
		d.closers = append(d.closers, repo.Close)
		return nil
	}
}

// WithBackend builds the backend named by the backend config key.
func WithBackend() func(*Designer) error {
	return func(d *Designer) error {
		switch d.Config.Backend {
		case BackendRemote:
			return WithRemote()(d)
		case BackendLocal:
			return WithDatabase("")(d)
		}
		return fmt.Errorf("invalid backend %q", d.Config.Backend)
	}
}

