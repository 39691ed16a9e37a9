package netdesign

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	BackendRemote = "remote"
	BackendLocal  = "local"
)

type RemoteConfig struct {
	BaseURL string        `mapstructure:"base_url"` // Collection URL, e.g. https://host/api/network-device/designs/
	Token   string        `mapstructure:"token"`    // Sent verbatim as the Authorization header
	Timeout time.Duration `mapstructure:"timeout"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"` // Relative paths resolve against the config dir
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
	Prefix  string `mapstructure:"prefix"`
}

// DesignConfig holds the values new designs and stages start from.
type DesignConfig struct {
	InputPowerDBm    float64 `mapstructure:"input_power_dbm"`
	FiberLossDBPerKm float64 `mapstructure:"fiber_loss_db_per_km"`
}

type LogConfig struct {
	Mode string `mapstructure:"mode"` // dev or prod
}

type Config struct {
	viper     *viper.Viper
	ConfigDir string         `mapstructure:"config_dir"`
	Backend   string         `mapstructure:"backend"` // remote or local
	Remote    RemoteConfig   `mapstructure:"remote"`
	Database  DatabaseConfig `mapstructure:"database"`
	Server    ServerConfig   `mapstructure:"server"`
	Design    DesignConfig   `mapstructure:"design"`
	Log       LogConfig      `mapstructure:"log"`
}

var defaults = map[string]any{
	"backend":                     BackendLocal,
	"remote.base_url":             "",
	"remote.token":                "",
	"remote.timeout":              "30s",
	"database.path":               "netdesign.db",
	"server.address":              "127.0.0.1:8080",
	"server.prefix":               "/designs",
	"design.input_power_dbm":      8.0,
	"design.fiber_loss_db_per_km": 0.2,
	"log.mode":                    "dev",
}

// flagKeys maps command line flag names onto config keys.
var flagKeys = map[string]string{
	"backend":     "backend",
	"remote-url":  "remote.base_url",
	"token":       "remote.token",
	"timeout":     "remote.timeout",
	"db":          "database.path",
	"address":     "server.address",
	"prefix":      "server.prefix",
	"input-power": "design.input_power_dbm",
	"fiber-loss":  "design.fiber_loss_db_per_km",
	"log-mode":    "log.mode",
}

// DefaultConfig returns the configuration used when no config dir is given.
func DefaultConfig() Config {
	var cfg Config
	// defaults decode cleanly, the error is only reachable with a broken table
	_ = cfg.load(newViper())
	return cfg
}

func newViper() *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix("NETDESIGN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func (cfg *Config) load(v *viper.Viper) error {
	dir := cfg.ConfigDir
	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("unmarshalling config to struct : %w", err)
	}
	cfg.viper = v
	if dir != "" {
		cfg.ConfigDir = dir
	}
	return cfg.validate()
}

func (cfg *Config) validate() error {
	switch cfg.Backend {
	case BackendRemote, BackendLocal:
	default:
		return fmt.Errorf("invalid backend %q", cfg.Backend)
	}
	if cfg.Remote.Timeout < 0 {
		return fmt.Errorf("invalid remote timeout %s", cfg.Remote.Timeout)
	}
	return nil
}

// BindFlags lets the set flags of fs override file and environment values.
func (cfg *Config) BindFlags(fs *pflag.FlagSet) error {
	if cfg.viper == nil {
		cfg.viper = newViper()
	}
	for name, key := range flagKeys {
		flag := fs.Lookup(name)
		if flag == nil {
			continue
		}
		if err := cfg.viper.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("binding flag %s : %w", name, err)
		}
	}
	return cfg.load(cfg.viper)
}

// DatabasePath resolves Database.Path against the config dir.
func (cfg *Config) DatabasePath() string {
	if filepath.IsAbs(cfg.Database.Path) || cfg.ConfigDir == "" {
		return cfg.Database.Path
	}
	return filepath.Join(cfg.ConfigDir, cfg.Database.Path)
}

// SetRemote switches to the remote backend and persists it.
func (cfg *Config) SetRemote(baseURL, token string) error {
	if strings.TrimSpace(baseURL) == "" {
		return errors.New("remote base url is empty")
	}
	return cfg.persist(map[string]any{
		"backend":         BackendRemote,
		"remote.base_url": baseURL,
		"remote.token":    token,
	})
}

// SetLocal switches to the local database backend and persists it.
func (cfg *Config) SetLocal(path string) error {
	values := map[string]any{"backend": BackendLocal}
	if path != "" {
		values["database.path"] = path
	}
	return cfg.persist(values)
}

func (cfg *Config) persist(values map[string]any) error {
	if cfg.viper == nil || cfg.viper.ConfigFileUsed() == "" {
		return errors.New("no config file loaded")
	}
	for key, value := range values {
		cfg.viper.Set(key, value)
	}
	if err := cfg.viper.WriteConfig(); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}
	return cfg.load(cfg.viper)
}
