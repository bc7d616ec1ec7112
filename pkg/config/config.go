package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

const (
	xdgAppName = "errands"
	configFile = "config.json"
	tasksFile  = "tasks.json"
	envPrefix  = "ERRANDS"

	DefaultListName = "Errands"
)

// Setting keys, named after the Errands GSettings keys.
const (
	KeyNCEnabled     = "nc-enabled"
	KeyNCURL         = "nc-url"
	KeyNCUsername    = "nc-username"
	KeyNCPassword    = "nc-password"
	KeyGTasksEnabled = "gtasks-enabled"
	KeyListName      = "list-name"
	KeyTasksFile     = "tasks-file"
)

// ErrUnknownKey is returned by Set for keys that are not settings.
var ErrUnknownKey = errors.New("unknown setting")

type Config struct {
	NCEnabled     bool   `mapstructure:"nc-enabled"`
	NCURL         string `mapstructure:"nc-url"`
	NCUsername    string `mapstructure:"nc-username"`
	NCPassword    string `mapstructure:"nc-password"`
	GTasksEnabled bool   `mapstructure:"gtasks-enabled"`
	ListName      string `mapstructure:"list-name"`
	TasksFile     string `mapstructure:"tasks-file"`
}

func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", xdgAppName), nil
}

func GetConfigPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFile), nil
}

// Load reads the config file at path (the default path when empty) and
// applies ERRANDS_* environment overrides, e.g. ERRANDS_NC_PASSWORD. A
// missing file yields the defaults.
func Load(path string) (*Config, error) {
	return load(path, true)
}

// LoadFile reads the config file without environment overrides. Use it for
// a config that will be saved back.
func LoadFile(path string) (*Config, error) {
	return load(path, false)
}

func load(path string, withEnv bool) (*Config, error) {
	if path == "" {
		var err error
		if path, err = GetConfigPath(); err != nil {
			return nil, err
		}
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	if withEnv {
		v.SetEnvPrefix(envPrefix)
		v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
		v.AutomaticEnv()
	}

	v.SetDefault(KeyNCEnabled, false)
	v.SetDefault(KeyNCURL, "")
	v.SetDefault(KeyNCUsername, "")
	v.SetDefault(KeyNCPassword, "")
	v.SetDefault(KeyGTasksEnabled, false)
	v.SetDefault(KeyListName, DefaultListName)
	v.SetDefault(KeyTasksFile, "")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if cfg.ListName == "" {
		cfg.ListName = DefaultListName
	}
	if cfg.TasksFile == "" {
		dir, err := configDir()
		if err != nil {
			return nil, err
		}
		cfg.TasksFile = filepath.Join(dir, tasksFile)
	}
	return &cfg, nil
}

// Save writes cfg to path (the default path when empty), readable by the
// owner only since it holds the Nextcloud password.
func Save(path string, cfg *Config) error {
	if path == "" {
		var err error
		if path, err = GetConfigPath(); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigType("json")
	v.Set(KeyNCEnabled, cfg.NCEnabled)
	v.Set(KeyNCURL, cfg.NCURL)
	v.Set(KeyNCUsername, cfg.NCUsername)
	v.Set(KeyNCPassword, cfg.NCPassword)
	v.Set(KeyGTasksEnabled, cfg.GTasksEnabled)
	v.Set(KeyListName, cfg.ListName)
	v.Set(KeyTasksFile, cfg.TasksFile)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return os.Chmod(path, 0600)
}

// Set assigns one setting from its textual form.
func Set(cfg *Config, key, value string) error {
	switch key {
	case KeyNCEnabled, KeyGTasksEnabled:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if key == KeyNCEnabled {
			cfg.NCEnabled = b
		} else {
			cfg.GTasksEnabled = b
		}
	case KeyNCURL:
		cfg.NCURL = value
	case KeyNCUsername:
		cfg.NCUsername = value
	case KeyNCPassword:
		cfg.NCPassword = value
	case KeyListName:
		cfg.ListName = value
	case KeyTasksFile:
		cfg.TasksFile = value
	default:
		return fmt.Errorf("%q: %w", key, ErrUnknownKey)
	}
	return nil
}
