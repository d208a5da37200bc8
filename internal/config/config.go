package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	toml "github.com/pelletier/go-toml/v2"
)

const (
	DefaultConfigFileName = "config.toml"
	DefaultLogFileName    = "taskflow.log"
)

type Keymap struct {
	Quit         string `toml:"quit"`
	Add          string `toml:"add"`
	Up           string `toml:"up"`
	Down         string `toml:"down"`
	Toggle       string `toml:"toggle"`
	Delete       string `toml:"delete"`
	Edit         string `toml:"edit"`
	Search       string `toml:"search"`
	Filter       string `toml:"filter"`
	Bulk         string `toml:"bulk"`
	Select       string `toml:"select"`
	SelectAll    string `toml:"select_all"`
	BulkComplete string `toml:"bulk_complete"`
	Retry        string `toml:"retry"`
	Confirm      string `toml:"confirm"`
	Cancel       string `toml:"cancel"`
}

type Config struct {
	// LatencyMS delays every mock store call to imitate a remote API.
	LatencyMS     int    `toml:"latency_ms" env:"TASKFLOW_LATENCY_MS"`
	Seed          bool   `toml:"seed" env:"TASKFLOW_SEED"`
	LogPath       string `toml:"log_path" env:"TASKFLOW_LOG_PATH"`
	LogLevel      string `toml:"log_level" env:"TASKFLOW_LOG_LEVEL"`
	DefaultFilter string `toml:"default_filter" env:"TASKFLOW_DEFAULT_FILTER"`
	Keys          Keymap `toml:"keys"`
}

func (c Config) Latency() time.Duration {
	return time.Duration(c.LatencyMS) * time.Millisecond
}

// LoadOrCreate reads the config file, writing the defaults first if it
// does not exist, then applies environment overrides on top.
func LoadOrCreate(path string) (Config, error) {
	cfg := defaultConfig()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := write(path, cfg); err != nil {
			return cfg, err
		}
		return finish(cfg)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return finish(cfg)
}

func finish(cfg Config) (Config, error) {
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return cfg, err
	}
	if cfg.LogPath == "" {
		cfg.LogPath = DefaultLogFileName
	}
	if cfg.DefaultFilter == "" {
		cfg.DefaultFilter = "all"
	}
	return cfg, nil
}

func write(path string, cfg Config) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ResolveConfigPath places the config under the user config dir, falling
// back to the working directory when that cannot be determined.
func ResolveConfigPath() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return DefaultConfigFileName
	}
	return filepath.Join(base, "taskflow", DefaultConfigFileName)
}

func defaultConfig() Config {
	return Config{
		LatencyMS:     300,
		Seed:          true,
		LogPath:       DefaultLogFileName,
		LogLevel:      "info",
		DefaultFilter: "all",
		Keys: Keymap{
			Quit:         "q",
			Add:          "a",
			Up:           "k",
			Down:         "j",
			Toggle:       " ",
			Delete:       "d",
			Edit:         "e",
			Search:       "/",
			Filter:       "f",
			Bulk:         "b",
			Select:       " ",
			SelectAll:    "A",
			BulkComplete: "c",
			Retry:        "r",
			Confirm:      "enter",
			Cancel:       "esc",
		},
	}
}
