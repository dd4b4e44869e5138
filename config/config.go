// Package config loads the logbook's YAML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"ScubaLog/models"
)

// EnvConfigPath overrides the default config file location.
const EnvConfigPath = "SCUBA_CONFIG"

const (
	BackendFile   = "file"
	BackendBadger = "badger"
	BackendMySQL  = "mysql"
	BackendMemory = "memory"
)

const (
	defaultAddr     = ":8080"
	defaultMySQLDSN = "root:test123@tcp(localhost:3306)/scuba_logs?parseTime=true"
)

type Config struct {
	Diver   models.Diver `yaml:"diver"`
	Server  Server       `yaml:"server"`
	Storage Storage      `yaml:"storage"`
	Log     Log          `yaml:"log"`
}

type Server struct {
	Addr string `yaml:"addr"`
}

// Storage selects the key-value backend the dive collection is mirrored to.
type Storage struct {
	Backend   string `yaml:"backend"`
	Path      string `yaml:"path"`
	BadgerDir string `yaml:"badger_dir"`
	MySQLDSN  string `yaml:"mysql_dsn"`
}

type Log struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Dir returns ~/.scuba.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not find the user's home directory: %w", err)
	}
	return filepath.Join(home, ".scuba"), nil
}

// Path returns the config file location, honouring SCUBA_CONFIG.
func Path() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "scuba.yaml"), nil
}

// Default returns the configuration written on first run.
func Default() Config {
	cfg := Config{
		Server: Server{Addr: defaultAddr},
		Storage: Storage{
			Backend:  BackendFile,
			MySQLDSN: defaultMySQLDSN,
		},
		Log: Log{Level: "info"},
	}
	if dir, err := Dir(); err == nil {
		cfg.Storage.Path = filepath.Join(dir, "dives.json")
		cfg.Storage.BadgerDir = filepath.Join(dir, "badger")
	}
	return cfg
}

// Load reads the config at path, creating it with defaults if it does not exist.
func Load(path string) (Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := createDefault(path); err != nil {
			return Default(), err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Default(), fmt.Errorf("failed to read the config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Default(), fmt.Errorf("failed to parse the config file %s: %w", path, err)
	}
	return Normalize(cfg), nil
}

// Normalize fills unset fields from Default.
func Normalize(cfg Config) Config {
	def := Default()

	cfg.Diver.Name = strings.TrimSpace(cfg.Diver.Name)
	cfg.Server.Addr = strings.TrimSpace(cfg.Server.Addr)
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = def.Server.Addr
	}

	cfg.Storage.Backend = strings.ToLower(strings.TrimSpace(cfg.Storage.Backend))
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = def.Storage.Backend
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = def.Storage.Path
	}
	if cfg.Storage.BadgerDir == "" {
		cfg.Storage.BadgerDir = def.Storage.BadgerDir
	}
	if cfg.Storage.MySQLDSN == "" {
		cfg.Storage.MySQLDSN = def.Storage.MySQLDSN
	}

	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	if cfg.Log.Level == "" {
		cfg.Log.Level = def.Log.Level
	}
	return cfg
}

func createDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create the config directory: %w", err)
	}
	data, err := yaml.Marshal(Default())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
