package config

import (
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
	"heapdb/disk"
	"heapdb/logger"
)

type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Logger  logger.Config `yaml:"logger"`
}

type StorageConfig struct {
	// Home is the directory that holds one file per table.
	Home      string `yaml:"home"`
	BlockSize int    `yaml:"block_size"`
	InMemory  bool   `yaml:"in_memory"`
	Fsync     bool   `yaml:"fsync"`
}

func Default() Config {
	return Config{
		Storage: StorageConfig{
			Home:      "data",
			BlockSize: disk.DefaultBlockSize,
		},
		Logger: logger.Config{
			Level:      "info",
			Format:     "console",
			OutputFile: "stdout",
		},
	}
}

// Load reads a yaml file on top of Default, so keys missing from the file keep their default values.
func Load(path string) (Config, error) {
	cfg := Default()

	content, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if err := disk.ValidateBlockSize(c.Storage.BlockSize); err != nil {
		return err
	}
	if !c.Storage.InMemory && c.Storage.Home == "" {
		return errors.New("storage home must be set unless storage is in memory")
	}
	return nil
}

// NewEnv builds the storage environment described by c.
func (c Config) NewEnv(log *zap.Logger) (disk.Env, error) {
	if c.Storage.InMemory {
		env, err := disk.NewMemEnv(c.Storage.BlockSize, log)
		if err != nil {
			return nil, err
		}
		return env, nil
	}

	env, err := disk.NewFileEnv(c.Storage.Home, c.Storage.BlockSize, c.Storage.Fsync, log)
	if err != nil {
		return nil, err
	}
	return env, nil
}
