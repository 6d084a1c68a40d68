// Package config loads embeddb's on-disk YAML configuration: page pool
// sizing and log verbosity, the two knobs needed before a database file
// can be opened.
package config

import (
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

// Config controls how Open sizes and logs a database file.
type Config struct {
	// DataFile is the path to the single-file database. Required.
	DataFile string `yaml:"data_file"`
	// PagerCapacity is the number of pages kept resident at once.
	PagerCapacity int `yaml:"pager_capacity"`
	// LogLevel controls the verbosity of the logger passed to the pager and
	// the table store (pager eviction, table creation and destruction).
	LogLevel logrus.Level `yaml:"log_level"`
}

// Default returns a Config suitable for small embedded workloads.
func Default() Config {
	return Config{
		PagerCapacity: 64,
		LogLevel:      logrus.InfoLevel,
	}
}

// LoadFile reads and parses a YAML config file, filling in any field the
// file omits from Default.
func LoadFile(path string) (Config, error) {
	cfg := Default()

	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Logger builds a logrus.Logger at the configured level.
func (c Config) Logger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(c.LogLevel)
	return log
}
