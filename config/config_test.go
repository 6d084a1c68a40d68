package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	r := require.New(t)
	cfg := Default()
	r.Equal(64, cfg.PagerCapacity)
	r.Equal(logrus.InfoLevel, cfg.LogLevel)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	r := require.New(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "embeddb.yaml")
	contents := "data_file: ./data.db\npager_capacity: 128\nlog_level: debug\n"
	r.NoError(os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := LoadFile(path)
	r.NoError(err)
	r.Equal("./data.db", cfg.DataFile)
	r.Equal(128, cfg.PagerCapacity)
	r.Equal(logrus.DebugLevel, cfg.LogLevel)
}

func TestLoadFileMissingReturnsError(t *testing.T) {
	_, err := LoadFile("/nonexistent/embeddb.yaml")
	require.Error(t, err)
}
