package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "data/raw", cfg.Paths.RawDir)
	assert.Equal(t, "employee*.csv", cfg.Pipeline.EmployeeGlob)
	assert.Equal(t, "timesheet*.csv", cfg.Pipeline.TimesheetGlob)
	assert.Equal(t, "|", cfg.Pipeline.Delimiter)
	assert.Equal(t, 5.0, cfg.Pipeline.GraceMinutes)
	assert.Equal(t, 8.5, cfg.Pipeline.OvertimeHours)
	assert.Equal(t, 90, cfg.Pipeline.EarlyAttritionDays)
	assert.Equal(t, 30, cfg.Pipeline.RollingWindowRows)

	require.NoError(t, cfg.Validate())
}

func TestLoadFromYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 9090
pipeline:
  delimiter: ";"
  grace_minutes: 10
paths:
  raw_dir: /tmp/raw
  database_path: /tmp/hr.duckdb
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, ";", cfg.Pipeline.Delimiter)
	assert.Equal(t, 10.0, cfg.Pipeline.GraceMinutes)
	assert.Equal(t, "/tmp/raw", cfg.Paths.RawDir)
	// Values absent from the file keep their defaults.
	assert.Equal(t, "employee*.csv", cfg.Pipeline.EmployeeGlob)
	assert.Equal(t, 8.5, cfg.Pipeline.OvertimeHours)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9090\n"), 0644))

	t.Setenv("HRPULSE_SERVER_PORT", "7070")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Default()
	cfg.Server.Port = -1
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Logging.Level = "verbose"
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Pipeline.Delimiter = "||"
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Pipeline.NormalMinHours = 9
	cfg.Pipeline.NormalMaxHours = 8
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "normal_min_hours")
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.Paths.DatabasePath = filepath.Join(dir, "db", "hr.duckdb")
	cfg.Paths.ExportDir = filepath.Join(dir, "exports")
	cfg.Paths.LogsDir = filepath.Join(dir, "logs")

	require.NoError(t, cfg.EnsureDirectories())
	for _, d := range []string{filepath.Join(dir, "db"), cfg.Paths.ExportDir, cfg.Paths.LogsDir} {
		info, err := os.Stat(d)
		require.NoError(t, err, d)
		assert.True(t, info.IsDir())
	}
}

func TestDelimiterRune(t *testing.T) {
	cfg := PipelineConfig{Delimiter: ";"}
	assert.Equal(t, ';', cfg.DelimiterRune())

	empty := PipelineConfig{}
	assert.Equal(t, '|', empty.DelimiterRune())
}
