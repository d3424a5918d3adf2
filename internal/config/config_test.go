package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"challengekeeper/internal/config"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := config.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig with missing file: %v", err)
	}

	if cfg.Logger.Level != "info" {
		t.Errorf("Logger.Level = %q, want %q", cfg.Logger.Level, "info")
	}
	if !cfg.Logger.JSON {
		t.Error("Logger.JSON should default to true")
	}
	if cfg.Database.Path != "challenges.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "challenges.db")
	}

	task, ok := cfg.Scheduler.Tasks["sql_maintenance"]
	if !ok {
		t.Fatal("expected default sql_maintenance task")
	}
	if !task.Enabled || task.Schedule == "" {
		t.Errorf("unexpected default task config: %+v", task)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	path := writeConfigFile(t, `
logger:
  level: debug
  json: false
database:
  path: /tmp/keeper-test.db
scheduler:
  tasks:
    sql_maintenance:
      enabled: false
      schedule: "0 0 3 * * *"
`)

	cfg, err := config.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Logger.Level != "debug" {
		t.Errorf("Logger.Level = %q, want %q", cfg.Logger.Level, "debug")
	}
	if cfg.Logger.JSON {
		t.Error("Logger.JSON should be false")
	}
	if cfg.Database.Path != "/tmp/keeper-test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/keeper-test.db")
	}
	if cfg.Scheduler.Tasks["sql_maintenance"].Enabled {
		t.Error("sql_maintenance should be disabled")
	}
}

func TestLoadConfigValidation(t *testing.T) {
	testCases := []struct {
		name     string
		contents string
	}{
		{
			name: "invalid log level",
			contents: `
logger:
  level: loud
`,
		},
		{
			name: "empty database path",
			contents: `
database:
  path: ""
`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfigFile(t, tc.contents)
			if _, err := config.LoadConfig(path); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}
