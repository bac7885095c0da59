package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv(EnvDB, "")
	t.Setenv(EnvLogMode, "")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Drill.MaxSize != 15 || cfg.Drill.NewTarget != 3 || cfg.Recommend.Count != 10 {
		t.Fatalf("defaults = %+v", cfg)
	}
	if cfg.DBPath != DefaultDBPath() || cfg.LogMode != "dev" {
		t.Fatalf("defaults = %+v", cfg)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	path := writeFile(t, `
db_path: /tmp/drill.db
log_mode: prod
study_list: n5
drill:
  max_size: 12
  new_target: 4
import:
  workers: 2
`)
	t.Setenv(EnvDB, "")
	t.Setenv(EnvLogMode, "")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DBPath != "/tmp/drill.db" || cfg.LogMode != "prod" || cfg.StudyList != "n5" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.Drill.MaxSize != 12 || cfg.Drill.NewTarget != 4 || cfg.Import.Workers != 2 || cfg.Import.BatchSize != 50 {
		t.Fatalf("cfg = %+v", cfg)
	}

	t.Setenv(EnvDB, "/var/lib/other.db")
	t.Setenv(EnvLogMode, "quiet")
	cfg, err = Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DBPath != "/var/lib/other.db" || cfg.LogMode != "quiet" {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv(EnvDB, "")
	t.Setenv(EnvLogMode, "")
	tests := []string{
		"log_mode: loud\n",
		"drill:\n  max_size: 5\n  new_target: 6\n",
		"recommend:\n  count: -1\n",
		"drill: [1, 2\n",
	}
	for _, body := range tests {
		if _, err := Load(writeFile(t, body)); err == nil {
			t.Errorf("Load(%q) succeeded, want error", body)
		}
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if got := expandHome("~/x.db"); got != filepath.Join(home, "x.db") {
		t.Fatalf("expandHome = %s", got)
	}
	if got := expandHome("/abs/x.db"); got != "/abs/x.db" {
		t.Fatalf("expandHome = %s", got)
	}
}
