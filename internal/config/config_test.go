package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cannedoxygen/mainframe/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load("/nonexistent/path/config.json")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 3001 {
		t.Errorf("default port: got %d want 3001", cfg.Server.Port)
	}
	if len(cfg.Agents) != 8 {
		t.Errorf("default roster: got %d agents want 8", len(cfg.Agents))
	}
	if cfg.Client.ReconnectMultiplier != 1.5 {
		t.Errorf("default multiplier: got %v want 1.5", cfg.Client.ReconnectMultiplier)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	os.WriteFile(path, []byte(`{"server":{"port":9000},"watcher":{"filePath":"/tmp/agents.log"}}`), 0644)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("got port %d want 9000", cfg.Server.Port)
	}
	if cfg.Watcher.FilePath != "/tmp/agents.log" {
		t.Errorf("got path %q want /tmp/agents.log", cfg.Watcher.FilePath)
	}
}

func TestLoadKeepsRosterWhenOmitted(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	os.WriteFile(path, []byte(`{"agents":[]}`), 0644)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Agents) != 8 {
		t.Errorf("empty roster should fall back to defaults, got %d", len(cfg.Agents))
	}
}
