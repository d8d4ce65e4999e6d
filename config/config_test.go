package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "matchkit.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.Backend != "memory" {
		t.Errorf("backend = %q, want memory", cfg.Store.Backend)
	}
	if cfg.Recommend.CacheTTL != 3600 {
		t.Errorf("cache_ttl = %d, want 3600", cfg.Recommend.CacheTTL)
	}
	if cfg.Recommend.SourceTimeout != 5*time.Second {
		t.Errorf("source_timeout = %v, want 5s", cfg.Recommend.SourceTimeout)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, `
store:
  backend: redis
  addr: localhost:6379
  db: 2
model:
  artifact_dir: /tmp/matchkit
index:
  max_features: 500
recommend:
  cache_ttl: 120
fixture:
  enabled: true
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.Backend != "redis" || cfg.Store.Addr != "localhost:6379" || cfg.Store.DB != 2 {
		t.Errorf("store = %+v, want redis localhost:6379 db 2", cfg.Store)
	}
	if cfg.Model.ArtifactDir != "/tmp/matchkit" {
		t.Errorf("artifact_dir = %q", cfg.Model.ArtifactDir)
	}
	if cfg.Index.MaxFeatures != 500 {
		t.Errorf("max_features = %d, want 500", cfg.Index.MaxFeatures)
	}
	if cfg.Recommend.CacheTTL != 120 {
		t.Errorf("cache_ttl = %d, want 120", cfg.Recommend.CacheTTL)
	}
	if !cfg.Fixture.Enabled {
		t.Error("fixture should be enabled")
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "unknown backend", content: "store:\n  backend: etcd\n"},
		{name: "redis without addr", content: "store:\n  backend: redis\n"},
		{name: "feast without host", content: "feast:\n  enabled: true\n"},
		{name: "negative ttl", content: "recommend:\n  cache_ttl: -1\n"},
		{name: "bad yaml", content: "store: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeFile(t, tt.content)); err == nil {
				t.Error("Load should fail")
			}
		})
	}
}
