// Package config 加载服务启动配置（YAML），并提供基础设施构建辅助。
package config

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/rushteam/matchkit/core"
	"github.com/rushteam/matchkit/store"
)

// Config 是进程级启动配置。推荐参数（权重、训练计划等）属于
// core.TuningConfig，在运行期通过 ConfigStore 管理，不在此文件中。
type Config struct {
	Store struct {
		// Backend: memory / redis
		Backend string `yaml:"backend"`
		Addr    string `yaml:"addr"`
		DB      int    `yaml:"db"`
	} `yaml:"store"`

	Model struct {
		ArtifactDir string `yaml:"artifact_dir"`
		Seed        int64  `yaml:"seed"`
	} `yaml:"model"`

	Index struct {
		MaxFeatures int `yaml:"max_features"`
	} `yaml:"index"`

	Recommend struct {
		CacheTTL      int           `yaml:"cache_ttl"` // 秒
		SourceTimeout time.Duration `yaml:"source_timeout"`
	} `yaml:"recommend"`

	Feast struct {
		Enabled    bool     `yaml:"enabled"`
		Host       string   `yaml:"host"`
		Port       int      `yaml:"port"`
		Project    string   `yaml:"project"`
		ResumeRefs []string `yaml:"resume_refs"`
		JobRefs    []string `yaml:"job_refs"`
	} `yaml:"feast"`

	// Fixture 打开后编排层追加固定候选源（仅开发环境）。
	Fixture struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"fixture"`

	Log struct {
		Development bool `yaml:"development"`
	} `yaml:"log"`
}

// Default 返回全部字段取默认值的配置。
func Default() *Config {
	cfg := &Config{}
	cfg.Store.Backend = "memory"
	cfg.Model.Seed = 42
	cfg.Recommend.CacheTTL = 3600
	cfg.Recommend.SourceTimeout = 5 * time.Second
	return cfg
}

// Load 从 YAML 文件加载配置；path 为空时返回默认配置。
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.Backend {
	case "", "memory":
		c.Store.Backend = "memory"
	case "redis":
		if c.Store.Addr == "" {
			return fmt.Errorf("config: redis backend requires store.addr")
		}
	default:
		return fmt.Errorf("config: unknown store backend %q", c.Store.Backend)
	}
	if c.Recommend.CacheTTL < 0 {
		return fmt.Errorf("config: recommend.cache_ttl must not be negative")
	}
	if c.Feast.Enabled && c.Feast.Host == "" {
		return fmt.Errorf("config: feast requires host when enabled")
	}
	return nil
}

// NewStore 按配置构建 KV 存储后端。
func (c *Config) NewStore() (core.Store, error) {
	switch c.Store.Backend {
	case "redis":
		return store.NewRedisStore(c.Store.Addr, c.Store.DB)
	default:
		return store.NewMemoryStore(), nil
	}
}

// NewLogger 按配置构建 zap 日志器。
func (c *Config) NewLogger() (*zap.Logger, error) {
	if c.Log.Development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
