// Package config 配置模块测试
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig_SetDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.setDefaults()

	if cfg.Database.Driver != "mysql" {
		t.Errorf("默认数据库驱动应该是 mysql，实际是 %s", cfg.Database.Driver)
	}

	if cfg.Database.Port != 3306 {
		t.Errorf("默认数据库端口应该是 3306，实际是 %d", cfg.Database.Port)
	}

	if cfg.API.Port != 8838 {
		t.Errorf("默认 API 端口应该是 8838，实际是 %d", cfg.API.Port)
	}

	if cfg.Draw.MaxAttempts != 3 {
		t.Errorf("默认最大尝试次数应该是 3，实际是 %d", cfg.Draw.MaxAttempts)
	}

	if cfg.Draw.LockWait() != 5*time.Second {
		t.Errorf("默认锁等待应该是 5s，实际是 %s", cfg.Draw.LockWait())
	}

	if cfg.Cache.BreakdownTTL() != 5*time.Minute {
		t.Errorf("默认缓存时长应该是 5m，实际是 %s", cfg.Cache.BreakdownTTL())
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"默认配置有效", func(c *Config) {}, false},
		{"sqlite 驱动有效", func(c *Config) { c.Database.Driver = "sqlite" }, false},
		{"未知驱动无效", func(c *Config) { c.Database.Driver = "oracle" }, true},
		{"尝试次数为负无效", func(c *Config) { c.Draw.MaxAttempts = -1 }, true},
		{"锁等待为负无效", func(c *Config) { c.Draw.LockWaitSeconds = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			if err := c.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	content := `{"database": {"driver": "sqlite", "path": "a.db"}, "draw": {"max_attempts": 5}}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("写入配置失败: %v", err)
	}

	t.Setenv("SHUFFLE_DB_PATH", "b.db")
	t.Setenv("SHUFFLE_API_PORT", "9000")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() 失败: %v", err)
	}

	if cfg.Database.Driver != "sqlite" {
		t.Errorf("驱动应该来自文件，实际是 %s", cfg.Database.Driver)
	}
	if cfg.Database.Path != "b.db" {
		t.Errorf("环境变量应该覆盖文件中的 path，实际是 %s", cfg.Database.Path)
	}
	if cfg.API.Port != 9000 {
		t.Errorf("API 端口应该是 9000，实际是 %d", cfg.API.Port)
	}
	if cfg.Draw.MaxAttempts != 5 {
		t.Errorf("最大尝试次数应该是 5，实际是 %d", cfg.Draw.MaxAttempts)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("Load() 失败: %v", err)
	}
	if cfg.Database.Driver != "mysql" {
		t.Errorf("默认驱动应该是 mysql，实际是 %s", cfg.Database.Driver)
	}
}
