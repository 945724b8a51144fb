package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadConfigCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Debounce.GraceWindow != 300*time.Millisecond {
		t.Errorf("GraceWindow = %v, want 300ms", cfg.Debounce.GraceWindow)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config was not written: %v", err)
	}

	// 書き出した設定を読み直しても同じ値になる
	again, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig (second): %v", err)
	}
	if *again != *cfg {
		t.Errorf("reloaded config = %+v, want %+v", again, cfg)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[device]
path = "/dev/input/event7"

[libinput]
command = "/usr/local/bin/libinput"

[debounce]
poll_interval = "50ms"
grace_window = "1s"

[service]
reattach = true

[log]
level = "debug"
format = "json"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Device.Path != "/dev/input/event7" {
		t.Errorf("Device.Path = %q", cfg.Device.Path)
	}
	if cfg.Device.Uinput != "/dev/uinput" {
		t.Errorf("Device.Uinput = %q, want default", cfg.Device.Uinput)
	}
	if cfg.Libinput.Command != "/usr/local/bin/libinput" {
		t.Errorf("Libinput.Command = %q", cfg.Libinput.Command)
	}
	if cfg.Debounce.PollInterval != 50*time.Millisecond {
		t.Errorf("PollInterval = %v, want 50ms", cfg.Debounce.PollInterval)
	}
	if cfg.Debounce.GraceWindow != time.Second {
		t.Errorf("GraceWindow = %v, want 1s", cfg.Debounce.GraceWindow)
	}
	if !cfg.Service.Reattach {
		t.Error("Reattach = false, want true")
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("Log = %+v", cfg.Log)
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	for _, tc := range []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "Syntax",
			content: "[debounce\n",
			wantErr: "解析",
		},
		{
			name:    "NegativeGrace",
			content: "[debounce]\ngrace_window = \"-1s\"\n",
			wantErr: "grace_window",
		},
		{
			name:    "UnknownLevel",
			content: "[log]\nlevel = \"verbose\"\n",
			wantErr: "ログレベル",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tc.content), 0o600); err != nil {
				t.Fatal(err)
			}

			cfg, err := LoadConfig(path)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error = %v, want it to mention %q", err, tc.wantErr)
			}
			// エラー時もデフォルト設定が返る
			if cfg == nil || cfg.Debounce.GraceWindow != 300*time.Millisecond {
				t.Errorf("cfg = %+v, want defaults", cfg)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	for _, tc := range []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "Default", mutate: func(*Config) {}},
		{name: "ZeroPoll", mutate: func(c *Config) { c.Debounce.PollInterval = 0 }, wantErr: true},
		{name: "EmptyUinput", mutate: func(c *Config) { c.Device.Uinput = "" }, wantErr: true},
		{name: "EmptyCommand", mutate: func(c *Config) { c.Libinput.Command = "" }, wantErr: true},
		{name: "TextFormat", mutate: func(c *Config) { c.Log.Format = "text" }},
		{name: "BadFormat", mutate: func(c *Config) { c.Log.Format = "xml" }, wantErr: true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestDefaultConfigPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")

	path, err := DefaultConfigPath()
	if err != nil {
		t.Fatalf("DefaultConfigPath: %v", err)
	}
	if want := "/tmp/xdg/hold-rightclick/config.toml"; path != want {
		t.Errorf("path = %q, want %q", path, want)
	}
}
