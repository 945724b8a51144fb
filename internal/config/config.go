package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/char5742/hold-rightclick/internal/consts"
)

// アプリケーション名（設定ディレクトリ名に使う）
const appName = "hold-rightclick"

// Config はアプリケーション全体の設定を表す構造体
type Config struct {
	Device   DeviceConfig   `toml:"device" json:"device"`
	Libinput LibinputConfig `toml:"libinput" json:"libinput"`
	Debounce DebounceConfig `toml:"debounce" json:"debounce"`
	Service  ServiceConfig  `toml:"service" json:"service"`
	Log      LogConfig      `toml:"log" json:"log"`
}

// DeviceConfig は入力元のタッチパッドと仮想マウスの設定
type DeviceConfig struct {
	Path   string `toml:"path" json:"path"`     // 空の場合は自動検出
	Uinput string `toml:"uinput" json:"uinput"` // uinput デバイスファイル
	Name   string `toml:"name" json:"name"`     // 仮想マウスのデバイス名
}

// LibinputConfig は libinput コマンドの設定
type LibinputConfig struct {
	Command string `toml:"command" json:"command"`
}

// DebounceConfig はキャンセル付きホールド終了後の解放待ちの設定
type DebounceConfig struct {
	PollInterval time.Duration `toml:"poll_interval" json:"poll_interval"`
	GraceWindow  time.Duration `toml:"grace_window" json:"grace_window"`
}

// ServiceConfig はサービスの動作設定
type ServiceConfig struct {
	// イベントストリームが終了した時にタッチパッドの再接続を待つ
	Reattach bool `toml:"reattach" json:"reattach"`
}

// LogConfig はログ出力の設定
type LogConfig struct {
	Level  string `toml:"level" json:"level"`
	Format string `toml:"format" json:"format"` // "", "json", "text"
}

// DefaultConfig はデフォルト設定を返す
func DefaultConfig() *Config {
	return &Config{
		Device: DeviceConfig{
			Path:   "",
			Uinput: consts.UinputPath,
			Name:   "gesture_hold_rightclick",
		},
		Libinput: LibinputConfig{
			Command: "libinput",
		},
		Debounce: DebounceConfig{
			PollInterval: 100 * time.Millisecond,
			GraceWindow:  300 * time.Millisecond,
		},
		Service: ServiceConfig{
			Reattach: false,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "",
		},
	}
}

// Validate は設定値を検証する
func (c *Config) Validate() error {
	if c.Debounce.PollInterval <= 0 {
		return fmt.Errorf("debounce.poll_interval は正の値である必要があります: %v", c.Debounce.PollInterval)
	}
	if c.Debounce.GraceWindow <= 0 {
		return fmt.Errorf("debounce.grace_window は正の値である必要があります: %v", c.Debounce.GraceWindow)
	}
	if c.Device.Uinput == "" {
		return fmt.Errorf("device.uinput が空です")
	}
	if c.Libinput.Command == "" {
		return fmt.Errorf("libinput.command が空です")
	}
	switch strings.ToLower(strings.TrimSpace(c.Log.Level)) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("不明なログレベルです: %q", c.Log.Level)
	}
	switch strings.ToLower(strings.TrimSpace(c.Log.Format)) {
	case "", "json", "text", "console":
	default:
		return fmt.Errorf("不明なログ形式です: %q", c.Log.Format)
	}
	return nil
}

// GetDefaultConfigDir はデフォルトの設定ディレクトリを返す
func GetDefaultConfigDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appName), nil
}

// DefaultConfigPath はデフォルトの設定ファイルパスを返す
func DefaultConfigPath() (string, error) {
	dir, err := GetDefaultConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// LoadConfig は設定ファイルから設定を読み込む
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	// ファイルが存在しない場合はデフォルト設定を保存して返す
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := SaveConfig(configPath, config); err != nil {
			return config, err
		}
		return config, nil
	}

	if _, err := toml.DecodeFile(configPath, config); err != nil {
		return DefaultConfig(), fmt.Errorf("設定ファイルの解析に失敗しました: %w", err)
	}
	if err := config.Validate(); err != nil {
		return DefaultConfig(), err
	}

	return config, nil
}

// SaveConfig は設定をTOMLファイルに保存する
func SaveConfig(configPath string, config *Config) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return err
	}

	f, err := os.Create(configPath)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(config)
}
