package features

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// DeviceMonitor は /dev/input を監視し、デバイスノードの再出現を待つ
type DeviceMonitor struct {
	dir string
	log *slog.Logger
}

// NewDeviceMonitor は指定ディレクトリを監視する DeviceMonitor を作成する
func NewDeviceMonitor(dir string, logger *slog.Logger) *DeviceMonitor {
	return &DeviceMonitor{dir: dir, log: logger}
}

// WaitForDevice は path が存在するまで待つ。ctx がキャンセルされたらそのエラーを返す
func (dm *DeviceMonitor) WaitForDevice(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("ファイル監視の作成に失敗しました: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dm.dir); err != nil {
		return fmt.Errorf("ディレクトリの監視に失敗しました: %s: %w", dm.dir, err)
	}

	// 監視開始前に作成されていた場合
	if exists, err := deviceExists(path); err != nil || exists {
		return err
	}

	dm.log.Info("デバイスの再接続を待っています", "path", path)
	target := filepath.Clean(path)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-watcher.Events:
			if !ok {
				return errors.New("イベントチャネルが閉じられました")
			}
			if !ev.Has(fsnotify.Create) || filepath.Clean(ev.Name) != target {
				continue
			}
			if exists, err := deviceExists(path); err != nil || exists {
				if err == nil {
					dm.log.Info("デバイスが再接続されました", "path", path)
				}
				return err
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return errors.New("エラーチャネルが閉じられました")
			}
			return fmt.Errorf("ファイルシステム監視エラー: %w", err)
		}
	}
}

func deviceExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}
