package features

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	evdev "github.com/gvalkov/golang-evdev"

	"github.com/char5742/hold-rightclick/internal/libinput"
)

// ErrTouchpadNotFound はタッチパッドが見つからなかったことを表す
var ErrTouchpadNotFound = errors.New("タッチパッドが見つかりませんでした")

// Device は検出した入力デバイス
type Device struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Touchpad bool   `json:"touchpad"`
	Source   string `json:"source"` // "libinput" または "evdev"
}

// evdev の走査対象
var eventGlob = "/dev/input/event*"

// ScanDevices は evdev で /dev/input/event* を走査する
func ScanDevices() ([]Device, error) {
	inputs, err := evdev.ListInputDevices(eventGlob)
	if err != nil {
		return nil, fmt.Errorf("入力デバイスの走査に失敗しました: %w", err)
	}
	devices := make([]Device, 0, len(inputs))
	for _, in := range inputs {
		devices = append(devices, Device{
			Name:     in.Name,
			Path:     in.Fn,
			Touchpad: isTouchpadName(in.Name),
			Source:   "evdev",
		})
		if in.File != nil {
			_ = in.File.Close()
		}
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].Path < devices[j].Path })
	return devices, nil
}

// ListDevices は libinput list-devices の結果を返す。libinput が使えない場合は evdev で走査する
func ListDevices(ctx context.Context, command string, logger *slog.Logger) ([]Device, error) {
	found, err := libinput.ListDevices(ctx, command)
	if err != nil {
		logger.Warn("libinput でのデバイス一覧取得に失敗しました。evdev で走査します", "error", err)
		return ScanDevices()
	}
	devices := make([]Device, 0, len(found))
	for _, d := range found {
		devices = append(devices, Device{
			Name:     d.Name,
			Path:     d.Kernel,
			Touchpad: d.IsTouchpad(),
			Source:   "libinput",
		})
	}
	return devices, nil
}

// FindTouchpad は最初に見つかったタッチパッドを返す
func FindTouchpad(ctx context.Context, command string, logger *slog.Logger) (Device, error) {
	devices, err := ListDevices(ctx, command, logger)
	if err != nil {
		return Device{}, err
	}
	for _, d := range devices {
		if d.Touchpad && d.Path != "" {
			logger.Info("タッチパッドを検出しました", "name", d.Name, "path", d.Path, "source", d.Source)
			return d, nil
		}
	}
	return Device{}, ErrTouchpadNotFound
}

func isTouchpadName(name string) bool {
	return strings.Contains(strings.ToLower(name), "touchpad")
}
