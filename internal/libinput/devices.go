// Package libinput は libinput コマンドを起動してデバイス一覧とイベント行を取得する。
package libinput

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// DefaultCommand は libinput コマンドのデフォルト名
const DefaultCommand = "libinput"

// Device は libinput list-devices の1デバイス分の情報
type Device struct {
	Name         string `json:"name"`
	Kernel       string `json:"kernel"`
	Capabilities string `json:"capabilities,omitempty"`
}

// IsTouchpad は名前からタッチパッドかどうかを判定する
func (d Device) IsTouchpad() bool {
	return strings.Contains(strings.ToLower(d.Name), "touchpad")
}

// ListDevices は libinput list-devices を実行してデバイス一覧を返す
func ListDevices(ctx context.Context, command string) ([]Device, error) {
	if command == "" {
		command = DefaultCommand
	}
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, command, "list-devices")
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%s list-devices の実行に失敗しました: %w: %s", command, err, strings.TrimSpace(stderr.String()))
	}
	return ParseDeviceList(bytes.NewReader(out)), nil
}

// ParseDeviceList は list-devices の出力を解析する。
// 出力は空行区切りのブロックで、各ブロックは "Device:" 行から始まる。
func ParseDeviceList(r io.Reader) []Device {
	var (
		devices []Device
		cur     *Device
	)
	flush := func() {
		if cur != nil && cur.Name != "" {
			devices = append(devices, *cur)
		}
		cur = nil
	}

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			flush()
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.TrimSpace(key) {
		case "Device":
			flush()
			cur = &Device{Name: value}
		case "Kernel":
			if cur != nil {
				cur.Kernel = value
			}
		case "Capabilities":
			if cur != nil {
				cur.Capabilities = value
			}
		}
	}
	flush()
	return devices
}

// FindTouchpad は最初に見つかったタッチパッドを返す
func FindTouchpad(devices []Device) (Device, bool) {
	for _, d := range devices {
		if d.IsTouchpad() && d.Kernel != "" {
			return d, true
		}
	}
	return Device{}, false
}
