package features

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/char5742/hold-rightclick/internal/consts"
	"github.com/char5742/hold-rightclick/internal/types"
	"github.com/char5742/hold-rightclick/internal/utils"
)

// uinputDevice は /dev/uinput 経由で作成した仮想デバイス
type uinputDevice struct {
	file *os.File
}

// openUinput は /dev/uinput を書き込み用に開く
func openUinput(path string) (*os.File, error) {
	f, err := os.OpenFile(path, syscall.O_WRONLY|syscall.O_NONBLOCK, 0660)
	if err != nil {
		return nil, fmt.Errorf("%s を開くのに失敗しました: %w", path, err)
	}
	return f, nil
}

// setEvBit はイベントタイプを登録する
func setEvBit(f *os.File, evType uintptr) error {
	if err := utils.IOCtl(f, consts.SetEvBit, evType); err != nil {
		return fmt.Errorf("イベントタイプ %#x の登録に失敗しました: %w", evType, err)
	}
	return nil
}

// setKeyBits はキーコードを登録する
func setKeyBits(f *os.File, codes ...uintptr) error {
	for _, code := range codes {
		if err := utils.IOCtl(f, consts.SetKeyBit, code); err != nil {
			return fmt.Errorf("キーコード %#x の登録に失敗しました: %w", code, err)
		}
	}
	return nil
}

// createDevice はデバイス構造体を書き込み、デバイスを作成する
func createDevice(f *os.File, dev types.UserDev) error {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, dev); err != nil {
		return fmt.Errorf("ユーザーデバイスバッファの書き込みに失敗しました: %w", err)
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("デバイス構造体の書き込みに失敗しました: %w", err)
	}
	if err := utils.IOCtl(f, consts.DevCreate, 0); err != nil {
		return fmt.Errorf("デバイスの作成に失敗しました: %w", err)
	}
	return nil
}

func (d *uinputDevice) destroy() error {
	return utils.IOCtl(d.file, consts.DevDestroy, 0)
}

// writeEvents はイベント列を書き込む
func (d *uinputDevice) writeEvents(events []types.Event) error {
	now := syscall.NsecToTimeval(time.Now().UnixNano())
	buf := new(bytes.Buffer)
	for _, ev := range events {
		ev.Time = now
		if err := binary.Write(buf, binary.LittleEndian, ev); err != nil {
			return fmt.Errorf("イベントをバッファに書き込むのに失敗しました: %w", err)
		}
	}
	if _, err := d.file.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("イベントの書き込みに失敗しました: %w", err)
	}
	return nil
}

// toUinputName は名前を uinput 用の固定長配列に変換する
func toUinputName(name string) (fixed [consts.MaxNameSize]byte) {
	copy(fixed[:consts.MaxNameSize-1], name)
	return fixed
}
