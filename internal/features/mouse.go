package features

import (
	"fmt"
	"io"
	"sync"

	"github.com/char5742/hold-rightclick/internal/consts"
	"github.com/char5742/hold-rightclick/internal/types"
)

// Mouse は右ボタンだけを持つ仮想マウス
type Mouse interface {
	// 右ボタンの状態を出力する
	SetRightButton(pressed bool) error
	io.Closer
}

type virtualMouse struct {
	dev    *uinputDevice
	mu     sync.Mutex
	closed bool
}

// CreateMouse は uinput に仮想マウスを登録する
func CreateMouse(uinputPath string, name string) (Mouse, error) {
	f, err := openUinput(uinputPath)
	if err != nil {
		return nil, fmt.Errorf("仮想マウスを作成できません: %w", err)
	}

	if err := setEvBit(f, consts.Key); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := setKeyBits(f, consts.BtnRight); err != nil {
		_ = f.Close()
		return nil, err
	}

	userDev := types.UserDev{
		Name: toUinputName(name),
		ID: types.InputID{
			Bustype: consts.BusUsb,
			Vendor:  consts.VendorID,
			Product: consts.ProductID,
			Version: 1,
		},
	}
	if err := createDevice(f, userDev); err != nil {
		_ = f.Close()
		return nil, err
	}

	return &virtualMouse{dev: &uinputDevice{file: f}}, nil
}

func (m *virtualMouse) SetRightButton(pressed bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("仮想マウスは既に閉じられています")
	}
	value := int32(0)
	if pressed {
		value = 1
	}
	return m.dev.writeEvents([]types.Event{
		{Type: consts.Key, Code: consts.BtnRight, Value: value},
		{Type: consts.Syn, Code: consts.SynReport, Value: 0},
	})
}

func (m *virtualMouse) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	_ = m.dev.destroy()
	return m.dev.file.Close()
}
