package types

import (
	"syscall"

	"github.com/char5742/hold-rightclick/internal/consts"
)

// InputID は struct input_id に対応する
type InputID struct {
	Bustype uint16
	Vendor  uint16
	Product uint16
	Version uint16
}

// UserDev は /dev/uinput に書き込む struct uinput_user_dev
type UserDev struct {
	Name       [consts.MaxNameSize]byte
	ID         InputID
	EffectsMax uint32
	Absmax     [consts.AbsSize]int32
	Absmin     [consts.AbsSize]int32
	Absfuzz    [consts.AbsSize]int32
	Absflat    [consts.AbsSize]int32
}

// Event は struct input_event に対応する
type Event struct {
	Time  syscall.Timeval
	Type  uint16
	Code  uint16
	Value int32
}
