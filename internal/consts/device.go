package consts

// uinput の定数（uinput.hから）
const (
	MaxNameSize = 80         // デバイス名の最大サイズ
	AbsSize     = 64         // 絶対座標の配列サイズ
	DevCreate   = 0x5501     // UI_DEV_CREATE
	DevDestroy  = 0x5502     // UI_DEV_DESTROY
	SetEvBit    = 0x40045564 // UI_SET_EVBIT
	SetKeyBit   = 0x40045565 // UI_SET_KEYBIT
	BusUsb      = 0x03       // USBバスタイプ
)

// 仮想マウスの識別子
const (
	VendorID  = 0x4711
	ProductID = 0x0818
)

// イベントタイプとコード（input-event-codes.hより）
const (
	Syn       = 0x00  // EV_SYN
	Key       = 0x01  // EV_KEY
	SynReport = 0     // SYN_REPORT
	BtnRight  = 0x111 // BTN_RIGHT
)

// デフォルトのパス
const (
	UinputPath   = "/dev/uinput"
	DevInputPath = "/dev/input"
)
