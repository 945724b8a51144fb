// Package event は libinput debug-events の1行をジェスチャーイベントに分類する。
package event

// Kind はイベントの種類を表す列挙型
type Kind int

const (
	Other        Kind = iota // 上記以外（別ジェスチャーによる割り込み）
	HoldBegin                // GESTURE_HOLD_BEGIN
	HoldEnd                  // GESTURE_HOLD_END
	ScrollFinger             // POINTER_SCROLL_FINGER
)

// libinput debug-events の出力に含まれるキーワード
const (
	tagHoldBegin    = "GESTURE_HOLD_BEGIN"
	tagHoldEnd      = "GESTURE_HOLD_END"
	tagScrollFinger = "POINTER_SCROLL_FINGER"
	tagCancelled    = "cancelled"
)

func (k Kind) String() string {
	switch k {
	case HoldBegin:
		return "hold_begin"
	case HoldEnd:
		return "hold_end"
	case ScrollFinger:
		return "scroll_finger"
	default:
		return "other"
	}
}

// Event は分類済みのイベント
type Event struct {
	Kind      Kind
	Fingers   int  // 指の本数。0は本数なし
	Cancelled bool // HoldEnd のみ
	Raw       string
}
