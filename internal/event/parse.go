package event

import "strings"

// Parse は libinput debug-events の1行を分類する。
// 判定は HoldBegin, HoldEnd, ScrollFinger の順で、どれにも当たらない行は Other になる。
func Parse(line string) Event {
	ev := Event{Raw: line}
	switch {
	case strings.Contains(line, tagHoldBegin):
		ev.Kind = HoldBegin
		ev.Fingers = FingerCount(line)
	case strings.Contains(line, tagHoldEnd):
		ev.Kind = HoldEnd
		ev.Cancelled = strings.Contains(line, tagCancelled)
		ev.Fingers = FingerCount(line)
	case strings.Contains(line, tagScrollFinger):
		ev.Kind = ScrollFinger
	default:
		ev.Kind = Other
	}
	return ev
}

// FingerCount は行末の数字1文字を指の本数として返す。
// libinput はホールド終了を "... 2 cancelled" と出力するため、末尾の cancelled は読み飛ばす。
func FingerCount(line string) int {
	s := strings.TrimSpace(line)
	s = strings.TrimSpace(strings.TrimSuffix(s, tagCancelled))
	if s == "" {
		return 0
	}
	c := s[len(s)-1]
	if c < '0' || c > '9' {
		return 0
	}
	return int(c - '0')
}
