// Package gesture は2本指ホールドを右ボタンの押下に変換する状態機械。
//
// 右ボタンの状態、スクロールの状態、保留中の解放ウォッチャーは
// すべて Machine の1つのミューテックスで保護される。
// ウォッチャーの生成・取り消し・発火もこのロックの下で行うため、
// 取り消されたウォッチャーが解放を発行することはない。
package gesture

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/char5742/hold-rightclick/internal/event"
)

// HoldFingers はホールドとして扱う指の本数
const HoldFingers = 2

// デフォルトのデバウンス設定
const (
	DefaultPollInterval = 100 * time.Millisecond
	DefaultScrollGrace  = 300 * time.Millisecond
)

// Button は右ボタンの状態を出力する先
type Button interface {
	SetRightButton(pressed bool) error
}

// Options は Machine の設定
type Options struct {
	PollInterval time.Duration // ウォッチャーのポーリング間隔
	ScrollGrace  time.Duration // 最後のスクロールから解放までの猶予
	Logger       *slog.Logger
}

// State は Machine の状態のスナップショット
type State struct {
	Pressed        bool      `json:"pressed"`
	Scrolling      bool      `json:"scrolling"`
	LastScroll     time.Time `json:"last_scroll,omitempty"`
	PendingRelease string    `json:"pending_release,omitempty"`
	Presses        int64     `json:"presses"`
	Releases       int64     `json:"releases"`
	EmitFailures   int64     `json:"emit_failures"`
}

// Machine はジェスチャーイベントを受け取り右ボタンの押下・解放を決める
type Machine struct {
	out  Button
	opts Options
	log  *slog.Logger
	now  func() time.Time

	mu         sync.Mutex
	pressed    bool
	scrolling  bool
	lastScroll time.Time
	pending    *releaseWatcher

	presses      int64
	releases     int64
	emitFailures int64

	// 生存中のウォッチャーgoroutine数
	watchers atomic.Int32
}

// New は新しい Machine を作成する
func New(out Button, opts Options) *Machine {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.ScrollGrace <= 0 {
		opts.ScrollGrace = DefaultScrollGrace
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Machine{
		out:  out,
		opts: opts,
		log:  logger,
		now:  time.Now,
	}
}

// Handle はイベントを1つ処理する。
// 返すエラーは仮想デバイスへの出力失敗のみで、呼び出し側は記録して処理を続けてよい。
func (m *Machine) Handle(ev event.Event) error {
	switch ev.Kind {
	case event.HoldBegin:
		if ev.Fingers != HoldFingers {
			return nil
		}
		return m.holdBegin()
	case event.HoldEnd:
		if ev.Fingers != HoldFingers {
			return nil
		}
		if ev.Cancelled {
			// 直後にスクロールが続くことが多いので、すぐには解放しない
			m.mu.Lock()
			if m.pressed {
				m.armLocked()
			} else {
				m.cancelLocked()
			}
			m.mu.Unlock()
			return nil
		}
		return m.release("ホールド終了")
	case event.ScrollFinger:
		m.mu.Lock()
		m.scrolling = true
		m.lastScroll = m.now()
		m.mu.Unlock()
		return nil
	default:
		return m.release("別のジェスチャーによる割り込み")
	}
}

func (m *Machine) holdBegin() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cancelLocked()
	m.scrolling = false
	if m.pressed {
		return nil
	}
	if err := m.emitLocked(true); err != nil {
		return err
	}
	m.log.Info("右ボタンを押下しました")
	return nil
}

// release は保留中のウォッチャーを取り消し、押下中なら即座に解放する
func (m *Machine) release(reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cancelLocked()
	if !m.pressed {
		return nil
	}
	if err := m.emitLocked(false); err != nil {
		return err
	}
	m.log.Info("右ボタンを解放しました", "reason", reason)
	return nil
}

// emitLocked は出力に成功した場合のみ状態を更新する。m.mu を保持して呼ぶこと
func (m *Machine) emitLocked(pressed bool) error {
	if err := m.out.SetRightButton(pressed); err != nil {
		m.emitFailures++
		return fmt.Errorf("右ボタンの状態(%v)の出力に失敗しました: %w", pressed, err)
	}
	m.pressed = pressed
	if pressed {
		m.presses++
	} else {
		m.releases++
	}
	return nil
}

// Snapshot は現在の状態を返す
func (m *Machine) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := State{
		Pressed:      m.pressed,
		Scrolling:    m.scrolling,
		LastScroll:   m.lastScroll,
		Presses:      m.presses,
		Releases:     m.releases,
		EmitFailures: m.emitFailures,
	}
	if m.pending != nil {
		s.PendingRelease = m.pending.id
	}
	return s
}

// Close は保留中のウォッチャーを取り消し、押下中のボタンを解放する
func (m *Machine) Close() error {
	return m.release("終了処理")
}
