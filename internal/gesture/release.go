package gesture

import (
	"strconv"
	"sync/atomic"
	"time"

	nanoid "github.com/matoous/go-nanoid/v2"
)

const (
	watcherIDPrefix   = "rw-"
	watcherIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	watcherIDLength   = 8
)

var watcherSeq atomic.Uint64

// releaseWatcher はキャンセル付きホールド終了後の遅延解放を表す。
// Machine.pending に格納されている間だけ有効で、同一性はポインタで判定する。
type releaseWatcher struct {
	id      string
	armedAt time.Time
	stop    chan struct{}
}

func newWatcherID() string {
	id, err := nanoid.Generate(watcherIDAlphabet, watcherIDLength)
	if err != nil {
		return watcherIDPrefix + strconv.FormatUint(watcherSeq.Add(1), 10)
	}
	return watcherIDPrefix + id
}

// armLocked は既存のウォッチャーを取り消してから新しいウォッチャーを開始する。m.mu を保持して呼ぶこと
func (m *Machine) armLocked() {
	m.cancelLocked()

	w := &releaseWatcher{
		id:      newWatcherID(),
		armedAt: m.now(),
		stop:    make(chan struct{}),
	}
	m.pending = w
	m.watchers.Add(1)
	go m.watch(w)
	m.log.Debug("解放ウォッチャーを開始しました", "id", w.id)
}

// cancelLocked は保留中のウォッチャーを取り消す。m.mu を保持して呼ぶこと
func (m *Machine) cancelLocked() {
	w := m.pending
	if w == nil {
		return
	}
	m.pending = nil
	close(w.stop)
	m.log.Debug("解放ウォッチャーを取り消しました", "id", w.id)
}

func (m *Machine) watch(w *releaseWatcher) {
	defer m.watchers.Add(-1)

	ticker := time.NewTicker(m.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
			if m.poll(w) {
				return
			}
		}
	}
}

// poll は解放条件を1回確認する。ウォッチャーが終了すべきなら true を返す
func (m *Machine) poll(w *releaseWatcher) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	// 取り消し済み、または置き換え済み
	if m.pending != w {
		return true
	}

	now := m.now()
	grace := m.opts.ScrollGrace
	if m.scrolling && now.Sub(m.lastScroll) > grace {
		m.scrolling = false
	}

	// 猶予はホールド終了時点か最後のスクロールのうち遅い方から数える
	anchor := w.armedAt
	if m.lastScroll.After(anchor) {
		anchor = m.lastScroll
	}
	if m.scrolling || now.Sub(anchor) <= grace {
		return false
	}

	m.pending = nil
	if !m.pressed {
		return true
	}
	if err := m.emitLocked(false); err != nil {
		m.log.Error("スクロール待機後の右ボタン解放に失敗しました", "id", w.id, "error", err)
		return true
	}
	m.log.Info("スクロール待機後に右ボタンを解放しました", "id", w.id)
	return true
}
