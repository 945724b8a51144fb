package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/char5742/hold-rightclick/internal/config"
	"github.com/char5742/hold-rightclick/internal/consts"
	"github.com/char5742/hold-rightclick/internal/event"
	"github.com/char5742/hold-rightclick/internal/features"
	"github.com/char5742/hold-rightclick/internal/gesture"
	"github.com/char5742/hold-rightclick/internal/libinput"
)

// LineSource はイベント行を1行ずつ返す入力元。出力が尽きたら io.EOF を返す
type LineSource interface {
	Next() (string, error)
	Close() error
}

// イベントストリームの再起動間隔
const (
	// これより短い時間で終了したストリームは異常終了とみなし、再起動を遅らせる
	minStreamLifetime = 5 * time.Second
	restartDelayMin   = 500 * time.Millisecond
	restartDelayMax   = 30 * time.Second
)

// 外部とのやりとり。テストで差し替える
type deps struct {
	openMouse    func(cfg *config.Config) (features.Mouse, error)
	findTouchpad func(ctx context.Context, cfg *config.Config) (string, error)
	openStream   func(ctx context.Context, cfg *config.Config, path string) (LineSource, error)
	waitDevice   func(ctx context.Context, path string) error
	listDevices  func(ctx context.Context, cfg *config.Config) ([]features.Device, error)
	sleep        func(ctx context.Context, d time.Duration) error
	now          func() time.Time
}

// ServiceStatus はサービスの状態
type ServiceStatus struct {
	Running   bool           `json:"running"`
	Device    string         `json:"device,omitempty"`
	LastError string         `json:"last_error,omitempty"`
	Gesture   *gesture.State `json:"gesture,omitempty"`
}

// GestureService はタッチパッドのイベントを読み、右ボタンの押下・解放を仮想マウスに出力する
type GestureService struct {
	log  *slog.Logger
	deps deps

	statusMutex sync.RWMutex
	cfg         *config.Config
	running     bool
	cancel      context.CancelFunc
	done        chan struct{}
	machine     *gesture.Machine
	device      string
	lastErr     string
}

// session は1回の実行に必要なリソース
type session struct {
	cfg     *config.Config
	mouse   features.Mouse
	machine *gesture.Machine
	device  string
}

// NewGestureService は新しいサービスを作成する
func NewGestureService(cfg *config.Config, logger *slog.Logger) *GestureService {
	s := &GestureService{cfg: cfg, log: logger}
	s.deps = deps{
		openMouse: func(cfg *config.Config) (features.Mouse, error) {
			return features.CreateMouse(cfg.Device.Uinput, cfg.Device.Name)
		},
		findTouchpad: func(ctx context.Context, cfg *config.Config) (string, error) {
			d, err := features.FindTouchpad(ctx, cfg.Libinput.Command, s.log)
			if err != nil {
				return "", err
			}
			return d.Path, nil
		},
		openStream: func(ctx context.Context, cfg *config.Config, path string) (LineSource, error) {
			return libinput.DebugEvents(ctx, cfg.Libinput.Command, path)
		},
		waitDevice: func(ctx context.Context, path string) error {
			return features.NewDeviceMonitor(consts.DevInputPath, s.log).WaitForDevice(ctx, path)
		},
		listDevices: func(ctx context.Context, cfg *config.Config) ([]features.Device, error) {
			return features.ListDevices(ctx, cfg.Libinput.Command, s.log)
		},
		sleep: func(ctx context.Context, d time.Duration) error {
			t := time.NewTimer(d)
			defer t.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-t.C:
				return nil
			}
		},
		now: time.Now,
	}
	return s
}

// Run はイベントストリームが終わるか ctx がキャンセルされるまでサービスを実行する
func (s *GestureService) Run(ctx context.Context) error {
	s.statusMutex.Lock()
	if s.running {
		s.statusMutex.Unlock()
		return fmt.Errorf("サービスは既に実行中です")
	}
	s.running = true
	s.statusMutex.Unlock()

	defer s.setStopped()

	sess, err := s.prepare(ctx)
	if err != nil {
		s.setError(err)
		return err
	}
	err = s.loop(ctx, sess)
	if err != nil {
		s.setError(err)
	}
	return err
}

// Start はサービスをバックグラウンドで開始する
func (s *GestureService) Start() error {
	s.statusMutex.Lock()
	if s.running {
		s.statusMutex.Unlock()
		return fmt.Errorf("サービスは既に実行中です")
	}
	// 準備中でも Stop で中断できるよう、先に cancel と done を用意する
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.running = true
	s.cancel = cancel
	s.done = done
	s.statusMutex.Unlock()

	sess, err := s.prepare(ctx)
	if err != nil {
		cancel()
		s.setError(err)
		s.setStopped()
		close(done)
		return err
	}

	go func() {
		defer close(done)
		defer s.setStopped()
		defer cancel()
		if err := s.loop(ctx, sess); err != nil {
			s.log.Error("ジェスチャー認識サービスが異常終了しました", "error", err)
			s.setError(err)
		}
	}()
	return nil
}

// Stop はバックグラウンドで実行中のサービスを停止し、終了を待つ
func (s *GestureService) Stop() error {
	s.statusMutex.Lock()
	if !s.running || s.cancel == nil {
		s.statusMutex.Unlock()
		return fmt.Errorf("サービスは実行されていません")
	}
	s.cancel()
	done := s.done
	s.statusMutex.Unlock()

	<-done
	return nil
}

// IsRunning はサービスが実行中かどうかを返す
func (s *GestureService) IsRunning() bool {
	s.statusMutex.RLock()
	defer s.statusMutex.RUnlock()
	return s.running
}

// Status は現在の状態を返す
func (s *GestureService) Status() ServiceStatus {
	s.statusMutex.RLock()
	defer s.statusMutex.RUnlock()

	st := ServiceStatus{
		Running:   s.running,
		Device:    s.device,
		LastError: s.lastErr,
	}
	if s.machine != nil {
		snap := s.machine.Snapshot()
		st.Gesture = &snap
	}
	return st
}

// Config は現在の設定を返す
func (s *GestureService) Config() *config.Config {
	s.statusMutex.RLock()
	defer s.statusMutex.RUnlock()
	return s.cfg
}

// UpdateConfig は設定を更新する。実行中のサービスには次回の開始時に反映される
func (s *GestureService) UpdateConfig(cfg *config.Config) {
	s.statusMutex.Lock()
	defer s.statusMutex.Unlock()
	s.cfg = cfg
}

// Devices は検出できる入力デバイスの一覧を返す
func (s *GestureService) Devices(ctx context.Context) ([]features.Device, error) {
	return s.deps.listDevices(ctx, s.Config())
}

// prepare は仮想マウスを作成し、入力元のタッチパッドを決定する
func (s *GestureService) prepare(ctx context.Context) (*session, error) {
	s.statusMutex.RLock()
	cfg := s.cfg
	s.statusMutex.RUnlock()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	mouse, err := s.deps.openMouse(cfg)
	if err != nil {
		return nil, fmt.Errorf("仮想マウスの作成に失敗しました: %w", err)
	}

	device := cfg.Device.Path
	if device == "" {
		device, err = s.deps.findTouchpad(ctx, cfg)
		if err != nil {
			_ = mouse.Close()
			return nil, fmt.Errorf("タッチパッドの検出に失敗しました: %w", err)
		}
	}

	machine := gesture.New(mouse, gesture.Options{
		PollInterval: cfg.Debounce.PollInterval,
		ScrollGrace:  cfg.Debounce.GraceWindow,
		Logger:       s.log,
	})

	s.statusMutex.Lock()
	s.machine = machine
	s.device = device
	s.lastErr = ""
	s.statusMutex.Unlock()

	s.log.Info("右クリックホールドの監視を開始します", "device", device)
	return &session{cfg: cfg, mouse: mouse, machine: machine, device: device}, nil
}

// loop はイベントストリームを処理する。ストリームの終了時には押下中のボタンを解放する
func (s *GestureService) loop(ctx context.Context, sess *session) error {
	defer func() {
		if err := sess.machine.Close(); err != nil {
			s.log.Error("終了時の右ボタン解放に失敗しました", "error", err)
		}
		if err := sess.mouse.Close(); err != nil {
			s.log.Warn("仮想マウスのクローズに失敗しました", "error", err)
		}
		s.log.Info("ジェスチャー認識サービスを停止しました")
	}()

	delay := restartDelayMin
	for {
		if ctx.Err() != nil {
			return nil
		}
		started := s.deps.now()
		if err := s.consume(ctx, sess); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
		s.log.Warn("イベントストリームが終了しました", "device", sess.device)
		if !sess.cfg.Service.Reattach {
			return nil
		}

		if err := sess.machine.Close(); err != nil {
			s.log.Error("右ボタンの解放に失敗しました", "error", err)
		}

		// デバイスが残ったまま libinput が即座に終了する場合に再起動を繰り返さない
		if s.deps.now().Sub(started) < minStreamLifetime {
			s.log.Warn("イベントストリームがすぐに終了したため再起動を遅らせます", "delay", delay)
			if err := s.deps.sleep(ctx, delay); err != nil {
				return nil
			}
			delay = min(delay*2, restartDelayMax)
		} else {
			delay = restartDelayMin
		}

		if err := s.deps.waitDevice(ctx, sess.device); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return fmt.Errorf("デバイスの再接続待ちに失敗しました: %w", err)
		}
	}
}

// consume はストリームが尽きるまでイベント行を状態機械に渡す
func (s *GestureService) consume(ctx context.Context, sess *session) error {
	stream, err := s.deps.openStream(ctx, sess.cfg, sess.device)
	if err != nil {
		return fmt.Errorf("イベントストリームの開始に失敗しました: %w", err)
	}
	defer func() {
		if err := stream.Close(); err != nil {
			s.log.Debug("イベントストリームのプロセスが終了しました", "error", err)
		}
	}()

	for {
		line, err := stream.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		ev := event.Parse(line)
		if ev.Kind != event.Other {
			s.log.Debug("イベントを受信しました", "kind", ev.Kind.String(), "fingers", ev.Fingers, "cancelled", ev.Cancelled)
		}
		if err := sess.machine.Handle(ev); err != nil {
			s.log.Error("右ボタンの状態変更に失敗しました", "kind", ev.Kind.String(), "error", err)
		}
	}
}

func (s *GestureService) setStopped() {
	s.statusMutex.Lock()
	defer s.statusMutex.Unlock()
	s.running = false
	s.cancel = nil
}

func (s *GestureService) setError(err error) {
	s.statusMutex.Lock()
	defer s.statusMutex.Unlock()
	s.lastErr = err.Error()
}
