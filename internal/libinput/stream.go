package libinput

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
)

// Stream は libinput debug-events の出力を1行ずつ返す。
// 再開はできず、プロセスが終了すると Next は io.EOF を返す。
type Stream struct {
	cmd     *exec.Cmd
	scanner *bufio.Scanner
	cancel  context.CancelFunc

	closeOnce sync.Once
	waitErr   error
}

// DebugEvents は指定デバイスの libinput debug-events を起動する
func DebugEvents(ctx context.Context, command string, devicePath string) (*Stream, error) {
	if command == "" {
		command = DefaultCommand
	}
	ctx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(ctx, command, "debug-events", "--device", devicePath)
	cmd.Stderr = os.Stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("標準出力のパイプ作成に失敗しました: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("%s debug-events の起動に失敗しました: %w", command, err)
	}
	return NewStream(stdout, cmd, cancel), nil
}

// NewStream は任意の Reader から Stream を作成する。cmd と cancel は nil でもよい
func NewStream(r io.Reader, cmd *exec.Cmd, cancel context.CancelFunc) *Stream {
	return &Stream{
		cmd:     cmd,
		scanner: bufio.NewScanner(r),
		cancel:  cancel,
	}
}

// Next は次の行を返す。出力が尽きたら io.EOF を返す
func (s *Stream) Next() (string, error) {
	if s.scanner.Scan() {
		return s.scanner.Text(), nil
	}
	if err := s.scanner.Err(); err != nil {
		return "", fmt.Errorf("イベント行の読み込みに失敗しました: %w", err)
	}
	return "", io.EOF
}

// Close はプロセスを停止して終了を待つ
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
		if s.cmd != nil {
			s.waitErr = s.cmd.Wait()
		}
	})
	return s.waitErr
}
