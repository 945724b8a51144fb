// Package logging は slog ロガーを設定から組み立てる。
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"
)

// Options はロガーの設定
type Options struct {
	Level  string
	Format string // "", "json", "text"。空の場合は端末なら text、それ以外は json
	Output io.Writer
}

// New は構造化ロガーを作成する
func New(opts Options) (*slog.Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	switch resolveFormat(opts.Format, out) {
	case "json":
		return slog.New(slog.NewJSONHandler(out, handlerOpts)), nil
	case "text":
		return slog.New(slog.NewTextHandler(out, handlerOpts)), nil
	default:
		return nil, fmt.Errorf("不明なログ形式です: %q", opts.Format)
	}
}

// ParseLevel はログレベル文字列を変換する。空文字列は info
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("不明なログレベルです: %q", level)
	}
}

func resolveFormat(format string, out io.Writer) string {
	switch f := strings.ToLower(strings.TrimSpace(format)); f {
	case "":
		if isTerminal(out) {
			return "text"
		}
		return "json"
	case "console":
		return "text"
	default:
		return f
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
