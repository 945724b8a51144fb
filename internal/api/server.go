package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/pkg/browser"
)

// APIはローカルホストからのみ受け付ける
const listenHost = "127.0.0.1"

// Server はAPIサーバーを表す構造体
type Server struct {
	service    *GestureService
	configPath string
	port       int
	log        *slog.Logger
	server     *http.Server

	// 起動時にステータスページをブラウザで開く
	OpenBrowser bool
}

// NewServer は新しいAPIサーバーを作成する
func NewServer(service *GestureService, configPath string, port int, logger *slog.Logger) *Server {
	return &Server{
		service:    service,
		configPath: configPath,
		port:       port,
		log:        logger,
	}
}

// Handler はルーティング済みのハンドラを返す
func (s *Server) Handler() http.Handler {
	router := http.NewServeMux()
	s.setupRoutes(router)
	return router
}

// Addr は待ち受けアドレスを返す
func (s *Server) Addr() string {
	return net.JoinHostPort(listenHost, strconv.Itoa(s.port))
}

// URL はサーバーのベースURLを返す
func (s *Server) URL() string {
	return "http://" + s.Addr()
}

// Start はAPIサーバーを開始し、ctx がキャンセルされるまでブロックする
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr())
	if err != nil {
		return fmt.Errorf("%s の待ち受けに失敗しました: %w", s.Addr(), err)
	}

	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.log.Info("APIサーバーを開始します", "url", s.URL())
	if s.OpenBrowser {
		if err := browser.OpenURL(s.URL() + "/api/status"); err != nil {
			s.log.Warn("ブラウザを開けませんでした", "error", err)
		}
	}

	if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop はAPIサーバーを停止する
func (s *Server) Stop() {
	if s.server == nil {
		return
	}
	s.log.Info("APIサーバーを停止します")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		s.log.Warn("APIサーバーの停止に失敗しました", "error", err)
	}
}

// writeJSON はJSONレスポンスを書き込む
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("JSONエンコードエラー", "error", err)
		}
	}
}

// writeError はエラーレスポンスを書き込む
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
