package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/char5742/hold-rightclick/internal/api"
	"github.com/char5742/hold-rightclick/internal/config"
	"github.com/char5742/hold-rightclick/internal/logging"
)

var (
	configPath  string
	devicePath  string
	useAPI      bool
	port        int
	openBrowser bool
	logLevel    string
	logFormat   string
)

var rootCmd = &cobra.Command{
	Use:          "hold-rightclick",
	Short:        "2本指ホールドを右クリックのホールドに変換します",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, path := loadConfig()
		if devicePath != "" {
			cfg.Device.Path = devicePath
		}
		logger, err := newLogger(cfg)
		if err != nil {
			return err
		}
		slog.SetDefault(logger)

		if useAPI {
			logger.Info("APIサーバーモードで起動します", "port", port)
			return runAPIServer(cmd.Context(), cfg, path, logger)
		}
		logger.Info("CLIモードで起動します")
		return runCLI(cmd.Context(), cfg, logger)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "設定ファイルのパス (指定しない場合はデフォルトパスを使用)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "ログレベル (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "ログ形式 (json, text)")
	rootCmd.Flags().StringVar(&devicePath, "device", "", "タッチパッドのデバイスパス (指定しない場合は自動検出)")
	rootCmd.Flags().BoolVar(&useAPI, "api", false, "APIサーバーモードで起動します")
	rootCmd.Flags().IntVar(&port, "port", 8080, "APIサーバーのポート番号")
	rootCmd.Flags().BoolVar(&openBrowser, "open", false, "APIサーバー起動時にステータスをブラウザで開きます")

	rootCmd.AddCommand(devicesCmd, configCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "エラー:", err)
		os.Exit(1)
	}
}

// loadConfig は設定ファイルを読み込む。失敗した場合はデフォルト設定を使う
func loadConfig() (*config.Config, string) {
	path := configPath
	if path == "" {
		p, err := config.DefaultConfigPath()
		if err != nil {
			fmt.Fprintf(os.Stderr, "デフォルト設定ディレクトリの取得に失敗しました: %v\n", err)
			return config.DefaultConfig(), ""
		}
		path = p
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "設定ファイルの読み込みに失敗しました: %v\nデフォルト設定を使用します\n", err)
		return config.DefaultConfig(), path
	}
	return cfg, path
}

// newLogger はフラグで上書きした設定からロガーを作成する
func newLogger(cfg *config.Config) (*slog.Logger, error) {
	opts := logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format}
	if logLevel != "" {
		opts.Level = logLevel
	}
	if logFormat != "" {
		opts.Format = logFormat
	}
	return logging.New(opts)
}

// CLIモードでの実行。イベントストリームが終わるかシグナルを受けるまでブロックする
func runCLI(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	service := api.NewGestureService(cfg, logger)
	if err := service.Run(ctx); err != nil {
		return fmt.Errorf("ジェスチャー認識サービスの実行に失敗しました: %w", err)
	}
	logger.Info("シャットダウンします")
	return nil
}

// APIサーバーモードでの実行
func runAPIServer(ctx context.Context, cfg *config.Config, path string, logger *slog.Logger) error {
	service := api.NewGestureService(cfg, logger)
	if err := service.Start(); err != nil {
		logger.Warn("ジェスチャー認識サービスを開始できませんでした。API から再開始できます", "error", err)
	}

	server := api.NewServer(service, path, port, logger)
	server.OpenBrowser = openBrowser
	err := server.Start(ctx)

	if service.IsRunning() {
		_ = service.Stop()
	}
	if err != nil {
		return fmt.Errorf("APIサーバーの起動に失敗しました: %w", err)
	}
	logger.Info("シャットダウンします")
	return nil
}
