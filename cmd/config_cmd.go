package main

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/char5742/hold-rightclick/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "設定ファイルを操作します",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "デフォルト設定を書き出します",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if len(args) == 1 {
			path = args[0]
		}
		if path == "" {
			p, err := config.DefaultConfigPath()
			if err != nil {
				return fmt.Errorf("デフォルト設定ディレクトリの取得に失敗しました: %w", err)
			}
			path = p
		}
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("設定ファイルは既に存在します: %s", path)
		}
		if err := config.SaveConfig(path, config.DefaultConfig()); err != nil {
			return fmt.Errorf("設定の保存に失敗しました: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "設定ファイルを作成しました: %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "有効な設定を表示します",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, path := loadConfig()
		if path != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "# %s\n", path)
		}
		return toml.NewEncoder(cmd.OutOrStdout()).Encode(cfg)
	},
}

func init() {
	configCmd.AddCommand(configInitCmd, configShowCmd)
}
