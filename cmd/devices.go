package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/char5742/hold-rightclick/internal/features"
)

var devicesJSON bool

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "入力デバイスの一覧を表示します (タッチパッドには * が付きます)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _ := loadConfig()
		logger, err := newLogger(cfg)
		if err != nil {
			return err
		}

		devices, err := features.ListDevices(cmd.Context(), cfg.Libinput.Command, logger)
		if err != nil {
			return err
		}

		if devicesJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(devices)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "\tPATH\tNAME\tSOURCE")
		for _, d := range devices {
			mark := ""
			if d.Touchpad {
				mark = "*"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", mark, d.Path, d.Name, d.Source)
		}
		return w.Flush()
	},
}

func init() {
	devicesCmd.Flags().BoolVar(&devicesJSON, "json", false, "JSON形式で出力します")
}
