package cmd

import (
	"fmt"
	"log/slog"

	"github.com/shouni/dreamcatcher-kit/internal/pipeline"

	"github.com/spf13/cobra"
)

// composeCmd は、記録済みの夢のパネル画像からコマ割りページだけを作り直すのだ。
// 画像生成をスキップするので、レイアウトやタイトルを試すのに便利なのだ。
var composeCmd = &cobra.Command{
	Use:   "compose",
	Short: "保存済みのパネルからコマ割りページを作り直すのだ。",
	RunE:  composeCommand,
}

func init() {
	f := composeCmd.Flags()
	f.StringVarP(&opts.DreamID, "dream", "d", "", "対象の夢の ID なのだ。")
	f.StringVarP(&opts.Layout, "layout", "l", "", "コマ割り (single, verticalStrip, grid2xN, dynamic) なのだ。")
	f.StringVarP(&opts.Title, "title", "t", "", "ページ上部のタイトルなのだ。")
	f.BoolVar(&opts.Upload, "upload", false, "生成物をバックエンドにアップロードするのだ。")
	_ = composeCmd.MarkFlagRequired("dream")
}

func composeCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := loadConfig()

	slog.Info("ページ合成モードを起動するのだ！", "dream_id", opts.DreamID, "layout", opts.Layout)
	res, err := pipeline.ExecuteCompose(ctx, cfg)
	if err != nil {
		return fmt.Errorf("ページ合成に失敗したのだ: %w", err)
	}
	for _, p := range res.Publish.PagePaths {
		fmt.Fprintln(cmd.OutOrStdout(), p)
	}
	return nil
}
