package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/shouni/dreamcatcher-kit/internal/pipeline"
	"github.com/shouni/dreamcatcher-kit/pkg/domain"

	"github.com/spf13/cobra"
)

// generateCmd は、夢の文章からパネル画像を生成し、必要ならページに合成するのだ。
var generateCmd = &cobra.Command{
	Use:   "generate [夢の文章]",
	Short: "夢の文章から風景パネルを生成するのだ。",
	Long: `夢の文章をシーンに分け、シーンごとに人物のいない穏やかな風景画を生成するのだ。
--compose を付けるとコマ割りページも作るよ。生成中に Ctrl-C を押すと中断できるのだ。`,
	RunE: generateCommand,
}

func init() {
	f := generateCmd.Flags()
	f.StringVarP(&opts.InputFile, "input-file", "f", "", "夢の文章を読むファイル（'-'で標準入力なのだ）。")
	f.StringVarP(&opts.DreamID, "dream", "d", "", "記録済みの夢を描き直すときの ID なのだ。")
	f.StringVar(&opts.Tone, "tone", "", "新しく記録する夢の雰囲気タグなのだ。")
	f.StringVarP(&opts.Style, "style", "s", "", "画風 (comicBook, watercolor, anime, surreal, sketch) なのだ。")
	f.StringVarP(&opts.Layout, "layout", "l", "", "コマ割り (single, verticalStrip, grid2xN, dynamic) なのだ。")
	f.IntVarP(&opts.PanelCount, "panels", "p", 0, "生成するパネル数（1〜5）なのだ。")
	f.StringVarP(&opts.Title, "title", "t", "", "ページ上部のタイトルなのだ。")
	f.BoolVarP(&opts.Compose, "compose", "c", false, "パネルをコマ割りページに合成するのだ。")
	f.BoolVar(&opts.Upload, "upload", false, "生成物をバックエンドにアップロードするのだ。")
	f.DurationVar(&opts.Pacing, "pacing", 0, "パネル生成の間隔なのだ（0 ならデフォルト）。")
}

func generateCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	// 1. 入力ソースの決定
	opts.Text = strings.Join(args, " ")
	if opts.Text == "" && opts.InputFile == "" && opts.DreamID == "" {
		if !isStdin() {
			return fmt.Errorf("夢の文章（引数、--input-file、--dream のいずれか）を指定してほしいのだ")
		}
		opts.InputFile = "-"
	}

	// 2. 環境変数等から基本設定をロードするのだ
	cfg := loadConfig()
	slog.Info("夢の描画パイプラインを起動するのだ！",
		"style", opts.Style,
		"layout", opts.Layout,
		"image_model", cfg.GeminiImageModel,
		"output", cfg.OutputDir())

	// 3. パイプラインを実行するのだ
	res, err := pipeline.ExecuteGenerate(ctx, cfg, os.Stdin)
	if err != nil {
		if errors.Is(err, domain.ErrCancelled) {
			slog.Warn("生成を中断したのだ。途中までの画像は保存していないよ。")
			return err
		}
		return fmt.Errorf("パイプライン実行中にエラーが発生したのだ: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", res.Dream.ID, res.Publish.MarkdownPath)
	slog.Info("すべての生成工程が完了したのだ！")
	return nil
}

func isStdin() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}
