package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/shouni/dreamcatcher-kit/internal/builder"
	"github.com/shouni/dreamcatcher-kit/internal/config"
	"github.com/shouni/dreamcatcher-kit/pkg/composer"
	"github.com/shouni/dreamcatcher-kit/pkg/domain"
	"github.com/shouni/dreamcatcher-kit/pkg/generator"
	"github.com/shouni/dreamcatcher-kit/pkg/prompts"
	"github.com/shouni/dreamcatcher-kit/pkg/publisher"
)

// Result は1回の実行で得られた夢と保存結果なのだ。
type Result struct {
	Dream   domain.Dream
	Publish publisher.PublishResult
}

// ExecuteGenerate は、夢の文章からパネル画像を生成し、必要ならページに合成して保存するのだ。
func ExecuteGenerate(ctx context.Context, cfg *config.Config, stdin io.Reader) (Result, error) {
	app, err := builder.Build(cfg)
	if err != nil {
		return Result{}, err
	}
	defer app.Close()
	return Generate(ctx, app, stdin)
}

// ExecuteCompose は、保存済みのパネル画像からコマ割りページだけを作り直すのだ。
func ExecuteCompose(ctx context.Context, cfg *config.Config) (Result, error) {
	app, err := builder.Build(cfg)
	if err != nil {
		return Result{}, err
	}
	defer app.Close()
	return Compose(ctx, app)
}

// Generate は組み立て済みの AppContext で生成から公開までを実行します。
func Generate(ctx context.Context, app *builder.AppContext, stdin io.Reader) (Result, error) {
	gen, err := app.Config.Generation()
	if err != nil {
		return Result{}, err
	}

	// --- Phase 1: Journal Phase (夢の記録) ---
	dream, err := resolveDream(ctx, app, stdin)
	if err != nil {
		return Result{}, err
	}

	// --- Phase 2: Image Phase (パネル生成) ---
	session := app.Pipeline.NewSession()
	images, err := runImageStep(ctx, session, dream, gen.ImageStyle)
	if err != nil {
		return Result{Dream: dream}, err
	}
	plans := session.Plans()
	dream, err = app.Journal.AttachImages(ctx, dream.ID, images, plans, gen.ImageStyle)
	if err != nil {
		return Result{Dream: dream}, fmt.Errorf("画像の保存に失敗したのだ: %w", err)
	}

	// --- Phase 3: Compose Phase (ページ合成) ---
	if app.Options.Compose {
		dream, err = runComposeStep(ctx, app, dream, plans)
		if err != nil {
			return Result{Dream: dream}, err
		}
	}

	// --- Phase 4: Publish Phase (公開/保存) ---
	return runPublishStep(ctx, app, dream)
}

// Compose は --dream で指定された夢の保存済み画像からページを作り、公開し直します。
func Compose(ctx context.Context, app *builder.AppContext) (Result, error) {
	if app.Options.DreamID == "" {
		return Result{}, fmt.Errorf("合成する夢の ID が指定されていません: %w", domain.ErrInvalidArgument)
	}
	dream, err := app.Journal.Get(ctx, app.Options.DreamID)
	if err != nil {
		return Result{}, err
	}
	if len(dream.Images) == 0 {
		return Result{Dream: dream}, fmt.Errorf("この夢にはまだ画像がありません: %w", domain.ErrEmptyInput)
	}

	plans, err := storedPlans(ctx, app, dream)
	if err != nil {
		return Result{Dream: dream}, err
	}

	dream, err = runComposeStep(ctx, app, dream, plans)
	if err != nil {
		return Result{Dream: dream}, err
	}
	return runPublishStep(ctx, app, dream)
}

// storedPlans は生成時に保存したパネル構成を返すのだ。
// 構成を持たない古い夢だけ文章から作り直すよ。SequenceIndex で引くので、欠番があっても最大の番号まで届く件数で作るのだ。
func storedPlans(ctx context.Context, app *builder.AppContext, dream domain.Dream) ([]domain.PanelPlan, error) {
	if len(dream.Plans) > 0 {
		return dream.Plans, nil
	}
	gen, err := app.Config.Generation()
	if err != nil {
		return nil, err
	}
	count := gen.EffectivePanelCount()
	for _, img := range dream.Images {
		count = max(count, img.SequenceIndex+1)
	}
	plans, err := prompts.NewLocalPlanner().PlanPanels(ctx, dream.DisplayText(), dream.ImageStyle, count)
	if err != nil {
		slog.Warn("パネル構成を作れなかったので、オーバーレイなしで合成します", "error", err)
		return nil, nil
	}
	return plans, nil
}

// resolveDream は --dream があれば既存の夢を、なければ入力文章から新しい夢を作るのだ。
func resolveDream(ctx context.Context, app *builder.AppContext, stdin io.Reader) (domain.Dream, error) {
	if app.Options.DreamID != "" {
		return app.Journal.Get(ctx, app.Options.DreamID)
	}
	text, err := ReadInput(app.Options, stdin)
	if err != nil {
		return domain.Dream{}, err
	}
	return app.Journal.Create(ctx, text, app.Options.Tone)
}

// ReadInput は引数、ファイル、標準入力 ("-") の順で夢の文章を取り出すのだ。
func ReadInput(opts config.GenerateOptions, stdin io.Reader) (string, error) {
	var text string
	switch {
	case strings.TrimSpace(opts.Text) != "":
		text = opts.Text
	case opts.InputFile == "-":
		if stdin == nil {
			return "", fmt.Errorf("標準入力が利用できません: %w", domain.ErrInvalidArgument)
		}
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("標準入力の読み込みに失敗しました: %w", err)
		}
		text = string(b)
	case opts.InputFile != "":
		b, err := os.ReadFile(opts.InputFile)
		if err != nil {
			return "", fmt.Errorf("入力ファイル '%s' の読み込みに失敗しました: %w", opts.InputFile, err)
		}
		text = string(b)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("夢の文章が指定されていません: %w", domain.ErrInvalidArgument)
	}
	return text, nil
}

// runImageStep はセッションでパネルを生成するのだ。ctx が終わったら Cancel に繋ぐよ。
func runImageStep(ctx context.Context, session *generator.Session, dream domain.Dream, style domain.ImageStyle) ([]domain.GeneratedImage, error) {
	slog.Info("Phase 2: 画像生成を開始するのだ...", "dream_id", dream.ID, "style", style)

	stop := context.AfterFunc(ctx, session.Cancel)
	defer stop()

	session.Observe(progressLogger())

	start := time.Now()
	images, err := session.Generate(ctx, dream.DisplayText(), style)
	snap := session.Snapshot()
	if err != nil {
		if errors.Is(err, domain.ErrCancelled) {
			slog.Warn("画像生成を中断したのだ", "completed", snap.Results, "progress", fmt.Sprintf("%.0f%%", snap.Progress*100))
			return nil, err
		}
		return nil, fmt.Errorf("画像生成に失敗したのだ (%s): %w", snap.State, err)
	}
	slog.Info("画像生成が完了したのだ", "panels", len(images), "state", snap.State, "elapsed", time.Since(start).Round(time.Millisecond))
	return images, nil
}

// progressLogger は状態が変わったときと進捗が進んだときだけログを出すのだ。
// Cancel 経由で別の goroutine からも呼ばれるのでロックで守るよ。
func progressLogger() generator.Observer {
	var (
		mu           sync.Mutex
		lastState    generator.State
		lastProgress = -1.0
	)
	return func(s generator.Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		if s.State == lastState && s.Progress == lastProgress {
			return
		}
		lastState, lastProgress = s.State, s.Progress
		slog.Info("進捗", "state", s.State, "progress", fmt.Sprintf("%.0f%%", s.Progress*100), "status", s.Status)
	}
}

// runComposeStep は画像をコマ割りページに合成して夢に添付するのだ
func runComposeStep(ctx context.Context, app *builder.AppContext, dream domain.Dream, plans []domain.PanelPlan) (domain.Dream, error) {
	gen, err := app.Config.Generation()
	if err != nil {
		return dream, err
	}
	kind := gen.Layout
	slog.Info("Phase 3: ページ合成を開始するのだ...", "layout", kind, "panels", len(dream.Images))
	pages, err := app.Composer.ComposePages(dream.SortedImages(), plans, kind, app.Options.Title, composer.DefaultPageSize)
	if err != nil {
		return dream, fmt.Errorf("ページ合成に失敗したのだ: %w", err)
	}
	dream, err = app.Journal.AttachPages(ctx, dream.ID, pages)
	if err != nil {
		return dream, fmt.Errorf("ページの保存に失敗したのだ: %w", err)
	}
	return dream, nil
}

// runPublishStep は夢ごとのディレクトリに成果物を書き出すのだ
func runPublishStep(ctx context.Context, app *builder.AppContext, dream domain.Dream) (Result, error) {
	outDir := filepath.Join(app.Config.OutputDir(), dream.ID)
	slog.Info("Phase 4: 公開処理を開始するのだ...", "output_dir", outDir)

	res, err := app.Publisher.Publish(ctx, dream, publisher.Options{
		OutputDir: outDir,
		Upload:    app.Options.Upload,
	})
	if err != nil {
		return Result{Dream: dream}, fmt.Errorf("公開処理に失敗したのだ: %w", err)
	}
	return Result{Dream: dream, Publish: res}, nil
}
