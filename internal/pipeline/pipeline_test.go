package pipeline

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	imagedom "github.com/shouni/gemini-image-kit/pkg/domain"

	"github.com/shouni/dreamcatcher-kit/internal/builder"
	"github.com/shouni/dreamcatcher-kit/internal/config"
	pkgconfig "github.com/shouni/dreamcatcher-kit/pkg/config"
	"github.com/shouni/dreamcatcher-kit/pkg/domain"
	"github.com/shouni/dreamcatcher-kit/pkg/generator"
	"github.com/shouni/dreamcatcher-kit/pkg/journal"
	"github.com/shouni/dreamcatcher-kit/pkg/publisher"
	"github.com/shouni/dreamcatcher-kit/pkg/store"
)

const sampleDream = "I walked along the ocean shore. Rain began to fall softly. Stars filled the night sky."

// stubRenderer は常に小さな PNG を返すローカル描画器なのだ。
type stubRenderer struct {
	calls  atomic.Int32
	onCall func(n int32)
}

func (r *stubRenderer) RenderImage(_ context.Context, _ string, _ domain.ImageStyle) (*imagedom.ImageResponse, error) {
	n := r.calls.Add(1)
	if r.onCall != nil {
		r.onCall(n)
	}
	return &imagedom.ImageResponse{Data: tinyPNG(), MimeType: "image/png"}, nil
}
func (r *stubRenderer) IsModelLoaded() bool               { return true }
func (r *stubRenderer) LoadModel(_ context.Context) error { return nil }
func (r *stubRenderer) Cancel()                           {}

func tinyPNG() []byte {
	img := image.NewRGBA(image.Rect(0, 0, 8, 6))
	for y := 0; y < 6; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{R: 40, G: 90, B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}

// newTestApp は待ち時間なしのパイプラインとメモリ上の保存先で AppContext を組み立てるのだ。
func newTestApp(t *testing.T, opts config.GenerateOptions, local generator.LocalRenderer) (*builder.AppContext, *journal.Service) {
	t.Helper()
	opts.OutputDir = t.TempDir()
	cfg := &config.Config{Options: opts}

	gen := pkgconfig.DefaultConfig()
	gen.PacingInterval = 0
	pipeOpts := []generator.Option{generator.WithConfig(gen)}
	if local != nil {
		pipeOpts = append(pipeOpts, generator.WithLocal(local))
	}

	st := store.NewMemoryStore()
	svc := journal.NewService(st)
	app := builder.NewAppContext(cfg, st, svc, nil, generator.New(pipeOpts...),
		publisher.NewDreamPublisher(publisher.NewLocalWriter(), nil))
	return app, svc
}

func TestReadInput(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "dream.txt")
	if err := os.WriteFile(file, []byte("  A quiet forest.\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		opts    config.GenerateOptions
		stdin   string
		want    string
		wantErr bool
	}{
		{name: "引数", opts: config.GenerateOptions{Text: " Flying over a lake. "}, want: "Flying over a lake."},
		{name: "ファイル", opts: config.GenerateOptions{InputFile: file}, want: "A quiet forest."},
		{name: "標準入力", opts: config.GenerateOptions{InputFile: "-"}, stdin: "Snow on the mountain.", want: "Snow on the mountain."},
		{name: "引数がファイルより優先", opts: config.GenerateOptions{Text: "moon", InputFile: file}, want: "moon"},
		{name: "何もない", opts: config.GenerateOptions{}, wantErr: true},
		{name: "空白だけ", opts: config.GenerateOptions{InputFile: "-"}, stdin: "   ", wantErr: true},
		{name: "存在しないファイル", opts: config.GenerateOptions{InputFile: filepath.Join(dir, "missing.txt")}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadInput(tt.opts, strings.NewReader(tt.stdin))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("エラーを期待したのに %q が返ったのだ", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("予期しないエラーなのだ: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGenerate_LocalWithCompose(t *testing.T) {
	local := &stubRenderer{}
	app, svc := newTestApp(t, config.GenerateOptions{Text: sampleDream, Compose: true, Title: "Ocean"}, local)

	res, err := Generate(context.Background(), app, nil)
	if err != nil {
		t.Fatalf("予期しないエラーなのだ: %v", err)
	}
	if got := local.calls.Load(); got != 3 {
		t.Errorf("描画回数 = %d, 3文なので3回のはずなのだ", got)
	}
	if len(res.Dream.Images) != 3 || len(res.Dream.Pages) != 1 {
		t.Fatalf("images=%d pages=%d", len(res.Dream.Images), len(res.Dream.Pages))
	}
	for i, img := range res.Dream.SortedImages() {
		if img.SequenceIndex != i {
			t.Errorf("SequenceIndex[%d] = %d", i, img.SequenceIndex)
		}
	}

	stored, err := svc.Get(context.Background(), res.Dream.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(stored.Images) != 3 || len(stored.Pages) != 1 {
		t.Errorf("保存された夢: images=%d pages=%d", len(stored.Images), len(stored.Pages))
	}

	paths := append(append([]string{}, res.Publish.PanelPaths...), res.Publish.PagePaths...)
	paths = append(paths, res.Publish.MarkdownPath)
	if len(paths) != 5 {
		t.Fatalf("出力ファイル数 = %d", len(paths))
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("%s が書き出されていないのだ: %v", p, err)
		}
		if !strings.Contains(p, res.Dream.ID) {
			t.Errorf("%s は夢ごとのディレクトリにあるべきなのだ", p)
		}
	}
}

func TestGenerate_WithoutCompose(t *testing.T) {
	app, _ := newTestApp(t, config.GenerateOptions{Text: "A lighthouse in the fog."}, &stubRenderer{})

	res, err := Generate(context.Background(), app, nil)
	if err != nil {
		t.Fatalf("予期しないエラーなのだ: %v", err)
	}
	if len(res.Dream.Pages) != 0 || len(res.Publish.PagePaths) != 0 {
		t.Errorf("--compose なしでページが作られたのだ")
	}
	if len(res.Publish.PanelPaths) != 1 {
		t.Errorf("PanelPaths = %v", res.Publish.PanelPaths)
	}
}

func TestGenerate_ProviderUnavailable(t *testing.T) {
	app, svc := newTestApp(t, config.GenerateOptions{Text: sampleDream}, nil)

	_, err := Generate(context.Background(), app, nil)
	if !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Fatalf("err = %v, ErrProviderUnavailable を期待したのだ", err)
	}
	dreams, _ := svc.List(context.Background())
	if len(dreams) != 1 || len(dreams[0].Images) != 0 {
		t.Errorf("夢は記録され画像は無いはずなのだ: %+v", dreams)
	}
}

func TestGenerate_CancelledByContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	local := &stubRenderer{onCall: func(n int32) {
		if n == 1 {
			cancel()
		}
	}}
	app, svc := newTestApp(t, config.GenerateOptions{Text: sampleDream}, local)

	_, err := Generate(ctx, app, nil)
	if !errors.Is(err, domain.ErrCancelled) {
		t.Fatalf("err = %v, ErrCancelled を期待したのだ", err)
	}
	if got := local.calls.Load(); got != 1 {
		t.Errorf("中断後に描画が呼ばれたのだ: %d", got)
	}
	dreams, _ := svc.List(context.Background())
	if len(dreams) != 1 || len(dreams[0].Images) != 0 {
		t.Errorf("中断した実行の画像は保存されないはずなのだ")
	}
}

func TestCompose(t *testing.T) {
	ctx := context.Background()

	t.Run("保存済み画像から合成", func(t *testing.T) {
		app, svc := newTestApp(t, config.GenerateOptions{}, nil)
		d, err := svc.Create(ctx, sampleDream, "")
		if err != nil {
			t.Fatal(err)
		}
		images := []domain.GeneratedImage{
			domain.NewGeneratedImage(tinyPNG(), "image/png", "p2", domain.StyleAnime, 1, d.CreatedAt),
			domain.NewGeneratedImage(tinyPNG(), "image/png", "p1", domain.StyleAnime, 0, d.CreatedAt),
		}
		if _, err := svc.AttachImages(ctx, d.ID, images, nil, domain.StyleAnime); err != nil {
			t.Fatal(err)
		}
		app.Options.DreamID = d.ID

		res, err := Compose(ctx, app)
		if err != nil {
			t.Fatalf("予期しないエラーなのだ: %v", err)
		}
		if len(res.Dream.Pages) != 1 || len(res.Publish.PagePaths) != 1 {
			t.Errorf("pages=%d paths=%v", len(res.Dream.Pages), res.Publish.PagePaths)
		}
	})

	t.Run("画像が無い", func(t *testing.T) {
		app, svc := newTestApp(t, config.GenerateOptions{}, nil)
		d, err := svc.Create(ctx, sampleDream, "")
		if err != nil {
			t.Fatal(err)
		}
		app.Options.DreamID = d.ID
		if _, err := Compose(ctx, app); !errors.Is(err, domain.ErrEmptyInput) {
			t.Errorf("err = %v, ErrEmptyInput を期待したのだ", err)
		}
	})

	t.Run("ID が無い", func(t *testing.T) {
		app, _ := newTestApp(t, config.GenerateOptions{}, nil)
		if _, err := Compose(ctx, app); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("err = %v, ErrInvalidArgument を期待したのだ", err)
		}
	})
}

func TestStoredPlans(t *testing.T) {
	ctx := context.Background()
	const fourScenes = "A lantern drifts upward. Rain began to fall softly. A door opens onto a field. Waves fold over the moon."
	gapped := func(d domain.Dream) []domain.GeneratedImage {
		var images []domain.GeneratedImage
		for _, idx := range []int{0, 1, 3} {
			images = append(images, domain.NewGeneratedImage(tinyPNG(), "image/png", "p", domain.StyleAnime, idx, d.CreatedAt))
		}
		return images
	}

	t.Run("欠番があっても番号どおりの構成を作り直す", func(t *testing.T) {
		app, svc := newTestApp(t, config.GenerateOptions{PanelCount: 2}, nil)
		d, err := svc.Create(ctx, fourScenes, "")
		if err != nil {
			t.Fatal(err)
		}
		d, err = svc.AttachImages(ctx, d.ID, gapped(d), nil, domain.StyleAnime)
		if err != nil {
			t.Fatal(err)
		}

		plans, err := storedPlans(ctx, app, d)
		if err != nil {
			t.Fatalf("予期しないエラーなのだ: %v", err)
		}
		plan, ok := domain.PlanAt(plans, 3)
		if !ok {
			t.Fatalf("SequenceIndex 3 の構成が無いのだ: %d 件", len(plans))
		}
		if plan.Caption != "Waves fold over the moon" || plan.SoundEffect != "SPLASH!" {
			t.Errorf("4枚目の構成が想定外: %+v", plan)
		}
		if p1, _ := domain.PlanAt(plans, 1); p1.SoundEffect != "PLIP!" {
			t.Errorf("2枚目の擬音が想定外: %+v", p1)
		}
	})

	t.Run("保存済みの構成を優先", func(t *testing.T) {
		app, svc := newTestApp(t, config.GenerateOptions{}, nil)
		d, err := svc.Create(ctx, fourScenes, "")
		if err != nil {
			t.Fatal(err)
		}
		saved := []domain.PanelPlan{{PanelNumber: 1}, {PanelNumber: 2}, {PanelNumber: 3}, {PanelNumber: 4, Caption: "saved caption"}}
		d, err = svc.AttachImages(ctx, d.ID, gapped(d), saved, domain.StyleAnime)
		if err != nil {
			t.Fatal(err)
		}

		plans, err := storedPlans(ctx, app, d)
		if err != nil {
			t.Fatal(err)
		}
		if p, _ := domain.PlanAt(plans, 3); p.Caption != "saved caption" {
			t.Errorf("保存済みの構成が使われていないのだ: %+v", p)
		}

		app.Options.DreamID = d.ID
		res, err := Compose(ctx, app)
		if err != nil {
			t.Fatalf("予期しないエラーなのだ: %v", err)
		}
		if len(res.Dream.Pages) == 0 || len(res.Dream.Plans) != 4 {
			t.Errorf("pages=%d plans=%d", len(res.Dream.Pages), len(res.Dream.Plans))
		}
	})
}

func TestGenerate_PersistsPlans(t *testing.T) {
	app, svc := newTestApp(t, config.GenerateOptions{Text: sampleDream}, &stubRenderer{})

	res, err := Generate(context.Background(), app, nil)
	if err != nil {
		t.Fatalf("予期しないエラーなのだ: %v", err)
	}
	stored, err := svc.Get(context.Background(), res.Dream.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(stored.Plans) != 3 {
		t.Fatalf("保存されたパネル構成 = %d 件", len(stored.Plans))
	}
	if stored.Plans[2].Caption != "Stars filled the night sky" {
		t.Errorf("3枚目のキャプションが想定外: %q", stored.Plans[2].Caption)
	}
}
