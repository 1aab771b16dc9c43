package gemini

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	imagedom "github.com/shouni/gemini-image-kit/pkg/domain"

	"github.com/shouni/dreamcatcher-kit/pkg/domain"
	"github.com/shouni/dreamcatcher-kit/pkg/prompts"
)

// fakePanels は受け取ったリクエストを記録し、用意したレスポンスを返します。
type fakePanels struct {
	mu    sync.Mutex
	reqs  []imagedom.ImageGenerationRequest
	resp  *imagedom.ImageResponse
	err   error
	block chan struct{} // 非 nil なら ctx が終わるまで待つ
}

func (f *fakePanels) GenerateMangaPanel(ctx context.Context, req imagedom.ImageGenerationRequest) (*imagedom.ImageResponse, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	block := f.block
	f.mu.Unlock()

	if block != nil {
		close(block)
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.resp, f.err
}

func factoryFor(gen panelGenerator, calls *atomic.Int32) panelFactory {
	return func(context.Context) (panelGenerator, error) {
		if calls != nil {
			calls.Add(1)
		}
		return gen, nil
	}
}

func TestImageRenderer_LoadModelOnce(t *testing.T) {
	var calls atomic.Int32
	r := NewImageRenderer("key", "img-model", withFactory(factoryFor(&fakePanels{}, &calls)))
	if r.IsModelLoaded() {
		t.Fatal("生成直後はロードされていないはずなのだ")
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := r.LoadModel(context.Background()); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	if !r.IsModelLoaded() {
		t.Error("ロード後も未ロードのままなのだ")
	}
	if calls.Load() != 1 {
		t.Errorf("クライアント生成が %d 回呼ばれた", calls.Load())
	}
}

func TestImageRenderer_LoadModelWithoutKey(t *testing.T) {
	r := NewImageRenderer("", "img-model")
	if err := r.LoadModel(context.Background()); !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("ErrNoAPIKey を期待したのに %v", err)
	}
	if r.IsModelLoaded() {
		t.Error("失敗したのにロード済みになっているのだ")
	}
}

func TestImageRenderer_RenderImage(t *testing.T) {
	gen := &fakePanels{}
	r := NewImageRenderer("key", "img-model", withFactory(factoryFor(gen, nil)))
	if err := r.LoadModel(context.Background()); err != nil {
		t.Fatal(err)
	}
	seed := prompts.SeedFromPrompt("a quiet lake")
	gen.resp = &imagedom.ImageResponse{Data: []byte("png"), UsedSeed: seed}

	resp, err := r.RenderImage(context.Background(), "a quiet lake", domain.StyleWatercolor)
	if err != nil {
		t.Fatal(err)
	}
	if string(resp.Data) != "png" || resp.MimeType != "image/png" {
		t.Errorf("レスポンスが想定外: %+v", resp)
	}

	req := gen.reqs[0]
	if !strings.Contains(req.Prompt, prompts.StyleSuffix(domain.StyleWatercolor)) {
		t.Errorf("画風が適用されていないのだ: %q", req.Prompt)
	}
	if req.NegativePrompt != prompts.NegativeSceneryPrompt {
		t.Errorf("ネガティブプロンプトが想定外: %q", req.NegativePrompt)
	}
	if req.AspectRatio != DefaultAspectRatio {
		t.Errorf("アスペクト比が想定外: %q", req.AspectRatio)
	}
	if req.SystemPrompt == "" {
		t.Error("システムプロンプトが設定されていないのだ")
	}
	if req.Seed == nil || *req.Seed != seed {
		t.Error("シードがリクエストに載っていないのだ")
	}
}

func TestImageRenderer_AspectRatioOption(t *testing.T) {
	gen := &fakePanels{resp: &imagedom.ImageResponse{Data: []byte("png"), MimeType: "image/jpeg"}}
	r := NewImageRenderer("key", "m", WithAspectRatio("16:9"), withFactory(factoryFor(gen, nil)))
	_ = r.LoadModel(context.Background())

	resp, err := r.RenderImage(context.Background(), "x", domain.StyleAnime)
	if err != nil {
		t.Fatal(err)
	}
	if gen.reqs[0].AspectRatio != "16:9" {
		t.Errorf("アスペクト比が想定外: %q", gen.reqs[0].AspectRatio)
	}
	if resp.MimeType != "image/jpeg" {
		t.Errorf("MIME タイプは画像キットの値をそのまま使うのだ: %q", resp.MimeType)
	}
}

func TestImageRenderer_Errors(t *testing.T) {
	t.Run("未ロード", func(t *testing.T) {
		r := NewImageRenderer("key", "m", withFactory(factoryFor(&fakePanels{}, nil)))
		_, err := r.RenderImage(context.Background(), "x", domain.StyleComicBook)
		if !errors.Is(err, domain.ErrProviderUnavailable) {
			t.Errorf("ErrProviderUnavailable を期待したのに %v", err)
		}
	})

	t.Run("画像が無い", func(t *testing.T) {
		gen := &fakePanels{resp: &imagedom.ImageResponse{}}
		r := NewImageRenderer("key", "m", withFactory(factoryFor(gen, nil)))
		_ = r.LoadModel(context.Background())
		_, err := r.RenderImage(context.Background(), "x", domain.StyleComicBook)
		if !errors.Is(err, domain.ErrRenderFailed) {
			t.Errorf("ErrRenderFailed を期待したのに %v", err)
		}
	})

	t.Run("API エラー", func(t *testing.T) {
		gen := &fakePanels{err: errors.New("quota")}
		r := NewImageRenderer("key", "m", withFactory(factoryFor(gen, nil)))
		_ = r.LoadModel(context.Background())
		_, err := r.RenderImage(context.Background(), "x", domain.StyleComicBook)
		if err == nil || errors.Is(err, domain.ErrCancelled) {
			t.Errorf("通常のエラーを期待したのに %v", err)
		}
	})
}

func TestImageRenderer_Cancel(t *testing.T) {
	started := make(chan struct{})
	gen := &fakePanels{block: started}
	r := NewImageRenderer("key", "m", withFactory(factoryFor(gen, nil)))
	if err := r.LoadModel(context.Background()); err != nil {
		t.Fatal(err)
	}

	errCh := make(chan error, 1)
	go func() {
		_, err := r.RenderImage(context.Background(), "x", domain.StyleComicBook)
		errCh <- err
	}()

	<-started
	r.Cancel()
	if err := <-errCh; !errors.Is(err, domain.ErrCancelled) {
		t.Errorf("ErrCancelled を期待したのに %v", err)
	}
}

func TestRewriter(t *testing.T) {
	var (
		sent  []string
		reply = "  You drift over a silver sea.  "
	)
	w := NewRewriter("key", "text-model")
	w.factory = func(context.Context) (textFunc, error) {
		return func(_ context.Context, prompt string) (string, error) {
			sent = append(sent, prompt)
			return reply, nil
		}, nil
	}

	out, err := w.Rewrite(context.Background(), "I fell into a dark ocean!", "")
	if err != nil {
		t.Fatal(err)
	}
	if out != "You drift over a silver sea." {
		t.Errorf("書き換え結果が想定外: %q", out)
	}
	if !strings.Contains(sent[0], "Tone: calm") {
		t.Errorf("既定のトーンが使われていない: %q", sent[0])
	}
	if !strings.HasPrefix(sent[0], rewriteSystemPrompt) {
		t.Error("指示文がプロンプトの先頭に無いのだ")
	}

	if _, err := w.Rewrite(context.Background(), "   ", "calm"); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("ErrInvalidArgument を期待したのに %v", err)
	}

	reply = "  "
	if _, err := w.Rewrite(context.Background(), "a dream", "joyful"); err == nil {
		t.Error("空の結果でエラーにならないのだ")
	}
}

func TestRewriter_WithoutKey(t *testing.T) {
	w := NewRewriter("", "text-model")
	if _, err := w.Rewrite(context.Background(), "a dream", ""); !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("ErrNoAPIKey を期待したのに %v", err)
	}
}
