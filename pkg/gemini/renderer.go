package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	imagedom "github.com/shouni/gemini-image-kit/pkg/domain"
	"golang.org/x/sync/singleflight"

	"github.com/shouni/dreamcatcher-kit/pkg/domain"
	"github.com/shouni/dreamcatcher-kit/pkg/prompts"
)

const (
	// DefaultAspectRatio はパネル1枚の既定アスペクト比です。
	DefaultAspectRatio      = "4:3"
	defaultImageTemperature = float32(0.2)
	sceneSystemPrompt       = "You are a dream illustrator. Paint a single calm scenery image with no people, no text and no speech bubbles."
)

// ImageRenderer は Gemini の画像モデルで1パネルずつ描画する、ローカル経路の描画器です。
type ImageRenderer struct {
	model       string
	aspectRatio string
	timeout     time.Duration
	factory     panelFactory

	load singleflight.Group

	mu      sync.Mutex
	gen     panelGenerator
	nextID  uint64
	running map[uint64]context.CancelFunc
}

// RendererOption は ImageRenderer の設定を変更する関数です。
type RendererOption func(*ImageRenderer)

// WithAspectRatio はパネルのアスペクト比を変更します。
func WithAspectRatio(ratio string) RendererOption {
	return func(r *ImageRenderer) { r.aspectRatio = ratio }
}

// WithHTTPTimeout は参照画像の取得に使う HTTP クライアントのタイムアウトを変更します。
func WithHTTPTimeout(timeout time.Duration) RendererOption {
	return func(r *ImageRenderer) {
		if timeout > 0 {
			r.timeout = timeout
		}
	}
}

// withFactory はテスト用にジェネレーター生成を差し替えます。
func withFactory(f panelFactory) RendererOption {
	return func(r *ImageRenderer) { r.factory = f }
}

// NewImageRenderer は ImageRenderer を生成します。モデルへの接続は LoadModel まで遅延されるのだ。
func NewImageRenderer(apiKey, model string, opts ...RendererOption) *ImageRenderer {
	r := &ImageRenderer{
		model:       model,
		aspectRatio: DefaultAspectRatio,
		timeout:     defaultHTTPTimeout,
		running:     make(map[uint64]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.factory == nil {
		r.factory = newImageKitFactory(apiKey, model, r.timeout)
	}
	return r
}

// IsModelLoaded はジェネレーターが準備済みかどうかを返します。
func (r *ImageRenderer) IsModelLoaded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gen != nil
}

// LoadModel は AI クライアントと画像ジェネレーターを準備します。同時に呼ばれても初期化は1回だけです。
func (r *ImageRenderer) LoadModel(ctx context.Context) error {
	if r.IsModelLoaded() {
		return nil
	}
	_, err, _ := r.load.Do("load", func() (any, error) {
		if r.IsModelLoaded() {
			return nil, nil
		}
		startTime := time.Now()
		gen, err := r.factory(ctx)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.gen = gen
		r.mu.Unlock()
		slog.Info("画像モデルの準備が完了しました", "model", r.model, "duration", time.Since(startTime).Round(time.Millisecond))
		return nil, nil
	})
	return err
}

// Cancel は進行中の描画リクエストをすべて中断します。ブロックしません。
func (r *ImageRenderer) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, cancel := range r.running {
		cancel()
		delete(r.running, id)
	}
}

// RenderImage は画風を適用したプロンプトで1枚描画します。
// シードはプロンプトから決めるので、リトライでも同じ構図を狙えるのだ。
func (r *ImageRenderer) RenderImage(ctx context.Context, prompt string, style domain.ImageStyle) (*imagedom.ImageResponse, error) {
	seed := prompts.SeedFromPrompt(prompt)
	return r.GenerateMangaPanel(ctx, imagedom.ImageGenerationRequest{
		Prompt:         prompts.ApplyStyle(prompt, style),
		NegativePrompt: prompts.NegativeSceneryPrompt,
		SystemPrompt:   sceneSystemPrompt,
		AspectRatio:    r.aspectRatio,
		Seed:           &seed,
	})
}

// GenerateMangaPanel は単一パネルの生成要求を画像キットの GeminiGenerator に渡します。
func (r *ImageRenderer) GenerateMangaPanel(ctx context.Context, req imagedom.ImageGenerationRequest) (*imagedom.ImageResponse, error) {
	r.mu.Lock()
	gen := r.gen
	r.mu.Unlock()
	if gen == nil {
		return nil, fmt.Errorf("画像モデルが読み込まれていません: %w", domain.ErrProviderUnavailable)
	}

	ctx, done := r.track(ctx)
	defer done()

	resp, err := gen.GenerateMangaPanel(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("描画が中断されました: %w", domain.ErrCancelled)
		}
		return nil, err
	}
	if resp == nil || len(resp.Data) == 0 {
		return nil, fmt.Errorf("レスポンスに画像が含まれていません: %w", domain.ErrRenderFailed)
	}
	if resp.MimeType == "" {
		resp.MimeType = "image/png"
	}
	return resp, nil
}

// track は Cancel から中断できるように描画ごとのコンテキストを登録します。
func (r *ImageRenderer) track(parent context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.running[id] = cancel
	r.mu.Unlock()

	return ctx, func() {
		r.mu.Lock()
		delete(r.running, id)
		r.mu.Unlock()
		cancel()
	}
}
