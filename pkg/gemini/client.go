package gemini

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	imagedom "github.com/shouni/gemini-image-kit/pkg/domain"
	imagekit "github.com/shouni/gemini-image-kit/pkg/generator"
	"github.com/shouni/go-gemini-client/pkg/gemini"
	"github.com/shouni/go-http-kit/pkg/httpkit"
	"google.golang.org/genai"
)

const (
	defaultHTTPTimeout     = 60 * time.Second
	defaultCacheExpiration = 30 * time.Minute
	cacheCleanupInterval   = 1 * time.Hour
	defaultCacheTTL        = 1 * time.Hour
)

// ErrNoAPIKey は API キーが設定されていないことを示します。
var ErrNoAPIKey = errors.New("gemini: API key is not configured")

// panelGenerator は画像キットの ImageGenerator のうち、単一パネル生成だけを切り出したものです。
type panelGenerator interface {
	GenerateMangaPanel(ctx context.Context, req imagedom.ImageGenerationRequest) (*imagedom.ImageResponse, error)
}

// panelFactory は panelGenerator を遅延生成します。
type panelFactory func(ctx context.Context) (panelGenerator, error)

// textFunc はプロンプトを1つ送り、応答テキストを返します。
type textFunc func(ctx context.Context, prompt string) (string, error)

// textFactory は textFunc を遅延生成します。
type textFactory func(ctx context.Context) (textFunc, error)

// initializeAIClient は gemini クライアントを初期化します。
func initializeAIClient(ctx context.Context, apiKey string, temperature float32) (gemini.GenerativeModel, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	aiClient, err := gemini.NewClient(ctx, gemini.Config{
		APIKey:      apiKey,
		Temperature: genai.Ptr(temperature),
	})
	if err != nil {
		return nil, fmt.Errorf("AIクライアントの初期化に失敗しました: %w", err)
	}
	return aiClient, nil
}

// newImageKitFactory は HTTP クライアント、画像処理コア、GeminiGenerator の順に組み立てる factory を返します。
func newImageKitFactory(apiKey, model string, timeout time.Duration) panelFactory {
	return func(ctx context.Context) (panelGenerator, error) {
		aiClient, err := initializeAIClient(ctx, apiKey, defaultImageTemperature)
		if err != nil {
			return nil, err
		}

		// 参照画像のダウンロード結果を保持するキャッシュ
		imgCache := cache.New(defaultCacheExpiration, cacheCleanupInterval)
		core, err := imagekit.NewGeminiImageCore(httpkit.New(timeout), imgCache, defaultCacheTTL)
		if err != nil {
			return nil, fmt.Errorf("GeminiImageCoreの初期化に失敗しました: %w", err)
		}

		imgGen, err := imagekit.NewGeminiGenerator(core, aiClient, model)
		if err != nil {
			return nil, fmt.Errorf("GeminiGeneratorの初期化に失敗しました: %w", err)
		}
		return imgGen, nil
	}
}

// newTextFactory はテキストモデルへ問い合わせる factory を返します。
func newTextFactory(apiKey, model string, temperature float32) textFactory {
	return func(ctx context.Context) (textFunc, error) {
		aiClient, err := initializeAIClient(ctx, apiKey, temperature)
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context, prompt string) (string, error) {
			resp, err := aiClient.GenerateContent(ctx, prompt, model)
			if err != nil {
				return "", err
			}
			return resp.Text, nil
		}, nil
	}
}
