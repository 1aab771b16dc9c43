package config

import (
	"time"

	"github.com/shouni/go-utils/envutil"

	pkgconfig "github.com/shouni/dreamcatcher-kit/pkg/config"
	"github.com/shouni/dreamcatcher-kit/pkg/domain"
	"github.com/shouni/dreamcatcher-kit/pkg/layout"
)

// デフォルト値の定義なのだ
const (
	DefaultStorePath = "output/dreams.json" // 夢日記の保存先なのだ
	DefaultOutputDir = "output"             // パブリッシャーで使用するデフォルト保存先なのだ
	DefaultTone      = "calm"
)

// Config はアプリケーション全体の環境設定（APIキーや保存先）を保持する構造体なのだ。
type Config struct {
	GeminiAPIKey     string
	GeminiModel      string
	GeminiImageModel string

	BackendURL   string
	BackendToken string

	StoreDSN      string
	RedisAddr     string
	RedisPassword string

	Options GenerateOptions
}

// LoadConfig は環境変数から設定を読み込み、構造体を返すのだ！
func LoadConfig() *Config {
	return &Config{
		GeminiAPIKey:     envutil.GetEnv("GEMINI_API_KEY", ""),
		GeminiModel:      envutil.GetEnv("GEMINI_MODEL", pkgconfig.DefaultGeminiModel),
		GeminiImageModel: envutil.GetEnv("IMAGE_GEMINI_MODEL", pkgconfig.DefaultImageModel),
		BackendURL:       envutil.GetEnv("DREAMCATCHER_BACKEND_URL", ""),
		BackendToken:     envutil.GetEnv("DREAMCATCHER_TOKEN", ""),
		StoreDSN:         envutil.GetEnv("DREAM_STORE", DefaultStorePath),
		RedisAddr:        envutil.GetEnv("REDIS_ADDR", ""),
		RedisPassword:    envutil.GetEnv("REDIS_PASSWORD", ""),
	}
}

// GenerateOptions は CLI フラグから渡される実行時のパラメータなのだ。
type GenerateOptions struct {
	// ソース入力関連
	DreamID   string // --dream: 既存の夢を描くとき
	InputFile string // --input-file: "-" で標準入力
	Text      string // 引数で直接渡された文章
	Tone      string // --tone

	// 画像生成関連
	Style      string // --style
	Layout     string // --layout
	PanelCount int    // --panels
	Title      string // --title
	Compose    bool   // --compose: コマ割りページも作るか
	OutputDir  string // --output-dir
	Upload     bool   // --upload

	// AI挙動設定
	AIModel    string // --model: 書き換え用のGeminiモデル
	ImageModel string // --image-model: 画像生成用のGeminiモデル

	// 実行制御
	Pacing      time.Duration // --pacing
	HTTPTimeout time.Duration // --http-timeout
}

// Generation は環境設定と CLI フラグを合成し、ライブラリ側の設定を組み立てるのだ。
// フラグが空のものは環境変数かデフォルトのまま残すよ。
func (c *Config) Generation() (pkgconfig.Config, error) {
	out := pkgconfig.DefaultConfig()
	out.GeminiAPIKey = c.GeminiAPIKey
	out.GeminiModel = pick(c.Options.AIModel, c.GeminiModel, out.GeminiModel)
	out.ImageModel = pick(c.Options.ImageModel, c.GeminiImageModel, out.ImageModel)
	out.BackendURL = c.BackendURL
	out.BackendToken = c.BackendToken

	if c.Options.Style != "" {
		style, err := domain.ParseStyle(c.Options.Style)
		if err != nil {
			return out, err
		}
		out.ImageStyle = style
	}
	if c.Options.Layout != "" {
		out.Layout = layout.ParseKind(c.Options.Layout)
	}
	if c.Options.PanelCount != 0 {
		out.PanelCount = c.Options.PanelCount
	}
	out.PanelCount = out.EffectivePanelCount()
	if c.Options.Pacing > 0 {
		out.PacingInterval = c.Options.Pacing
	}
	if c.Options.HTTPTimeout > 0 {
		out.RequestTimeout = c.Options.HTTPTimeout
	}
	return out, nil
}

// OutputDir は出力先ディレクトリを返すのだ。
func (c *Config) OutputDir() string {
	return pick(c.Options.OutputDir, DefaultOutputDir)
}

func pick(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
