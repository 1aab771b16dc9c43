package config

import (
	"time"

	"github.com/shouni/dreamcatcher-kit/pkg/domain"
	"github.com/shouni/dreamcatcher-kit/pkg/layout"
)

// デフォルト値の定義
const (
	DefaultGeminiModel      = "gemini-3-flash-preview"
	DefaultImageModel       = "gemini-3-pro-image-preview"
	DefaultPanelCount       = 4
	MaxPanelCount           = 5
	DefaultPacingInterval   = 400 * time.Millisecond
	DefaultMaxRetries       = 2
	DefaultInitialBackoff   = 1 * time.Second
	DefaultBackoffFactor    = 2.0
	DefaultRequestTimeout   = 60 * time.Second
	DefaultPromptCacheTTL   = 30 * time.Minute
	DefaultPanelAspectRatio = "4:3"
	DefaultImageStyle       = domain.StyleComicBook
	DefaultLayout           = layout.KindDynamic
)

// Config は Dreamcatcher の生成パイプラインを動作させるための基本設定です。
type Config struct {
	// --- AI Model Settings ---
	GeminiModel string // 文章の書き換え用
	ImageModel  string // ローカル描画用

	GeminiAPIKey string

	// --- Backend ---
	BackendURL   string
	BackendToken string

	// --- Generation Settings ---
	PanelCount       int
	ImageStyle       domain.ImageStyle
	Layout           layout.Kind
	PanelAspectRatio string
	PacingInterval   time.Duration // パネル間と実行開始前の待ち時間。0 で待たない

	// --- Timeout & Retries ---
	MaxRetries     int // 1パネルあたりの追加試行回数
	InitialBackoff time.Duration
	BackoffFactor  float64
	RequestTimeout time.Duration
	PromptCacheTTL time.Duration
}

// DefaultConfig は推奨されるデフォルト設定を返すヘルパー関数です。
func DefaultConfig() Config {
	return Config{
		GeminiModel:      DefaultGeminiModel,
		ImageModel:       DefaultImageModel,
		PanelCount:       DefaultPanelCount,
		ImageStyle:       DefaultImageStyle,
		Layout:           DefaultLayout,
		PanelAspectRatio: DefaultPanelAspectRatio,
		PacingInterval:   DefaultPacingInterval,
		MaxRetries:       DefaultMaxRetries,
		InitialBackoff:   DefaultInitialBackoff,
		BackoffFactor:    DefaultBackoffFactor,
		RequestTimeout:   DefaultRequestTimeout,
		PromptCacheTTL:   DefaultPromptCacheTTL,
	}
}

// EffectivePanelCount は PanelCount を 1〜MaxPanelCount に丸めた値を返すのだ。
func (c Config) EffectivePanelCount() int {
	switch {
	case c.PanelCount <= 0:
		return DefaultPanelCount
	case c.PanelCount > MaxPanelCount:
		return MaxPanelCount
	default:
		return c.PanelCount
	}
}
