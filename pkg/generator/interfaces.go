package generator

import (
	"context"

	imagedom "github.com/shouni/gemini-image-kit/pkg/domain"

	"github.com/shouni/dreamcatcher-kit/pkg/domain"
)

// Renderer は1つのプロンプトから1枚の画像を描画する機能です。
type Renderer interface {
	RenderImage(ctx context.Context, prompt string, style domain.ImageStyle) (*imagedom.ImageResponse, error)
}

// Planner はナラティブからパネル構成 (プロンプトとオーバーレイ) を作る機能です。
type Planner interface {
	PlanPanels(ctx context.Context, text string, style domain.ImageStyle, count int) ([]domain.PanelPlan, error)
}

// RemoteProvider は認証済みのときだけ使われる、バックエンド側の生成経路です。
type RemoteProvider interface {
	Planner
	Renderer
	IsAuthenticated() bool
}

// LocalRenderer は端末側で動くモデルによる描画経路です。
// Cancel は進行中の描画を中断するためのもので、ブロックしてはいけません。
type LocalRenderer interface {
	Renderer
	IsModelLoaded() bool
	LoadModel(ctx context.Context) error
	Cancel()
}
