package composer

import (
	"image"
	"image/color"
)

// Style はページ合成で使う固定の寸法と配色です。
type Style struct {
	Background color.RGBA
	PaperInk   color.RGBA

	HalftoneSpacing float64
	HalftoneRadius  float64
	HalftoneColor   color.NRGBA

	BannerHeight int
	BannerColor  color.RGBA
	TitleColor   color.RGBA

	Margin      int
	Gutter      float64
	BorderWidth int
	PageBorder  int

	ShadowOffset int
	ShadowColor  color.NRGBA
	PanelBacking color.RGBA

	BubbleWidthRatio float64
	BubblePadding    int
	BubbleRadius     float64
	BubbleTail       int
	BubbleOutline    int
	BubbleFill       color.RGBA

	BurstPoints      int
	BurstOuterRatio  float64
	BurstInnerRatio  float64
	BurstCenterX     float64
	BurstCenterY     float64
	BurstFill        color.RGBA
	BurstStrokeWidth float64
	EffectTextColor  color.RGBA
	EffectOutline    int

	TitleFontSize  float64
	BubbleFontSize float64
	EffectFontSize float64
}

// DefaultPageSize は合成ページの既定サイズ (3:4) です。
var DefaultPageSize = image.Pt(1200, 1600)

// DefaultStyle はコミック風の既定スタイルを返すのだ。
func DefaultStyle() Style {
	black := color.RGBA{20, 20, 24, 255}
	return Style{
		Background: color.RGBA{250, 246, 236, 255},
		PaperInk:   black,

		HalftoneSpacing: 10,
		HalftoneRadius:  1.6,
		HalftoneColor:   color.NRGBA{40, 40, 60, 22},

		BannerHeight: 84,
		BannerColor:  color.RGBA{36, 44, 92, 255},
		TitleColor:   color.RGBA{255, 255, 255, 255},

		Margin:      32,
		Gutter:      16,
		BorderWidth: 5,
		PageBorder:  6,

		ShadowOffset: 7,
		ShadowColor:  color.NRGBA{0, 0, 0, 80},
		PanelBacking: color.RGBA{255, 255, 255, 255},

		BubbleWidthRatio: 0.7,
		BubblePadding:    14,
		BubbleRadius:     18,
		BubbleTail:       22,
		BubbleOutline:    3,
		BubbleFill:       color.RGBA{255, 255, 255, 255},

		BurstPoints:      12,
		BurstOuterRatio:  0.17,
		BurstInnerRatio:  0.6,
		BurstCenterX:     0.7,
		BurstCenterY:     0.28,
		BurstFill:        color.RGBA{255, 214, 10, 255},
		BurstStrokeWidth: 3,
		EffectTextColor:  color.RGBA{226, 36, 36, 255},
		EffectOutline:    2,

		TitleFontSize:  36,
		BubbleFontSize: 20,
		EffectFontSize: 30,
	}
}
