package prompts

import (
	"github.com/shouni/dreamcatcher-kit/pkg/domain"
)

// NegativeSceneryPrompt は人物や文字を描かせないための共通ネガティブプロンプトです。
const NegativeSceneryPrompt = "people, person, human figure, face, portrait, crowd, text, letters, watermark, signature, speech bubble, low quality, blurry"

// styleSuffixes は画風ごとにプロンプトへ付け加える指定です。
var styleSuffixes = map[domain.ImageStyle]string{
	domain.StyleComicBook:  "comic book illustration, bold ink outlines, flat vibrant colors, halftone shading",
	domain.StyleWatercolor: "soft watercolor painting, wet-on-wet washes, muted pastel palette, paper texture",
	domain.StyleAnime:      "anime background art, cel-shaded, clean line art, cinematic lighting",
	domain.StyleSurreal:    "surrealist dreamscape, impossible geometry, soft volumetric light",
	domain.StyleSketch:     "pencil sketch, cross-hatching, monochrome graphite",
}

// StyleSuffix は画風に対応するサフィックスを返します。未知の画風なら comicBook を使うのだ。
func StyleSuffix(style domain.ImageStyle) string {
	if s, ok := styleSuffixes[style]; ok {
		return s
	}
	return styleSuffixes[domain.StyleComicBook]
}

// ApplyStyle はプロンプトに画風のサフィックスを結合します。
func ApplyStyle(prompt string, style domain.ImageStyle) string {
	return prompt + ", " + StyleSuffix(style)
}

// fallbackLibrary はプロンプト生成が丸ごと失敗した場合に使う、画風ごとの定型プロンプトです。
var fallbackLibrary = map[domain.ImageStyle][]string{
	domain.StyleComicBook: {
		"A dreamy landscape featuring a mystical forest, golden hour light",
		"A dreamy landscape featuring a calm moonlit night, a sky full of stars",
		"A dreamy landscape featuring a floating island, soft drifting clouds",
		"A dreamy landscape featuring an arched stone bridge, drifting silver fog",
		"A dreamy landscape featuring a warm glowing sunrise, a vast shimmering ocean",
	},
	domain.StyleWatercolor: {
		"A dreamy landscape featuring a wildflower meadow, soft ethereal light",
		"A dreamy landscape featuring a still mirror-like lake, a violet twilight glow",
		"A dreamy landscape featuring gentle falling rain, a cozy lantern-lit village",
		"A dreamy landscape featuring a blooming secret garden, peaceful atmosphere",
		"A dreamy landscape featuring a radiant sunset horizon, a quiet sandy shore",
	},
}

// FallbackPrompts は count 個の定型プロンプトを返します。ライブラリより多く要求された場合は循環させます。
func FallbackPrompts(style domain.ImageStyle, count int) []string {
	if count <= 0 {
		return nil
	}
	lib, ok := fallbackLibrary[style]
	if !ok {
		lib = fallbackLibrary[domain.StyleComicBook]
	}
	out := make([]string, count)
	for i := range out {
		out[i] = lib[i%len(lib)]
	}
	return out
}
