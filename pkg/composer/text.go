package composer

import (
	"fmt"
	"image"
	"image/color"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

var (
	parsedFonts struct {
		regular *opentype.Font
		bold    *opentype.Font
	}
	parseOnce sync.Once
	parseErr  error
)

// loadFonts は埋め込みの Go フォントを一度だけパースします。
func loadFonts() error {
	parseOnce.Do(func() {
		parsedFonts.regular, parseErr = opentype.Parse(goregular.TTF)
		if parseErr != nil {
			return
		}
		parsedFonts.bold, parseErr = opentype.Parse(gobold.TTF)
	})
	return parseErr
}

// faceSet は1回の合成で使うフォントフェイスの組です。Face は並行利用できないため呼び出しごとに作るのだ。
type faceSet struct {
	title  font.Face
	bubble font.Face
	effect font.Face
}

func newFaceSet(st Style) (*faceSet, error) {
	if err := loadFonts(); err != nil {
		return nil, fmt.Errorf("フォントの読み込みに失敗しました: %w", err)
	}
	newFace := func(f *opentype.Font, size float64) (font.Face, error) {
		return opentype.NewFace(f, &opentype.FaceOptions{
			Size:    size,
			DPI:     72,
			Hinting: font.HintingFull,
		})
	}

	title, err := newFace(parsedFonts.bold, st.TitleFontSize)
	if err != nil {
		return nil, fmt.Errorf("タイトル用フォントの生成に失敗しました: %w", err)
	}
	bubble, err := newFace(parsedFonts.regular, st.BubbleFontSize)
	if err != nil {
		return nil, fmt.Errorf("吹き出し用フォントの生成に失敗しました: %w", err)
	}
	effect, err := newFace(parsedFonts.bold, st.EffectFontSize)
	if err != nil {
		return nil, fmt.Errorf("効果音用フォントの生成に失敗しました: %w", err)
	}
	return &faceSet{title: title, bubble: bubble, effect: effect}, nil
}

func (fs *faceSet) Close() {
	for _, f := range []font.Face{fs.title, fs.bubble, fs.effect} {
		if f != nil {
			f.Close()
		}
	}
}

// measure は1行の描画幅をピクセルで返します。
func measure(face font.Face, s string) int {
	return font.MeasureString(face, s).Ceil()
}

// lineHeight はフェイスの行送りをピクセルで返します。
func lineHeight(face font.Face) int {
	return face.Metrics().Height.Ceil()
}

// wrapText は maxWidth に収まるよう単語単位で貪欲に折り返します。
// 1単語だけで幅を超える場合はその単語を1行として扱うのだ。
func wrapText(face font.Face, text string, maxWidth int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	current := words[0]
	for _, w := range words[1:] {
		candidate := current + " " + w
		if measure(face, candidate) <= maxWidth {
			current = candidate
			continue
		}
		lines = append(lines, current)
		current = w
	}
	return append(lines, current)
}

// measureLines は折り返した行の最大幅と合計の高さを返します。
func measureLines(face font.Face, lines []string) (width, height int) {
	for _, l := range lines {
		if w := measure(face, l); w > width {
			width = w
		}
	}
	return width, len(lines) * lineHeight(face)
}

// drawString はベースライン (x, y) から文字列を描画します。
func drawString(dst *image.RGBA, face font.Face, s string, x, y int, c color.Color) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

// drawCenteredString は (cx, cy) を中心に1行の文字列を描画します。
func drawCenteredString(dst *image.RGBA, face font.Face, s string, cx, cy int, c color.Color) {
	m := face.Metrics()
	w := measure(face, s)
	baseline := cy + (m.Ascent.Ceil()-m.Descent.Ceil())/2
	drawString(dst, face, s, cx-w/2, baseline, c)
}

// drawOutlinedString は縁取り付きの太字表現で中央揃えの文字列を描画します。
func drawOutlinedString(dst *image.RGBA, face font.Face, s string, cx, cy, outline int, fill, stroke color.Color) {
	if outline <= 0 {
		drawCenteredString(dst, face, s, cx, cy, fill)
		return
	}
	for dy := -outline; dy <= outline; dy += outline {
		for dx := -outline; dx <= outline; dx += outline {
			if dx == 0 && dy == 0 {
				continue
			}
			drawCenteredString(dst, face, s, cx+dx, cy+dy, stroke)
		}
	}
	drawCenteredString(dst, face, s, cx, cy, fill)
}
