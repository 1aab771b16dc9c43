package layout

import (
	"fmt"
	"image"
	"math"
	"strings"
)

// Kind はページのコマ割りの種類です。
type Kind string

const (
	KindSingle        Kind = "single"
	KindVerticalStrip Kind = "verticalStrip"
	KindGrid2xN       Kind = "grid2xN"
	KindDynamic       Kind = "dynamic"
)

// ParseKind は文字列から Kind を解決します。未知の値もそのまま返し、
// ComputeFrames 側でグリッドにフォールバックさせるのだ。
func ParseKind(s string) Kind {
	s = strings.TrimSpace(s)
	for _, k := range []Kind{KindSingle, KindVerticalStrip, KindGrid2xN, KindDynamic} {
		if strings.EqualFold(s, string(k)) {
			return k
		}
	}
	if s == "" {
		return KindDynamic
	}
	return Kind(s)
}

// Rect は浮動小数点の矩形です。X/Y は左上の座標です。
type Rect struct {
	X, Y, W, H float64
}

// MaxX は右端の座標を返します。
func (r Rect) MaxX() float64 { return r.X + r.W }

// MaxY は下端の座標を返します。
func (r Rect) MaxY() float64 { return r.Y + r.H }

// Inset は四辺を d だけ内側に縮めた矩形を返します。
func (r Rect) Inset(d float64) Rect {
	w := math.Max(0, r.W-2*d)
	h := math.Max(0, r.H-2*d)
	return Rect{X: r.X + d, Y: r.Y + d, W: w, H: h}
}

// Image はピクセル境界に丸めた image.Rectangle を返します。
func (r Rect) Image() image.Rectangle {
	return image.Rect(
		int(math.Round(r.X)),
		int(math.Round(r.Y)),
		int(math.Round(r.MaxX())),
		int(math.Round(r.MaxY())),
	)
}

func (r Rect) String() string {
	return fmt.Sprintf("(%.1f,%.1f %.1fx%.1f)", r.X, r.Y, r.W, r.H)
}

// ComputeFrames はコマ割りの種類とパネル数から、描画順に並んだパネル矩形を計算します。
// 固定レイアウトが定義する数より多い場合は少なく返すことがあり、余ったパネルは呼び出し側で捨てます。
func ComputeFrames(kind Kind, panelCount int, content Rect, gutter float64) []Rect {
	if panelCount <= 0 {
		return []Rect{}
	}

	switch kind {
	case KindSingle:
		return []Rect{content}
	case KindVerticalStrip:
		return verticalStrip(panelCount, content, gutter)
	case KindGrid2xN:
		return grid(panelCount, 2, content, gutter)
	case KindDynamic:
		if rows, ok := dynamicTables[panelCount]; ok {
			return fromTable(rows, content, gutter)
		}
		return verticalStrip(panelCount, content, gutter)
	default:
		cols := 2
		if panelCount <= 2 {
			cols = 1
		}
		return grid(panelCount, cols, content, gutter)
	}
}

// verticalStrip は全幅のパネルを上から等しい高さで積み重ねます。
func verticalStrip(n int, content Rect, gutter float64) []Rect {
	h := (content.H - gutter*float64(n-1)) / float64(n)
	frames := make([]Rect, n)
	for i := range frames {
		frames[i] = Rect{
			X: content.X,
			Y: content.Y + float64(i)*(h+gutter),
			W: content.W,
			H: h,
		}
	}
	return frames
}

// grid は cols 列の均一なグリッドを行優先で埋めます。
func grid(n, cols int, content Rect, gutter float64) []Rect {
	rows := (n + cols - 1) / cols
	cellW := (content.W - gutter*float64(cols-1)) / float64(cols)
	cellH := (content.H - gutter*float64(rows-1)) / float64(rows)

	frames := make([]Rect, n)
	for i := range frames {
		row, col := i/cols, i%cols
		frames[i] = Rect{
			X: content.X + float64(col)*(cellW+gutter),
			Y: content.Y + float64(row)*(cellH+gutter),
			W: cellW,
			H: cellH,
		}
	}
	return frames
}
