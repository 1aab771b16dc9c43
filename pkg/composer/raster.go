package composer

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/vector"
)

// point はページ座標上の点です。
type point struct {
	X, Y float64
}

// fillShape は bounds の範囲だけのラスタライザを用意し、build で追加したパスを c で塗ります。
// bounds はページ外にはみ出した分を切り詰めてから使うのだ。
func fillShape(dst *image.RGBA, bounds image.Rectangle, c color.Color, build func(z *vector.Rasterizer, off point)) {
	r := bounds.Intersect(dst.Bounds())
	if r.Empty() {
		return
	}
	z := vector.NewRasterizer(r.Dx(), r.Dy())
	build(z, point{X: float64(r.Min.X), Y: float64(r.Min.Y)})
	z.Draw(dst, r, image.NewUniform(c), image.Point{})
}

// addPolygon は閉じた多角形をラスタライザに追加します。
func addPolygon(z *vector.Rasterizer, off point, pts []point) {
	if len(pts) < 3 {
		return
	}
	z.MoveTo(float32(pts[0].X-off.X), float32(pts[0].Y-off.Y))
	for _, p := range pts[1:] {
		z.LineTo(float32(p.X-off.X), float32(p.Y-off.Y))
	}
	z.ClosePath()
}

// addCircle は正多角形で近似した円を追加します。
func addCircle(z *vector.Rasterizer, off point, cx, cy, r float64) {
	const segments = 12
	pts := make([]point, segments)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / segments
		pts[i] = point{X: cx + r*math.Cos(a), Y: cy + r*math.Sin(a)}
	}
	addPolygon(z, off, pts)
}

// addRoundedRect は角丸の矩形を二次ベジェで追加します。
func addRoundedRect(z *vector.Rasterizer, off point, rect image.Rectangle, radius float64) {
	x0, y0 := float64(rect.Min.X)-off.X, float64(rect.Min.Y)-off.Y
	x1, y1 := float64(rect.Max.X)-off.X, float64(rect.Max.Y)-off.Y
	radius = math.Min(radius, math.Min((x1-x0)/2, (y1-y0)/2))

	f := func(v float64) float32 { return float32(v) }
	z.MoveTo(f(x0+radius), f(y0))
	z.LineTo(f(x1-radius), f(y0))
	z.QuadTo(f(x1), f(y0), f(x1), f(y0+radius))
	z.LineTo(f(x1), f(y1-radius))
	z.QuadTo(f(x1), f(y1), f(x1-radius), f(y1))
	z.LineTo(f(x0+radius), f(y1))
	z.QuadTo(f(x0), f(y1), f(x0), f(y1-radius))
	z.LineTo(f(x0), f(y0+radius))
	z.QuadTo(f(x0), f(y0), f(x0+radius), f(y0))
	z.ClosePath()
}

// strokePolygon は多角形の各辺を幅 width の四角形として塗り、輪郭線を描きます。
// 四角形と継ぎ目の円は同じ向きで追加するので、重なった部分の被覆率が打ち消し合うことはないのだ。
func strokePolygon(dst *image.RGBA, pts []point, width float64, c color.Color) {
	if len(pts) < 2 {
		return
	}
	bounds := polygonBounds(pts, width)
	fillShape(dst, bounds, c, func(z *vector.Rasterizer, off point) {
		half := width / 2
		for i := range pts {
			p0, p1 := pts[i], pts[(i+1)%len(pts)]
			dx, dy := p1.X-p0.X, p1.Y-p0.Y
			l := math.Hypot(dx, dy)
			if l == 0 {
				continue
			}
			nx, ny := -dy/l*half, dx/l*half
			addPolygon(z, off, []point{
				{p0.X - nx, p0.Y - ny},
				{p1.X - nx, p1.Y - ny},
				{p1.X + nx, p1.Y + ny},
				{p0.X + nx, p0.Y + ny},
			})
			addCircle(z, off, p1.X, p1.Y, half)
		}
	})
}

// polygonBounds は多角形を pad だけ広げた外接矩形を返します。
func polygonBounds(pts []point, pad float64) image.Rectangle {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range pts {
		minX, minY = math.Min(minX, p.X), math.Min(minY, p.Y)
		maxX, maxY = math.Max(maxX, p.X), math.Max(maxY, p.Y)
	}
	return image.Rect(
		int(math.Floor(minX-pad)), int(math.Floor(minY-pad)),
		int(math.Ceil(maxX+pad)), int(math.Ceil(maxY+pad)),
	)
}

// fillRect は矩形を単色で塗ります。
func fillRect(dst *image.RGBA, r image.Rectangle, c color.Color) {
	draw.Draw(dst, r, image.NewUniform(c), image.Point{}, draw.Over)
}

// strokeRect は矩形の内側に幅 width の枠線を描きます。
func strokeRect(dst *image.RGBA, r image.Rectangle, width int, c color.Color) {
	if width <= 0 {
		return
	}
	fillRect(dst, image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+width), c)
	fillRect(dst, image.Rect(r.Min.X, r.Max.Y-width, r.Max.X, r.Max.Y), c)
	fillRect(dst, image.Rect(r.Min.X, r.Min.Y+width, r.Min.X+width, r.Max.Y-width), c)
	fillRect(dst, image.Rect(r.Max.X-width, r.Min.Y+width, r.Max.X, r.Max.Y-width), c)
}
