package composer

import (
	"image"

	"golang.org/x/image/vector"
)

// drawHalftone はページ全体に網点のテクスチャを描きます。
// 奇数行は間隔の半分だけずらして、ベンデイ・ドット風の並びにするのだ。
func drawHalftone(dst *image.RGBA, st Style) {
	if st.HalftoneSpacing <= 0 || st.HalftoneRadius <= 0 {
		return
	}
	b := dst.Bounds()
	fillShape(dst, b, st.HalftoneColor, func(z *vector.Rasterizer, off point) {
		row := 0
		for y := float64(b.Min.Y) + st.HalftoneSpacing/2; y < float64(b.Max.Y); y += st.HalftoneSpacing {
			x0 := float64(b.Min.X) + st.HalftoneSpacing/2
			if row%2 == 1 {
				x0 += st.HalftoneSpacing / 2
			}
			for x := x0; x < float64(b.Max.X); x += st.HalftoneSpacing {
				addCircle(z, off, x, y, st.HalftoneRadius)
			}
			row++
		}
	})
}
