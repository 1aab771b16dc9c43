package composer

import (
	"image"

	xdraw "golang.org/x/image/draw"
)

// aspectFillSource は dst のサイズを覆うように拡大したときに見える、src 側の中央切り出し範囲を返します。
// レターボックスは作らず、はみ出した分を左右または上下から均等に切り落とすのだ。
func aspectFillSource(src image.Rectangle, dst image.Point) image.Rectangle {
	sw, sh := src.Dx(), src.Dy()
	if sw <= 0 || sh <= 0 || dst.X <= 0 || dst.Y <= 0 {
		return src
	}

	// sw/sh > dx/dy なら左右を切る。整数演算で比較して丸め誤差を避ける。
	if sw*dst.Y > sh*dst.X {
		cropW := sh * dst.X / dst.Y
		x0 := src.Min.X + (sw-cropW)/2
		return image.Rect(x0, src.Min.Y, x0+cropW, src.Max.Y)
	}
	cropH := sw * dst.Y / dst.X
	y0 := src.Min.Y + (sh-cropH)/2
	return image.Rect(src.Min.X, y0, src.Max.X, y0+cropH)
}

// drawAspectFill は src を frame いっぱいに aspect-fill で描画します。
func drawAspectFill(dst *image.RGBA, frame image.Rectangle, src image.Image) {
	if frame.Empty() {
		return
	}
	sr := aspectFillSource(src.Bounds(), frame.Size())
	xdraw.CatmullRom.Scale(dst, frame, src, sr, xdraw.Over, nil)
}
