package composer

import (
	"image"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/vector"
)

// drawSpeechBubble はパネル下部の中央に、下向きのしっぽ付き吹き出しを描きます。
// 文字はパネル幅の約70%に収まるよう折り返して計測し、その大きさに合わせて枠を作るのだ。
func drawSpeechBubble(dst *image.RGBA, frame image.Rectangle, text string, face font.Face, st Style) {
	pad := st.BubblePadding
	maxTextW := int(float64(frame.Dx())*st.BubbleWidthRatio) - 2*pad
	if maxTextW <= 0 {
		return
	}
	lines := wrapText(face, text, maxTextW)
	if len(lines) == 0 {
		return
	}
	textW, textH := measureLines(face, lines)

	boxW := textW + 2*pad
	boxH := textH + 2*pad
	cx := frame.Min.X + frame.Dx()/2
	bottom := frame.Max.Y - st.BorderWidth - pad - st.BubbleTail
	top := bottom - boxH
	if minTop := frame.Min.Y + st.BorderWidth + pad; top < minTop {
		top = minTop
	}
	box := image.Rect(cx-boxW/2, top, cx-boxW/2+boxW, top+boxH)

	tailW := math.Max(12, float64(boxW)/6)
	tail := func(grow float64) []point {
		base := float64(box.Max.Y) - float64(st.BubbleRadius)/2
		return []point{
			{float64(cx) - tailW/2 - grow, base},
			{float64(cx) + tailW/2 + grow, base},
			{float64(cx) + tailW/3, float64(box.Max.Y) + float64(st.BubbleTail) + grow},
		}
	}

	// 輪郭 → 塗りの順に重ねて縁取りにする
	outline := float64(st.BubbleOutline)
	outer := box.Inset(-st.BubbleOutline)
	fillShape(dst, outer.Inset(-1), st.PaperInk, func(z *vector.Rasterizer, off point) {
		addRoundedRect(z, off, outer, st.BubbleRadius+outline)
	})
	fillShape(dst, polygonBounds(tail(outline), 1), st.PaperInk, func(z *vector.Rasterizer, off point) {
		addPolygon(z, off, tail(outline))
	})
	fillShape(dst, polygonBounds(tail(0), 1), st.BubbleFill, func(z *vector.Rasterizer, off point) {
		addPolygon(z, off, tail(0))
	})
	fillShape(dst, box, st.BubbleFill, func(z *vector.Rasterizer, off point) {
		addRoundedRect(z, off, box, st.BubbleRadius)
	})

	ascent := face.Metrics().Ascent.Ceil()
	lh := lineHeight(face)
	for i, line := range lines {
		w := measure(face, line)
		x := cx - w/2
		y := box.Min.Y + pad + i*lh + ascent
		drawString(dst, face, line, x, y, st.PaperInk)
	}
}

// drawSoundEffect はパネル中央より右上に星形のバーストを描き、縁取り文字を重ねます。
func drawSoundEffect(dst *image.RGBA, frame image.Rectangle, text string, face font.Face, st Style) {
	cx := float64(frame.Min.X) + float64(frame.Dx())*st.BurstCenterX
	cy := float64(frame.Min.Y) + float64(frame.Dy())*st.BurstCenterY
	outerR := math.Min(float64(frame.Dx()), float64(frame.Dy())) * st.BurstOuterRatio
	if outerR <= 0 {
		return
	}
	pts := burstPoints(cx, cy, outerR, outerR*st.BurstInnerRatio, st.BurstPoints)

	fillShape(dst, polygonBounds(pts, 1), st.BurstFill, func(z *vector.Rasterizer, off point) {
		addPolygon(z, off, pts)
	})
	strokePolygon(dst, pts, st.BurstStrokeWidth, st.PaperInk)
	drawOutlinedString(dst, face, text, int(math.Round(cx)), int(math.Round(cy)), st.EffectOutline, st.EffectTextColor, st.PaperInk)
}

// burstPoints は外径と内径を交互に取る星形の頂点を、真上から時計回りに返します。
func burstPoints(cx, cy, outerR, innerR float64, spikes int) []point {
	if spikes < 3 {
		spikes = 3
	}
	n := spikes * 2
	pts := make([]point, n)
	for i := range pts {
		r := outerR
		if i%2 == 1 {
			r = innerR
		}
		a := -math.Pi/2 + math.Pi*float64(i)/float64(spikes)
		pts[i] = point{X: cx + r*math.Cos(a), Y: cy + r*math.Sin(a)}
	}
	return pts
}
