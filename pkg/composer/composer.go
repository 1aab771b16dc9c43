package composer

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"log/slog"

	"github.com/shouni/dreamcatcher-kit/pkg/domain"
	"github.com/shouni/dreamcatcher-kit/pkg/layout"
)

// Composer は複数のパネル画像と吹き出し等を1枚のコミックページにラスタライズします。
// 描画経路に乱数は一切なく、同じ入力からは同じバイト列が得られます。
type Composer struct {
	style Style
}

// New は DefaultStyle で描画する Composer を生成します。
func New() *Composer {
	return &Composer{style: DefaultStyle()}
}

// Style は現在のスタイルを返します。
func (c *Composer) Style() Style {
	return c.style
}

// Compose は images を plans のオーバーレイと共に pageSize のページへ描画します。
// images が空の場合は domain.ErrEmptyInput を返すのだ。
func (c *Composer) Compose(images []image.Image, plans []domain.PanelPlan, kind layout.Kind, title string, pageSize image.Point) (*image.RGBA, error) {
	if len(images) == 0 {
		return nil, fmt.Errorf("ページ合成に画像が渡されていません: %w", domain.ErrEmptyInput)
	}
	if pageSize.X <= 0 || pageSize.Y <= 0 {
		pageSize = DefaultPageSize
	}

	faces, err := newFaceSet(c.style)
	if err != nil {
		return nil, err
	}
	defer faces.Close()

	st := c.style
	page := image.NewRGBA(image.Rectangle{Max: pageSize})

	// 1. 背景
	fillRect(page, page.Bounds(), st.Background)

	// 2. 網点
	drawHalftone(page, st)

	// 3. タイトル帯
	banner := 0
	if title != "" {
		banner = st.BannerHeight
		band := image.Rect(0, 0, pageSize.X, banner)
		fillRect(page, band, st.BannerColor)
		drawCenteredString(page, faces.title, title, pageSize.X/2, banner/2, st.TitleColor)
	}

	// 4. コンテンツ領域とコマ割り
	content := ContentArea(pageSize, banner, st.Margin)
	frames := layout.ComputeFrames(kind, len(images), content, st.Gutter)
	if len(frames) < len(images) {
		slog.Warn("コマ数を超えた画像は描画しません", "images", len(images), "frames", len(frames), "layout", kind)
	}

	// 5〜7. パネルとオーバーレイ
	for i, img := range images {
		if i >= len(frames) {
			break
		}
		frame := frames[i].Image()
		c.drawPanel(page, frame, img)

		plan, ok := domain.PlanAt(plans, i)
		if !ok {
			continue
		}
		if plan.SpeechBubble != "" {
			drawSpeechBubble(page, frame, plan.SpeechBubble, faces.bubble, st)
		}
		if plan.SoundEffect != "" {
			drawSoundEffect(page, frame, plan.SoundEffect, faces.effect, st)
		}
	}

	// 8. ページの外枠
	strokeRect(page, page.Bounds(), st.PageBorder, st.PaperInk)

	return page, nil
}

// ComposePNG は Compose の結果を PNG にエンコードして返します。
func (c *Composer) ComposePNG(images []image.Image, plans []domain.PanelPlan, kind layout.Kind, title string, pageSize image.Point) ([]byte, error) {
	page, err := c.Compose(images, plans, kind, title, pageSize)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, page); err != nil {
		return nil, fmt.Errorf("ページのPNGエンコードに失敗しました: %w", err)
	}
	return buf.Bytes(), nil
}

// drawPanel は影付きの白い下地、aspect-fill した画像、枠線の順に1パネルを描きます。
func (c *Composer) drawPanel(page *image.RGBA, frame image.Rectangle, img image.Image) {
	st := c.style
	shadow := frame.Add(image.Pt(st.ShadowOffset, st.ShadowOffset))
	fillRect(page, shadow, st.ShadowColor)
	fillRect(page, frame, st.PanelBacking)
	if img != nil {
		drawAspectFill(page, frame.Inset(st.BorderWidth), img)
	}
	strokeRect(page, frame, st.BorderWidth, st.PaperInk)
}

// ContentArea はページ端からマージン分、上端はさらにタイトル帯の分だけ縮めたコンテンツ領域を返します。
func ContentArea(pageSize image.Point, banner, margin int) layout.Rect {
	return layout.Rect{
		X: float64(margin),
		Y: float64(banner + margin),
		W: float64(pageSize.X - 2*margin),
		H: float64(pageSize.Y - banner - 2*margin),
	}
}
