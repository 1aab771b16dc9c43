package composer

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"

	"github.com/shouni/dreamcatcher-kit/pkg/domain"
	"github.com/shouni/dreamcatcher-kit/pkg/layout"
	_ "golang.org/x/image/webp"
)

// MaxPanelsPerPage は1ページに載せるパネルの最大数です。dynamic レイアウトの固定テーブルと揃えています。
const MaxPanelsPerPage = 5

// DecodeImages は生成画像のバイト列を image.Image に変換します。
// 解釈できない画像はスキップし、対応する PanelPlan も一緒に取り除いた結果を返すのだ。
func DecodeImages(images []domain.GeneratedImage, plans []domain.PanelPlan) ([]image.Image, []domain.PanelPlan) {
	sorted := make([]domain.GeneratedImage, len(images))
	copy(sorted, images)
	domain.SortImages(sorted)

	decoded := make([]image.Image, 0, len(sorted))
	kept := make([]domain.PanelPlan, 0, len(sorted))
	for _, gi := range sorted {
		img, _, err := image.Decode(bytes.NewReader(gi.Data))
		if err != nil {
			slog.Warn("画像のデコードに失敗したためパネルをスキップします", "sequence_index", gi.SequenceIndex, "error", err)
			continue
		}
		decoded = append(decoded, img)
		if plan, ok := domain.PlanAt(plans, gi.SequenceIndex); ok {
			kept = append(kept, plan)
		} else {
			kept = append(kept, domain.PanelPlan{PanelNumber: gi.SequenceIndex + 1})
		}
	}
	return decoded, kept
}

// ComposePages は生成画像を MaxPanelsPerPage ごとに分割し、ページ番号付きの ComicPage 群を返します。
func (c *Composer) ComposePages(images []domain.GeneratedImage, plans []domain.PanelPlan, kind layout.Kind, title string, pageSize image.Point) ([]domain.ComicPage, error) {
	decoded, kept := DecodeImages(images, plans)
	if len(decoded) == 0 {
		return nil, fmt.Errorf("合成できる画像がありません: %w", domain.ErrEmptyInput)
	}

	totalPages := (len(decoded) + MaxPanelsPerPage - 1) / MaxPanelsPerPage
	pages := make([]domain.ComicPage, 0, totalPages)
	for i := 0; i < len(decoded); i += MaxPanelsPerPage {
		end := min(i+MaxPanelsPerPage, len(decoded))
		pageNum := i/MaxPanelsPerPage + 1

		pageTitle := title
		if title != "" && totalPages > 1 {
			pageTitle = fmt.Sprintf("%s (Page %d/%d)", title, pageNum, totalPages)
		}

		data, err := c.ComposePNG(decoded[i:end], kept[i:end], kind, pageTitle, pageSize)
		if err != nil {
			return nil, fmt.Errorf("ページ %d の合成に失敗しました: %w", pageNum, err)
		}
		pages = append(pages, domain.ComicPage{PageNumber: pageNum, Data: data})
	}
	return pages, nil
}
