package domain

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Dream は夢日記の1エントリを表します。
// Images と Pages は挿入順ではなく、明示的なインデックスで並べて扱います。
type Dream struct {
	ID            string           `json:"id"`
	Text          string           `json:"text"`
	RewrittenText string           `json:"rewritten_text,omitempty"`
	Tone          string           `json:"tone,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	Images        []GeneratedImage `json:"images,omitempty"`
	ImageStyle    ImageStyle       `json:"image_style,omitempty"`
	Plans         []PanelPlan      `json:"plans,omitempty"` // Images と同じ実行で使ったパネル構成 (PanelNumber-1 が SequenceIndex)
	Pages         []ComicPage      `json:"pages,omitempty"`
}

// NewDream は入力テキストから新しい Dream を生成します。
func NewDream(text, tone string, now time.Time) Dream {
	return Dream{
		ID:        uuid.NewString(),
		Text:      text,
		Tone:      tone,
		CreatedAt: now,
	}
}

// SortedImages は SequenceIndex 順に並べた画像のコピーを返します。
func (d Dream) SortedImages() []GeneratedImage {
	out := make([]GeneratedImage, len(d.Images))
	copy(out, d.Images)
	SortImages(out)
	return out
}

// SortedPages は PageNumber 順に並べたページのコピーを返します。
func (d Dream) SortedPages() []ComicPage {
	out := make([]ComicPage, len(d.Pages))
	copy(out, d.Pages)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PageNumber < out[j].PageNumber
	})
	return out
}

// DisplayText は書き換え後のテキストがあればそれを、なければ元の文章を返すのだ。
func (d Dream) DisplayText() string {
	if d.RewrittenText != "" {
		return d.RewrittenText
	}
	return d.Text
}

// GeneratedImage は生成された1パネル分の画像です。作成後は変更しません。
type GeneratedImage struct {
	ID            string     `json:"id"`
	Data          []byte     `json:"data"`
	MimeType      string     `json:"mime_type,omitempty"`
	Prompt        string     `json:"prompt"`
	Style         ImageStyle `json:"style"`
	SequenceIndex int        `json:"sequence_index"`
	CreatedAt     time.Time  `json:"created_at"`
}

// NewGeneratedImage は新しい ID を払い出して GeneratedImage を生成します。
func NewGeneratedImage(data []byte, mimeType, prompt string, style ImageStyle, index int, now time.Time) GeneratedImage {
	return GeneratedImage{
		ID:            uuid.NewString(),
		Data:          data,
		MimeType:      mimeType,
		Prompt:        prompt,
		Style:         style,
		SequenceIndex: index,
		CreatedAt:     now,
	}
}

// SortImages は画像スライスを SequenceIndex 順に安定ソートします。
func SortImages(images []GeneratedImage) {
	sort.SliceStable(images, func(i, j int) bool {
		return images[i].SequenceIndex < images[j].SequenceIndex
	})
}

// ComicPage は複数パネルを合成した1枚のページ画像です。
type ComicPage struct {
	PageNumber int    `json:"page_number"`
	Data       []byte `json:"data"`
}

// Scene は1回の生成実行の中だけで使う、ナラティブの断片です。
type Scene struct {
	Text  string
	Index int
}
