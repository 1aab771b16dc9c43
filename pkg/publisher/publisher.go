package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/shouni/dreamcatcher-kit/pkg/asset"
	"github.com/shouni/dreamcatcher-kit/pkg/backend"
	"github.com/shouni/dreamcatcher-kit/pkg/domain"
)

const defaultUploadConcurrency = 4

// Uploader は保存した画像をバックエンドへ送る機能です。backend.Client が満たします。
type Uploader interface {
	UploadImage(ctx context.Context, filename string, data []byte, mimeType string) (string, error)
	CreateVisualization(ctx context.Context, v backend.Visualization) error
}

// Options はパブリッシュ動作を制御する設定項目です。
type Options struct {
	OutputDir string
	Upload    bool
}

// PublishResult はパブリッシュ処理の結果として生成されたファイルの情報を保持します。
type PublishResult struct {
	MarkdownPath string
	MetadataPath string
	PanelPaths   []string
	PagePaths    []string
	UploadedURLs []string
}

// DreamPublisher は夢の生成物の永続化とアップロードを担います。
type DreamPublisher struct {
	writer      OutputWriter
	uploader    Uploader
	concurrency int
}

// NewDreamPublisher は DreamPublisher を生成します。uploader は nil でも構いません。
func NewDreamPublisher(writer OutputWriter, uploader Uploader) *DreamPublisher {
	return &DreamPublisher{
		writer:      writer,
		uploader:    uploader,
		concurrency: defaultUploadConcurrency,
	}
}

// metadata は dream.json に書き出す内容です。画像本体は含めません。
type metadata struct {
	ID            string            `json:"id"`
	Text          string            `json:"text"`
	RewrittenText string            `json:"rewritten_text,omitempty"`
	Tone          string            `json:"tone,omitempty"`
	ImageStyle    domain.ImageStyle `json:"image_style,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	Panels        []panelMeta       `json:"panels,omitempty"`
	Pages         []string          `json:"pages,omitempty"`
}

type panelMeta struct {
	File          string `json:"file"`
	Prompt        string `json:"prompt"`
	SequenceIndex int    `json:"sequence_index"`
}

// Publish はパネルとページの保存、メタデータと Markdown の書き出し、必要ならアップロードを行うのだ！
func (p *DreamPublisher) Publish(ctx context.Context, d domain.Dream, opts Options) (PublishResult, error) {
	result := PublishResult{}
	imgDir, err := asset.ResolveOutputPath(opts.OutputDir, asset.DefaultImageDir)
	if err != nil {
		return result, err
	}

	// 0. 前回の実行で残ったパネルとページを消す。枚数や拡張子が変わっても古い画像が混ざらないのだ
	if cleaner, ok := p.writer.(OutputCleaner); ok {
		removed, err := cleaner.RemoveMatching(ctx, imgDir, asset.PanelFileRegex, asset.PageFileRegex)
		if err != nil {
			return result, err
		}
		if removed > 0 {
			slog.Debug("古い画像を削除しました", "dir", imgDir, "files", removed)
		}
	}

	// 1. パネル画像の保存
	images := d.SortedImages()
	for i, img := range images {
		fullPath, err := asset.PanelPath(imgDir, i+1, img.MimeType)
		if err != nil {
			return result, fmt.Errorf("出力パスの解決に失敗しました: %w", err)
		}
		if err := p.writer.Write(ctx, fullPath, img.Data); err != nil {
			return result, fmt.Errorf("画像の書き込みに失敗しました %s: %w", fullPath, err)
		}
		result.PanelPaths = append(result.PanelPaths, fullPath)
	}

	// 2. 合成ページの保存
	for _, page := range d.SortedPages() {
		fullPath, err := asset.PagePath(imgDir, page.PageNumber)
		if err != nil {
			return result, fmt.Errorf("出力パスの解決に失敗しました: %w", err)
		}
		if err := p.writer.Write(ctx, fullPath, page.Data); err != nil {
			return result, fmt.Errorf("ページの書き込みに失敗しました %s: %w", fullPath, err)
		}
		result.PagePaths = append(result.PagePaths, fullPath)
	}

	// 3. メタデータと Markdown
	if err := p.writeMetadata(ctx, d, images, &result, opts.OutputDir); err != nil {
		return result, err
	}
	markdown, err := asset.ResolveOutputPath(opts.OutputDir, asset.DefaultDreamMarkdown)
	if err != nil {
		return result, err
	}
	content := buildMarkdown(d, relativePaths(result.PanelPaths), relativePaths(result.PagePaths))
	if err := p.writer.Write(ctx, markdown, []byte(content)); err != nil {
		return result, fmt.Errorf("markdownファイルの書き込みに失敗しました: %w", err)
	}
	result.MarkdownPath = markdown

	// 4. アップロード
	if opts.Upload && p.uploader != nil {
		urls, err := p.upload(ctx, d, images)
		if err != nil {
			return result, err
		}
		result.UploadedURLs = urls
	}

	slog.Info("夢の生成物を保存しました", "dream_id", d.ID, "panels", len(result.PanelPaths), "pages", len(result.PagePaths), "uploaded", len(result.UploadedURLs))
	return result, nil
}

func (p *DreamPublisher) writeMetadata(ctx context.Context, d domain.Dream, images []domain.GeneratedImage, result *PublishResult, outputDir string) error {
	meta := metadata{
		ID:            d.ID,
		Text:          d.Text,
		RewrittenText: d.RewrittenText,
		Tone:          d.Tone,
		ImageStyle:    d.ImageStyle,
		CreatedAt:     d.CreatedAt,
		Pages:         relativePaths(result.PagePaths),
	}
	rel := relativePaths(result.PanelPaths)
	for i, img := range images {
		meta.Panels = append(meta.Panels, panelMeta{File: rel[i], Prompt: img.Prompt, SequenceIndex: img.SequenceIndex})
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("メタデータのエンコードに失敗しました: %w", err)
	}
	metaPath, err := asset.ResolveOutputPath(outputDir, asset.DefaultDreamJSON)
	if err != nil {
		return err
	}
	if err := p.writer.Write(ctx, metaPath, data); err != nil {
		return fmt.Errorf("メタデータの書き込みに失敗しました: %w", err)
	}
	result.MetadataPath = metaPath
	return nil
}

// upload はページがあればページを、無ければパネルを並列でアップロードし、可視化レコードを登録します。
// 返す URL の順序は入力の順序と同じです。
func (p *DreamPublisher) upload(ctx context.Context, d domain.Dream, images []domain.GeneratedImage) ([]string, error) {
	type item struct {
		name string
		data []byte
		mime string
	}
	var (
		items []item
		kind  string
	)
	if pages := d.SortedPages(); len(pages) > 0 {
		kind = "comic"
		for _, pg := range pages {
			items = append(items, item{fmt.Sprintf("dream_page_%d.png", pg.PageNumber), pg.Data, "image/png"})
		}
	} else {
		kind = "panels"
		for i, img := range images {
			items = append(items, item{fmt.Sprintf("panel_%d%s", i+1, asset.ExtensionFor(img.MimeType)), img.Data, img.MimeType})
		}
	}
	if len(items) == 0 {
		return nil, nil
	}

	urls := make([]string, len(items))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(p.concurrency)
	for i, it := range items {
		eg.Go(func() error {
			url, err := p.uploader.UploadImage(egCtx, d.ID+"_"+it.name, it.data, it.mime)
			if err != nil {
				return fmt.Errorf("%s のアップロードに失敗しました: %w", it.name, err)
			}
			urls[i] = url
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	if err := p.uploader.CreateVisualization(ctx, backend.Visualization{
		DreamID: d.ID,
		Kind:    kind,
		URLs:    urls,
		Status:  "completed",
	}); err != nil {
		return urls, err
	}
	return urls, nil
}

// relativePaths は Markdown から参照するための images/ 以下の相対パスに変換します。
func relativePaths(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = path.Join(asset.DefaultImageDir, filepath.Base(p))
	}
	return out
}
