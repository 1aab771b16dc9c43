package asset

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/shouni/go-utils/urlpath"
)

const (
	// DefaultImageDir は生成された画像を格納するデフォルトのディレクトリ名です。
	DefaultImageDir = "images"
	// DefaultDreamJSON は夢のメタデータを書き出すファイル名です。
	DefaultDreamJSON = "dream.json"
	// DefaultDreamMarkdown は夢の文章と画像をまとめた Markdown のファイル名です。
	DefaultDreamMarkdown = "dream.md"
	// DefaultPanelFileName はパネル画像の共通のベースファイル名です。
	DefaultPanelFileName = "panel.png"
	// DefaultPageFileName は合成ページの共通のベースファイル名です。
	DefaultPageFileName = "dream_page.png"
)

var (
	// PanelFileRegex はパネル画像 (panel_1.png 等) に一致します
	PanelFileRegex = createIndexedRegex(DefaultPanelFileName)
	// PageFileRegex はページ画像 (dream_page_1.png 等) に一致します
	PageFileRegex = createIndexedRegex(DefaultPageFileName)
)

// ResolveOutputPath は、ベースとなるディレクトリパスとファイル名から最終的な出力パスを生成します。
func ResolveOutputPath(baseDir, fileName string) (string, error) {
	return urlpath.ResolveOutputPath(baseDir, fileName)
}

// GenerateIndexedPath は、指定されたベースパスの拡張子の前に連番を挿入します。
// 例: "path/to/panel.png", 1 -> "path/to/panel_1.png"
func GenerateIndexedPath(basePath string, index int) (string, error) {
	return urlpath.GenerateIndexedPath(basePath, index)
}

// PanelPath は n 枚目 (1 始まり) のパネル画像の保存先を返します。拡張子は MIME タイプに合わせるのだ。
func PanelPath(baseDir string, n int, mimeType string) (string, error) {
	base, err := ResolveOutputPath(baseDir, strings.TrimSuffix(DefaultPanelFileName, ".png")+ExtensionFor(mimeType))
	if err != nil {
		return "", err
	}
	return GenerateIndexedPath(base, n)
}

// PagePath は n ページ目 (1 始まり) の合成ページの保存先を返します。
func PagePath(baseDir string, n int) (string, error) {
	base, err := ResolveOutputPath(baseDir, DefaultPageFileName)
	if err != nil {
		return "", err
	}
	return GenerateIndexedPath(base, n)
}

// ExtensionFor は画像の MIME タイプに対応する拡張子を返します。不明なら ".png" です。
func ExtensionFor(mimeType string) string {
	switch strings.ToLower(mimeType) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}

// createIndexedRegex は、ファイル名に基づきインデックス付きファイル用の正規表現を生成します。
// 例: "panel.png" -> ^panel_\d+\.(png|jpg|webp)$
func createIndexedRegex(fileName string) *regexp.Regexp {
	ext := filepath.Ext(fileName)
	baseName := strings.TrimSuffix(fileName, ext)
	pattern := fmt.Sprintf(`^%s_\d+\.(png|jpg|webp)$`, regexp.QuoteMeta(baseName))
	return regexp.MustCompile(pattern)
}
