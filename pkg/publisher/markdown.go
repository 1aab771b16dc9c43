package publisher

import (
	"fmt"
	"strings"

	"github.com/shouni/dreamcatcher-kit/pkg/domain"
)

// buildMarkdown は夢の文章と保存済み画像への相対パスから Markdown を組み立てます。
// ページがあればページを、無ければパネルを並べるのだ。
func buildMarkdown(d domain.Dream, panelPaths, pagePaths []string) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# %s\n\n", title(d)))
	sb.WriteString(fmt.Sprintf("- recorded: %s\n", d.CreatedAt.Format("2006-01-02 15:04")))
	if d.Tone != "" {
		sb.WriteString(fmt.Sprintf("- tone: %s\n", d.Tone))
	}
	if d.ImageStyle != "" {
		sb.WriteString(fmt.Sprintf("- style: %s\n", d.ImageStyle))
	}
	sb.WriteString("\n")

	sb.WriteString(quote(d.DisplayText()))
	if d.RewrittenText != "" {
		sb.WriteString("\n<details><summary>original</summary>\n\n")
		sb.WriteString(quote(d.Text))
		sb.WriteString("\n</details>\n")
	}
	sb.WriteString("\n")

	if len(pagePaths) > 0 {
		for i, p := range pagePaths {
			sb.WriteString(fmt.Sprintf("## Page %d\n\n![page %d](%s)\n\n", i+1, i+1, p))
		}
		return sb.String()
	}

	images := d.SortedImages()
	for i, p := range panelPaths {
		sb.WriteString(fmt.Sprintf("## Panel %d\n\n![panel %d](%s)\n", i+1, i+1, p))
		if i < len(images) && images[i].Prompt != "" {
			sb.WriteString(fmt.Sprintf("\n_%s_\n", strings.TrimSpace(images[i].Prompt)))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// title は本文の最初の文を見出しにします。
func title(d domain.Dream) string {
	text := strings.TrimSpace(d.DisplayText())
	if i := strings.IndexAny(text, ".!?\n"); i > 0 {
		text = text[:i]
	}
	if r := []rune(text); len(r) > 48 {
		text = string(r[:48]) + "…"
	}
	if text == "" {
		return "Dream"
	}
	return text
}

func quote(text string) string {
	var sb strings.Builder
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		sb.WriteString("> ")
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	return sb.String()
}
