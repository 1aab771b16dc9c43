package gemini

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/shouni/dreamcatcher-kit/pkg/domain"
)

const (
	defaultRewriteTemperature = float32(0.7)
	rewriteSystemPrompt       = "You rewrite dream journal entries into calm, gentle, present-tense narratives. Keep every image and event from the original, remove anything frightening or graphic, and answer with the rewritten narrative only."
)

// Rewriter は夢の文章を穏やかなナラティブに書き換えます。
type Rewriter struct {
	factory textFactory

	once sync.Once
	gen  textFunc
	err  error
}

// NewRewriter は Rewriter を生成します。
func NewRewriter(apiKey, model string) *Rewriter {
	return &Rewriter{factory: newTextFactory(apiKey, model, defaultRewriteTemperature)}
}

func (w *Rewriter) generator(ctx context.Context) (textFunc, error) {
	w.once.Do(func() {
		w.gen, w.err = w.factory(ctx)
	})
	return w.gen, w.err
}

// Rewrite は text を tone (空なら "calm") の雰囲気で書き換えた文章を返すのだ。
func (w *Rewriter) Rewrite(ctx context.Context, text, tone string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("書き換える文章が空です: %w", domain.ErrInvalidArgument)
	}
	if tone = strings.TrimSpace(tone); tone == "" {
		tone = "calm"
	}

	gen, err := w.generator(ctx)
	if err != nil {
		return "", err
	}

	prompt := fmt.Sprintf("%s\n\nTone: %s\n\nDream:\n%s", rewriteSystemPrompt, tone, text)
	resp, err := gen(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("文章の書き換えに失敗しました: %w", err)
	}

	out := strings.TrimSpace(resp)
	if out == "" {
		return "", fmt.Errorf("書き換え結果が空でした")
	}
	return out, nil
}
