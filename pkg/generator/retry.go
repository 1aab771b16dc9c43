package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	imagedom "github.com/shouni/gemini-image-kit/pkg/domain"

	"github.com/shouni/dreamcatcher-kit/pkg/domain"
)

// newBackOff はパネル1枚分のリトライ間隔 (既定で 1s, 2s) を作ります。揺らぎは入れません。
func (p *Pipeline) newBackOff(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.cfg.InitialBackoff
	eb.Multiplier = p.cfg.BackoffFactor
	eb.RandomizationFactor = 0
	eb.MaxInterval = time.Hour
	eb.MaxElapsedTime = 0
	eb.Reset()

	retries := p.cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(eb, uint64(retries)), ctx)
}

// permanent はリトライしても結果が変わらないエラーかどうかを判定します。
func permanent(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return true
	}
	var pe interface{ Permanent() bool }
	if errors.As(err, &pe) && pe.Permanent() {
		return true
	}
	return errors.Is(err, domain.ErrDecodeFailed) ||
		errors.Is(err, domain.ErrCancelled) ||
		errors.Is(err, domain.ErrInvalidArgument)
}

// renderWithRetry は同じプロンプトで最大 1+MaxRetries 回まで描画を試みます。
// キャンセルはリトライの各試行の直前でも確認するのだ。
func (s *Session) renderWithRetry(ctx context.Context, r Renderer, prompt string, style domain.ImageStyle, logger *slog.Logger) (*imagedom.ImageResponse, error) {
	var (
		resp    *imagedom.ImageResponse
		attempt int
	)

	op := func() error {
		if s.cancelRequested(ctx) {
			return backoff.Permanent(domain.ErrCancelled)
		}
		attempt++
		out, err := r.RenderImage(ctx, prompt, style)
		if err != nil {
			if s.cancelRequested(ctx) {
				return backoff.Permanent(domain.ErrCancelled)
			}
			if permanent(ctx, err) {
				return backoff.Permanent(err)
			}
			return err
		}
		if out == nil || len(out.Data) == 0 {
			return backoff.Permanent(fmt.Errorf("空の画像が返されました: %w", domain.ErrDecodeFailed))
		}
		resp = out
		return nil
	}

	notify := func(err error, wait time.Duration) {
		logger.Warn("パネル描画に失敗したためリトライします", "attempt", attempt, "wait", wait, "error", err)
	}

	if err := backoff.RetryNotifyWithTimer(op, s.p.newBackOff(ctx), notify, s.p.timer); err != nil {
		if s.cancelRequested(ctx) {
			return nil, domain.ErrCancelled
		}
		if errors.Is(err, domain.ErrDecodeFailed) {
			return nil, err
		}
		return nil, fmt.Errorf("%d 回試行しましたが失敗しました: %w: %w", attempt, domain.ErrRenderFailed, err)
	}
	return resp, nil
}
