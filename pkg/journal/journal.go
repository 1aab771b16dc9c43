package journal

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shouni/dreamcatcher-kit/pkg/domain"
	"github.com/shouni/dreamcatcher-kit/pkg/reminder"
	"github.com/shouni/dreamcatcher-kit/pkg/store"
)

// Rewriter は夢の文章を別の雰囲気に書き換える機能です。
type Rewriter interface {
	Rewrite(ctx context.Context, text, tone string) (string, error)
}

// Service は夢日記のエントリを管理するアプリケーション層です。
// 変更のたびに全件を Store に保存し直します。
type Service struct {
	store     store.Store
	scheduler reminder.Scheduler
	rewriter  Rewriter
	now       func() time.Time

	mu sync.Mutex
}

// Option は Service の設定を変更する関数です。
type Option func(*Service)

// WithScheduler は通知の予約先を設定します。
func WithScheduler(s reminder.Scheduler) Option {
	return func(svc *Service) { svc.scheduler = s }
}

// WithRewriter は文章の書き換えに使う機能を設定します。
func WithRewriter(r Rewriter) Option {
	return func(svc *Service) { svc.rewriter = r }
}

// WithClock は時計を差し替えます。
func WithClock(now func() time.Time) Option {
	return func(svc *Service) { svc.now = now }
}

// NewService は Service を生成します。
func NewService(st store.Store, opts ...Option) *Service {
	svc := &Service{store: st, now: time.Now}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Create は新しい夢を記録します。
func (s *Service) Create(ctx context.Context, text, tone string) (domain.Dream, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Dream{}, fmt.Errorf("夢の内容が空です: %w", domain.ErrInvalidArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dreams, err := s.store.Load(ctx)
	if err != nil {
		return domain.Dream{}, err
	}
	d := domain.NewDream(text, strings.TrimSpace(tone), s.now())
	dreams = append(dreams, d)
	if err := s.store.Save(ctx, dreams); err != nil {
		return domain.Dream{}, err
	}
	slog.Info("夢を記録しました", "dream_id", d.ID)
	return d, nil
}

// Get は ID で夢を取得します。
func (s *Service) Get(ctx context.Context, id string) (domain.Dream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dreams, err := s.store.Load(ctx)
	if err != nil {
		return domain.Dream{}, err
	}
	i := indexOf(dreams, id)
	if i < 0 {
		return domain.Dream{}, fmt.Errorf("%s: %w", id, domain.ErrNotFound)
	}
	return dreams[i], nil
}

// List は全エントリを新しい順に返します。
func (s *Service) List(ctx context.Context) ([]domain.Dream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dreams, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(dreams, func(i, j int) bool {
		return dreams[i].CreatedAt.After(dreams[j].CreatedAt)
	})
	return dreams, nil
}

// SaveRewrite は書き換え後の文章を保存します。空の文章は受け付けません。
func (s *Service) SaveRewrite(ctx context.Context, id, rewritten string) (domain.Dream, error) {
	rewritten = strings.TrimSpace(rewritten)
	if rewritten == "" {
		return domain.Dream{}, fmt.Errorf("書き換え後の文章が空です: %w", domain.ErrInvalidArgument)
	}
	return s.update(ctx, id, func(d *domain.Dream) error {
		d.RewrittenText = rewritten
		return nil
	})
}

// EditRewrite はユーザーが手で直した書き換えを保存します。空にすると元の文章に戻るのだ。
func (s *Service) EditRewrite(ctx context.Context, id, edited string) (domain.Dream, error) {
	return s.update(ctx, id, func(d *domain.Dream) error {
		d.RewrittenText = strings.TrimSpace(edited)
		return nil
	})
}

// Rewrite は設定された Rewriter で文章を書き換えて保存します。
func (s *Service) Rewrite(ctx context.Context, id, tone string) (domain.Dream, error) {
	if s.rewriter == nil {
		return domain.Dream{}, fmt.Errorf("書き換え機能が設定されていません: %w", domain.ErrProviderUnavailable)
	}
	d, err := s.Get(ctx, id)
	if err != nil {
		return domain.Dream{}, err
	}
	if tone == "" {
		tone = d.Tone
	}
	// 外部呼び出しの間はロックを持たない
	rewritten, err := s.rewriter.Rewrite(ctx, d.Text, tone)
	if err != nil {
		return domain.Dream{}, err
	}
	return s.SaveRewrite(ctx, id, rewritten)
}

// AttachImages は生成画像一式と、その生成で使ったパネル構成を差し替えます。
// 画像は SequenceIndex 順に並べて保存します。plans が nil なら前の構成は消すのだ。合成済みページも消えます。
func (s *Service) AttachImages(ctx context.Context, id string, images []domain.GeneratedImage, plans []domain.PanelPlan, style domain.ImageStyle) (domain.Dream, error) {
	sorted := make([]domain.GeneratedImage, len(images))
	copy(sorted, images)
	domain.SortImages(sorted)
	return s.update(ctx, id, func(d *domain.Dream) error {
		d.Images = sorted
		d.Plans = append([]domain.PanelPlan(nil), plans...)
		d.Pages = nil // 古い画像から作ったページは使えない
		d.ImageStyle = style
		return nil
	})
}

// AttachPages は合成済みページ一式を差し替えます。
func (s *Service) AttachPages(ctx context.Context, id string, pages []domain.ComicPage) (domain.Dream, error) {
	return s.update(ctx, id, func(d *domain.Dream) error {
		d.Pages = append([]domain.ComicPage(nil), pages...)
		return nil
	})
}

// ScheduleReminder は夢に通知を予約します。
func (s *Service) ScheduleReminder(ctx context.Context, id string, at time.Time, category reminder.Category) error {
	if s.scheduler == nil {
		return fmt.Errorf("通知の予約先が設定されていません: %w", domain.ErrProviderUnavailable)
	}
	d, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	return s.scheduler.Schedule(reminder.Reminder{
		DreamID:  d.ID,
		At:       at,
		Category: category,
		Message:  summary(d.DisplayText()),
	})
}

// Delete は夢を削除し、予約済みの通知も取り消します。
func (s *Service) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dreams, err := s.store.Load(ctx)
	if err != nil {
		return err
	}
	i := indexOf(dreams, id)
	if i < 0 {
		return fmt.Errorf("%s: %w", id, domain.ErrNotFound)
	}
	dreams = append(dreams[:i], dreams[i+1:]...)
	if err := s.store.Save(ctx, dreams); err != nil {
		return err
	}
	if s.scheduler != nil {
		s.scheduler.Cancel(id)
	}
	slog.Info("夢を削除しました", "dream_id", id)
	return nil
}

// update は1件を読み込み、mutate を適用して全件を保存します。
func (s *Service) update(ctx context.Context, id string, mutate func(*domain.Dream) error) (domain.Dream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dreams, err := s.store.Load(ctx)
	if err != nil {
		return domain.Dream{}, err
	}
	i := indexOf(dreams, id)
	if i < 0 {
		return domain.Dream{}, fmt.Errorf("%s: %w", id, domain.ErrNotFound)
	}
	if err := mutate(&dreams[i]); err != nil {
		return domain.Dream{}, err
	}
	if err := s.store.Save(ctx, dreams); err != nil {
		return domain.Dream{}, err
	}
	return dreams[i], nil
}

func indexOf(dreams []domain.Dream, id string) int {
	for i := range dreams {
		if dreams[i].ID == id {
			return i
		}
	}
	return -1
}

// summary は通知本文用に文章の先頭だけを切り出します。
func summary(text string) string {
	const maxRunes = 60
	r := []rune(strings.TrimSpace(text))
	if len(r) <= maxRunes {
		return string(r)
	}
	return string(r[:maxRunes]) + "…"
}
