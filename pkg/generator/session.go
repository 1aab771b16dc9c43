package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/shouni/dreamcatcher-kit/pkg/domain"
	"github.com/shouni/dreamcatcher-kit/pkg/prompts"
)

// Session は1本の生成実行とその観測可能な状態を保持します。
// 同時に走る実行は常に1本で、新しい Generate は前の実行を中断してから始まります。
type Session struct {
	p       *Pipeline
	limiter *rate.Limiter

	runMu sync.Mutex // 実行そのものの直列化

	mu        sync.Mutex
	state     State
	running   bool
	cancelled bool
	progress  float64
	status    string
	results   []domain.GeneratedImage
	plans     []domain.PanelPlan
	lastErr   error
	cancel    context.CancelFunc
	observers []Observer
}

func newSession(p *Pipeline) *Session {
	limit := rate.Inf
	if p.cfg.PacingInterval > 0 {
		limit = rate.Every(p.cfg.PacingInterval)
	}
	return &Session{
		p:       p,
		limiter: rate.NewLimiter(limit, 1),
		state:   StateIdle,
		status:  "待機中",
	}
}

// Observe は状態変化の通知先を登録します。
func (s *Session) Observe(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

// IsRunning は実行中かどうかを返します。
func (s *Session) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Progress は 0〜1 の進捗を返します。
func (s *Session) Progress() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress
}

// Status は人が読むための現在の状況です。
func (s *Session) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// State は現在の状態を返します。
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastError は直近の実行の終端エラーです。
func (s *Session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Results はこれまでに完成したパネルを SequenceIndex 順に返します。
func (s *Session) Results() []domain.GeneratedImage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.GeneratedImage, len(s.results))
	copy(out, s.results)
	return out
}

// Plans は直近の実行で使ったパネル構成を返します。ページ合成のオーバーレイに使うのだ。
func (s *Session) Plans() []domain.PanelPlan {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.PanelPlan, len(s.plans))
	copy(out, s.plans)
	return out
}

// Snapshot は現在の状態をまとめて返します。
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		State:    s.state,
		Running:  s.running,
		Progress: s.progress,
		Status:   s.status,
		Results:  len(s.results),
		Err:      s.lastErr,
	}
}

// Cancel は実行中の生成を中断します。ブロックせず、running は直ちに false になります。
// 実行側は次のチェックポイントでこれを検知し、以降は描画を呼びません。
func (s *Session) Cancel() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.cancelled = true
	s.running = false
	s.status = "中断しています"
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if s.p.local != nil {
		s.p.local.Cancel()
	}
	s.notify()
}

// Generate はナラティブからパネル画像を順番に生成し、SequenceIndex 順で返します。
// 1枚も成功しなければ domain.ErrNoImagesGenerated、中断されれば domain.ErrCancelled を返すのだ。
func (s *Session) Generate(ctx context.Context, text string, style domain.ImageStyle) ([]domain.GeneratedImage, error) {
	// 前の実行を止めてから、それが抜けるのを待つ
	s.Cancel()
	s.runMu.Lock()
	defer s.runMu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	s.cancel = cancel
	s.running = true
	s.cancelled = false
	s.progress = 0
	s.results = nil
	s.plans = nil
	s.lastErr = nil
	s.state = StatePreparing
	s.status = "準備しています"
	s.mu.Unlock()
	s.notify()

	startTime := time.Now()
	images, err := s.run(runCtx, text, style)
	s.finish(images, err)

	if err != nil {
		if errors.Is(err, domain.ErrCancelled) {
			slog.Info("生成を中断しました", "duration", time.Since(startTime).Round(time.Millisecond))
		} else {
			slog.Error("生成に失敗しました", "error", err)
		}
		return nil, err
	}
	slog.Info("生成が完了しました", "images", len(images), "duration", time.Since(startTime).Round(time.Millisecond))
	return images, nil
}

// run は1回分の生成の本体です。
func (s *Session) run(ctx context.Context, text string, style domain.ImageStyle) ([]domain.GeneratedImage, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, s.interrupted(ctx, err)
	}

	rt, err := s.chooseRoute(ctx)
	if err != nil {
		return nil, err
	}
	if s.cancelRequested(ctx) {
		return nil, domain.ErrCancelled
	}

	s.transition(StateRequestingPrompts, "パネルの構成を準備しています")
	plans, err := s.planPanels(ctx, rt, text, style)
	if err != nil {
		return nil, err
	}
	if s.cancelRequested(ctx) {
		return nil, domain.ErrCancelled
	}

	s.mu.Lock()
	s.plans = plans
	s.mu.Unlock()
	s.transition(StateRenderingPanels, fmt.Sprintf("パネルを描画しています (0/%d)", len(plans)))

	slots := make([]*domain.GeneratedImage, len(plans))
	for i, plan := range plans {
		if s.cancelRequested(ctx) {
			return nil, domain.ErrCancelled
		}
		if i > 0 {
			if err := s.limiter.Wait(ctx); err != nil {
				return nil, s.interrupted(ctx, err)
			}
		}

		logger := slog.With("route", rt.name, "panel_index", i+1, "total", len(plans))
		logger.Info("Starting panel generation")
		panelStart := time.Now()

		resp, err := s.renderWithRetry(ctx, rt.renderer, plan.ImagePrompt, style, logger)
		switch {
		case errors.Is(err, domain.ErrCancelled):
			return nil, domain.ErrCancelled
		case errors.Is(err, domain.ErrDecodeFailed):
			logger.Warn("画像データを解釈できなかったためパネルをスキップします", "error", err)
		case err != nil:
			logger.Warn("パネルの描画を諦めました", "error", err)
		default:
			img := domain.NewGeneratedImage(resp.Data, resp.MimeType, plan.ImagePrompt, style, i, s.p.now())
			slots[i] = &img
			logger.Info("Panel generation completed", "duration", time.Since(panelStart).Round(time.Millisecond))
		}

		if !s.publish(slots, i+1, len(plans)) {
			return nil, domain.ErrCancelled
		}
	}

	if s.cancelRequested(ctx) {
		return nil, domain.ErrCancelled
	}
	s.transition(StateAssembling, "結果をまとめています")
	results := compact(slots)
	if len(results) == 0 {
		return nil, fmt.Errorf("%d パネルすべての描画に失敗しました: %w", len(plans), domain.ErrNoImagesGenerated)
	}
	return results, nil
}

// route は1回の実行で使う生成経路です。
type route struct {
	name     string
	planner  Planner
	renderer Renderer
}

// chooseRoute は実行の冒頭で一度だけ経路を決めます。
// 認証済みならリモート、そうでなければローカル (未ロードなら読み込み) を使うのだ。
func (s *Session) chooseRoute(ctx context.Context) (route, error) {
	if s.p.remote != nil && s.p.remote.IsAuthenticated() {
		return route{name: PathRemote, planner: s.p.remote, renderer: s.p.remote}, nil
	}
	if s.p.local == nil {
		return route{}, fmt.Errorf("リモートは未認証で、ローカルの描画手段もありません: %w", domain.ErrProviderUnavailable)
	}
	if !s.p.local.IsModelLoaded() {
		s.setStatus("ローカルモデルを読み込んでいます")
		if err := s.p.local.LoadModel(ctx); err != nil {
			if s.cancelRequested(ctx) {
				return route{}, domain.ErrCancelled
			}
			return route{}, fmt.Errorf("ローカルモデルの読み込みに失敗しました: %w: %w", domain.ErrProviderUnavailable, err)
		}
	}
	return route{name: PathLocal, planner: s.p.localPlanner, renderer: s.p.local}, nil
}

// planPanels はパネル構成を取得します。
// リモートは1回だけ問い合わせて件数で切り詰め、ローカルは失敗時に定型プロンプトへ切り替えます。
func (s *Session) planPanels(ctx context.Context, rt route, text string, style domain.ImageStyle) ([]domain.PanelPlan, error) {
	count := s.p.cfg.EffectivePanelCount()
	plans, err := rt.planner.PlanPanels(ctx, text, style, count)

	if rt.name == PathRemote {
		if err != nil {
			if s.cancelRequested(ctx) {
				return nil, domain.ErrCancelled
			}
			return nil, fmt.Errorf("パネルプロンプトの取得に失敗しました: %w", err)
		}
		if len(plans) == 0 {
			return nil, fmt.Errorf("バックエンドがプロンプトを返しませんでした: %w", domain.ErrNoImagesGenerated)
		}
		if len(plans) > count {
			plans = plans[:count]
		}
		return plans, nil
	}

	if err != nil || len(plans) == 0 {
		if s.cancelRequested(ctx) {
			return nil, domain.ErrCancelled
		}
		slog.Warn("シーン分割に失敗したため定型プロンプトを使います", "style", style, "error", err)
		return prompts.BuildPlans(nil, prompts.FallbackPrompts(style, count)), nil
	}
	return plans, nil
}

// publish はパネル1枚を処理し終えるたびに進捗と途中結果を反映します。
// 中断が観測済みなら何も書き込まず false を返すのだ。
func (s *Session) publish(slots []*domain.GeneratedImage, done, total int) bool {
	s.mu.Lock()
	if s.cancelled {
		s.mu.Unlock()
		return false
	}
	s.progress = float64(done) / float64(total)
	s.results = compact(slots)
	s.status = fmt.Sprintf("パネルを描画しています (%d/%d)", done, total)
	s.mu.Unlock()
	s.notify()
	return true
}

// finish は終端状態を確定させます。
func (s *Session) finish(images []domain.GeneratedImage, err error) {
	s.mu.Lock()
	s.running = false
	s.cancel = nil
	switch {
	case err == nil:
		s.state = StateCompleted
		s.progress = 1
		s.results = images
		s.status = fmt.Sprintf("%d 枚の画像を生成しました", len(images))
	case errors.Is(err, domain.ErrCancelled):
		s.state = StateCancelled
		s.lastErr = err
		s.status = "中断しました"
	default:
		s.state = StateFailed
		s.lastErr = err
		s.status = "生成に失敗しました"
	}
	s.mu.Unlock()
	s.notify()
}

func (s *Session) transition(st State, status string) {
	s.mu.Lock()
	if s.cancelled {
		s.mu.Unlock()
		return
	}
	s.state = st
	s.status = status
	s.mu.Unlock()
	s.notify()
}

func (s *Session) setStatus(status string) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
	s.notify()
}

// cancelRequested は Cancel または親コンテキストによる中断を検知します。
func (s *Session) cancelRequested(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled
}

// interrupted はペーシング待ちの失敗を中断として扱います。
func (s *Session) interrupted(ctx context.Context, err error) error {
	if s.cancelRequested(ctx) {
		return domain.ErrCancelled
	}
	return fmt.Errorf("ペーシング待ちに失敗しました: %w", err)
}

func (s *Session) notify() {
	s.mu.Lock()
	snap := s.snapshotLocked()
	observers := make([]Observer, len(s.observers))
	copy(observers, s.observers)
	s.mu.Unlock()

	for _, o := range observers {
		o(snap)
	}
}

// compact は空きスロットを詰めて、インデックス順の結果を作ります。
func compact(slots []*domain.GeneratedImage) []domain.GeneratedImage {
	out := make([]domain.GeneratedImage, 0, len(slots))
	for _, img := range slots {
		if img != nil {
			out = append(out, *img)
		}
	}
	return out
}
