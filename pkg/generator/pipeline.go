package generator

import (
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/shouni/dreamcatcher-kit/pkg/config"
	"github.com/shouni/dreamcatcher-kit/pkg/prompts"
)

// Pipeline はリモート・ローカルの生成経路と設定を束ね、Session を払い出します。
// Pipeline 自体は状態を持たないので、複数の Session で共有できるのだ。
type Pipeline struct {
	remote       RemoteProvider
	local        LocalRenderer
	localPlanner Planner
	cfg          config.Config
	timer        backoff.Timer
	now          func() time.Time
}

// Option は Pipeline の設定を変更する関数です。
type Option func(*Pipeline)

// WithRemote はバックエンド経由の生成経路を設定します。
func WithRemote(r RemoteProvider) Option {
	return func(p *Pipeline) { p.remote = r }
}

// WithLocal は端末側の描画経路を設定します。
func WithLocal(r LocalRenderer) Option {
	return func(p *Pipeline) { p.local = r }
}

// WithLocalPlanner はローカル経路でのパネル構成の作り方を差し替えます。
func WithLocalPlanner(pl Planner) Option {
	return func(p *Pipeline) { p.localPlanner = pl }
}

// WithConfig は生成設定を差し替えます。
func WithConfig(cfg config.Config) Option {
	return func(p *Pipeline) { p.cfg = cfg }
}

// WithTimer はリトライ待ちに使うタイマーを差し替えます。主にテスト用です。
func WithTimer(t backoff.Timer) Option {
	return func(p *Pipeline) { p.timer = t }
}

// WithClock は GeneratedImage.CreatedAt に使う時計を差し替えます。
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// New は Pipeline を生成します。
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		localPlanner: prompts.NewLocalPlanner(),
		cfg:          config.DefaultConfig(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Config は現在の設定を返します。
func (p *Pipeline) Config() config.Config {
	return p.cfg
}

// NewSession は新しい生成セッションを作ります。
func (p *Pipeline) NewSession() *Session {
	return newSession(p)
}
