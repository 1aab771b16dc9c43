package builder

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/shouni/dreamcatcher-kit/internal/config"
	"github.com/shouni/dreamcatcher-kit/pkg/backend"
	pkgconfig "github.com/shouni/dreamcatcher-kit/pkg/config"
	"github.com/shouni/dreamcatcher-kit/pkg/gemini"
	"github.com/shouni/dreamcatcher-kit/pkg/generator"
	"github.com/shouni/dreamcatcher-kit/pkg/journal"
	"github.com/shouni/dreamcatcher-kit/pkg/publisher"
	"github.com/shouni/dreamcatcher-kit/pkg/store"
)

// Build は設定から AppContext を組み立てます。
// journalOpts はリマインダーなど、コマンドごとに差し込みたい協調者のためのものなのだ。
func Build(cfg *config.Config, journalOpts ...journal.Option) (*AppContext, error) {
	gen, err := cfg.Generation()
	if err != nil {
		return nil, fmt.Errorf("生成設定の組み立てに失敗しました: %w", err)
	}

	st, err := BuildStore(cfg)
	if err != nil {
		return nil, err
	}

	client := BuildBackend(gen)
	svc := BuildJournal(st, gen, journalOpts...)
	pipeline := BuildPipeline(gen, client)

	var uploader publisher.Uploader
	if client != nil {
		uploader = client
	}
	pub := publisher.NewDreamPublisher(publisher.NewLocalWriter(), uploader)

	return NewAppContext(cfg, st, svc, client, pipeline, pub), nil
}

// BuildStore は保存先を構築します。REDIS_ADDR があれば Redis を優先するのだ。
func BuildStore(cfg *config.Config) (store.Store, error) {
	if cfg.RedisAddr != "" {
		slog.Debug("Redis を保存先に使います", "addr", cfg.RedisAddr)
		return store.NewRedisStoreFromAddr(cfg.RedisAddr, cfg.RedisPassword), nil
	}
	dsn := cfg.StoreDSN
	if dsn == "" {
		dsn = config.DefaultStorePath
	}
	st, err := store.Open(dsn)
	if err != nil {
		return nil, fmt.Errorf("保存先の初期化に失敗しました: %w", err)
	}
	return st, nil
}

// BuildBackend はバックエンドクライアントを構築します。URL が無ければ nil を返すのだ。
func BuildBackend(gen pkgconfig.Config) *backend.Client {
	if gen.BackendURL == "" {
		return nil
	}
	return backend.NewClient(gen.BackendURL,
		backend.WithToken(gen.BackendToken),
		backend.WithPromptCacheTTL(gen.PromptCacheTTL),
		backend.WithHTTPClient(&http.Client{Timeout: gen.RequestTimeout}),
	)
}

// BuildJournal は夢日記サービスを構築します。API キーがあれば書き換えも有効にするのだ。
func BuildJournal(st store.Store, gen pkgconfig.Config, opts ...journal.Option) *journal.Service {
	if gen.GeminiAPIKey != "" {
		opts = append([]journal.Option{journal.WithRewriter(gemini.NewRewriter(gen.GeminiAPIKey, gen.GeminiModel))}, opts...)
	}
	return journal.NewService(st, opts...)
}

// BuildPipeline は画像生成パイプラインを構築します。
// リモートはバックエンドが設定されているとき、ローカルは API キーがあるときだけ登録するのだ。
func BuildPipeline(gen pkgconfig.Config, client *backend.Client) *generator.Pipeline {
	opts := []generator.Option{generator.WithConfig(gen)}
	if client != nil {
		opts = append(opts, generator.WithRemote(client))
	}
	if gen.GeminiAPIKey != "" {
		renderer := gemini.NewImageRenderer(gen.GeminiAPIKey, gen.ImageModel,
			gemini.WithAspectRatio(gen.PanelAspectRatio),
			gemini.WithHTTPTimeout(gen.RequestTimeout),
		)
		opts = append(opts, generator.WithLocal(renderer))
	}
	return generator.New(opts...)
}
