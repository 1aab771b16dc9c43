package builder

import (
	"io"

	"github.com/shouni/dreamcatcher-kit/internal/config"
	"github.com/shouni/dreamcatcher-kit/pkg/backend"
	"github.com/shouni/dreamcatcher-kit/pkg/composer"
	"github.com/shouni/dreamcatcher-kit/pkg/generator"
	"github.com/shouni/dreamcatcher-kit/pkg/journal"
	"github.com/shouni/dreamcatcher-kit/pkg/publisher"
	"github.com/shouni/dreamcatcher-kit/pkg/store"
)

// AppContext は、アプリケーション実行に必要な共通コンテキストを保持する
// これを各コマンドに渡すことで、依存関係の注入を簡素化します。
type AppContext struct {
	// Configは、環境変数とコマンドラインから組み立てた設定です。
	Config *config.Config
	// Optionsは、コマンドラインから渡された実行時の設定です。
	Options config.GenerateOptions
	// Storeは、夢日記の保存先です。
	Store store.Store
	// Journalは、夢日記の操作をまとめたサービスです。
	Journal *journal.Service
	// Backendは、Dreamcatcher バックエンドのクライアントです。未設定なら nil。
	Backend *backend.Client
	// Pipelineは、パネル画像を生成するパイプラインです。
	Pipeline *generator.Pipeline
	// Composerは、パネルをコマ割りページにまとめます。
	Composer *composer.Composer
	// Publisherは、生成物をファイルに書き出します。
	Publisher *publisher.DreamPublisher
}

// NewAppContext は AppContext の新しいインスタンスを生成する
func NewAppContext(
	cfg *config.Config,
	st store.Store,
	svc *journal.Service,
	client *backend.Client,
	pipeline *generator.Pipeline,
	pub *publisher.DreamPublisher,
) *AppContext {
	return &AppContext{
		Config:    cfg,
		Options:   cfg.Options,
		Store:     st,
		Journal:   svc,
		Backend:   client,
		Pipeline:  pipeline,
		Composer:  composer.New(),
		Publisher: pub,
	}
}

// Close は保存先などの接続を閉じるのだ。
func (a *AppContext) Close() error {
	if c, ok := a.Store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
