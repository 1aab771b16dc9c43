package builder

import (
	"path/filepath"
	"testing"

	"github.com/shouni/dreamcatcher-kit/internal/config"
	"github.com/shouni/dreamcatcher-kit/pkg/store"
)

func TestBuildStore(t *testing.T) {
	t.Run("Redis が優先", func(t *testing.T) {
		st, err := BuildStore(&config.Config{RedisAddr: "127.0.0.1:6379", StoreDSN: "memory:"})
		if err != nil {
			t.Fatalf("予期しないエラーなのだ: %v", err)
		}
		rs, ok := st.(*store.RedisStore)
		if !ok {
			t.Fatalf("RedisStore を期待したのに %T なのだ", st)
		}
		_ = rs.Close()
	})

	t.Run("ファイル", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "dreams.json")
		st, err := BuildStore(&config.Config{StoreDSN: path})
		if err != nil {
			t.Fatalf("予期しないエラーなのだ: %v", err)
		}
		fs, ok := st.(*store.FileStore)
		if !ok || fs.Path() != path {
			t.Fatalf("FileStore(%s) を期待したのに %T なのだ", path, st)
		}
	})

	t.Run("空ならデフォルトのパス", func(t *testing.T) {
		st, err := BuildStore(&config.Config{})
		if err != nil {
			t.Fatalf("予期しないエラーなのだ: %v", err)
		}
		if fs, ok := st.(*store.FileStore); !ok || fs.Path() != config.DefaultStorePath {
			t.Errorf("got %T", st)
		}
	})
}

func TestBuild(t *testing.T) {
	t.Run("外部サービスなし", func(t *testing.T) {
		app, err := Build(&config.Config{StoreDSN: "memory:"})
		if err != nil {
			t.Fatalf("予期しないエラーなのだ: %v", err)
		}
		defer app.Close()
		if app.Backend != nil {
			t.Errorf("URL が無いのにバックエンドが作られたのだ")
		}
		if app.Journal == nil || app.Pipeline == nil || app.Composer == nil || app.Publisher == nil {
			t.Errorf("AppContext が揃っていないのだ: %+v", app)
		}
	})

	t.Run("バックエンドあり", func(t *testing.T) {
		app, err := Build(&config.Config{
			StoreDSN:     "memory:",
			BackendURL:   "https://dreams.example",
			BackendToken: "opaque-token",
		})
		if err != nil {
			t.Fatalf("予期しないエラーなのだ: %v", err)
		}
		if app.Backend == nil || !app.Backend.IsAuthenticated() {
			t.Errorf("認証済みのバックエンドを期待したのだ")
		}
	})

	t.Run("未知の画風", func(t *testing.T) {
		_, err := Build(&config.Config{StoreDSN: "memory:", Options: config.GenerateOptions{Style: "ukiyoe"}})
		if err == nil {
			t.Errorf("エラーを期待したのだ")
		}
	})
}
