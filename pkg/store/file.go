package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/shouni/dreamcatcher-kit/pkg/domain"
)

// FileStore は1つの JSON ファイルに全エントリを保存します。
// 書き込みは一時ファイルからの rename で置き換えるので、途中で落ちても壊れたファイルは残らないのだ。
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore は path に保存する FileStore を生成します。
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path は保存先のパスを返します。
func (s *FileStore) Path() string {
	return s.path
}

// Load はファイルから全エントリを読み込みます。ファイルが無ければ空です。
func (s *FileStore) Load(_ context.Context) ([]domain.Dream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("夢日記ファイルの読み込みに失敗しました: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var dreams []domain.Dream
	if err := json.Unmarshal(data, &dreams); err != nil {
		return nil, fmt.Errorf("夢日記ファイルの解析に失敗しました (%s): %w", s.path, err)
	}
	return dreams, nil
}

// Save は全エントリをファイルに書き出します。
func (s *FileStore) Save(_ context.Context, dreams []domain.Dream) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if dreams == nil {
		dreams = []domain.Dream{}
	}
	data, err := json.MarshalIndent(dreams, "", "  ")
	if err != nil {
		return fmt.Errorf("夢日記のエンコードに失敗しました: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("保存先ディレクトリの作成に失敗しました: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".dreams-*.json")
	if err != nil {
		return fmt.Errorf("一時ファイルの作成に失敗しました: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("一時ファイルへの書き込みに失敗しました: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("夢日記ファイルの置き換えに失敗しました: %w", err)
	}
	return nil
}
