package store

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/shouni/dreamcatcher-kit/pkg/domain"
)

// Store は夢日記の全エントリをまとめて読み書きする永続化層です。
type Store interface {
	Load(ctx context.Context) ([]domain.Dream, error)
	Save(ctx context.Context, dreams []domain.Dream) error
}

// Open は DSN のスキームに応じて Store を生成します。
//
//	redis://[:password@]host:port/db  → RedisStore
//	memory:                           → MemoryStore
//	file:path または素のパス          → FileStore
func Open(dsn string) (Store, error) {
	switch {
	case strings.HasPrefix(dsn, "redis://"), strings.HasPrefix(dsn, "rediss://"):
		opts, err := redis.ParseURL(dsn)
		if err != nil {
			return nil, fmt.Errorf("Redis の DSN を解析できません: %w", err)
		}
		return NewRedisStore(redis.NewClient(opts), DefaultRedisKey), nil
	case dsn == "memory:":
		return NewMemoryStore(), nil
	default:
		path := strings.TrimPrefix(dsn, "file:")
		if path == "" {
			return nil, fmt.Errorf("保存先が指定されていません: %w", domain.ErrInvalidArgument)
		}
		return NewFileStore(path), nil
	}
}

// MemoryStore はプロセス内だけで保持する Store です。
type MemoryStore struct {
	mu     sync.Mutex
	dreams []domain.Dream
}

// NewMemoryStore は空の MemoryStore を生成します。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load(context.Context) ([]domain.Dream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneDreams(m.dreams), nil
}

func (m *MemoryStore) Save(_ context.Context, dreams []domain.Dream) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dreams = cloneDreams(dreams)
	return nil
}

func cloneDreams(in []domain.Dream) []domain.Dream {
	if in == nil {
		return nil
	}
	out := make([]domain.Dream, len(in))
	copy(out, in)
	return out
}
