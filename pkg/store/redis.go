package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shouni/dreamcatcher-kit/pkg/domain"
)

const (
	// DefaultRedisKey は全エントリを保存するキーです。
	DefaultRedisKey = "dreamcatcher:dreams"
	redisTimeout    = 3 * time.Second
)

// RedisStore は全エントリを1つの JSON 値として Redis に保存します。
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore は既存のクライアントから RedisStore を生成します。
func NewRedisStore(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{client: client, key: key}
}

// NewRedisStoreFromAddr はアドレスとパスワードから RedisStore を生成します。
func NewRedisStoreFromAddr(addr, password string) *RedisStore {
	return NewRedisStore(redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	}), DefaultRedisKey)
}

// Load は全エントリを読み込みます。キーが無ければ空です。
func (s *RedisStore) Load(ctx context.Context) ([]domain.Dream, error) {
	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()

	raw, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Redis からの読み込みに失敗しました: %w", err)
	}

	var dreams []domain.Dream
	if err := json.Unmarshal(raw, &dreams); err != nil {
		return nil, fmt.Errorf("Redis の値を解析できません (%s): %w", s.key, err)
	}
	return dreams, nil
}

// Save は全エントリを上書き保存します。
func (s *RedisStore) Save(ctx context.Context, dreams []domain.Dream) error {
	if dreams == nil {
		dreams = []domain.Dream{}
	}
	data, err := json.Marshal(dreams)
	if err != nil {
		return fmt.Errorf("夢日記のエンコードに失敗しました: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("Redis への書き込みに失敗しました: %w", err)
	}
	return nil
}

// Close は Redis クライアントを閉じます。
func (s *RedisStore) Close() error {
	return s.client.Close()
}
