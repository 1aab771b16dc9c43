package backend

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthorized はトークンが無効または期限切れであることを示します。
	ErrUnauthorized = errors.New("backend: unauthorized")
	// ErrRateLimited はバックエンドが 429 を返したことを示します。
	ErrRateLimited = errors.New("backend: rate limited")
	// ErrServer はバックエンド側の 5xx エラーです。
	ErrServer = errors.New("backend: server error")
	// ErrBadRequest はその他の 4xx エラーです。
	ErrBadRequest = errors.New("backend: bad request")
)

// APIError はバックエンドが返したエラーレスポンスです。
type APIError struct {
	Status  int
	Message string
	Code    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("backend %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("backend %d: %s", e.Status, e.Message)
}

// Unwrap はステータスに対応する分類エラーを返します。errors.Is で判定できるのだ。
func (e *APIError) Unwrap() error {
	switch {
	case e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden:
		return ErrUnauthorized
	case e.Status == http.StatusTooManyRequests:
		return ErrRateLimited
	case e.Status >= 500:
		return ErrServer
	default:
		return ErrBadRequest
	}
}

// Permanent はリトライしても結果が変わらないエラーかどうかを返します。
// 429 と 5xx だけが一時的なエラーです。
func (e *APIError) Permanent() bool {
	return e.Status != http.StatusTooManyRequests && e.Status < 500
}
