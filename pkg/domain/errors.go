package domain

import "errors"

var (
	// ErrInvalidArgument はシーン分割などへの不正な入力です。リトライしません。
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrEmptyInput はページ合成に画像が1枚も渡されなかったことを示します。
	ErrEmptyInput = errors.New("empty input")
	// ErrCancelled はユーザーまたはシステムによる中断です。失敗としては表示しません。
	ErrCancelled = errors.New("generation cancelled")
	// ErrRenderFailed は1パネルのリトライ上限に達したことを示します。
	ErrRenderFailed = errors.New("render failed")
	// ErrNoImagesGenerated は全パネルが失敗した場合の終端エラーです。
	ErrNoImagesGenerated = errors.New("no images generated")
	// ErrDecodeFailed は返却された画像ペイロードを解釈できなかったことを示します。
	ErrDecodeFailed = errors.New("image payload decode failed")
	// ErrProviderUnavailable はリモートもローカルも利用できない状態です。
	ErrProviderUnavailable = errors.New("no image provider available")
	// ErrNotFound は指定された Dream が存在しないことを示します。
	ErrNotFound = errors.New("dream not found")
)
