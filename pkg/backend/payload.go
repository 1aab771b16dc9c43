package backend

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	_ "golang.org/x/image/webp"

	"github.com/shouni/dreamcatcher-kit/pkg/domain"
)

// DecodeImagePayload は data URL または素の base64 文字列を画像バイト列に戻し、MIME タイプを判定します。
// 解釈できない場合は domain.ErrDecodeFailed を返すのだ。
func DecodeImagePayload(payload string) ([]byte, string, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, "", fmt.Errorf("画像データが空です: %w", domain.ErrDecodeFailed)
	}

	// data URL の宣言は信用せず、MIME タイプは中身から判定する
	if strings.HasPrefix(payload, "data:") {
		_, body, ok := strings.Cut(payload, ",")
		if !ok {
			return nil, "", fmt.Errorf("data URL の形式が不正です: %w", domain.ErrDecodeFailed)
		}
		payload = body
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		// パディング無しで返すサーバーもある
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		if err != nil {
			return nil, "", fmt.Errorf("base64 のデコードに失敗しました: %w: %v", domain.ErrDecodeFailed, err)
		}
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("画像形式を判定できません: %w: %v", domain.ErrDecodeFailed, err)
	}
	return data, "image/" + format, nil
}
