package prompts

import (
	"crypto/sha256"
	"encoding/binary"
)

// SeedFromPrompt はプロンプト文字列から決定論的なシード値を生成します。
// 同じプロンプトでリトライしても同じ絵を狙えるのだ。
func SeedFromPrompt(prompt string) int64 {
	hash := sha256.Sum256([]byte(prompt))
	// Gemini のシードは int32 なので、先頭4バイトの最上位ビットを落として正の値にする
	return int64(binary.BigEndian.Uint32(hash[:4]) & 0x7FFFFFFF)
}
