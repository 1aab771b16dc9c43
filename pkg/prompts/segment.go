package prompts

import (
	"fmt"
	"strings"

	"github.com/shouni/dreamcatcher-kit/pkg/domain"
)

// sceneJoiner はグループ化した文同士を結合する区切りです。
const sceneJoiner = ". "

// Segment はナラティブを desiredCount 以下の連続したシーン断片に分割します。
// 文の数が desiredCount を超える場合は floor(total/desiredCount) 文ずつのグループにし、
// 余りは最後のグループが吸収します。空白だけのテキストは domain.ErrInvalidArgument です。
func Segment(text string, desiredCount int) ([]string, error) {
	if desiredCount <= 0 {
		return nil, fmt.Errorf("%w: desiredCount は1以上である必要があります (got %d)", domain.ErrInvalidArgument, desiredCount)
	}

	sentences := SplitSentences(text)
	if len(sentences) == 0 {
		whole := strings.TrimSpace(text)
		if whole == "" {
			return nil, fmt.Errorf("%w: 分割するナラティブが空です", domain.ErrInvalidArgument)
		}
		return []string{whole}, nil
	}
	if len(sentences) <= desiredCount {
		return sentences, nil
	}

	groupSize := len(sentences) / desiredCount
	scenes := make([]string, 0, desiredCount)
	for i := 0; i < desiredCount; i++ {
		start := i * groupSize
		end := start + groupSize
		if i == desiredCount-1 {
			end = len(sentences)
		}
		scenes = append(scenes, strings.Join(sentences[start:end], sceneJoiner))
	}
	return scenes, nil
}

// SegmentScenes は Segment の結果を位置情報付きの domain.Scene に変換するのだ。
func SegmentScenes(text string, desiredCount int) ([]domain.Scene, error) {
	fragments, err := Segment(text, desiredCount)
	if err != nil {
		return nil, err
	}
	scenes := make([]domain.Scene, len(fragments))
	for i, f := range fragments {
		scenes[i] = domain.Scene{Text: f, Index: i}
	}
	return scenes, nil
}

// SplitSentences は '.', '!', '?' で文を区切り、空白を除いた空でない文を返します。
func SplitSentences(text string) []string {
	parts := strings.FieldsFunc(text, isSentenceTerminal)
	sentences := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

func isSentenceTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
