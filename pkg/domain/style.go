package domain

import (
	"fmt"
	"strings"
)

// ImageStyle は画像生成時の画風タグです。
type ImageStyle string

const (
	StyleComicBook  ImageStyle = "comicBook"
	StyleWatercolor ImageStyle = "watercolor"
	StyleAnime      ImageStyle = "anime"
	StyleSurreal    ImageStyle = "surreal"
	StyleSketch     ImageStyle = "sketch"
)

// Styles は対応している画風の一覧です。
var Styles = []ImageStyle{StyleComicBook, StyleWatercolor, StyleAnime, StyleSurreal, StyleSketch}

// ParseStyle は文字列から ImageStyle を解決します。大文字小文字は区別しません。
func ParseStyle(s string) (ImageStyle, error) {
	if strings.TrimSpace(s) == "" {
		return StyleComicBook, nil
	}
	for _, st := range Styles {
		if strings.EqualFold(string(st), strings.TrimSpace(s)) {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: 未対応の画風です: %q", ErrInvalidArgument, s)
}

func (s ImageStyle) String() string {
	return string(s)
}
