package asset

import (
	"path/filepath"
	"testing"
)

func TestPanelAndPagePath(t *testing.T) {
	dir := filepath.Join("out", "d1")

	tests := []struct {
		name string
		got  func() (string, error)
		want string
	}{
		{"png パネル", func() (string, error) { return PanelPath(dir, 1, "image/png") }, filepath.Join(dir, "panel_1.png")},
		{"jpeg パネル", func() (string, error) { return PanelPath(dir, 3, "image/jpeg") }, filepath.Join(dir, "panel_3.jpg")},
		{"不明な MIME", func() (string, error) { return PanelPath(dir, 2, "") }, filepath.Join(dir, "panel_2.png")},
		{"ページ", func() (string, error) { return PagePath(dir, 2) }, filepath.Join(dir, "dream_page_2.png")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.got()
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("期待値 %q, 実際の値 %q", tt.want, got)
			}
		})
	}
}

func TestIndexedRegex(t *testing.T) {
	for _, name := range []string{"panel_1.png", "panel_12.jpg", "panel_3.webp"} {
		if !PanelFileRegex.MatchString(name) {
			t.Errorf("%s に一致しないのだ", name)
		}
	}
	for _, name := range []string{"panel.png", "panel_x.png", "dream_page_1.png"} {
		if PanelFileRegex.MatchString(name) {
			t.Errorf("%s に一致してしまったのだ", name)
		}
	}
	if !PageFileRegex.MatchString("dream_page_4.png") {
		t.Error("ページ画像に一致しないのだ")
	}
}
