package prompts

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/shouni/dreamcatcher-kit/pkg/domain"
)

const (
	// maxBubbleRunes を超える文は吹き出しにせずキャプションのみにします。
	maxBubbleRunes = 48
)

// soundEffects は天候などの単語から擬音を引く固定の表です。
var soundEffects = []struct {
	word   string
	effect string
}{
	{"thunder", "BOOM!"},
	{"storm", "KRAK!"},
	{"rain", "PLIP!"},
	{"wind", "WHOOSH!"},
	{"wave", "SPLASH!"},
	{"ocean", "SPLASH!"},
	{"bell", "DING!"},
	{"door", "CREAK!"},
	{"fall", "FWOOP!"},
	{"fly", "FWOOSH!"},
}

// LocalPlanner はシーン分割とキーワード変換だけでパネル構成を作るプランナーです。
type LocalPlanner struct{}

// NewLocalPlanner は LocalPlanner を生成します。
func NewLocalPlanner() *LocalPlanner {
	return &LocalPlanner{}
}

// PlanPanels はナラティブを分割し、シーンごとにプロンプトを合成したパネル構成を返すのだ。
func (p *LocalPlanner) PlanPanels(_ context.Context, text string, _ domain.ImageStyle, count int) ([]domain.PanelPlan, error) {
	scenes, err := SegmentScenes(text, count)
	if err != nil {
		return nil, err
	}
	prompts := make([]string, len(scenes))
	for i, s := range scenes {
		prompts[i] = Synthesize(s.Text)
	}
	return BuildPlans(scenes, prompts), nil
}

// BuildPlans はシーンとプロンプトの組から PanelPlan を組み立てます。
// シーンが足りない場合、キャプション等は空のままです。
func BuildPlans(scenes []domain.Scene, prompts []string) []domain.PanelPlan {
	plans := make([]domain.PanelPlan, len(prompts))
	for i, pr := range prompts {
		plan := domain.PanelPlan{
			PanelNumber: i + 1,
			Position:    domain.PanelPosition{Dynamic: true},
			Size:        sizeHint(i),
			ImagePrompt: pr,
		}
		if i < len(scenes) {
			text := scenes[i].Text
			plan.Caption = text
			plan.SpeechBubble = bubbleText(text)
			plan.SoundEffect = SoundEffect(text)
		}
		plans[i] = plan
	}
	return plans
}

// SoundEffect はシーン文に含まれる単語から擬音を選びます。該当がなければ空文字なのだ。
func SoundEffect(text string) string {
	words := tokenize(text)
	for _, se := range soundEffects {
		if containsWord(words, se.word) {
			return se.effect
		}
	}
	return ""
}

func sizeHint(index int) domain.PanelSize {
	if index == 0 {
		return domain.PanelSizeLarge
	}
	return domain.PanelSizeMedium
}

// bubbleText はシーン文の最初の節を吹き出し用に切り出します。
func bubbleText(text string) string {
	clause := text
	if i := strings.IndexAny(clause, ",;"); i >= 0 {
		clause = clause[:i]
	}
	clause = strings.TrimSpace(clause)
	if clause == "" || utf8.RuneCountInString(clause) > maxBubbleRunes {
		return ""
	}
	return clause
}
