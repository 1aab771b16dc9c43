package domain

// PanelPosition はパネルの配置ヒントです。"dynamic" のときは Row/Column を使いません。
type PanelPosition struct {
	Row     int  `json:"row"`
	Column  int  `json:"column"`
	Dynamic bool `json:"dynamic"`
}

// PanelSize はパネルの相対的な大きさのヒントです。
type PanelSize string

const (
	PanelSizeSmall  PanelSize = "small"
	PanelSizeMedium PanelSize = "medium"
	PanelSizeLarge  PanelSize = "large"
)

// PanelPlan は描画前の1パネル分のレイアウトとナラティブのメタデータです。
type PanelPlan struct {
	PanelNumber  int           `json:"panel_number"`
	Position     PanelPosition `json:"position"`
	Size         PanelSize     `json:"size"`
	ImagePrompt  string        `json:"image_prompt"`
	SpeechBubble string        `json:"speech_bubble,omitempty"`
	SoundEffect  string        `json:"sound_effect,omitempty"`
	Caption      string        `json:"caption,omitempty"`
}

// PlanAt は index に対応する PanelPlan を返します。範囲外ならゼロ値と false なのだ。
func PlanAt(plans []PanelPlan, index int) (PanelPlan, bool) {
	if index < 0 || index >= len(plans) {
		return PanelPlan{}, false
	}
	return plans[index], true
}
