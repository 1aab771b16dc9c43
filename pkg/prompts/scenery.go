package prompts

import (
	"strings"
	"unicode"
)

const (
	// FallbackPrompt はキーワードが1つも見つからなかった場合のプロンプトです。
	FallbackPrompt = "a peaceful dreamscape with soft light and serene atmosphere"

	sceneryPrefix    = "A dreamy landscape featuring "
	maxSceneryPhrase = 4
	minSceneryPhrase = 2
)

// fillerPhrases は一致が少ないときに補う汎用フレーズです。
var fillerPhrases = []string{"soft ethereal light", "peaceful atmosphere"}

type sceneryKeyword struct {
	word   string
	phrase string
}

// sceneryTable は走査順が一致の優先順位になる、固定のキーワード表です。
// 人物の描写は要求しないため、風景・天候・時間・場所・質感・物だけを扱います。
var sceneryTable = []sceneryKeyword{
	// environment
	{"forest", "a mystical forest"},
	{"woods", "a mystical forest"},
	{"ocean", "a vast shimmering ocean"},
	{"sea", "a vast shimmering ocean"},
	{"beach", "a quiet sandy shore"},
	{"mountain", "towering misty mountains"},
	{"river", "a winding silver river"},
	{"lake", "a still mirror-like lake"},
	{"waterfall", "a cascading waterfall"},
	{"desert", "endless rolling dunes"},
	{"garden", "a blooming secret garden"},
	{"meadow", "a wildflower meadow"},
	{"field", "an open golden field"},
	{"island", "a floating island"},
	{"cave", "a glowing crystal cave"},
	{"sky", "an endless open sky"},
	{"cloud", "soft drifting clouds"},
	{"space", "a starry cosmic expanse"},
	// weather
	{"storm", "a dramatic storm sky"},
	{"thunder", "distant rolling thunderclouds"},
	{"rain", "gentle falling rain"},
	{"snow", "softly falling snow"},
	{"fog", "drifting silver fog"},
	{"mist", "drifting silver fog"},
	{"wind", "swaying windswept grass"},
	{"rainbow", "a vivid rainbow arc"},
	// time
	{"sunrise", "a warm glowing sunrise"},
	{"dawn", "a warm glowing sunrise"},
	{"sunset", "a radiant sunset horizon"},
	{"twilight", "a violet twilight glow"},
	{"night", "a calm moonlit night"},
	{"moon", "a luminous full moon"},
	{"star", "a sky full of stars"},
	// place
	{"castle", "an ancient castle on a hill"},
	{"tower", "a lonely stone tower"},
	{"city", "a glowing distant city skyline"},
	{"village", "a cozy lantern-lit village"},
	{"house", "a quiet old house"},
	{"bridge", "an arched stone bridge"},
	{"temple", "a serene hidden temple"},
	{"library", "an endless library of books"},
	{"school", "an empty sunlit schoolyard"},
	{"train", "a vintage train on open tracks"},
	{"road", "a winding empty road"},
	// quality
	{"golden", "golden hour light"},
	{"bright", "bright luminous colors"},
	{"dark", "deep velvet shadows"},
	{"calm", "tranquil stillness"},
	{"gentle", "soft pastel tones"},
	{"glowing", "a soft inner glow"},
	// object
	{"door", "a mysterious open doorway"},
	{"mirror", "an ornate reflective mirror"},
	{"flower", "luminous blooming flowers"},
	{"tree", "an ancient twisted tree"},
	{"boat", "a small drifting boat"},
	{"candle", "flickering candlelight"},
	{"lantern", "floating paper lanterns"},
	{"key", "an old brass key"},
	{"book", "an open glowing book"},
	{"feather", "drifting white feathers"},
}

// Synthesize はシーン文を風景のみの画像生成プロンプトに変換します。
// 同じ入力からは常に同じ出力を返す純粋関数です。
func Synthesize(sceneText string) string {
	phrases := matchScenery(sceneText)
	if len(phrases) == 0 {
		return FallbackPrompt
	}
	for _, f := range fillerPhrases {
		if len(phrases) >= minSceneryPhrase {
			break
		}
		phrases = append(phrases, f)
	}
	return sceneryPrefix + strings.Join(phrases, ", ")
}

// matchScenery はキーワード表を先頭から走査し、重複のないフレーズを最大4つ集めるのだ。
func matchScenery(text string) []string {
	words := tokenize(text)
	if len(words) == 0 {
		return nil
	}

	var phrases []string
	seen := make(map[string]struct{})
	for _, kw := range sceneryTable {
		if len(phrases) >= maxSceneryPhrase {
			break
		}
		if _, dup := seen[kw.phrase]; dup {
			continue
		}
		if !containsWord(words, kw.word) {
			continue
		}
		seen[kw.phrase] = struct{}{}
		phrases = append(phrases, kw.phrase)
	}
	return phrases
}

// tokenize は小文字化した英単語の集合を返します。
func tokenize(text string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	words := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		words[f] = struct{}{}
	}
	return words
}

// containsWord は単数形・簡単な複数形 (s / es) のいずれかで一致するかを判定します。
func containsWord(words map[string]struct{}, kw string) bool {
	for _, form := range []string{kw, kw + "s", kw + "es"} {
		if _, ok := words[form]; ok {
			return true
		}
	}
	return false
}
