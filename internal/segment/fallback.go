package segment

import "strings"

const posSymbol = "記号"

// ScriptAnalyzer is the dictionary-free fallback: it starts a new
// morpheme on every script transition and emits punctuation runes as
// standalone morphemes.
type ScriptAnalyzer struct{}

func NewScriptAnalyzer() *ScriptAnalyzer {
	return &ScriptAnalyzer{}
}

type script int

const (
	scriptNone script = iota
	scriptHiragana
	scriptKatakana
	scriptKanji
	scriptOther
)

func classify(r rune) (script, bool) {
	switch {
	case r < 0x80 || r >= 0x3000 && r <= 0x303F:
		return scriptNone, true // punctuation / ASCII
	case r >= 0x3040 && r <= 0x309F:
		return scriptHiragana, false
	case r >= 0x30A0 && r <= 0x30FF:
		return scriptKatakana, false
	case r >= 0x4E00 && r <= 0x9FAF:
		return scriptKanji, false
	default:
		return scriptOther, false
	}
}

func (a *ScriptAnalyzer) Parse(text string) []Morpheme {
	var result []Morpheme
	var current strings.Builder
	currentScript := scriptNone

	flush := func() {
		if current.Len() == 0 {
			return
		}
		result = append(result, a.wordMorpheme(current.String(), currentScript))
		current.Reset()
	}

	for _, r := range text {
		sc, isPunct := classify(r)
		if isPunct {
			flush()
			currentScript = scriptNone
			surface := string(r)
			result = append(result, Morpheme{
				Surface:       surface,
				Reading:       surface,
				Pronunciation: surface,
				POS:           posSymbol,
				BaseForm:      surface,
			})
			continue
		}
		if sc != currentScript {
			flush()
			currentScript = sc
		}
		current.WriteRune(r)
	}
	flush()
	return result
}

func (a *ScriptAnalyzer) wordMorpheme(surface string, sc script) Morpheme {
	m := Morpheme{
		Surface:  surface,
		BaseForm: surface,
	}
	switch sc {
	case scriptHiragana:
		m.Reading = HiraganaToKatakana(surface)
		if len([]rune(surface)) <= 2 {
			m.POS = "助詞"
		} else {
			m.POS = "動詞"
		}
	case scriptKatakana:
		m.Reading = surface
		m.POS = "名詞"
	case scriptKanji:
		// No reading without a dictionary; the resolver copes.
		m.POS = "名詞"
	default:
		m.Reading = surface
	}
	m.Pronunciation = m.Reading
	return m
}
