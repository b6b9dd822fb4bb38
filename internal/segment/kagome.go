package segment

import (
	"fmt"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"
)

// KagomeAnalyzer runs the kagome morphological analyzer with the bundled
// IPA dictionary. It fills the MeCab-shaped morpheme fields: reading and
// pronunciation in katakana, the coarse part of speech, and the base form.
type KagomeAnalyzer struct {
	tok *tokenizer.Tokenizer
}

func NewKagomeAnalyzer() (*KagomeAnalyzer, error) {
	tok, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, fmt.Errorf("create kagome tokenizer: %w", err)
	}
	return &KagomeAnalyzer{tok: tok}, nil
}

func (a *KagomeAnalyzer) Parse(text string) []Morpheme {
	tokens := a.tok.Tokenize(text)
	result := make([]Morpheme, 0, len(tokens))
	for _, t := range tokens {
		if t.Class == tokenizer.DUMMY {
			continue
		}
		m := Morpheme{
			Surface:  t.Surface,
			BaseForm: t.Surface,
		}
		if pos := t.POS(); len(pos) > 0 && pos[0] != "*" {
			m.POS = pos[0]
		}
		if base, ok := t.BaseForm(); ok && base != "*" {
			m.BaseForm = base
		}
		if reading, ok := t.Reading(); ok && reading != "*" {
			m.Reading = reading
		} else if IsPureHiragana(t.Surface) {
			m.Reading = HiraganaToKatakana(t.Surface)
		} else if IsPureKatakana(t.Surface) {
			m.Reading = t.Surface
		}
		if pron, ok := t.Pronunciation(); ok && pron != "*" {
			m.Pronunciation = pron
		} else {
			m.Pronunciation = m.Reading
		}
		result = append(result, m)
	}
	return result
}
