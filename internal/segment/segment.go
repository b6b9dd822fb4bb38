// Package segment breaks Japanese text into morphemes and provides the
// text normalization and kana utilities the synthesis pipeline leans on.
package segment

import (
	"log/slog"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Morpheme is one unit of segmented text. Reading is katakana and may be
// empty when the analyzer lacks coverage (kanji under the fallback);
// downstream consumers tolerate that.
type Morpheme struct {
	Surface       string
	Reading       string
	Pronunciation string
	POS           string
	BaseForm      string
}

// Analyzer is the contract for producing morphemes.
type Analyzer interface {
	Parse(text string) []Morpheme
}

// Segmenter wraps a primary analyzer with the script-boundary fallback
// and owns pre-normalization.
type Segmenter struct {
	analyzer      Analyzer
	normalizeText bool
	log           *slog.Logger
}

// New builds a segmenter around the given analyzer. A nil analyzer means
// the script-boundary fallback handles everything.
func New(analyzer Analyzer, normalizeText bool, log *slog.Logger) *Segmenter {
	if analyzer == nil {
		analyzer = NewScriptAnalyzer()
	}
	return &Segmenter{
		analyzer:      analyzer,
		normalizeText: normalizeText,
		log:           log.With(slog.String("component", "segmenter")),
	}
}

// Segment normalizes (when configured) and parses text into morphemes.
func (s *Segmenter) Segment(text string) []Morpheme {
	if text == "" {
		return nil
	}
	if s.normalizeText {
		text = Normalize(text)
	}
	return s.analyzer.Parse(text)
}

// Normalize folds full-width ASCII to half-width and the ideographic
// space to a plain space, after NFC composition.
func Normalize(text string) string {
	text = norm.NFC.String(text)
	var sb strings.Builder
	sb.Grow(len(text))
	for _, r := range text {
		switch {
		case r >= 0xFF01 && r <= 0xFF5E:
			sb.WriteRune(r - 0xFF01 + 0x21)
		case r == 0x3000:
			sb.WriteRune(' ')
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// HiraganaToKatakana shifts hiragana runes into the katakana block.
func HiraganaToKatakana(text string) string {
	var sb strings.Builder
	sb.Grow(len(text))
	for _, r := range text {
		if r >= 0x3041 && r <= 0x3096 {
			r += 0x60
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// KatakanaToHiragana shifts katakana runes into the hiragana block.
func KatakanaToHiragana(text string) string {
	var sb strings.Builder
	sb.Grow(len(text))
	for _, r := range text {
		if r >= 0x30A1 && r <= 0x30F6 {
			r -= 0x60
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// ContainsKanji reports whether any rune falls in the CJK unified block.
func ContainsKanji(text string) bool {
	for _, r := range text {
		if r >= 0x4E00 && r <= 0x9FAF {
			return true
		}
	}
	return false
}

// IsPureHiragana reports whether the text is hiragana (Japanese
// punctuation allowed).
func IsPureHiragana(text string) bool {
	for _, r := range text {
		if !(r >= 0x3040 && r <= 0x309F || r >= 0x3000 && r <= 0x303F) {
			return false
		}
	}
	return true
}

// IsPureKatakana reports whether the text is katakana (Japanese
// punctuation allowed).
func IsPureKatakana(text string) bool {
	for _, r := range text {
		if !(r >= 0x30A0 && r <= 0x30FF || r >= 0x3000 && r <= 0x303F) {
			return false
		}
	}
	return true
}
