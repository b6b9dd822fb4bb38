// Package g2p converts segmented Japanese text to phoneme strings with a
// three-level cascade: dictionary lookup, neural fallback, and kana rule
// transliteration.
package g2p

import (
	"log/slog"
	"regexp"
	"strings"
	"sync/atomic"

	"github.com/kotobalabs/kotoba-tts/internal/dict"
	"github.com/kotobalabs/kotoba-tts/internal/segment"
)

// Resolver turns one morpheme into phonemes. The surrounding text gives
// context-conditioned dictionary entries something to match against.
// Implementations return ok=false to pass the morpheme down the cascade.
type Resolver interface {
	Resolve(m segment.Morpheme, surrounding string) (string, bool)
}

// Stats counts cascade traffic since the last reset.
type Stats struct {
	DictionaryHits uint64  `json:"dictionary_hits"`
	NeuralFallback uint64  `json:"neural_fallbacks"`
	TotalMorphemes uint64  `json:"total_morphemes"`
	DictionaryRate float64 `json:"dictionary_hit_rate"`
	NeuralRate     float64 `json:"neural_fallback_rate"`
}

// DictionaryResolver resolves through the pronunciation dictionary with
// reading/POS/context disambiguation.
type DictionaryResolver struct {
	dict *dict.Dictionary
}

func NewDictionaryResolver(d *dict.Dictionary) *DictionaryResolver {
	return &DictionaryResolver{dict: d}
}

func (r *DictionaryResolver) Resolve(m segment.Morpheme, surrounding string) (string, bool) {
	if r.dict == nil {
		return "", false
	}
	return r.dict.LookupWithReading(m.Surface, m.Reading, m.POS, surrounding)
}

// KanaResolver transliterates the morpheme's katakana reading through the
// rule table. Without a reading it rewrites the surface directly, passing
// non-kana runes through unchanged.
type KanaResolver struct{}

func NewKanaResolver() *KanaResolver {
	return &KanaResolver{}
}

func (r *KanaResolver) Resolve(m segment.Morpheme, _ string) (string, bool) {
	if m.Reading != "" {
		if phonemes := convertReading(m.Reading); phonemes != "" {
			return phonemes, true
		}
	}
	if phonemes := convertReading(m.Surface); phonemes != "" {
		return phonemes, true
	}
	return "", false
}

// Cascade runs resolvers in order and is itself a Resolver.
type Cascade struct {
	resolvers []Resolver
}

func NewCascade(resolvers ...Resolver) *Cascade {
	return &Cascade{resolvers: resolvers}
}

func (c *Cascade) Resolve(m segment.Morpheme, surrounding string) (string, bool) {
	for _, r := range c.resolvers {
		if phonemes, ok := r.Resolve(m, surrounding); ok && phonemes != "" {
			return phonemes, true
		}
	}
	return "", false
}

// Phonemizer drives the full text→phonemes conversion.
type Phonemizer struct {
	segmenter  *segment.Segmenter
	dictionary *DictionaryResolver
	neural     *NeuralResolver
	kana       *KanaResolver
	log        *slog.Logger

	dictHits       atomic.Uint64
	neuralFallback atomic.Uint64
	totalMorphemes atomic.Uint64
}

// New wires the cascade. The neural resolver may be nil (no phonemizer
// model configured); the dictionary may be nil as well.
func New(segmenter *segment.Segmenter, d *dict.Dictionary, neural *NeuralResolver, log *slog.Logger) *Phonemizer {
	p := &Phonemizer{
		segmenter: segmenter,
		neural:    neural,
		kana:      NewKanaResolver(),
		log:       log.With(slog.String("component", "g2p")),
	}
	if d != nil {
		p.dictionary = NewDictionaryResolver(d)
	}
	return p
}

var (
	spaceRuns = regexp.MustCompile(` +`)
	geminate  = regexp.MustCompile(`q ([kstph])`)
)

// TextToPhonemes segments the text and resolves each morpheme through
// the cascade, joining the results with single spaces. Empty input is
// the only hard failure and yields empty output.
func (p *Phonemizer) TextToPhonemes(text string) string {
	if text == "" {
		return ""
	}

	morphemes := p.segmenter.Segment(text)
	parts := make([]string, 0, len(morphemes))
	for _, m := range morphemes {
		if phonemes := p.resolveMorpheme(m, text); phonemes != "" {
			parts = append(parts, phonemes)
		}
	}

	return PostProcess(strings.Join(parts, " "))
}

func (p *Phonemizer) resolveMorpheme(m segment.Morpheme, surrounding string) string {
	p.totalMorphemes.Add(1)

	if p.dictionary != nil {
		if phonemes, ok := p.dictionary.Resolve(m, surrounding); ok {
			p.dictHits.Add(1)
			return phonemes
		}
	}

	if p.neural != nil && p.neural.Ready() {
		p.neuralFallback.Add(1)
		if phonemes, ok := p.neural.Resolve(m, surrounding); ok {
			return phonemes
		}
	}

	if phonemes, ok := p.kana.Resolve(m, surrounding); ok {
		return phonemes
	}
	return ""
}

// PostProcess collapses space runs, trims, and realizes geminates:
// "q k" and friends become the doubled consonant.
func PostProcess(phonemes string) string {
	phonemes = spaceRuns.ReplaceAllString(phonemes, " ")
	phonemes = strings.TrimSpace(phonemes)
	phonemes = geminate.ReplaceAllString(phonemes, "$1$1")
	return phonemes
}

func (p *Phonemizer) Stats() Stats {
	s := Stats{
		DictionaryHits: p.dictHits.Load(),
		NeuralFallback: p.neuralFallback.Load(),
		TotalMorphemes: p.totalMorphemes.Load(),
	}
	if s.TotalMorphemes > 0 {
		s.DictionaryRate = float64(s.DictionaryHits) / float64(s.TotalMorphemes)
		s.NeuralRate = float64(s.NeuralFallback) / float64(s.TotalMorphemes)
	}
	return s
}

func (p *Phonemizer) ResetStats() {
	p.dictHits.Store(0)
	p.neuralFallback.Store(0)
	p.totalMorphemes.Store(0)
}
