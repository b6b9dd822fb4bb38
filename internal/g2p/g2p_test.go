package g2p

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kotobalabs/kotoba-tts/internal/dict"
	"github.com/kotobalabs/kotoba-tts/internal/segment"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newPhonemizer(d *dict.Dictionary, neural *NeuralResolver) *Phonemizer {
	seg := segment.New(segment.NewScriptAnalyzer(), true, newLogger())
	return New(seg, d, neural, newLogger())
}

func TestConvertReadingSyllables(t *testing.T) {
	assert.Equal(t, "ko n ni chi wa", convertReading("コンニチハ"))
	assert.Equal(t, "a ri ga to o", convertReading("アリガトオ"))
}

func TestConvertReadingPalatalized(t *testing.T) {
	assert.Equal(t, "kyo o", convertReading("キョオ"))
	assert.Equal(t, "sha shi n", convertReading("シャシン"))
	assert.Equal(t, "cha", convertReading("チャ"))
}

func TestConvertReadingLongVowel(t *testing.T) {
	assert.Equal(t, "ra : me n", convertReading("ラーメン"))
	assert.Equal(t, "a:", convertReading("アア"))
}

func TestConvertReadingGeminateMark(t *testing.T) {
	assert.Equal(t, "i q pa i", convertReading("イッパイ"))
}

func TestConvertReadingHiragana(t *testing.T) {
	assert.Equal(t, "ko n ni chi wa", convertReading("こんにちは"))
}

func TestConvertReadingPassthrough(t *testing.T) {
	// Non-kana runes survive unchanged.
	assert.Equal(t, "漢 ji", convertReading("漢ジ"))
}

func TestPostProcessGeminate(t *testing.T) {
	assert.Equal(t, "i kka i", PostProcess("i q ka i"))
	assert.Equal(t, "ni ssa n", PostProcess("ni q sa n"))
	// q before a non-geminating consonant is left alone.
	assert.Equal(t, "i q na", PostProcess("i q na"))
}

func TestPostProcessCollapsesSpaces(t *testing.T) {
	assert.Equal(t, "a i", PostProcess("  a   i  "))
}

func TestTextToPhonemesKanaOnly(t *testing.T) {
	p := newPhonemizer(nil, nil)
	assert.Equal(t, "ko n ni chi wa", p.TextToPhonemes("こんにちは"))
}

func TestTextToPhonemesEmpty(t *testing.T) {
	p := newPhonemizer(nil, nil)
	assert.Empty(t, p.TextToPhonemes(""))
}

func TestDictionaryPreferred(t *testing.T) {
	d := dict.New()
	d.Add("こんにちは", "ko N n i tɕ i w a")

	p := newPhonemizer(d, nil)
	assert.Equal(t, "ko N n i tɕ i w a", p.TextToPhonemes("こんにちは"))

	stats := p.Stats()
	assert.Equal(t, uint64(1), stats.DictionaryHits)
	assert.Equal(t, uint64(1), stats.TotalMorphemes)
}

type fakeGraph struct {
	out  []int64
	err  error
	runs int
}

func (f *fakeGraph) Run(_ []int64) ([]int64, error) {
	f.runs++
	return f.out, f.err
}

func (f *fakeGraph) Close() error { return nil }

func TestNeuralFallbackUsedForKanji(t *testing.T) {
	// ids 4.. map to the built-in phoneme list: 10=ki, 4=a.
	graph := &fakeGraph{out: []int64{2, 10, 4, 3, 0, 0}}
	neural := NewNeuralResolver(graph, "")

	p := newPhonemizer(nil, neural)
	phonemes := p.TextToPhonemes("木")
	assert.Equal(t, "ki a", phonemes)
	assert.Equal(t, 1, graph.runs)

	stats := p.Stats()
	assert.Equal(t, uint64(1), stats.NeuralFallback)
}

func TestNeuralErrorFallsThroughToKana(t *testing.T) {
	graph := &fakeGraph{err: errors.New("boom")}
	neural := NewNeuralResolver(graph, "")

	p := newPhonemizer(nil, neural)
	// Kana input still resolves through the rule table.
	assert.Equal(t, "ne ko", p.TextToPhonemes("ねこ"))
}

func TestNeuralEncodePadsAndBrackets(t *testing.T) {
	neural := NewNeuralResolver(&fakeGraph{}, "")
	encoded := neural.Encode("あい")
	require.Len(t, encoded, defaultMaxInputLength)
	assert.Equal(t, int64(neuralBosID), encoded[0])
	assert.Equal(t, int64(neuralEosID), encoded[3])
	assert.Equal(t, int64(neuralPadID), encoded[4])
	// あ is the first hiragana in the built-in vocabulary.
	assert.Equal(t, int64(4), encoded[1])
}

func TestNeuralEncodeUnknownRune(t *testing.T) {
	neural := NewNeuralResolver(&fakeGraph{}, "")
	encoded := neural.Encode("☃")
	assert.Equal(t, int64(neuralUnkID), encoded[1])
}

func TestCascadeOrder(t *testing.T) {
	d := dict.New()
	d.Add("ねこ", "from dict")
	cascade := NewCascade(NewDictionaryResolver(d), NewKanaResolver())

	phonemes, ok := cascade.Resolve(segment.Morpheme{Surface: "ねこ", Reading: "ネコ"}, "")
	require.True(t, ok)
	assert.Equal(t, "from dict", phonemes)

	phonemes, ok = cascade.Resolve(segment.Morpheme{Surface: "いぬ", Reading: "イヌ"}, "")
	require.True(t, ok)
	assert.Equal(t, "i nu", phonemes)
}

func TestStatsReset(t *testing.T) {
	p := newPhonemizer(nil, nil)
	p.TextToPhonemes("こんにちは")
	require.NotZero(t, p.Stats().TotalMorphemes)
	p.ResetStats()
	assert.Zero(t, p.Stats().TotalMorphemes)
}
