package segment

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestNormalizeFullWidth(t *testing.T) {
	assert.Equal(t, "Hello 123!", Normalize("Ｈｅｌｌｏ　１２３！"))
}

func TestNormalizeKeepsJapanese(t *testing.T) {
	assert.Equal(t, "こんにちは。", Normalize("こんにちは。"))
}

func TestKanaRoundTrip(t *testing.T) {
	for _, s := range []string{"こんにちは", "ありがとう", "きょう"} {
		assert.Equal(t, s, KatakanaToHiragana(HiraganaToKatakana(s)))
	}
}

func TestHiraganaToKatakana(t *testing.T) {
	assert.Equal(t, "コンニチハ", HiraganaToKatakana("こんにちは"))
	// The long-vowel mark is not a hiragana rune and passes through.
	assert.Equal(t, "ラーメン", HiraganaToKatakana("らーめん"))
}

func TestPredicates(t *testing.T) {
	assert.True(t, ContainsKanji("日本語"))
	assert.False(t, ContainsKanji("にほんご"))
	assert.True(t, IsPureHiragana("こんにちは。"))
	assert.False(t, IsPureHiragana("こんにちはA"))
	assert.True(t, IsPureKatakana("カタカナ"))
	assert.False(t, IsPureKatakana("かたかな"))
}

func TestScriptAnalyzerBoundaries(t *testing.T) {
	a := NewScriptAnalyzer()
	morphemes := a.Parse("日本語のテキスト")
	require.Len(t, morphemes, 3)
	assert.Equal(t, "日本語", morphemes[0].Surface)
	assert.Equal(t, "の", morphemes[1].Surface)
	assert.Equal(t, "テキスト", morphemes[2].Surface)
	assert.Equal(t, "テキスト", morphemes[2].Reading)
}

func TestScriptAnalyzerPunctuation(t *testing.T) {
	a := NewScriptAnalyzer()
	morphemes := a.Parse("はい、そう。")
	var punct []Morpheme
	for _, m := range morphemes {
		if m.POS == "記号" {
			punct = append(punct, m)
		}
	}
	// One morpheme per punctuation rune.
	require.Len(t, punct, 2)
	assert.Equal(t, "、", punct[0].Surface)
	assert.Equal(t, "。", punct[1].Surface)
}

func TestScriptAnalyzerReadings(t *testing.T) {
	a := NewScriptAnalyzer()
	morphemes := a.Parse("ねこ")
	require.Len(t, morphemes, 1)
	assert.Equal(t, "ネコ", morphemes[0].Reading)

	morphemes = a.Parse("猫")
	require.Len(t, morphemes, 1)
	assert.Empty(t, morphemes[0].Reading)
}

func TestSegmenterNormalizes(t *testing.T) {
	s := New(NewScriptAnalyzer(), true, newLogger())
	morphemes := s.Segment("ＡＢ")
	require.Len(t, morphemes, 2)
	assert.Equal(t, "A", morphemes[0].Surface)
}

func TestSegmenterEmptyInput(t *testing.T) {
	s := New(nil, true, newLogger())
	assert.Nil(t, s.Segment(""))
}

func TestKagomeAnalyzerParse(t *testing.T) {
	a, err := NewKagomeAnalyzer()
	require.NoError(t, err)

	morphemes := a.Parse("今日は晴れです")
	require.NotEmpty(t, morphemes)
	for _, m := range morphemes {
		assert.NotEmpty(t, m.Surface)
		assert.NotEmpty(t, m.POS)
	}
}
