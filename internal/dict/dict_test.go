package dict

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScalarObject(t *testing.T) {
	d, err := Load([]byte(`{"こんにちは":"ko n ni tɕi wa","hello":"h e l o"}`))
	require.NoError(t, err)

	phonemes, ok := d.Lookup("こんにちは")
	require.True(t, ok)
	assert.Equal(t, "ko n ni tɕi wa", phonemes)
	assert.Equal(t, 2, d.Len())
}

func TestLookupCaseInsensitive(t *testing.T) {
	d, err := Load([]byte(`{"hello":"h e l o"}`))
	require.NoError(t, err)

	phonemes, ok := d.Lookup("HELLO")
	require.True(t, ok)
	assert.Equal(t, "h e l o", phonemes)
}

func TestLoadDictionaryWrapper(t *testing.T) {
	d, err := Load([]byte(`{"dictionary":{"ねこ":"n e ko"}}`))
	require.NoError(t, err)
	assert.True(t, d.Contains("ねこ"))
}

func TestLoadEntriesArray(t *testing.T) {
	d, err := Load([]byte(`{"entries":[{"word":"今日","phonemes":"kyo o","reading":"キョウ"}]}`))
	require.NoError(t, err)

	phonemes, ok := d.LookupWithReading("今日", "キョウ", "", "")
	require.True(t, ok)
	assert.Equal(t, "kyo o", phonemes)
}

func TestReadingDisambiguation(t *testing.T) {
	d := New()
	d.AddReading("今日", ReadingEntry{Reading: "キョウ", Phonemes: "kyo o"})
	d.AddReading("今日", ReadingEntry{Reading: "コンニチ", Phonemes: "ko n ni tɕi"})

	phonemes, ok := d.LookupWithReading("今日", "コンニチ", "", "")
	require.True(t, ok)
	assert.Equal(t, "ko n ni tɕi", phonemes)

	// Unmatched reading falls back to the first entry.
	phonemes, ok = d.LookupWithReading("今日", "ケフ", "", "")
	require.True(t, ok)
	assert.Equal(t, "kyo o", phonemes)
}

func TestPOSDisambiguation(t *testing.T) {
	d := New()
	d.AddReading("行", ReadingEntry{Reading: "ギョウ", POS: "名詞", Phonemes: "gyo o"})
	d.AddReading("行", ReadingEntry{Reading: "イ", POS: "動詞", Phonemes: "i"})

	phonemes, ok := d.LookupWithReading("行", "イ", "動詞", "")
	require.True(t, ok)
	assert.Equal(t, "i", phonemes)
}

func TestContextDisambiguation(t *testing.T) {
	d := New()
	d.AddReading("生", ReadingEntry{Context: "ビール", Phonemes: "na ma"})
	d.AddReading("生", ReadingEntry{Phonemes: "se e"})

	phonemes, ok := d.LookupWithReading("生", "", "", "生ビールください")
	require.True(t, ok)
	assert.Equal(t, "na ma", phonemes)

	phonemes, ok = d.LookupWithReading("生", "", "", "人生")
	require.True(t, ok)
	assert.Equal(t, "se e", phonemes)
}

func TestStatsTrackHitsAndMisses(t *testing.T) {
	d := New()
	d.Add("ねこ", "n e ko")

	d.Lookup("ねこ")
	d.Lookup("いぬ")
	d.Lookup("とり")

	s := d.Stats()
	assert.Equal(t, uint64(1), s.Hits)
	assert.Equal(t, uint64(2), s.Misses)
	assert.InDelta(t, 1.0/3.0, s.HitRate, 1e-9)

	d.ResetStats()
	s = d.Stats()
	assert.Zero(t, s.Hits)
	assert.Zero(t, s.Misses)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "dict.json")

	orig := New()
	orig.Add("こんにちは", "ko n ni tɕi wa")
	orig.AddReading("今日", ReadingEntry{Reading: "キョウ", Phonemes: "kyo o", POS: "名詞"})
	require.NoError(t, orig.Save(path))

	loaded, err := LoadFile(path)
	require.NoError(t, err)

	phonemes, ok := loaded.Lookup("こんにちは")
	require.True(t, ok)
	assert.Equal(t, "ko n ni tɕi wa", phonemes)

	phonemes, ok = loaded.LookupWithReading("今日", "キョウ", "名詞", "")
	require.True(t, ok)
	assert.Equal(t, "kyo o", phonemes)
}
