package g2p

import "strings"

// Two-rune units are matched before singles: palatalized combinations and
// doubled vowels would otherwise decompose into the wrong morae.
var kanaPairs = map[string]string{
	"アア": "a:", "イイ": "i:", "ウウ": "u:", "エエ": "e:", "オオ": "o:",

	"キャ": "kya", "キュ": "kyu", "キョ": "kyo",
	"ギャ": "gya", "ギュ": "gyu", "ギョ": "gyo",
	"シャ": "sha", "シュ": "shu", "ショ": "sho",
	"ジャ": "ja", "ジュ": "ju", "ジョ": "jo",
	"チャ": "cha", "チュ": "chu", "チョ": "cho",
	"ニャ": "nya", "ニュ": "nyu", "ニョ": "nyo",
	"ヒャ": "hya", "ヒュ": "hyu", "ヒョ": "hyo",
	"ビャ": "bya", "ビュ": "byu", "ビョ": "byo",
	"ピャ": "pya", "ピュ": "pyu", "ピョ": "pyo",
	"ミャ": "mya", "ミュ": "myu", "ミョ": "myo",
	"リャ": "rya", "リュ": "ryu", "リョ": "ryo",
}

var kanaSingles = map[rune]string{
	'ー': ":",

	'ア': "a", 'イ': "i", 'ウ': "u", 'エ': "e", 'オ': "o",
	'カ': "ka", 'キ': "ki", 'ク': "ku", 'ケ': "ke", 'コ': "ko",
	'ガ': "ga", 'ギ': "gi", 'グ': "gu", 'ゲ': "ge", 'ゴ': "go",
	'サ': "sa", 'シ': "shi", 'ス': "su", 'セ': "se", 'ソ': "so",
	'ザ': "za", 'ジ': "ji", 'ズ': "zu", 'ゼ': "ze", 'ゾ': "zo",
	'タ': "ta", 'チ': "chi", 'ツ': "tsu", 'テ': "te", 'ト': "to",
	'ダ': "da", 'ヂ': "ji", 'ヅ': "zu", 'デ': "de", 'ド': "do",
	'ナ': "na", 'ニ': "ni", 'ヌ': "nu", 'ネ': "ne", 'ノ': "no",
	'ハ': "ha", 'ヒ': "hi", 'フ': "fu", 'ヘ': "he", 'ホ': "ho",
	'バ': "ba", 'ビ': "bi", 'ブ': "bu", 'ベ': "be", 'ボ': "bo",
	'パ': "pa", 'ピ': "pi", 'プ': "pu", 'ペ': "pe", 'ポ': "po",
	'マ': "ma", 'ミ': "mi", 'ム': "mu", 'メ': "me", 'モ': "mo",
	'ヤ': "ya", 'ユ': "yu", 'ヨ': "yo",
	'ラ': "ra", 'リ': "ri", 'ル': "ru", 'レ': "re", 'ロ': "ro",
	'ワ': "wa", 'ヲ': "wo", 'ン': "n",

	'ッ': "q",
	'ャ': "ya", 'ュ': "yu", 'ョ': "yo",
	'ァ': "a", 'ィ': "i", 'ゥ': "u", 'ェ': "e", 'ォ': "o",
}

// convertKatakana rewrites a katakana string into space-separated
// phonemes with two-rune lookahead. Runes outside the table pass through
// unchanged.
func convertKatakana(reading string) string {
	runes := []rune(reading)
	var parts []string
	for i := 0; i < len(runes); {
		if i+1 < len(runes) {
			if phoneme, ok := kanaPairs[string(runes[i:i+2])]; ok {
				parts = append(parts, phoneme)
				i += 2
				continue
			}
		}
		if phoneme, ok := kanaSingles[runes[i]]; ok {
			parts = append(parts, phoneme)
		} else {
			parts = append(parts, string(runes[i]))
		}
		i++
	}
	return strings.Join(parts, " ")
}

// convertReading handles both kana scripts by folding hiragana into
// katakana first.
func convertReading(reading string) string {
	var sb strings.Builder
	sb.Grow(len(reading))
	for _, r := range reading {
		if r >= 0x3041 && r <= 0x3096 {
			r += 0x60
		}
		sb.WriteRune(r)
	}
	return convertKatakana(sb.String())
}
