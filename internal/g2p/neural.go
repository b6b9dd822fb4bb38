package g2p

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/kotobalabs/kotoba-tts/internal/segment"
)

const (
	neuralPadID = 0
	neuralUnkID = 1
	neuralBosID = 2
	neuralEosID = 3

	defaultMaxInputLength = 128
)

// Graph executes the phonemizer model: encoded character ids in,
// phoneme ids out.
type Graph interface {
	Run(inputIDs []int64) ([]int64, error)
	Close() error
}

// NeuralResolver is the G2P fallback for words the dictionary misses:
// it encodes the surface form over a character vocabulary, runs the
// phonemizer graph, and decodes the output ids to phoneme symbols.
type NeuralResolver struct {
	graph      Graph
	charToID   map[rune]int64
	idToSymbol map[int64]string
	maxInput   int
}

// vocabSidecar is the artifact format for model-agreed vocabularies,
// expected at <model>.vocab.json. The hard-coded tables are only the
// fallback for models shipped without one.
type vocabSidecar struct {
	Chars    map[string]int64  `json:"chars"`
	Phonemes map[string]string `json:"phonemes"`
	MaxInput int               `json:"max_input_length,omitempty"`
}

// NewNeuralResolver wraps a graph with vocabularies loaded from the
// sidecar next to modelPath when present, or the built-in tables.
func NewNeuralResolver(graph Graph, modelPath string) *NeuralResolver {
	r := &NeuralResolver{
		graph:    graph,
		maxInput: defaultMaxInputLength,
	}
	if modelPath != "" {
		if sidecar, err := loadVocabSidecar(modelPath + ".vocab.json"); err == nil {
			r.applySidecar(sidecar)
		}
	}
	if r.charToID == nil {
		r.charToID = builtinCharVocab()
	}
	if r.idToSymbol == nil {
		r.idToSymbol = builtinPhonemeVocab()
	}
	return r
}

func loadVocabSidecar(path string) (*vocabSidecar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sidecar vocabSidecar
	if err := json.Unmarshal(data, &sidecar); err != nil {
		return nil, fmt.Errorf("parse vocab sidecar: %w", err)
	}
	return &sidecar, nil
}

func (r *NeuralResolver) applySidecar(sidecar *vocabSidecar) {
	if len(sidecar.Chars) > 0 {
		chars := make(map[rune]int64, len(sidecar.Chars))
		for s, id := range sidecar.Chars {
			for _, c := range s {
				chars[c] = id
				break
			}
		}
		r.charToID = chars
	}
	if len(sidecar.Phonemes) > 0 {
		symbols := make(map[int64]string, len(sidecar.Phonemes))
		for idStr, symbol := range sidecar.Phonemes {
			if id, err := strconv.ParseInt(idStr, 10, 64); err == nil {
				symbols[id] = symbol
			}
		}
		r.idToSymbol = symbols
	}
	if sidecar.MaxInput > 0 {
		r.maxInput = sidecar.MaxInput
	}
}

func (r *NeuralResolver) Ready() bool {
	return r != nil && r.graph != nil
}

func (r *NeuralResolver) Resolve(m segment.Morpheme, _ string) (string, bool) {
	if !r.Ready() || m.Surface == "" {
		return "", false
	}
	outputIDs, err := r.graph.Run(r.Encode(m.Surface))
	if err != nil {
		return "", false
	}
	phonemes := r.Decode(outputIDs)
	return phonemes, phonemes != ""
}

// Encode maps text to character ids bracketed by BOS/EOS and padded to
// the fixed input length. Over-long inputs are truncated with EOS kept
// in the last slot.
func (r *NeuralResolver) Encode(text string) []int64 {
	encoded := make([]int64, 0, r.maxInput)
	encoded = append(encoded, neuralBosID)
	for _, c := range text {
		if id, ok := r.charToID[c]; ok {
			encoded = append(encoded, id)
		} else {
			encoded = append(encoded, neuralUnkID)
		}
	}
	encoded = append(encoded, neuralEosID)

	if len(encoded) > r.maxInput {
		encoded = encoded[:r.maxInput]
		encoded[r.maxInput-1] = neuralEosID
	}
	for len(encoded) < r.maxInput {
		encoded = append(encoded, neuralPadID)
	}
	return encoded
}

// Decode maps output ids to space-joined phoneme symbols, skipping
// special ids.
func (r *NeuralResolver) Decode(ids []int64) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == neuralPadID || id == neuralUnkID || id == neuralBosID || id == neuralEosID {
			continue
		}
		if symbol, ok := r.idToSymbol[id]; ok && symbol != "" {
			parts = append(parts, symbol)
		}
	}
	return strings.Join(parts, " ")
}

func (r *NeuralResolver) Close() error {
	if r == nil || r.graph == nil {
		return nil
	}
	return r.graph.Close()
}

func builtinCharVocab() map[rune]int64 {
	chars := make(map[rune]int64)
	id := int64(4)
	for c := rune(0x3042); c <= 0x3093; c++ { // hiragana あ..ん
		chars[c] = id
		id++
	}
	for c := rune(0x30A2); c <= 0x30F3; c++ { // katakana ア..ン
		chars[c] = id
		id++
	}
	for _, c := range "一二三四五六七八九十百千万円時日月年" {
		chars[c] = id
		id++
	}
	for c := rune(' '); c <= '~'; c++ {
		chars[c] = id
		id++
	}
	for _, c := range "。、！？「」『』（）・ー" {
		chars[c] = id
		id++
	}
	return chars
}

func builtinPhonemeVocab() map[int64]string {
	symbols := []string{
		"a", "i", "u", "e", "o",
		"ka", "ki", "ku", "ke", "ko",
		"ga", "gi", "gu", "ge", "go",
		"sa", "shi", "su", "se", "so",
		"za", "ji", "zu", "ze", "zo",
		"ta", "chi", "tsu", "te", "to",
		"da", "de", "do",
		"na", "ni", "nu", "ne", "no",
		"ha", "hi", "fu", "he", "ho",
		"ba", "bi", "bu", "be", "bo",
		"pa", "pi", "pu", "pe", "po",
		"ma", "mi", "mu", "me", "mo",
		"ya", "yu", "yo",
		"ra", "ri", "ru", "re", "ro",
		"wa", "wo", "n",
		"kya", "kyu", "kyo",
		"gya", "gyu", "gyo",
		"sha", "shu", "sho",
		"ja", "ju", "jo",
		"cha", "chu", "cho",
		"nya", "nyu", "nyo",
		"hya", "hyu", "hyo",
		"bya", "byu", "byo",
		"pya", "pyu", "pyo",
		"mya", "myu", "myo",
		"rya", "ryu", "ryo",
		"q", ":", ".", ",", "!", "?",
	}
	out := make(map[int64]string, len(symbols))
	for i, symbol := range symbols {
		out[int64(i)+4] = symbol
	}
	return out
}
