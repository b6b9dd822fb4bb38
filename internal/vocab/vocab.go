// Package vocab maintains the bijection between phoneme symbols and the
// integer token ids the acoustic model consumes.
package vocab

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

const (
	PadToken = "<pad>"
	UnkToken = "<unk>"
	BosToken = "<s>"
	EosToken = "</s>"
)

// Vocabulary maps phoneme symbols to token ids and back. It is not safe
// for concurrent mutation; the engine treats it as read-only after load.
type Vocabulary struct {
	symbolToID map[string]int
	idToSymbol map[int]string
	nextID     int

	padID int
	unkID int
	bosID int
	eosID int
}

func New() *Vocabulary {
	return &Vocabulary{
		symbolToID: make(map[string]int),
		idToSymbol: make(map[int]string),
		padID:      0,
		unkID:      1,
		bosID:      2,
		eosID:      3,
	}
}

// LoadFile reads a vocabulary from disk. JSON files may be an object
// {symbol: id}, an array of symbols (positional ids), or wrapped in a
// top-level "vocab" field. Anything else is treated as the two-column
// text form (symbol<tab|space>id, or one symbol per line).
func LoadFile(path string) (*Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vocabulary: %w", err)
	}
	if filepath.Ext(path) == ".json" {
		return FromJSON(data)
	}
	return FromText(string(data))
}

// FromJSON parses the object, array, or {"vocab": ...} wrapper forms.
func FromJSON(data []byte) (*Vocabulary, error) {
	var wrapper struct {
		Vocab json.RawMessage `json:"vocab"`
	}
	if err := json.Unmarshal(data, &wrapper); err == nil && len(wrapper.Vocab) > 0 {
		data = wrapper.Vocab
	}

	v := New()

	var asObject map[string]any
	if err := json.Unmarshal(data, &asObject); err == nil {
		for symbol, raw := range asObject {
			switch id := raw.(type) {
			case float64:
				v.AddWithID(symbol, int(id))
			case string:
				if parsed, convErr := strconv.Atoi(id); convErr == nil {
					v.AddWithID(symbol, parsed)
				}
			}
		}
		v.resolveSpecials()
		return v, nil
	}

	var asArray []string
	if err := json.Unmarshal(data, &asArray); err == nil {
		for i, symbol := range asArray {
			v.AddWithID(symbol, i)
		}
		v.resolveSpecials()
		return v, nil
	}

	return nil, fmt.Errorf("unrecognized vocabulary JSON shape")
}

// FromText parses the line-oriented form. Lines starting with # are
// comments; a line is either "symbol<sep>id" or a bare symbol that gets
// the next sequential id.
func FromText(text string) (*Vocabulary, error) {
	v := New()
	scanner := bufio.NewScanner(strings.NewReader(text))
	sequential := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		sep := strings.IndexByte(line, '\t')
		if sep < 0 {
			sep = strings.IndexByte(line, ' ')
		}
		if sep >= 0 {
			symbol := strings.TrimSpace(line[:sep])
			if id, err := strconv.Atoi(strings.TrimSpace(line[sep+1:])); err == nil {
				v.AddWithID(symbol, id)
				continue
			}
		}
		v.AddWithID(line, sequential)
		sequential++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan vocabulary text: %w", err)
	}
	if v.Size() == 0 {
		return nil, fmt.Errorf("empty vocabulary")
	}
	v.resolveSpecials()
	return v, nil
}

// BuildFromCorpus assembles a vocabulary from space-separated phoneme
// strings: the four special tokens at ids 0..3, then the sorted unique
// symbols of the corpus.
func BuildFromCorpus(phonemeStrings []string) *Vocabulary {
	v := New()
	v.AddWithID(PadToken, 0)
	v.AddWithID(UnkToken, 1)
	v.AddWithID(BosToken, 2)
	v.AddWithID(EosToken, 3)

	unique := make(map[string]struct{})
	for _, s := range phonemeStrings {
		for _, symbol := range strings.Fields(s) {
			unique[symbol] = struct{}{}
		}
	}
	symbols := make([]string, 0, len(unique))
	for symbol := range unique {
		if !v.Contains(symbol) {
			symbols = append(symbols, symbol)
		}
	}
	sort.Strings(symbols)
	for _, symbol := range symbols {
		v.Add(symbol)
	}
	return v
}

// resolveSpecials looks up the special tokens, keeping the conventional
// ids 0..3 for any that the loaded vocabulary does not define.
func (v *Vocabulary) resolveSpecials() {
	lookup := func(symbol string, fallback int) int {
		if id, ok := v.symbolToID[symbol]; ok {
			return id
		}
		return fallback
	}
	v.padID = lookup(PadToken, 0)
	v.unkID = lookup(UnkToken, 1)
	v.bosID = lookup(BosToken, 2)
	v.eosID = lookup(EosToken, 3)
}

// Add inserts a symbol with the next free id. Known symbols keep their id.
func (v *Vocabulary) Add(symbol string) int {
	if id, ok := v.symbolToID[symbol]; ok {
		return id
	}
	id := v.nextID
	v.AddWithID(symbol, id)
	return id
}

func (v *Vocabulary) AddWithID(symbol string, id int) {
	v.symbolToID[symbol] = id
	v.idToSymbol[id] = symbol
	if id+1 > v.nextID {
		v.nextID = id + 1
	}
}

// IDOf returns the id for a symbol, or the unknown-token id.
func (v *Vocabulary) IDOf(symbol string) int {
	if id, ok := v.symbolToID[symbol]; ok {
		return id
	}
	return v.unkID
}

// SymbolOf returns the symbol for an id, or "" if the id is unassigned.
func (v *Vocabulary) SymbolOf(id int) string {
	return v.idToSymbol[id]
}

func (v *Vocabulary) Contains(symbol string) bool {
	_, ok := v.symbolToID[symbol]
	return ok
}

func (v *Vocabulary) Size() int { return len(v.symbolToID) }

func (v *Vocabulary) PadID() int { return v.padID }
func (v *Vocabulary) UnkID() int { return v.unkID }
func (v *Vocabulary) BosID() int { return v.bosID }
func (v *Vocabulary) EosID() int { return v.eosID }

// Symbols returns every symbol in ascending id order.
func (v *Vocabulary) Symbols() []string {
	ids := make([]int, 0, len(v.idToSymbol))
	for id := range v.idToSymbol {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, v.idToSymbol[id])
	}
	return out
}

// Tokenize maps a space-separated phoneme string to ids, bracketing with
// BOS/EOS when requested. Unknown symbols map to the unknown id.
func (v *Vocabulary) Tokenize(phonemes string, addSpecials bool) []int64 {
	fields := strings.Fields(phonemes)
	out := make([]int64, 0, len(fields)+2)
	if addSpecials {
		out = append(out, int64(v.bosID))
	}
	for _, symbol := range fields {
		out = append(out, int64(v.IDOf(symbol)))
	}
	if addSpecials {
		out = append(out, int64(v.eosID))
	}
	return out
}

// Detokenize maps ids back to a space-separated phoneme string, skipping
// special and unassigned ids.
func (v *Vocabulary) Detokenize(tokens []int64) string {
	parts := make([]string, 0, len(tokens))
	for _, t := range tokens {
		id := int(t)
		if id == v.padID || id == v.bosID || id == v.eosID || id == v.unkID {
			continue
		}
		symbol := v.idToSymbol[id]
		if symbol == "" {
			continue
		}
		parts = append(parts, symbol)
	}
	return strings.Join(parts, " ")
}

// Save writes the vocabulary to disk: JSON object form for .json paths,
// the two-column text form otherwise. LoadFile round-trips both.
func (v *Vocabulary) Save(path string) error {
	var data []byte
	if filepath.Ext(path) == ".json" {
		var err error
		data, err = json.MarshalIndent(v.symbolToID, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal vocabulary: %w", err)
		}
	} else {
		var sb strings.Builder
		for _, symbol := range v.Symbols() {
			fmt.Fprintf(&sb, "%s\t%d\n", symbol, v.symbolToID[symbol])
		}
		data = []byte(sb.String())
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write vocabulary: %w", err)
	}
	return nil
}
