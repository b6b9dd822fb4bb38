// Package voice loads and serves speaker voices: identity metadata plus
// the style vector that conditions the acoustic model.
package voice

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var (
	// ErrNotFound indicates the requested voice id is not loaded.
	ErrNotFound = errors.New("voice not found")
	// ErrStyleDimension indicates a style vector whose length does not
	// match the acoustic model's declared style input.
	ErrStyleDimension = errors.New("style vector dimension mismatch")
)

type Gender string

const (
	GenderMale    Gender = "male"
	GenderFemale  Gender = "female"
	GenderNeutral Gender = "neutral"
)

// Voice is immutable after load.
type Voice struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Language     string    `json:"language"`
	Gender       Gender    `json:"gender"`
	StyleVector  []float32 `json:"style_vector"`
	DefaultSpeed float32   `json:"default_speed"`
	DefaultPitch float32   `json:"default_pitch"`
	Description  string    `json:"description,omitempty"`
	PreviewURL   string    `json:"preview_url,omitempty"`
}

// descriptor is the on-disk JSON shape; "style" and "style_vector" are
// both accepted.
type descriptor struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Language     string    `json:"language"`
	Gender       string    `json:"gender"`
	Style        []float32 `json:"style"`
	StyleVector  []float32 `json:"style_vector"`
	DefaultSpeed *float32  `json:"default_speed"`
	DefaultPitch *float32  `json:"default_pitch"`
	Description  string    `json:"description"`
	PreviewURL   string    `json:"preview_url"`
}

// Registry holds loaded voices. Reads share a lock; mutations serialize.
type Registry struct {
	mu        sync.RWMutex
	voices    map[string]Voice
	defaultID string
	styleDim  int
	log       *slog.Logger
}

// NewRegistry creates an empty registry. styleDim is the acoustic
// model's declared style length; zero disables the check.
func NewRegistry(styleDim int, log *slog.Logger) *Registry {
	return &Registry{
		voices:   make(map[string]Voice),
		styleDim: styleDim,
		log:      log.With(slog.String("component", "voice-registry")),
	}
}

// LoadFile loads one JSON descriptor. The file stem is the id when the
// descriptor omits one.
func (r *Registry) LoadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read voice descriptor: %w", err)
	}
	fallbackID := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return r.LoadData(fallbackID, data)
}

// LoadData loads a descriptor from memory.
func (r *Registry) LoadData(fallbackID string, data []byte) (string, error) {
	var desc descriptor
	if err := json.Unmarshal(data, &desc); err != nil {
		return "", fmt.Errorf("parse voice descriptor: %w", err)
	}

	v := Voice{
		ID:           desc.ID,
		Name:         desc.Name,
		Language:     desc.Language,
		DefaultSpeed: 1.0,
		DefaultPitch: 1.0,
		Description:  desc.Description,
		PreviewURL:   desc.PreviewURL,
	}
	if v.ID == "" {
		v.ID = fallbackID
	}
	if v.Name == "" {
		v.Name = v.ID
	}
	if v.Language == "" {
		v.Language = "ja"
	}
	switch strings.ToLower(desc.Gender) {
	case "male":
		v.Gender = GenderMale
	case "female":
		v.Gender = GenderFemale
	default:
		v.Gender = GenderNeutral
	}
	if desc.DefaultSpeed != nil {
		v.DefaultSpeed = *desc.DefaultSpeed
	}
	if desc.DefaultPitch != nil {
		v.DefaultPitch = *desc.DefaultPitch
	}

	v.StyleVector = desc.StyleVector
	if len(v.StyleVector) == 0 {
		v.StyleVector = desc.Style
	}
	if len(v.StyleVector) == 0 && r.styleDim > 0 {
		v.StyleVector = make([]float32, r.styleDim)
	}
	if r.styleDim > 0 && len(v.StyleVector) != r.styleDim {
		return "", fmt.Errorf("voice %q: %w: got %d, model wants %d",
			v.ID, ErrStyleDimension, len(v.StyleVector), r.styleDim)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.voices[v.ID] = v
	if r.defaultID == "" {
		r.defaultID = v.ID
	}
	return v.ID, nil
}

// LoadDir loads every *.json descriptor in a directory. A descriptor
// that fails to parse is logged and skipped; the return value is the
// number that loaded.
func (r *Registry) LoadDir(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read voices dir: %w", err)
	}

	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		id, err := r.LoadFile(path)
		if err != nil {
			r.log.Warn("skipping voice descriptor",
				slog.String("path", path),
				slog.String("error", err.Error()))
			continue
		}
		r.log.Debug("loaded voice", slog.String("id", id))
		loaded++
	}
	return loaded, nil
}

func (r *Registry) Get(id string) (Voice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.voices[id]
	if !ok {
		return Voice{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return v, nil
}

// List returns every loaded voice.
func (r *Registry) List() []Voice {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Voice, 0, len(r.voices))
	for _, v := range r.voices {
		out = append(out, v)
	}
	return out
}

func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.voices))
	for id := range r.voices {
		out = append(out, id)
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.voices)
}

// Unload removes a voice; the default falls back to any remaining voice.
func (r *Registry) Unload(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.voices[id]; !ok {
		return false
	}
	delete(r.voices, id)
	if r.defaultID == id {
		r.defaultID = ""
		for remaining := range r.voices {
			r.defaultID = remaining
			break
		}
	}
	return true
}

func (r *Registry) SetDefault(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.voices[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	r.defaultID = id
	return nil
}

func (r *Registry) DefaultID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultID
}

// Export writes one voice back out as a descriptor.
func (r *Registry) Export(id, path string) error {
	v, err := r.Get(id)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal voice: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write voice: %w", err)
	}
	return nil
}

// MemoryUsage estimates the bytes held by loaded voices.
func (r *Registry) MemoryUsage() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	total := 0
	for _, v := range r.voices {
		total += len(v.ID) + len(v.Name) + len(v.Language) +
			len(v.Description) + len(v.PreviewURL) +
			len(v.StyleVector)*4
	}
	return total
}
