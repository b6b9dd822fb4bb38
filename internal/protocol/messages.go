// Package protocol defines the bus subjects and wire messages for the
// synthesis service.
package protocol

import "time"

const (
	SubjectSynthesize = "tts.synthesize"
	SubjectVoices     = "tts.voices"
	SubjectStats      = "tts.stats"
)

// SynthesizeRequest mirrors the engine request. Omitted floats default
// to 1.0 on the engine side; UseCache and NormalizeText default true
// here so bare requests behave like local ones.
type SynthesizeRequest struct {
	Text          string  `json:"text"`
	VoiceID       string  `json:"voice_id,omitempty"`
	Speed         float32 `json:"speed,omitempty"`
	Pitch         float32 `json:"pitch,omitempty"`
	Volume        float32 `json:"volume,omitempty"`
	Phonemes      string  `json:"phonemes,omitempty"`
	UseCache      *bool   `json:"use_cache,omitempty"`
	NormalizeText *bool   `json:"normalize_text,omitempty"`
	Format        string  `json:"format,omitempty"` // "pcm16" (default) or "float32"
}

// SynthesizeReply carries the result; audio travels as base64 WAV bytes
// in the JSON encoding.
type SynthesizeReply struct {
	Status       string    `json:"status"`
	ErrorMessage string    `json:"error_message,omitempty"`
	SampleRate   int       `json:"sample_rate"`
	Channels     int       `json:"channels"`
	DurationMS   int64     `json:"duration_ms"`
	CacheHit     bool      `json:"cache_hit"`
	Phonemes     []string  `json:"phonemes,omitempty"`
	WAV          []byte    `json:"wav,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// VoiceInfo is one entry in the voices listing.
type VoiceInfo struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Language     string  `json:"language"`
	Gender       string  `json:"gender"`
	DefaultSpeed float32 `json:"default_speed"`
	DefaultPitch float32 `json:"default_pitch"`
	Description  string  `json:"description,omitempty"`
}

// VoicesReply lists the loaded voices.
type VoicesReply struct {
	Default string      `json:"default"`
	Voices  []VoiceInfo `json:"voices"`
}
