// Package engine orchestrates the synthesis pipeline: segmentation, G2P,
// tokenization, inference, audio post-processing, caching, and the async
// submission surface.
package engine

import (
	"time"

	"github.com/kotobalabs/kotoba-tts/internal/audio"
	"github.com/kotobalabs/kotoba-tts/internal/cache"
	"github.com/kotobalabs/kotoba-tts/internal/g2p"
	"github.com/kotobalabs/kotoba-tts/internal/inference"
)

// Status classifies a synthesis outcome. The engine boundary never
// panics or returns bare errors for request-level failures; callers test
// the status.
type Status int

const (
	StatusOK Status = iota
	StatusInvalidInput
	StatusFileNotFound
	StatusNotInitialized
	StatusInitializationFailed
	StatusModelNotLoaded
	StatusInferenceFailed
	StatusVoiceNotFound
	StatusCancelled
	StatusTimeout
	StatusUnknown
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusInvalidInput:
		return "invalid_input"
	case StatusFileNotFound:
		return "file_not_found"
	case StatusNotInitialized:
		return "not_initialized"
	case StatusInitializationFailed:
		return "initialization_failed"
	case StatusModelNotLoaded:
		return "model_not_loaded"
	case StatusInferenceFailed:
		return "inference_failed"
	case StatusVoiceNotFound:
		return "voice_not_found"
	case StatusCancelled:
		return "cancelled"
	case StatusTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Priority is carried in the request schema but does not reorder the
// FIFO queue.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityCritical
)

// Request describes one synthesis. Phonemes, when set, bypasses G2P.
type Request struct {
	Text          string   `json:"text"`
	VoiceID       string   `json:"voice_id"`
	Speed         float32  `json:"speed"`
	Pitch         float32  `json:"pitch"`
	Volume        float32  `json:"volume"`
	Priority      Priority `json:"priority"`
	Phonemes      string   `json:"phonemes,omitempty"`
	UseCache      bool     `json:"use_cache"`
	NormalizeText bool     `json:"normalize_text"`
}

// NewRequest returns a request with the standard defaults.
func NewRequest(text, voiceID string) Request {
	return Request{
		Text:          text,
		VoiceID:       voiceID,
		Speed:         1.0,
		Pitch:         1.0,
		Volume:        1.0,
		Priority:      PriorityNormal,
		UseCache:      true,
		NormalizeText: true,
	}
}

// withDefaults fills zero-valued scalars so requests deserialized from
// JSON with omitted fields behave like NewRequest ones.
func (r Request) withDefaults() Request {
	if r.Speed <= 0 {
		r.Speed = 1.0
	}
	if r.Pitch <= 0 {
		r.Pitch = 1.0
	}
	if r.Volume <= 0 {
		r.Volume = 1.0
	}
	return r
}

// PhonemeInfo is one resolved phoneme and its position in the sequence.
type PhonemeInfo struct {
	Symbol   string `json:"symbol"`
	Position int    `json:"position"`
}

// ProcessingStats times the pipeline stages of one request.
type ProcessingStats struct {
	Total        time.Duration `json:"total"`
	Phonemize    time.Duration `json:"phonemize"`
	Tokenize     time.Duration `json:"tokenize"`
	Inference    time.Duration `json:"inference"`
	AudioProcess time.Duration `json:"audio_process"`

	TextLength   int  `json:"text_length"`
	PhonemeCount int  `json:"phoneme_count"`
	TokenCount   int  `json:"token_count"`
	AudioSamples int  `json:"audio_samples"`
	CacheHit     bool `json:"cache_hit"`
}

// Result is the synthesis outcome. A failed request carries an empty
// sample buffer and a human-readable message.
type Result struct {
	Status       Status          `json:"status"`
	Audio        audio.Data      `json:"audio"`
	Phonemes     []PhonemeInfo   `json:"phonemes"`
	TokenIDs     []int64         `json:"token_ids"`
	Stats        ProcessingStats `json:"stats"`
	ErrorMessage string          `json:"error_message,omitempty"`
}

func (r *Result) IsSuccess() bool { return r.Status == StatusOK }
func (r *Result) HasAudio() bool  { return len(r.Audio.Samples) > 0 }

// PerformanceStats aggregates engine-level counters for the stats
// surface.
type PerformanceStats struct {
	TotalRequests      uint64          `json:"total_requests"`
	SuccessfulRequests uint64          `json:"successful_requests"`
	FailedRequests     uint64          `json:"failed_requests"`
	QueueDepth         int             `json:"queue_depth"`
	ActiveCount        int             `json:"active_count"`
	Cache              cache.Stats     `json:"cache"`
	Inference          inference.Stats `json:"inference"`
	G2P                g2p.Stats       `json:"g2p"`
	Latency            LatencyStats    `json:"latency"`
}

// LatencyStats summarizes the rolling window of recent request times.
type LatencyStats struct {
	Count  int     `json:"count"`
	MeanMS float64 `json:"mean_ms"`
	MinMS  float64 `json:"min_ms"`
	MaxMS  float64 `json:"max_ms"`
}

const (
	// memory accounting for cached results
	phonemeEntrySize   = 32
	cacheEntryOverhead = 256
)

// resultFootprint is the cache cost function.
func resultFootprint(r *Result) int {
	return len(r.Audio.Samples)*4 +
		len(r.Phonemes)*phonemeEntrySize +
		len(r.TokenIDs)*4 +
		len(r.ErrorMessage) +
		cacheEntryOverhead
}
