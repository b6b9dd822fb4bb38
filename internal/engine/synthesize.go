package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/kotobalabs/kotoba-tts/internal/audio"
	"github.com/kotobalabs/kotoba-tts/internal/segment"
)

// Synthesize runs one request on the caller's goroutine. Identical
// concurrent requests share a single computation through the
// single-flight table; cached results short-circuit the pipeline.
func (e *Engine) Synthesize(req Request) Result {
	if !e.initialized.Load() {
		e.stats.recordRequest()
		return e.finish(failure(StatusNotInitialized, "engine not initialized"), time.Now())
	}
	return e.synthesize(req)
}

// synthesize is the shared core for the sync path and the worker pool.
func (e *Engine) synthesize(req Request) Result {
	e.stats.recordRequest()
	began := time.Now()
	req = req.withDefaults()

	if req.Text == "" && req.Phonemes == "" {
		return e.finish(failure(StatusInvalidInput, "empty text"), began)
	}

	key := fingerprint(req)

	if req.UseCache && e.results != nil {
		if cached, ok := e.results.Get(key); ok {
			result := *cached
			result.Stats.CacheHit = true
			e.metrics.recordCacheHit()
			return e.finish(result, began)
		}
		e.metrics.recordCacheMiss()
	}

	f, leader := e.flights.acquire(key)
	if !leader {
		return e.finish(f.wait(), began)
	}

	result := e.process(req, began)
	if req.UseCache && e.results != nil && result.IsSuccess() {
		stored := result
		e.results.Put(key, &stored)
	}
	e.flights.release(key, f, result)
	return e.finish(result, began)
}

// process executes the pipeline stages with per-stage timing.
func (e *Engine) process(req Request, began time.Time) Result {
	var result Result
	result.Stats.TextLength = len(req.Text)

	text := req.Text
	if req.NormalizeText && req.Phonemes == "" {
		text = segment.Normalize(text)
	}

	phonemeStart := time.Now()
	phonemes := req.Phonemes
	if phonemes == "" {
		phonemes = e.phonemizer.TextToPhonemes(text)
	}
	result.Stats.Phonemize = time.Since(phonemeStart)

	result.Phonemes = parsePhonemes(phonemes)
	result.Stats.PhonemeCount = len(result.Phonemes)

	tokenStart := time.Now()
	tokens := e.vocabulary.Tokenize(phonemes, true)
	result.Stats.Tokenize = time.Since(tokenStart)
	result.TokenIDs = tokens
	result.Stats.TokenCount = len(tokens)

	voiceID := req.VoiceID
	if voiceID == "" {
		voiceID = e.voices.DefaultID()
	}
	v, err := e.voices.Get(voiceID)
	if err != nil {
		result.Status = StatusVoiceNotFound
		result.ErrorMessage = fmt.Sprintf("voice not found: %s", voiceID)
		return result
	}

	inferenceStart := time.Now()
	samples, err := e.runner.Run(tokens, v.StyleVector,
		req.Speed*v.DefaultSpeed, req.Pitch*v.DefaultPitch)
	result.Stats.Inference = time.Since(inferenceStart)
	if err != nil {
		result.Status = StatusInferenceFailed
		result.ErrorMessage = fmt.Sprintf("inference failed: %v", err)
		return result
	}

	audioStart := time.Now()
	processed := audio.Process(samples, req.Volume, e.cfg.NormalizeAudio)
	result.Audio = audio.NewData(processed, e.cfg.TargetSampleRate)
	result.Stats.AudioProcess = time.Since(audioStart)
	result.Stats.AudioSamples = len(processed)

	result.Status = StatusOK
	result.Stats.Total = time.Since(began)
	return result
}

// finish records outcome statistics and stamps the total time.
func (e *Engine) finish(result Result, began time.Time) Result {
	elapsed := time.Since(began)
	if result.Stats.Total == 0 {
		result.Stats.Total = elapsed
	}
	e.stats.recordOutcome(result.IsSuccess(), elapsed)
	e.metrics.recordRequest(result.Status, elapsed)
	return result
}

func failure(status Status, message string) Result {
	return Result{Status: status, ErrorMessage: message}
}

// fingerprint derives the cache and single-flight key from every field
// that affects the output. Floats are fixed to two decimals so
// serialization noise does not split identical requests.
func fingerprint(req Request) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s|%s|%.2f|%.2f|%.2f",
		req.Text, req.VoiceID, req.Speed, req.Pitch, req.Volume)
	if req.Phonemes != "" {
		sb.WriteByte('|')
		sb.WriteString(req.Phonemes)
	}
	sum := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(sum[:])
}

func parsePhonemes(phonemes string) []PhonemeInfo {
	fields := strings.Fields(phonemes)
	out := make([]PhonemeInfo, len(fields))
	for i, symbol := range fields {
		out[i] = PhonemeInfo{Symbol: symbol, Position: i}
	}
	return out
}
