package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kotobalabs/kotoba-tts/internal/audio"
	"github.com/kotobalabs/kotoba-tts/internal/engine"
	"github.com/kotobalabs/kotoba-tts/internal/protocol"
	"github.com/kotobalabs/kotoba-tts/internal/voice"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

type fakeEngine struct {
	lastRequest engine.Request
	result      engine.Result
}

func (f *fakeEngine) Synthesize(req engine.Request) engine.Result {
	f.lastRequest = req
	return f.result
}

func (f *fakeEngine) Voices() []voice.Voice {
	return []voice.Voice{{ID: "jf_alpha", Name: "Alpha", Language: "ja", Gender: voice.GenderFemale, DefaultSpeed: 1, DefaultPitch: 1}}
}

func (f *fakeEngine) DefaultVoiceID() string { return "jf_alpha" }

func (f *fakeEngine) PerformanceStats() engine.PerformanceStats {
	return engine.PerformanceStats{TotalRequests: 7}
}

func okResult() engine.Result {
	return engine.Result{
		Status: engine.StatusOK,
		Audio:  audio.NewData([]float32{0.1, -0.1, 0.2}, 24000),
		Phonemes: []engine.PhonemeInfo{
			{Symbol: "ko", Position: 0},
			{Symbol: "n", Position: 1},
		},
	}
}

func newService(fake *fakeEngine) *Service {
	return New(context.Background(), nil, fake, nil, newLogger())
}

func TestSynthesizeBridgesDefaults(t *testing.T) {
	fake := &fakeEngine{result: okResult()}
	s := newService(fake)

	reply := s.synthesize(protocol.SynthesizeRequest{Text: "こんにちは"})

	assert.Equal(t, "ok", reply.Status)
	assert.Equal(t, 24000, reply.SampleRate)
	assert.Equal(t, []string{"ko", "n"}, reply.Phonemes)
	require.NotEmpty(t, reply.WAV)
	assert.Equal(t, "RIFF", string(reply.WAV[0:4]))

	// Engine-side defaults applied.
	assert.Equal(t, float32(1.0), fake.lastRequest.Speed)
	assert.True(t, fake.lastRequest.UseCache)
	assert.True(t, fake.lastRequest.NormalizeText)
}

func TestSynthesizeBridgesOverrides(t *testing.T) {
	fake := &fakeEngine{result: okResult()}
	s := newService(fake)

	useCache := false
	s.synthesize(protocol.SynthesizeRequest{
		Text:     "こんにちは",
		VoiceID:  "jf_alpha",
		Speed:    1.5,
		UseCache: &useCache,
		Phonemes: "k o",
	})

	assert.Equal(t, float32(1.5), fake.lastRequest.Speed)
	assert.False(t, fake.lastRequest.UseCache)
	assert.Equal(t, "k o", fake.lastRequest.Phonemes)
	assert.Equal(t, "jf_alpha", fake.lastRequest.VoiceID)
}

func TestSynthesizeFailurePassesThrough(t *testing.T) {
	fake := &fakeEngine{result: engine.Result{
		Status:       engine.StatusVoiceNotFound,
		ErrorMessage: "voice not found: ghost",
	}}
	s := newService(fake)

	reply := s.synthesize(protocol.SynthesizeRequest{Text: "x", VoiceID: "ghost"})
	assert.Equal(t, "voice_not_found", reply.Status)
	assert.Contains(t, reply.ErrorMessage, "ghost")
	assert.Empty(t, reply.WAV)
}
