// Package service exposes the engine over the NATS bus with a
// request/reply surface.
package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kotobalabs/kotoba-tts/internal/audio"
	"github.com/kotobalabs/kotoba-tts/internal/bus"
	"github.com/kotobalabs/kotoba-tts/internal/engine"
	"github.com/kotobalabs/kotoba-tts/internal/history"
	"github.com/kotobalabs/kotoba-tts/internal/protocol"
	"github.com/kotobalabs/kotoba-tts/internal/voice"
)

// SpeechEngine is the slice of the engine surface the service consumes.
type SpeechEngine interface {
	Synthesize(engine.Request) engine.Result
	Voices() []voice.Voice
	DefaultVoiceID() string
	PerformanceStats() engine.PerformanceStats
}

// Service answers synthesis requests on the bus.
type Service struct {
	bus     *bus.Client
	engine  SpeechEngine
	history *history.Store
	subs    []*nats.Subscription
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	log     *slog.Logger
}

func New(parent context.Context, busClient *bus.Client, eng SpeechEngine, hist *history.Store, log *slog.Logger) *Service {
	ctx, cancel := context.WithCancel(parent)
	return &Service{
		bus:     busClient,
		engine:  eng,
		history: hist,
		ctx:     ctx,
		cancel:  cancel,
		log:     log.With(slog.String("component", "tts-service")),
	}
}

func (s *Service) Start() error {
	conn := s.bus.Conn()

	synthSub, err := conn.Subscribe(protocol.SubjectSynthesize, s.handleSynthesize)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, synthSub)

	voicesSub, err := conn.Subscribe(protocol.SubjectVoices, s.handleVoices)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, voicesSub)

	statsSub, err := conn.Subscribe(protocol.SubjectStats, s.handleStats)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, statsSub)

	return nil
}

func (s *Service) Close() {
	s.cancel()
	for _, sub := range s.subs {
		_ = sub.Drain()
	}
	s.wg.Wait()
}

func (s *Service) Healthy() bool { return len(s.subs) > 0 }

func (s *Service) handleSynthesize(msg *nats.Msg) {
	if msg.Reply == "" {
		return
	}
	var req protocol.SynthesizeRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		s.log.Warn("failed to decode synthesize request", slogError(err))
		s.reply(msg, protocol.SynthesizeReply{
			Status:       engine.StatusInvalidInput.String(),
			ErrorMessage: "malformed request: " + err.Error(),
			Timestamp:    time.Now().UTC(),
		})
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.reply(msg, s.synthesize(req))
	}()
}

// synthesize bridges the wire request to the engine and renders the
// reply, WAV bytes included.
func (s *Service) synthesize(req protocol.SynthesizeRequest) protocol.SynthesizeReply {
	engReq := engine.NewRequest(req.Text, req.VoiceID)
	if req.Speed > 0 {
		engReq.Speed = req.Speed
	}
	if req.Pitch > 0 {
		engReq.Pitch = req.Pitch
	}
	if req.Volume > 0 {
		engReq.Volume = req.Volume
	}
	engReq.Phonemes = req.Phonemes
	if req.UseCache != nil {
		engReq.UseCache = *req.UseCache
	}
	if req.NormalizeText != nil {
		engReq.NormalizeText = *req.NormalizeText
	}

	result := s.engine.Synthesize(engReq)
	s.record(engReq, result)

	reply := protocol.SynthesizeReply{
		Status:       result.Status.String(),
		ErrorMessage: result.ErrorMessage,
		SampleRate:   result.Audio.SampleRate,
		Channels:     result.Audio.Channels,
		DurationMS:   result.Audio.Duration.Milliseconds(),
		CacheHit:     result.Stats.CacheHit,
		Timestamp:    time.Now().UTC(),
	}
	for _, p := range result.Phonemes {
		reply.Phonemes = append(reply.Phonemes, p.Symbol)
	}

	if result.HasAudio() {
		format := audio.FormatPCM16
		if req.Format == "float32" {
			format = audio.FormatFloat32
		}
		wav, err := audio.ToWAVBytes(result.Audio, format)
		if err != nil {
			s.log.Warn("failed to encode wav", slogError(err))
			reply.Status = engine.StatusUnknown.String()
			reply.ErrorMessage = "wav encoding failed: " + err.Error()
			return reply
		}
		reply.WAV = wav
	}
	return reply
}

func (s *Service) record(req engine.Request, result engine.Result) {
	if s.history == nil {
		return
	}
	ctx, cancel := context.WithTimeout(s.ctx, 2*time.Second)
	defer cancel()
	err := s.history.Record(ctx, history.Entry{
		VoiceID:    req.VoiceID,
		TextLength: len(req.Text),
		Status:     result.Status.String(),
		CacheHit:   result.Stats.CacheHit,
		DurationMS: result.Stats.Total.Milliseconds(),
	})
	if err != nil {
		s.log.Warn("failed to record synthesis", slogError(err))
	}
}

func (s *Service) handleVoices(msg *nats.Msg) {
	if msg.Reply == "" {
		return
	}
	reply := protocol.VoicesReply{Default: s.engine.DefaultVoiceID()}
	for _, v := range s.engine.Voices() {
		reply.Voices = append(reply.Voices, protocol.VoiceInfo{
			ID:           v.ID,
			Name:         v.Name,
			Language:     v.Language,
			Gender:       string(v.Gender),
			DefaultSpeed: v.DefaultSpeed,
			DefaultPitch: v.DefaultPitch,
			Description:  v.Description,
		})
	}
	s.reply(msg, reply)
}

func (s *Service) handleStats(msg *nats.Msg) {
	if msg.Reply == "" {
		return
	}
	s.reply(msg, s.engine.PerformanceStats())
}

func (s *Service) reply(msg *nats.Msg, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Warn("failed to marshal reply", slogError(err))
		return
	}
	if err := msg.Respond(data); err != nil {
		s.log.Warn("failed to publish reply", slogError(err))
	}
}

func slogError(err error) slog.Attr {
	return slog.String("error", err.Error())
}
