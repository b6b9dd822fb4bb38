package engine

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/kotobalabs/kotoba-tts/internal/cache"
	"github.com/kotobalabs/kotoba-tts/internal/config"
	"github.com/kotobalabs/kotoba-tts/internal/dict"
	"github.com/kotobalabs/kotoba-tts/internal/g2p"
	"github.com/kotobalabs/kotoba-tts/internal/inference"
	"github.com/kotobalabs/kotoba-tts/internal/segment"
	"github.com/kotobalabs/kotoba-tts/internal/vocab"
	"github.com/kotobalabs/kotoba-tts/internal/voice"
)

// Engine owns every pipeline component. All state is loaded by
// Initialize and read-only afterwards; Shutdown is the explicit
// teardown.
type Engine struct {
	cfg config.EngineConfig
	log *slog.Logger

	segmenter  *segment.Segmenter
	phonemizer *g2p.Phonemizer
	vocabulary *vocab.Vocabulary
	dictionary *dict.Dictionary
	voices     *voice.Registry
	runner     inference.Runner
	neural     *g2p.NeuralResolver

	results *cache.Cache[*Result]
	flights *flightGroup
	pool    *workerPool

	initialized atomic.Bool
	stats       engineStats
	metrics     *engineMetrics
}

// Components lets tests (and embedders) wire the engine from parts
// instead of loading model artifacts from disk.
type Components struct {
	Segmenter  *segment.Segmenter
	Phonemizer *g2p.Phonemizer
	Vocabulary *vocab.Vocabulary
	Dictionary *dict.Dictionary
	Voices     *voice.Registry
	Runner     inference.Runner
}

// New creates an unloaded engine; Initialize loads the artifacts named
// in the config.
func New(cfg config.EngineConfig, log *slog.Logger) *Engine {
	return &Engine{
		cfg:     cfg,
		log:     log.With(slog.String("component", "engine")),
		flights: newFlightGroup(),
		metrics: newEngineMetrics(log),
	}
}

// NewWithComponents builds an initialized engine around pre-wired parts.
func NewWithComponents(cfg config.EngineConfig, log *slog.Logger, parts Components) *Engine {
	e := New(cfg, log)
	e.segmenter = parts.Segmenter
	e.phonemizer = parts.Phonemizer
	e.vocabulary = parts.Vocabulary
	e.dictionary = parts.Dictionary
	e.voices = parts.Voices
	e.runner = parts.Runner
	e.finishInit()
	return e
}

// Initialize loads the acoustic model, vocabulary, dictionary, analyzer,
// phonemizer model, and voices, then starts the worker pool. The model
// and vocabulary are required; everything else degrades gracefully.
func (e *Engine) Initialize() error {
	if e.initialized.Load() {
		return nil
	}

	if err := inference.Initialize(); err != nil {
		return fmt.Errorf("initialize inference runtime: %w", err)
	}

	session, err := inference.Open(e.cfg.KokoroModelPath, inference.Options{
		IntraOpThreads: e.cfg.IntraOpThreads,
		InterOpThreads: e.cfg.InterOpThreads,
		EnableGPU:      e.cfg.EnableGPU,
	}, e.log)
	if err != nil {
		return fmt.Errorf("load acoustic model %s: %w", e.cfg.KokoroModelPath, err)
	}
	e.runner = session

	e.vocabulary, err = vocab.LoadFile(e.cfg.TokenizerVocabPath)
	if err != nil {
		return fmt.Errorf("load tokenizer vocabulary %s: %w", e.cfg.TokenizerVocabPath, err)
	}

	if e.cfg.DictionaryPath != "" {
		e.dictionary, err = dict.LoadFile(e.cfg.DictionaryPath)
		if err != nil {
			e.log.Warn("dictionary unavailable, continuing without it",
				slog.String("path", e.cfg.DictionaryPath),
				slog.String("error", err.Error()))
			e.dictionary = nil
		}
	}

	var analyzer segment.Analyzer
	if e.cfg.EnableAnalyzer {
		kagome, err := segment.NewKagomeAnalyzer()
		if err != nil {
			e.log.Warn("morphological analyzer unavailable, using script fallback",
				slog.String("error", err.Error()))
		} else {
			analyzer = kagome
		}
	}
	e.segmenter = segment.New(analyzer, e.cfg.NormalizeText, e.log)

	if e.cfg.PhonemizerModelPath != "" {
		if _, statErr := os.Stat(e.cfg.PhonemizerModelPath); statErr == nil {
			graph, err := g2p.OpenGraph(e.cfg.PhonemizerModelPath)
			if err != nil {
				e.log.Warn("neural phonemizer unavailable",
					slog.String("path", e.cfg.PhonemizerModelPath),
					slog.String("error", err.Error()))
			} else {
				e.neural = g2p.NewNeuralResolver(graph, e.cfg.PhonemizerModelPath)
			}
		}
	}
	e.phonemizer = g2p.New(e.segmenter, e.dictionary, e.neural, e.log)

	e.voices = voice.NewRegistry(session.StyleDim(), e.log)
	if e.cfg.VoicesDir != "" {
		loaded, err := e.voices.LoadDir(e.cfg.VoicesDir)
		if err != nil {
			e.log.Warn("voices directory unavailable",
				slog.String("dir", e.cfg.VoicesDir),
				slog.String("error", err.Error()))
		} else {
			e.log.Info("voices loaded", slog.Int("count", loaded))
		}
	}

	e.finishInit()
	return nil
}

func (e *Engine) finishInit() {
	if e.cfg.EnableCache {
		maxBytes := e.cfg.MaxCacheSizeMB << 20
		ttl := time.Duration(e.cfg.CacheTTLSeconds) * time.Second
		e.results = cache.New(maxBytes, e.cfg.MaxCacheEntries, ttl, resultFootprint)
	}

	workers := e.cfg.MaxConcurrentRequests
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	e.pool = newWorkerPool(workers, e.synthesize, e.log)

	e.initialized.Store(true)
	e.log.Info("engine initialized",
		slog.Int("workers", workers),
		slog.Bool("cache", e.results != nil))
}

func (e *Engine) IsInitialized() bool { return e.initialized.Load() }

// Shutdown stops intake, cancels queued work, and joins the workers.
func (e *Engine) Shutdown() {
	if !e.initialized.CompareAndSwap(true, false) {
		return
	}
	e.pool.shutdown()
	if e.neural != nil {
		_ = e.neural.Close()
	}
	if closer, ok := e.runner.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
	e.log.Info("engine shut down")
}

// LoadVoice loads one descriptor file.
func (e *Engine) LoadVoice(path string) (string, error) {
	if e.voices == nil {
		return "", fmt.Errorf("engine not initialized")
	}
	return e.voices.LoadFile(path)
}

// LoadVoiceData loads a descriptor from memory.
func (e *Engine) LoadVoiceData(id string, data []byte) (string, error) {
	if e.voices == nil {
		return "", fmt.Errorf("engine not initialized")
	}
	return e.voices.LoadData(id, data)
}

func (e *Engine) Voice(id string) (voice.Voice, error) {
	if e.voices == nil {
		return voice.Voice{}, fmt.Errorf("engine not initialized")
	}
	return e.voices.Get(id)
}

func (e *Engine) Voices() []voice.Voice {
	if e.voices == nil {
		return nil
	}
	return e.voices.List()
}

// DefaultVoiceID returns the id used when a request omits the voice.
func (e *Engine) DefaultVoiceID() string {
	if e.voices == nil {
		return ""
	}
	return e.voices.DefaultID()
}

func (e *Engine) SetDefaultVoice(id string) error {
	if e.voices == nil {
		return fmt.Errorf("engine not initialized")
	}
	return e.voices.SetDefault(id)
}

// TextToPhonemes exposes the G2P cascade directly.
func (e *Engine) TextToPhonemes(text string) string {
	if e.phonemizer == nil {
		return ""
	}
	return e.phonemizer.TextToPhonemes(text)
}

// PhonemesToTokens maps a phoneme string to token ids with BOS/EOS.
func (e *Engine) PhonemesToTokens(phonemes string) []int64 {
	if e.vocabulary == nil {
		return nil
	}
	return e.vocabulary.Tokenize(phonemes, true)
}

// NormalizeText applies the segmenter's pre-normalization.
func (e *Engine) NormalizeText(text string) string {
	return segment.Normalize(text)
}

// SegmentText exposes morphological segmentation.
func (e *Engine) SegmentText(text string) []segment.Morpheme {
	if e.segmenter == nil {
		return nil
	}
	return e.segmenter.Segment(text)
}

// ClearCache drops every cached result.
func (e *Engine) ClearCache() {
	if e.results != nil {
		e.results.Clear()
	}
}

func (e *Engine) CacheStats() cache.Stats {
	if e.results == nil {
		return cache.Stats{}
	}
	return e.results.Stats()
}

// PerformanceStats aggregates every statistics surface.
func (e *Engine) PerformanceStats() PerformanceStats {
	requests, success, failed := e.stats.totals()
	out := PerformanceStats{
		TotalRequests:      requests,
		SuccessfulRequests: success,
		FailedRequests:     failed,
		Latency:            e.stats.latency(),
	}
	if e.results != nil {
		out.Cache = e.results.Stats()
	}
	if e.runner != nil {
		out.Inference = e.runner.Stats()
	}
	if e.phonemizer != nil {
		out.G2P = e.phonemizer.Stats()
	}
	if e.pool != nil {
		out.QueueDepth = e.pool.queueDepth()
		out.ActiveCount = e.pool.activeCount()
	}
	return out
}

// Warmup primes the inference session; a no-op without a loaded model.
func (e *Engine) Warmup() error {
	if e.runner == nil {
		return nil
	}
	return e.runner.Warmup()
}

// QueueDepth is the number of queued-but-unstarted async requests.
func (e *Engine) QueueDepth() int {
	if e.pool == nil {
		return 0
	}
	return e.pool.queueDepth()
}

// ActiveCount is the number of requests currently executing.
func (e *Engine) ActiveCount() int {
	if e.pool == nil {
		return 0
	}
	return e.pool.activeCount()
}
