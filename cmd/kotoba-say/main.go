package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/kotobalabs/kotoba-tts/internal/audio"
	"github.com/kotobalabs/kotoba-tts/internal/config"
	"github.com/kotobalabs/kotoba-tts/internal/engine"
)

func main() {
	var (
		configPath string
		text       string
		voiceID    string
		outPath    string
		speed      float64
		pitch      float64
		volume     float64
		floatWAV   bool
	)

	flag.StringVar(&configPath, "config", "", "Path to configuration file (optional)")
	flag.StringVar(&text, "text", "", "Japanese text to synthesize")
	flag.StringVar(&voiceID, "voice", "", "Voice id (default voice when empty)")
	flag.StringVar(&outPath, "out", "out.wav", "Output WAV path")
	flag.Float64Var(&speed, "speed", 1.0, "Speaking speed (0.5-2.0)")
	flag.Float64Var(&pitch, "pitch", 1.0, "Pitch adjustment (0.5-2.0)")
	flag.Float64Var(&volume, "volume", 1.0, "Volume (0.0-1.0)")
	flag.BoolVar(&floatWAV, "float", false, "Write 32-bit float WAV instead of PCM16")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	if text == "" {
		fmt.Fprintln(os.Stderr, "usage: kotoba-say -text <japanese text> [-voice id] [-out file.wav]")
		os.Exit(2)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	eng := engine.New(cfg.Engine, logger)
	if err := eng.Initialize(); err != nil {
		logger.Error("failed to initialize engine", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer eng.Shutdown()

	req := engine.NewRequest(text, voiceID)
	req.Speed = float32(speed)
	req.Pitch = float32(pitch)
	req.Volume = float32(volume)

	result := eng.Synthesize(req)
	if !result.IsSuccess() {
		fmt.Fprintf(os.Stderr, "synthesis failed (%s): %s\n", result.Status, result.ErrorMessage)
		os.Exit(1)
	}

	format := audio.FormatPCM16
	if floatWAV {
		format = audio.FormatFloat32
	}
	if err := audio.WriteWAVFile(outPath, result.Audio, format); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write %s: %v\n", outPath, err)
		os.Exit(1)
	}

	fmt.Printf("%s: %d samples, %.2fs, %d phonemes (phonemize %s, inference %s)\n",
		outPath,
		len(result.Audio.Samples),
		result.Audio.Duration.Seconds(),
		len(result.Phonemes),
		result.Stats.Phonemize,
		result.Stats.Inference)
}
