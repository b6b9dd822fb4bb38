// Package audio post-processes synthesized sample buffers and encodes
// them as WAV.
package audio

import (
	"math"
	"time"
)

// Data is the synthesis output: mono float32 samples in [-1, 1].
type Data struct {
	Samples    []float32     `json:"-"`
	SampleRate int           `json:"sample_rate"`
	Channels   int           `json:"channels"`
	Duration   time.Duration `json:"duration"`
}

// NewData wraps samples with their rate, computing the duration.
func NewData(samples []float32, sampleRate int) Data {
	d := Data{
		Samples:    samples,
		SampleRate: sampleRate,
		Channels:   1,
	}
	if sampleRate > 0 {
		d.Duration = time.Duration(len(samples)) * time.Second / time.Duration(sampleRate)
	}
	return d
}

const normalizeTarget = 0.95

// Process applies the standard post chain: volume scaling, optional
// peak normalization, and the final clamp to [-1, 1].
func Process(samples []float32, volume float32, normalize bool) []float32 {
	out := make([]float32, len(samples))
	copy(out, samples)

	if volume != 1.0 {
		for i := range out {
			out[i] *= volume
		}
	}
	if normalize {
		out = normalizeInPlace(out)
	}
	for i, s := range out {
		out[i] = clamp(s)
	}
	return out
}

// Normalize scales the buffer so its peak sits at 0.95. Silent buffers
// pass through untouched.
func Normalize(samples []float32) []float32 {
	out := make([]float32, len(samples))
	copy(out, samples)
	return normalizeInPlace(out)
}

func normalizeInPlace(samples []float32) []float32 {
	peak := Peak(samples)
	if peak == 0 {
		return samples
	}
	scale := float32(normalizeTarget) / peak
	for i := range samples {
		samples[i] *= scale
	}
	return samples
}

// ApplyVolume scales every sample.
func ApplyVolume(samples []float32, volume float32) []float32 {
	out := make([]float32, len(samples))
	for i, s := range samples {
		out[i] = s * volume
	}
	return out
}

// Peak is the maximum absolute sample value.
func Peak(samples []float32) float32 {
	var peak float32
	for _, s := range samples {
		if a := float32(math.Abs(float64(s))); a > peak {
			peak = a
		}
	}
	return peak
}

// RMS is the root-mean-square level.
func RMS(samples []float32) float32 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return float32(math.Sqrt(sum / float64(len(samples))))
}

// TrimSilence drops leading and trailing samples under threshold.
func TrimSilence(samples []float32, threshold float32) []float32 {
	if len(samples) == 0 {
		return samples
	}
	start := 0
	for ; start < len(samples); start++ {
		if abs32(samples[start]) > threshold {
			break
		}
	}
	if start == len(samples) {
		return samples
	}
	end := len(samples) - 1
	for ; end > start; end-- {
		if abs32(samples[end]) > threshold {
			break
		}
	}
	return samples[start : end+1]
}

// Fade applies linear fade-in and fade-out ramps of fadeMS.
func Fade(samples []float32, fadeMS, sampleRate int) []float32 {
	out := make([]float32, len(samples))
	copy(out, samples)
	if fadeMS <= 0 || len(out) == 0 {
		return out
	}
	fadeSamples := fadeMS * sampleRate / 1000
	if max := len(out) / 2; fadeSamples > max {
		fadeSamples = max
	}
	for i := 0; i < fadeSamples; i++ {
		factor := float32(i) / float32(fadeSamples)
		out[i] *= factor
		out[len(out)-1-i] *= factor
	}
	return out
}

// Resample converts between rates with linear interpolation.
func Resample(samples []float32, fromRate, toRate int) []float32 {
	if fromRate == toRate || len(samples) == 0 {
		return samples
	}
	ratio := float64(toRate) / float64(fromRate)
	out := make([]float32, int(float64(len(samples))*ratio))
	for i := range out {
		src := float64(i) / ratio
		idx := int(src)
		if idx+1 < len(samples) {
			t := float32(src - float64(idx))
			out[i] = samples[idx] + t*(samples[idx+1]-samples[idx])
		} else {
			out[i] = samples[len(samples)-1]
		}
	}
	return out
}

// ToPCM16 clamps and converts to 16-bit PCM.
func ToPCM16(samples []float32) []int16 {
	out := make([]int16, len(samples))
	for i, s := range samples {
		out[i] = int16(clamp(s) * 32767.0)
	}
	return out
}

// FromPCM16 converts 16-bit PCM back to float32.
func FromPCM16(pcm []int16) []float32 {
	out := make([]float32, len(pcm))
	for i, s := range pcm {
		out[i] = float32(s) / 32767.0
	}
	return out
}

func clamp(s float32) float32 {
	if s > 1.0 {
		return 1.0
	}
	if s < -1.0 {
		return -1.0
	}
	return s
}

func abs32(s float32) float32 {
	if s < 0 {
		return -s
	}
	return s
}
