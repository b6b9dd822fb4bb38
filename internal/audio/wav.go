package audio

import (
	"bytes"
	"fmt"
	"io"
	"os"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Format selects the WAV sample encoding.
type Format int

const (
	FormatPCM16 Format = iota
	FormatFloat32
)

// EncodeWAV writes d as a RIFF/WAV stream.
func EncodeWAV(w io.WriteSeeker, d Data, format Format) error {
	channels := d.Channels
	if channels == 0 {
		channels = 1
	}

	switch format {
	case FormatFloat32:
		enc := wav.NewEncoder(w, d.SampleRate, 32, channels, 3)
		for _, s := range d.Samples {
			if err := enc.WriteFrame(s); err != nil {
				return fmt.Errorf("write float frame: %w", err)
			}
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("close wav encoder: %w", err)
		}
		return nil
	default:
		enc := wav.NewEncoder(w, d.SampleRate, 16, channels, 1)
		pcm := ToPCM16(d.Samples)
		data := make([]int, len(pcm))
		for i, s := range pcm {
			data[i] = int(s)
		}
		buf := &gaudio.IntBuffer{
			Data:           data,
			Format:         &gaudio.Format{NumChannels: channels, SampleRate: d.SampleRate},
			SourceBitDepth: 16,
		}
		if err := enc.Write(buf); err != nil {
			return fmt.Errorf("write pcm buffer: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("close wav encoder: %w", err)
		}
		return nil
	}
}

// ToWAVBytes renders d to an in-memory WAV file.
func ToWAVBytes(d Data, format Format) ([]byte, error) {
	var buf seekBuffer
	if err := EncodeWAV(&buf, d, format); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteWAVFile writes d to disk.
func WriteWAVFile(path string, d Data, format Format) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create wav file: %w", err)
	}
	defer f.Close()
	if err := EncodeWAV(f, d, format); err != nil {
		return err
	}
	return nil
}

// ReadWAVFile loads a WAV file back into float32 samples.
func ReadWAVFile(path string) (Data, error) {
	f, err := os.Open(path)
	if err != nil {
		return Data{}, fmt.Errorf("open wav file: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return Data{}, fmt.Errorf("decode wav: %w", err)
	}

	bitDepth := buf.SourceBitDepth
	if bitDepth == 0 {
		bitDepth = 16
	}
	scale := float32(int(1)<<(bitDepth-1) - 1)
	samples := make([]float32, len(buf.Data))
	for i, s := range buf.Data {
		samples[i] = float32(s) / scale
	}

	d := NewData(samples, buf.Format.SampleRate)
	d.Channels = buf.Format.NumChannels
	return d, nil
}

// seekBuffer is the minimal io.WriteSeeker the wav encoder needs for
// in-memory output (it seeks back to patch the header lengths).
type seekBuffer struct {
	data []byte
	pos  int
}

func (b *seekBuffer) Write(p []byte) (int, error) {
	if need := b.pos + len(p); need > len(b.data) {
		grown := make([]byte, need)
		copy(grown, b.data)
		b.data = grown
	}
	copy(b.data[b.pos:], p)
	b.pos += len(p)
	return len(p), nil
}

func (b *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	var next int
	switch whence {
	case io.SeekStart:
		next = int(offset)
	case io.SeekCurrent:
		next = b.pos + int(offset)
	case io.SeekEnd:
		next = len(b.data) + int(offset)
	default:
		return 0, fmt.Errorf("unsupported whence %d", whence)
	}
	if next < 0 {
		return 0, fmt.Errorf("negative seek position")
	}
	b.pos = next
	return int64(next), nil
}

func (b *seekBuffer) Bytes() []byte {
	return bytes.Clone(b.data)
}
