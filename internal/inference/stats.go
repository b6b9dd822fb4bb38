package inference

import (
	"sync"
	"time"
)

// Stats is a snapshot of inference latency accounting.
type Stats struct {
	TotalInferences uint64  `json:"total_inferences"`
	MeanLatencyMS   float64 `json:"mean_latency_ms"`
	MinLatencyMS    float64 `json:"min_latency_ms"`
	MaxLatencyMS    float64 `json:"max_latency_ms"`
}

type statsAccumulator struct {
	mu      sync.Mutex
	count   uint64
	totalMS float64
	minMS   float64
	maxMS   float64
}

// start begins timing one inference; the returned func records it.
func (a *statsAccumulator) start() func() {
	began := time.Now()
	return func() {
		elapsed := float64(time.Since(began).Microseconds()) / 1000.0
		a.mu.Lock()
		defer a.mu.Unlock()
		if a.count == 0 || elapsed < a.minMS {
			a.minMS = elapsed
		}
		if elapsed > a.maxMS {
			a.maxMS = elapsed
		}
		a.count++
		a.totalMS += elapsed
	}
}

func (a *statsAccumulator) snapshot() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := Stats{
		TotalInferences: a.count,
		MaxLatencyMS:    a.maxMS,
	}
	if a.count > 0 {
		s.MeanLatencyMS = a.totalMS / float64(a.count)
		s.MinLatencyMS = a.minMS
	}
	return s
}

func (a *statsAccumulator) reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.count = 0
	a.totalMS = 0
	a.minMS = 0
	a.maxMS = 0
}
