// Package inference drives the Kokoro acoustic model through the ONNX
// runtime: token ids plus a style vector in, raw audio samples out.
package inference

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	ort "github.com/yalue/onnxruntime_go"
)

var (
	// ErrNotLoaded indicates Run was called before a model was opened.
	ErrNotLoaded = errors.New("model not loaded")
	// ErrNoOutput indicates the graph produced no usable output tensor.
	ErrNoOutput = errors.New("inference produced no output")
)

// Runner is what the orchestrator consumes: a synchronous inference call
// plus the declared style dimension and latency accounting.
type Runner interface {
	Run(tokens []int64, style []float32, speed, pitch float32) ([]float32, error)
	StyleDim() int
	Warmup() error
	Stats() Stats
	ResetStats()
}

// Options mirror the runtime knobs the config exposes.
type Options struct {
	IntraOpThreads int // 0 = auto
	InterOpThreads int // 0 = auto
	EnableGPU      bool
}

// IOInfo describes one declared model input or output.
type IOInfo struct {
	Name  string
	Shape []int64
}

// Session owns one loaded acoustic model. The ONNX runtime handles its
// own intra-op parallelism, so Run may be called concurrently; only the
// statistics serialize.
type Session struct {
	session    *ort.DynamicAdvancedSession
	inputs     []IOInfo
	outputs    []IOInfo
	styleDim   int
	takesPitch bool
	log        *slog.Logger
	stats      statsAccumulator
}

// Initialize prepares the shared ONNX runtime library. It must run once
// before any session opens. The library path comes from
// ONNXRUNTIME_LIB_PATH with platform-default fallbacks.
func Initialize() error {
	if ort.IsInitialized() {
		return nil
	}
	libPath := os.Getenv("ONNXRUNTIME_LIB_PATH")
	if libPath == "" {
		for _, candidate := range []string{
			"/usr/local/lib/libonnxruntime.so",
			"/usr/local/lib/libonnxruntime.dylib",
			"/usr/lib/libonnxruntime.so",
		} {
			if _, err := os.Stat(candidate); err == nil {
				libPath = candidate
				break
			}
		}
	}
	if libPath != "" {
		ort.SetSharedLibraryPath(libPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("initialize onnx runtime: %w", err)
	}
	return nil
}

// Open loads a model from disk, queries its declared inputs and outputs,
// and caches their names and shapes.
func Open(modelPath string, opts Options, log *slog.Logger) (*Session, error) {
	inputInfo, outputInfo, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("query model info: %w", err)
	}
	return open(modelPath, nil, inputInfo, outputInfo, opts, log)
}

// OpenData loads a model from an in-memory buffer.
func OpenData(modelData []byte, opts Options, log *slog.Logger) (*Session, error) {
	inputInfo, outputInfo, err := ort.GetInputOutputInfoWithONNXData(modelData)
	if err != nil {
		return nil, fmt.Errorf("query model info: %w", err)
	}
	return open("", modelData, inputInfo, outputInfo, opts, log)
}

func open(modelPath string, modelData []byte, inputInfo, outputInfo []ort.InputOutputInfo, opts Options, log *slog.Logger) (*Session, error) {
	if len(inputInfo) < 3 {
		return nil, fmt.Errorf("model declares %d inputs, want at least tokens/style/speed", len(inputInfo))
	}
	if len(outputInfo) == 0 {
		return nil, fmt.Errorf("model declares no outputs")
	}

	s := &Session{
		log:        log.With(slog.String("component", "inference")),
		takesPitch: len(inputInfo) > 3,
	}

	inputNames := make([]string, len(inputInfo))
	for i, info := range inputInfo {
		inputNames[i] = info.Name
		s.inputs = append(s.inputs, IOInfo{Name: info.Name, Shape: info.Dimensions})
	}
	outputNames := make([]string, len(outputInfo))
	for i, info := range outputInfo {
		outputNames[i] = info.Name
		s.outputs = append(s.outputs, IOInfo{Name: info.Name, Shape: info.Dimensions})
	}

	// The style input is declared [1, D]; the voice registry checks
	// vectors against D at load time.
	styleShape := s.inputs[1].Shape
	if len(styleShape) == 2 && styleShape[1] > 0 {
		s.styleDim = int(styleShape[1])
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("create session options: %w", err)
	}
	defer options.Destroy()
	if opts.IntraOpThreads > 0 {
		if err := options.SetIntraOpNumThreads(opts.IntraOpThreads); err != nil {
			return nil, fmt.Errorf("set intra-op threads: %w", err)
		}
	}
	if opts.InterOpThreads > 0 {
		if err := options.SetInterOpNumThreads(opts.InterOpThreads); err != nil {
			return nil, fmt.Errorf("set inter-op threads: %w", err)
		}
	}
	if opts.EnableGPU {
		cudaOpts, err := ort.NewCUDAProviderOptions()
		if err != nil {
			return nil, fmt.Errorf("create cuda provider options: %w", err)
		}
		defer cudaOpts.Destroy()
		if err := options.AppendExecutionProviderCUDA(cudaOpts); err != nil {
			return nil, fmt.Errorf("append cuda provider: %w", err)
		}
	}

	if modelData != nil {
		s.session, err = ort.NewDynamicAdvancedSessionWithONNXData(modelData, inputNames, outputNames, options)
	} else {
		s.session, err = ort.NewDynamicAdvancedSession(modelPath, inputNames, outputNames, options)
	}
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.log.Info("model loaded",
		slog.Int("inputs", len(s.inputs)),
		slog.Int("outputs", len(s.outputs)),
		slog.Int("style_dim", s.styleDim),
		slog.Bool("takes_pitch", s.takesPitch))
	return s, nil
}

// Run executes one inference. The token sequence is shaped [1, T], the
// style vector [1, D], speed [1], and pitch [1] when the graph declares
// a fourth input. The first output flattens to the sample buffer.
func (s *Session) Run(tokens []int64, style []float32, speed, pitch float32) ([]float32, error) {
	if s == nil || s.session == nil {
		return nil, ErrNotLoaded
	}

	stop := s.stats.start()

	tokenTensor, err := ort.NewTensor(ort.NewShape(1, int64(len(tokens))), tokens)
	if err != nil {
		return nil, fmt.Errorf("create token tensor: %w", err)
	}
	defer tokenTensor.Destroy()

	styleTensor, err := ort.NewTensor(ort.NewShape(1, int64(len(style))), style)
	if err != nil {
		return nil, fmt.Errorf("create style tensor: %w", err)
	}
	defer styleTensor.Destroy()

	speedTensor, err := ort.NewTensor(ort.NewShape(1), []float32{speed})
	if err != nil {
		return nil, fmt.Errorf("create speed tensor: %w", err)
	}
	defer speedTensor.Destroy()

	inputs := []ort.Value{tokenTensor, styleTensor, speedTensor}
	if s.takesPitch {
		pitchTensor, err := ort.NewTensor(ort.NewShape(1), []float32{pitch})
		if err != nil {
			return nil, fmt.Errorf("create pitch tensor: %w", err)
		}
		defer pitchTensor.Destroy()
		inputs = append(inputs, pitchTensor)
	}

	outputs := make([]ort.Value, len(s.outputs))
	if err := s.session.Run(inputs, outputs); err != nil {
		return nil, fmt.Errorf("run inference: %w", err)
	}
	defer func() {
		for _, out := range outputs {
			if out != nil {
				out.Destroy()
			}
		}
	}()

	tensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, ErrNoOutput
	}
	data := tensor.GetData()
	samples := make([]float32, len(data))
	copy(samples, data)

	stop()
	return samples, nil
}

// StyleDim is the declared style input length, or 0 when the model
// declares it dynamically.
func (s *Session) StyleDim() int { return s.styleDim }

// InputInfo returns the declared inputs.
func (s *Session) InputInfo() []IOInfo { return s.inputs }

// OutputInfo returns the declared outputs.
func (s *Session) OutputInfo() []IOInfo { return s.outputs }

// Warmup runs one dummy inference so the first real request does not pay
// graph-initialization latency, then resets the statistics.
func (s *Session) Warmup() error {
	dim := s.styleDim
	if dim == 0 {
		dim = 128
	}
	tokens := make([]int64, 10)
	for i := range tokens {
		tokens[i] = 1
	}
	if _, err := s.Run(tokens, make([]float32, dim), 1.0, 1.0); err != nil {
		return fmt.Errorf("warmup inference: %w", err)
	}
	s.ResetStats()
	return nil
}

func (s *Session) Stats() Stats { return s.stats.snapshot() }

func (s *Session) ResetStats() { s.stats.reset() }

// Close releases the underlying session.
func (s *Session) Close() error {
	if s.session != nil {
		s.session.Destroy()
		s.session = nil
	}
	return nil
}

var _ Runner = (*Session)(nil)
