package g2p

import (
	"fmt"

	ort "github.com/yalue/onnxruntime_go"
)

// onnxGraph runs the phonemizer model through onnxruntime. The shared
// library must be initialized by the caller (inference.Initialize) before
// opening a graph.
type onnxGraph struct {
	session     *ort.DynamicAdvancedSession
	outputNames []string
}

// OpenGraph loads the phonemizer model from disk.
func OpenGraph(modelPath string) (Graph, error) {
	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("query phonemizer model info: %w", err)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return nil, fmt.Errorf("phonemizer model declares no inputs or outputs")
	}

	inputNames := make([]string, len(inputs))
	for i, info := range inputs {
		inputNames[i] = info.Name
	}
	outputNames := make([]string, len(outputs))
	for i, info := range outputs {
		outputNames[i] = info.Name
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("create session options: %w", err)
	}
	defer options.Destroy()
	if err := options.SetIntraOpNumThreads(1); err != nil {
		return nil, fmt.Errorf("set intra-op threads: %w", err)
	}

	session, err := ort.NewDynamicAdvancedSession(modelPath, inputNames, outputNames, options)
	if err != nil {
		return nil, fmt.Errorf("create phonemizer session: %w", err)
	}

	return &onnxGraph{
		session:     session,
		outputNames: outputNames,
	}, nil
}

func (g *onnxGraph) Run(inputIDs []int64) ([]int64, error) {
	inputShape := ort.NewShape(1, int64(len(inputIDs)))
	inputTensor, err := ort.NewTensor(inputShape, inputIDs)
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	outputs := make([]ort.Value, len(g.outputNames))
	if err := g.session.Run([]ort.Value{inputTensor}, outputs); err != nil {
		return nil, fmt.Errorf("run phonemizer: %w", err)
	}
	defer func() {
		for _, out := range outputs {
			if out != nil {
				out.Destroy()
			}
		}
	}()

	tensor, ok := outputs[0].(*ort.Tensor[int64])
	if !ok {
		return nil, fmt.Errorf("phonemizer output is not int64")
	}
	data := tensor.GetData()
	out := make([]int64, len(data))
	copy(out, data)
	return out, nil
}

func (g *onnxGraph) Close() error {
	if g.session != nil {
		g.session.Destroy()
		g.session = nil
	}
	return nil
}
