package oracle

import (
	"fmt"
	"runtime"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var ortInit sync.Once

func initializeORT(libPath string) error {
	var err error
	ortInit.Do(func() {
		if libPath == "" {
			libPath = "/usr/lib/libonnxruntime.so"
			if runtime.GOOS == "windows" {
				libPath = "onnxruntime.dll"
			} else if runtime.GOOS == "darwin" {
				libPath = "libonnxruntime.dylib"
			}
		}
		ort.SetSharedLibraryPath(libPath)
		err = ort.InitializeEnvironment()
	})
	return err
}

// onnxBackend runs the exported direction model through onnxruntime. The
// session, input and output tensors are bound once at startup and reused
// for every inference; the model is single-input, single-output.
type onnxBackend struct {
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
}

// newONNXBackend binds the runtime to the model file. shape is (1, F) in
// point mode or (1, W, F) in sequence mode.
func newONNXBackend(modelPath, libPath string, shape []int64) (*onnxBackend, error) {
	if err := initializeORT(libPath); err != nil {
		return nil, fmt.Errorf("initialize onnxruntime: %w", err)
	}

	n := int64(1)
	for _, d := range shape {
		n *= d
	}
	inputTensor, err := ort.NewTensor(ort.NewShape(shape...), make([]float32, n))
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}
	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 1))
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("create output tensor: %w", err)
	}
	session, err := ort.NewAdvancedSession(modelPath,
		[]string{"input"}, []string{"output"},
		[]ort.Value{inputTensor}, []ort.Value{outputTensor}, nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("load model %s: %w", modelPath, err)
	}
	return &onnxBackend{session: session, input: inputTensor, output: outputTensor}, nil
}

func (b *onnxBackend) Run(input []float32) (float32, error) {
	data := b.input.GetData()
	if len(input) != len(data) {
		return 0, fmt.Errorf("model input size mismatch: got %d floats, tensor holds %d",
			len(input), len(data))
	}
	copy(data, input)
	if err := b.session.Run(); err != nil {
		return 0, fmt.Errorf("inference failed: %w", err)
	}
	return b.output.GetData()[0], nil
}

func (b *onnxBackend) Destroy() {
	if b.session != nil {
		b.session.Destroy()
	}
	if b.input != nil {
		b.input.Destroy()
	}
	if b.output != nil {
		b.output.Destroy()
	}
}
