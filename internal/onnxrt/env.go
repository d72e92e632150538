// Package onnxrt shares the process-wide ONNX Runtime environment
// between the wakeword detector and the gesture classifier.
package onnxrt

import (
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var (
	mu   sync.Mutex
	refs int
	lib  string
)

// Acquire initializes the runtime on first use and returns a release
// func. Every caller must pass the same shared library path.
func Acquire(sharedLib string) (func(), error) {
	mu.Lock()
	defer mu.Unlock()

	if refs == 0 {
		if sharedLib != "" {
			ort.SetSharedLibraryPath(sharedLib)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("onnxrt: init (lib=%s): %w", sharedLib, err)
		}
		lib = sharedLib
	} else if sharedLib != "" && sharedLib != lib {
		return nil, fmt.Errorf("onnxrt: already initialized with %s, got %s", lib, sharedLib)
	}
	refs++

	var once sync.Once
	return func() {
		once.Do(func() {
			mu.Lock()
			defer mu.Unlock()
			refs--
			if refs == 0 {
				_ = ort.DestroyEnvironment()
				lib = ""
			}
		})
	}, nil
}

// Session is one model with fixed input and output tensors, run in
// place: callers fill In().GetData() and read Out().GetData().
type Session struct {
	sess *ort.AdvancedSession
	in   *ort.Tensor[float32]
	out  *ort.Tensor[float32]
}

// NewSession loads the model at path, binding its first input and
// output to tensors of the given shapes.
func NewSession(path string, inShape, outShape ort.Shape) (*Session, error) {
	in, err := ort.NewEmptyTensor[float32](inShape)
	if err != nil {
		return nil, fmt.Errorf("onnxrt: input tensor: %w", err)
	}
	out, err := ort.NewEmptyTensor[float32](outShape)
	if err != nil {
		in.Destroy()
		return nil, fmt.Errorf("onnxrt: output tensor: %w", err)
	}
	inInfo, outInfo, err := ort.GetInputOutputInfo(path)
	if err != nil {
		in.Destroy()
		out.Destroy()
		return nil, fmt.Errorf("onnxrt: reading %s: %w", path, err)
	}
	sess, err := ort.NewAdvancedSession(path,
		[]string{inInfo[0].Name}, []string{outInfo[0].Name},
		[]ort.Value{in}, []ort.Value{out}, nil)
	if err != nil {
		in.Destroy()
		out.Destroy()
		return nil, fmt.Errorf("onnxrt: session %s: %w", path, err)
	}
	return &Session{sess: sess, in: in, out: out}, nil
}

// Input returns the input buffer.
func (s *Session) Input() []float32 { return s.in.GetData() }

// Output returns the output buffer.
func (s *Session) Output() []float32 { return s.out.GetData() }

// Run executes the model.
func (s *Session) Run() error { return s.sess.Run() }

// Close frees the session and tensors.
func (s *Session) Close() {
	s.sess.Destroy()
	s.in.Destroy()
	s.out.Destroy()
}
