package wakeword

import (
	"fmt"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/hammamikhairi/deskmate/internal/onnxrt"
)

// onnxModels runs the three openWakeWord ONNX models.
type onnxModels struct {
	melspec, embed, score *onnxrt.Session
}

func loadModels(cfg Config) (*onnxModels, error) {
	mel, err := onnxrt.NewSession(cfg.MelspecModel,
		ort.NewShape(1, chunkSamples), ort.NewShape(1, 1, nMelFrames, melBins))
	if err != nil {
		return nil, fmt.Errorf("wakeword: melspec: %w", err)
	}
	emb, err := onnxrt.NewSession(cfg.EmbeddingModel,
		ort.NewShape(1, melWindowSize, melBins, 1), ort.NewShape(1, 1, 1, embeddingDim))
	if err != nil {
		mel.Close()
		return nil, fmt.Errorf("wakeword: embedding: %w", err)
	}
	ww, err := onnxrt.NewSession(cfg.Model,
		ort.NewShape(1, nEmbedFrames, embeddingDim), ort.NewShape(1, 1))
	if err != nil {
		mel.Close()
		emb.Close()
		return nil, fmt.Errorf("wakeword: model: %w", err)
	}
	return &onnxModels{melspec: mel, embed: emb, score: ww}, nil
}

func (m *onnxModels) Melspec(chunk []int16) ([]float32, error) {
	in := m.melspec.Input()
	for i, v := range chunk {
		in[i] = float32(v)
	}
	if err := m.melspec.Run(); err != nil {
		return nil, err
	}
	return m.melspec.Output(), nil
}

func (m *onnxModels) Embed(mel []float32) ([]float32, error) {
	copy(m.embed.Input(), mel)
	if err := m.embed.Run(); err != nil {
		return nil, err
	}
	return m.embed.Output(), nil
}

func (m *onnxModels) Score(embeddings []float32) (float32, error) {
	copy(m.score.Input(), embeddings)
	if err := m.score.Run(); err != nil {
		return 0, err
	}
	return m.score.Output()[0], nil
}

func (m *onnxModels) Close() {
	m.melspec.Close()
	m.embed.Close()
	m.score.Close()
}
