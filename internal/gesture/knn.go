package gesture

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/hammamikhairi/deskmate/internal/domain"
)

// Sample is one labelled training example.
type Sample struct {
	Label    string    `yaml:"label"`
	Features []float64 `yaml:"features,flow"`
}

// Dataset is the user-trained gesture set, persisted as YAML.
type Dataset struct {
	mu      sync.RWMutex
	Samples []Sample `yaml:"samples"`
}

// LoadDataset reads a dataset file. A missing file yields an empty
// dataset.
func LoadDataset(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &Dataset{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("gesture: reading dataset: %w", err)
	}
	var ds Dataset
	if err := yaml.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("gesture: parsing dataset %s: %w", path, err)
	}
	for i, s := range ds.Samples {
		if len(s.Features) != NumFeatures {
			return nil, fmt.Errorf("gesture: sample %d (%s) has %d features, want %d", i, s.Label, len(s.Features), NumFeatures)
		}
	}
	return &ds, nil
}

// Save writes the dataset, creating parent directories.
func (d *Dataset) Save(path string) error {
	d.mu.RLock()
	data, err := yaml.Marshal(d)
	d.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("gesture: encoding dataset: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Add records a hand under label.
func (d *Dataset) Add(label string, h Hand) {
	d.mu.Lock()
	d.Samples = append(d.Samples, Sample{Label: label, Features: h.Features()})
	d.mu.Unlock()
}

// Len returns the number of samples.
func (d *Dataset) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.Samples)
}

// Counts returns samples per label.
func (d *Dataset) Counts() map[string]int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[string]int)
	for _, s := range d.Samples {
		out[s.Label]++
	}
	return out
}

// KNN classifies by majority vote of the k nearest samples. Confidence
// is the winning share of the vote.
type KNN struct {
	data *Dataset
	k    int
}

var _ Classifier = (*KNN)(nil)

// NewKNN creates a classifier over data. k <= 0 defaults to 5.
func NewKNN(data *Dataset, k int) *KNN {
	if k <= 0 {
		k = 5
	}
	return &KNN{data: data, k: k}
}

// Source implements Classifier.
func (c *KNN) Source() domain.GestureSource { return domain.GestureFromTrained }

// Classify implements Classifier.
func (c *KNN) Classify(h Hand) (string, float64, bool) {
	c.data.mu.RLock()
	defer c.data.mu.RUnlock()
	if len(c.data.Samples) == 0 {
		return "", 0, false
	}

	q := h.Features()
	type neighbor struct {
		label string
		d     float64
	}
	ns := make([]neighbor, len(c.data.Samples))
	for i, s := range c.data.Samples {
		ns[i] = neighbor{s.Label, euclidean(q, s.Features)}
	}
	sort.Slice(ns, func(i, j int) bool { return ns[i].d < ns[j].d })

	k := min(c.k, len(ns))
	votes := make(map[string]int)
	best, bestVotes := "", 0
	for _, n := range ns[:k] {
		votes[n.label]++
		if v := votes[n.label]; v > bestVotes {
			best, bestVotes = n.label, v
		}
	}
	return best, float64(bestVotes) / float64(k), true
}

func euclidean(a, b []float64) float64 {
	var s float64
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return math.Sqrt(s)
}
