package forest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"time"
)

// FormatVersion identifies the artifact layout written by Encode.
const FormatVersion = 2

const algorithmName = "isolation_forest"

// ErrCorruptArtifact is returned by Decode for artifacts that cannot describe a valid forest.
var ErrCorruptArtifact = errors.New("forest: corrupt artifact")

type artifact struct {
	FormatVersion int       `json:"format_version"`
	Algorithm     string    `json:"algorithm"`
	Features      []string  `json:"features"`
	Estimators    int       `json:"n_estimators"`
	MaxSamples    int       `json:"max_samples"`
	SampleSize    int       `json:"sample_size"`
	Seed          int64     `json:"random_state"`
	Contamination string    `json:"contamination"`
	Threshold     float64   `json:"threshold"`
	TrainedOn     int       `json:"trained_on"`
	CreatedAt     time.Time `json:"created_at"`
	Trees         [][]node  `json:"trees"`
}

// Encode writes the forest as a versioned JSON artifact.
func (f *Forest) Encode(w io.Writer) error {
	a := artifact{
		FormatVersion: FormatVersion,
		Algorithm:     algorithmName,
		Features:      f.features,
		Estimators:    f.params.Estimators,
		MaxSamples:    f.params.MaxSamples,
		SampleSize:    f.sampleSize,
		Seed:          f.params.Seed,
		Contamination: "auto",
		Threshold:     f.threshold,
		TrainedOn:     f.trainedOn,
		CreatedAt:     f.createdAt,
		Trees:         f.trees,
	}
	if err := json.NewEncoder(w).Encode(a); err != nil {
		return fmt.Errorf("encode forest: %w", err)
	}
	return nil
}

// Decode reads an artifact written by Encode and validates its structure.
func Decode(r io.Reader) (*Forest, error) {
	var a artifact
	if err := json.NewDecoder(r).Decode(&a); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptArtifact, err)
	}
	if a.FormatVersion != FormatVersion {
		return nil, fmt.Errorf("%w: unsupported format version %d", ErrCorruptArtifact, a.FormatVersion)
	}
	if a.Algorithm != algorithmName {
		return nil, fmt.Errorf("%w: unexpected algorithm %q", ErrCorruptArtifact, a.Algorithm)
	}
	if len(a.Features) == 0 {
		return nil, fmt.Errorf("%w: missing feature schema", ErrCorruptArtifact)
	}
	if math.IsNaN(a.Threshold) || a.Threshold < autoOffset || a.Threshold > 1 {
		return nil, fmt.Errorf("%w: threshold %v outside [%v, 1]", ErrCorruptArtifact, a.Threshold, autoOffset)
	}
	if len(a.Trees) == 0 || a.SampleSize <= 0 {
		return nil, fmt.Errorf("%w: empty ensemble", ErrCorruptArtifact)
	}
	for i, tree := range a.Trees {
		if err := validateTree(tree, len(a.Features)); err != nil {
			return nil, fmt.Errorf("%w: tree %d: %v", ErrCorruptArtifact, i, err)
		}
	}

	return &Forest{
		features: a.Features,
		params: Params{
			Estimators: a.Estimators,
			MaxSamples: a.MaxSamples,
			Seed:       a.Seed,
		},
		sampleSize: a.SampleSize,
		trainedOn:  a.TrainedOn,
		createdAt:  a.CreatedAt,
		trees:      a.Trees,
		norm:       averagePathLength(a.SampleSize),
		threshold:  a.Threshold,
	}, nil
}

// validateTree checks child links point forward, which rules out cycles.
func validateTree(tree []node, width int) error {
	if len(tree) == 0 {
		return errors.New("no nodes")
	}
	for i, n := range tree {
		if n.Size < 0 {
			return fmt.Errorf("node %d: negative size", i)
		}
		if n.leaf() {
			continue
		}
		if n.Feature < 0 || n.Feature >= width {
			return fmt.Errorf("node %d: feature %d out of range", i, n.Feature)
		}
		for _, child := range []int32{n.Left, n.Right} {
			if int(child) <= i || int(child) >= len(tree) {
				return fmt.Errorf("node %d: child %d out of range", i, child)
			}
		}
	}
	return nil
}
