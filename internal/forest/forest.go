// Package forest implements an isolation-forest outlier detector.
//
// A forest is an ensemble of randomly partitioned binary trees grown on
// subsamples of the training set. Points that are easy to isolate (short
// average path length) score close to 1, points deep inside the bulk of the
// data score well below 0.5.
//
// The decision threshold is estimated from the training scores at fit time
// (contamination "auto"): the upper Tukey fence Q3 + 3*IQR, capped one IQR below
// the score of a point lying outside the training range in every feature, and
// never below the classic 0.5 offset. Predict labels a point Outlier when its
// score exceeds the threshold.
//
// Fitting is deterministic for a given input and seed, and a fitted Forest is
// immutable, so it may be shared by concurrent readers.
package forest

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"
)

// Labels returned by Predict.
const (
	Inlier  = 1
	Outlier = -1
)

// Defaults used when Params fields are left zero.
const (
	DefaultEstimators       = 100
	DefaultMaxSamples       = 256
	DefaultSeed       int64 = 42

	// autoOffset is the lowest decision threshold a forest may use.
	autoOffset = 0.5
	// fenceMultiplier scales the IQR of training scores above Q3.
	fenceMultiplier = 3.0
	// maxCornerFeatures bounds the 2^n corner points scored during calibration.
	maxCornerFeatures = 12

	eulerGamma = 0.5772156649015329
)

var (
	// ErrEmptyInput is returned by Fit when there is nothing to learn from.
	ErrEmptyInput = errors.New("forest: no training rows")
	// ErrWidth is returned when a row does not have one value per feature.
	ErrWidth = errors.New("forest: row width does not match feature count")
	// ErrNotFinite is returned for NaN or infinite values.
	ErrNotFinite = errors.New("forest: value is not finite")
)

// Params controls how the ensemble is grown.
type Params struct {
	Estimators int
	MaxSamples int
	Seed       int64
	Features   []string
}

// DefaultParams returns the standard configuration for the given feature schema.
func DefaultParams(features ...string) Params {
	return Params{
		Estimators: DefaultEstimators,
		MaxSamples: DefaultMaxSamples,
		Seed:       DefaultSeed,
		Features:   append([]string(nil), features...),
	}
}

func (p Params) withDefaults() Params {
	if p.Estimators <= 0 {
		p.Estimators = DefaultEstimators
	}
	if p.MaxSamples <= 0 {
		p.MaxSamples = DefaultMaxSamples
	}
	return p
}

// node is one entry of a flattened tree. Leaves have Left == -1.
type node struct {
	Feature int     `json:"f"`
	Split   float64 `json:"s"`
	Left    int32   `json:"l"`
	Right   int32   `json:"r"`
	Size    int     `json:"n"`
}

func (n node) leaf() bool { return n.Left < 0 }

// Forest is a fitted isolation forest.
type Forest struct {
	features   []string
	params     Params
	sampleSize int
	trainedOn  int
	createdAt  time.Time
	trees      [][]node
	norm       float64
	threshold  float64
}

// Fit grows the ensemble over rows, each holding one value per feature in
// params.Features order.
func Fit(rows [][]float64, params Params) (*Forest, error) {
	params = params.withDefaults()
	if len(params.Features) == 0 {
		return nil, fmt.Errorf("forest: feature schema is empty")
	}
	if len(rows) == 0 {
		return nil, ErrEmptyInput
	}
	width := len(params.Features)
	for i, row := range rows {
		if err := checkRow(row, width); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
	}

	sampleSize := params.MaxSamples
	if sampleSize > len(rows) {
		sampleSize = len(rows)
	}

	b := &builder{
		rows:     rows,
		width:    width,
		maxDepth: maxDepthFor(sampleSize),
		rng:      rand.New(rand.NewSource(params.Seed)),
	}

	trees := make([][]node, 0, params.Estimators)
	for t := 0; t < params.Estimators; t++ {
		idx := b.rng.Perm(len(rows))[:sampleSize]
		b.nodes = make([]node, 0, 2*sampleSize)
		b.grow(idx, 0)
		trees = append(trees, b.nodes)
	}

	f := &Forest{
		features:   append([]string(nil), params.Features...),
		params:     params,
		sampleSize: sampleSize,
		trainedOn:  len(rows),
		createdAt:  time.Now().UTC(),
		trees:      trees,
		norm:       averagePathLength(sampleSize),
	}
	f.threshold = f.calibrate(rows)
	return f, nil
}

// Features returns the schema the forest was trained on.
func (f *Forest) Features() []string {
	return append([]string(nil), f.features...)
}

// Params returns the parameters used to grow the forest.
func (f *Forest) Params() Params {
	p := f.params
	p.Features = f.Features()
	return p
}

// TrainedOn is the number of rows the forest was fit on.
func (f *Forest) TrainedOn() int { return f.trainedOn }

// CreatedAt is when the forest was fit.
func (f *Forest) CreatedAt() time.Time { return f.createdAt }

// Threshold is the score above which Predict reports Outlier. It is at least 0.5.
func (f *Forest) Threshold() float64 { return f.threshold }

// Score returns the anomaly score of x in (0, 1]; higher is more anomalous.
func (f *Forest) Score(x []float64) (float64, error) {
	if err := checkRow(x, len(f.features)); err != nil {
		return 0, err
	}
	return f.score(x), nil
}

func (f *Forest) score(x []float64) float64 {
	if f.norm == 0 {
		// A single training row gives no notion of spread.
		return autoOffset
	}
	total := 0.0
	for _, tree := range f.trees {
		total += pathLength(tree, x)
	}
	mean := total / float64(len(f.trees))
	return math.Pow(2, -mean/f.norm)
}

// Predict returns Outlier when the score of x exceeds Threshold, Inlier otherwise.
func (f *Forest) Predict(x []float64) (int, error) {
	score, err := f.Score(x)
	if err != nil {
		return 0, err
	}
	if score > f.threshold {
		return Outlier, nil
	}
	return Inlier, nil
}

// calibrate estimates the decision threshold from the scores of the training rows.
func (f *Forest) calibrate(rows [][]float64) float64 {
	if f.norm == 0 {
		return autoOffset
	}
	scores := make([]float64, len(rows))
	for i, row := range rows {
		scores[i] = f.score(row)
	}
	sort.Float64s(scores)
	q1, q3 := quantile(scores, 0.25), quantile(scores, 0.75)
	iqr := q3 - q1

	limit := q3 + fenceMultiplier*iqr
	if corner, ok := f.cornerScore(len(rows[0])); ok && corner-iqr < limit {
		limit = corner - iqr
	}
	return math.Max(autoOffset, limit)
}

// cornerScore is the lowest score among points beyond the training range in every
// feature. Splits always fall inside the range, so ±Inf follows the same path as
// any such point.
func (f *Forest) cornerScore(width int) (float64, bool) {
	if width > maxCornerFeatures {
		return 0, false
	}
	lowest := math.Inf(1)
	x := make([]float64, width)
	for mask := 0; mask < 1<<width; mask++ {
		for j := range x {
			x[j] = math.Inf(-1)
			if mask>>j&1 == 1 {
				x[j] = math.Inf(1)
			}
		}
		lowest = math.Min(lowest, f.score(x))
	}
	return lowest, true
}

// quantile interpolates linearly between the order statistics of sorted.
func quantile(sorted []float64, p float64) float64 {
	pos := p * float64(len(sorted)-1)
	lo := int(pos)
	if lo+1 >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[lo+1]-sorted[lo])*frac
}

type builder struct {
	rows     [][]float64
	width    int
	maxDepth int
	rng      *rand.Rand
	nodes    []node
}

// grow appends the subtree for idx and returns its position.
func (b *builder) grow(idx []int, depth int) int32 {
	pos := int32(len(b.nodes))
	b.nodes = append(b.nodes, node{Left: -1, Right: -1, Size: len(idx)})
	if len(idx) <= 1 || depth >= b.maxDepth {
		return pos
	}

	feature, lo, hi, ok := b.pickFeature(idx)
	if !ok {
		return pos
	}
	split := lo + b.rng.Float64()*(hi-lo)

	// Partition in place: values below split first.
	mid := 0
	for i := range idx {
		if b.rows[idx[i]][feature] < split {
			idx[i], idx[mid] = idx[mid], idx[i]
			mid++
		}
	}
	if mid == 0 || mid == len(idx) {
		return pos
	}

	left := b.grow(idx[:mid], depth+1)
	right := b.grow(idx[mid:], depth+1)
	b.nodes[pos].Feature = feature
	b.nodes[pos].Split = split
	b.nodes[pos].Left = left
	b.nodes[pos].Right = right
	return pos
}

// pickFeature draws features in random order until one has a non-zero range.
func (b *builder) pickFeature(idx []int) (int, float64, float64, bool) {
	for _, feature := range b.rng.Perm(b.width) {
		lo, hi := b.rows[idx[0]][feature], b.rows[idx[0]][feature]
		for _, i := range idx[1:] {
			v := b.rows[i][feature]
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		if hi > lo {
			return feature, lo, hi, true
		}
	}
	return 0, 0, 0, false
}

func pathLength(tree []node, x []float64) float64 {
	depth := 0
	i := int32(0)
	for {
		n := tree[i]
		if n.leaf() {
			return float64(depth) + averagePathLength(n.Size)
		}
		if x[n.Feature] < n.Split {
			i = n.Left
		} else {
			i = n.Right
		}
		depth++
	}
}

// averagePathLength is c(n), the mean path length of an unsuccessful BST search.
func averagePathLength(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	}
	m := float64(n - 1)
	return 2*(math.Log(m)+eulerGamma) - 2*m/float64(n)
}

func maxDepthFor(sampleSize int) int {
	if sampleSize <= 1 {
		return 0
	}
	return int(math.Ceil(math.Log2(float64(sampleSize))))
}

func checkRow(row []float64, width int) error {
	if len(row) != width {
		return fmt.Errorf("%w: got %d, want %d", ErrWidth, len(row), width)
	}
	for _, v := range row {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ErrNotFinite
		}
	}
	return nil
}
