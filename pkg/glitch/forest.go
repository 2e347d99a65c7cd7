package glitch

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"os"
	"sort"
)

// ForestParams control training of a random forest classifier.
type ForestParams struct {
	Trees           int   `json:"trees"`
	MaxDepth        int   `json:"max_depth"`
	MinSamplesSplit int   `json:"min_samples_split"`
	MinSamplesLeaf  int   `json:"min_samples_leaf"`
	Seed            int64 `json:"seed"`
}

// DefaultForestParams pulls the training knobs from the global config.
func DefaultForestParams() ForestParams {
	return ForestParams{
		Trees:           Config.ForestTrees,
		MaxDepth:        Config.ForestMaxDepth,
		MinSamplesSplit: Config.ForestMinSplit,
		MinSamplesLeaf:  Config.ForestMinLeaf,
		Seed:            Config.ForestSeed,
	}
}

// Forest is a bagged ensemble of probability trees. Artifacts serialize
// to JSON so a trained model survives rebuilds of the binary.
type Forest struct {
	NClasses  int          `json:"n_classes"`
	NFeatures int          `json:"n_features"`
	Params    ForestParams `json:"params"`
	Trees     []*treeNode  `json:"trees"`
}

// treeNode is either a split (Left and Right set) or a leaf (Probs set).
type treeNode struct {
	Feature   int       `json:"f,omitempty"`
	Threshold float64   `json:"t,omitempty"`
	Left      *treeNode `json:"l,omitempty"`
	Right     *treeNode `json:"r,omitempty"`
	Probs     []float64 `json:"p,omitempty"`
}

// FitForest trains a forest on the sample matrix X with class labels y.
// Training is deterministic for a given seed.
func FitForest(X [][]float64, y []int, nClasses int, params ForestParams) (*Forest, error) {
	if len(X) == 0 || len(X) != len(y) {
		return nil, fmt.Errorf("invalid training set: %d samples, %d labels", len(X), len(y))
	}
	for _, label := range y {
		if label < 0 || label >= nClasses {
			return nil, fmt.Errorf("label %d out of range for %d classes", label, nClasses)
		}
	}

	f := &Forest{
		NClasses:  nClasses,
		NFeatures: len(X[0]),
		Params:    params,
		Trees:     make([]*treeNode, 0, params.Trees),
	}
	rng := rand.New(rand.NewSource(params.Seed))
	nSub := int(math.Ceil(math.Sqrt(float64(f.NFeatures))))

	for t := 0; t < params.Trees; t++ {
		// Bootstrap sample
		indices := make([]int, len(X))
		for i := range indices {
			indices[i] = rng.Intn(len(X))
		}
		f.Trees = append(f.Trees, f.grow(X, y, indices, 0, nSub, rng))
	}
	return f, nil
}

func (f *Forest) grow(X [][]float64, y []int, indices []int, depth, nSub int, rng *rand.Rand) *treeNode {
	counts := make([]int, f.NClasses)
	for _, i := range indices {
		counts[y[i]]++
	}

	if depth >= f.Params.MaxDepth || len(indices) < f.Params.MinSamplesSplit || pure(counts) {
		return leaf(counts)
	}

	feature, threshold, ok := f.bestSplit(X, y, indices, nSub, rng)
	if !ok {
		return leaf(counts)
	}

	var left, right []int
	for _, i := range indices {
		if X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) < f.Params.MinSamplesLeaf || len(right) < f.Params.MinSamplesLeaf {
		return leaf(counts)
	}

	return &treeNode{
		Feature:   feature,
		Threshold: threshold,
		Left:      f.grow(X, y, left, depth+1, nSub, rng),
		Right:     f.grow(X, y, right, depth+1, nSub, rng),
	}
}

// bestSplit searches a random feature subset for the gini-optimal split.
func (f *Forest) bestSplit(X [][]float64, y []int, indices []int, nSub int, rng *rand.Rand) (int, float64, bool) {
	features := rng.Perm(f.NFeatures)[:nSub]

	bestGini := math.Inf(1)
	bestFeature, bestThreshold := -1, 0.0

	for _, feature := range features {
		values := make([]float64, 0, len(indices))
		for _, i := range indices {
			values = append(values, X[i][feature])
		}
		sort.Float64s(values)

		for v := 1; v < len(values); v++ {
			if values[v] == values[v-1] {
				continue
			}
			threshold := (values[v] + values[v-1]) / 2.0

			leftCounts := make([]int, f.NClasses)
			rightCounts := make([]int, f.NClasses)
			for _, i := range indices {
				if X[i][feature] <= threshold {
					leftCounts[y[i]]++
				} else {
					rightCounts[y[i]]++
				}
			}
			g := weightedGini(leftCounts, rightCounts)
			if g < bestGini {
				bestGini = g
				bestFeature = feature
				bestThreshold = threshold
			}
		}
	}

	return bestFeature, bestThreshold, bestFeature >= 0
}

func pure(counts []int) bool {
	nonzero := 0
	for _, c := range counts {
		if c > 0 {
			nonzero++
		}
	}
	return nonzero <= 1
}

func leaf(counts []int) *treeNode {
	total := 0
	for _, c := range counts {
		total += c
	}
	probs := make([]float64, len(counts))
	if total > 0 {
		for i, c := range counts {
			probs[i] = float64(c) / float64(total)
		}
	}
	return &treeNode{Probs: probs}
}

func gini(counts []int) float64 {
	total := 0
	for _, c := range counts {
		total += c
	}
	if total == 0 {
		return 0
	}
	g := 1.0
	for _, c := range counts {
		p := float64(c) / float64(total)
		g -= p * p
	}
	return g
}

func weightedGini(left, right []int) float64 {
	nl, nr := 0, 0
	for _, c := range left {
		nl += c
	}
	for _, c := range right {
		nr += c
	}
	total := float64(nl + nr)
	if total == 0 {
		return 0
	}
	return float64(nl)/total*gini(left) + float64(nr)/total*gini(right)
}

// PredictProba averages the leaf distributions across all trees.
// The result always sums to 1.
func (f *Forest) PredictProba(x []float64) ([]float64, error) {
	if len(x) != f.NFeatures {
		return nil, fmt.Errorf("expected %d features, got %d", f.NFeatures, len(x))
	}
	probs := make([]float64, f.NClasses)
	for _, tree := range f.Trees {
		node := tree
		for node.Probs == nil {
			if x[node.Feature] <= node.Threshold {
				node = node.Left
			} else {
				node = node.Right
			}
		}
		for i, p := range node.Probs {
			probs[i] += p
		}
	}
	n := float64(len(f.Trees))
	for i := range probs {
		probs[i] /= n
	}
	return probs, nil
}

// Predict returns the most likely class, first index winning ties.
func (f *Forest) Predict(x []float64) (int, error) {
	probs, err := f.PredictProba(x)
	if err != nil {
		return 0, err
	}
	best := 0
	for i := 1; i < len(probs); i++ {
		if probs[i] > probs[best] {
			best = i
		}
	}
	return best, nil
}

// Accuracy scores the forest against a held-out set.
func (f *Forest) Accuracy(X [][]float64, y []int) (float64, error) {
	if len(X) == 0 {
		return 0, fmt.Errorf("empty evaluation set")
	}
	correct := 0
	for i, x := range X {
		pred, err := f.Predict(x)
		if err != nil {
			return 0, err
		}
		if pred == y[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(X)), nil
}

// SaveForest writes the model artifact as JSON.
func SaveForest(f *Forest, path string) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to marshal forest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write model %s: %w", path, err)
	}
	return nil
}

// LoadForest reads a model artifact back.
func LoadForest(path string) (*Forest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrModelsUnavailable, path, err)
	}
	var f Forest
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrModelsUnavailable, path, err)
	}
	if len(f.Trees) == 0 || f.NClasses < 2 {
		return nil, fmt.Errorf("%w: %s is empty or malformed", ErrModelsUnavailable, path)
	}
	return &f, nil
}
