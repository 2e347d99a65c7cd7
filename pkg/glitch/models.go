package glitch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/projectglitch/glitch/internal/logger"
)

// ModelSpec describes one market model inside features.json.
type ModelSpec struct {
	File     string   `json:"file"`
	Type     string   `json:"type"`
	Classes  []string `json:"classes"`
	Accuracy float64  `json:"accuracy"`
}

// ModelBank holds the loaded artifacts for every market plus the feature
// schema they were trained against. A bank is immutable once loaded.
type ModelBank struct {
	Features []string
	specs    map[string]*ModelSpec
	forests  map[string]*Forest
}

// LoadModelBank reads features.json and every model artifact it names.
// Any missing or malformed piece fails the whole bank: a partial bank
// would silently predict some markets with stale semantics.
func LoadModelBank(modelsPath string) (*ModelBank, error) {
	manifestPath := filepath.Join(modelsPath, "features.json")
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrModelsUnavailable, manifestPath, err)
	}

	var manifest featuresManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrModelsUnavailable, manifestPath, err)
	}
	if len(manifest.Features) == 0 {
		return nil, fmt.Errorf("%w: %s lists no features", ErrModelsUnavailable, manifestPath)
	}

	bank := &ModelBank{
		Features: manifest.Features,
		specs:    manifest.Models,
		forests:  map[string]*Forest{},
	}

	for _, market := range MarketOrder {
		spec, ok := manifest.Models[market]
		if !ok {
			return nil, fmt.Errorf("%w: %s has no %s model", ErrModelsUnavailable, manifestPath, market)
		}
		forest, err := LoadForest(filepath.Join(modelsPath, spec.File))
		if err != nil {
			return nil, err
		}
		if forest.NClasses != len(spec.Classes) {
			return nil, fmt.Errorf("%w: %s model has %d classes, manifest lists %d",
				ErrModelsUnavailable, market, forest.NClasses, len(spec.Classes))
		}
		bank.forests[market] = forest
	}

	logger.Info("Model bank loaded", modelsPath, bank.Features)
	return bank, nil
}

// PredictProba runs the market model over a feature vector already laid
// out in the bank's schema order.
func (b *ModelBank) PredictProba(market string, x []float64) ([]float64, error) {
	forest, ok := b.forests[market]
	if !ok {
		return nil, fmt.Errorf("%w: no %s model", ErrModelsUnavailable, market)
	}
	return forest.PredictProba(x)
}

// Classes returns the label names for a market, in target index order.
func (b *ModelBank) Classes(market string) []string {
	if spec, ok := b.specs[market]; ok {
		return spec.Classes
	}
	return nil
}

// Accuracy returns the held-out accuracy recorded at training time.
func (b *ModelBank) Accuracy(market string) float64 {
	if spec, ok := b.specs[market]; ok {
		return spec.Accuracy
	}
	return 0
}
