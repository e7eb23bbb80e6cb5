package services

import (
	"path"
	"strings"

	"github.com/waveroom/marketplace-backend/internal/types"
)

// Variant is an encoded form of a track offered at its own price.
type Variant string

const (
	VariantLossy    Variant = "lossy"
	VariantLossless Variant = "lossless"
	VariantStems    Variant = "stems"
)

// VariantClassifier decides which variant category a manifest file belongs
// to. Classification is pluggable because bundle file naming is not uniform
// across the catalog.
type VariantClassifier interface {
	Classify(fileName string) (Variant, bool)
}

// FilenameClassifier is the default classifier: archive extensions and names
// carrying a "stem" marker are stem bundles, wav-like extensions are
// lossless, mp3 is lossy. Anything else stays unclassified and never matches
// a requested variant.
type FilenameClassifier struct{}

func (FilenameClassifier) Classify(fileName string) (Variant, bool) {
	lower := strings.ToLower(strings.TrimSpace(fileName))
	ext := path.Ext(lower)
	switch {
	case ext == ".zip" || ext == ".rar" || ext == ".7z" || strings.Contains(lower, "stem"):
		return VariantStems, true
	case ext == ".wav" || ext == ".aif" || ext == ".aiff" || ext == ".flac":
		return VariantLossless, true
	case ext == ".mp3":
		return VariantLossy, true
	}
	return "", false
}

// PriceCalculator derives a cart line's effective price. Pure, no side
// effects.
type PriceCalculator struct {
	classifier VariantClassifier
}

func NewPriceCalculator(classifier VariantClassifier) *PriceCalculator {
	if classifier == nil {
		classifier = FilenameClassifier{}
	}
	return &PriceCalculator{classifier: classifier}
}

// ComputePrice returns the snapshot's stored price for non-track entities
// and for tracks without variant selections. For a track with selections it
// sums, per requested variant, the price of the first manifest file
// classifying into that variant. No manifest data means 0.
func (pc *PriceCalculator) ComputePrice(snap *types.EntitySnapshot, selectedVariants []string) float64 {
	if snap == nil {
		return 0
	}
	if snap.Ref.Kind != types.KindTrack || len(selectedVariants) == 0 {
		return snap.Price
	}
	if len(snap.Manifest) == 0 {
		return 0
	}

	total := 0.0
	for _, want := range selectedVariants {
		wanted := Variant(strings.ToLower(strings.TrimSpace(want)))
		for _, f := range snap.Manifest {
			got, ok := pc.classifier.Classify(f.Name)
			if ok && got == wanted {
				total += f.Price
				break
			}
		}
	}
	return total
}
