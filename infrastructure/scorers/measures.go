package scorers

import (
	"math"

	"github.com/ahrav/go-ponder/internal/domain"
)

// Registry tags for measures.
const (
	WeightedSumType     = "weighted_sum"
	WeightedProductType = "weighted_product"
	ChebyshevType       = "chebyshev"
	WeightedMeanType    = "weighted_mean"
)

var (
	_ domain.Measure = WeightedSum{}
	_ domain.Measure = WeightedProduct{}
	_ domain.Measure = ChebyshevDistance{}
	_ domain.Measure = WeightedMean{}
)

// WeightedSum adds value*weight over all scores.
type WeightedSum struct{}

// Calculate implements domain.Measure.
func (WeightedSum) Calculate(scores []domain.Score) float64 {
	var sum float64
	for _, s := range scores {
		sum += s.Weighted()
	}
	return sum
}

// WeightedProduct multiplies value*weight over all scores. An empty input
// yields 0.
type WeightedProduct struct{}

// Calculate implements domain.Measure.
func (WeightedProduct) Calculate(scores []domain.Score) float64 {
	if len(scores) == 0 {
		return 0
	}
	product := 1.0
	for _, s := range scores {
		product *= s.Weighted()
	}
	return product
}

// ChebyshevDistance takes the largest value*weight. An empty input yields 0.
type ChebyshevDistance struct{}

// Calculate implements domain.Measure.
func (ChebyshevDistance) Calculate(scores []domain.Score) float64 {
	if len(scores) == 0 {
		return 0
	}
	best := math.Inf(-1)
	for _, s := range scores {
		best = math.Max(best, s.Weighted())
	}
	return best
}

// WeightedMean is Σ(value*weight) / Σweight, or 0 when the weights sum to 0.
type WeightedMean struct{}

// Calculate implements domain.Measure.
func (WeightedMean) Calculate(scores []domain.Score) float64 {
	var sum, weights float64
	for _, s := range scores {
		sum += s.Weighted()
		weights += s.Weight
	}
	if weights == 0 {
		return 0
	}
	return sum / weights
}

// MeasureByType returns the built-in measure for a registry tag.
func MeasureByType(measureType string) (domain.Measure, bool) {
	switch measureType {
	case WeightedSumType:
		return WeightedSum{}, true
	case WeightedProductType:
		return WeightedProduct{}, true
	case ChebyshevType:
		return ChebyshevDistance{}, true
	case WeightedMeanType:
		return WeightedMean{}, true
	default:
		return nil, false
	}
}
