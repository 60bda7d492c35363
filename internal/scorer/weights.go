package scorer

import (
	"fmt"
	"math"

	"github.com/cloo-solutions/placesearch/internal/domain"
)

const weightSumTolerance = 1e-9

// Weights are the coefficients of the four ranking factors. They must sum to 1.
type Weights struct {
	TextMatch    float64
	GeoProximity float64
	Freshness    float64
	Popularity   float64
}

// DefaultWeights returns 0.40 text, 0.25 geo, 0.20 freshness, 0.15 popularity.
func DefaultWeights() Weights {
	return Weights{
		TextMatch:    0.40,
		GeoProximity: 0.25,
		Freshness:    0.20,
		Popularity:   0.15,
	}
}

func (w Weights) sum() float64 {
	return w.TextMatch + w.GeoProximity + w.Freshness + w.Popularity
}

// Validate rejects negative weights and weights that do not sum to 1.
// Weights are never renormalized.
func (w Weights) Validate() error {
	for name, v := range map[string]float64{
		"text_match":    w.TextMatch,
		"geo_proximity": w.GeoProximity,
		"freshness":     w.Freshness,
		"popularity":    w.Popularity,
	} {
		if v < 0 || math.IsNaN(v) {
			return domain.NewDomainError(domain.ErrCodeWeightConfiguration,
				fmt.Sprintf("weight %s must be non-negative, got %v", name, v))
		}
	}

	if sum := w.sum(); math.Abs(sum-1.0) > weightSumTolerance {
		return domain.NewDomainError(domain.ErrCodeWeightConfiguration,
			fmt.Sprintf("weights must sum to 1.0, got %.12f", sum))
	}
	return nil
}
