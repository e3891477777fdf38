package sparse

import (
	"math"

	"github.com/san-kum/dynid/internal/library"
)

// Select picks the fit with the best error/complexity trade-off from a
// threshold sweep: an AIC-style score n*ln(RSS/n) + 2k, where k is the
// active-term count. Ties prefer the sparser model. n is the number of
// regression samples.
func Select(fits []*Fit, n int) *Fit {
	var best *Fit
	bestScore := math.Inf(1)

	for _, f := range fits {
		if f == nil {
			continue
		}
		score := aic(f.RSS, f.Active, n)
		if score < bestScore || (score == bestScore && best != nil && f.Active < best.Active) {
			best = f
			bestScore = score
		}
	}
	return best
}

func aic(rss float64, k, n int) float64 {
	// Fits below numerical noise are indistinguishable on error; flooring
	// the mean residual there leaves only the sparsity penalty to decide.
	mean := rss / float64(n)
	if mean < 1e-15 {
		mean = 1e-15
	}
	return float64(n)*math.Log(mean) + 2*float64(k)
}

// ModelTerm is one surviving basis entry in one output dimension.
type ModelTerm struct {
	Index int
	Name  string
	Coef  float64
}

// Model is the selected symbolic dynamics: for each output dimension, the
// basis terms with nonzero coefficients, in library order. This is the
// pipeline's deliverable.
type Model struct {
	Lambda float64
	RSS    float64
	Terms  [][]ModelTerm
	Fit    *Fit
}

// Build resolves a fit against the library that produced its design matrix.
func Build(lib *library.Library, fit *Fit) *Model {
	_, outDim := fit.Coef.Dims()
	terms := make([][]ModelTerm, outDim)
	for k := 0; k < outDim; k++ {
		for j := 0; j < lib.Len(); j++ {
			c := fit.Coef.At(j, k)
			if c == 0 {
				continue
			}
			terms[k] = append(terms[k], ModelTerm{Index: j, Name: lib.Term(j).Name(), Coef: c})
		}
	}
	return &Model{Lambda: fit.Lambda, RSS: fit.RSS, Terms: terms, Fit: fit}
}
