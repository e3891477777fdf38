// Package network implements the trainable residual function approximator
// used inside the hybrid dynamics: a small multilayer perceptron with a
// Gaussian radial-basis activation, operating on a flat parameter vector so
// the trainer and sensitivity engine never need to know the layer layout.
package network

import (
	"math"
	"math/rand"

	"github.com/san-kum/dynid/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

// MLP is a fixed-architecture feedforward network. Hidden layers use the
// Gaussian activation exp(-z^2), which is smooth, bounded, and free of
// singularities; the output layer is linear. Parameters live in a flat
// vector laid out layer by layer, weights row-major then biases.
type MLP struct {
	sizes []int
}

// New returns the default architecture for two-species residual learning:
// 2 inputs, two hidden layers of 5 units, 2 outputs.
func New() *MLP {
	return &MLP{sizes: []int{2, 5, 5, 2}}
}

// NewWithSizes builds an arbitrary layer layout. The first and last entries
// must match the state dimension of the hybrid dynamics.
func NewWithSizes(sizes []int) *MLP {
	return &MLP{sizes: append([]int(nil), sizes...)}
}

func (m *MLP) InDim() int  { return m.sizes[0] }
func (m *MLP) OutDim() int { return m.sizes[len(m.sizes)-1] }

// NumParams returns the flat parameter count: for each layer, out*in
// weights plus out biases.
func (m *MLP) NumParams() int {
	n := 0
	for l := 0; l < len(m.sizes)-1; l++ {
		n += m.sizes[l+1]*m.sizes[l] + m.sizes[l+1]
	}
	return n
}

// Init draws a fresh parameter vector from seeded Gaussians scaled by
// 1/sqrt(fanIn) per layer. The same seed always yields the same vector.
func (m *MLP) Init(seed int64) dynamo.Params {
	rng := rand.New(rand.NewSource(seed))
	theta := make(dynamo.Params, m.NumParams())
	offset := 0
	for l := 0; l < len(m.sizes)-1; l++ {
		in, out := m.sizes[l], m.sizes[l+1]
		scale := 1.0 / math.Sqrt(float64(in))
		for i := 0; i < out*in; i++ {
			theta[offset+i] = rng.NormFloat64() * scale
		}
		offset += out*in + out // biases stay zero
	}
	return theta
}

func rbf(z float64) float64 { return math.Exp(-z * z) }

func rbfPrime(z float64) float64 { return -2 * z * math.Exp(-z*z) }

// Forward evaluates the network. Pure function of (x, theta).
func (m *MLP) Forward(x dynamo.State, theta dynamo.Params) dynamo.State {
	a := []float64(x)
	offset := 0
	last := len(m.sizes) - 2
	for l := 0; l <= last; l++ {
		in, out := m.sizes[l], m.sizes[l+1]
		z := make([]float64, out)
		for i := 0; i < out; i++ {
			sum := theta[offset+out*in+i]
			row := theta[offset+i*in : offset+i*in+in]
			for j, w := range row {
				sum += w * a[j]
			}
			z[i] = sum
		}
		offset += out*in + out
		if l < last {
			for i := range z {
				z[i] = rbf(z[i])
			}
		}
		a = z
	}
	return dynamo.State(a)
}

// Jacobians evaluates the network and its first derivatives: the output u,
// du/dx (OutDim x InDim), and du/dtheta (OutDim x NumParams). Derivatives
// are exact, computed by one reverse pass per output row over the cached
// forward activations.
func (m *MLP) Jacobians(x dynamo.State, theta dynamo.Params) (dynamo.State, *mat.Dense, *mat.Dense) {
	nl := len(m.sizes) - 1 // number of weight layers

	// Forward pass, caching pre-activations and activations per layer.
	// acts[0] is the input; acts[l+1] the activation after layer l.
	acts := make([][]float64, nl+1)
	pre := make([][]float64, nl)
	acts[0] = []float64(x)

	offsets := make([]int, nl)
	offset := 0
	for l := 0; l < nl; l++ {
		offsets[l] = offset
		in, out := m.sizes[l], m.sizes[l+1]
		z := make([]float64, out)
		for i := 0; i < out; i++ {
			sum := theta[offset+out*in+i]
			row := theta[offset+i*in : offset+i*in+in]
			for j, w := range row {
				sum += w * acts[l][j]
			}
			z[i] = sum
		}
		pre[l] = z
		a := make([]float64, out)
		if l < nl-1 {
			for i, v := range z {
				a[i] = rbf(v)
			}
		} else {
			copy(a, z)
		}
		acts[l+1] = a
		offset += out*in + out
	}

	u := dynamo.State(append([]float64(nil), acts[nl]...))
	jx := mat.NewDense(m.OutDim(), m.InDim(), nil)
	jtheta := mat.NewDense(m.OutDim(), m.NumParams(), nil)

	// Reverse pass per output row k. delta holds dU_k/dz for the current
	// layer's pre-activations.
	for k := 0; k < m.OutDim(); k++ {
		delta := make([]float64, m.OutDim())
		delta[k] = 1

		for l := nl - 1; l >= 0; l-- {
			in, out := m.sizes[l], m.sizes[l+1]
			off := offsets[l]

			for i := 0; i < out; i++ {
				d := delta[i]
				if d == 0 {
					continue
				}
				for j := 0; j < in; j++ {
					jtheta.Set(k, off+i*in+j, d*acts[l][j])
				}
				jtheta.Set(k, off+out*in+i, d)
			}

			prev := make([]float64, in)
			for j := 0; j < in; j++ {
				sum := 0.0
				for i := 0; i < out; i++ {
					sum += theta[off+i*in+j] * delta[i]
				}
				prev[j] = sum
			}

			if l > 0 {
				for j := range prev {
					prev[j] *= rbfPrime(pre[l-1][j])
				}
			}
			delta = prev
		}

		for j := 0; j < m.InDim(); j++ {
			jx.Set(k, j, delta[j])
		}
	}

	return u, jx, jtheta
}
