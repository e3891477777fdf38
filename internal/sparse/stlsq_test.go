package sparse_test

import (
	"context"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/dynid/internal/dynamo"
	"github.com/san-kum/dynid/internal/library"
	"github.com/san-kum/dynid/internal/sparse"
	"gonum.org/v1/gonum/mat"
)

// sampleCloud spreads states over the populated region of phase space so
// the design matrix is well conditioned.
func sampleCloud() []dynamo.State {
	var states []dynamo.State
	for i := 0; i < 8; i++ {
		for j := 0; j < 8; j++ {
			states = append(states, dynamo.State{
				0.2 + 0.25*float64(i),
				0.5 + 0.6*float64(j),
			})
		}
	}
	return states
}

// interactionTargets is the true missing-term signal [-beta*x1*x2,
// gamma*x1*x2] for beta=0.9, gamma=0.8.
func interactionTargets(states []dynamo.State) *mat.Dense {
	t := mat.NewDense(len(states), 2, nil)
	for i, x := range states {
		t.Set(i, 0, -0.9*x[0]*x[1])
		t.Set(i, 1, 0.8*x[0]*x[1])
	}
	return t
}

var _ = Describe("STLSQ", func() {
	var (
		lib     *library.Library
		states  []dynamo.State
		design  *mat.Dense
		targets *mat.Dense
	)

	BeforeEach(func() {
		lib = library.New(5)
		states = sampleCloud()
		design = lib.Design(states)
		targets = interactionTargets(states)
	})

	It("reduces to ordinary least squares at threshold zero", func() {
		fit := sparse.STLSQ(design, targets, 0, 0)

		var ols mat.Dense
		Expect(ols.Solve(design, targets)).To(Succeed())

		m, outDim := fit.Coef.Dims()
		for i := 0; i < m; i++ {
			for k := 0; k < outDim; k++ {
				Expect(fit.Coef.At(i, k)).To(BeNumerically("~", ols.At(i, k), 1e-8))
			}
		}
	})

	It("sparsifies monotonically as the threshold grows", func() {
		prev := math.MaxInt
		for _, lambda := range sparse.Lambdas(1e-3, 1e5, 20) {
			fit := sparse.STLSQ(design, targets, lambda, 0)
			Expect(fit.Active).To(BeNumerically("<=", prev))
			prev = fit.Active
		}
	})

	It("returns the zero function when every term is thresholded away", func() {
		fit := sparse.STLSQ(design, targets, 1e9, 0)

		Expect(fit.Active).To(BeZero())

		var frob float64
		m, outDim := fit.Coef.Dims()
		for i := 0; i < m; i++ {
			for k := 0; k < outDim; k++ {
				frob += fit.Coef.At(i, k) * fit.Coef.At(i, k)
			}
		}
		Expect(frob).To(BeZero())

		// RSS of the zero model is the energy of the targets.
		var want float64
		n, _ := targets.Dims()
		for i := 0; i < n; i++ {
			want += targets.At(i, 0)*targets.At(i, 0) + targets.At(i, 1)*targets.At(i, 1)
		}
		Expect(fit.RSS).To(BeNumerically("~", want, 1e-9))
	})

	It("recovers the interaction term from the ideal target", func() {
		fit := sparse.STLSQ(design, targets, 0.1, 0)

		ix := lib.Index(1, 1)
		Expect(fit.Coef.At(ix, 0)).To(BeNumerically("~", -0.9, 1e-2))
		Expect(fit.Coef.At(ix, 1)).To(BeNumerically("~", 0.8, 1e-2))

		m, _ := fit.Coef.Dims()
		for j := 0; j < m; j++ {
			if j == ix {
				continue
			}
			Expect(fit.Coef.At(j, 0)).To(BeZero())
			Expect(fit.Coef.At(j, 1)).To(BeZero())
		}
	})

	It("survives a rank-deficient design via the minimum-norm fallback", func() {
		// Duplicate every column: the restricted least-squares system is
		// singular at any active set containing both copies.
		n, m := design.Dims()
		dup := mat.NewDense(n, 2*m, nil)
		for i := 0; i < n; i++ {
			for j := 0; j < m; j++ {
				dup.Set(i, j, design.At(i, j))
				dup.Set(i, m+j, design.At(i, j))
			}
		}

		fit := sparse.STLSQ(dup, targets, 0, 0)

		rows, cols := fit.Coef.Dims()
		for i := 0; i < rows; i++ {
			for k := 0; k < cols; k++ {
				Expect(math.IsNaN(fit.Coef.At(i, k))).To(BeFalse())
				Expect(math.IsInf(fit.Coef.At(i, k), 0)).To(BeFalse())
			}
		}
		Expect(fit.RSS).To(BeNumerically("<", 1e-6))
	})
})

var _ = Describe("Sweep", func() {
	var (
		design  *mat.Dense
		targets *mat.Dense
	)

	BeforeEach(func() {
		lib := library.New(5)
		states := sampleCloud()
		design = lib.Design(states)
		targets = interactionTargets(states)
	})

	It("spaces thresholds geometrically", func() {
		lambdas := sparse.Lambdas(1e-3, 1e5, 9)
		Expect(lambdas).To(HaveLen(9))
		Expect(lambdas[0]).To(BeNumerically("~", 1e-3, 1e-12))
		Expect(lambdas[8]).To(BeNumerically("~", 1e5, 1e-4))
		for i := 1; i < len(lambdas); i++ {
			Expect(lambdas[i] / lambdas[i-1]).To(BeNumerically("~", 10, 1e-9))
		}
	})

	It("keeps the lambda-to-result association under parallel execution", func() {
		lambdas := sparse.Lambdas(1e-3, 1e5, 16)

		parallel, err := sparse.Sweep(context.Background(), design, targets, lambdas, 8)
		Expect(err).NotTo(HaveOccurred())
		serial, err := sparse.Sweep(context.Background(), design, targets, lambdas, 1)
		Expect(err).NotTo(HaveOccurred())

		for i := range lambdas {
			Expect(parallel[i].Lambda).To(Equal(lambdas[i]))
			Expect(parallel[i].Active).To(Equal(serial[i].Active))
			Expect(parallel[i].RSS).To(BeNumerically("~", serial[i].RSS, 1e-9))
		}
	})

	It("stops on context cancellation", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := sparse.Sweep(ctx, design, targets, sparse.Lambdas(1e-3, 1e5, 40), 2)
		Expect(err).To(MatchError(context.Canceled))
	})
})

var _ = Describe("Select", func() {
	var (
		lib     *library.Library
		states  []dynamo.State
		design  *mat.Dense
		targets *mat.Dense
	)

	BeforeEach(func() {
		lib = library.New(5)
		states = sampleCloud()
		design = lib.Design(states)
		targets = interactionTargets(states)
	})

	It("chooses the sparse interaction model from a sweep", func() {
		fits, err := sparse.Sweep(context.Background(), design, targets, sparse.Lambdas(1e-3, 1e5, 40), 0)
		Expect(err).NotTo(HaveOccurred())

		best := sparse.Select(fits, len(states))
		Expect(best).NotTo(BeNil())
		Expect(best.Active).To(Equal(2))

		model := sparse.Build(lib, best)
		Expect(model.Terms[0]).To(HaveLen(1))
		Expect(model.Terms[1]).To(HaveLen(1))
		Expect(model.Terms[0][0].Name).To(Equal("x1*x2"))
		Expect(model.Terms[1][0].Name).To(Equal("x1*x2"))
		Expect(model.Terms[0][0].Coef).To(BeNumerically("~", -0.9, 1e-2))
		Expect(model.Terms[1][0].Coef).To(BeNumerically("~", 0.8, 1e-2))
	})

	It("reproduces the targets within the reported fit error", func() {
		fits, err := sparse.Sweep(context.Background(), design, targets, sparse.Lambdas(1e-3, 1e5, 40), 0)
		Expect(err).NotTo(HaveOccurred())
		best := sparse.Select(fits, len(states))

		var pred mat.Dense
		pred.Mul(design, best.Coef)

		var rss float64
		n, outDim := targets.Dims()
		for i := 0; i < n; i++ {
			for k := 0; k < outDim; k++ {
				d := targets.At(i, k) - pred.At(i, k)
				rss += d * d
			}
		}
		Expect(rss).To(BeNumerically("<=", best.RSS+1e-9))
	})

	It("prefers the sparser fit on equal score", func() {
		a := &sparse.Fit{Lambda: 1, Coef: mat.NewDense(1, 1, []float64{1}), RSS: 1, Active: 3}
		b := &sparse.Fit{Lambda: 2, Coef: mat.NewDense(1, 1, []float64{1}), RSS: 1, Active: 2}

		// Same RSS, fewer active terms scores strictly better under AIC,
		// so b must win regardless of order.
		Expect(sparse.Select([]*sparse.Fit{a, b}, 10)).To(Equal(b))
		Expect(sparse.Select([]*sparse.Fit{b, a}, 10)).To(Equal(b))
	})
})
