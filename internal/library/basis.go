// Package library builds the fixed, ordered candidate basis used for sparse
// symbolic regression: all bivariate monomials up to a bounded total degree
// followed by sine terms of each coordinate. The ordering is immutable once
// constructed; coefficient rows everywhere downstream are positional.
package library

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/dynid/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

type Kind int

const (
	Monomial Kind = iota
	Sine
)

// Term is a tagged basis entry: a monomial with an exponent pair, or a
// transcendental with an argument index.
type Term struct {
	Kind Kind
	Ex   [2]int // exponents for Monomial
	Arg  int    // coordinate index for Sine
}

func (t Term) Eval(x dynamo.State) float64 {
	switch t.Kind {
	case Sine:
		return math.Sin(x[t.Arg])
	default:
		return math.Pow(x[0], float64(t.Ex[0])) * math.Pow(x[1], float64(t.Ex[1]))
	}
}

func (t Term) Name() string {
	if t.Kind == Sine {
		return fmt.Sprintf("sin(x%d)", t.Arg+1)
	}
	if t.Ex[0] == 0 && t.Ex[1] == 0 {
		return "1"
	}
	var parts []string
	for i, e := range t.Ex {
		switch {
		case e == 1:
			parts = append(parts, fmt.Sprintf("x%d", i+1))
		case e > 1:
			parts = append(parts, fmt.Sprintf("x%d^%d", i+1, e))
		}
	}
	return strings.Join(parts, "*")
}

// Library is an ordered candidate basis. Order: monomials by ascending
// total degree, x1-dominant first within a degree (1, x1, x2, x1^2, x1*x2,
// x2^2, ...), then sin(x1), sin(x2).
type Library struct {
	terms []Term
}

// New enumerates the basis for the given maximum total degree.
func New(degree int) *Library {
	var terms []Term
	for d := 0; d <= degree; d++ {
		for e1 := d; e1 >= 0; e1-- {
			terms = append(terms, Term{Kind: Monomial, Ex: [2]int{e1, d - e1}})
		}
	}
	for arg := 0; arg < 2; arg++ {
		terms = append(terms, Term{Kind: Sine, Arg: arg})
	}
	return &Library{terms: terms}
}

func (l *Library) Len() int { return len(l.terms) }

func (l *Library) Term(i int) Term { return l.terms[i] }

func (l *Library) Names() []string {
	names := make([]string, len(l.terms))
	for i, t := range l.terms {
		names[i] = t.Name()
	}
	return names
}

// Eval fills row with the basis evaluated at x. len(row) must equal Len.
func (l *Library) Eval(x dynamo.State, row []float64) {
	for i, t := range l.terms {
		row[i] = t.Eval(x)
	}
}

// Design builds the regression design matrix: one row per state sample, one
// column per basis term, in library order.
func (l *Library) Design(states []dynamo.State) *mat.Dense {
	d := mat.NewDense(len(states), l.Len(), nil)
	row := make([]float64, l.Len())
	for i, x := range states {
		l.Eval(x, row)
		d.SetRow(i, row)
	}
	return d
}

// Index returns the position of the monomial with the given exponents, or
// -1 if outside the library degree.
func (l *Library) Index(e1, e2 int) int {
	for i, t := range l.terms {
		if t.Kind == Monomial && t.Ex[0] == e1 && t.Ex[1] == e2 {
			return i
		}
	}
	return -1
}
