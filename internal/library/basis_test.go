package library

import (
	"math"
	"testing"

	"github.com/san-kum/dynid/internal/dynamo"
)

func TestLibrarySize(t *testing.T) {
	// Degree 5 over two variables: 21 monomials, plus two sine terms.
	l := New(5)
	if l.Len() != 23 {
		t.Errorf("expected 23 terms, got %d", l.Len())
	}
}

func TestLibraryOrder(t *testing.T) {
	l := New(5)
	want := []string{"1", "x1", "x2", "x1^2", "x1*x2", "x2^2", "x1^3"}
	names := l.Names()
	for i, w := range want {
		if names[i] != w {
			t.Errorf("term %d: expected %q, got %q", i, w, names[i])
		}
	}
	if names[len(names)-2] != "sin(x1)" || names[len(names)-1] != "sin(x2)" {
		t.Errorf("expected sine terms last, got %q, %q", names[len(names)-2], names[len(names)-1])
	}
}

func TestLibraryEval(t *testing.T) {
	l := New(2)
	x := dynamo.State{2, 3}
	row := make([]float64, l.Len())
	l.Eval(x, row)

	// 1, x1, x2, x1^2, x1*x2, x2^2, sin(x1), sin(x2)
	want := []float64{1, 2, 3, 4, 6, 9, math.Sin(2), math.Sin(3)}
	for i, w := range want {
		if math.Abs(row[i]-w) > 1e-12 {
			t.Errorf("term %d (%s): expected %f, got %f", i, l.Term(i).Name(), w, row[i])
		}
	}
}

func TestLibraryIndex(t *testing.T) {
	l := New(5)
	i := l.Index(1, 1)
	if i != 4 {
		t.Errorf("expected x1*x2 at index 4, got %d", i)
	}
	if l.Index(6, 0) != -1 {
		t.Error("expected -1 for exponents beyond library degree")
	}
}

func TestDesignDims(t *testing.T) {
	l := New(5)
	states := []dynamo.State{{1, 1}, {2, 0.5}, {0.1, 4}}
	d := l.Design(states)
	r, c := d.Dims()
	if r != 3 || c != 23 {
		t.Errorf("expected 3x23 design matrix, got %dx%d", r, c)
	}
}
