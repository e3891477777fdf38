package physics

import (
	"github.com/san-kum/dynid/internal/dynamo"
	"github.com/san-kum/dynid/internal/library"
	"gonum.org/v1/gonum/mat"
)

// Recovered is the discovered dynamics: the same known linear terms as the
// hybrid model, with the fitted sparse symbolic model in place of the
// network. Coef has one row per library term and one column per state
// dimension. Used for long-horizon extrapolation and validation.
type Recovered struct {
	Alpha float64
	Delta float64
	Lib   *library.Library
	Coef  *mat.Dense
}

func NewRecovered(known dynamo.Params, lib *library.Library, coef *mat.Dense) *Recovered {
	return &Recovered{Alpha: known[0], Delta: known[3], Lib: lib, Coef: coef}
}

func (r *Recovered) Dim() int { return 2 }

func (r *Recovered) Derive(x dynamo.State, _ dynamo.Params, _ float64) dynamo.State {
	row := make([]float64, r.Lib.Len())
	r.Lib.Eval(x, row)

	u := [2]float64{}
	for j, v := range row {
		if v == 0 {
			continue
		}
		u[0] += r.Coef.At(j, 0) * v
		u[1] += r.Coef.At(j, 1) * v
	}

	return dynamo.State{
		r.Alpha*x[0] + u[0],
		-r.Delta*x[1] + u[1],
	}
}
