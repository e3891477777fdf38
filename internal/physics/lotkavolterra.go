package physics

import "github.com/san-kum/dynid/internal/dynamo"

// LotkaVolterra is the two-species predator-prey reference model:
//
//	dx1/dt = alpha*x1 - beta*x1*x2
//	dx2/dt = gamma*x1*x2 - delta*x2
type LotkaVolterra struct {
	alpha, beta, gamma, delta float64
}

// NewLotkaVolterra builds the model from the known parameter vector
// [alpha, beta, gamma, delta].
func NewLotkaVolterra(p dynamo.Params) *LotkaVolterra {
	return &LotkaVolterra{alpha: p[0], beta: p[1], gamma: p[2], delta: p[3]}
}

func (l *LotkaVolterra) Dim() int { return 2 }

// Derive calculates the predator-prey derivatives. The params argument is
// ignored; constants are fixed at construction.
func (l *LotkaVolterra) Derive(x dynamo.State, _ dynamo.Params, _ float64) dynamo.State {
	return dynamo.State{
		l.alpha*x[0] - l.beta*x[0]*x[1],
		l.gamma*x[0]*x[1] - l.delta*x[1],
	}
}

func (l *LotkaVolterra) DefaultState() dynamo.State {
	return dynamo.State{0.44249296, 4.6280594}
}

// MissingTerms returns the interaction terms the hybrid dynamics must
// learn: [-beta*x1*x2, gamma*x1*x2]. Used as the noiseless regression
// target in ideal-recovery runs.
func (l *LotkaVolterra) MissingTerms(x dynamo.State) dynamo.State {
	return dynamo.State{
		-l.beta * x[0] * x[1],
		l.gamma * x[0] * x[1],
	}
}

func (l *LotkaVolterra) GetParams() map[string]float64 {
	return map[string]float64{"alpha": l.alpha, "beta": l.beta, "gamma": l.gamma, "delta": l.delta}
}

func (l *LotkaVolterra) SetParam(n string, v float64) {
	switch n {
	case "alpha":
		l.alpha = v
	case "beta":
		l.beta = v
	case "gamma":
		l.gamma = v
	case "delta":
		l.delta = v
	}
}
