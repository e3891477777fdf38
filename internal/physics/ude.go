package physics

import (
	"github.com/san-kum/dynid/internal/dynamo"
	"github.com/san-kum/dynid/internal/network"
)

// UDE is the hybrid training dynamics: one known linear term per dimension
// plus the trainable residual network. The params passed to Derive are the
// network weights theta.
//
//	dx1/dt = alpha*x1 + U1(x; theta)
//	dx2/dt = -delta*x2 + U2(x; theta)
type UDE struct {
	Alpha float64
	Delta float64
	Net   *network.MLP
}

// NewUDE wires the known growth and decay rates (alpha and delta from the
// reference parameter vector) around the residual network.
func NewUDE(known dynamo.Params, net *network.MLP) *UDE {
	return &UDE{Alpha: known[0], Delta: known[3], Net: net}
}

func (u *UDE) Dim() int { return 2 }

func (u *UDE) Derive(x dynamo.State, theta dynamo.Params, _ float64) dynamo.State {
	r := u.Net.Forward(x, theta)
	return dynamo.State{
		u.Alpha*x[0] + r[0],
		-u.Delta*x[1] + r[1],
	}
}

// Residual exposes the network output alone, used when assembling
// regression targets from a trained model.
func (u *UDE) Residual(x dynamo.State, theta dynamo.Params) dynamo.State {
	return u.Net.Forward(x, theta)
}
