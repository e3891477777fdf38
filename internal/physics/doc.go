// Package physics provides the dynamical models of the discovery pipeline.
//
// Each model implements the [dynamo.System] interface, defining the
// differential equations governing the system's evolution:
//
//   - [LotkaVolterra]: the two-species reference model producing ground truth
//   - [UDE]: hybrid training dynamics, known linear terms plus the residual network
//   - [Recovered]: known linear terms plus a fitted sparse symbolic model
//
// LotkaVolterra and UDE share state dimension 2 by construction; the
// sensitivity engine and sparse regressor rely on that correspondence.
package physics
