// Package network implements the multi-layered perceptrons used as
// dynamics models and policies.
package network

import (
	G "gorgonia.org/gorgonia"
)

// NeuralNet is a feed forward neural network which lives in a Gorgonia
// computational graph
type NeuralNet interface {
	Graph() *G.ExprGraph

	// CloneWithBatch clones the network, including its current
	// weights, into a new graph with a new input batch size
	CloneWithBatch(int) (NeuralNet, error)

	BatchSize() int
	Features() int
	Outputs() int

	// SetInput sets the value of the input node to a flattened
	// row-major batch of inputs
	SetInput([]float64) error

	// Set sets the weights of the network to those of another network
	// with the same architecture
	Set(NeuralNet) error

	Learnables() G.Nodes
	Model() []G.ValueGrad

	// Output returns the value of the network's prediction after the
	// graph has been run
	Output() G.Value
	Prediction() *G.Node
}
