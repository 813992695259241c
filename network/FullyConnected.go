package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// fcLayer implements a fully connected layer of a feed forward neural
// network
type fcLayer struct {
	weights *G.Node
	bias    *G.Node
	act     *Activation
}

// newFCLayers adds fully connected layers of the given sizes to the
// graph g. Layer i has sizes[i] units and activation activations[i],
// and has a bias unit if biases[i] is true.
func newFCLayers(g *G.ExprGraph, features int, sizes []int, biases []bool,
	activations []*Activation, init G.InitWFn) []*fcLayer {
	layers := make([]*fcLayer, len(sizes))

	in := features
	for i, out := range sizes {
		weights := G.NewMatrix(
			g,
			tensor.Float64,
			G.WithShape(in, out),
			G.WithName(fmt.Sprintf("L%dW", i)),
			G.WithInit(init),
		)

		var bias *G.Node
		if biases[i] {
			bias = G.NewMatrix(
				g,
				tensor.Float64,
				G.WithShape(1, out),
				G.WithName(fmt.Sprintf("L%db", i)),
				G.WithInit(G.Zeroes()),
			)
		}

		layers[i] = &fcLayer{weights: weights, bias: bias, act: activations[i]}
		in = out
	}
	return layers
}

// fwd adds the forward pass of the fcLayer to the computational graph
func (f *fcLayer) fwd(x *G.Node) (*G.Node, error) {
	x, err := G.Mul(x, f.weights)
	if err != nil {
		return nil, fmt.Errorf("fwd: could not multiply weights: %v", err)
	}

	if f.bias != nil {
		// Broadcast the bias weights to all samples along the batch
		// dimension
		x, err = G.BroadcastAdd(x, f.bias, nil, []byte{0})
		if err != nil {
			return nil, fmt.Errorf("fwd: could not add bias: %v", err)
		}
	}

	if f.act == nil || f.act.IsIdentity() {
		return x, nil
	}
	return f.act.fwd(x)
}

// cloneTo clones an fcLayer, including its weights, to a new
// computational graph
func (f *fcLayer) cloneTo(g *G.ExprGraph) *fcLayer {
	var bias *G.Node
	if f.bias != nil {
		bias = f.bias.CloneTo(g)
	}

	return &fcLayer{
		weights: f.weights.CloneTo(g),
		bias:    bias,
		act:     f.act,
	}
}
