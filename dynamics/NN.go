package dynamics

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/samuelfneumann/mpcrl/expreplay"
	"github.com/samuelfneumann/mpcrl/network"
	"github.com/samuelfneumann/mpcrl/normalize"
)

// predictor is a copy of the model's network with a fixed batch size
// used for prediction
type predictor struct {
	net network.NeuralNet
	vm  G.VM
}

// NN implements a neural network dynamics model. The network takes
// normalized (state, action) pairs and predicts the normalized state
// delta, plus the normalized reward if the model predicts rewards.
// Predictions are denormalized and the delta is added to the input
// state, so callers only ever see raw values.
//
// The network is trained with the mean squared error using the
// configured solver. Prediction networks are created lazily for each
// batch size that Predict is called with and are synchronized with the
// trained weights after each call to Fit.
type NN struct {
	stats         normalize.Stats
	featureSize   int
	actionSize    int
	outputs       int
	predictReward bool

	// base is never bound to a training machine, so that it can be
	// cloned into prediction networks of any batch size
	base network.NeuralNet

	trainNet   network.NeuralNet
	trainVM    G.VM
	targets    *G.Node
	lossVal    G.Value
	solver     G.Solver
	batchSize  int
	iterations int

	predictors map[int]*predictor
}

// New returns a new neural network dynamics model for states of length
// featureSize and actions of length actionSize, which normalizes its
// inputs and outputs with stats
func New(stats normalize.Stats, featureSize, actionSize int,
	c Config) (*NN, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}
	if err := checkStats(stats, featureSize, actionSize); err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}

	outputs := featureSize
	if c.PredictReward {
		outputs++
	}

	base, err := network.NewMLP(featureSize+actionSize, 1, outputs,
		G.NewGraph(), c.Layers, c.Biases, c.InitWFn.InitWFn(), c.Activations)
	if err != nil {
		return nil, fmt.Errorf("new: could not create network: %v", err)
	}

	batchSize := c.BatchSize()
	trainNet, err := base.CloneWithBatch(batchSize)
	if err != nil {
		return nil, fmt.Errorf("new: could not create training network: %v",
			err)
	}

	// Mean squared error between the predicted and target normalized
	// deltas and rewards
	g := trainNet.Graph()
	targets := G.NewMatrix(
		g,
		tensor.Float64,
		G.WithShape(batchSize, outputs),
		G.WithName("targets"),
		G.WithInit(G.Zeroes()),
	)
	losses := G.Must(G.Sub(trainNet.Prediction(), targets))
	losses = G.Must(G.Square(losses))
	loss := G.Must(G.Mean(losses))

	model := &NN{
		stats:         stats,
		featureSize:   featureSize,
		actionSize:    actionSize,
		outputs:       outputs,
		predictReward: c.PredictReward,
		base:          base,
		trainNet:      trainNet,
		targets:       targets,
		solver:        c.Solver.Solver,
		batchSize:     batchSize,
		iterations:    c.Iterations,
		predictors:    make(map[int]*predictor),
	}
	G.Read(loss, &model.lossVal)

	if _, err := G.Grad(loss, trainNet.Learnables()...); err != nil {
		return nil, fmt.Errorf("new: could not compute gradient: %v", err)
	}
	model.trainVM = G.NewTapeMachine(g,
		G.BindDualValues(trainNet.Learnables()...))

	return model, nil
}

// Stats returns the normalization statistics of the model
func (n *NN) Stats() normalize.Stats {
	return n.stats
}

// FeatureSize returns the length of the states the model accepts
func (n *NN) FeatureSize() int {
	return n.featureSize
}

// ActionSize returns the length of the actions the model accepts
func (n *NN) ActionSize() int {
	return n.actionSize
}

// Loss returns the training loss of the last gradient step, or 0 if the
// model has not been fit
func (n *NN) Loss() float64 {
	if n.lossVal == nil {
		return 0
	}
	return n.lossVal.Data().(float64)
}

// Fit takes the configured number of gradient steps on batches sampled
// from the buffer
func (n *NN) Fit(buffer expreplay.Sampler) error {
	if buffer.FeatureSize() != n.featureSize ||
		buffer.ActionSize() != n.actionSize {
		return fmt.Errorf("fit: buffer stores states and actions of size "+
			"(%v, %v)\n\twant(%v, %v)", buffer.FeatureSize(),
			buffer.ActionSize(), n.featureSize, n.actionSize)
	}
	if n.predictReward && !buffer.WithReward() {
		return fmt.Errorf("fit: reward model requires a buffer with rewards")
	}
	if buffer.Size() < n.batchSize {
		return fmt.Errorf("fit: buffer holds %v transitions, need at "+
			"least batch size %v", buffer.Size(), n.batchSize)
	}

	for i := 0; i < n.iterations; i++ {
		batch, err := buffer.Sample(n.batchSize)
		if err != nil {
			return fmt.Errorf("fit: could not sample buffer: %v", err)
		}
		if batch.Len() != n.batchSize {
			return fmt.Errorf("fit: sampled batch of size %v\n\twant(%v)",
				batch.Len(), n.batchSize)
		}

		if err := n.step(batch); err != nil {
			return fmt.Errorf("fit: step %v: %v", i, err)
		}
	}

	for size, p := range n.predictors {
		if err := p.net.Set(n.trainNet); err != nil {
			return fmt.Errorf("fit: could not synchronize predictor with "+
				"batch size %v: %v", size, err)
		}
	}
	return nil
}

// step takes a single gradient step on the batch
func (n *NN) step(batch expreplay.Batch) error {
	if err := n.trainNet.SetInput(n.inputs(batch.States,
		batch.Actions)); err != nil {
		return err
	}

	deltas := normalize.Normalize(batch.Deltas, n.stats.DeltaMean,
		n.stats.DeltaStd)
	targets := make([]float64, 0, n.batchSize*n.outputs)
	for i := 0; i < n.batchSize; i++ {
		targets = append(targets, deltas.RawRowView(i)...)
		if n.predictReward {
			r := (batch.Rewards[i] - n.stats.RewardMean) /
				(n.stats.RewardStd + normalize.Epsilon)
			targets = append(targets, r)
		}
	}
	targetTensor := tensor.New(
		tensor.WithBacking(targets),
		tensor.WithShape(n.batchSize, n.outputs),
	)
	if err := G.Let(n.targets, targetTensor); err != nil {
		return err
	}

	defer n.trainVM.Reset()
	if err := n.trainVM.RunAll(); err != nil {
		return err
	}
	return n.solver.Step(n.trainNet.Model())
}

// Predict predicts the next states reached by taking actions in states
func (n *NN) Predict(states, actions *mat.Dense) (*mat.Dense, error) {
	next, _, err := n.predict(states, actions)
	if err != nil {
		return nil, fmt.Errorf("predict: %v", err)
	}
	return next, nil
}

// PredictReward predicts the next states and rewards of taking actions
// in states
func (n *NN) PredictReward(states, actions *mat.Dense) (*mat.Dense,
	[]float64, error) {
	if !n.predictReward {
		return nil, nil, fmt.Errorf("predictReward: model does not predict " +
			"rewards")
	}

	next, rewards, err := n.predict(states, actions)
	if err != nil {
		return nil, nil, fmt.Errorf("predictReward: %v", err)
	}
	return next, rewards, nil
}

func (n *NN) predict(states, actions *mat.Dense) (*mat.Dense, []float64,
	error) {
	rows, features := states.Dims()
	actionRows, actionCols := actions.Dims()
	if features != n.featureSize || actionCols != n.actionSize {
		return nil, nil, fmt.Errorf("invalid input columns\n\twant(%v, %v)"+
			"\n\thave(%v, %v)", n.featureSize, n.actionSize, features,
			actionCols)
	}
	if rows != actionRows {
		return nil, nil, fmt.Errorf("got %v states but %v actions", rows,
			actionRows)
	}

	p, err := n.predictor(rows)
	if err != nil {
		return nil, nil, err
	}
	if err := p.net.SetInput(n.inputs(states, actions)); err != nil {
		return nil, nil, err
	}

	defer p.vm.Reset()
	if err := p.vm.RunAll(); err != nil {
		return nil, nil, fmt.Errorf("could not run network: %v", err)
	}
	out := p.net.Output().Data().([]float64)

	deltas := mat.NewDense(rows, n.featureSize, nil)
	var rewards []float64
	if n.predictReward {
		rewards = make([]float64, rows)
	}
	for i := 0; i < rows; i++ {
		row := out[i*n.outputs : (i+1)*n.outputs]
		deltas.SetRow(i, row[:n.featureSize])
		if n.predictReward {
			rewards[i] = row[n.featureSize]*n.stats.RewardStd +
				n.stats.RewardMean
		}
	}

	next := normalize.Denormalize(deltas, n.stats.DeltaMean,
		n.stats.DeltaStd)
	next.Add(next, states)

	return next, rewards, nil
}

// predictor returns the prediction network for the batch size, creating
// it if needed
func (n *NN) predictor(batch int) (*predictor, error) {
	if p, ok := n.predictors[batch]; ok {
		return p, nil
	}

	net, err := n.base.CloneWithBatch(batch)
	if err != nil {
		return nil, fmt.Errorf("could not create predictor: %v", err)
	}
	if err := net.Set(n.trainNet); err != nil {
		return nil, fmt.Errorf("could not set predictor weights: %v", err)
	}

	p := &predictor{net: net, vm: G.NewTapeMachine(net.Graph())}
	n.predictors[batch] = p
	return p, nil
}

// inputs returns the flattened row-major batch of normalized states
// concatenated with normalized actions
func (n *NN) inputs(states, actions *mat.Dense) []float64 {
	s := normalize.Normalize(states, n.stats.ObservationMean,
		n.stats.ObservationStd)
	a := normalize.Normalize(actions, n.stats.ActionMean, n.stats.ActionStd)

	rows, _ := states.Dims()
	in := make([]float64, 0, rows*(n.featureSize+n.actionSize))
	for i := 0; i < rows; i++ {
		in = append(in, s.RawRowView(i)...)
		in = append(in, a.RawRowView(i)...)
	}
	return in
}

func checkStats(s normalize.Stats, featureSize, actionSize int) error {
	vecs := []struct {
		v    *mat.VecDense
		size int
	}{
		{s.ObservationMean, featureSize},
		{s.ObservationStd, featureSize},
		{s.ActionMean, actionSize},
		{s.ActionStd, actionSize},
		{s.DeltaMean, featureSize},
		{s.DeltaStd, featureSize},
	}
	for _, vec := range vecs {
		if vec.v == nil || vec.v.Len() != vec.size {
			return fmt.Errorf("normalization statistics do not match " +
				"state and action sizes")
		}
	}
	return nil
}
