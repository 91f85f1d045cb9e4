package nn

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/baldhumanity/neatevo/neat"
)

func TestActivateDirectConnections(t *testing.T) {
	// Two inputs wired straight to one output.
	spec := &neat.PhenotypeSpec{
		NumInputs:   2,
		NumOutputs:  1,
		Sources:     []int{0, 1},
		Targets:     []int{2, 2},
		Weights:     []float64{1.5, -0.5},
		OutputRange: [2]float64{0, 1},
	}
	net, err := NewFeedForwardNetwork(spec)
	require.NoError(t, err)

	out, err := net.Activate([]float64{1.0, 2.0})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.InDelta(t, sigmoid(1.0*1.5+2.0*-0.5), out[0], 1e-12)
}

func TestActivateHiddenLayer(t *testing.T) {
	// input 0 -> hidden 1 -> output 2.
	spec := &neat.PhenotypeSpec{
		NumInputs:   1,
		NumHidden:   1,
		NumOutputs:  1,
		Sources:     []int{0, 1},
		Targets:     []int{1, 2},
		Weights:     []float64{2.0, -1.0},
		OutputRange: [2]float64{0, 1},
	}
	net, err := NewFeedForwardNetwork(spec)
	require.NoError(t, err)

	out, err := net.Activate([]float64{0.5})
	require.NoError(t, err)
	require.InDelta(t, sigmoid(-1.0*sigmoid(0.5*2.0)), out[0], 1e-12)
}

func TestActivateScalesOutputRange(t *testing.T) {
	spec := &neat.PhenotypeSpec{
		NumInputs:   1,
		NumOutputs:  1,
		Sources:     []int{0},
		Targets:     []int{1},
		Weights:     []float64{1.0},
		OutputRange: [2]float64{-10, 10},
	}
	net, err := NewFeedForwardNetwork(spec)
	require.NoError(t, err)

	out, err := net.Activate([]float64{0.0})
	require.NoError(t, err)
	require.InDelta(t, 0.0, out[0], 1e-12, "sigmoid(0)=0.5 maps to the middle of the range")

	out, err = net.Activate([]float64{100.0})
	require.NoError(t, err)
	require.InDelta(t, 10.0, out[0], 1e-6, "saturated output maps to the range maximum")
}

func TestOutputWithoutIncomingConnections(t *testing.T) {
	spec := &neat.PhenotypeSpec{
		NumInputs:   1,
		NumOutputs:  2,
		Sources:     []int{0},
		Targets:     []int{1},
		Weights:     []float64{1.0},
		OutputRange: [2]float64{0, 1},
	}
	net, err := NewFeedForwardNetwork(spec)
	require.NoError(t, err)

	out, err := net.Activate([]float64{3.0})
	require.NoError(t, err)
	require.InDelta(t, 0.5, out[1], 1e-12, "a disconnected output reads sigmoid(0)")
}

func TestCycleIsRejected(t *testing.T) {
	spec := &neat.PhenotypeSpec{
		NumInputs:   1,
		NumHidden:   2,
		NumOutputs:  1,
		Sources:     []int{0, 1, 2, 2},
		Targets:     []int{1, 2, 1, 3},
		Weights:     []float64{1, 1, 1, 1},
		OutputRange: [2]float64{0, 1},
	}
	_, err := NewFeedForwardNetwork(spec)
	require.Error(t, err)
}

func TestMalformedSpecs(t *testing.T) {
	_, err := NewFeedForwardNetwork(&neat.PhenotypeSpec{
		NumInputs: 1, NumOutputs: 1,
		Sources: []int{0}, Targets: []int{1, 1}, Weights: []float64{1},
	})
	require.Error(t, err, "ragged connection arrays")

	_, err = NewFeedForwardNetwork(&neat.PhenotypeSpec{
		NumInputs: 1, NumOutputs: 1,
		Sources: []int{0}, Targets: []int{5}, Weights: []float64{1},
	})
	require.Error(t, err, "target outside the phenotype")

	_, err = NewFeedForwardNetwork(&neat.PhenotypeSpec{
		NumInputs: 1, NumOutputs: 1,
		Sources: []int{1}, Targets: []int{1}, Weights: []float64{1},
	})
	require.Error(t, err, "self loop")
}

func TestActivateInputCountMismatch(t *testing.T) {
	spec := &neat.PhenotypeSpec{
		NumInputs:   2,
		NumOutputs:  1,
		OutputRange: [2]float64{0, 1},
	}
	net, err := NewFeedForwardNetwork(spec)
	require.NoError(t, err)

	_, err = net.Activate([]float64{1.0})
	require.Error(t, err)
}

func TestDecodedGenomeExecutes(t *testing.T) {
	cfg := neat.DefaultConfig()
	g := neat.NewGenome(0, &cfg.Genome)
	g.Conns[neat.ConnKey{In: 0, Out: 2}] = &neat.ConnectionGene{Innovation: 1, In: 0, Out: 2, Weight: 1.0, Enabled: true}
	g.Conns[neat.ConnKey{In: 1, Out: 2}] = &neat.ConnectionGene{Innovation: 2, In: 1, Out: 2, Weight: 1.0, Enabled: true}

	net, err := NewFeedForwardNetwork(g.Decode())
	require.NoError(t, err)
	out, err := net.Activate([]float64{1.0, 1.0})
	require.NoError(t, err)
	require.InDelta(t, sigmoid(2.0), out[0], 1e-12)
}

func TestSigmoid(t *testing.T) {
	require.InDelta(t, 0.5, sigmoid(0), 1e-12)
	require.InDelta(t, 1.0, sigmoid(100), 1e-9)
	require.InDelta(t, 0.0, sigmoid(-100), 1e-9)
	require.Greater(t, sigmoid(1), sigmoid(-1))
	require.False(t, math.IsNaN(sigmoid(700)))
}
