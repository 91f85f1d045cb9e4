// Package nn provides a reference executor for decoded phenotypes. It is
// intentionally engine-independent: any consumer of a PhenotypeSpec can
// build its own substrate, this one computes activations directly.
package nn

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/baldhumanity/neatevo/neat"
)

// weightedEdge is one incoming connection of a node during activation.
type weightedEdge struct {
	Source int
	Weight float64
}

// FeedForwardNetwork is a runnable network built from a phenotype
// description. Nodes are evaluated in topological order, so construction
// fails on phenotypes containing cycles.
type FeedForwardNetwork struct {
	numInputs   int
	numOutputs  int
	numNodes    int
	outputRange [2]float64

	// evalOrder lists non-input node ids in dependency order.
	evalOrder []int
	incoming  map[int][]weightedEdge
}

// NewFeedForwardNetwork builds a runnable network from a phenotype.
func NewFeedForwardNetwork(spec *neat.PhenotypeSpec) (*FeedForwardNetwork, error) {
	if len(spec.Sources) != len(spec.Targets) || len(spec.Sources) != len(spec.Weights) {
		return nil, fmt.Errorf("malformed phenotype: %d sources, %d targets, %d weights",
			len(spec.Sources), len(spec.Targets), len(spec.Weights))
	}
	numNodes := spec.NumInputs + spec.NumHidden + spec.NumOutputs

	g := simple.NewDirectedGraph()
	for id := 0; id < numNodes; id++ {
		g.AddNode(simple.Node(id))
	}
	incoming := make(map[int][]weightedEdge)
	for i, src := range spec.Sources {
		dst := spec.Targets[i]
		if src < 0 || src >= numNodes || dst < 0 || dst >= numNodes {
			return nil, fmt.Errorf("connection %d->%d references a node outside the phenotype", src, dst)
		}
		if src == dst {
			return nil, fmt.Errorf("connection %d->%d is a self loop, not executable feed-forward", src, dst)
		}
		g.SetEdge(g.NewEdge(simple.Node(src), simple.Node(dst)))
		incoming[dst] = append(incoming[dst], weightedEdge{Source: src, Weight: spec.Weights[i]})
	}

	sorted, err := topo.Sort(g)
	if err != nil {
		return nil, fmt.Errorf("phenotype is not feed-forward: %w", err)
	}

	evalOrder := make([]int, 0, spec.NumHidden+spec.NumOutputs)
	for _, n := range sorted {
		id := int(n.ID())
		if id >= spec.NumInputs {
			evalOrder = append(evalOrder, id)
		}
	}

	return &FeedForwardNetwork{
		numInputs:   spec.NumInputs,
		numOutputs:  spec.NumOutputs,
		numNodes:    numNodes,
		outputRange: spec.OutputRange,
		evalOrder:   evalOrder,
		incoming:    incoming,
	}, nil
}

// Activate computes the network's outputs for one input vector. Outputs are
// scaled into the phenotype's output range.
func (net *FeedForwardNetwork) Activate(inputs []float64) ([]float64, error) {
	if len(inputs) != net.numInputs {
		return nil, fmt.Errorf("got %d inputs, network has %d input nodes", len(inputs), net.numInputs)
	}

	values := make([]float64, net.numNodes)
	copy(values, inputs)

	for _, id := range net.evalOrder {
		sum := 0.0
		for _, e := range net.incoming[id] {
			sum += values[e.Source] * e.Weight
		}
		values[id] = sigmoid(sum)
	}

	lo, hi := net.outputRange[0], net.outputRange[1]
	outputs := make([]float64, net.numOutputs)
	firstOutput := net.numNodes - net.numOutputs
	for i := range outputs {
		outputs[i] = lo + values[firstOutput+i]*(hi-lo)
	}
	return outputs, nil
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}
