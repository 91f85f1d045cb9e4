package neat

import (
	"fmt"
	"math/rand"
)

// NodeType classifies the role of a node gene within a genome.
type NodeType int

const (
	InputNode NodeType = iota
	HiddenNode
	OutputNode
)

// String returns the serialization label for the node type.
func (nt NodeType) String() string {
	switch nt {
	case InputNode:
		return "INPUT"
	case HiddenNode:
		return "HIDDEN"
	case OutputNode:
		return "OUTPUT"
	default:
		return fmt.Sprintf("NodeType(%d)", int(nt))
	}
}

// ParseNodeType converts a serialization label back into a NodeType.
func ParseNodeType(s string) (NodeType, error) {
	switch s {
	case "INPUT":
		return InputNode, nil
	case "HIDDEN":
		return HiddenNode, nil
	case "OUTPUT":
		return OutputNode, nil
	default:
		return 0, fmt.Errorf("unknown node type %q", s)
	}
}

// --------------------------- NodeGene ---------------------------

// NodeGene represents a node (neuron) in the network genome.
// Node genes carry no evolvable payload beyond their identity and role.
type NodeGene struct {
	ID   int
	Type NodeType
}

// NewNodeGene creates a new NodeGene.
func NewNodeGene(id int, nodeType NodeType) NodeGene {
	return NodeGene{ID: id, Type: nodeType}
}

// String returns a string representation of the NodeGene.
func (ng NodeGene) String() string {
	return fmt.Sprintf("Node %d %s", ng.ID, ng.Type)
}

// Copy returns an owned copy of the NodeGene.
func (ng NodeGene) Copy() NodeGene {
	return NodeGene{ID: ng.ID, Type: ng.Type}
}

// --------------------------- ConnectionGene ---------------------------

// ConnKey uniquely identifies a connection gene within one genome by its
// (source, target) node pair. It is also the lookup key the innovation
// ledger uses to detect identical structural mutations within a generation.
type ConnKey struct {
	In  int
	Out int
}

// ConnectionGene represents a weighted, directed connection between two
// nodes. The Innovation id is globally comparable across genomes and marks
// when the connection's structure first appeared in the population.
type ConnectionGene struct {
	Innovation int
	In         int
	Out        int
	Weight     float64
	Enabled    bool
}

// NewConnectionGene creates a connection gene, obtaining its innovation id
// from the ledger (reused if the same structural mutation already occurred
// this generation).
func NewConnectionGene(in, out int, weight float64, enabled bool, ledger *InnovationLedger) *ConnectionGene {
	return &ConnectionGene{
		Innovation: ledger.Assign(ConnKey{In: in, Out: out}),
		In:         in,
		Out:        out,
		Weight:     weight,
		Enabled:    enabled,
	}
}

// Key returns the (source, target) lookup key for this gene.
func (cg *ConnectionGene) Key() ConnKey {
	return ConnKey{In: cg.In, Out: cg.Out}
}

// String returns a string representation of the ConnectionGene.
func (cg *ConnectionGene) String() string {
	return fmt.Sprintf("Link %d %d %d %v %t", cg.Innovation, cg.In, cg.Out, cg.Weight, cg.Enabled)
}

// Copy returns an owned copy of the ConnectionGene, preserving its
// innovation id.
func (cg *ConnectionGene) Copy() *ConnectionGene {
	c := *cg
	return &c
}

// MutateWeight perturbs or replaces the connection weight. With probability
// WeightReplaceRate the weight is replaced by a uniform draw over the
// configured range; otherwise it is perturbed by a gaussian step of
// WeightMutatePower and clamped back into range.
func (cg *ConnectionGene) MutateWeight(rng *rand.Rand, cfg *GenomeConfig) {
	if rng.Float64() < cfg.WeightReplaceRate {
		cg.Weight = cfg.WeightMinValue + rng.Float64()*(cfg.WeightMaxValue-cfg.WeightMinValue)
		return
	}
	cg.Weight = clamp(cg.Weight+rng.NormFloat64()*cfg.WeightMutatePower, cfg.WeightMinValue, cfg.WeightMaxValue)
}

// Split disables this connection and returns the two connections that
// replace it through the new node: (source -> node) with weight fixed at
// 1.0 and (node -> target) inheriting the original weight.
func (cg *ConnectionGene) Split(nodeID int, ledger *InnovationLedger) (*ConnectionGene, *ConnectionGene) {
	cg.Enabled = false
	inConn := NewConnectionGene(cg.In, nodeID, 1.0, true, ledger)
	outConn := NewConnectionGene(nodeID, cg.Out, cg.Weight, true, ledger)
	return inConn, outConn
}
