package neat

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// Genome represents an individual organism: an ordered sequence of node
// genes (inputs first, then outputs, then hidden nodes appended as created)
// and a set of connection genes keyed by their (source, target) pair.
//
// A genome is created at population initialization or by crossover, mutated
// in place, and discarded wholesale when the next generation replaces the
// current one. Fitness is unset until the external evaluator assigns it;
// running an epoch over unevaluated genomes is a caller error.
type Genome struct {
	ID          int
	Nodes       []NodeGene
	Conns       map[ConnKey]*ConnectionGene
	Fitness     float64
	Evaluated   bool
	SpeciesID   int
	Parent1     int // parent genome ids; an originating genome records
	Parent2     int // its own id twice
	Config      *GenomeConfig
}

// NewGenome creates an unconnected genome with the configured input and
// output nodes and no hidden nodes.
func NewGenome(id int, config *GenomeConfig) *Genome {
	g := &Genome{
		ID:      id,
		Nodes:   make([]NodeGene, 0, config.NumInputs+config.NumOutputs),
		Conns:   make(map[ConnKey]*ConnectionGene),
		Parent1: id,
		Parent2: id,
		Config:  config,
	}
	nodeID := 0
	for i := 0; i < config.NumInputs; i++ {
		g.Nodes = append(g.Nodes, NewNodeGene(nodeID, InputNode))
		nodeID++
	}
	for i := 0; i < config.NumOutputs; i++ {
		g.Nodes = append(g.Nodes, NewNodeGene(nodeID, OutputNode))
		nodeID++
	}
	return g
}

// NewFullyConnectedGenome creates a genome with every input connected to
// every output. Weights are drawn from a gaussian with the configured
// stdev; innovation ids come from the ledger, so all genomes built this way
// within one generation share markings for the shared topology.
func NewFullyConnectedGenome(id int, config *GenomeConfig, rng *rand.Rand, ledger *InnovationLedger) *Genome {
	g := NewGenome(id, config)
	for _, out := range g.Nodes {
		if out.Type != OutputNode {
			continue
		}
		for _, in := range g.Nodes {
			if in.Type != InputNode {
				continue
			}
			w := clamp(rng.NormFloat64()*config.WeightInitStdev, config.WeightMinValue, config.WeightMaxValue)
			cg := NewConnectionGene(in.ID, out.ID, w, true, ledger)
			g.Conns[cg.Key()] = cg
		}
	}
	return g
}

// Copy returns a deep copy of the genome. Gene values are owned by the
// copy, never aliased.
func (g *Genome) Copy() *Genome {
	c := &Genome{
		ID:        g.ID,
		Nodes:     make([]NodeGene, len(g.Nodes)),
		Conns:     make(map[ConnKey]*ConnectionGene, len(g.Conns)),
		Fitness:   g.Fitness,
		Evaluated: g.Evaluated,
		SpeciesID: g.SpeciesID,
		Parent1:   g.Parent1,
		Parent2:   g.Parent2,
		Config:    g.Config,
	}
	copy(c.Nodes, g.Nodes)
	for key, cg := range g.Conns {
		c.Conns[key] = cg.Copy()
	}
	return c
}

// SetFitness assigns the genome's scalar fitness and marks it evaluated.
func (g *Genome) SetFitness(fitness float64) {
	g.Fitness = fitness
	g.Evaluated = true
}

// countNodes returns how many node genes have the given role.
func (g *Genome) countNodes(t NodeType) int {
	n := 0
	for _, ng := range g.Nodes {
		if ng.Type == t {
			n++
		}
	}
	return n
}

// sortedConnKeys returns the genome's connection keys in (source, target)
// order. Map iteration order is not deterministic; every operation that
// consumes randomness per connection iterates in this order so that a
// seeded run reproduces the same generation sequence.
func (g *Genome) sortedConnKeys() []ConnKey {
	keys := make([]ConnKey, 0, len(g.Conns))
	for key := range g.Conns {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].In != keys[j].In {
			return keys[i].In < keys[j].In
		}
		return keys[i].Out < keys[j].Out
	})
	return keys
}

// maxInnovation returns the highest innovation id present, or 0 for a
// genome with no connections.
func (g *Genome) maxInnovation() int {
	maxInnov := 0
	for _, cg := range g.Conns {
		if cg.Innovation > maxInnov {
			maxInnov = cg.Innovation
		}
	}
	return maxInnov
}

// --------------------------- Mutation ---------------------------

// Mutate applies one mutation pass: a structural add-node, else a
// structural add-connection, else the weight/enable sweep over existing
// connections. Structural mutations are mutually exclusive within one pass.
func (g *Genome) Mutate(rng *rand.Rand, ledger *InnovationLedger) {
	switch {
	case rng.Float64() < g.Config.NodeAddProb:
		g.MutateAddNode(rng, ledger)
	case rng.Float64() < g.Config.ConnAddProb:
		g.MutateAddConnection(rng, ledger)
	default:
		g.MutateWeights(rng)
	}
}

// MutateAddNode splits one enabled connection, chosen uniformly at random:
// the connection is disabled and replaced by (source -> new hidden node)
// with weight 1.0 and (new hidden node -> target) with the original weight.
// Both replacements obtain innovation ids from the ledger. No-op when the
// genome has no enabled connection.
func (g *Genome) MutateAddNode(rng *rand.Rand, ledger *InnovationLedger) {
	enabled := make([]ConnKey, 0, len(g.Conns))
	for _, key := range g.sortedConnKeys() {
		if g.Conns[key].Enabled {
			enabled = append(enabled, key)
		}
	}
	if len(enabled) == 0 {
		return
	}
	toSplit := g.Conns[enabled[rng.Intn(len(enabled))]]

	node := NewNodeGene(len(g.Nodes), HiddenNode)
	g.Nodes = append(g.Nodes, node)

	inConn, outConn := toSplit.Split(node.ID, ledger)
	g.Conns[inConn.Key()] = inConn
	g.Conns[outConn.Key()] = outConn
}

// MutateAddConnection adds one currently-absent, legal connection chosen
// uniformly at random from the remaining legal space. A legal target is any
// non-input node; in feed-forward mode pairs that would close a cycle are
// excluded. The weight is drawn from the configured gaussian. No-op when
// the legal space is saturated.
func (g *Genome) MutateAddConnection(rng *rand.Rand, ledger *InnovationLedger) {
	remaining := g.countAbsentLegalPairs()
	if remaining == 0 {
		return
	}
	n := rng.Intn(remaining)

	count := 0
	for _, in := range g.Nodes {
		for _, out := range g.Nodes {
			if !g.legalAbsentPair(in, out) {
				continue
			}
			if count == n {
				w := clamp(rng.NormFloat64()*g.Config.WeightInitStdev, g.Config.WeightMinValue, g.Config.WeightMaxValue)
				cg := NewConnectionGene(in.ID, out.ID, w, true, ledger)
				g.Conns[cg.Key()] = cg
				return
			}
			count++
		}
	}
}

// countAbsentLegalPairs sizes the legal space MutateAddConnection draws
// from.
func (g *Genome) countAbsentLegalPairs() int {
	count := 0
	for _, in := range g.Nodes {
		for _, out := range g.Nodes {
			if g.legalAbsentPair(in, out) {
				count++
			}
		}
	}
	return count
}

// legalAbsentPair reports whether (in, out) is a connection the genome may
// still add: absent, target not an input, and acyclic when configured
// feed-forward.
func (g *Genome) legalAbsentPair(in, out NodeGene) bool {
	if out.Type == InputNode {
		return false
	}
	if _, exists := g.Conns[ConnKey{In: in.ID, Out: out.ID}]; exists {
		return false
	}
	if g.Config.FeedForward && g.createsCycle(in.ID, out.ID) {
		return false
	}
	return true
}

// MutateWeights sweeps the connection genes: each enabled connection is,
// with probability WeightMutateRate, either replaced uniformly or perturbed
// by a gaussian step (see ConnectionGene.MutateWeight); independently,
// each connection's enabled flag is toggled with probability
// ToggleEnableRate. Re-enabling is suppressed in feed-forward mode when it
// would close a cycle.
func (g *Genome) MutateWeights(rng *rand.Rand) {
	for _, key := range g.sortedConnKeys() {
		cg := g.Conns[key]
		if cg.Enabled && rng.Float64() < g.Config.WeightMutateRate {
			cg.MutateWeight(rng, g.Config)
		}
		if rng.Float64() < g.Config.ToggleEnableRate {
			if cg.Enabled {
				cg.Enabled = false
			} else if !g.Config.FeedForward || !g.createsCycle(cg.In, cg.Out) {
				cg.Enabled = true
			}
		}
	}
}

// createsCycle reports whether adding (or enabling) a connection from
// inNode to outNode would create a cycle through the currently enabled
// connections.
func (g *Genome) createsCycle(inNode, outNode int) bool {
	if inNode == outNode {
		return true
	}
	visited := make(map[int]bool)
	queue := []int{outNode}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if current == inNode {
			return true
		}
		if visited[current] {
			continue
		}
		visited[current] = true
		for key, cg := range g.Conns {
			if cg.Enabled && key.In == current {
				queue = append(queue, key.Out)
			}
		}
	}
	return false
}

// --------------------------- Compatibility distance ---------------------------

// Distance computes the compatibility distance between two genomes by
// aligning connection genes on innovation ids. Genes present in only one
// genome count as disjoint when they fall inside the other genome's
// innovation range and as excess beyond it; matching genes contribute the
// mean absolute weight difference. The genome with more connection genes is
// the reference side for the excess/disjoint classification (ties broken by
// the higher maximum innovation id), so the result does not depend on
// argument order.
func (g *Genome) Distance(other *Genome) float64 {
	ref, cmp := g, other
	if len(ref.Conns) < len(cmp.Conns) ||
		(len(ref.Conns) == len(cmp.Conns) && ref.maxInnovation() < cmp.maxInnovation()) {
		ref, cmp = cmp, ref
	}

	cmpMaxInnov := cmp.maxInnovation()
	weightDiff := 0.0
	matching := 0
	disjoint := 0
	excess := 0

	for key, cg1 := range ref.Conns {
		cg2, exists := cmp.Conns[key]
		if exists && cg2.Innovation == cg1.Innovation {
			weightDiff += math.Abs(cg1.Weight - cg2.Weight)
			matching++
		} else if cg1.Innovation > cmpMaxInnov {
			excess++
		} else {
			disjoint++
		}
	}
	// Genes only cmp holds are by definition inside ref's innovation range.
	disjoint += len(cmp.Conns) - matching

	cfg := g.Config
	distance := cfg.ExcessCoefficient*float64(excess) + cfg.DisjointCoefficient*float64(disjoint)
	if matching > 0 {
		distance += cfg.WeightCoefficient * (weightDiff / float64(matching))
	}
	return distance
}

// --------------------------- Crossover ---------------------------

// Crossover combines this genome with a same-species mate and returns one
// child with the given id. The fitter parent contributes structure; a
// fitness tie is broken by preferring the parent with fewer connection
// genes (a deterministic tie-break, not a semantic preference). Matching
// genes inherit weight and enabled flag from a uniformly chosen parent;
// disjoint and excess genes of the fitter parent are copied directly, and
// genes present only in the less fit parent are never inherited.
//
// Crossing genomes from different species, or genomes without an assigned
// fitness, is a caller error.
func (g *Genome) Crossover(other *Genome, childID int, rng *rand.Rand) (*Genome, error) {
	if g.SpeciesID != other.SpeciesID {
		return nil, fmt.Errorf("crossover parents belong to different species: %d vs %d", g.SpeciesID, other.SpeciesID)
	}
	if !g.Evaluated || !other.Evaluated {
		return nil, fmt.Errorf("crossover requires evaluated parents (genomes %d, %d)", g.ID, other.ID)
	}

	p1, p2 := g, other
	switch {
	case g.Fitness > other.Fitness:
		// keep order
	case g.Fitness < other.Fitness:
		p1, p2 = other, g
	case len(g.Conns) > len(other.Conns):
		p1, p2 = other, g
	}

	child := &Genome{
		ID:        childID,
		Nodes:     make([]NodeGene, len(p1.Nodes)),
		Conns:     make(map[ConnKey]*ConnectionGene, len(p1.Conns)),
		SpeciesID: p1.SpeciesID,
		Parent1:   g.ID,
		Parent2:   other.ID,
		Config:    p1.Config,
	}

	// Node genes are taken positionally from the fitter parent; they carry
	// no evolvable payload, so the other parent's matching positions do not
	// alter the copy.
	for i, ng := range p1.Nodes {
		child.Nodes[i] = ng.Copy()
	}

	for _, key := range p1.sortedConnKeys() {
		cg1 := p1.Conns[key]
		cg2, exists := p2.Conns[key]
		if exists && cg2.Innovation == cg1.Innovation {
			if rng.Float64() < 0.5 {
				child.Conns[key] = cg2.Copy()
			} else {
				child.Conns[key] = cg1.Copy()
			}
		} else {
			child.Conns[key] = cg1.Copy()
		}
	}

	return child, nil
}

// --------------------------- Phenotype decoding ---------------------------

// PhenotypeSpec is the structural description of a genome consumed by an
// external network executor: node counts, parallel connection arrays for
// the enabled connections, and the scaling metadata the executor needs to
// map raw activations into a usable output range.
type PhenotypeSpec struct {
	NumInputs  int
	NumHidden  int
	NumOutputs int
	Sources    []int
	Targets    []int
	Weights    []float64
	// WeightRange is the width of the configured connection-weight range.
	WeightRange float64
	// OutputRange is the [min, max] interval executor outputs should span.
	OutputRange [2]float64
}

// Decode returns the phenotype specification for this genome. Node ids are
// remapped from the genome's numbering (inputs, outputs, hidden) to the
// executor convention (inputs, hidden, outputs); the remap is a pure,
// deterministic transformation of the genome's node list. Only enabled
// connections are emitted, ordered by innovation id.
func (g *Genome) Decode() *PhenotypeSpec {
	numIn := g.countNodes(InputNode)
	numOut := g.countNodes(OutputNode)
	numHidden := len(g.Nodes) - numIn - numOut

	remap := make(map[int]int, len(g.Nodes))
	inputSeen, hiddenSeen, outputSeen := 0, 0, 0
	for _, ng := range g.Nodes {
		switch ng.Type {
		case InputNode:
			remap[ng.ID] = inputSeen
			inputSeen++
		case HiddenNode:
			remap[ng.ID] = numIn + hiddenSeen
			hiddenSeen++
		case OutputNode:
			remap[ng.ID] = numIn + numHidden + outputSeen
			outputSeen++
		}
	}

	enabled := make([]*ConnectionGene, 0, len(g.Conns))
	for _, cg := range g.Conns {
		if cg.Enabled {
			enabled = append(enabled, cg)
		}
	}
	sort.Slice(enabled, func(i, j int) bool {
		return enabled[i].Innovation < enabled[j].Innovation
	})

	spec := &PhenotypeSpec{
		NumInputs:   numIn,
		NumHidden:   numHidden,
		NumOutputs:  numOut,
		Sources:     make([]int, len(enabled)),
		Targets:     make([]int, len(enabled)),
		Weights:     make([]float64, len(enabled)),
		WeightRange: g.Config.WeightMaxValue - g.Config.WeightMinValue,
		OutputRange: [2]float64{g.Config.OutputMinValue, g.Config.OutputMaxValue},
	}
	for i, cg := range enabled {
		spec.Sources[i] = remap[cg.In]
		spec.Targets[i] = remap[cg.Out]
		spec.Weights[i] = cg.Weight
	}
	return spec
}

// Complexity returns the genome's complexity as (hidden node count,
// enabled connection count).
func (g *Genome) Complexity() (hiddenNodes, enabledConns int) {
	hiddenNodes = g.countNodes(HiddenNode)
	for _, cg := range g.Conns {
		if cg.Enabled {
			enabledConns++
		}
	}
	return hiddenNodes, enabledConns
}
