package neat

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
)

// GeneComponent is one named block of evolvable parameters inside a
// VectorGenome. Components keep their own bounds and mutation behaviour so
// heterogeneous parameter groups can evolve side by side in one individual.
type GeneComponent interface {
	// Labels returns one column label per value, used for log headers.
	Labels() []string
	// Values returns the component's current values.
	Values() []float64
	// SetValues replaces the component's values.
	SetValues(values []float64) error
	// Mutate perturbs each value independently with the given probability.
	Mutate(rate float64, rng *rand.Rand)
	// Copy returns an independent deep copy of the component.
	Copy() GeneComponent
}

// BoundedVectorComponent is a fixed-length float vector with per-index
// bounds. Mutation draws a gaussian around the current value with a standard
// deviation of a tenth of the index's range, clamped back into the bounds.
type BoundedVectorComponent struct {
	Name   string
	Min    []float64
	Max    []float64
	values []float64
}

// NewBoundedVectorComponent creates a component with the given bounds and
// values drawn uniformly from them.
func NewBoundedVectorComponent(name string, minVals, maxVals []float64, rng *rand.Rand) (*BoundedVectorComponent, error) {
	if len(minVals) != len(maxVals) {
		return nil, fmt.Errorf("component %s: bound lengths differ (%d vs %d)", name, len(minVals), len(maxVals))
	}
	for i := range minVals {
		if maxVals[i] < minVals[i] {
			return nil, fmt.Errorf("component %s: max < min at index %d", name, i)
		}
	}
	values := make([]float64, len(minVals))
	for i := range values {
		values[i] = minVals[i] + rng.Float64()*(maxVals[i]-minVals[i])
	}
	return &BoundedVectorComponent{
		Name:   name,
		Min:    append([]float64(nil), minVals...),
		Max:    append([]float64(nil), maxVals...),
		values: values,
	}, nil
}

// Labels returns "<name>_<i>" for each index.
func (c *BoundedVectorComponent) Labels() []string {
	labels := make([]string, len(c.values))
	for i := range c.values {
		labels[i] = fmt.Sprintf("%s_%d", c.Name, i)
	}
	return labels
}

// Values returns a copy of the component's values.
func (c *BoundedVectorComponent) Values() []float64 {
	return append([]float64(nil), c.values...)
}

// SetValues replaces the component's values, clamping each into its bounds.
func (c *BoundedVectorComponent) SetValues(values []float64) error {
	if len(values) != len(c.values) {
		return fmt.Errorf("component %s: expected %d values, got %d", c.Name, len(c.values), len(values))
	}
	for i, v := range values {
		c.values[i] = clamp(v, c.Min[i], c.Max[i])
	}
	return nil
}

// Mutate perturbs each value with the given probability.
func (c *BoundedVectorComponent) Mutate(rate float64, rng *rand.Rand) {
	for i := range c.values {
		if rng.Float64() >= rate {
			continue
		}
		sd := 0.1 * (c.Max[i] - c.Min[i])
		c.values[i] = clamp(c.values[i]+rng.NormFloat64()*sd, c.Min[i], c.Max[i])
	}
}

// Copy returns an independent deep copy.
func (c *BoundedVectorComponent) Copy() GeneComponent {
	return &BoundedVectorComponent{
		Name:   c.Name,
		Min:    append([]float64(nil), c.Min...),
		Max:    append([]float64(nil), c.Max...),
		values: append([]float64(nil), c.values...),
	}
}

// VectorGenome is a flat-vector individual composed of an ordered list of
// gene components. It carries a fitness vector rather than a scalar so it
// can be selected on multiple objectives at once.
type VectorGenome struct {
	ID         int
	Components []GeneComponent
	Fitness    []float64
	Evaluated  bool
	Parent1    int
	Parent2    int
}

// NewVectorGenome creates a genome from the given components. Lineage is
// set to the genome itself.
func NewVectorGenome(id int, components ...GeneComponent) *VectorGenome {
	return &VectorGenome{
		ID:         id,
		Components: components,
		Parent1:    id,
		Parent2:    id,
	}
}

// SetFitness records the genome's objective values and marks it evaluated.
func (vg *VectorGenome) SetFitness(objectives ...float64) {
	vg.Fitness = append([]float64(nil), objectives...)
	vg.Evaluated = true
}

// Labels returns the concatenated labels of all components.
func (vg *VectorGenome) Labels() []string {
	var labels []string
	for _, c := range vg.Components {
		labels = append(labels, c.Labels()...)
	}
	return labels
}

// Values returns the genome flattened into a single vector.
func (vg *VectorGenome) Values() []float64 {
	var values []float64
	for _, c := range vg.Components {
		values = append(values, c.Values()...)
	}
	return values
}

// SetValues distributes a flat vector back over the components in order.
func (vg *VectorGenome) SetValues(values []float64) error {
	offset := 0
	for _, c := range vg.Components {
		n := len(c.Values())
		if offset+n > len(values) {
			return fmt.Errorf("vector genome %d: %d values do not cover all components", vg.ID, len(values))
		}
		if err := c.SetValues(values[offset : offset+n]); err != nil {
			return err
		}
		offset += n
	}
	if offset != len(values) {
		return fmt.Errorf("vector genome %d: %d values exceed component capacity %d", vg.ID, len(values), offset)
	}
	return nil
}

// Mutate perturbs each component with the given per-value probability.
func (vg *VectorGenome) Mutate(rate float64, rng *rand.Rand) {
	for _, c := range vg.Components {
		c.Mutate(rate, rng)
	}
}

// Copy returns an independent deep copy, including fitness.
func (vg *VectorGenome) Copy() *VectorGenome {
	components := make([]GeneComponent, len(vg.Components))
	for i, c := range vg.Components {
		components[i] = c.Copy()
	}
	return &VectorGenome{
		ID:         vg.ID,
		Components: components,
		Fitness:    append([]float64(nil), vg.Fitness...),
		Evaluated:  vg.Evaluated,
		Parent1:    vg.Parent1,
		Parent2:    vg.Parent2,
	}
}

// String renders the genome as its labels and values, one comma-separated
// line each.
func (vg *VectorGenome) String() string {
	values := vg.Values()
	cols := make([]string, len(values))
	for i, v := range values {
		cols[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(vg.Labels(), ",") + "\n" + strings.Join(cols, ",")
}

// TwoPointCrossover recombines two genomes of identical layout: the child
// takes the slice between two random cut points from the second parent and
// the remainder from the first.
func (vg *VectorGenome) TwoPointCrossover(other *VectorGenome, childID int, rng *rand.Rand) (*VectorGenome, error) {
	v1 := vg.Values()
	v2 := other.Values()
	if len(v1) != len(v2) {
		return nil, fmt.Errorf("crossover between genomes of different lengths (%d vs %d)", len(v1), len(v2))
	}

	a := rng.Intn(len(v1) + 1)
	b := rng.Intn(len(v1) + 1)
	if a > b {
		a, b = b, a
	}
	childValues := append([]float64(nil), v1...)
	copy(childValues[a:b], v2[a:b])

	child := vg.Copy()
	child.ID = childID
	child.Fitness = nil
	child.Evaluated = false
	child.Parent1 = vg.ID
	child.Parent2 = other.ID
	if err := child.SetValues(childValues); err != nil {
		return nil, err
	}
	return child, nil
}
