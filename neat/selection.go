package neat

import (
	"fmt"
	"math"
	"math/rand"
)

// TournamentSelection samples k genomes uniformly without replacement and
// returns the one with the highest fitness. A k of at least the pool size
// degenerates to picking the pool's best.
func TournamentSelection(genomes []*Genome, k int, rng *rand.Rand) *Genome {
	if k > len(genomes) {
		k = len(genomes)
	}
	var best *Genome
	for _, idx := range rng.Perm(len(genomes))[:k] {
		g := genomes[idx]
		if best == nil || g.Fitness > best.Fitness {
			best = g
		}
	}
	return best
}

// ObjectiveSpec describes one fitness dimension for lexicase selection.
type ObjectiveSpec struct {
	// Maximize is true when larger objective values are better.
	Maximize bool
	// Weight biases the roulette objective ordering; it is ignored with
	// uniform shuffling. Must be positive.
	Weight float64
}

// LexicaseSelection picks one parent from a multi-objective population.
// A tournament subset is filtered objective by objective, in a random or
// roulette-weighted objective order, keeping only candidates within a
// relative tolerance of the subset's best value for that objective. If a
// single candidate survives it is returned; ties after the last objective
// are broken uniformly at random.
func LexicaseSelection(pop []*VectorGenome, objectives []ObjectiveSpec, cfg *LexicaseConfig, rng *rand.Rand) (*VectorGenome, error) {
	if len(pop) == 0 {
		return nil, fmt.Errorf("lexicase selection on empty population")
	}
	if len(objectives) == 0 {
		return nil, fmt.Errorf("lexicase selection with no objectives")
	}
	for _, vg := range pop {
		if !vg.Evaluated {
			return nil, fmt.Errorf("genome %d has no fitness set", vg.ID)
		}
		if len(vg.Fitness) != len(objectives) {
			return nil, fmt.Errorf("genome %d has %d objective values, want %d", vg.ID, len(vg.Fitness), len(objectives))
		}
	}

	k := cfg.TournamentSize
	if k > len(pop) {
		k = len(pop)
	}
	candidates := make([]*VectorGenome, 0, k)
	for _, idx := range rng.Perm(len(pop))[:k] {
		candidates = append(candidates, pop[idx])
	}
	if len(candidates) == 1 {
		return candidates[0], nil
	}

	order, err := objectiveOrdering(objectives, cfg.WeightedOrdering, rng)
	if err != nil {
		return nil, err
	}

	for _, obj := range order {
		spec := objectives[obj]
		best := candidates[0].Fitness[obj]
		for _, vg := range candidates[1:] {
			f := vg.Fitness[obj]
			if (spec.Maximize && f > best) || (!spec.Maximize && f < best) {
				best = f
			}
		}

		kept := candidates[:0]
		for _, vg := range candidates {
			if relativeError(vg.Fitness[obj], best) < cfg.Tolerance {
				kept = append(kept, vg)
			}
		}
		candidates = kept
		if len(candidates) == 1 {
			return candidates[0], nil
		}
	}

	// Every remaining candidate is within tolerance on every objective.
	return candidates[rng.Intn(len(candidates))], nil
}

// relativeError measures how far value is from best, scaled by best's
// magnitude. The small offset keeps a best of zero from dividing by zero.
func relativeError(value, best float64) float64 {
	return math.Abs(value-best) / (math.Abs(best) + 1e-7)
}

// objectiveOrdering returns a permutation of objective indices, either a
// uniform shuffle or a weighted roulette draw without replacement.
func objectiveOrdering(objectives []ObjectiveSpec, weighted bool, rng *rand.Rand) ([]int, error) {
	if !weighted {
		return rng.Perm(len(objectives)), nil
	}

	remaining := make([]int, len(objectives))
	for i := range remaining {
		remaining[i] = i
	}
	order := make([]int, 0, len(objectives))
	for len(remaining) > 0 {
		total := 0.0
		for _, idx := range remaining {
			if objectives[idx].Weight <= 0 {
				return nil, fmt.Errorf("objective %d has non-positive weight %g", idx, objectives[idx].Weight)
			}
			total += objectives[idx].Weight
		}
		pick := rng.Float64() * total
		chosen := len(remaining) - 1
		for i, idx := range remaining {
			pick -= objectives[idx].Weight
			if pick <= 0 {
				chosen = i
				break
			}
		}
		order = append(order, remaining[chosen])
		remaining = append(remaining[:chosen], remaining[chosen+1:]...)
	}
	return order, nil
}
