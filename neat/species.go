package neat

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// Species represents a group of genetically similar genomes. It persists
// across generations through its representative, an owned copy of one of its
// members, so that speciation never compares against a genome from a
// discarded population.
type Species struct {
	ID  int // Unique identifier for the species.
	Age int // Number of epochs the species has survived.

	// Members holds the current generation's genomes assigned to this
	// species. It is cleared after reproduction.
	Members []*Genome

	// Representative is a deep copy of a randomly chosen member, used for
	// compatibility comparisons when speciating the next generation.
	Representative *Genome

	// HasBest marks the species containing the population's best genome for
	// the current generation. Such a species is protected from ordinary
	// stagnation removal.
	HasBest bool

	// SpawnAmount is the number of offspring allocated to this species for
	// the next generation.
	SpawnAmount int

	// NoImprovementAge counts consecutive epochs without an improvement in
	// the species' average fitness.
	NoImprovementAge int

	// LastAvgFitness is the best average fitness the species has reached.
	LastAvgFitness float64
}

// NewSpecies creates a species seeded with a first member.
func NewSpecies(id int, first *Genome, rng *rand.Rand) *Species {
	s := &Species{ID: id}
	s.Add(first, rng)
	return s
}

// Add assigns a genome to the species and refreshes the representative with
// a copy of a randomly chosen member.
func (s *Species) Add(g *Genome, rng *rand.Rand) {
	g.SpeciesID = s.ID
	s.Members = append(s.Members, g)
	s.Representative = s.Members[rng.Intn(len(s.Members))].Copy()
}

// MeanFitness returns the average fitness of the current members.
func (s *Species) MeanFitness() float64 {
	if len(s.Members) == 0 {
		return 0.0
	}
	return Mean(s.fitnesses())
}

func (s *Species) fitnesses() []float64 {
	fits := make([]float64, len(s.Members))
	for i, g := range s.Members {
		fits[i] = g.Fitness
	}
	return fits
}

// ObserveFitness updates the stagnation bookkeeping from the current
// members' fitness and returns the species' summary fitness according to
// the configured statistic.
func (s *Species) ObserveFitness(statFunc func([]float64) float64) float64 {
	avg := s.MeanFitness()
	if avg > s.LastAvgFitness {
		s.LastAvgFitness = avg
		s.NoImprovementAge = 0
	} else {
		s.NoImprovementAge++
	}
	if len(s.Members) == 0 {
		return 0.0
	}
	return statFunc(s.fitnesses())
}

// AdjustedFitness returns the species' raw fitness score scaled by the
// age-based adjustments: young species get a boost, old species a penalty.
func (s *Species) AdjustedFitness(rawScore float64, cfg *SpeciationConfig) float64 {
	switch {
	case s.Age < cfg.YouthThreshold:
		return rawScore * cfg.YouthBoost
	case s.Age > cfg.OldThreshold:
		return rawScore * cfg.OldPenalty
	default:
		return rawScore
	}
}

// Reproduce produces SpawnAmount offspring from the species' members, then
// clears the members and advances Age. With elitism enabled the first
// offspring is an unmodified copy of the best member, keeping its id and
// fitness; all other offspring are crossover children of tournament-selected
// parents, mutated once. A species whose only member is itself is mated with
// itself, which preserves the parent's structure up to mutation.
func (s *Species) Reproduce(cfg *Config, rng *rand.Rand, ledger *InnovationLedger, nextID func() int) ([]*Genome, error) {
	if s.SpawnAmount <= 0 {
		return nil, fmt.Errorf("species %d: reproduce called with spawn amount %d", s.ID, s.SpawnAmount)
	}
	if len(s.Members) == 0 {
		return nil, fmt.Errorf("species %d: reproduce called with no members", s.ID)
	}

	// Best first.
	sort.SliceStable(s.Members, func(i, j int) bool {
		return s.Members[i].Fitness > s.Members[j].Fitness
	})

	offspring := make([]*Genome, 0, s.SpawnAmount)
	spawn := s.SpawnAmount

	if cfg.Reproduction.Elitism {
		offspring = append(offspring, s.Members[0].Copy())
		spawn--
	}

	// Only the top fraction of the species may be a parent; at least one
	// member always survives.
	cutoff := int(math.Round(float64(len(s.Members)) * cfg.Reproduction.SurvivalThreshold))
	if cutoff < 1 {
		cutoff = 1
	}
	parents := s.Members[:cutoff]

	for spawn > 0 {
		var p1, p2 *Genome
		if len(parents) == 1 {
			p1, p2 = parents[0], parents[0]
		} else {
			p1 = TournamentSelection(parents, cfg.Reproduction.TournamentSize, rng)
			p2 = TournamentSelection(parents, cfg.Reproduction.TournamentSize, rng)
		}

		child, err := p1.Crossover(p2, nextID(), rng)
		if err != nil {
			return nil, fmt.Errorf("species %d: %w", s.ID, err)
		}
		child.Mutate(rng, ledger)
		offspring = append(offspring, child)
		spawn--
	}

	s.Members = nil
	s.Age++
	return offspring, nil
}
