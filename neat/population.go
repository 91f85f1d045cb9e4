package neat

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"
)

// Recorder receives the evaluated population once per epoch, before the
// next generation replaces it. Implementations persist statistics, CSV rows
// or full genome archives.
type Recorder interface {
	RecordGeneration(generation int, genomes []*Genome) error
}

// Population holds the state of the evolutionary process: the current
// generation of genomes, the species they are partitioned into and the
// innovation ledger shared by this generation's structural mutations.
type Population struct {
	Config  *Config
	Genomes []*Genome
	Species []*Species

	// CompatThreshold is the current, adaptively tuned compatibility
	// distance threshold used for species assignment.
	CompatThreshold float64

	Generation int

	// BestEver is an owned copy of the highest-fitness genome seen across
	// all generations.
	BestEver    *Genome
	BestHistory []float64
	MeanHistory []float64

	nextGenomeID  int
	nextSpeciesID int
	ledger        *InnovationLedger
	rng           *rand.Rand
	log           *slog.Logger
	recorder      Recorder
}

// Option configures a Population at construction time.
type Option func(*Population)

// WithRand injects the random source used for all stochastic decisions.
// Supplying a seeded source makes a run reproducible.
func WithRand(rng *rand.Rand) Option {
	return func(p *Population) { p.rng = rng }
}

// WithLogger sets the structured logger. The default discards nothing and
// writes to slog's default handler.
func WithLogger(log *slog.Logger) Option {
	return func(p *Population) { p.log = log }
}

// WithRecorder registers a per-generation statistics sink.
func WithRecorder(r Recorder) Option {
	return func(p *Population) { p.recorder = r }
}

// NewPopulation creates a population of fully connected minimal genomes.
func NewPopulation(config *Config, opts ...Option) (*Population, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	p := &Population{
		Config:          config,
		CompatThreshold: config.Speciation.CompatibilityThreshold,
		ledger:          NewInnovationLedger(),
		log:             slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.rng == nil {
		seed := config.Neat.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		p.rng = rand.New(rand.NewSource(seed))
	}

	p.Genomes = make([]*Genome, config.Neat.PopSize)
	for i := range p.Genomes {
		p.Genomes[i] = NewFullyConnectedGenome(p.nextGenomeID, &config.Genome, p.rng, p.ledger)
		p.nextGenomeID++
	}
	// The initial genomes share one structural layout, so their ledger
	// entries are deliberately identical. The first epoch resets the ledger
	// as usual.
	p.nextSpeciesID = 1

	return p, nil
}

// Ledger exposes the population's innovation ledger, for callers that
// mutate genomes outside Epoch.
func (p *Population) Ledger() *InnovationLedger { return p.ledger }

// Rand exposes the population's random source.
func (p *Population) Rand() *rand.Rand { return p.rng }

// Best returns the highest-fitness genome of the current generation.
func (p *Population) Best() *Genome {
	var best *Genome
	for _, g := range p.Genomes {
		if best == nil || g.Fitness > best.Fitness {
			best = g
		}
	}
	return best
}

// Epoch advances the population by one generation. Every genome's fitness
// must have been set since the last epoch. The population is speciated, the
// compatibility threshold adjusted, statistics recorded, stagnant species
// removed, offspring allocated and produced per species, and the new
// generation committed at the exact configured size.
func (p *Population) Epoch() error {
	for _, g := range p.Genomes {
		if !g.Evaluated {
			return fmt.Errorf("generation %d: genome %d has no fitness set", p.Generation, g.ID)
		}
	}

	p.speciate()
	p.adjustCompatThreshold()

	scores, err := p.recordStats()
	if err != nil {
		return err
	}
	p.removeStagnated(scores)

	if err := p.allocateSpawns(scores); err != nil {
		return err
	}

	newGenomes, err := p.reproduce()
	if err != nil {
		return err
	}
	newGenomes, err = p.correctSize(newGenomes)
	if err != nil {
		return err
	}

	p.Genomes = newGenomes
	p.ledger.Reset()
	p.Generation++
	return nil
}

// speciate assigns every genome to the first species whose representative
// is within the compatibility threshold, creating new species as needed.
// Species left without members are removed; survivors keep their identity
// and history.
func (p *Population) speciate() {
	for _, s := range p.Species {
		s.Members = nil
	}

	for _, g := range p.Genomes {
		placed := false
		for _, s := range p.Species {
			if g.Distance(s.Representative) < p.CompatThreshold {
				s.Add(g, p.rng)
				placed = true
				break
			}
		}
		if !placed {
			s := NewSpecies(p.nextSpeciesID, g, p.rng)
			p.nextSpeciesID++
			p.Species = append(p.Species, s)
			p.log.Debug("new species", "species", s.ID, "generation", p.Generation)
		}
	}

	alive := p.Species[:0]
	for _, s := range p.Species {
		if len(s.Members) > 0 {
			alive = append(alive, s)
		} else {
			p.log.Debug("species died out", "species", s.ID, "generation", p.Generation)
		}
	}
	p.Species = alive
}

// adjustCompatThreshold nudges the threshold toward the target species
// count by a fixed step, never dropping below the step itself.
func (p *Population) adjustCompatThreshold() {
	cfg := &p.Config.Speciation
	switch {
	case len(p.Species) > cfg.TargetSpecies:
		p.CompatThreshold += cfg.CompatibilityChange
	case len(p.Species) < cfg.TargetSpecies:
		p.CompatThreshold -= cfg.CompatibilityChange
	}
	if p.CompatThreshold < cfg.CompatibilityChange {
		p.CompatThreshold = cfg.CompatibilityChange
	}
}

// recordStats updates best/mean history, best-ever tracking, the HasBest
// markers and each species' stagnation counters, and returns the species'
// raw fitness scores keyed by species id.
func (p *Population) recordStats() (map[int]float64, error) {
	best := p.Best()
	if p.BestEver == nil || best.Fitness > p.BestEver.Fitness {
		p.BestEver = best.Copy()
		p.log.Info("new best genome", "genome", best.ID, "fitness", best.Fitness, "generation", p.Generation)
	}

	fits := make([]float64, len(p.Genomes))
	for i, g := range p.Genomes {
		fits[i] = g.Fitness
	}
	p.BestHistory = append(p.BestHistory, best.Fitness)
	p.MeanHistory = append(p.MeanHistory, Mean(fits))

	statFunc := StatFunctions[p.Config.Stagnation.SpeciesFitnessFunc]
	scores := make(map[int]float64, len(p.Species))
	for _, s := range p.Species {
		s.HasBest = s.ID == best.SpeciesID
		scores[s.ID] = s.ObserveFitness(statFunc)
	}

	if p.recorder != nil {
		if err := p.recorder.RecordGeneration(p.Generation, p.Genomes); err != nil {
			return nil, fmt.Errorf("generation %d: recording statistics: %w", p.Generation, err)
		}
	}
	return scores, nil
}

// removeStagnated drops species that have not improved for too long,
// together with their members. The species holding the population's best
// genome is spared until it reaches twice the stagnation limit, and the
// last remaining species is never culled.
func (p *Population) removeStagnated(scores map[int]float64) {
	limit := p.Config.Stagnation.MaxStagnation
	removed := make(map[int]bool)
	remaining := len(p.Species)
	alive := p.Species[:0]
	for _, s := range p.Species {
		stale := s.NoImprovementAge > limit
		cullable := !s.HasBest || s.NoImprovementAge > 2*limit
		if stale && cullable && remaining > 1 {
			p.log.Info("removing stagnated species", "species", s.ID, "age", s.Age,
				"noImprovementAge", s.NoImprovementAge, "generation", p.Generation)
			delete(scores, s.ID)
			removed[s.ID] = true
			remaining--
			continue
		}
		alive = append(alive, s)
	}
	p.Species = alive
	p.purgeMembers(removed)
}

// purgeMembers removes the culled species' genomes from the current
// generation, so they cannot act as parents during size correction.
func (p *Population) purgeMembers(removed map[int]bool) {
	if len(removed) == 0 {
		return
	}
	kept := p.Genomes[:0]
	for _, g := range p.Genomes {
		if !removed[g.SpeciesID] {
			kept = append(kept, g)
		}
	}
	p.Genomes = kept
}

// allocateSpawns distributes the configured population size over the
// surviving species in proportion to their age-adjusted fitness scores.
// Species rounding down to zero offspring are removed.
func (p *Population) allocateSpawns(scores map[int]float64) error {
	if len(p.Species) == 0 {
		return fmt.Errorf("generation %d: all species removed, population extinct", p.Generation)
	}

	total := 0.0
	adjusted := make(map[int]float64, len(p.Species))
	for _, s := range p.Species {
		score := s.AdjustedFitness(scores[s.ID], &p.Config.Speciation)
		adjusted[s.ID] = score
		total += score
	}
	if total <= 0 {
		return fmt.Errorf("generation %d: species score total %g, cannot allocate offspring", p.Generation, total)
	}

	popSize := float64(p.Config.Neat.PopSize)
	removed := make(map[int]bool)
	alive := p.Species[:0]
	for _, s := range p.Species {
		s.SpawnAmount = int(math.Round(adjusted[s.ID] * popSize / total))
		if s.SpawnAmount < 0 {
			s.SpawnAmount = 0
		}
		if s.SpawnAmount == 0 {
			p.log.Debug("species allocated no offspring", "species", s.ID, "generation", p.Generation)
			removed[s.ID] = true
			continue
		}
		alive = append(alive, s)
	}
	p.Species = alive
	if len(p.Species) == 0 {
		return fmt.Errorf("generation %d: no species allocated offspring", p.Generation)
	}
	p.purgeMembers(removed)
	return nil
}

func (p *Population) reproduce() ([]*Genome, error) {
	newGenomes := make([]*Genome, 0, p.Config.Neat.PopSize)
	for _, s := range p.Species {
		children, err := s.Reproduce(p.Config, p.rng, p.ledger, p.nextID)
		if err != nil {
			return nil, fmt.Errorf("generation %d: %w", p.Generation, err)
		}
		newGenomes = append(newGenomes, children...)
	}
	return newGenomes, nil
}

// correctSize trims overflow from the end of the offspring list and fills
// underflow with extra children bred from the previous generation.
func (p *Population) correctSize(newGenomes []*Genome) ([]*Genome, error) {
	popSize := p.Config.Neat.PopSize
	if len(newGenomes) > popSize {
		newGenomes = newGenomes[:popSize]
	}

	for len(newGenomes) < popSize {
		parent := p.Genomes[p.rng.Intn(len(p.Genomes))]
		mate := p.randomSameSpeciesMate(parent)
		child, err := parent.Crossover(mate, p.nextID(), p.rng)
		if err != nil {
			return nil, fmt.Errorf("generation %d: filling population: %w", p.Generation, err)
		}
		child.Mutate(p.rng, p.ledger)
		newGenomes = append(newGenomes, child)
	}

	if len(newGenomes) != popSize {
		return nil, fmt.Errorf("generation %d: produced %d genomes, want %d", p.Generation, len(newGenomes), popSize)
	}
	return newGenomes, nil
}

// randomSameSpeciesMate picks a random previous-generation genome from the
// parent's species, falling back to the parent itself.
func (p *Population) randomSameSpeciesMate(parent *Genome) *Genome {
	var pool []*Genome
	for _, g := range p.Genomes {
		if g.SpeciesID == parent.SpeciesID {
			pool = append(pool, g)
		}
	}
	if len(pool) == 0 {
		return parent
	}
	return pool[p.rng.Intn(len(pool))]
}

func (p *Population) nextID() int {
	id := p.nextGenomeID
	p.nextGenomeID++
	return id
}
