package neat

import (
	"io"
	"log/slog"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testPopulationConfig() *Config {
	cfg := DefaultConfig()
	cfg.Neat.PopSize = 40
	return cfg
}

func evaluateAll(p *Population) {
	// A fixed, strictly positive fitness landscape: reward enabled
	// connections so evolution has a gradient without an external task.
	for _, g := range p.Genomes {
		_, conns := g.Complexity()
		g.SetFitness(1.0 + float64(conns))
	}
}

func TestEpochRequiresFitness(t *testing.T) {
	pop, err := NewPopulation(testPopulationConfig(), WithRand(rand.New(rand.NewSource(1))))
	require.NoError(t, err)
	require.ErrorContains(t, pop.Epoch(), "no fitness set")
}

func TestEpochMaintainsPopulationSize(t *testing.T) {
	cfg := testPopulationConfig()
	pop, err := NewPopulation(cfg, WithRand(rand.New(rand.NewSource(42))))
	require.NoError(t, err)
	require.Len(t, pop.Genomes, cfg.Neat.PopSize)

	for gen := 0; gen < 10; gen++ {
		evaluateAll(pop)
		require.NoError(t, pop.Epoch())
		require.Len(t, pop.Genomes, cfg.Neat.PopSize, "generation %d", gen)
		require.Equal(t, gen+1, pop.Generation)
		require.NotEmpty(t, pop.Species)
	}

	require.Len(t, pop.BestHistory, 10)
	require.Len(t, pop.MeanHistory, 10)
	require.NotNil(t, pop.BestEver)
}

func TestBestEverIsOwnedCopy(t *testing.T) {
	pop, err := NewPopulation(testPopulationConfig(), WithRand(rand.New(rand.NewSource(3))))
	require.NoError(t, err)

	evaluateAll(pop)
	require.NoError(t, pop.Epoch())

	for _, g := range pop.Genomes {
		require.NotSame(t, g, pop.BestEver)
	}
}

func TestDeterministicRuns(t *testing.T) {
	run := func(seed int64) []float64 {
		pop, err := NewPopulation(testPopulationConfig(), WithRand(rand.New(rand.NewSource(seed))))
		require.NoError(t, err)
		for gen := 0; gen < 5; gen++ {
			evaluateAll(pop)
			require.NoError(t, pop.Epoch())
		}
		return pop.BestHistory
	}

	require.Equal(t, run(7), run(7), "same seed, same trajectory")
}

func TestAdjustCompatThreshold(t *testing.T) {
	cfg := testPopulationConfig()
	cfg.Speciation.TargetSpecies = 2
	cfg.Speciation.CompatibilityChange = 0.3

	p := &Population{Config: cfg, CompatThreshold: 1.0}

	// Too many species: loosen.
	p.Species = []*Species{{ID: 1}, {ID: 2}, {ID: 3}}
	p.adjustCompatThreshold()
	require.InDelta(t, 1.3, p.CompatThreshold, 1e-12)

	// Too few: tighten.
	p.Species = p.Species[:1]
	p.adjustCompatThreshold()
	require.InDelta(t, 1.0, p.CompatThreshold, 1e-12)

	// The threshold never drops below the step size.
	p.CompatThreshold = 0.35
	p.adjustCompatThreshold()
	require.InDelta(t, 0.3, p.CompatThreshold, 1e-12)
}

func TestRemoveStagnated(t *testing.T) {
	cfg := testPopulationConfig()
	cfg.Stagnation.MaxStagnation = 10

	p := &Population{Config: cfg, log: discardLogger()}
	stale := &Species{ID: 1, NoImprovementAge: 11}
	protected := &Species{ID: 2, NoImprovementAge: 15, HasBest: true}
	fresh := &Species{ID: 3, NoImprovementAge: 2}
	hopeless := &Species{ID: 4, NoImprovementAge: 21, HasBest: true}
	p.Species = []*Species{stale, protected, fresh, hopeless}

	scores := map[int]float64{1: 1, 2: 1, 3: 1, 4: 1}
	p.removeStagnated(scores)

	require.Equal(t, []*Species{protected, fresh}, p.Species,
		"stale species removed, best-holding species protected until twice the limit")
	require.NotContains(t, scores, 1)
	require.NotContains(t, scores, 4)
}

func TestRemoveStagnatedPurgesMembers(t *testing.T) {
	cfg := testPopulationConfig()
	cfg.Neat.PopSize = 4
	cfg.Stagnation.MaxStagnation = 10

	rng := rand.New(rand.NewSource(5))
	ledger := NewInnovationLedger()
	p := &Population{Config: cfg, log: discardLogger(), rng: rng, ledger: ledger, nextGenomeID: 6}
	for id := 0; id < 6; id++ {
		g := NewFullyConnectedGenome(id, &cfg.Genome, rng, ledger)
		g.SpeciesID = 1
		if id >= 3 {
			g.SpeciesID = 2
		}
		g.SetFitness(1)
		p.Genomes = append(p.Genomes, g)
	}
	healthy := &Species{ID: 1}
	culled := &Species{ID: 2, NoImprovementAge: 11}
	p.Species = []*Species{healthy, culled}

	p.removeStagnated(map[int]float64{1: 1, 2: 1})

	require.Equal(t, []*Species{healthy}, p.Species)
	require.Len(t, p.Genomes, 3)
	for _, g := range p.Genomes {
		require.Equal(t, 1, g.SpeciesID)
	}

	// Size correction may only breed from the surviving species.
	filled, err := p.correctSize(nil)
	require.NoError(t, err)
	require.Len(t, filled, 4)
	for _, child := range filled {
		require.Less(t, child.Parent1, 3, "bred from a removed species")
		require.Less(t, child.Parent2, 3, "bred from a removed species")
	}
}

func TestLastSpeciesIsNeverRemoved(t *testing.T) {
	cfg := testPopulationConfig()
	cfg.Stagnation.MaxStagnation = 10

	p := &Population{Config: cfg, log: discardLogger()}
	lone := &Species{ID: 1, NoImprovementAge: 99}
	p.Species = []*Species{lone}

	scores := map[int]float64{1: 1}
	p.removeStagnated(scores)
	require.Equal(t, []*Species{lone}, p.Species)
	require.Contains(t, scores, 1)

	// With every species hopeless, exactly one still survives.
	a := &Species{ID: 2, NoImprovementAge: 30}
	b := &Species{ID: 3, NoImprovementAge: 30}
	p.Species = []*Species{a, b}
	p.removeStagnated(map[int]float64{2: 1, 3: 1})
	require.Equal(t, []*Species{b}, p.Species)
}

func TestAllocateSpawnsZeroTotalIsError(t *testing.T) {
	cfg := testPopulationConfig()
	p := &Population{Config: cfg, log: discardLogger()}
	p.Species = []*Species{{ID: 1, Age: cfg.Speciation.YouthThreshold}}

	err := p.allocateSpawns(map[int]float64{1: 0})
	require.ErrorContains(t, err, "score total")
}

func TestAllocateSpawnsProportional(t *testing.T) {
	cfg := testPopulationConfig()
	cfg.Neat.PopSize = 100
	age := cfg.Speciation.YouthThreshold // no youth boost, no old penalty
	p := &Population{Config: cfg, log: discardLogger()}
	s1 := &Species{ID: 1, Age: age}
	s2 := &Species{ID: 2, Age: age}
	s3 := &Species{ID: 3, Age: age}
	p.Species = []*Species{s1, s2, s3}

	require.NoError(t, p.allocateSpawns(map[int]float64{1: 3, 2: 1, 3: 0}))
	require.Equal(t, 75, s1.SpawnAmount)
	require.Equal(t, 25, s2.SpawnAmount)

	// The zero-score species rounds down to zero offspring and is removed.
	require.Equal(t, []*Species{s1, s2}, p.Species)
}

func TestAllocateSpawnsPurgesZeroSpawnMembers(t *testing.T) {
	cfg := testPopulationConfig()
	cfg.Neat.PopSize = 100
	age := cfg.Speciation.YouthThreshold

	p := &Population{Config: cfg, log: discardLogger()}
	p.Genomes = []*Genome{
		{ID: 0, SpeciesID: 1},
		{ID: 1, SpeciesID: 1},
		{ID: 2, SpeciesID: 2},
	}
	p.Species = []*Species{
		{ID: 1, Age: age},
		{ID: 2, Age: age},
	}

	require.NoError(t, p.allocateSpawns(map[int]float64{1: 1, 2: 0}))

	require.Len(t, p.Genomes, 2)
	for _, g := range p.Genomes {
		require.Equal(t, 1, g.SpeciesID)
	}
}

func TestCorrectSizeFillsRoundingShortfall(t *testing.T) {
	cfg := testPopulationConfig()
	cfg.Neat.PopSize = 10
	age := cfg.Speciation.YouthThreshold

	rng := rand.New(rand.NewSource(9))
	ledger := NewInnovationLedger()
	p := &Population{Config: cfg, log: discardLogger(), rng: rng, ledger: ledger, nextGenomeID: 10}
	for id := 0; id < 10; id++ {
		g := NewFullyConnectedGenome(id, &cfg.Genome, rng, ledger)
		g.SpeciesID = 1
		g.SetFitness(1)
		p.Genomes = append(p.Genomes, g)
	}
	s1 := &Species{ID: 1, Age: age}
	s2 := &Species{ID: 2, Age: age}
	s3 := &Species{ID: 3, Age: age}
	p.Species = []*Species{s1, s2, s3}

	// Three equal scores against a population of 10 round to three
	// offspring each, leaving the new generation one genome short.
	require.NoError(t, p.allocateSpawns(map[int]float64{1: 2, 2: 2, 3: 2}))
	require.Equal(t, 3, s1.SpawnAmount)
	require.Equal(t, 3, s2.SpawnAmount)
	require.Equal(t, 3, s3.SpawnAmount)

	offspring := make([]*Genome, 0, 9)
	for i := 0; i < 9; i++ {
		offspring = append(offspring, NewGenome(p.nextID(), &cfg.Genome))
	}

	filled, err := p.correctSize(offspring)
	require.NoError(t, err)
	require.Len(t, filled, 10)
	for i, g := range offspring {
		require.Same(t, g, filled[i])
	}

	// The single filler is bred fresh from the previous generation.
	filler := filled[9]
	require.GreaterOrEqual(t, filler.Parent1, 0)
	require.Less(t, filler.Parent1, 10)
	require.Less(t, filler.Parent2, 10)
	require.False(t, filler.Evaluated)
}

func TestRecorderInvokedEachEpoch(t *testing.T) {
	rec := &captureRecorder{}
	pop, err := NewPopulation(testPopulationConfig(),
		WithRand(rand.New(rand.NewSource(13))),
		WithRecorder(rec),
	)
	require.NoError(t, err)

	for gen := 0; gen < 3; gen++ {
		evaluateAll(pop)
		require.NoError(t, pop.Epoch())
	}

	require.Equal(t, []int{0, 1, 2}, rec.generations)
	require.Equal(t, pop.Config.Neat.PopSize, rec.lastCount)
}

type captureRecorder struct {
	generations []int
	lastCount   int
}

func (r *captureRecorder) RecordGeneration(generation int, genomes []*Genome) error {
	r.generations = append(r.generations, generation)
	r.lastCount = len(genomes)
	return nil
}
