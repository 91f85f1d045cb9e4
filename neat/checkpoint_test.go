package neat

import (
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckpointRoundTrip(t *testing.T) {
	cfg := testPopulationConfig()
	pop, err := NewPopulation(cfg, WithRand(rand.New(rand.NewSource(99))))
	require.NoError(t, err)

	for gen := 0; gen < 3; gen++ {
		evaluateAll(pop)
		require.NoError(t, pop.Epoch())
	}

	path := filepath.Join(t.TempDir(), "pop.gz")
	require.NoError(t, pop.SaveCheckpoint(path))

	loaded, err := LoadCheckpointWithConfig(path, cfg, WithRand(rand.New(rand.NewSource(100))))
	require.NoError(t, err)

	require.Equal(t, pop.Generation, loaded.Generation)
	require.Equal(t, pop.CompatThreshold, loaded.CompatThreshold)
	require.Equal(t, pop.BestHistory, loaded.BestHistory)
	require.Equal(t, pop.MeanHistory, loaded.MeanHistory)
	require.Len(t, loaded.Genomes, len(pop.Genomes))
	require.Equal(t, pop.nextGenomeID, loaded.nextGenomeID)
	require.Equal(t, pop.nextSpeciesID, loaded.nextSpeciesID)
	require.NotNil(t, loaded.BestEver)
	require.Equal(t, pop.BestEver.Fitness, loaded.BestEver.Fitness)

	// Config pointers are relinked, not persisted.
	for _, g := range loaded.Genomes {
		require.Same(t, &cfg.Genome, g.Config)
	}

	// The ledger counter was re-observed: new innovations never collide
	// with loaded ones.
	maxInnov := 0
	for _, g := range loaded.Genomes {
		if innov := g.maxInnovation(); innov > maxInnov {
			maxInnov = innov
		}
	}
	require.Greater(t, loaded.ledger.Assign(ConnKey{In: 998, Out: 999}), maxInnov)

	// A restored population keeps evolving.
	evaluateAll(loaded)
	require.NoError(t, loaded.Epoch())
	require.Len(t, loaded.Genomes, cfg.Neat.PopSize)
}

func TestLoadCheckpointMissingFile(t *testing.T) {
	cfg := testPopulationConfig()
	_, err := LoadCheckpointWithConfig(filepath.Join(t.TempDir(), "nope.gz"), cfg)
	require.Error(t, err)
}
