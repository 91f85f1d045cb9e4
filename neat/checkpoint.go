package neat

import (
	"compress/gzip"
	"encoding/gob"
	"fmt"
	"os"
)

// populationSaveData holds the parts of a Population worth persisting. The
// top-level Config is not saved; it is reloaded from its original file so
// that tuning parameters can change between a save and a resume. The
// innovation ledger is generation-scoped and is reconstructed from the
// loaded genomes.
type populationSaveData struct {
	Genomes         []*Genome
	Species         []*Species
	CompatThreshold float64
	Generation      int
	BestEver        *Genome
	BestHistory     []float64
	MeanHistory     []float64
	NextGenomeID    int
	NextSpeciesID   int
}

// SaveCheckpoint writes the population state to a gzip-compressed gob file.
func (p *Population) SaveCheckpoint(filePath string) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create checkpoint file '%s': %w", filePath, err)
	}
	defer file.Close()

	gzWriter := gzip.NewWriter(file)
	defer gzWriter.Close()

	saveData := populationSaveData{
		Genomes:         p.Genomes,
		Species:         p.Species,
		CompatThreshold: p.CompatThreshold,
		Generation:      p.Generation,
		BestEver:        p.BestEver,
		BestHistory:     p.BestHistory,
		MeanHistory:     p.MeanHistory,
		NextGenomeID:    p.nextGenomeID,
		NextSpeciesID:   p.nextSpeciesID,
	}

	registerCheckpointTypes()

	encoder := gob.NewEncoder(gzWriter)
	if err := encoder.Encode(saveData); err != nil {
		return fmt.Errorf("failed to encode population data: %w", err)
	}

	p.log.Info("checkpoint saved", "path", filePath, "generation", p.Generation)
	return nil
}

// LoadCheckpoint restores a Population from a checkpoint file. It requires
// the configuration file path to reconstruct the Config, which gob does not
// persist. Options apply as in NewPopulation.
func LoadCheckpoint(checkpointPath string, configPath string, opts ...Option) (*Population, error) {
	config, err := LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config '%s' for checkpoint: %w", configPath, err)
	}
	return LoadCheckpointWithConfig(checkpointPath, config, opts...)
}

// LoadCheckpointWithConfig restores a Population from a checkpoint file
// against an already constructed Config.
func LoadCheckpointWithConfig(checkpointPath string, config *Config, opts ...Option) (*Population, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	file, err := os.Open(checkpointPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint file '%s': %w", checkpointPath, err)
	}
	defer file.Close()

	gzReader, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader for checkpoint: %w", err)
	}
	defer gzReader.Close()

	registerCheckpointTypes()

	saveData := populationSaveData{}
	decoder := gob.NewDecoder(gzReader)
	if err := decoder.Decode(&saveData); err != nil {
		return nil, fmt.Errorf("failed to decode population data from checkpoint: %w", err)
	}

	p, err := NewPopulation(config, opts...)
	if err != nil {
		return nil, err
	}

	p.Genomes = saveData.Genomes
	p.Species = saveData.Species
	p.CompatThreshold = saveData.CompatThreshold
	p.Generation = saveData.Generation
	p.BestEver = saveData.BestEver
	p.BestHistory = saveData.BestHistory
	p.MeanHistory = saveData.MeanHistory
	p.nextGenomeID = saveData.NextGenomeID
	p.nextSpeciesID = saveData.NextSpeciesID

	// Point every loaded genome at the caller's config (superseding
	// whatever parameters were in effect at save time) and advance the
	// ledger counter past every innovation id seen in the loaded state.
	p.ledger = NewInnovationLedger()
	relink := func(g *Genome) {
		if g == nil {
			return
		}
		g.Config = &config.Genome
		for _, cg := range g.Conns {
			p.ledger.Observe(cg.Innovation)
		}
	}
	for _, g := range p.Genomes {
		relink(g)
	}
	for _, s := range p.Species {
		relink(s.Representative)
		for _, g := range s.Members {
			relink(g)
		}
	}
	relink(p.BestEver)

	p.log.Info("checkpoint loaded", "path", checkpointPath, "generation", p.Generation)
	return p, nil
}

func registerCheckpointTypes() {
	gob.Register(map[ConnKey]*ConnectionGene{})
	gob.Register([]*Genome{})
	gob.Register([]*Species{})
}
