package neat

import (
	"fmt"

	"gopkg.in/ini.v1"
)

// Config stores the configuration parameters for the evolution engine.
type Config struct {
	Neat         NeatConfig
	Genome       GenomeConfig
	Speciation   SpeciationConfig
	Reproduction ReproductionConfig
	Stagnation   StagnationConfig
	Lexicase     LexicaseConfig
}

// NeatConfig holds top-level run parameters.
type NeatConfig struct {
	PopSize int `ini:"pop_size"`
	// Seed is the RNG seed used when the caller does not inject its own
	// random source. Zero means seed from the current time.
	Seed int64 `ini:"seed"`
}

// GenomeConfig holds parameters specific to the structure and mutation of
// genomes.
type GenomeConfig struct {
	NumInputs  int `ini:"num_inputs"`
	NumOutputs int `ini:"num_outputs"`

	// If true, connections that would close a cycle are disallowed.
	FeedForward bool `ini:"feed_forward"`

	// --- Connection weight parameters ---
	WeightMinValue    float64 `ini:"weight_min_value"`
	WeightMaxValue    float64 `ini:"weight_max_value"`
	WeightInitStdev   float64 `ini:"weight_init_stdev"`
	WeightMutateRate  float64 `ini:"weight_mutate_rate"`
	WeightReplaceRate float64 `ini:"weight_replace_rate"`
	WeightMutatePower float64 `ini:"weight_mutate_power"`
	ToggleEnableRate  float64 `ini:"toggle_enable_rate"`

	// --- Structural mutation rates ---
	NodeAddProb float64 `ini:"node_add_prob"`
	ConnAddProb float64 `ini:"conn_add_prob"`

	// --- Compatibility distance coefficients ---
	ExcessCoefficient   float64 `ini:"excess_coefficient"`
	DisjointCoefficient float64 `ini:"disjoint_coefficient"`
	WeightCoefficient   float64 `ini:"weight_coefficient"`

	// --- Phenotype output scaling ---
	OutputMinValue float64 `ini:"output_min_value"`
	OutputMaxValue float64 `ini:"output_max_value"`
}

// SpeciationConfig holds parameters for species assignment and the adaptive
// compatibility threshold, plus the age-based fitness adjustments applied
// when allocating offspring.
type SpeciationConfig struct {
	CompatibilityThreshold float64 `ini:"compatibility_threshold"`
	// CompatibilityChange is the fixed step the threshold moves by when the
	// species count drifts away from TargetSpecies. It is also the floor the
	// threshold never drops below.
	CompatibilityChange float64 `ini:"compatibility_change"`
	TargetSpecies       int     `ini:"target_species"`

	YouthThreshold int     `ini:"youth_threshold"`
	YouthBoost     float64 `ini:"youth_boost"`
	OldThreshold   int     `ini:"old_threshold"`
	OldPenalty     float64 `ini:"old_penalty"`
}

// ReproductionConfig holds parameters related to reproduction.
type ReproductionConfig struct {
	Elitism           bool    `ini:"elitism"`
	SurvivalThreshold float64 `ini:"survival_threshold"`
	TournamentSize    int     `ini:"tournament_size"`
}

// StagnationConfig holds parameters related to species stagnation.
type StagnationConfig struct {
	MaxStagnation      int    `ini:"max_stagnation"`
	SpeciesFitnessFunc string `ini:"species_fitness_func"`
}

// LexicaseConfig holds parameters for lexicase selection over
// multi-objective vector genomes.
type LexicaseConfig struct {
	TournamentSize int     `ini:"tournament_size"`
	Tolerance      float64 `ini:"tolerance"`
	// If true, the objective ordering is drawn by weighted roulette using
	// the objectives' weights instead of a uniform shuffle.
	WeightedOrdering bool `ini:"weighted_ordering"`
}

// DefaultConfig returns a configuration with the engine's standard defaults.
// Callers typically adjust num_inputs/num_outputs and pop_size.
func DefaultConfig() *Config {
	return &Config{
		Neat: NeatConfig{
			PopSize: 150,
		},
		Genome: GenomeConfig{
			NumInputs:           2,
			NumOutputs:          1,
			FeedForward:         true,
			WeightMinValue:      -30.0,
			WeightMaxValue:      30.0,
			WeightInitStdev:     1.0,
			WeightMutateRate:    0.8,
			WeightReplaceRate:   0.1,
			WeightMutatePower:   0.5,
			ToggleEnableRate:    0.01,
			NodeAddProb:         0.03,
			ConnAddProb:         0.05,
			ExcessCoefficient:   1.0,
			DisjointCoefficient: 1.0,
			WeightCoefficient:   0.4,
			OutputMinValue:      0.0,
			OutputMaxValue:      1.0,
		},
		Speciation: SpeciationConfig{
			CompatibilityThreshold: 3.0,
			CompatibilityChange:    0.3,
			TargetSpecies:          10,
			YouthThreshold:         10,
			YouthBoost:             1.2,
			OldThreshold:           30,
			OldPenalty:             0.2,
		},
		Reproduction: ReproductionConfig{
			Elitism:           true,
			SurvivalThreshold: 0.2,
			TournamentSize:    2,
		},
		Stagnation: StagnationConfig{
			MaxStagnation:      15,
			SpeciesFitnessFunc: "mean",
		},
		Lexicase: LexicaseConfig{
			TournamentSize: 7,
			Tolerance:      0.1,
		},
	}
}

// LoadConfig loads configuration parameters from an INI file. Keys absent
// from the file keep the DefaultConfig values for their section.
func LoadConfig(filePath string) (*Config, error) {
	src, err := ini.LoadSources(ini.LoadOptions{
		IgnoreInlineComment:         true,
		UnescapeValueCommentSymbols: true,
	}, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file '%s': %w", filePath, err)
	}

	config := DefaultConfig()

	if err := src.Section("NEAT").MapTo(&config.Neat); err != nil {
		return nil, fmt.Errorf("failed to map [NEAT] section: %w", err)
	}
	if err := src.Section("Genome").MapTo(&config.Genome); err != nil {
		return nil, fmt.Errorf("failed to map [Genome] section: %w", err)
	}
	if err := src.Section("Speciation").MapTo(&config.Speciation); err != nil {
		return nil, fmt.Errorf("failed to map [Speciation] section: %w", err)
	}
	if err := src.Section("Reproduction").MapTo(&config.Reproduction); err != nil {
		return nil, fmt.Errorf("failed to map [Reproduction] section: %w", err)
	}
	if err := src.Section("Stagnation").MapTo(&config.Stagnation); err != nil {
		return nil, fmt.Errorf("failed to map [Stagnation] section: %w", err)
	}
	if err := src.Section("Lexicase").MapTo(&config.Lexicase); err != nil {
		return nil, fmt.Errorf("failed to map [Lexicase] section: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks the configuration for values the engine cannot run with.
func (c *Config) Validate() error {
	if c.Neat.PopSize <= 0 {
		return fmt.Errorf("config error: pop_size must be positive")
	}
	if c.Genome.NumInputs <= 0 {
		return fmt.Errorf("config error: num_inputs must be positive")
	}
	if c.Genome.NumOutputs <= 0 {
		return fmt.Errorf("config error: num_outputs must be positive")
	}
	if c.Genome.WeightMaxValue < c.Genome.WeightMinValue {
		return fmt.Errorf("config error: weight_max_value cannot be less than weight_min_value")
	}
	if c.Genome.OutputMaxValue < c.Genome.OutputMinValue {
		return fmt.Errorf("config error: output_max_value cannot be less than output_min_value")
	}
	for name, rate := range map[string]float64{
		"weight_mutate_rate":  c.Genome.WeightMutateRate,
		"weight_replace_rate": c.Genome.WeightReplaceRate,
		"toggle_enable_rate":  c.Genome.ToggleEnableRate,
		"node_add_prob":       c.Genome.NodeAddProb,
		"conn_add_prob":       c.Genome.ConnAddProb,
	} {
		if rate < 0 || rate > 1 {
			return fmt.Errorf("config error: %s must be between 0 and 1", name)
		}
	}
	if c.Genome.ExcessCoefficient < 0 || c.Genome.DisjointCoefficient < 0 || c.Genome.WeightCoefficient < 0 {
		return fmt.Errorf("config error: compatibility coefficients cannot be negative")
	}
	if c.Speciation.CompatibilityThreshold <= 0 {
		return fmt.Errorf("config error: compatibility_threshold must be positive")
	}
	if c.Speciation.CompatibilityChange <= 0 {
		return fmt.Errorf("config error: compatibility_change must be positive")
	}
	if c.Speciation.TargetSpecies <= 0 {
		return fmt.Errorf("config error: target_species must be positive")
	}
	if c.Speciation.YouthBoost < 1 {
		return fmt.Errorf("config error: youth_boost must be at least 1")
	}
	if c.Speciation.OldPenalty < 0 || c.Speciation.OldPenalty > 1 {
		return fmt.Errorf("config error: old_penalty must be between 0 and 1")
	}
	if c.Reproduction.SurvivalThreshold <= 0 || c.Reproduction.SurvivalThreshold > 1 {
		return fmt.Errorf("config error: survival_threshold must be in (0, 1]")
	}
	if c.Reproduction.TournamentSize <= 0 {
		return fmt.Errorf("config error: tournament_size must be positive")
	}
	if c.Stagnation.MaxStagnation <= 0 {
		return fmt.Errorf("config error: max_stagnation must be positive")
	}
	if _, ok := StatFunctions[c.Stagnation.SpeciesFitnessFunc]; !ok {
		return fmt.Errorf("config error: invalid species_fitness_func '%s'", c.Stagnation.SpeciesFitnessFunc)
	}
	if c.Lexicase.TournamentSize <= 0 {
		return fmt.Errorf("config error: lexicase tournament_size must be positive")
	}
	if c.Lexicase.Tolerance < 0 {
		return fmt.Errorf("config error: lexicase tolerance cannot be negative")
	}
	return nil
}
