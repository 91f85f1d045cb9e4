// Package neatevo provides a genetic-encoding and population-evolution
// engine in the style of NEAT (NeuroEvolution of Augmenting Topologies).
//
// The engine evolves variable-topology genomes (directed graphs of node
// genes and weighted connection genes) across generations under a
// caller-supplied fitness signal. Structural mutations are tracked with
// historical markings (innovation ids) so that the "same" structural
// change discovered independently in two genomes compares as homologous
// during crossover and compatibility-distance calculations.
//
// The core lives in the neat subpackage: genome representation and
// mutation, innovation-aligned crossover, speciation with an adaptive
// compatibility threshold, stagnation-aware spawn allocation, and two
// selection regimes (tournament selection inside species reproduction,
// and lexicase selection over flat populations with vector fitness).
//
// Fitness evaluation and phenotype execution are external collaborators:
// the engine decodes every genome into a PhenotypeSpec and requires the
// caller to assign fitness before each epoch. A reference feed-forward
// executor is provided in neat/nn, and line-oriented / SQLite statistics
// sinks in neat/archive.
//
// Basic usage:
//
//	config := neat.DefaultConfig()
//	pop, err := neat.NewPopulation(config)
//	if err != nil {
//		log.Fatalf("Error creating population: %v", err)
//	}
//
//	for i := 0; i < 100; i++ {
//		for _, g := range pop.Genomes {
//			g.SetFitness(evaluate(g.Decode()))
//		}
//		if err := pop.Epoch(); err != nil {
//			log.Fatalf("Error running epoch: %v", err)
//		}
//	}
package neatevo
