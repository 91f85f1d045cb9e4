package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/baldhumanity/neatevo/neat"
)

// Store archives evolution runs in a SQLite database. Each Store instance
// represents one run, identified by a generated uuid; generation statistics
// and full genome serializations are written as the run progresses, so
// several runs can share one database file for later comparison.
type Store struct {
	path  string
	runID string

	mu sync.Mutex
	db *sql.DB
}

// NewStore opens (or creates) the database at path and registers a new run
// with the given label.
func NewStore(ctx context.Context, path, label string) (*Store, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive '%s': %w", path, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping archive '%s': %w", path, err)
	}
	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	runID := uuid.NewString()
	_, err = db.ExecContext(ctx, `
		INSERT INTO runs (id, label, created_at)
		VALUES (?, ?, ?)
	`, runID, label, time.Now().UTC())
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to register run: %w", err)
	}

	return &Store{path: path, runID: runID, db: db}, nil
}

// RunID returns the uuid identifying this run in the archive.
func (s *Store) RunID() string { return s.runID }

// RecordGeneration writes the generation's summary statistics and one row
// per genome, in a single transaction.
func (s *Store) RecordGeneration(generation int, genomes []*neat.Genome) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return errors.New("archive store is closed")
	}

	best, mean := summarize(genomes)

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin archive transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO generations (run_id, generation, best_fitness, mean_fitness, num_genomes, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, s.runID, generation, best, mean, len(genomes), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to archive generation %d: %w", generation, err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO genomes (run_id, generation, genome_id, species_id, parent1, parent2, fitness, genotype)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare genome insert: %w", err)
	}
	defer stmt.Close()

	for _, g := range genomes {
		if _, err := stmt.Exec(s.runID, generation, g.ID, g.SpeciesID, g.Parent1, g.Parent2, g.Fitness, g.String()); err != nil {
			return fmt.Errorf("failed to archive genome %d: %w", g.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit archive transaction: %w", err)
	}
	return nil
}

// LoadGenome reads back one archived genome by run, generation and id. The
// returned genome carries no config; callers must attach one before using
// it for anything beyond inspection.
func (s *Store) LoadGenome(ctx context.Context, runID string, generation, genomeID int) (*neat.Genome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil, errors.New("archive store is closed")
	}

	var genotype string
	err := s.db.QueryRowContext(ctx, `
		SELECT genotype FROM genomes
		WHERE run_id = ? AND generation = ? AND genome_id = ?
	`, runID, generation, genomeID).Scan(&genotype)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("genome %d not found in run %s generation %d", genomeID, runID, generation)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load genome %d: %w", genomeID, err)
	}

	g := &neat.Genome{}
	if err := g.UnmarshalText([]byte(genotype)); err != nil {
		return nil, fmt.Errorf("failed to parse archived genome %d: %w", genomeID, err)
	}
	return g, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func summarize(genomes []*neat.Genome) (best, mean float64) {
	if len(genomes) == 0 {
		return 0, 0
	}
	best = genomes[0].Fitness
	sum := 0.0
	for _, g := range genomes {
		if g.Fitness > best {
			best = g.Fitness
		}
		sum += g.Fitness
	}
	return best, sum / float64(len(genomes))
}

func createTables(ctx context.Context, db *sql.DB) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS runs (
		id         TEXT PRIMARY KEY,
		label      TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);
	CREATE TABLE IF NOT EXISTS generations (
		run_id       TEXT NOT NULL REFERENCES runs(id),
		generation   INTEGER NOT NULL,
		best_fitness REAL NOT NULL,
		mean_fitness REAL NOT NULL,
		num_genomes  INTEGER NOT NULL,
		recorded_at  TIMESTAMP NOT NULL,
		PRIMARY KEY (run_id, generation)
	);
	CREATE TABLE IF NOT EXISTS genomes (
		run_id     TEXT NOT NULL REFERENCES runs(id),
		generation INTEGER NOT NULL,
		genome_id  INTEGER NOT NULL,
		species_id INTEGER NOT NULL,
		parent1    INTEGER NOT NULL,
		parent2    INTEGER NOT NULL,
		fitness    REAL NOT NULL,
		genotype   TEXT NOT NULL,
		PRIMARY KEY (run_id, generation, genome_id)
	);`

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create archive tables: %w", err)
	}
	return nil
}
