// Package archive provides statistics sinks for evolution runs: a flat CSV
// generation log and a SQLite-backed archive. Both satisfy neat.Recorder.
package archive

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/baldhumanity/neatevo/neat"
)

// GenerationLog appends one CSV row per genome per generation. With genome
// output enabled each row also carries the genome's full text serialization,
// so a run can be replayed individual by individual.
type GenerationLog struct {
	file          *os.File
	writer        *csv.Writer
	includeGenome bool
	wroteHeader   bool
}

// NewGenerationLog creates (or truncates) the log file at path.
func NewGenerationLog(path string, includeGenome bool) (*GenerationLog, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create generation log '%s': %w", path, err)
	}
	return &GenerationLog{
		file:          file,
		writer:        csv.NewWriter(file),
		includeGenome: includeGenome,
	}, nil
}

// RecordGeneration writes one row per genome and flushes the file, so a
// crashed run keeps all completed generations.
func (l *GenerationLog) RecordGeneration(generation int, genomes []*neat.Genome) error {
	if !l.wroteHeader {
		header := []string{"Gen", "Ind", "GenomeID", "Parent1", "Parent2", "Fitness"}
		if l.includeGenome {
			header = append(header, "Genome")
		}
		if err := l.writer.Write(header); err != nil {
			return fmt.Errorf("failed to write generation log header: %w", err)
		}
		l.wroteHeader = true
	}

	for i, g := range genomes {
		row := []string{
			strconv.Itoa(generation),
			strconv.Itoa(i),
			strconv.Itoa(g.ID),
			strconv.Itoa(g.Parent1),
			strconv.Itoa(g.Parent2),
			strconv.FormatFloat(g.Fitness, 'g', -1, 64),
		}
		if l.includeGenome {
			row = append(row, g.String())
		}
		if err := l.writer.Write(row); err != nil {
			return fmt.Errorf("failed to write generation log row: %w", err)
		}
	}

	l.writer.Flush()
	if err := l.writer.Error(); err != nil {
		return fmt.Errorf("failed to flush generation log: %w", err)
	}
	return nil
}

// Close flushes and closes the log file.
func (l *GenerationLog) Close() error {
	l.writer.Flush()
	if err := l.writer.Error(); err != nil {
		l.file.Close()
		return fmt.Errorf("failed to flush generation log: %w", err)
	}
	return l.file.Close()
}
