package neat

import (
	"bufio"
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Genome text serialization: a line-oriented format sufficient to
// reconstruct an identical genome for checkpoint/replay workflows.
//
//	GenomeStart <genome id>
//	Node <node id> <INPUT|HIDDEN|OUTPUT>
//	Link <innovation> <source> <target> <weight> <enabled>
//	GenomeEnd
//
// Node lines appear in the genome's node order; link lines are sorted by
// innovation id. Weights are written with full precision so the round trip
// is exact. The deserialized genome has no Config attached; callers that
// intend to mutate or decode it must assign one.

// MarshalText serializes the genome into its text form.
func (g *Genome) MarshalText() ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "GenomeStart %d\n", g.ID)
	for _, ng := range g.Nodes {
		fmt.Fprintf(&buf, "Node %d %s\n", ng.ID, ng.Type)
	}

	conns := make([]*ConnectionGene, 0, len(g.Conns))
	for _, cg := range g.Conns {
		conns = append(conns, cg)
	}
	sort.Slice(conns, func(i, j int) bool {
		return conns[i].Innovation < conns[j].Innovation
	})
	for _, cg := range conns {
		fmt.Fprintf(&buf, "Link %d %d %d %s %t\n",
			cg.Innovation, cg.In, cg.Out, strconv.FormatFloat(cg.Weight, 'g', -1, 64), cg.Enabled)
	}
	buf.WriteString("GenomeEnd\n")
	return buf.Bytes(), nil
}

// String returns the genome's text serialization.
func (g *Genome) String() string {
	b, _ := g.MarshalText()
	return string(b)
}

// UnmarshalText reconstructs a genome from its text form, replacing the
// receiver's contents. Fitness, lineage and species assignment are not part
// of the format and are reset.
func (g *Genome) UnmarshalText(data []byte) error {
	scanner := bufio.NewScanner(bytes.NewReader(data))

	if !scanner.Scan() {
		return fmt.Errorf("empty genome serialization")
	}
	fields := strings.Fields(scanner.Text())
	if len(fields) != 2 || fields[0] != "GenomeStart" {
		return fmt.Errorf("malformed genome header %q", scanner.Text())
	}
	id, err := strconv.Atoi(fields[1])
	if err != nil {
		return fmt.Errorf("malformed genome id %q: %w", fields[1], err)
	}

	g.ID = id
	g.Nodes = nil
	g.Conns = make(map[ConnKey]*ConnectionGene)
	g.Fitness = 0
	g.Evaluated = false
	g.SpeciesID = 0
	g.Parent1 = id
	g.Parent2 = id

	sawEnd := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields = strings.Fields(line)
		switch fields[0] {
		case "Node":
			if len(fields) != 3 {
				return fmt.Errorf("malformed node line %q", line)
			}
			nodeID, err := strconv.Atoi(fields[1])
			if err != nil {
				return fmt.Errorf("malformed node id %q: %w", fields[1], err)
			}
			nodeType, err := ParseNodeType(fields[2])
			if err != nil {
				return fmt.Errorf("malformed node line %q: %w", line, err)
			}
			g.Nodes = append(g.Nodes, NewNodeGene(nodeID, nodeType))
		case "Link":
			cg, err := parseLinkLine(fields)
			if err != nil {
				return err
			}
			if _, exists := g.Conns[cg.Key()]; exists {
				return fmt.Errorf("duplicate connection %d->%d in serialization", cg.In, cg.Out)
			}
			g.Conns[cg.Key()] = cg
		case "GenomeEnd":
			sawEnd = true
		default:
			return fmt.Errorf("unrecognized genome line %q", line)
		}
		if sawEnd {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading genome serialization: %w", err)
	}
	if !sawEnd {
		return fmt.Errorf("genome serialization missing GenomeEnd")
	}
	return nil
}

func parseLinkLine(fields []string) (*ConnectionGene, error) {
	if len(fields) != 6 {
		return nil, fmt.Errorf("malformed link line %q", strings.Join(fields, " "))
	}
	innov, err := strconv.Atoi(fields[1])
	if err != nil {
		return nil, fmt.Errorf("malformed innovation id %q: %w", fields[1], err)
	}
	in, err := strconv.Atoi(fields[2])
	if err != nil {
		return nil, fmt.Errorf("malformed link source %q: %w", fields[2], err)
	}
	out, err := strconv.Atoi(fields[3])
	if err != nil {
		return nil, fmt.Errorf("malformed link target %q: %w", fields[3], err)
	}
	weight, err := strconv.ParseFloat(fields[4], 64)
	if err != nil {
		return nil, fmt.Errorf("malformed link weight %q: %w", fields[4], err)
	}
	enabled, err := strconv.ParseBool(fields[5])
	if err != nil {
		return nil, fmt.Errorf("malformed link enabled flag %q: %w", fields[5], err)
	}
	return &ConnectionGene{
		Innovation: innov,
		In:         in,
		Out:        out,
		Weight:     weight,
		Enabled:    enabled,
	}, nil
}
