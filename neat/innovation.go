package neat

// InnovationLedger issues innovation ids for structural mutations. Two
// genomes that independently discover the same structural mutation (the
// same (source, target) connection) within one generation receive the same
// innovation id, which is what lets crossover and compatibility distance
// align genes across genomes.
//
// The ledger is generation-scoped state: the Population resets it exactly
// once per generation boundary. The id counter itself is never reset, so
// ids stay monotonic for the lifetime of a run. The ledger is not safe for
// concurrent use; only one generation's structural mutation should be in
// flight at a time.
type InnovationLedger struct {
	next int
	seen map[ConnKey]int
}

// NewInnovationLedger creates an empty ledger. Innovation ids start at 1.
func NewInnovationLedger() *InnovationLedger {
	return &InnovationLedger{
		next: 1,
		seen: make(map[ConnKey]int),
	}
}

// Assign returns the innovation id for the given structural mutation,
// reusing the id if the same (source, target) pair was already assigned
// this generation, otherwise issuing the next id.
func (l *InnovationLedger) Assign(key ConnKey) int {
	if innov, ok := l.seen[key]; ok {
		return innov
	}
	innov := l.next
	l.next++
	l.seen[key] = innov
	return innov
}

// Reset clears the per-generation mutation record. The id counter is
// preserved so ids remain monotonic across generations. Call this exactly
// once at each generation boundary.
func (l *InnovationLedger) Reset() {
	l.seen = make(map[ConnKey]int)
}

// Observe advances the id counter past an externally created innovation id
// (for example, one read back from a serialized genome or checkpoint), so
// future assignments never collide with it.
func (l *InnovationLedger) Observe(innov int) {
	if innov >= l.next {
		l.next = innov + 1
	}
}
