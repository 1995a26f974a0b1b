package mooney

import (
	"sort"
)

// PendingQueue is the lexicographically sorted set of source filenames that
// have no ledger record yet. It is always derived, never stored.
type PendingQueue []string

// ComputePending returns sorted(sources) minus processed.
func ComputePending(sources []string, processed map[string]struct{}) PendingQueue {
	q := make(PendingQueue, 0, len(sources))
	for _, name := range sources {
		if _, done := processed[name]; done {
			continue
		}
		q = append(q, name)
	}
	sort.Strings(q)
	return q
}

func (q PendingQueue) Len() int {
	return len(q)
}

// Head is the filename the stage is currently positioned on.
func (q PendingQueue) Head() (string, bool) {
	if len(q) == 0 {
		return "", false
	}
	return q[0], true
}
