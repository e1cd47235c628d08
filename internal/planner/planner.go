// Package planner turns a Discovery Table snapshot into a deterministic
// assignment of chunks to the providers that will be asked to serve
// them, balancing load against self-advertised rate.
package planner

import (
	"fmt"
	"sort"

	"github.com/tkavi/p2pflood/internal/discovery"
)

// Assignment is one provider's share of a plan: the ordered chunk
// indices it will be asked to serve. Plan keys assignments by the
// provider's "ip:port".
type Assignment struct {
	Provider discovery.ProviderRecord
	Chunks   []int
}

// Plan runs the assignment algorithm over a provider-vector snapshot.
// Chunks with zero providers are silently omitted; the caller simply
// lacks that chunk, since no provider exists to request it from.
func Plan(providers [][]discovery.ProviderRecord) map[string]*Assignment {
	plan := make(map[string]*Assignment)

	for i, candidates := range providers {
		if len(candidates) == 0 {
			continue
		}

		sorted := make([]discovery.ProviderRecord, len(candidates))
		copy(sorted, candidates)
		sort.SliceStable(sorted, func(a, b int) bool {
			return sorted[a].Rate > sorted[b].Rate
		})

		best := sorted[0]
		bestLoad := loadOf(plan, best)
		for _, cand := range sorted[1:] {
			load := loadOf(plan, cand)
			if load < bestLoad {
				best = cand
				bestLoad = load
			}
		}

		key := providerKey(best)
		a, ok := plan[key]
		if !ok {
			a = &Assignment{Provider: best}
			plan[key] = a
		}
		a.Chunks = append(a.Chunks, i)
	}

	return plan
}

func loadOf(plan map[string]*Assignment, p discovery.ProviderRecord) int {
	a, ok := plan[providerKey(p)]
	if !ok {
		return 0
	}
	return len(a.Chunks)
}

func providerKey(p discovery.ProviderRecord) string {
	return fmt.Sprintf("%s:%d", p.IP, p.Port)
}
