package planner

import "github.com/tkavi/p2pflood/internal/discovery"

import "testing"

func TestPlanSkipsChunksWithNoProviders(t *testing.T) {
	providers := [][]discovery.ProviderRecord{
		{}, // chunk 0 has no providers
		{{IP: "10.0.0.2", Port: 9000, Rate: 100}},
	}

	plan := Plan(providers)
	total := 0
	for _, a := range plan {
		total += len(a.Chunks)
	}
	if total != 1 {
		t.Fatalf("expected exactly 1 chunk assigned, got %d", total)
	}
}

func TestPlanPrefersHighestRateOnFirstChunk(t *testing.T) {
	fast := discovery.ProviderRecord{IP: "10.0.0.2", Port: 9000, Rate: 1000}
	slow := discovery.ProviderRecord{IP: "10.0.0.3", Port: 9001, Rate: 10}

	providers := [][]discovery.ProviderRecord{
		{slow, fast},
	}
	plan := Plan(providers)

	if len(plan) != 1 {
		t.Fatalf("expected 1 assignment, got %d", len(plan))
	}
	for _, a := range plan {
		if a.Provider.IP != fast.IP {
			t.Fatalf("expected fastest provider %v chosen, got %v", fast, a.Provider)
		}
	}
}

func TestPlanBalancesLoadAcrossEqualProviders(t *testing.T) {
	a := discovery.ProviderRecord{IP: "10.0.0.2", Port: 9000, Rate: 100}
	b := discovery.ProviderRecord{IP: "10.0.0.3", Port: 9001, Rate: 100}

	// Every chunk sees both providers at the same rate: least-loaded
	// tiebreak should split the four chunks 2/2.
	providers := [][]discovery.ProviderRecord{
		{a, b}, {a, b}, {a, b}, {a, b},
	}
	plan := Plan(providers)

	if len(plan) != 2 {
		t.Fatalf("expected both providers used, got %d assignment(s)", len(plan))
	}
	for _, assignment := range plan {
		if len(assignment.Chunks) != 2 {
			t.Fatalf("expected load split 2/2, got %d for %v", len(assignment.Chunks), assignment.Provider)
		}
	}
}

func TestPlanIsDeterministic(t *testing.T) {
	providers := [][]discovery.ProviderRecord{
		{
			{IP: "10.0.0.2", Port: 9000, Rate: 50},
			{IP: "10.0.0.3", Port: 9001, Rate: 50},
			{IP: "10.0.0.4", Port: 9002, Rate: 200},
		},
	}

	first := Plan(providers)
	second := Plan(providers)

	key := func(m map[string]*Assignment) string {
		for k, a := range m {
			if len(a.Chunks) > 0 {
				return k
			}
		}
		return ""
	}
	if key(first) != key(second) {
		t.Fatalf("Plan is not deterministic across identical inputs: %v vs %v", first, second)
	}
}
