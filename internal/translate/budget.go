package translate

import "sync"

// Budget caps requests per provider within one run. A zero cap means
// unlimited; providers without an entry are unlimited too.
type Budget struct {
	mu     sync.Mutex
	caps   map[string]int
	counts map[string]int
}

// NewBudget builds a budget from provider name to cap.
func NewBudget(caps map[string]int) *Budget {
	return &Budget{
		caps:   caps,
		counts: make(map[string]int),
	}
}

// Allow reports whether the provider still has budget left.
func (b *Budget) Allow(provider string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	cap, ok := b.caps[provider]
	if !ok || cap <= 0 {
		return true
	}
	return b.counts[provider] < cap
}

// Use consumes one request from the provider's budget.
func (b *Budget) Use(provider string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.counts[provider]++
}

// Used returns how many requests the provider has made.
func (b *Budget) Used(provider string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.counts[provider]
}
