package profiler

import (
	"math/rand"
	"sync"
)

// FaultSuffix is appended to the request path of an injected failure. The
// console answers the mangled path with an error status.
const FaultSuffix = "fail"

// FaultInjector rewrites the request path of selected calls so they fail.
// It exists to exercise the retry logic and is never enabled by default.
type FaultInjector interface {
	Inject(path string) string
}

type randomFaults struct {
	mu          sync.Mutex
	rng         *rand.Rand
	probability float64
}

// RandomFaults corrupts each call independently with the given probability.
// Passing a seeded source makes the sequence reproducible.
func RandomFaults(probability float64, src rand.Source) FaultInjector {
	return &randomFaults{rng: rand.New(src), probability: probability}
}

func (r *randomFaults) Inject(path string) string {
	r.mu.Lock()
	hit := r.rng.Float64() < r.probability
	r.mu.Unlock()

	if hit {
		return path + FaultSuffix
	}
	return path
}

type faultSequence struct {
	mu      sync.Mutex
	pattern []bool
	next    int
}

// FaultSequence corrupts call i when pattern[i] is true. Calls past the end
// of the pattern are left alone.
func FaultSequence(pattern ...bool) FaultInjector {
	return &faultSequence{pattern: pattern}
}

func (f *faultSequence) Inject(path string) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	i := f.next
	f.next++
	if i < len(f.pattern) && f.pattern[i] {
		return path + FaultSuffix
	}
	return path
}
