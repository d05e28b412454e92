package profiler

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFaultSequence(t *testing.T) {
	f := FaultSequence(false, true, true)

	assert.Equal(t, "images", f.Inject("images"))
	assert.Equal(t, "imagesfail", f.Inject("images"))
	assert.Equal(t, "hostsfail", f.Inject("hosts"))
	assert.Equal(t, "hosts", f.Inject("hosts"), "calls past the pattern are untouched")
}

func TestRandomFaults(t *testing.T) {
	tests := []struct {
		name        string
		probability float64
		wantAll     bool
		wantNone    bool
	}{
		{name: "never", probability: 0, wantNone: true},
		{name: "always", probability: 1, wantAll: true},
		{name: "sometimes", probability: 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := RandomFaults(tt.probability, rand.NewSource(7))
			hits := 0
			for i := 0; i < 200; i++ {
				if f.Inject("p") == "p"+FaultSuffix {
					hits++
				}
			}
			switch {
			case tt.wantAll:
				assert.Equal(t, 200, hits)
			case tt.wantNone:
				assert.Equal(t, 0, hits)
			default:
				assert.Greater(t, hits, 0)
				assert.Less(t, hits, 200)
			}
		})
	}
}

func TestRandomFaults_SeededSequenceIsReproducible(t *testing.T) {
	a := RandomFaults(0.3, rand.NewSource(42))
	b := RandomFaults(0.3, rand.NewSource(42))
	for i := 0; i < 50; i++ {
		assert.Equal(t, a.Inject("p"), b.Inject("p"), "call %d", i)
	}
}
