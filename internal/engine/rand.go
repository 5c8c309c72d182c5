package engine

import (
	"math"
	mathrand "math/rand"
	"sync"
	"time"
)

// Source is the engine's only randomness provider. Seeded construction keeps
// the market and exit simulations reproducible in tests; the mutex lets the
// tick worker and request handlers share one stream.
type Source struct {
	mu   sync.Mutex
	rand *mathrand.Rand
}

func NewSource(seed int64) *Source {
	return &Source{rand: mathrand.New(mathrand.NewSource(seed))}
}

func NewTimeSource() *Source {
	return NewSource(time.Now().UnixNano())
}

func (s *Source) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rand.Float64()
}

// Between draws uniformly from [lo, hi).
func (s *Source) Between(lo, hi float64) float64 {
	return lo + s.Float64()*(hi-lo)
}

// NormFloat64 returns a standard-normal sample via the Box-Muller transform.
// u is re-drawn while it is exactly 0 so log(u) stays finite.
func (s *Source) NormFloat64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.rand.Float64()
	for u == 0 {
		u = s.rand.Float64()
	}
	v := s.rand.Float64()
	return math.Sqrt(-2*math.Log(u)) * math.Cos(2*math.Pi*v)
}
