package prize

import (
	"math"
	"math/rand"
	"sync"

	"meeplepoint-rewards/pkg/errutil"
)

// Epsilon bounds how far a drop table's probabilities may drift from 1.0.
const Epsilon = 1e-6

// ValidateTable enforces the drop-table invariant: non-empty, every
// probability in (0,1], cumulative sum within Epsilon of 1.0. Tables that
// fail validation are configuration errors and must never reach Resolve.
func ValidateTable(drops []DropRule) error {
	if len(drops) == 0 {
		return errutil.ValidationFailed("drop table is empty", nil)
	}

	var sum float64
	for _, d := range drops {
		if d.Probability <= 0 || d.Probability > 1 {
			return errutil.ValidationFailed("drop probability out of range", nil,
				errutil.WithDetails(errutil.Detail{Field: "probability", Message: d.Label}))
		}
		if d.Points < 0 {
			return errutil.ValidationFailed("drop points must not be negative", nil)
		}
		if d.Kind != "" && !d.Kind.Valid() {
			return errutil.ValidationFailed("unknown drop kind", nil,
				errutil.WithDetails(errutil.Detail{Field: "kind", Message: string(d.Kind)}))
		}
		sum += d.Probability
	}

	if math.Abs(sum-1.0) > Epsilon {
		return errutil.ValidationFailed("drop probabilities must sum to 1", nil)
	}

	return nil
}

// Resolve picks one drop by walking the table in its stored order and
// accumulating probability until the running total exceeds r, with r drawn
// uniformly from [0,1). If floating error leaves the total short of 1.0 the
// last rule wins; a resolved table never yields "no reward".
func Resolve(drops []DropRule, r float64) DropRule {
	var cum float64
	for _, d := range drops {
		cum += d.Probability
		if r < cum {
			return d
		}
	}
	return drops[len(drops)-1]
}

// Source supplies the uniform draw for Resolve. Production uses a locked
// math/rand source; tests inject a fixed seed.
type Source interface {
	Float64() float64
	Intn(n int) int
	Shuffle(n int, swap func(i, j int))
}

type lockedSource struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewSource returns a concurrency-safe Source seeded with seed.
func NewSource(seed int64) Source {
	return &lockedSource{r: rand.New(rand.NewSource(seed))}
}

func (s *lockedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Float64()
}

func (s *lockedSource) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Intn(n)
}

func (s *lockedSource) Shuffle(n int, swap func(i, j int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.r.Shuffle(n, swap)
}
