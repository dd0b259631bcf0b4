package metrics

import (
	"math"

	"github.com/rigidkernel/simkernel/internal/dynamo"
)

// Stability tracks the fraction of samples whose configuration or
// velocity components all stayed within threshold in magnitude.
type Stability struct {
	name       string
	threshold  float64
	violations int
	samples    int
}

// NewStability returns a Stability metric flagging any Q or V component
// exceeding threshold in absolute value.
func NewStability(threshold float64) *Stability {
	return &Stability{
		name:      "stability",
		threshold: threshold,
	}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(x dynamo.State, u dynamo.Control, t float64) {
	s.samples++
	for _, val := range x.Q {
		if math.Abs(val) > s.threshold {
			s.violations++
			return
		}
	}
	for _, val := range x.V {
		if math.Abs(val) > s.threshold {
			s.violations++
			return
		}
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}
