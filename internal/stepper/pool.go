package stepper

import (
	"sync"

	"github.com/rigidkernel/simkernel/internal/dynamo"
)

// buffers holds every tangent-space scratch vector a single TryStep call
// needs, plus one scratch State for the stage evaluations. Reusing one
// buffers value per step (rather than allocating fresh slices per stage)
// is the "bounded buffer reuse" non-goal from spec.md §1, grounded on
// _examples/san-kum-dynsim/internal/sim/pool.go's StatePool.
type buffers struct {
	xi     dynamo.State // scratch state passed to each stage's derivative
	incr   []float64    // stage increment accumulator, length tangentDim
	errVec []float64    // weighted error increment, length tangentDim
	other  dynamo.State // x ⊕ errVec, for the error-norm difference
	diff   []float64    // mainSolution ⊖ other
	scale  []float64    // per-component relative scale
	scaled []float64    // diff rescaled by 1/scale
}

// bufferPool is a sync.Pool of buffers sized for one tangent dimension.
// A Stepper only ever integrates states of a fixed layout, so all pooled
// buffers share tangentDim once established.
type bufferPool struct {
	tangentDim int
	qDim       int
	vDim       int
	pool       sync.Pool
}

func newBufferPool(tangentDim int) *bufferPool {
	vDim := tangentDim / 2
	bp := &bufferPool{tangentDim: tangentDim, vDim: vDim}
	bp.pool.New = func() any {
		return &buffers{
			incr:   make([]float64, tangentDim),
			errVec: make([]float64, tangentDim),
			diff:   make([]float64, tangentDim),
			scale:  make([]float64, tangentDim),
			scaled: make([]float64, tangentDim),
		}
	}
	return bp
}

// get retrieves a buffers value. Its two scratch States start empty and
// are allocated by dynamo.State.Sum the first time a step writes into them.
func (bp *bufferPool) get() *buffers {
	return bp.pool.Get().(*buffers)
}

func (bp *bufferPool) put(b *buffers) {
	bp.pool.Put(b)
}
