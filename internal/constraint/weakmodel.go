package constraint

import (
	"weak"

	"github.com/rigidkernel/simkernel/internal/dynamo"
	"github.com/rigidkernel/simkernel/internal/oracle"
)

// ModelRef is the non-owning back-reference a constraint holds to the
// model it operates on (spec.md §3/§9, "shared ownership... weak
// back-reference"). Resolve reports an ErrorKindGeneric KernelError once
// the model has been collected, which the stepper treats as a fatal
// integration error for that step.
type ModelRef struct {
	ptr weak.Pointer[oracle.Model]
}

// NewModelRef makes a weak reference to model. The caller retains
// ownership; model must be kept alive elsewhere (typically by the
// simulation driver) for as long as constraints need to resolve it.
func NewModelRef(model *oracle.Model) ModelRef {
	return ModelRef{ptr: weak.Make(model)}
}

// Resolve returns the referenced model, or an ErrorKindGeneric error if it
// has expired or was never set.
func (r ModelRef) Resolve() (*oracle.Model, error) {
	m := r.ptr.Value()
	if m == nil {
		return nil, dynamo.NewError(dynamo.ErrorKindGeneric, "model pointer expired or unset")
	}
	return m, nil
}
