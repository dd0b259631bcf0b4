package control

import "github.com/rigidkernel/simkernel/internal/dynamo"

// PID drives the first generalized velocity, V[0], toward Target using
// proportional-integral-derivative feedback. It writes its output into
// the first control channel and zero elsewhere, letting it drive
// single-actuator models without knowledge of the full control
// dimension.
type PID struct {
	Kp, Ki, Kd float64
	Target     float64
	dim        int

	integral float64
	prevErr  float64
	prevT    float64
	first    bool
}

// NewPID returns a PID controller producing a control vector of length
// dim, with only the first entry driven by the feedback law.
func NewPID(kp, ki, kd, target float64, dim int) *PID {
	return &PID{Kp: kp, Ki: ki, Kd: kd, Target: target, dim: dim, first: true}
}

func (p *PID) Compute(x dynamo.State, t float64) dynamo.Control {
	u := make(dynamo.Control, p.dim)
	if len(x.V) == 0 {
		return u
	}

	err := p.Target - x.V[0]

	if p.first {
		p.prevErr = err
		p.prevT = t
		p.first = false
		u[0] = p.Kp * err
		return u
	}

	dt := t - p.prevT
	if dt <= 0 {
		u[0] = p.Kp * err
		return u
	}

	p.integral += err * dt
	derivative := (err - p.prevErr) / dt
	p.prevErr = err
	p.prevT = t

	u[0] = p.Kp*err + p.Ki*p.integral + p.Kd*derivative
	return u
}

// Reset clears integral and derivative state.
func (p *PID) Reset() {
	p.integral = 0
	p.prevErr = 0
	p.first = true
}

func (p *PID) GetParams() map[string]float64 {
	return map[string]float64{"Kp": p.Kp, "Ki": p.Ki, "Kd": p.Kd, "Target": p.Target}
}

func (p *PID) SetParam(name string, value float64) {
	switch name {
	case "Kp":
		p.Kp = value
	case "Ki":
		p.Ki = value
	case "Kd":
		p.Kd = value
	case "Target":
		p.Target = value
	}
}
