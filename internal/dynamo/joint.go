package dynamo

// JointKind identifies the retraction a joint uses when integrating its
// slice of the configuration vector.
type JointKind int

const (
	// Revolute is a single rotation angle; retraction is plain addition.
	Revolute JointKind = iota
	// Prismatic is a single translation; retraction is plain addition.
	Prismatic
	// Spherical is a free rotation stored as a unit quaternion (w, x, y, z)
	// with a 3-dimensional angular-velocity tangent.
	Spherical
	// FreeFlyer is a translation (3) plus a unit quaternion (4) with a
	// 6-dimensional (linear, angular) tangent.
	FreeFlyer
	// Translation3 is an unconstrained 3-d point (no orientation); flat,
	// so retraction is plain per-component addition.
	Translation3
)

func (k JointKind) QDim() int {
	switch k {
	case Revolute, Prismatic:
		return 1
	case Spherical:
		return 4
	case FreeFlyer:
		return 7
	case Translation3:
		return 3
	default:
		return 0
	}
}

func (k JointKind) VDim() int {
	switch k {
	case Revolute, Prismatic:
		return 1
	case Spherical:
		return 3
	case FreeFlyer:
		return 6
	case Translation3:
		return 3
	default:
		return 0
	}
}

// JointSpec places one joint's configuration and tangent slices within a
// Layout's Q and V buffers.
type JointSpec struct {
	Name   string
	Kind   JointKind
	QIndex int
	VIndex int
}

func (j JointSpec) qDim() int { return j.Kind.QDim() }
func (j JointSpec) vDim() int { return j.Kind.VDim() }

// Layout is the ordered joint description shared by every State built for
// one model. It is immutable once built and safe to share across states.
type Layout struct {
	Joints []JointSpec
	QDim   int
	VDim   int
}

// NewLayout lays out the given joints in order, deriving each one's QIndex
// and VIndex from the running offsets, and returns the finished Layout.
func NewLayout(kinds ...JointKind) *Layout {
	names := make([]string, len(kinds))
	for i := range names {
		names[i] = ""
	}
	return NewNamedLayout(names, kinds)
}

// NewNamedLayout is like NewLayout but assigns a name to each joint, used
// by oracles to look up a joint's slice by name.
func NewNamedLayout(names []string, kinds []JointKind) *Layout {
	l := &Layout{Joints: make([]JointSpec, len(kinds))}
	qOff, vOff := 0, 0
	for i, k := range kinds {
		l.Joints[i] = JointSpec{Name: names[i], Kind: k, QIndex: qOff, VIndex: vOff}
		qOff += k.QDim()
		vOff += k.VDim()
	}
	l.QDim, l.VDim = qOff, vOff
	return l
}

// JointByName returns the joint spec with the given name and true, or the
// zero value and false if no joint has that name.
func (l *Layout) JointByName(name string) (JointSpec, bool) {
	for _, j := range l.Joints {
		if j.Name == name {
			return j, true
		}
	}
	return JointSpec{}, false
}
