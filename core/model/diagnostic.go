package model

// Constraint identifies the entry of the instantaneous priority chain that
// clipped the applied delta during a cycle.
type Constraint uint8

const (
	ConstraintNone Constraint = iota
	ConstraintSOCMax
	ConstraintUMax
	ConstraintTMaxCharge
	ConstraintSOCMin
	ConstraintUMin
	ConstraintTMaxDischarge
	ConstraintIMax
	ConstraintIMin
)

var constraintNames = [...]string{
	ConstraintNone:          "none",
	ConstraintSOCMax:        "soc_max",
	ConstraintUMax:          "u_max",
	ConstraintTMaxCharge:    "t_max_charge",
	ConstraintSOCMin:        "soc_min",
	ConstraintUMin:          "u_min",
	ConstraintTMaxDischarge: "t_max_discharge",
	ConstraintIMax:          "i_max",
	ConstraintIMin:          "i_min",
}

func (c Constraint) String() string {
	if int(c) < len(constraintNames) {
		return constraintNames[c]
	}
	return "unknown"
}

// ParseConstraint returns the constraint with the given name.
func ParseConstraint(s string) (Constraint, bool) {
	for i, n := range constraintNames {
		if n == s {
			return Constraint(i), true
		}
	}
	return ConstraintNone, false
}

// Outcome describes how the bounding current search terminated.
type Outcome uint8

const (
	// OutcomeExhausted means the iteration budget was spent.
	OutcomeExhausted Outcome = iota
	// OutcomeCritical means zero current already violates a constraint.
	OutcomeCritical
	// OutcomeUnconstrained means the far current bound is feasible.
	OutcomeUnconstrained
	// OutcomeConverged means the bracket shrank below the tolerance.
	OutcomeConverged
)

func (o Outcome) String() string {
	switch o {
	case OutcomeExhausted:
		return "exhausted"
	case OutcomeCritical:
		return "critical"
	case OutcomeUnconstrained:
		return "unconstrained"
	case OutcomeConverged:
		return "converged"
	default:
		return "unknown"
	}
}
