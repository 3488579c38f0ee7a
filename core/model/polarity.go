package model

// Polarity is the operating phase reported by the phase detector. It selects
// which open-circuit voltage curve the voltage model uses.
type Polarity int

const (
	Charge Polarity = iota
	Discharge
)

func (p Polarity) String() string {
	switch p {
	case Charge:
		return "charge"
	case Discharge:
		return "discharge"
	default:
		return "unknown"
	}
}
