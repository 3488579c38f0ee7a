package model

import "time"

// CycleInput is one measurement sample handed to the engine. SOC and SOH come
// from external estimators and are expected in [0,1].
type CycleInput struct {
	Time        time.Time `json:"time"`
	Current     float64   `json:"current"`
	Voltage     float64   `json:"voltage"`
	Temperature float64   `json:"temperature"`
	SOC         float64   `json:"soc"`
	SOH         float64   `json:"soh"`
}

// CycleOutput is the result of one control cycle.
type CycleOutput struct {
	Time           time.Time     `json:"time"`
	ChargePower    float64       `json:"charge_power"`
	DischargePower float64       `json:"discharge_power"`
	ChargeLimit    float64       `json:"charge_limit"`
	DischargeLimit float64       `json:"discharge_limit"`
	Bound          float64       `json:"bound"`
	Current        float64       `json:"current"`
	Binding        Constraint    `json:"binding"`
	Outcome        Outcome       `json:"outcome"`
	Iterations     int           `json:"iterations"`
	Polarity       Polarity      `json:"polarity"`
	PhaseChanged   bool          `json:"phase_changed"`
	Duration       time.Duration `json:"duration"`
	OverBudget     bool          `json:"over_budget"`
}

// Code packs the binding constraint in the low nibble and the search outcome
// in the high nibble.
func (o CycleOutput) Code() uint8 {
	return uint8(o.Binding)&0x0f | uint8(o.Outcome)<<4
}
