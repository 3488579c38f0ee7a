package sop

import "github.com/kilianp07/sop/core/model"

// PhaseDetector tracks the operating phase from a moving average of the
// signed current. The window starts filled with zeros.
type PhaseDetector struct {
	buf         []float64
	pos         int
	polarity    model.Polarity
	toDischarge float64
	toCharge    float64
}

// NewPhaseDetector returns a detector in the charge phase.
func NewPhaseDetector(cfg PhaseConfig) *PhaseDetector {
	w := cfg.Window
	if w < 1 {
		w = 1
	}
	return &PhaseDetector{
		buf:         make([]float64, w),
		toDischarge: cfg.ToDischarge,
		toCharge:    cfg.ToCharge,
	}
}

// Update records a sample and returns the phase and whether it flipped.
func (d *PhaseDetector) Update(current float64) (model.Polarity, bool) {
	d.buf[d.pos] = current
	d.pos = (d.pos + 1) % len(d.buf)
	avg := d.Average()
	switch {
	case d.polarity == model.Charge && avg > d.toDischarge:
		d.polarity = model.Discharge
		return d.polarity, true
	case d.polarity == model.Discharge && avg < d.toCharge:
		d.polarity = model.Charge
		return d.polarity, true
	}
	return d.polarity, false
}

// Average is the mean of the window.
func (d *PhaseDetector) Average() float64 {
	var sum float64
	for _, v := range d.buf {
		sum += v
	}
	return sum / float64(len(d.buf))
}

// Polarity returns the current phase.
func (d *PhaseDetector) Polarity() model.Polarity { return d.polarity }

// Reset clears the window and returns to the charge phase.
func (d *PhaseDetector) Reset() {
	clear(d.buf)
	d.pos = 0
	d.polarity = model.Charge
}
