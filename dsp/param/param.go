// Package param provides sample-accurate parameter automation.
//
// A Param holds a small sorted timeline of events (set, linear ramp,
// exponential ramp, exponential approach toward a target) and is evaluated
// with monotonically increasing times on the audio thread. Scheduling and
// evaluation never allocate.
package param

import "math"

// MaxEvents is the number of pending events a Param can hold. When the
// timeline is full the earliest pending event is applied immediately.
const MaxEvents = 16

type kind uint8

const (
	kindSet kind = iota
	kindLinear
	kindExponential
	kindTarget
)

type event struct {
	kind  kind
	time  float64
	value float64
	tau   float64
}

// Param is an automatable value. The zero value is not usable; create one
// with New.
type Param struct {
	min, max float64

	events [MaxEvents]event
	n      int

	anchorTime  float64
	anchorValue float64

	targeting   bool
	target      float64
	targetTau   float64
	targetStart float64
	targetFrom  float64

	now   float64
	value float64
}

// New returns a Param holding value, with computed values clamped to
// [min, max].
func New(value, min, max float64) *Param {
	p := &Param{}
	p.Init(value, min, max)
	return p
}

// Init resets p in place. It is useful for Params embedded by value.
func (p *Param) Init(value, min, max float64) {
	if min > max {
		min, max = max, min
	}
	*p = Param{min: min, max: max}
	p.anchorValue = p.clamp(value)
	p.value = p.anchorValue
}

// Value returns the most recently computed value.
func (p *Param) Value() float64 { return p.value }

// Pending reports the number of scheduled events not yet reached.
func (p *Param) Pending() int { return p.n }

// Settled reports whether the value is constant: no pending events and no
// active target approach.
func (p *Param) Settled() bool { return p.n == 0 && !p.targeting }

// SetValue discards the timeline and holds v from now on.
func (p *Param) SetValue(v float64) {
	p.n = 0
	p.targeting = false
	p.anchorTime = p.now
	p.anchorValue = p.clamp(v)
	p.value = p.anchorValue
}

// SetValueAtTime jumps to v at time t.
func (p *Param) SetValueAtTime(v, t float64) {
	p.insert(event{kind: kindSet, time: t, value: v})
}

// LinearRampToValueAtTime ramps linearly from the previous event to v,
// reaching it at t.
func (p *Param) LinearRampToValueAtTime(v, t float64) {
	p.insert(event{kind: kindLinear, time: t, value: v})
}

// ExponentialRampToValueAtTime ramps exponentially from the previous event
// to v, reaching it at t. A ramp whose endpoints are zero or of opposite sign
// holds the start value and jumps to v at t.
func (p *Param) ExponentialRampToValueAtTime(v, t float64) {
	p.insert(event{kind: kindExponential, time: t, value: v})
}

// SetTargetAtTime starts an exponential approach toward v at t with time
// constant tau. Events at or after t are cancelled and the approach begins
// from the instantaneous value, so it can retarget a running ramp without a
// discontinuity.
func (p *Param) SetTargetAtTime(v, t, tau float64) {
	p.CancelScheduledValues(t)
	if tau <= 0 || math.IsNaN(tau) {
		p.insert(event{kind: kindSet, time: t, value: v})
		return
	}
	p.insert(event{kind: kindTarget, time: t, value: v, tau: tau})
}

// CancelScheduledValues removes every event scheduled at or after t. A
// target approach that starts at or after t is stopped as well.
func (p *Param) CancelScheduledValues(t float64) {
	for p.n > 0 && p.events[p.n-1].time >= t {
		p.n--
	}
	if p.targeting && p.targetStart >= t {
		p.targeting = false
		p.anchorTime = p.now
		p.anchorValue = p.value
	}
}

// Advance evaluates the parameter at time t. Times must not decrease
// between calls.
func (p *Param) Advance(t float64) float64 {
	if p.n == 0 && !p.targeting {
		p.now = t
		return p.value
	}

	for p.n > 0 {
		ev := p.events[0]
		if ev.kind == kindLinear || ev.kind == kindExponential {
			if p.targeting {
				p.anchorTime = p.now
				p.anchorValue = p.value
				p.targeting = false
			}
			if t < ev.time {
				p.commit(t, rampValue(ev, p.anchorTime, p.anchorValue, t))
				return p.value
			}
			p.pop()
			p.anchorTime = ev.time
			p.anchorValue = p.clamp(ev.value)
			continue
		}
		if ev.time > t {
			break
		}
		p.pop()
		p.apply(ev)
	}

	if p.targeting {
		p.commit(t, p.targetValue(t))
		return p.value
	}

	p.commit(t, p.anchorValue)
	return p.value
}

// Fill evaluates the parameter once per sample starting at time start and
// writes the values into dst.
func (p *Param) Fill(dst []float64, start, sampleRate float64) {
	if p.n == 0 && !p.targeting {
		for i := range dst {
			dst[i] = p.value
		}
		p.now = start + float64(len(dst))/sampleRate
		return
	}
	dt := 1 / sampleRate
	for i := range dst {
		dst[i] = p.Advance(start + float64(i)*dt)
	}
}

func (p *Param) apply(ev event) {
	switch ev.kind {
	case kindSet:
		p.targeting = false
		p.anchorTime = ev.time
		p.anchorValue = p.clamp(ev.value)
		p.value = p.anchorValue
	case kindTarget:
		from := p.value
		if p.targeting {
			from = p.targetValue(ev.time)
		}
		p.targeting = true
		p.target = ev.value
		p.targetTau = ev.tau
		p.targetStart = ev.time
		p.targetFrom = from
	}
}

func (p *Param) targetValue(t float64) float64 {
	dt := t - p.targetStart
	if dt <= 0 {
		return p.targetFrom
	}
	return p.target + (p.targetFrom-p.target)*math.Exp(-dt/p.targetTau)
}

func (p *Param) commit(t, v float64) {
	p.now = t
	if math.IsNaN(v) {
		return
	}
	p.value = p.clamp(v)
}

func (p *Param) clamp(v float64) float64 {
	if v < p.min {
		return p.min
	}
	if v > p.max {
		return p.max
	}
	return v
}

func (p *Param) insert(ev event) {
	if math.IsNaN(ev.value) || math.IsNaN(ev.time) {
		return
	}
	if p.n == MaxEvents {
		first := p.events[0]
		p.pop()
		if first.kind == kindLinear || first.kind == kindExponential {
			p.targeting = false
			p.anchorTime = first.time
			p.anchorValue = p.clamp(first.value)
		} else {
			p.apply(first)
		}
	}

	i := p.n
	for i > 0 && p.events[i-1].time > ev.time {
		p.events[i] = p.events[i-1]
		i--
	}
	p.events[i] = ev
	p.n++
}

func (p *Param) pop() {
	copy(p.events[:p.n-1], p.events[1:p.n])
	p.n--
}

func rampValue(ev event, t0, v0, t float64) float64 {
	span := ev.time - t0
	if span <= 0 {
		return ev.value
	}
	frac := (t - t0) / span
	if frac < 0 {
		frac = 0
	}
	if ev.kind == kindLinear {
		return v0 + (ev.value-v0)*frac
	}
	if v0 == 0 || ev.value == 0 || (v0 < 0) != (ev.value < 0) {
		return v0
	}
	return v0 * math.Pow(ev.value/v0, frac)
}
