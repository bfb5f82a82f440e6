package synth

import (
	"fmt"
	"math"

	"github.com/drew1981/DrewPolySynth/dsp/core"
	"github.com/drew1981/DrewPolySynth/dsp/filter/biquad"
	"github.com/drew1981/DrewPolySynth/dsp/osc"
	"github.com/drew1981/DrewPolySynth/dsp/param"
)

const (
	// Smoothing time constant for live parameter edits.
	updateTau = 0.1

	// Oscillators keep running this long after the release ramp ends.
	stopTail = 0.1

	// Amplitude floor of exponential ramps.
	ampFloor = 0.001

	// Slot replacement fade.
	forceStopFade = 0.005

	minEnvCutoff = 10.0
	maxEnvCutoff = 22000.0

	// Filter coefficients are recomputed every filterInterval samples.
	filterInterval = 8
)

// Voice is one note: oscillator, filter, amplitude envelope and LFO. A
// voice is built on the control thread and from then on only touched by
// the thread that renders it.
type Voice struct {
	sampleRate float64
	frequency  float64
	params     Snapshot

	osc    *osc.Oscillator
	lfo    *osc.Oscillator
	filter *biquad.Filter

	amp      param.Param
	cutoff   param.Param
	detune   param.Param
	q        param.Param
	lfoRate  param.Param
	lfoDepth param.Param
	target   LFOTarget

	startTime float64
	stopTime  float64
	stopped   bool
	ctrl      int
}

// NewVoice creates a voice at frequencyHz that starts sounding at t0
// (seconds on the render clock). Envelope curves are scheduled from p as
// captured here; later edits retarget them through UpdateParameters.
func NewVoice(sampleRate, frequencyHz float64, p Snapshot, t0 float64) (*Voice, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("voice sample rate must be > 0: %f", sampleRate)
	}
	if !(frequencyHz > 0) || math.IsInf(frequencyHz, 0) {
		return nil, fmt.Errorf("voice frequency must be > 0: %f", frequencyHz)
	}
	p = p.Sanitize()

	o, err := osc.New(sampleRate, p.Oscillator.Waveform)
	if err != nil {
		return nil, err
	}
	lfo, err := osc.New(sampleRate, osc.Sine)
	if err != nil {
		return nil, err
	}

	v := &Voice{
		sampleRate: sampleRate,
		frequency:  frequencyHz,
		params:     p,
		osc:        o,
		lfo:        lfo,
		filter:     biquad.NewFilter(p.Filter.Type, sampleRate),
		target:     p.LFO.Target,
		startTime:  t0,
		stopTime:   math.Inf(1),
	}

	nyquist := sampleRate / 2
	v.amp.Init(0, 0, 1)
	v.cutoff.Init(p.Filter.Cutoff, 0, nyquist)
	v.detune.Init(p.Oscillator.Detune, -2400, 2400)
	v.q.Init(p.Filter.Resonance, 0, 1000)
	v.lfoRate.Init(p.LFO.Rate, 0, nyquist)
	v.lfoDepth.Init(p.LFO.Depth*p.LFO.Target.DepthScale(), -1e5, 1e5)

	env := p.Envelope
	base := p.Filter.Cutoff
	peak := core.Clamp(base+p.Filter.EnvAmount, minEnvCutoff, maxEnvCutoff)
	sustain := core.Clamp(base+p.Filter.EnvAmount*env.Sustain, minEnvCutoff, maxEnvCutoff)
	attackEnd := t0 + env.Attack
	decayEnd := attackEnd + env.Decay

	v.cutoff.SetValueAtTime(base, t0)
	v.cutoff.LinearRampToValueAtTime(peak, attackEnd)
	v.cutoff.ExponentialRampToValueAtTime(sustain, decayEnd)

	v.amp.SetValueAtTime(0, t0)
	v.amp.LinearRampToValueAtTime(1, attackEnd)
	v.amp.ExponentialRampToValueAtTime(math.Max(env.Sustain, ampFloor), decayEnd)

	return v, nil
}

// Frequency returns the note frequency in Hz.
func (v *Voice) Frequency() float64 { return v.frequency }

// StartTime returns the time the voice begins sounding.
func (v *Voice) StartTime() float64 { return v.startTime }

// StopTime returns the time after which the voice is silent, or +Inf
// while it has not been stopped.
func (v *Voice) StopTime() float64 { return v.stopTime }

// Stopped reports whether Stop or ForceStop has been called.
func (v *Voice) Stopped() bool { return v.stopped }

// Done reports whether the voice has finished sounding at t.
func (v *Voice) Done(t float64) bool { return v.stopped && t >= v.stopTime }

// Gain returns the most recent envelope value.
func (v *Voice) Gain() float64 { return v.amp.Value() }

// UpdateParameters applies live edits at t without touching the amplitude
// envelope. The filter type stays as captured at note-on.
func (v *Voice) UpdateParameters(p Snapshot, t float64) {
	p = p.Sanitize()
	v.params.Oscillator = p.Oscillator
	v.params.Filter.Cutoff = p.Filter.Cutoff
	v.params.Filter.Resonance = p.Filter.Resonance
	v.params.LFO = p.LFO
	v.params.Envelope.Release = p.Envelope.Release

	v.osc.SetWaveform(p.Oscillator.Waveform)
	v.detune.SetTargetAtTime(p.Oscillator.Detune, t, updateTau)
	v.q.SetTargetAtTime(p.Filter.Resonance, t, updateTau)
	v.cutoff.SetTargetAtTime(p.Filter.Cutoff, t, updateTau)
	v.lfoRate.SetTargetAtTime(p.LFO.Rate, t, updateTau)
	v.lfoDepth.SetTargetAtTime(p.LFO.Depth*p.LFO.Target.DepthScale(), t, updateTau)
	v.target = p.LFO.Target
}

// Stop starts the release at t: amplitude falls exponentially to 0.001 and
// the cutoff returns to its base over the release time. The voice goes
// silent release+0.1 s after t. Calling Stop again has no effect.
func (v *Voice) Stop(t float64) {
	if v.stopped {
		return
	}
	v.stopped = true
	release := v.params.Envelope.Release

	v.amp.CancelScheduledValues(t)
	v.amp.SetValueAtTime(v.amp.Value(), t)
	v.amp.ExponentialRampToValueAtTime(ampFloor, t+release)

	v.cutoff.CancelScheduledValues(t)
	v.cutoff.SetValueAtTime(v.cutoff.Value(), t)
	v.cutoff.ExponentialRampToValueAtTime(v.params.Filter.Cutoff, t+release)

	v.stopTime = t + release + stopTail
}

// ForceStop silences the voice with a 5 ms fade starting at t. It
// overrides a release already in progress.
func (v *Voice) ForceStop(t float64) {
	end := t + forceStopFade
	if v.stopped && v.stopTime <= end {
		return
	}
	v.stopped = true
	v.amp.CancelScheduledValues(t)
	v.amp.SetValueAtTime(v.amp.Value(), t)
	v.amp.LinearRampToValueAtTime(0, end)
	v.stopTime = end
}

// Render adds the voice's output for len(dst) samples starting at time
// start into dst.
func (v *Voice) Render(dst []float64, start float64) {
	dt := 1 / v.sampleRate
	nyquist := v.sampleRate / 2

	for i := range dst {
		t := start + float64(i)*dt
		if t < v.startTime {
			continue
		}
		if t >= v.stopTime {
			return
		}

		mod := v.lfo.Next(v.lfoRate.Advance(t)) * v.lfoDepth.Advance(t)
		cents := v.detune.Advance(t)
		cutoff := v.cutoff.Advance(t)
		gain := v.amp.Advance(t)
		q := v.q.Advance(t)

		switch v.target {
		case TargetPitch:
			cents += mod
		case TargetCutoff:
			cutoff += mod
		case TargetAmplitude:
			gain += mod
		}

		if v.ctrl == 0 {
			v.filter.Set(core.Clamp(cutoff, 0, nyquist), q)
		}
		v.ctrl++
		if v.ctrl == filterInterval {
			v.ctrl = 0
		}

		x := v.osc.Next(v.frequency * core.CentsToRatio(cents))
		dst[i] += v.filter.ProcessSample(x) * gain
	}
}
