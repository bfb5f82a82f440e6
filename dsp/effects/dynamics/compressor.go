package dynamics

import (
	"fmt"
	"math"

	"github.com/drew1981/DrewPolySynth/dsp/core"
)

const (
	// Bus defaults.
	defaultCompressorThresholdDB = -20.0
	defaultCompressorRatio       = 4.0
	defaultCompressorKneeDB      = 30.0
	defaultCompressorAttackMs    = 3.0
	defaultCompressorReleaseMs   = 250.0

	minCompressorRatio     = 1.0
	maxCompressorRatio     = 20.0
	minCompressorAttackMs  = 0.0
	maxCompressorAttackMs  = 1000.0
	minCompressorReleaseMs = 1.0
	maxCompressorReleaseMs = 1000.0
	minCompressorKneeDB    = 0.0
	maxCompressorKneeDB    = 40.0

	// Share of the full-scale gain reduction restored by auto makeup.
	makeupExponent = 0.6

	// log2(10) / 20, converts dB to log2 units.
	log2Of10Div20 = 0.166096404744
)

// CompressorMetrics holds metering information since the last reset.
type CompressorMetrics struct {
	InputPeak     float64
	OutputPeak    float64
	GainReduction float64 // minimum applied gain, linear
}

// Compressor is a stereo-linked soft-knee compressor. It is not safe for
// concurrent use; parameter changes belong to the thread that processes.
type Compressor struct {
	thresholdDB float64
	ratio       float64
	kneeDB      float64
	attackMs    float64
	releaseMs   float64
	autoMakeup  bool

	sampleRate float64

	envelope float64
	lastGain float64

	attackCoeff      float64
	releaseCoeff     float64
	thresholdLog2    float64
	kneeWidthLog2    float64
	invKneeWidthLog2 float64
	makeupGainLin    float64

	metrics CompressorMetrics
}

// NewCompressor creates a bus compressor with threshold -20 dB, ratio 4:1,
// knee 30 dB, attack 3 ms, release 250 ms and auto makeup enabled.
func NewCompressor(sampleRate float64) (*Compressor, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("compressor sample rate must be positive and finite: %f", sampleRate)
	}

	c := &Compressor{
		thresholdDB: defaultCompressorThresholdDB,
		ratio:       defaultCompressorRatio,
		kneeDB:      defaultCompressorKneeDB,
		attackMs:    defaultCompressorAttackMs,
		releaseMs:   defaultCompressorReleaseMs,
		autoMakeup:  true,
		sampleRate:  sampleRate,
	}
	c.updateCoefficients()
	c.Reset()
	return c, nil
}

// SetThreshold sets the threshold in dB.
func (c *Compressor) SetThreshold(dB float64) error {
	if !isFinite(dB) {
		return fmt.Errorf("compressor threshold must be finite: %f", dB)
	}
	c.thresholdDB = dB
	c.updateCoefficients()
	return nil
}

// SetRatio sets the compression ratio in [1, 20].
func (c *Compressor) SetRatio(ratio float64) error {
	if ratio < minCompressorRatio || ratio > maxCompressorRatio || !isFinite(ratio) {
		return fmt.Errorf("compressor ratio must be in [%f, %f]: %f",
			minCompressorRatio, maxCompressorRatio, ratio)
	}
	c.ratio = ratio
	c.updateCoefficients()
	return nil
}

// SetKnee sets the soft-knee width in dB, 0 meaning a hard knee.
func (c *Compressor) SetKnee(kneeDB float64) error {
	if kneeDB < minCompressorKneeDB || kneeDB > maxCompressorKneeDB || !isFinite(kneeDB) {
		return fmt.Errorf("compressor knee must be in [%f, %f]: %f",
			minCompressorKneeDB, maxCompressorKneeDB, kneeDB)
	}
	c.kneeDB = kneeDB
	c.updateCoefficients()
	return nil
}

// SetAttack sets the attack time in milliseconds. Zero follows peaks
// instantly.
func (c *Compressor) SetAttack(ms float64) error {
	if ms < minCompressorAttackMs || ms > maxCompressorAttackMs || !isFinite(ms) {
		return fmt.Errorf("compressor attack must be in [%f, %f]: %f",
			minCompressorAttackMs, maxCompressorAttackMs, ms)
	}
	c.attackMs = ms
	c.updateTimeConstants()
	return nil
}

// SetRelease sets the release time in milliseconds.
func (c *Compressor) SetRelease(ms float64) error {
	if ms < minCompressorReleaseMs || ms > maxCompressorReleaseMs || !isFinite(ms) {
		return fmt.Errorf("compressor release must be in [%f, %f]: %f",
			minCompressorReleaseMs, maxCompressorReleaseMs, ms)
	}
	c.releaseMs = ms
	c.updateTimeConstants()
	return nil
}

// SetAutoMakeup enables or disables makeup gain. When enabled, 60 % (in
// dB) of the reduction applied to a full-scale signal is restored.
func (c *Compressor) SetAutoMakeup(enable bool) {
	c.autoMakeup = enable
	c.updateCoefficients()
}

func (c *Compressor) Threshold() float64  { return c.thresholdDB }
func (c *Compressor) Ratio() float64      { return c.ratio }
func (c *Compressor) Knee() float64       { return c.kneeDB }
func (c *Compressor) Attack() float64     { return c.attackMs }
func (c *Compressor) Release() float64    { return c.releaseMs }
func (c *Compressor) AutoMakeup() bool    { return c.autoMakeup }
func (c *Compressor) SampleRate() float64 { return c.sampleRate }

// MakeupGain returns the linear makeup gain currently applied.
func (c *Compressor) MakeupGain() float64 { return c.makeupGainLin }

// Reduction returns the most recent gain reduction in dB (<= 0).
func (c *Compressor) Reduction() float64 {
	if c.lastGain <= 0 {
		return 0
	}
	return core.LinearToDB(c.lastGain)
}

// ProcessSample compresses a mono sample.
func (c *Compressor) ProcessSample(input float64) float64 {
	level := math.Abs(input)
	gain := c.follow(level)
	out := input * gain * c.makeupGainLin
	c.updateMetrics(level, math.Abs(out), gain)
	return out
}

// ProcessStereo compresses left and right in place with a shared envelope
// driven by the louder channel.
func (c *Compressor) ProcessStereo(left, right []float64) {
	n := min(len(left), len(right))
	for i := range n {
		l, r := left[i], right[i]
		level := math.Max(math.Abs(l), math.Abs(r))
		g := c.follow(level) * c.makeupGainLin
		left[i] = l * g
		right[i] = r * g
		c.updateMetrics(level, math.Max(math.Abs(left[i]), math.Abs(right[i])), g/c.makeupGainLin)
	}
}

// CalculateOutputLevel returns the steady-state output magnitude for a
// constant input magnitude.
func (c *Compressor) CalculateOutputLevel(inputMagnitude float64) float64 {
	inputMagnitude = math.Abs(inputMagnitude)
	return inputMagnitude * c.calculateGain(inputMagnitude) * c.makeupGainLin
}

// Reset clears the envelope and metrics.
func (c *Compressor) Reset() {
	c.envelope = 0
	c.lastGain = 1
	c.ResetMetrics()
}

// Metrics returns the current metering values.
func (c *Compressor) Metrics() CompressorMetrics { return c.metrics }

// ResetMetrics clears metering state.
func (c *Compressor) ResetMetrics() {
	c.metrics = CompressorMetrics{GainReduction: 1}
}

func (c *Compressor) follow(level float64) float64 {
	if !isFinite(level) {
		level = 0
	}
	if level > c.envelope {
		c.envelope += (level - c.envelope) * c.attackCoeff
	} else {
		c.envelope = level + (c.envelope-level)*c.releaseCoeff
	}
	if c.envelope < 1e-30 {
		c.envelope = 0
	}
	c.lastGain = c.calculateGain(c.envelope)
	return c.lastGain
}

func (c *Compressor) updateCoefficients() {
	c.thresholdLog2 = c.thresholdDB * log2Of10Div20
	c.kneeWidthLog2 = c.kneeDB * log2Of10Div20
	if c.kneeDB > 0 {
		c.invKneeWidthLog2 = 1 / c.kneeWidthLog2
	} else {
		c.invKneeWidthLog2 = 0
	}

	c.makeupGainLin = 1
	if c.autoMakeup {
		full := c.calculateGain(1)
		c.makeupGainLin = math.Pow(1/full, makeupExponent)
	}

	c.updateTimeConstants()
}

func (c *Compressor) updateTimeConstants() {
	if c.attackMs <= 0 {
		c.attackCoeff = 1
	} else {
		c.attackCoeff = 1 - math.Exp(-math.Ln2/(c.attackMs*0.001*c.sampleRate))
	}
	c.releaseCoeff = math.Exp(-math.Ln2 / (c.releaseMs * 0.001 * c.sampleRate))
}

// calculateGain maps a detector level to a linear gain. Inside the knee the
// overshoot is smoothed quadratically: (o + w/2)^2 / (2w).
func (c *Compressor) calculateGain(level float64) float64 {
	if level <= 0 {
		return 1
	}
	overshoot := mathLog2(level) - c.thresholdLog2

	var effective float64
	if c.kneeDB <= 0 {
		if overshoot <= 0 {
			return 1
		}
		effective = overshoot
	} else {
		half := c.kneeWidthLog2 * 0.5
		switch {
		case overshoot < -half:
			return 1
		case overshoot > half:
			effective = overshoot
		default:
			s := overshoot + half
			effective = s * s * 0.5 * c.invKneeWidthLog2
		}
	}

	return mathPower2(-effective * (1 - 1/c.ratio))
}

func (c *Compressor) updateMetrics(inputLevel, outputLevel, gain float64) {
	if inputLevel > c.metrics.InputPeak {
		c.metrics.InputPeak = inputLevel
	}
	if outputLevel > c.metrics.OutputPeak {
		c.metrics.OutputPeak = outputLevel
	}
	if gain < c.metrics.GainReduction {
		c.metrics.GainReduction = gain
	}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
