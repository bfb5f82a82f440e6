package reverb

import (
	"fmt"
	"sync/atomic"

	"github.com/drew1981/DrewPolySynth/dsp/conv"
	"github.com/drew1981/DrewPolySynth/dsp/core"
)

// PartitionSize is the convolution partition length and therefore the wet
// path latency in samples.
const PartitionSize = 1024

type stereoConvolver struct {
	l, r *conv.Partitioned
}

func newStereoConvolver(im *Impulse) (stereoConvolver, error) {
	kl, err := conv.NewKernel(im.Left, PartitionSize)
	if err != nil {
		return stereoConvolver{}, err
	}
	kr, err := conv.NewKernel(im.Right, PartitionSize)
	if err != nil {
		return stereoConvolver{}, err
	}
	l, err := conv.NewPartitioned(kl)
	if err != nil {
		return stereoConvolver{}, err
	}
	r, err := conv.NewPartitioned(kr)
	if err != nil {
		return stereoConvolver{}, err
	}
	return stereoConvolver{l: l, r: r}, nil
}

func (s stereoConvolver) process(inL, inR, outL, outR []float64) {
	s.l.Process(inL, outL)
	s.r.Process(inR, outR)
}

func (s stereoConvolver) reset() {
	s.l.Reset()
	s.r.Reset()
}

// KernelSet holds ready-to-run hall and shimmer convolvers for one
// performance mode. Building one is expensive and must happen off the
// audio thread.
type KernelSet struct {
	eco        bool
	sampleRate float64
	hall       stereoConvolver
	shimmer    stereoConvolver
	hallLen    int
	shimmerLen int
}

// NewKernelSet generates, normalizes and transforms both impulse responses.
func NewKernelSet(sampleRate float64, eco bool, seed uint64) (*KernelSet, error) {
	ks := &KernelSet{eco: eco, sampleRate: sampleRate}

	for _, t := range []Type{Hall, Shimmer} {
		p, _ := ProfileFor(t, eco)
		im, err := GenerateImpulse(p, sampleRate, seed+uint64(t))
		if err != nil {
			return nil, err
		}
		im.Normalize()

		sc, err := newStereoConvolver(im)
		if err != nil {
			return nil, fmt.Errorf("reverb: %s kernel: %w", t, err)
		}
		if t == Hall {
			ks.hall, ks.hallLen = sc, im.Len()
		} else {
			ks.shimmer, ks.shimmerLen = sc, im.Len()
		}
	}

	return ks, nil
}

// Eco reports whether the set was built with the shortened Eco profiles.
func (ks *KernelSet) Eco() bool { return ks.eco }

// ImpulseLen returns the impulse response length of t in samples.
func (ks *KernelSet) ImpulseLen(t Type) int {
	switch t {
	case Hall:
		return ks.hallLen
	case Shimmer:
		return ks.shimmerLen
	default:
		return 0
	}
}

// ConvolutionReverb is a stereo convolution reverb producing the wet
// signal only. Process, SetType and Reset belong to the audio thread;
// Install may be called from any goroutine.
type ConvolutionReverb struct {
	next   atomic.Pointer[KernelSet]
	active *KernelSet
	typ    Type
	stale  bool
}

// NewConvolutionReverb creates a reverb that starts with set installed.
func NewConvolutionReverb(set *KernelSet) *ConvolutionReverb {
	r := &ConvolutionReverb{typ: Hall}
	r.next.Store(set)
	r.active = set
	return r
}

// Install publishes a new kernel set. The audio thread switches to it at
// the start of its next Process call.
func (r *ConvolutionReverb) Install(set *KernelSet) {
	if set != nil {
		r.next.Store(set)
	}
}

// Installed returns the most recently published kernel set.
func (r *ConvolutionReverb) Installed() *KernelSet { return r.next.Load() }

// Type returns the selected reverb type.
func (r *ConvolutionReverb) Type() Type { return r.typ }

// SetType selects the impulse response. Switching clears the history of
// the newly selected convolver.
func (r *ConvolutionReverb) SetType(t Type) {
	if !t.Valid() || t == r.typ {
		return
	}
	r.typ = t
	r.stale = true
}

// Latency returns the wet path delay in samples.
func (r *ConvolutionReverb) Latency() int { return PartitionSize }

// Reset clears the history of both convolvers.
func (r *ConvolutionReverb) Reset() {
	if r.active != nil {
		r.active.hall.reset()
		r.active.shimmer.reset()
	}
	r.stale = false
}

// Process convolves the stereo input and writes the wet signal. Inputs and
// outputs may alias.
func (r *ConvolutionReverb) Process(inL, inR, outL, outR []float64) {
	if ks := r.next.Load(); ks != r.active {
		r.active = ks
		r.stale = false
	}

	if r.active == nil || r.typ == Off {
		core.Zero(outL)
		core.Zero(outR)
		return
	}

	sc := r.active.hall
	if r.typ == Shimmer {
		sc = r.active.shimmer
	}
	if r.stale {
		sc.reset()
		r.stale = false
	}
	sc.process(inL, inR, outL, outR)
}
