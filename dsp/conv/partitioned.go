package conv

import (
	"fmt"

	algofft "github.com/cwbudde/algo-fft"
)

// Kernel holds the partition spectra of an impulse response. It is
// immutable after construction and may be shared by several Partitioned
// convolvers.
type Kernel struct {
	block   int
	length  int
	spectra [][]complex128 // one half spectrum (block+1 bins) per partition
}

// NewKernel splits ir into partitions of block samples and transforms each
// one. block must be a power of two.
func NewKernel(ir []float64, block int) (*Kernel, error) {
	if len(ir) == 0 {
		return nil, ErrEmptyKernel
	}
	if !isPowerOf2(block) || block < 2 {
		return nil, fmt.Errorf("%w: partition size must be a power of two >= 2, got %d", ErrInvalidBlockSize, block)
	}

	fftSize := 2 * block
	plan, err := algofft.NewPlan64(fftSize)
	if err != nil {
		return nil, fmt.Errorf("conv: failed to create FFT plan: %w", err)
	}

	parts := (len(ir) + block - 1) / block
	k := &Kernel{
		block:   block,
		length:  len(ir),
		spectra: make([][]complex128, parts),
	}

	buf := make([]complex128, fftSize)
	spec := make([]complex128, fftSize)
	for p := range parts {
		clear(buf)
		start := p * block
		end := min(start+block, len(ir))
		for i, v := range ir[start:end] {
			buf[i] = complex(v, 0)
		}
		if err := plan.Forward(spec, buf); err != nil {
			return nil, fmt.Errorf("conv: kernel FFT failed: %w", err)
		}
		k.spectra[p] = append([]complex128(nil), spec[:block+1]...)
	}

	return k, nil
}

// Block returns the partition size, which is also the processing latency.
func (k *Kernel) Block() int { return k.block }

// Len returns the impulse response length in samples.
func (k *Kernel) Len() int { return k.length }

// Partitions returns the number of partitions.
func (k *Kernel) Partitions() int { return len(k.spectra) }

// Partitioned is a streaming uniformly partitioned overlap-save convolver.
// Output lags input by exactly Kernel.Block() samples. Process does not
// allocate.
type Partitioned struct {
	kernel *Kernel
	block  int
	plan   *algofft.Plan[complex128]

	fdl  [][]complex128
	head int

	prev    []float64
	timeBuf []complex128
	spec    []complex128

	inFIFO  []float64
	outFIFO []float64
	pos     int

	failures int
}

// NewPartitioned allocates the state for streaming k.
func NewPartitioned(k *Kernel) (*Partitioned, error) {
	if k == nil || len(k.spectra) == 0 {
		return nil, ErrEmptyKernel
	}

	fftSize := 2 * k.block
	plan, err := algofft.NewPlan64(fftSize)
	if err != nil {
		return nil, fmt.Errorf("conv: failed to create FFT plan: %w", err)
	}

	fdl := make([][]complex128, len(k.spectra))
	for i := range fdl {
		fdl[i] = make([]complex128, k.block+1)
	}

	return &Partitioned{
		kernel:  k,
		block:   k.block,
		plan:    plan,
		fdl:     fdl,
		prev:    make([]float64, k.block),
		timeBuf: make([]complex128, fftSize),
		spec:    make([]complex128, fftSize),
		inFIFO:  make([]float64, k.block),
		outFIFO: make([]float64, k.block),
	}, nil
}

// Kernel returns the kernel being streamed.
func (c *Partitioned) Kernel() *Kernel { return c.kernel }

// Latency returns the output delay in samples.
func (c *Partitioned) Latency() int { return c.block }

// Failures counts blocks dropped because an FFT returned an error.
func (c *Partitioned) Failures() int { return c.failures }

// Process convolves in and writes the delayed result to out. in and out may
// alias.
func (c *Partitioned) Process(in, out []float64) {
	n := min(len(in), len(out))
	for i := range n {
		x := in[i]
		out[i] = c.outFIFO[c.pos]
		c.inFIFO[c.pos] = x
		c.pos++
		if c.pos == c.block {
			c.runBlock()
			c.pos = 0
		}
	}
}

// Reset clears all history.
func (c *Partitioned) Reset() {
	for _, s := range c.fdl {
		clear(s)
	}
	clear(c.prev)
	clear(c.inFIFO)
	clear(c.outFIFO)
	c.head = 0
	c.pos = 0
}

func (c *Partitioned) runBlock() {
	b := c.block
	for i := range b {
		c.timeBuf[i] = complex(c.prev[i], 0)
		c.timeBuf[b+i] = complex(c.inFIFO[i], 0)
	}
	copy(c.prev, c.inFIFO)

	if err := c.plan.Forward(c.spec, c.timeBuf); err != nil {
		c.dropBlock()
		return
	}
	copy(c.fdl[c.head], c.spec[:b+1])

	acc := c.spec
	clear(acc)
	parts := len(c.fdl)
	for p, h := range c.kernel.spectra {
		x := c.fdl[(c.head-p+parts)%parts]
		for k := 0; k <= b; k++ {
			acc[k] += x[k] * h[k]
		}
	}
	for k := 1; k < b; k++ {
		v := acc[k]
		acc[2*b-k] = complex(real(v), -imag(v))
	}

	if err := c.plan.Inverse(c.timeBuf, acc); err != nil {
		c.dropBlock()
		return
	}
	for i := range b {
		c.outFIFO[i] = real(c.timeBuf[b+i])
	}
	c.head = (c.head + 1) % parts
}

func (c *Partitioned) dropBlock() {
	c.failures++
	clear(c.outFIFO)
	c.head = (c.head + 1) % len(c.fdl)
}
