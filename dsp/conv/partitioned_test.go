package conv

import (
	"errors"
	"math"
	"testing"

	"github.com/drew1981/DrewPolySynth/internal/testutil"
)

func TestDirect(t *testing.T) {
	got, err := Direct([]float64{1, 2, 3}, []float64{0, 1, 0.5})
	if err != nil {
		t.Fatal(err)
	}
	testutil.RequireSliceNearlyEqual(t, got, []float64{0, 1, 2.5, 4, 1.5}, 1e-15)

	if _, err := Direct(nil, []float64{1}); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("err=%v want ErrEmptyInput", err)
	}
}

func TestNewKernelValidation(t *testing.T) {
	if _, err := NewKernel(nil, 64); !errors.Is(err, ErrEmptyKernel) {
		t.Fatalf("err=%v want ErrEmptyKernel", err)
	}
	if _, err := NewKernel([]float64{1}, 100); !errors.Is(err, ErrInvalidBlockSize) {
		t.Fatalf("err=%v want ErrInvalidBlockSize", err)
	}
	k, err := NewKernel(make([]float64, 1000), 256)
	if err != nil {
		t.Fatal(err)
	}
	if k.Partitions() != 4 || k.Len() != 1000 || k.Block() != 256 {
		t.Fatalf("partitions=%d len=%d block=%d", k.Partitions(), k.Len(), k.Block())
	}
}

func TestPartitionedMatchesDirect(t *testing.T) {
	const block = 64
	ir := testutil.DeterministicNoise(3, 0.5, 700)
	x := testutil.DeterministicNoise(4, 1, 2000)

	k, err := NewKernel(ir, block)
	if err != nil {
		t.Fatal(err)
	}
	c, err := NewPartitioned(k)
	if err != nil {
		t.Fatal(err)
	}

	in := make([]float64, len(x)+block)
	copy(in, x)
	out := make([]float64, len(in))
	// Uneven chunking exercises the FIFO boundaries.
	for start := 0; start < len(in); {
		end := min(start+37, len(in))
		c.Process(in[start:end], out[start:end])
		start = end
	}

	ref, _ := Direct(x, ir)
	d, err := testutil.MaxAbsDiff(out[block:block+len(x)], ref[:len(x)])
	if err != nil {
		t.Fatal(err)
	}
	if d > 1e-9 {
		t.Fatalf("max diff=%g want<=1e-9", d)
	}
	if c.Failures() != 0 {
		t.Fatalf("failures=%d", c.Failures())
	}
}

func TestPartitionedInPlaceAndReset(t *testing.T) {
	k, _ := NewKernel([]float64{0.5, 0.25}, 8)
	c, _ := NewPartitioned(k)

	buf := testutil.Impulse(32, 0)
	c.Process(buf, buf)
	if math.Abs(buf[8]-0.5) > 1e-12 || math.Abs(buf[9]-0.25) > 1e-12 {
		t.Fatalf("in-place impulse response: %v", buf[6:12])
	}
	for i, v := range buf {
		if i != 8 && i != 9 && (v > 1e-12 || v < -1e-12) {
			t.Fatalf("unexpected energy at %d: %g", i, v)
		}
	}

	c.Process(testutil.Impulse(4, 0), make([]float64, 4))
	c.Reset()
	out := make([]float64, 32)
	c.Process(make([]float64, 32), out)
	testutil.RequireSilent(t, out, 0)
}
