package qosnet

import (
	"testing"
)

// fixedSampler always returns the same U01 sample
type fixedSampler struct {
	u float64
}

func (fs *fixedSampler) U01() float64 {
	return fs.u
}

// seqSampler cycles through a fixed list of samples
type seqSampler struct {
	samples []float64
	next    int
}

func (ss *seqSampler) U01() float64 {
	u := ss.samples[ss.next%len(ss.samples)]
	ss.next += 1
	return u
}

func TestUniformRV(t *testing.T) {
	if v := uniformRV(&fixedSampler{u: 0.5}, 10, 20); v != 15 {
		t.Errorf("Expected 15, got %g", v)
	}
	if v := uniformRV(&fixedSampler{u: 0.0}, 3500, 6000); v != 3500 {
		t.Errorf("Expected 3500, got %g", v)
	}
}

func TestIndexRVStaysInRange(t *testing.T) {
	for _, u := range []float64{0, 0.3, 0.999999, 1.0} {
		idx := indexRV(&fixedSampler{u: u}, 7)
		if idx < 0 || idx >= 7 {
			t.Errorf("Expected index in [0,7) for u=%g, got %d", u, idx)
		}
	}
	if idx := indexRV(&fixedSampler{u: 0.5}, 0); idx != 0 {
		t.Errorf("Expected 0 for an empty range, got %d", idx)
	}
}

func TestDistinctIndices(t *testing.T) {
	rng := &seqSampler{samples: []float64{0.9, 0.1, 0.5, 0.7, 0.2}}
	picked := distinctIndices(rng, 20, 4)
	if len(picked) != 4 {
		t.Fatalf("Expected 4 indices, got %d", len(picked))
	}
	seen := make(map[int]bool)
	for _, idx := range picked {
		if idx < 0 || idx >= 20 {
			t.Errorf("Expected index in [0,20), got %d", idx)
		}
		if seen[idx] {
			t.Errorf("Index %d picked twice", idx)
		}
		seen[idx] = true
	}

	if all := distinctIndices(rng, 3, 10); len(all) != 3 {
		t.Errorf("Expected all 3 indices, got %d", len(all))
	}
}

func TestRngSampler(t *testing.T) {
	rs := createSampler("test")
	for idx := 0; idx < 1000; idx++ {
		u := rs.U01()
		if u < 0 || u >= 1 {
			t.Fatalf("Expected sample in [0,1), got %g", u)
		}
	}
}
