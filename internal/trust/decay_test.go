package trust

import (
	"math"
	"testing"
)

func TestDecay_ZeroElapsedIsOne(t *testing.T) {
	for _, scale := range []float64{1, 60, 1440, 100000} {
		if got := Decay(0, scale); got != 1 {
			t.Errorf("Decay(0, %v) = %v, want 1", scale, got)
		}
	}
}

func TestDecay_StrictlyDecreasing(t *testing.T) {
	scale := 1440.0
	prev := Decay(0, scale)
	for _, elapsed := range []float64{1, 10, 100, 1440, 10000, 100000} {
		got := Decay(elapsed, scale)
		if got >= prev {
			t.Errorf("Decay(%v, %v) = %v, want < %v", elapsed, scale, got, prev)
		}
		if got <= 0 {
			t.Errorf("Decay(%v, %v) = %v, want > 0", elapsed, scale, got)
		}
		prev = got
	}
}

func TestDecay_OneTimeScale(t *testing.T) {
	got := Decay(1440, 1440)
	want := math.Exp(-1)
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("Decay(1440, 1440) = %v, want %v", got, want)
	}
}

func TestDecay_FarPastNegligible(t *testing.T) {
	// 20 time scales out the weight is indistinguishable from zero
	if got := Decay(20*1440, 1440); got >= 1e-6 {
		t.Errorf("Decay(20*1440, 1440) = %v, want < 1e-6", got)
	}
}

func TestDecay_InvalidScalePanics(t *testing.T) {
	for _, scale := range []float64{0, -1, -1440} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("Decay(10, %v) did not panic", scale)
				}
			}()
			Decay(10, scale)
		}()
	}
}
