package trust

import (
	"fmt"
	"math"
)

// Decay returns the weight of an event observed elapsedMinutes ago:
// exp(-elapsed / scale). The weight is 1 at zero elapsed time, strictly
// decreasing, and approaches 0 as elapsed grows.
//
// scaleMinutes must be > 0. Rather than dividing silently the function
// panics on a non-positive scale; config.Load and NewEngine both reject
// bad scales before any computation runs.
func Decay(elapsedMinutes, scaleMinutes float64) float64 {
	if scaleMinutes <= 0 {
		panic(fmt.Sprintf("trust: decay time scale must be > 0, got %v", scaleMinutes))
	}
	return math.Exp(-elapsedMinutes / scaleMinutes)
}
