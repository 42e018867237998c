// Package energy implements the energy-balance rolling-resistance
// computations shared by the coast-down and aero-corrected pipelines.
package energy

import "github.com/wattshift/tirepressure-core/stats"

// GravityMPS2 is the constant used throughout the energy-balance formulas.
const GravityMPS2 = 9.81

// crrMin and crrMax bound the coast-down CRR result against sensor
// pathologies (altitude noise, GPS jitter feeding implausible speeds).
const (
	crrMin = 0.002
	crrMax = 0.020
)

// CoastDownCRR computes the coefficient of rolling resistance for one
// trimmed descent gate, from the energy balance
//
//	m*g*deltaH = CRR*m*g*d + 0.5*m*(vEnd^2 - vStart^2)
//
// solved for CRR. The result is clamped to [0.002, 0.020].
func CoastDownCRR(deltaH, vStart, vEnd, distanceM float64) float64 {
	if distanceM <= 0 {
		return crrMin
	}
	crr := (deltaH - (vEnd*vEnd-vStart*vStart)/(2*GravityMPS2)) / distanceM
	return stats.Clamp(crr, crrMin, crrMax)
}

// AeroCorrectedResidual returns the mean, over samples with speed above
// 0.5 m/s, of (power - 0.5*CdA*rho*v^3) / v. This is the quantity used as
// the regression's y axis for the circle pipeline. The constant-power
// pipeline does not use it: it regresses segment efficiency (speed/power)
// with no aero correction.
//
// Samples at or below the speed floor are excluded entirely (division by a
// near-zero speed would dominate the mean with noise), not zero-filled.
func AeroCorrectedResidual(powerW, speedMPS []float64, cda, rho float64) float64 {
	const speedFloor = 0.5
	sum := 0.0
	n := 0
	for i := range powerW {
		if i >= len(speedMPS) {
			break
		}
		v := speedMPS[i]
		if v <= speedFloor {
			continue
		}
		drag := 0.5 * cda * rho * v * v * v
		sum += (powerW[i] - drag) / v
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
