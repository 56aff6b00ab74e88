package geom

import "math"

// Angle is the common representation of angle in radians,
// supporting conversion from/to degrees.
type Angle float64

// Deg creates Angle from degrees, the result is normalized.
func Deg(d float64) Angle {
	return Angle(normalizeRadians(d * math.Pi / 180.0))
}

// Rad creates Angle from radians, the result is normalized.
func Rad(r float64) Angle {
	return Angle(normalizeRadians(r))
}

// Add adds an Angle and normalizes the result.
func (a Angle) Add(a1 Angle) Angle {
	return Angle(normalizeRadians(float64(a) + float64(a1)))
}

// Sub subtracts an Angle and normalizes the result into (-π, π].
func (a Angle) Sub(a1 Angle) Angle {
	return Angle(normalizeRadians(float64(a) - float64(a1)))
}

// Div divides the angle without normalization.
func (a Angle) Div(d float64) Angle {
	return Angle(float64(a) / d)
}

// Radians gets angle in radians.
func (a Angle) Radians() float64 {
	return float64(a)
}

// Degrees gets angle in degrees.
func (a Angle) Degrees() float64 {
	return float64(a) * 180 / math.Pi
}

// Abs gets the absolute value.
func (a Angle) Abs() Angle {
	return Angle(math.Abs(float64(a)))
}

// Cos wraps math.Cos.
func (a Angle) Cos() float64 {
	return math.Cos(float64(a))
}

// Sin wraps math.Sin.
func (a Angle) Sin() float64 {
	return math.Sin(float64(a))
}

// Atan2 is the signed arctangent of y/x as an Angle.
func Atan2(y, x float64) Angle {
	return Angle(math.Atan2(y, x))
}

// Acos is the arccosine as an Angle, the argument is
// clamped into [-1, 1] so that it never yields NaN for
// finite input.
func Acos(v float64) Angle {
	return Angle(math.Acos(Clamp(v, -1, 1)))
}

// Clamp limits v into [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func normalizeRadians(r float64) float64 {
	if r >= 2*math.Pi || r <= -2*math.Pi {
		r = math.Remainder(r, 2*math.Pi)
	}
	if r > math.Pi {
		r -= 2 * math.Pi
	} else if r <= -math.Pi {
		r += 2 * math.Pi
	}
	return r
}
