package rank

import "math"

// Cosine returns the cosine distance 1 - a·b/(‖a‖‖b‖).
// Accumulation runs in float64; sparse high-dimensional TF-IDF vectors lose
// too much precision in float32 sums.
//
// If either vector has zero magnitude the angle is undefined; such vectors
// are treated as orthogonal and the distance is exactly 1.
//
// Assumes len(a) == len(b); callers must ensure widths match.
func Cosine(a, b []float32) float32 {
	var dot, na, nb float64

	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}

	if na == 0 || nb == 0 {
		return 1
	}

	return float32(1 - dot/math.Sqrt(na*nb))
}

// L1 normalizes both vectors to unit L1 mass and returns the L1 distance
// between the normalized vectors, in [0, 2].
//
// A vector with zero mass cannot be normalized; it is treated as maximally
// distant and the distance is exactly 2, the L1 diameter.
//
// Assumes len(a) == len(b); callers must ensure widths match.
func L1(a, b []float32) float32 {
	var ma, mb float64

	for i := range a {
		ma += math.Abs(float64(a[i]))
		mb += math.Abs(float64(b[i]))
	}

	if ma == 0 || mb == 0 {
		return 2
	}

	var distance float64
	for i := range a {
		distance += math.Abs(float64(a[i])/ma - float64(b[i])/mb)
	}

	return float32(distance)
}
