package vocab

// dot calculates the dot product of two vectors.
// Assumes len(a) == len(b); callers must ensure lengths match.
func dot(a, b []float32) float32 {
	var ret float32
	for i := range a {
		ret += a[i] * b[i]
	}
	return ret
}

// squaredL2 calculates the squared L2 distance between two vectors.
// Assumes len(a) == len(b); callers must ensure lengths match.
func squaredL2(a, b []float32) float32 {
	var distance float32
	for i := range a {
		d := a[i] - b[i]
		distance += d * d
	}
	return distance
}

// nearestInFlat scans the flattened matrix for the row closest to q in
// squared L2 distance. Strict less-than keeps the lowest row on ties.
func nearestInFlat(flat []float32, dim int, q []float32) (int, float32) {
	best := 0
	bestDist := squaredL2(q, flat[:dim])

	for i := 1; i < len(flat)/dim; i++ {
		d := squaredL2(q, flat[i*dim:(i+1)*dim])
		if d < bestDist {
			bestDist = d
			best = i
		}
	}

	return best, bestDist
}
