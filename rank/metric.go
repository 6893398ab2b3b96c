// Package rank compares TF-IDF weighted bag-of-words vectors and orders
// documents by distance. It provides the distance metrics, stable full
// ranking, bounded top-k selection, and min-rule fusion of rankings from
// different descriptor modalities.
package rank

import "fmt"

// Metric represents the distance metric used to compare weighted vectors.
type Metric int

const (
	MetricCosine Metric = iota
	MetricL1
)

func (m Metric) String() string {
	switch m {
	case MetricCosine:
		return "Cosine"
	case MetricL1:
		return "L1"
	default:
		return fmt.Sprintf("Unknown(%d)", m)
	}
}

// Func is a function type for distance calculation.
type Func func(a, b []float32) float32

// Provider returns the distance function for the given metric.
func Provider(m Metric) (Func, error) {
	switch m {
	case MetricCosine:
		return Cosine, nil
	case MetricL1:
		return L1, nil
	default:
		return nil, fmt.Errorf("unsupported metric: %v", m)
	}
}
