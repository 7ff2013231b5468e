package core

import (
	"fmt"
	"math"
	"strings"
)

// DistanceMeasure selects how vector closeness is computed.
// Every measure is expressed so that smaller values are closer.
type DistanceMeasure int

const (
	// Euclidean is the L2 distance.
	Euclidean DistanceMeasure = iota + 1
	// Cosine is 1 - cosine similarity.
	Cosine
	// DotProduct is the negative inner product.
	DotProduct
)

// String returns the lowercase measure name.
func (m DistanceMeasure) String() string {
	switch m {
	case Euclidean:
		return "euclidean"
	case Cosine:
		return "cosine"
	case DotProduct:
		return "dot_product"
	default:
		return fmt.Sprintf("DistanceMeasure(%d)", int(m))
	}
}

// ParseDistanceMeasure parses a measure name as produced by String.
func ParseDistanceMeasure(s string) (DistanceMeasure, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "euclidean", "l2":
		return Euclidean, nil
	case "cosine":
		return Cosine, nil
	case "dot_product", "dot":
		return DotProduct, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownDistanceMeasure, s)
	}
}

// Distance computes the distance between a and b under measure m.
// Vectors must have the same length; callers skip mismatched documents.
func Distance(m DistanceMeasure, a, b []float32) float64 {
	switch m {
	case Cosine:
		return cosineDistance(a, b)
	case DotProduct:
		return -dot(a, b)
	default:
		return euclidean(a, b)
	}
}

func euclidean(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// cosineDistance treats a zero vector as orthogonal to everything.
func cosineDistance(a, b []float32) float64 {
	var na, nb float64
	for i := range a {
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot(a, b)/(math.Sqrt(na)*math.Sqrt(nb))
}

// ZeroVector returns a zero-filled vector of the given dimensionality.
func ZeroVector(dims int) []float32 {
	return make([]float32, dims)
}

// IsZeroVector reports whether every component of v is zero.
func IsZeroVector(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
