package vector

import (
	"fmt"
	"math"
)

// DistanceFunc measures how far apart two vectors are. Lower is closer.
type DistanceFunc func(a, b []float32) (float64, error)

const (
	DistanceCosine = "cosine"
	DistanceL2     = "l2"
)

// Distance returns the distance operator registered under name.
func Distance(name string) (DistanceFunc, error) {
	switch name {
	case DistanceCosine, "":
		return CosineDistance, nil
	case DistanceL2:
		return L2Distance, nil
	default:
		return nil, fmt.Errorf("unknown distance %q", name)
	}
}

// CosineDistance is 1 minus the cosine similarity, in [0, 2]. A
// zero-magnitude vector is treated as orthogonal to everything.
func CosineDistance(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vector: cosine distance dimension mismatch: %d vs %d", len(a), len(b))
	}
	var dot, na2, nb2 float64
	for i := range a {
		va := float64(a[i])
		vb := float64(b[i])
		dot += va * vb
		na2 += va * va
		nb2 += vb * vb
	}
	if na2 == 0 || nb2 == 0 {
		return 1, nil
	}
	return 1 - dot/(math.Sqrt(na2)*math.Sqrt(nb2)), nil
}

// L2Distance is the Euclidean distance between a and b.
func L2Distance(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vector: L2 distance dimension mismatch: %d vs %d", len(a), len(b))
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum), nil
}
