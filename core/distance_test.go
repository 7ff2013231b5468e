package core

import (
	"errors"
	"math"
	"testing"
)

func TestDistance(t *testing.T) {
	tests := []struct {
		name    string
		measure DistanceMeasure
		a, b    []float32
		want    float64
	}{
		{name: "euclidean identical", measure: Euclidean, a: []float32{1, 2, 3}, b: []float32{1, 2, 3}, want: 0},
		{name: "euclidean 3-4-5", measure: Euclidean, a: []float32{0, 0}, b: []float32{3, 4}, want: 5},
		{name: "cosine identical", measure: Cosine, a: []float32{1, 0}, b: []float32{2, 0}, want: 0},
		{name: "cosine orthogonal", measure: Cosine, a: []float32{1, 0}, b: []float32{0, 1}, want: 1},
		{name: "cosine zero vector", measure: Cosine, a: []float32{0, 0}, b: []float32{0, 1}, want: 1},
		{name: "dot product negated", measure: DotProduct, a: []float32{1, 2}, b: []float32{3, 4}, want: -11},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Distance(tt.measure, tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("Distance() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseDistanceMeasure(t *testing.T) {
	tests := []struct {
		in      string
		want    DistanceMeasure
		wantErr error
	}{
		{in: "", want: Euclidean},
		{in: "Euclidean", want: Euclidean},
		{in: "cosine", want: Cosine},
		{in: "dot_product", want: DotProduct},
		{in: "manhattan", wantErr: ErrUnknownDistanceMeasure},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDistanceMeasure(tt.in)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("ParseDistanceMeasure() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDistanceMeasure() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseDistanceMeasure() = %v, want %v", got, tt.want)
			}
			if back, _ := ParseDistanceMeasure(got.String()); back != got {
				t.Errorf("String() does not round trip: %v", got)
			}
		})
	}
}

func TestZeroVector(t *testing.T) {
	v := ZeroVector(DefaultDimensions)
	if len(v) != DefaultDimensions {
		t.Fatalf("ZeroVector() length = %d, want %d", len(v), DefaultDimensions)
	}
	if !IsZeroVector(v) {
		t.Errorf("ZeroVector() has non-zero components")
	}
	if IsZeroVector([]float32{0, 0.1}) {
		t.Errorf("IsZeroVector() = true for non-zero vector")
	}
}
