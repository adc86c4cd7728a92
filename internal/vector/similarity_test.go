package vector

import (
	"math"
	"testing"
)

func TestCosine_SelfSimilarity(t *testing.T) {
	vecs := [][]float32{
		{1, 0, 0},
		{0.3, -0.7, 2.1},
		{5, 5, 5, 5},
	}
	for _, v := range vecs {
		if got := Cosine(v, v); math.Abs(got-1.0) > 1e-6 {
			t.Errorf("Cosine(v, v) = %f, want 1.0", got)
		}
	}
}

func TestCosine_ZeroVector(t *testing.T) {
	if got := Cosine([]float32{1, 2, 3}, []float32{0, 0, 0}); got != 0 {
		t.Errorf("zero vector similarity = %f, want 0", got)
	}
	if got := Cosine([]float32{0, 0}, []float32{0, 0}); got != 0 {
		t.Errorf("zero/zero similarity = %f, want 0", got)
	}
}

func TestCosine_Opposite(t *testing.T) {
	if got := Cosine([]float32{1, 0}, []float32{-1, 0}); math.Abs(got+1.0) > 1e-6 {
		t.Errorf("opposite vectors = %f, want -1.0", got)
	}
}

func TestCosine_LengthMismatch(t *testing.T) {
	if got := Cosine([]float32{1, 2}, []float32{1, 2, 3}); got != 0 {
		t.Errorf("mismatched lengths = %f, want 0", got)
	}
}

func TestCosine_NotNormalized(t *testing.T) {
	// Magnitude must not affect the score.
	a := []float32{1, 1, 0}
	b := []float32{10, 10, 0}
	if got := Cosine(a, b); math.Abs(got-1.0) > 1e-6 {
		t.Errorf("scaled parallel vectors = %f, want 1.0", got)
	}
}
