package vecstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1.0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0.0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1.0},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0.0},
		{"dimension mismatch", []float32{1, 2}, []float32{1, 2, 3}, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestVectorSerializationRoundTrip(t *testing.T) {
	vector := []float32{0.1, -2.5, 3.14159, 0}
	got := DeserializeVector(SerializeVector(vector))
	assert.Equal(t, vector, got)
}
