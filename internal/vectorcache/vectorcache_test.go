package vectorcache

import (
	"math"
	"os"
	"testing"

	"github.com/helioscale/sdkdex/internal/chunker"
	"github.com/helioscale/sdkdex/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.Register()
	os.Exit(m.Run())
}

func TestKey_DeterministicAndSensitive(t *testing.T) {
	cfg := chunker.Config{Size: 1000, Overlap: 100, MaxChunksPerDoc: 32, MaxItemChars: 8000}

	base := Key("remote", "model-a", "sig-1", cfg)
	if base != Key("remote", "model-a", "sig-1", cfg) {
		t.Fatal("key must be deterministic")
	}

	variants := []string{
		Key("local", "model-a", "sig-1", cfg),
		Key("remote", "model-b", "sig-1", cfg),
		Key("remote", "model-a", "sig-2", cfg),
		Key("remote", "model-a", "sig-1", chunker.Config{Size: 500, Overlap: 100, MaxChunksPerDoc: 32, MaxItemChars: 8000}),
	}
	for i, v := range variants {
		if v == base {
			t.Errorf("variant %d should produce a different key", i)
		}
	}
}

func TestSanitizeModel(t *testing.T) {
	tests := []struct{ in, want string }{
		{"text-embedding-3-small", "text-embedding-3-small"},
		{"org/Model:Latest", "org-model-latest"},
		{"nomic embed v1.5", "nomic-embed-v1.5"},
	}
	for _, tc := range tests {
		if got := SanitizeModel(tc.in); got != tc.want {
			t.Errorf("SanitizeModel(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalize(t *testing.T) {
	v := Normalize([]float32{3, 4})
	if math.Abs(float64(v[0])-0.6) > 1e-6 || math.Abs(float64(v[1])-0.8) > 1e-6 {
		t.Errorf("Normalize([3 4]) = %v", v)
	}

	zero := Normalize([]float32{0, 0, 0})
	for _, x := range zero {
		if x != 0 {
			t.Fatalf("zero vector must normalize to zero, got %v", zero)
		}
	}
}

func TestDot(t *testing.T) {
	if got := Dot([]float32{1, 0}, []float32{1, 0}); got != 1 {
		t.Errorf("Dot of identical unit vectors = %v, want 1", got)
	}
	if got := Dot([]float32{1, 0}, []float32{0, 1}); got != 0 {
		t.Errorf("Dot of orthogonal vectors = %v, want 0", got)
	}
}
