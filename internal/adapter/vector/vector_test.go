package vector

import (
	"math"
	"testing"
)

func TestCosineDistance(t *testing.T) {
	d, err := CosineDistance([]float32{1, 0}, []float32{1, 0})
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(d) > 1e-9 {
		t.Errorf("expected 0 for identical vectors, got %f", d)
	}

	d, _ = CosineDistance([]float32{1, 0}, []float32{0, 1})
	if math.Abs(d-1) > 1e-9 {
		t.Errorf("expected 1 for orthogonal vectors, got %f", d)
	}

	d, _ = CosineDistance([]float32{1, 0}, []float32{-1, 0})
	if math.Abs(d-2) > 1e-9 {
		t.Errorf("expected 2 for opposite vectors, got %f", d)
	}

	d, _ = CosineDistance([]float32{0, 0}, []float32{1, 0})
	if d != 1 {
		t.Errorf("expected 1 for zero vector, got %f", d)
	}

	if _, err := CosineDistance([]float32{1}, []float32{1, 2}); err == nil {
		t.Error("expected dimension mismatch error")
	}
}

func TestL2Distance(t *testing.T) {
	d, err := L2Distance([]float32{0, 0}, []float32{3, 4})
	if err != nil {
		t.Fatal(err)
	}
	if d != 5 {
		t.Errorf("expected 5, got %f", d)
	}
	if _, err := L2Distance([]float32{1}, nil); err == nil {
		t.Error("expected dimension mismatch error")
	}
}

func TestDistanceByName(t *testing.T) {
	for _, name := range []string{"", DistanceCosine, DistanceL2} {
		if _, err := Distance(name); err != nil {
			t.Errorf("Distance(%q): %v", name, err)
		}
	}
	if _, err := Distance("manhattan"); err == nil {
		t.Error("expected error for unknown distance")
	}
}

func TestEncodeDecode(t *testing.T) {
	in := []float32{0, 1.5, -2.25, float32(math.Pi)}
	out, err := Decode(Encode(in))
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != len(in) {
		t.Fatalf("expected %d values, got %d", len(in), len(out))
	}
	for i := range in {
		if in[i] != out[i] {
			t.Errorf("index %d: expected %f, got %f", i, in[i], out[i])
		}
	}
	if _, err := Decode([]byte{1, 2, 3}); err == nil {
		t.Error("expected error for truncated blob")
	}
}

func TestTopKOrdering(t *testing.T) {
	top := NewTopK(3)
	for _, c := range []Candidate{
		{DocumentID: "b", Index: 4, Distance: 0.5},
		{DocumentID: "a", Index: 9, Distance: 0.1},
		{DocumentID: "a", Index: 2, Distance: 0.5},
		{DocumentID: "a", Index: 4, Distance: 0.5},
		{DocumentID: "c", Index: 0, Distance: 0.9},
	} {
		top.Push(c)
	}

	got := top.Sorted()
	want := []Candidate{
		{DocumentID: "a", Index: 9, Distance: 0.1},
		{DocumentID: "a", Index: 2, Distance: 0.5},
		{DocumentID: "a", Index: 4, Distance: 0.5},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d candidates, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestTopKFewerThanK(t *testing.T) {
	top := NewTopK(10)
	top.Push(Candidate{Index: 1, Distance: 0.2})
	top.Push(Candidate{Index: 0, Distance: 0.2})
	got := top.Sorted()
	if len(got) != 2 || got[0].Index != 0 || got[1].Index != 1 {
		t.Errorf("expected ties broken by index, got %+v", got)
	}
}
