package vector

import (
	"container/heap"
	"sort"
)

// Candidate is a scored chunk reference. Stores rank candidates first and
// load chunk text only for the winners.
type Candidate struct {
	DocumentID string
	Index      int
	Distance   float64
}

// Less orders by ascending distance, then chunk index, then document id, so
// that equal distances always come back in the same order.
func Less(a, b Candidate) bool {
	if a.Distance != b.Distance {
		return a.Distance < b.Distance
	}
	if a.Index != b.Index {
		return a.Index < b.Index
	}
	return a.DocumentID < b.DocumentID
}

// TopK keeps the k best candidates seen so far.
type TopK struct {
	k    int
	heap worst
}

func NewTopK(k int) *TopK {
	return &TopK{k: k}
}

// Push offers c. It is kept only while it is among the k best.
func (t *TopK) Push(c Candidate) {
	if t.k <= 0 {
		return
	}
	if len(t.heap) < t.k {
		heap.Push(&t.heap, c)
		return
	}
	if Less(c, t.heap[0]) {
		t.heap[0] = c
		heap.Fix(&t.heap, 0)
	}
}

// Sorted returns the kept candidates, best first.
func (t *TopK) Sorted() []Candidate {
	out := make([]Candidate, len(t.heap))
	copy(out, t.heap)
	sort.Slice(out, func(i, j int) bool { return Less(out[i], out[j]) })
	return out
}

// worst is a max-heap on Less: the root is the worst kept candidate.
type worst []Candidate

func (h worst) Len() int           { return len(h) }
func (h worst) Less(i, j int) bool { return Less(h[j], h[i]) }
func (h worst) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *worst) Push(x any)        { *h = append(*h, x.(Candidate)) }
func (h *worst) Pop() any {
	old := *h
	n := len(old)
	c := old[n-1]
	*h = old[:n-1]
	return c
}
