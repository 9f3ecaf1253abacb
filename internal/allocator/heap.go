package allocator

import (
	"container/heap"

	"github.com/clam-project/clam-lease/internal/ppuc"
)

// candidateHeap is a container/heap max-heap ordered by PPUC: the
// greedy loop always commits the highest profit-per-unit-cost
// candidate available.
type candidateHeap []ppuc.Candidate

func (h candidateHeap) Len() int            { return len(h) }
func (h candidateHeap) Less(i, j int) bool  { return h[i].PPUC > h[j].PPUC }
func (h candidateHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *candidateHeap) Push(x interface{}) { *h = append(*h, x.(ppuc.Candidate)) }
func (h *candidateHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

func pushCandidates(h *candidateHeap, cands []ppuc.Candidate) {
	for _, c := range cands {
		heap.Push(h, c)
	}
}
