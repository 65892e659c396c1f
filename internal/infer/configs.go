package infer

import (
	"iter"

	gr "github.com/jsdoublel/minsgt/internal/graphs"
)

// where a part of the forest goes relative to the new join node
type placement int

// splitLR sends the first child left and the second right; splitRL the reverse
const (
	toLeft placement = iota
	splitLR
	toRight
	splitRL
)

var (
	wholeOptions = []placement{toLeft, toRight}
	splitOptions = []placement{toLeft, splitLR, toRight, splitRL}
)

// one bipartition of a subproblem's parts
type split struct {
	left  []gr.CladeID
	right []gr.CladeID
	cut   []gr.CladeID // parts whose root is mapped onto the join node
}

// Advances the mixed radix counter (least significant digit first). Returns
// false once every configuration has been visited and the counter wrapped
// back to zero.
func applyNextConfig(counters, radices []int) bool {
	for i := range counters {
		counters[i]++
		if counters[i] < radices[i] {
			return true
		}
		counters[i] = 0
	}
	return false
}

// Enumerates the configurations of the group with both sides non-empty. The
// options of the first part are halved since swapping the two sides gives the
// same tree, so n parts that cannot be split give 2^(n-1) - 1 splits.
func (s *search) splits(group []gr.CladeID) iter.Seq[split] {
	options := make([][]placement, len(group))
	radices := make([]int, len(group))
	for i, c := range group {
		if s.atomic[c] || s.forest.Clade(c).Leaf() {
			options[i] = wholeOptions
		} else {
			options[i] = splitOptions
		}
		radices[i] = len(options[i])
	}
	radices[0] /= 2
	return func(yield func(split) bool) {
		counters := make([]int, len(group))
		for {
			sp := s.applyConfig(group, options, counters)
			if len(sp.left) != 0 && len(sp.right) != 0 && !yield(sp) {
				return
			}
			if !applyNextConfig(counters, radices) {
				return
			}
		}
	}
}

func (s *search) applyConfig(group []gr.CladeID, options [][]placement, counters []int) split {
	var sp split
	for i, c := range group {
		children := s.forest.Clade(c).Children
		switch options[i][counters[i]] {
		case toLeft:
			sp.left = append(sp.left, c)
		case toRight:
			sp.right = append(sp.right, c)
		case splitLR:
			sp.left = append(sp.left, children[0])
			sp.right = append(sp.right, children[1])
			sp.cut = append(sp.cut, c)
		case splitRL:
			sp.left = append(sp.left, children[1])
			sp.right = append(sp.right, children[0])
			sp.cut = append(sp.cut, c)
		}
	}
	return sp
}
