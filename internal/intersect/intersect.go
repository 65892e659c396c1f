// Package intersect caches which pairs of clades of a forest share at least
// one leaf label. The index is computed once for a set of trees and then
// answers pairwise and group queries with map lookups.
//
// Internal labels must be unique across the trees handed to the index. This
// is not checked here; graphs.NewForest refuses forests that break it.
package intersect

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	gr "github.com/jsdoublel/minsgt/internal/graphs"
)

// unordered pair of clades, smaller id first
type pairKey [2]gr.CladeID

func makeKey(a, b gr.CladeID) pairKey {
	if b < a {
		a, b = b, a
	}
	return pairKey{a, b}
}

type Index struct {
	forest *gr.Forest
	mu     sync.Mutex
	pairs  map[pairKey]struct{}
}

func New(f *gr.Forest) *Index {
	return &Index{forest: f, pairs: make(map[pairKey]struct{})}
}

// Computes intersections for every unordered pair of trees, a tree paired
// with itself included. Trees are given by their root clades.
func (ix *Index) ComputeAllIntersections(trees []gr.CladeID, nprocs int) error {
	g, ctx := errgroup.WithContext(context.Background())
	if nprocs > 0 {
		g.SetLimit(nprocs)
	}
	for i := range trees {
		for j := i; j < len(trees); j++ {
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				found := ix.intersections(trees[i], trees[j])
				ix.mu.Lock()
				for _, k := range found {
					ix.pairs[k] = struct{}{}
				}
				ix.mu.Unlock()
				return nil
			})
		}
	}
	return g.Wait()
}

// Records every intersecting pair made of one clade of tree1 and one clade of
// tree2.
func (ix *Index) ComputeIntersections(tree1, tree2 gr.CladeID) {
	found := ix.intersections(tree1, tree2)
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for _, k := range found {
		ix.pairs[k] = struct{}{}
	}
}

func (ix *Index) intersections(tree1, tree2 gr.CladeID) []pairKey {
	found := make([]pairKey, 0)
	for a := range ix.forest.Descendants(tree1) {
		la := ix.forest.Clade(a).Leaves
		for b := range ix.forest.Descendants(tree2) {
			if la.IntersectionCardinality(ix.forest.Clade(b).Leaves) > 0 {
				found = append(found, makeKey(a, b))
			}
		}
	}
	return found
}

// Records that the clades labeled lbl1 and lbl2 intersect. Unknown labels are
// ignored.
func (ix *Index) AddIntersection(lbl1, lbl2 string) {
	a, ok1 := ix.forest.ByLabel(lbl1)
	b, ok2 := ix.forest.ByLabel(lbl2)
	if !ok1 || !ok2 {
		return
	}
	ix.mu.Lock()
	ix.pairs[makeKey(a, b)] = struct{}{}
	ix.mu.Unlock()
}

// Returns true if the clades labeled lbl1 and lbl2 are known to intersect
func (ix *Index) Intersect(lbl1, lbl2 string) bool {
	a, ok1 := ix.forest.ByLabel(lbl1)
	b, ok2 := ix.forest.ByLabel(lbl2)
	return ok1 && ok2 && ix.IntersectIDs(a, b)
}

func (ix *Index) IntersectIDs(a, b gr.CladeID) bool {
	_, ok := ix.pairs[makeKey(a, b)]
	return ok
}

// Returns true if any two distinct trees of the group intersect
func (ix *Index) IntersectAny(trees []gr.CladeID) bool {
	for i := range trees {
		for j := i + 1; j < len(trees); j++ {
			if ix.IntersectIDs(trees[i], trees[j]) {
				return true
			}
		}
	}
	return false
}

// Returns true if a clade of the left group intersects a clade of the right
// group. Since descendants only cover leaves of their ancestors, comparing
// the group members themselves is enough.
func (ix *Index) IsPartitionIntersecting(left, right []gr.CladeID) bool {
	for _, l := range left {
		for _, r := range right {
			if ix.IntersectIDs(l, r) {
				return true
			}
		}
	}
	return false
}

// Number of intersecting pairs recorded
func (ix *Index) Len() int {
	return len(ix.pairs)
}
