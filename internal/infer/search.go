package infer

import (
	"encoding/binary"
	"slices"

	gr "github.com/jsdoublel/minsgt/internal/graphs"
	"github.com/jsdoublel/minsgt/internal/intersect"
	"github.com/jsdoublel/minsgt/internal/score"
)

// canonical identity of a subproblem: its sorted, deduplicated clade ids
// packed as fixed width integers
type subproblemKey string

// Counters collected during a search
type Stats struct {
	Subproblems    int // distinct subproblems solved
	CacheHits      int // subproblems answered from the cache
	Splits         int // splits enumerated
	RejectedSplits int // splits rejected (intersecting sides or dup/spec change)
}

// State shared by every recursive call of one top level invocation
type search struct {
	forest          *gr.Forest
	index           *intersect.Index
	species         *gr.TreeData
	scorer          score.Scorer
	preserveDupSpec bool
	limit           int
	atomic          []bool        // clades that may not be split (preserved or treated)
	preserved       []bool        // clades that must stay clusters of every solution
	speciesOf       []int         // species node id of each clade
	costs           []int         // DL cost of each clade's subtree
	events          []score.Event // event at each internal clade
	cache           map[subproblemKey][]candidate
	stats           Stats
}

// Precomputes species mapping, subtree cost and event of every clade.
// Clades are stored children first so a single pass suffices.
func (s *search) scoreClades(mappings []score.LCAMapping) {
	n := len(s.forest.Clades)
	s.speciesOf, s.costs, s.events = make([]int, n), make([]int, n), make([]score.Event, n)
	for id := range s.forest.Clades {
		c := s.forest.Clade(gr.CladeID(id))
		s.speciesOf[id] = mappings[c.Tree][c.Node].Id()
		if c.Leaf() {
			continue
		}
		c0, c1 := c.Children[0], c.Children[1]
		sp, sp0, sp1 := s.speciesOf[id], s.speciesOf[c0], s.speciesOf[c1]
		s.events[id] = score.Classify(sp, sp0, sp1)
		s.costs[id] = s.costs[c0] + s.costs[c1] + s.scorer.NodeCost(sp, sp0, sp1, s.species)
	}
}

// Returns the minimum cost candidates for the group (empty if no super gene
// tree exists for it).
func (s *search) solve(group []gr.CladeID) []candidate {
	group = s.normalize(group)
	if len(group) == 0 {
		return nil
	}
	key := makeKey(group)
	if res, ok := s.cache[key]; ok {
		s.stats.CacheHits++
		return res
	}
	s.stats.Subproblems++
	res := s.resolve(group)
	s.cache[key] = res
	return res
}

func (s *search) resolve(group []gr.CladeID) []candidate {
	if c, ok := s.covering(group); ok {
		for _, q := range group {
			if q != c && (!s.forest.Displays(c, q) || !s.keepsPreserved(c, q)) {
				return nil
			}
		}
		return []candidate{{cost: s.costs[c], species: s.speciesOf[c], trace: &cladeTrace{id: c}}}
	}
	best := newResultSet(s.limit)
	for sp := range s.splits(group) {
		s.stats.Splits++
		if s.index.IsPartitionIntersecting(sp.left, sp.right) {
			s.stats.RejectedSplits++
			continue
		}
		spL, spR := s.groupSpecies(sp.left), s.groupSpecies(sp.right)
		spJ := s.species.LCA(spL, spR)
		if s.preserveDupSpec && !s.keepsEvents(sp.cut, spJ, spL, spR) {
			s.stats.RejectedSplits++
			continue
		}
		joinCost := s.scorer.NodeCost(spJ, spL, spR, s.species)
		if !best.accepts(joinCost) {
			continue
		}
		left := s.solve(sp.left)
		if len(left) == 0 {
			continue
		}
		right := s.solve(sp.right)
		if len(right) == 0 {
			continue
		}
		total := left[0].cost + right[0].cost + joinCost
	combine:
		for _, l := range left {
			for _, r := range right {
				join := candidate{cost: total, species: spJ, trace: &joinTrace{prevs: [2]trace{l.trace, r.trace}}}
				if !best.add(join) {
					break combine
				}
			}
		}
	}
	return best.candidates()
}

// Sorts and deduplicates the group and drops clades already contained in
// another member (they are displayed by it whatever happens).
func (s *search) normalize(group []gr.CladeID) []gr.CladeID {
	group = slices.Clone(group)
	slices.Sort(group)
	group = slices.Compact(group)
	kept := make([]gr.CladeID, 0, len(group))
	for _, q := range group {
		if !slices.ContainsFunc(group, func(c gr.CladeID) bool {
			return c != q && s.forest.Contains(c, q)
		}) {
			kept = append(kept, q)
		}
	}
	return kept
}

// Returns the member whose leaves are all the leaves of the group, if any
func (s *search) covering(group []gr.CladeID) (gr.CladeID, bool) {
	for _, c := range group {
		covers := true
		for _, q := range group {
			if !s.forest.Clade(c).Leaves.IsSuperSet(s.forest.Clade(q).Leaves) {
				covers = false
				break
			}
		}
		if covers {
			return c, true
		}
	}
	return gr.NoClade, false
}

// Returns true if every preserved clade in the subtree of q (q included) is a
// cluster of c
func (s *search) keepsPreserved(c, q gr.CladeID) bool {
	for d := range s.forest.Descendants(q) {
		if s.preserved[d] && !s.forest.HasCluster(c, d) {
			return false
		}
	}
	return true
}

// species node the root of any tree on the group's leaves maps to
func (s *search) groupSpecies(group []gr.CladeID) int {
	sp := s.speciesOf[group[0]]
	for _, c := range group[1:] {
		sp = s.species.LCA(sp, s.speciesOf[c])
	}
	return sp
}

// Returns true if every clade cut at the join keeps its original event
func (s *search) keepsEvents(cut []gr.CladeID, spJ, spL, spR int) bool {
	event := score.Classify(spJ, spL, spR)
	for _, c := range cut {
		if s.events[c] != event {
			return false
		}
	}
	return true
}

func makeKey(group []gr.CladeID) subproblemKey {
	buf := make([]byte, 0, 4*len(group))
	for _, c := range group {
		buf = binary.BigEndian.AppendUint32(buf, uint32(c))
	}
	return subproblemKey(buf)
}
