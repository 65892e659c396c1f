package infer

import (
	"errors"
	"fmt"
	"log"
	"slices"

	"github.com/evolbioinfo/gotree/tree"

	gr "github.com/jsdoublel/minsgt/internal/graphs"
	"github.com/jsdoublel/minsgt/internal/intersect"
	"github.com/jsdoublel/minsgt/internal/score"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrUnknownClade      = errors.New("clade is not part of the gene trees")
	ErrInvalidEngineOpts = errors.New("invalid engine option")
)

// Inputs of one top level super gene tree search
type Input struct {
	Trees           []*tree.Tree       // gene trees to combine
	Preserve        []*tree.Node       // clades (nodes of Trees) that must appear unchanged
	Treated         []*tree.Node       // clades (nodes of Trees) already committed; never split
	Mappings        []score.LCAMapping // LCA mapping of each gene tree (aligned with Trees)
	Species         *gr.TreeData       // species tree
	PreserveDupSpec bool               // split trees must keep their root's dup/spec event
	Limit           int                // max number of co-optimal solutions returned
}

// A super gene tree and its DL cost
type Solution struct {
	Tree *tree.Tree
	Cost int
}

type EngineOption func(e *Engine) error

func WithScorer(scorer score.Scorer) EngineOption {
	return func(e *Engine) error {
		if scorer == nil {
			return fmt.Errorf("%w, scorer is nil", ErrInvalidEngineOpts)
		}
		e.scorer = scorer
		return nil
	}
}

// Number of parallel processes used while building the intersection index
func WithNProcs(nprocs int) EngineOption {
	return func(e *Engine) error {
		if nprocs <= 0 {
			return fmt.Errorf("%w, number of processes must be positive, but is %d", ErrInvalidEngineOpts, nprocs)
		}
		e.nprocs = nprocs
		return nil
	}
}

// Keeps the index and subproblem cache of the last call and reuses them if
// the next call has the same input (same trees, clades, species tree, and
// settings). Mappings are assumed unchanged between such calls.
func WithPersistentCache() EngineOption {
	return func(e *Engine) error {
		e.persist = true
		return nil
	}
}

// Finds minimum DL cost super gene trees. An Engine is not safe for
// concurrent use when the persistent cache is enabled; otherwise every call
// owns its own search state.
type Engine struct {
	scorer  score.Scorer
	nprocs  int
	persist bool
	last    *search
	lastIn  Input
	Stats   Stats // counters of the last call
}

func NewEngine(opts ...EngineOption) (*Engine, error) {
	scorer, err := score.NewDLScorer()
	if err != nil {
		return nil, err
	}
	e := &Engine{scorer: scorer, nprocs: 1}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Returns up to in.Limit minimum cost super gene trees displaying every gene
// tree and containing every preserved clade. An empty result means no such
// tree exists. Errors are only returned for invalid inputs.
func (e *Engine) GetSuperGeneTreeMinDL(in Input) ([]Solution, error) {
	if err := validate(in); err != nil {
		return nil, err
	}
	if len(in.Trees) == 0 {
		return []Solution{}, nil
	}
	s, err := e.searchFor(in)
	if err != nil {
		return nil, err
	}
	before := s.stats
	results := s.solve(s.forest.Roots)
	e.Stats = Stats{
		Subproblems:    s.stats.Subproblems - before.Subproblems,
		CacheHits:      s.stats.CacheHits - before.CacheHits,
		Splits:         s.stats.Splits - before.Splits,
		RejectedSplits: s.stats.RejectedSplits - before.RejectedSplits,
	}
	log.Printf("%d subproblems solved (%d cache hits), %d of %d splits rejected\n",
		e.Stats.Subproblems, e.Stats.CacheHits, e.Stats.RejectedSplits, e.Stats.Splits)
	solutions := make([]Solution, len(results))
	for i, r := range results {
		solutions[i] = Solution{Tree: buildTree(s.forest, r.trace), Cost: r.cost}
	}
	return solutions, nil
}

// Returns the search state for the input, creating it unless the previous
// one can be reused
func (e *Engine) searchFor(in Input) (*search, error) {
	if e.persist && e.last != nil && sameInput(e.lastIn, in) {
		return e.last, nil
	}
	s, err := newSearch(in, e.scorer, e.nprocs)
	if err != nil {
		return nil, err
	}
	if e.persist {
		e.last, e.lastIn = s, in
	}
	return s, nil
}

func newSearch(in Input, scorer score.Scorer, nprocs int) (*search, error) {
	forest, err := gr.NewForest(in.Trees)
	if err != nil {
		return nil, fmt.Errorf("%w, %w", ErrInvalidInput, err)
	}
	atomic, preserved := make([]bool, len(forest.Clades)), make([]bool, len(forest.Clades))
	for i, n := range slices.Concat(in.Preserve, in.Treated) {
		id, ok := forest.ByNode(n)
		if !ok {
			return nil, fmt.Errorf("%w (%q)", ErrUnknownClade, n.Name())
		}
		atomic[id] = true
		preserved[id] = preserved[id] || i < len(in.Preserve)
	}
	index := intersect.New(forest)
	if err := index.ComputeAllIntersections(forest.Roots, nprocs); err != nil {
		return nil, err
	}
	s := &search{
		forest:          forest,
		index:           index,
		species:         in.Species,
		scorer:          scorer,
		preserveDupSpec: in.PreserveDupSpec,
		limit:           in.Limit,
		atomic:          atomic,
		preserved:       preserved,
		cache:           make(map[subproblemKey][]candidate),
	}
	s.scoreClades(in.Mappings)
	return s, nil
}

func validate(in Input) error {
	switch {
	case in.Species == nil:
		return fmt.Errorf("%w, species tree missing", ErrInvalidInput)
	case in.Limit < 1:
		return fmt.Errorf("%w, limit must be at least 1, but is %d", ErrInvalidInput, in.Limit)
	case len(in.Mappings) != len(in.Trees):
		return fmt.Errorf("%w, %d lca mappings given for %d gene trees", ErrInvalidInput, len(in.Mappings), len(in.Trees))
	}
	for i, gtre := range in.Trees {
		if err := score.CheckMapping(gtre, in.Mappings[i], in.Species); err != nil {
			return fmt.Errorf("%w, gene tree %d: %w", ErrInvalidInput, i+1, err)
		}
	}
	return nil
}

func sameInput(a, b Input) bool {
	return a.Species == b.Species &&
		a.PreserveDupSpec == b.PreserveDupSpec &&
		a.Limit == b.Limit &&
		slices.Equal(a.Trees, b.Trees) &&
		slices.Equal(a.Preserve, b.Preserve) &&
		slices.Equal(a.Treated, b.Treated)
}
