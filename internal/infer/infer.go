// Package implementing the minimum duplication/loss super gene tree search
package infer

import (
	"fmt"
	"log"

	"github.com/evolbioinfo/gotree/tree"

	gr "github.com/jsdoublel/minsgt/internal/graphs"
	pr "github.com/jsdoublel/minsgt/internal/prep"
	sc "github.com/jsdoublel/minsgt/internal/score"
)

type InferOptions struct {
	NProcs          int                 // number of parallel processes
	Limit           int                 // max number of co-optimal super gene trees
	PreserveDupSpec bool                // split gene trees keep their root's event
	Scorer          sc.Scorer           // node cost oracle (DL scorer with unit costs if nil)
	SpeciesOf       func(string) string // gene leaf label -> species name
}

type InferResult struct {
	Species   *gr.TreeData // preprocessed species tree
	Solutions []Solution   // co-optimal super gene trees (empty if none exist)
	Stats     Stats
}

// Runs the super gene tree search -- returns the preprocessed species tree
// and the co-optimal solutions. Errors returned come from preprocessing
// (invalid inputs, etc.).
func Infer(species *tree.Tree, geneTrees, preserve []*tree.Tree, opts InferOptions) (*InferResult, error) {
	log.Println("beginning data preprocessing")
	speciesOf := opts.SpeciesOf
	if speciesOf == nil {
		speciesOf = pr.SpeciesOf(pr.DefaultSeparator)
	}
	data, err := pr.Preprocess(species, geneTrees, preserve, speciesOf, opts.NProcs)
	if err != nil {
		return nil, fmt.Errorf("preprocess error: %w", err)
	}
	engineOpts := []EngineOption{WithNProcs(max(opts.NProcs, 1))}
	if opts.Scorer != nil {
		engineOpts = append(engineOpts, WithScorer(opts.Scorer))
	}
	engine, err := NewEngine(engineOpts...)
	if err != nil {
		return nil, err
	}
	log.Println("preprocessing finished, beginning search")
	solutions, err := engine.GetSuperGeneTreeMinDL(Input{
		Trees:           data.GeneTrees,
		Preserve:        data.Preserve,
		Mappings:        data.Mappings,
		Species:         data.Species,
		PreserveDupSpec: opts.PreserveDupSpec,
		Limit:           opts.Limit,
	})
	if err != nil {
		return nil, err
	}
	if len(solutions) == 0 {
		log.Println("no super gene tree displays every gene tree")
	} else {
		log.Printf("found %d co-optimal super gene tree(s) of cost %d\n", len(solutions), solutions[0].Cost)
	}
	return &InferResult{Species: data.Species, Solutions: solutions, Stats: engine.Stats}, nil
}
