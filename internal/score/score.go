package score

import (
	"context"
	"fmt"

	"github.com/evolbioinfo/gotree/tree"
	"golang.org/x/sync/errgroup"

	gr "github.com/jsdoublel/minsgt/internal/graphs"
)

// Computes the DL cost of every gene tree in parallel (result aligned with
// gtrees). Trees must be rooted and binary.
func GeneTreeCosts(species *gr.TreeData, gtrees []*tree.Tree, speciesOf func(string) string, scorer Scorer, nprocs int) ([]int, error) {
	costs := make([]int, len(gtrees))
	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(max(nprocs, 1))
	for i, gtre := range gtrees {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			mapping, err := MapLCA(gtre, species, speciesOf)
			if err != nil {
				return fmt.Errorf("gene tree %d: %w", i+1, err)
			}
			cost, err := TreeCost(gtre, mapping, species, scorer)
			if err != nil {
				return fmt.Errorf("gene tree %d: %w", i+1, err)
			}
			costs[i] = cost
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return costs, nil
}
