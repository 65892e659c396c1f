package score

import (
	"errors"
	"fmt"

	"github.com/evolbioinfo/gotree/tree"

	gr "github.com/jsdoublel/minsgt/internal/graphs"
)

var ErrInvalidScorerOption = errors.New("invalid scorer option")

// Cost oracle for a single gene tree node mapped to species node s whose
// children are mapped to s1 and s2 (all species node ids). Implementations
// must be deterministic.
type Scorer interface {
	NodeCost(s, s1, s2 int, species *gr.TreeData) int
}

type ScoreOptions func(opts *scorerOpts) error

type scorerOpts struct {
	dupCost  int
	lossCost int
}

func WithDupCost(cost int) ScoreOptions {
	return func(options *scorerOpts) error {
		if cost < 0 {
			return fmt.Errorf("%w, duplication cost must be non-negative, but is %d", ErrInvalidScorerOption, cost)
		}
		options.dupCost = cost
		return nil
	}
}

func WithLossCost(cost int) ScoreOptions {
	return func(options *scorerOpts) error {
		if cost < 0 {
			return fmt.Errorf("%w, loss cost must be non-negative, but is %d", ErrInvalidScorerOption, cost)
		}
		options.lossCost = cost
		return nil
	}
}

// Classic duplication/loss cost. Both costs default to 1.
type DLScorer struct {
	DupCost  int
	LossCost int
}

func NewDLScorer(opts ...ScoreOptions) (*DLScorer, error) {
	options := scorerOpts{dupCost: 1, lossCost: 1}
	for _, opt := range opts {
		if err := opt(&options); err != nil {
			return nil, err
		}
	}
	return &DLScorer{DupCost: options.dupCost, LossCost: options.lossCost}, nil
}

func (s DLScorer) NodeCost(sp, s1, s2 int, species *gr.TreeData) int {
	d1, d2 := species.Dist(sp, s1), species.Dist(sp, s2)
	if Classify(sp, s1, s2) == Duplication {
		return s.DupCost + s.LossCost*(d1+d2)
	}
	return s.LossCost * (d1 - 1 + d2 - 1)
}

// Total reconciliation cost of a binary gene tree given its LCA mapping
func TreeCost(gtree *tree.Tree, mapping LCAMapping, species *gr.TreeData, scorer Scorer) (int, error) {
	if err := CheckMapping(gtree, mapping, species); err != nil {
		return 0, err
	}
	var cost func(n *tree.Node) (int, error)
	cost = func(n *tree.Node) (int, error) {
		children := gr.GetChildren(n)
		switch len(children) {
		case 0:
			return 0, nil
		case 2:
		default:
			return 0, fmt.Errorf("gene tree is %w at node %q", gr.ErrNonBinary, n.Name())
		}
		total := scorer.NodeCost(mapping[n].Id(), mapping[children[0]].Id(), mapping[children[1]].Id(), species)
		for _, c := range children {
			sub, err := cost(c)
			if err != nil {
				return 0, err
			}
			total += sub
		}
		return total, nil
	}
	return cost(gtree.Root())
}
