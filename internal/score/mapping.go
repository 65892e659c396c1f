// Package implementing duplication/loss reconciliation of gene trees against
// a species tree: LCA mappings, event classification, and cost scorers
package score

import (
	"errors"
	"fmt"

	"github.com/evolbioinfo/gotree/tree"

	gr "github.com/jsdoublel/minsgt/internal/graphs"
)

var (
	ErrUnknownSpecies = errors.New("unknown species")
	ErrMissingMapping = errors.New("missing lca mapping")
	ErrForeignSpecies = errors.New("mapped to node outside of species tree")
	ErrInvalidMapping = errors.New("inconsistent lca mapping")
)

// Maps each gene tree node to the species tree node that is the LCA of the
// species of its leaves
type LCAMapping map[*tree.Node]*tree.Node

type Event int

const (
	Speciation Event = iota
	Duplication
)

func (e Event) String() string {
	switch e {
	case Speciation:
		return "speciation"
	case Duplication:
		return "duplication"
	default:
		panic(fmt.Sprintf("invalid event (%d)", e))
	}
}

// Event at a node mapped to s whose children map to s1 and s2 (species node
// ids)
func Classify(s, s1, s2 int) Event {
	if s == s1 || s == s2 {
		return Duplication
	}
	return Speciation
}

// Computes the LCA mapping of a gene tree. speciesOf converts a gene leaf
// label into the name of a species tree leaf.
func MapLCA(gtree *tree.Tree, species *gr.TreeData, speciesOf func(string) string) (LCAMapping, error) {
	mapping := make(LCAMapping)
	var mapNode func(n *tree.Node) error
	mapNode = func(n *tree.Node) error {
		children := gr.GetChildren(n)
		if len(children) == 0 {
			sp := speciesOf(n.Name())
			id, ok := species.TipID(sp)
			if !ok {
				return fmt.Errorf("%w %q for gene %q", ErrUnknownSpecies, sp, n.Name())
			}
			mapping[n] = species.IdToNodes[id]
			return nil
		}
		lca := -1
		for _, c := range children {
			if err := mapNode(c); err != nil {
				return err
			}
			if lca == -1 {
				lca = mapping[c].Id()
			} else {
				lca = species.LCA(lca, mapping[c].Id())
			}
		}
		mapping[n] = species.IdToNodes[lca]
		return nil
	}
	if err := mapNode(gtree.Root()); err != nil {
		return nil, err
	}
	return mapping, nil
}

// Checks that every node of the gene tree is mapped to a node of the species
// tree, that leaves are mapped to species leaves, and that every internal node
// is mapped to the LCA of its children's species
func CheckMapping(gtree *tree.Tree, mapping LCAMapping, species *gr.TreeData) error {
	var check func(n *tree.Node) error
	check = func(n *tree.Node) error {
		s, ok := mapping[n]
		if !ok {
			return fmt.Errorf("%w for node %q", ErrMissingMapping, n.Name())
		}
		if !species.Owns(s) {
			return fmt.Errorf("node %q %w", n.Name(), ErrForeignSpecies)
		}
		children := gr.GetChildren(n)
		if len(children) == 0 {
			if len(species.Children[s.Id()]) != 0 {
				return fmt.Errorf("%w, leaf %q mapped to internal species node %q", ErrInvalidMapping, n.Name(), s.Name())
			}
			return nil
		}
		lca := -1
		for _, c := range children {
			if err := check(c); err != nil {
				return err
			}
			if lca == -1 {
				lca = mapping[c].Id()
			} else {
				lca = species.LCA(lca, mapping[c].Id())
			}
		}
		if lca != s.Id() {
			return fmt.Errorf("%w, node %q mapped to %q instead of %q", ErrInvalidMapping, n.Name(), s.Name(), species.IdToNodes[lca].Name())
		}
		return nil
	}
	return check(gtree.Root())
}
