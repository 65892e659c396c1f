// Package used for preprocessing the inputs of the super gene tree search
package prep

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/evolbioinfo/gotree/tree"
	"golang.org/x/sync/errgroup"

	gr "github.com/jsdoublel/minsgt/internal/graphs"
	sc "github.com/jsdoublel/minsgt/internal/score"
)

const DefaultSeparator = "__"

var (
	ErrUnrooted      = errors.New("not rooted")
	ErrMulTree       = errors.New("contains duplicate labels")
	ErrCladeNotFound = errors.New("clade not found in gene trees")
	ErrTypeOutRange  = errors.New("out of type range")
)

// Preprocessed inputs ready for the search
type Data struct {
	Species   *gr.TreeData    // species tree
	GeneTrees []*tree.Tree    // gene trees with every internal node labeled
	Mappings  []sc.LCAMapping // LCA mapping of each gene tree
	Preserve  []*tree.Node    // gene tree nodes matching the preserve trees
}

// Returns a function mapping a gene leaf label to its species, i.e., the part
// after the last separator (or the whole label if there is none).
func SpeciesOf(sep string) func(string) string {
	return func(label string) string {
		if sep == "" {
			return label
		}
		if i := strings.LastIndex(label, sep); i >= 0 {
			return label[i+len(sep):]
		}
		return label
	}
}

// Preprocess necessary data. Returns an error if the species tree is not valid
// (e.g., not rooted/binary), if the gene trees are not valid (duplicate or
// unknown leaf labels), or if a preserve tree is not a clade of the gene trees.
func Preprocess(species *tree.Tree, geneTrees, preserve []*tree.Tree, speciesOf func(string) string, nprocs int) (*Data, error) {
	td, err := PrepareSpecies(species)
	if err != nil {
		return nil, err
	}
	if err := checkLeafLabels(geneTrees); err != nil {
		return nil, err
	}
	LabelInternalNodes(geneTrees)
	mappings, err := mapGeneTrees(geneTrees, td, speciesOf, nprocs)
	if err != nil {
		return nil, err
	}
	preserved, err := MatchClades(geneTrees, preserve)
	if err != nil {
		return nil, err
	}
	log.Printf("%d gene trees provided, %d clades to preserve\n", len(geneTrees), len(preserved))
	return &Data{Species: td, GeneTrees: geneTrees, Mappings: mappings, Preserve: preserved}, nil
}

// Validates the species tree (rooted, binary, unique labels) and preprocesses
// it
func PrepareSpecies(species *tree.Tree) (*gr.TreeData, error) {
	if err := species.UpdateTipIndex(); err != nil {
		return nil, fmt.Errorf("species tree %w", ErrMulTree)
	}
	if !species.Rooted() {
		return nil, fmt.Errorf("species tree is %w", ErrUnrooted)
	}
	if !TreeIsBinary(species) {
		return nil, fmt.Errorf("species tree is %w", gr.ErrNonBinary)
	}
	log.Printf("analyzing species tree")
	return gr.MakeTreeData(species), nil
}

// gene trees must be rooted and binary (single leaf trees are allowed), and
// a leaf label may appear at most once in each tree
func checkLeafLabels(geneTrees []*tree.Tree) error {
	for i, gt := range geneTrees {
		if len(gt.Root().Neigh()) == 0 {
			continue
		}
		if err := gt.UpdateTipIndex(); err != nil {
			return fmt.Errorf("gene tree %d %w", i+1, ErrMulTree)
		}
		if !TreeIsBinary(gt) {
			return fmt.Errorf("gene tree %d is %w", i+1, gr.ErrNonBinary)
		}
	}
	return nil
}

// Computes the LCA mapping of every gene tree in parallel
func mapGeneTrees(geneTrees []*tree.Tree, td *gr.TreeData, speciesOf func(string) string, nprocs int) ([]sc.LCAMapping, error) {
	log.Printf("computing lca mappings")
	mappings := make([]sc.LCAMapping, len(geneTrees))
	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(max(nprocs, 1))
	for i, gt := range geneTrees {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			mapping, err := sc.MapLCA(gt, td, speciesOf)
			if err != nil {
				return fmt.Errorf("gene tree %d: %w", i+1, err)
			}
			mappings[i] = mapping
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return mappings, nil
}

// Gives every internal gene tree node a label unique across the forest.
// Existing labels are kept unless they clash with a leaf label or an earlier
// internal label.
func LabelInternalNodes(geneTrees []*tree.Tree) {
	leaves, names := make(map[string]bool), make(map[string]bool)
	for _, gt := range geneTrees {
		for _, n := range gt.Nodes() {
			names[n.Name()] = true
			if len(gr.GetChildren(n)) == 0 {
				leaves[n.Name()] = true
			}
		}
	}
	claimed := make(map[string]bool)
	count := 0
	for _, gt := range geneTrees {
		gt.PostOrder(func(cur, prev *tree.Node, e *tree.Edge) (keep bool) {
			if len(gr.GetChildren(cur)) == 0 {
				return true
			}
			if name := cur.Name(); name != "" && !leaves[name] && !claimed[name] {
				claimed[name] = true
				return true
			}
			for {
				count++
				label := fmt.Sprintf("n%d", count)
				if !names[label] && !claimed[label] {
					cur.SetName(label)
					claimed[label] = true
					return true
				}
			}
		})
	}
}

// Finds the gene tree node matching the topology of each preserve tree.
// Preserve trees nested inside another preserved clade are dropped.
func MatchClades(geneTrees, preserve []*tree.Tree) ([]*tree.Node, error) {
	canon := make(map[string]*tree.Node)
	for _, gt := range geneTrees {
		gt.PostOrder(func(cur, prev *tree.Node, e *tree.Edge) (keep bool) {
			key := gr.Canonical(cur)
			if _, ok := canon[key]; !ok {
				canon[key] = cur
			}
			return true
		})
	}
	matched := make([]*tree.Node, 0, len(preserve))
	for i, p := range preserve {
		n, ok := canon[gr.Canonical(p.Root())]
		if !ok {
			return nil, fmt.Errorf("preserve tree %d: %w", i+1, ErrCladeNotFound)
		}
		matched = append(matched, n)
	}
	return outermost(matched), nil
}

// removes nodes lying below (or equal to) another node of the list
func outermost(nodes []*tree.Node) []*tree.Node {
	inside := make(map[*tree.Node]bool)
	for _, n := range nodes {
		for _, c := range gr.GetChildren(n) {
			markSubtree(c, inside)
		}
	}
	result := make([]*tree.Node, 0, len(nodes))
	seen := make(map[*tree.Node]bool)
	for _, n := range nodes {
		if !inside[n] && !seen[n] {
			result = append(result, n)
			seen[n] = true
		}
	}
	return result
}

func markSubtree(n *tree.Node, marked map[*tree.Node]bool) {
	marked[n] = true
	for _, c := range gr.GetChildren(n) {
		markSubtree(c, marked)
	}
}

func TreeIsBinary(tre *tree.Tree) bool {
	if !tre.Rooted() {
		return false
	}
	neighbors := tre.Root().Neigh()
	if len(neighbors) != 2 {
		panic("tree is not rooted (even though it is??)")
	}
	return isBinary(neighbors[0]) && isBinary(neighbors[1])
}

func isBinary(node *tree.Node) bool {
	if node.Tip() {
		return true
	}
	if node.Nneigh() != 3 {
		return false
	}
	children := gr.GetChildren(node)
	return isBinary(children[0]) && isBinary(children[1])
}
