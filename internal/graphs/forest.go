package graphs

import (
	"errors"
	"fmt"
	"iter"
	"slices"
	"strings"

	"github.com/bits-and-blooms/bitset"
	"github.com/evolbioinfo/gotree/tree"
)

// Handle of a clade inside a Forest
type CladeID int32

const NoClade CladeID = -1

var (
	ErrDuplicateLabel = errors.New("duplicate label")
	ErrUnlabeled      = errors.New("unlabeled internal node")
	ErrNonBinary      = errors.New("not binary")
)

// A clade is a node of one of the input gene trees. Leaves with the same
// label in different trees are the same clade.
type Clade struct {
	Label    string
	Children []CladeID      // empty for leaves
	Tree     int            // index of the (first) input tree containing the clade
	Node     *tree.Node     // node in that tree
	Leaves   *bitset.BitSet // leaf labels below the clade
}

func (c *Clade) Leaf() bool {
	return len(c.Children) == 0
}

// Arena of clades for a forest of rooted binary gene trees. Internal node
// labels must be unique across the whole forest and distinct from leaf
// labels.
type Forest struct {
	Clades    []Clade
	Roots     []CladeID // root clade of each input tree (aligned with input)
	byLabel   map[string]CladeID
	byNode    map[*tree.Node]CladeID
	leafNames []string // leaf bit -> label
	leafBits  map[string]uint
}

// Builds the clade arena. Returns an error if an internal node is unlabeled,
// a label is reused, or a tree is not binary.
func NewForest(trees []*tree.Tree) (*Forest, error) {
	f := &Forest{
		Roots:    make([]CladeID, len(trees)),
		byLabel:  make(map[string]CladeID),
		byNode:   make(map[*tree.Node]CladeID),
		leafBits: make(map[string]uint),
	}
	for _, tre := range trees {
		walk(tre.Root(), nil, func(n *tree.Node, children []*tree.Node) {
			if len(children) != 0 {
				return
			}
			if _, ok := f.leafBits[n.Name()]; !ok {
				f.leafBits[n.Name()] = uint(len(f.leafNames))
				f.leafNames = append(f.leafNames, n.Name())
			}
		})
	}
	for i, tre := range trees {
		seen := make(map[string]bool)
		var err error
		walk(tre.Root(), nil, func(n *tree.Node, children []*tree.Node) {
			if err != nil {
				return
			}
			if seen[n.Name()] {
				err = fmt.Errorf("%w %q in gene tree %d", ErrDuplicateLabel, n.Name(), i+1)
				return
			}
			seen[n.Name()] = true
			err = f.add(i, n, children)
		})
		if err != nil {
			return nil, err
		}
		f.Roots[i] = f.byNode[tre.Root()]
	}
	return f, nil
}

func (f *Forest) add(treeIdx int, n *tree.Node, children []*tree.Node) error {
	id, exists := f.byLabel[n.Name()]
	switch {
	case len(children) == 0 && exists && f.Clades[id].Leaf():
		f.byNode[n] = id
		return nil
	case exists:
		return fmt.Errorf("%w %q in gene tree %d", ErrDuplicateLabel, n.Name(), treeIdx+1)
	case len(children) != 0 && n.Name() == "":
		return fmt.Errorf("%w in gene tree %d", ErrUnlabeled, treeIdx+1)
	case len(children) != 0 && len(children) != 2:
		return fmt.Errorf("gene tree %d is %w", treeIdx+1, ErrNonBinary)
	}
	clade := Clade{
		Label:  n.Name(),
		Tree:   treeIdx,
		Node:   n,
		Leaves: bitset.New(uint(len(f.leafNames))),
	}
	if len(children) == 0 {
		clade.Leaves.Set(f.leafBits[n.Name()])
	} else {
		clade.Children = make([]CladeID, 2)
		for j, c := range children {
			clade.Children[j] = f.byNode[c]
			clade.Leaves.InPlaceUnion(f.Clades[clade.Children[j]].Leaves)
		}
	}
	id = CladeID(len(f.Clades))
	f.Clades = append(f.Clades, clade)
	f.byLabel[n.Name()] = id
	f.byNode[n] = id
	return nil
}

// post order walk that works for single node trees as well
func walk(n, parent *tree.Node, f func(n *tree.Node, children []*tree.Node)) {
	children := make([]*tree.Node, 0, 2)
	for _, c := range n.Neigh() {
		if c != parent {
			children = append(children, c)
		}
	}
	for _, c := range children {
		walk(c, n, f)
	}
	f(n, children)
}

func (f *Forest) Clade(id CladeID) *Clade {
	return &f.Clades[id]
}

// Looks up a clade by its label
func (f *Forest) ByLabel(label string) (CladeID, bool) {
	id, ok := f.byLabel[label]
	return id, ok
}

// Looks up the clade of a gene tree node
func (f *Forest) ByNode(n *tree.Node) (CladeID, bool) {
	id, ok := f.byNode[n]
	return id, ok
}

func (f *Forest) NumLeaves() int {
	return len(f.leafNames)
}

func (f *Forest) LeafName(bit uint) string {
	return f.leafNames[bit]
}

// Iterates over the clade and all of its descendants (pre order)
func (f *Forest) Descendants(id CladeID) iter.Seq[CladeID] {
	return func(yield func(CladeID) bool) {
		stack := []CladeID{id}
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if !yield(cur) {
				return
			}
			for i := len(f.Clades[cur].Children) - 1; i >= 0; i-- {
				stack = append(stack, f.Clades[cur].Children[i])
			}
		}
	}
}

// q is c or a clade in the subtree of c
func (f *Forest) Contains(c, q CladeID) bool {
	if c == q {
		return true
	}
	cc, qc := &f.Clades[c], &f.Clades[q]
	if qc.Leaf() {
		return cc.Leaves.IsSuperSet(qc.Leaves)
	}
	return cc.Tree == qc.Tree && cc.Leaves.IsSuperSet(qc.Leaves)
}

// Returns true if the subtree rooted at c, restricted to the leaves of q, is
// the subtree rooted at q.
func (f *Forest) Displays(c, q CladeID) bool {
	lq := f.Clades[q].Leaves
	if !f.Clades[c].Leaves.IsSuperSet(lq) {
		return false
	}
	restricted := make([]*bitset.BitSet, 0)
	for d := range f.Descendants(c) {
		if r := f.Clades[d].Leaves.Intersection(lq); r.Any() {
			restricted = append(restricted, r)
		}
	}
	for e := range f.Descendants(q) {
		if !slices.ContainsFunc(restricted, f.Clades[e].Leaves.Equal) {
			return false
		}
	}
	return true
}

// Canonical topology string of a clade (children sorted, internal labels
// ignored)
func (f *Forest) Canonical(id CladeID) string {
	c := &f.Clades[id]
	if c.Leaf() {
		return c.Label
	}
	subs := []string{f.Canonical(c.Children[0]), f.Canonical(c.Children[1])}
	slices.Sort(subs)
	return "(" + strings.Join(subs, ",") + ")"
}

// Canonical topology string of a gotree subtree rooted at n (children
// sorted, internal labels ignored)
func Canonical(n *tree.Node) string {
	children := GetChildren(n)
	if len(children) == 0 {
		return n.Name()
	}
	subs := make([]string, len(children))
	for i, c := range children {
		subs[i] = Canonical(c)
	}
	slices.Sort(subs)
	return "(" + strings.Join(subs, ",") + ")"
}

// Returns true if some clade in the subtree of c has exactly the leaves of q
func (f *Forest) HasCluster(c, q CladeID) bool {
	for d := range f.Descendants(c) {
		if f.Clades[d].Leaves.Equal(f.Clades[q].Leaves) {
			return true
		}
	}
	return false
}
