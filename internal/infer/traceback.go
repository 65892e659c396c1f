package infer

import (
	"fmt"

	"github.com/evolbioinfo/gotree/tree"

	gr "github.com/jsdoublel/minsgt/internal/graphs"
)

// how a candidate subtree is assembled (stored in candidate.trace)
type trace interface {
	traceback(b *builder) *tree.Node // builds the subtree and returns its root
}

// subtree copied unchanged from an input gene tree
type cladeTrace struct {
	id gr.CladeID
}

func (tr *cladeTrace) traceback(b *builder) *tree.Node {
	c := b.forest.Clade(tr.id)
	n := b.tre.NewNode()
	n.SetName(c.Label)
	for _, child := range c.Children {
		b.tre.ConnectNodes(n, (&cladeTrace{id: child}).traceback(b))
	}
	return n
}

// new node joining two resolved subproblems
type joinTrace struct {
	prevs [2]trace
}

func (tr *joinTrace) traceback(b *builder) *tree.Node {
	n := b.tre.NewNode()
	n.SetName(b.nextLabel())
	for _, prev := range tr.prevs {
		b.tre.ConnectNodes(n, prev.traceback(b))
	}
	return n
}

// builds one output tree; join nodes get labels not used by the forest
type builder struct {
	forest *gr.Forest
	tre    *tree.Tree
	count  int
}

func (b *builder) nextLabel() string {
	for {
		b.count++
		label := fmt.Sprintf("sgt%d", b.count)
		if _, taken := b.forest.ByLabel(label); !taken {
			return label
		}
	}
}

func buildTree(f *gr.Forest, tr trace) *tree.Tree {
	b := &builder{forest: f, tre: tree.NewTree()}
	b.tre.SetRoot(tr.traceback(b))
	return b.tre
}
